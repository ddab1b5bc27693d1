package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/chatbubble/internal/model"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testSessions() []model.SessionInfo {
	return []model.SessionInfo{
		{
			Bubble:    model.Bubble{Identity: "42", DisplayName: "Alice", AvatarURL: "file:///a.png"},
			Position:  model.Position{X: 50, Y: 200},
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			Bubble:    model.Bubble{Identity: "7", DisplayName: "bob"},
			Position:  model.Position{X: 50, Y: 500},
			CreatedAt: now.Add(-time.Minute),
		},
		{
			Bubble:    model.Bubble{Identity: "carol"},
			Position:  model.Position{X: 300, Y: 350},
			CreatedAt: now.Add(-10 * time.Minute),
		},
	}
}

func ids(sessions []model.SessionInfo) []string {
	out := make([]string, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, string(s.Bubble.Identity))
	}
	return out
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"90s", 90 * time.Second, false},
		{"48h", 48 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1w", 7 * 24 * time.Hour, false},
		{"xd", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseFilter_Errors(t *testing.T) {
	for _, expr := range []string{
		"color=red",
		"name>bob",
		"x=left",
		"age<soon",
		"name~=(",
		"justtext",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseFilter(expr)
			assert.Error(t, err)
		})
	}
}

func TestFilterWithExpr(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"", []string{"42", "7", "carol"}},
		{"id=7", []string{"7"}},
		{"user_id!=7", []string{"42", "carol"}},
		{"name~ALI", []string{"42"}},
		{"display_name~=^[a-z]", []string{"7"}},
		{"avatar=", []string{"7", "carol"}},
		{"x>50", []string{"carol"}},
		{"y<=350", []string{"42", "carol"}},
		{"age<5m", []string{"7"}},
		{"age>=10m", []string{"42", "carol"}},
		{"x=50, age>1h", []string{"42"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(FilterWithExpr(testSessions(), expr, now)))
		})
	}
}

func TestIsFilterExpression(t *testing.T) {
	tests := []struct {
		query    string
		expected bool
	}{
		{"name~ali", true},
		{"ID=42", true},
		{"age<1h,y>100", true},
		{"alice", false},
		{"user@example.com", false},
		{"unknown=value", false},
		{"=value", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFilterExpression(tt.query))
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name string
		opts SortOptions
		want []string
	}{
		{"default", DefaultSortOptions(), []string{"42", "carol", "7"}},
		{"newest first", SortOptions{Field: SortByCreated, Order: SortDesc}, []string{"7", "carol", "42"}},
		{"name", SortOptions{Field: SortByName, Order: SortAsc}, []string{"42", "7", "carol"}},
		{"id", SortOptions{Field: SortByID, Order: SortAsc}, []string{"42", "7", "carol"}},
		{"y desc", SortOptions{Field: SortByY, Order: SortDesc}, []string{"7", "carol", "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := testSessions()
			Sort(sessions, tt.opts)
			assert.Equal(t, tt.want, ids(sessions))
		})
	}
}

func TestParseSort(t *testing.T) {
	f, err := ParseSortField("Name")
	require.NoError(t, err)
	assert.Equal(t, SortByName, f)

	f, err = ParseSortField("")
	require.NoError(t, err)
	assert.Equal(t, SortByCreated, f)

	_, err = ParseSortField("colour")
	assert.Error(t, err)

	o, err := ParseSortOrder("descending")
	require.NoError(t, err)
	assert.Equal(t, SortDesc, o)

	_, err = ParseSortOrder("sideways")
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	sessions := testSessions()

	s := LookupByID(sessions, "carol")
	require.NotNil(t, s)
	assert.Equal(t, 300, s.Position.X)
	assert.Nil(t, LookupByID(sessions, "nobody"))

	s = LookupByIndex(sessions, 2)
	require.NotNil(t, s)
	assert.Equal(t, model.Identity("7"), s.Bubble.Identity)
	assert.Nil(t, LookupByIndex(sessions, 0))
	assert.Nil(t, LookupByIndex(sessions, 4))
}

func TestSearchAndQuery(t *testing.T) {
	sessions := testSessions()
	clock := func() time.Time { return now }

	assert.Equal(t, []string{"42", "7", "carol"}, ids(Search(sessions, "")))
	assert.Equal(t, []string{"7"}, ids(Search(sessions, "BO")))
	assert.Equal(t, []string{"carol"}, ids(Query(sessions, "car", clock)))
	assert.Equal(t, []string{"7"}, ids(Query(sessions, "age<5m", clock)))
}
