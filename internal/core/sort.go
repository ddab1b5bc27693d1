package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByCreated SortField = "created"
	SortByName    SortField = "name"
	SortByID      SortField = "id"
	SortByY       SortField = "y"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions returns creation order, oldest first.
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByCreated,
		Order: SortAsc,
	}
}

// Sort sorts sessions in place. Ties keep their existing order.
func Sort(sessions []model.SessionInfo, opts SortOptions) {
	if len(sessions) < 2 {
		return
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		var cmp int

		switch opts.Field {
		case SortByName:
			cmp = strings.Compare(strings.ToLower(displayName(a)), strings.ToLower(displayName(b)))
		case SortByID:
			cmp = strings.Compare(string(a.Bubble.Identity), string(b.Bubble.Identity))
		case SortByY:
			cmp = compareInt(a.Position.Y, b.Position.Y)
		default:
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}

		if opts.Order == SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func displayName(s model.SessionInfo) string {
	if s.Bubble.DisplayName != "" {
		return s.Bubble.DisplayName
	}
	return string(s.Bubble.Identity)
}

// ParseSortField parses a sort field string.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "created", "created_at", "time", "t":
		return SortByCreated, nil
	case "name", "display_name", "n":
		return SortByName, nil
	case "id", "user_id", "user":
		return SortByID, nil
	case "y", "position":
		return SortByY, nil
	default:
		return SortByCreated, fmt.Errorf("unknown sort field: %s (use created, name, id or y)", s)
	}
}

// ParseSortOrder parses a sort order string.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending", "a":
		return SortAsc, nil
	case "desc", "descending", "d":
		return SortDesc, nil
	default:
		return SortAsc, fmt.Errorf("unknown sort order: %s (use asc or desc)", s)
	}
}
