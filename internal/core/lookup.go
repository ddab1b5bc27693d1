package core

import (
	"strings"
	"time"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// LookupByID finds a session by user id. Returns nil if not found.
func LookupByID(sessions []model.SessionInfo, id model.Identity) *model.SessionInfo {
	for i := range sessions {
		if sessions[i].Bubble.Identity == id {
			return &sessions[i]
		}
	}
	return nil
}

// LookupByIndex finds a session by its 1-based index.
// Returns nil if index is out of bounds.
func LookupByIndex(sessions []model.SessionInfo, index int) *model.SessionInfo {
	idx := index - 1
	if idx < 0 || idx >= len(sessions) {
		return nil
	}
	return &sessions[idx]
}

// Search finds sessions whose user id or display name contains term,
// ignoring case.
func Search(sessions []model.SessionInfo, term string) []model.SessionInfo {
	if term == "" {
		return sessions
	}

	term = strings.ToLower(term)
	var result []model.SessionInfo
	for _, s := range sessions {
		if strings.Contains(strings.ToLower(string(s.Bubble.Identity)), term) ||
			strings.Contains(strings.ToLower(s.Bubble.DisplayName), term) {
			result = append(result, s)
		}
	}
	return result
}

// Query narrows sessions by query: a filter expression when it parses as
// one, plain search text otherwise.
func Query(sessions []model.SessionInfo, query string, nowFn func() time.Time) []model.SessionInfo {
	if IsFilterExpression(query) {
		expr, _ := ParseFilter(query)
		return FilterWithExpr(sessions, expr, nowFn())
	}
	return Search(sessions, query)
}
