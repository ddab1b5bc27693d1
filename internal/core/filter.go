// Package core provides filtering, sorting, and lookup of bubble sessions.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/chatbubble/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// Canonical filter field names.
const (
	FieldID     = "id"
	FieldName   = "name"
	FieldAvatar = "avatar"
	FieldX      = "x"
	FieldY      = "y"
	FieldAge    = "age"
)

var fieldAliases = map[string]string{
	"id":           FieldID,
	"user":         FieldID,
	"user_id":      FieldID,
	"name":         FieldName,
	"display_name": FieldName,
	"avatar":       FieldAvatar,
	"avatar_url":   FieldAvatar,
	"x":            FieldX,
	"y":            FieldY,
	"age":          FieldAge,
}

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // Canonical field name
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex  *regexp.Regexp
	intVal int
	age    time.Duration
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// ParseDuration parses a duration string with extended formats.
// Supports: 90s, 5m, 48h, 7d, 1w
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Supported fields: id, name, avatar, x, y, age
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "id=42" - a single user
//   - "name~ali" - display name contains "ali"
//   - "age<5m" - shown in the last five minutes
//   - "avatar=" - bubbles drawn with initials
//   - "y>=400,name~=(?i)^b" - low on screen, name starting with b
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}
	return filter, nil
}

// IsFilterExpression reports whether query parses as a filter expression
// rather than plain search text.
func IsFilterExpression(query string) bool {
	if strings.TrimSpace(query) == "" {
		return false
	}
	_, err := ParseFilter(query)
	return err == nil
}

// parseCondition parses a single condition like "name~ali" or "age<1h".
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "="
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init normalizes the field and pre-parses the value.
func (c *FilterCondition) init() error {
	field, ok := fieldAliases[c.Field]
	if !ok {
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}
	c.Field = field

	switch c.Field {
	case FieldID, FieldName, FieldAvatar:
		switch c.Operator {
		case FilterOpEqual, FilterOpNotEqual, FilterOpContains, FilterOpRegex:
		default:
			return fmt.Errorf("operator %s not supported for %s", c.Operator, c.Field)
		}
	case FieldX, FieldY:
		n, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("invalid %s value: %s", c.Field, c.Value)
		}
		c.intVal = n
	case FieldAge:
		d, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid age value: %w", err)
		}
		c.age = d
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// Match tests if a session matches every condition, with ages taken at now.
func (f *FilterExpr) Match(s model.SessionInfo, now time.Time) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(s, now) {
			return false
		}
	}
	return true
}

// Match tests if a session matches this single condition.
func (c *FilterCondition) Match(s model.SessionInfo, now time.Time) bool {
	switch c.Field {
	case FieldID:
		return c.matchString(string(s.Bubble.Identity))
	case FieldName:
		return c.matchString(s.Bubble.DisplayName)
	case FieldAvatar:
		return c.matchString(s.Bubble.AvatarURL)
	case FieldX:
		return c.matchOrdered(compareInt(s.Position.X, c.intVal))
	case FieldY:
		return c.matchOrdered(compareInt(s.Position.Y, c.intVal))
	case FieldAge:
		return c.matchOrdered(compareInt64(int64(now.Sub(s.CreatedAt)), int64(c.age)))
	default:
		return false
	}
}

func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

// matchOrdered applies the operator to a three-way comparison result.
func (c *FilterCondition) matchOrdered(cmp int) bool {
	switch c.Operator {
	case FilterOpEqual:
		return cmp == 0
	case FilterOpNotEqual:
		return cmp != 0
	case FilterOpGreater:
		return cmp > 0
	case FilterOpLess:
		return cmp < 0
	case FilterOpGreaterEq:
		return cmp >= 0
	case FilterOpLessEq:
		return cmp <= 0
	default:
		return false
	}
}

func compareInt(a, b int) int {
	return compareInt64(int64(a), int64(b))
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FilterWithExpr filters sessions using a filter expression.
func FilterWithExpr(sessions []model.SessionInfo, expr *FilterExpr, now time.Time) []model.SessionInfo {
	if expr == nil || len(expr.Conditions) == 0 {
		return sessions
	}

	result := make([]model.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		if expr.Match(s, now) {
			result = append(result, s)
		}
	}
	return result
}
