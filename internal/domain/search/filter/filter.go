package filter

import (
	"fmt"
	"strings"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured tag filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	for name, group := range map[string][]Condition{"must": must, "should": should, "must_not": mustNot} {
		if len(group) > MaxConditionsPerGroup {
			return Expression{}, fmt.Errorf("too many %s conditions (max %d)", name, MaxConditionsPerGroup)
		}
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// ContentTypes builds an expression matching any of the given content types.
// Empty input yields an empty expression.
func ContentTypes(field string, types ...string) Expression {
	var should []Condition
	for _, t := range types {
		if t == "" {
			continue
		}
		should = append(should, Condition{key: field, match: t})
	}
	return Expression{should: should}
}

// And returns a copy of e with extra must conditions appended.
func (e Expression) And(conds ...Condition) Expression {
	must := make([]Condition, 0, len(e.must)+len(conds))
	must = append(must, e.must...)
	must = append(must, conds...)
	return Expression{must: must, should: e.should, mustNot: e.mustNot}
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Matches evaluates the expression against a record's fields.
// Tag comparison is case-insensitive, matching the FT index TAG semantics.
func (e Expression) Matches(fields map[string]string) bool {
	for _, c := range e.must {
		if !c.matches(fields) {
			return false
		}
	}
	if len(e.should) > 0 {
		hit := false
		for _, c := range e.should {
			if c.matches(fields) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.matches(fields) {
			return false
		}
	}
	return true
}

// Condition is a single exact tag match clause.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

func (c Condition) matches(fields map[string]string) bool {
	v, ok := fields[c.key]
	return ok && strings.EqualFold(v, c.match)
}
