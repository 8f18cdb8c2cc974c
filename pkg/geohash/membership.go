package geohash

import (
	"sort"
	"strings"
)

// Matcher answers prefix membership against a fixed set of query cells: a
// code matches when it equals, is an ancestor of, or is a descendant of any
// query code.
type Matcher struct {
	set    map[string]struct{}
	sorted []string
}

// NewMatcher indexes queries. The slice is not retained.
func NewMatcher(queries []string) *Matcher {
	m := &Matcher{set: make(map[string]struct{}, len(queries))}
	for _, q := range queries {
		if _, ok := m.set[q]; ok {
			continue
		}
		m.set[q] = struct{}{}
		m.sorted = append(m.sorted, q)
	}
	sort.Strings(m.sorted)
	return m
}

// Len is the number of distinct query codes.
func (m *Matcher) Len() int {
	return len(m.sorted)
}

// Match reports whether code is inside, equal to, or contains a query cell.
func (m *Matcher) Match(code string) bool {
	// a query code is a prefix of code (code lies inside a query cell)
	for i := 0; i <= len(code); i++ {
		if _, ok := m.set[code[:i]]; ok {
			return true
		}
	}
	// code is a prefix of a query code; all such codes sort right after code
	i := sort.SearchStrings(m.sorted, code)
	return i < len(m.sorted) && strings.HasPrefix(m.sorted[i], code)
}

// IsIn reports, per point code, whether it matches any of the query codes.
func IsIn(points, queries []string) []bool {
	m := NewMatcher(queries)
	result := make([]bool, len(points))
	for i, p := range points {
		result[i] = m.Match(p)
	}
	return result
}

// IsInCircle is IsIn against the CreateCircle covering of the circle.
func IsInCircle(points []string, lat, lon, radius float64, precision int) ([]bool, error) {
	seq, err := CreateCircle(lat, lon, radius, precision)
	if err != nil {
		return nil, err
	}
	var queries []string
	for code := range seq {
		queries = append(queries, code)
	}
	return IsIn(points, queries), nil
}
