package geohash

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// naiveIsIn is the pairwise prefix check Matcher must agree with.
func naiveIsIn(points, queries []string) []bool {
	out := make([]bool, len(points))
	for i, p := range points {
		for _, q := range queries {
			if strings.HasPrefix(p, q) || strings.HasPrefix(q, p) {
				out[i] = true
				break
			}
		}
	}
	return out
}

func TestIsIn(t *testing.T) {
	queries := []string{"9q8y", "dr5reg", "gcpv"}

	testCases := []struct {
		name     string
		point    string
		expected bool
	}{
		{"descendant of query", "9q8yyk", true},
		{"equal to query", "dr5reg", true},
		{"ancestor of query", "dr5", true},
		{"sibling of query", "9q8z", false},
		{"unrelated", "xn76u", false},
		{"whole world", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, []bool{tc.expected}, IsIn([]string{tc.point}, queries))
		})
	}

	assert.Equal(t, []bool{false, false}, IsIn([]string{"9q8yyk", ""}, nil))
}

func TestIsInReflexive(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	for i := 0; i < 200; i++ {
		code, err := Encode(r.Float64()*180-90, r.Float64()*360-180, r.Intn(MaxPrecision+1))
		require.NoError(t, err)
		assert.Equal(t, []bool{true}, IsIn([]string{code}, []string{code}), code)
	}
}

func TestMatcherAgreesWithNaive(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	randomCode := func() string {
		n := r.Intn(5)
		var sb strings.Builder
		for j := 0; j < n; j++ {
			// small sub-alphabet so prefixes collide often
			sb.WriteByte(Alphabet[r.Intn(4)])
		}
		return sb.String()
	}

	for i := 0; i < 300; i++ {
		var points, queries []string
		for j := r.Intn(20); j > 0; j-- {
			points = append(points, randomCode())
		}
		for j := r.Intn(20); j > 0; j-- {
			queries = append(queries, randomCode())
		}
		assert.Equal(t, naiveIsIn(points, queries), IsIn(points, queries), "points=%v queries=%v", points, queries)
	}
}

func TestMatcherDedup(t *testing.T) {
	m := NewMatcher([]string{"9q8y", "9q8y", "dr5"})
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Match("9q8yyk"))
	assert.False(t, m.Match("9q9"))
}

func TestIsInCircle(t *testing.T) {
	sf, _ := Encode(37.7749, -122.4194, 8)
	oakland, _ := Encode(37.8044, -122.2712, 8)
	coarse, _ := Encode(37.7749, -122.4194, 4)

	got, err := IsInCircle([]string{sf, oakland, coarse}, 37.7749, -122.4194, 1000, 6)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, got)

	_, err = IsInCircle([]string{sf}, 37.7749, -122.4194, -5, 6)
	assert.Error(t, err)
}

func BenchmarkIsIn(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	points := make([]string, 10000)
	for i := range points {
		points[i], _ = Encode(r.Float64()*20+30, r.Float64()*40-120, 9)
	}
	seq, _ := CreateCircle(37.7749, -122.4194, 20000, 6)
	var queries []string
	for code := range seq {
		queries = append(queries, code)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = IsIn(points, queries)
	}
}
