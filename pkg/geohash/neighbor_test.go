package geohash

import (
	"errors"
	"math/rand"
	"testing"

	refgeohash "github.com/mmcloughlin/geohash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeighbors(t *testing.T) {
	ns, err := Neighbors("bbccd")
	require.NoError(t, err)
	assert.Equal(t, []string{"bbccd", "bbccf", "bbccc", "bbcc9", "bbcc3", "bbcc6", "bbcc7", "bbcce", "bbccg"}, ns)
}

func TestNeighborsMatchReference(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		// stay clear of the poles and the antimeridian
		lat := r.Float64()*160 - 80
		lon := r.Float64()*340 - 170
		precision := r.Intn(MaxPrecision-2) + 3

		code, err := Encode(lat, lon, precision)
		require.NoError(t, err)
		ns, err := Neighbors(code)
		require.NoError(t, err)
		require.Len(t, ns, 9)
		assert.Equal(t, code, ns[0])
		assert.ElementsMatch(t, refgeohash.Neighbors(code), ns[1:], code)
	}
}

func TestNeighborsAtGridEdge(t *testing.T) {
	// north of the top row and west of the first column come from the opposite edge
	ns, err := Neighbors("u")
	require.NoError(t, err)
	assert.Equal(t, []string{"u", "h", "5", "g", "e", "s", "t", "v", "j"}, ns)

	ns, err = Neighbors("0")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "2", "r", "p", "z", "b", "c", "1", "3"}, ns)
}

func TestNeighborsInvalid(t *testing.T) {
	_, err := Neighbors("")
	assert.True(t, errors.Is(err, ErrInvalidPrecision))

	_, err = Neighbors("bbca")
	assert.True(t, errors.Is(err, ErrInvalidCharacter))
}

func TestManyNeighbors(t *testing.T) {
	set, err := ManyNeighbors([]string{"bbccd", "bbccf", "bbccd"})
	require.NoError(t, err)

	first, _ := Neighbors("bbccd")
	second, _ := Neighbors("bbccf")
	expected := map[string]bool{}
	for _, c := range append(first, second...) {
		expected[c] = true
	}

	assert.Len(t, set, len(expected))
	assert.IsIncreasing(t, set)
	for _, c := range set {
		assert.True(t, expected[c], c)
	}

	empty, err := ManyNeighbors(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ManyNeighbors([]string{"bbccd", ""})
	assert.Error(t, err)
}
