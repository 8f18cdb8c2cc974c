package geohash

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/kass/go-geohash/pkg/models"
	refgeohash "github.com/mmcloughlin/geohash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	testCases := []struct {
		name      string
		lat, lon  float64
		precision int
		expected  string
	}{
		{"San Francisco", 37.7749, -122.4194, 6, "9q8yyk"},
		{"New York", 40.7128, -74.0060, 6, "dr5reg"},
		{"London", 51.5074, -0.1278, 6, "gcpvj0"},
		{"Tokyo", 35.681236, 139.767125, 5, "xn76u"},
		{"zero precision", 37.7749, -122.4194, 0, ""},
		{"origin", 0, 0, 1, "s"},
		{"south west corner", -90, -180, 3, "000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, err := Encode(tc.lat, tc.lon, tc.precision)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, code)
		})
	}
}

func TestEncodeOutOfRange(t *testing.T) {
	// no validation: coordinates past the edge land in the edge cell
	code, err := Encode(95, 200, 2)
	require.NoError(t, err)
	edge, err := Encode(89.9, 179.9, 2)
	require.NoError(t, err)
	assert.Equal(t, edge, code)

	_, err = Encode(0, 0, -1)
	assert.True(t, errors.Is(err, ErrInvalidPrecision))
}

func TestEncodeMatchesReference(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 2000; i++ {
		lat := r.Float64()*180 - 90
		lon := r.Float64()*360 - 180
		precision := r.Intn(MaxPrecision) + 1

		code, err := Encode(lat, lon, precision)
		require.NoError(t, err)
		assert.Equal(t, refgeohash.EncodeWithPrecision(lat, lon, uint(precision)), code,
			"lat=%v lon=%v precision=%d", lat, lon, precision)
	}
}

func TestDecode(t *testing.T) {
	box, err := Decode("9q8yyk")
	require.NoError(t, err)
	assert.Equal(t, models.NewBoundingBox(37.77099609375, -122.420654296875, 37.7764892578125, -122.40966796875), box)

	world, err := Decode("")
	require.NoError(t, err)
	assert.Equal(t, models.World(), world)

	// precision beyond the grid-index limit still decodes
	long := "9q8yyk8ytpxr1b"
	box, err = Decode(long)
	require.NoError(t, err)
	assert.Less(t, box.Height(), 1e-6)
}

func TestDecodeInvalidCharacter(t *testing.T) {
	for _, code := range []string{"9q8yya", "I", "9Q8", "9q8 y", "ü"} {
		t.Run(code, func(t *testing.T) {
			_, err := Decode(code)
			assert.True(t, errors.Is(err, ErrInvalidCharacter), "got %v", err)

			_, _, err = SplitBits(code)
			assert.True(t, errors.Is(err, ErrInvalidCharacter), "got %v", err)
		})
	}
}

func TestDecodeMatchesReference(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		precision := r.Intn(MaxPrecision) + 1
		var sb strings.Builder
		for j := 0; j < precision; j++ {
			sb.WriteByte(Alphabet[r.Intn(len(Alphabet))])
		}
		code := sb.String()

		box, err := Decode(code)
		require.NoError(t, err)
		ref := refgeohash.BoundingBox(code)
		assert.InDelta(t, ref.MinLat, box.BottomLeft.Lat, 1e-9, code)
		assert.InDelta(t, ref.MaxLat, box.TopRight.Lat, 1e-9, code)
		assert.InDelta(t, ref.MinLng, box.BottomLeft.Lon, 1e-9, code)
		assert.InDelta(t, ref.MaxLng, box.TopRight.Lon, 1e-9, code)
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 5000; i++ {
		loc := models.Location{Lat: r.Float64()*180 - 90, Lon: r.Float64()*360 - 180}
		precision := r.Intn(MaxPrecision) + 1

		code, err := Encode(loc.Lat, loc.Lon, precision)
		require.NoError(t, err)
		require.Len(t, code, precision)

		box, err := Decode(code)
		require.NoError(t, err)
		assert.True(t, box.Contains(loc), "%s does not contain %+v", code, loc)
		assert.Less(t, box.BottomLeft.Lat, box.TopRight.Lat)
		assert.Less(t, box.BottomLeft.Lon, box.TopRight.Lon)
	}
}

func TestSplitBits(t *testing.T) {
	testCases := []struct {
		code     string
		lat, lon int64
	}{
		{"", 0, 0},
		{"0", 0, 0},
		{"u", 3, 4},
		{"z", 3, 7},
		{"9q8yyk", 23260, 5241},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			lat, lon, err := SplitBits(tc.code)
			require.NoError(t, err)
			assert.Equal(t, tc.lat, lat)
			assert.Equal(t, tc.lon, lon)

			code, err := JoinBits(lat, lon, len(tc.code))
			require.NoError(t, err)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestJoinSplitBijection(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for precision := 0; precision <= MaxPrecision; precision++ {
		nbits := precision * 5
		latBits, lonBits := nbits/2, nbits-nbits/2
		for i := 0; i < 200; i++ {
			lat := r.Int63n(int64(1) << latBits)
			lon := r.Int63n(int64(1) << lonBits)

			code, err := JoinBits(lat, lon, precision)
			require.NoError(t, err)
			require.Len(t, code, precision)

			gotLat, gotLon, err := SplitBits(code)
			require.NoError(t, err)
			assert.Equal(t, lat, gotLat, "precision %d", precision)
			assert.Equal(t, lon, gotLon, "precision %d", precision)
		}
	}
}

func TestGridIndexPrecisionLimit(t *testing.T) {
	_, err := JoinBits(0, 0, MaxPrecision+1)
	assert.True(t, errors.Is(err, ErrInvalidPrecision))

	_, err = JoinBits(0, 0, -1)
	assert.True(t, errors.Is(err, ErrInvalidPrecision))

	_, _, err = SplitBits("9q8yyk8ytpxr1")
	assert.True(t, errors.Is(err, ErrInvalidPrecision))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(""))
	assert.NoError(t, Validate(Alphabet))
	assert.Error(t, Validate("abc"))
}

func BenchmarkEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Encode(37.7749, -122.4194, MaxPrecision)
	}
}

func BenchmarkDecode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = Decode("9q8yyk8ytpxr")
	}
}
