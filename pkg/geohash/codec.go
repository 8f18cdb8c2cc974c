// Package geohash implements the base-32 interleaved-bit grid code: encoding
// points, decoding cells to boxes, grid index arithmetic, neighbor lookup,
// box and circle coverings, prefix membership and covering-set compression.
//
// Every function is pure and safe for concurrent use.
package geohash

import (
	"errors"
	"fmt"

	"github.com/kass/go-geohash/pkg/models"
)

// Alphabet is the geohash base-32 symbol set.
const Alphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// MaxPrecision is the longest code the grid-index operations accept: 12
// characters pack into 60 bits of a uint64.
const MaxPrecision = 12

const bitsPerChar = 5

var (
	ErrInvalidCharacter = errors.New("invalid geohash character")
	ErrInvalidPrecision = errors.New("invalid geohash precision")
	ErrInvalidAccuracy  = errors.New("accuracy must be in (0, 1]")
	ErrInvalidRadius    = errors.New("radius must be a non-negative number")
	ErrDegenerateCell   = errors.New("cell has no usable metric extent")
)

// alphabet index per byte, -1 for bytes outside the alphabet
var decodeMap [256]int8

func init() {
	for i := range decodeMap {
		decodeMap[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		decodeMap[Alphabet[i]] = int8(i)
	}
}

func charValue(code string, i int) (uint64, error) {
	v := decodeMap[code[i]]
	if v < 0 {
		return 0, fmt.Errorf("%w: %q at position %d of %q", ErrInvalidCharacter, code[i], i, code)
	}
	return uint64(v), nil
}

// Validate checks that every character of code belongs to the alphabet.
func Validate(code string) error {
	for i := 0; i < len(code); i++ {
		if _, err := charValue(code, i); err != nil {
			return err
		}
	}
	return nil
}

// Encode bisects the world box precision*5 times, longitude first, and packs
// each run of 5 bits into one character. Coordinates are not validated:
// out-of-range values end up in the nearest edge cell.
func Encode(lat, lon float64, precision int) (string, error) {
	if precision < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidPrecision, precision)
	}
	return encode(lat, lon, precision), nil
}

// encode is Encode for a precision already known to be non-negative.
func encode(lat, lon float64, precision int) string {
	latMin, latMax := -90.0, 90.0
	lonMin, lonMax := -180.0, 180.0
	code := make([]byte, 0, precision)
	nbits := precision * bitsPerChar
	ch := 0

	for i := 0; i < nbits; i++ {
		ch <<= 1
		if i%2 == 0 {
			mid := (lonMin + lonMax) / 2
			if mid <= lon {
				ch |= 1
				lonMin = mid
			} else {
				lonMax = mid
			}
		} else {
			mid := (latMin + latMax) / 2
			if mid <= lat {
				ch |= 1
				latMin = mid
			} else {
				latMax = mid
			}
		}
		if i%bitsPerChar == bitsPerChar-1 {
			code = append(code, Alphabet[ch])
			ch = 0
		}
	}

	return string(code)
}

// Decode returns the cell box of code. The empty code is the whole world.
func Decode(code string) (models.BoundingBox, error) {
	latMin, latMax := -90.0, 90.0
	lonMin, lonMax := -180.0, 180.0
	bit := 0

	for i := 0; i < len(code); i++ {
		v, err := charValue(code, i)
		if err != nil {
			return models.BoundingBox{}, err
		}
		for j := bitsPerChar - 1; j >= 0; j-- {
			set := (v>>uint(j))&1 == 1
			if bit%2 == 0 {
				mid := (lonMin + lonMax) / 2
				if set {
					lonMin = mid
				} else {
					lonMax = mid
				}
			} else {
				mid := (latMin + latMax) / 2
				if set {
					latMin = mid
				} else {
					latMax = mid
				}
			}
			bit++
		}
	}

	return models.NewBoundingBox(latMin, lonMin, latMax, lonMax), nil
}

// DecodeCell decodes code into a models.Cell.
func DecodeCell(code string) (models.Cell, error) {
	box, err := Decode(code)
	if err != nil {
		return models.Cell{}, err
	}
	return models.Cell{Code: code, Box: box}, nil
}

func checkPrecision(precision int) error {
	if precision < 0 || precision > MaxPrecision {
		return fmt.Errorf("%w: %d (supported 0..%d)", ErrInvalidPrecision, precision, MaxPrecision)
	}
	return nil
}

// packed returns the precision*5 bit value of code.
func packed(code string) (uint64, error) {
	if err := checkPrecision(len(code)); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < len(code); i++ {
		c, err := charValue(code, i)
		if err != nil {
			return 0, err
		}
		v = v<<bitsPerChar | c
	}
	return v, nil
}

// SplitBits returns the row (latitude) and column (longitude) grid index of
// code. Longitude takes the even bit positions counted from the most
// significant bit, latitude the odd ones.
func SplitBits(code string) (latIdx, lonIdx int64, err error) {
	v, err := packed(code)
	if err != nil {
		return 0, 0, err
	}

	for i := len(code)*bitsPerChar - 1; i >= 0; i-- {
		lonIdx = lonIdx<<1 | int64((v>>uint(i))&1)
		i--
		if i < 0 {
			break
		}
		latIdx = latIdx<<1 | int64((v>>uint(i))&1)
	}
	return latIdx, lonIdx, nil
}

// JoinBits is the inverse of SplitBits. Indices outside the grid are reduced
// to their low bits, so stepping past a pole or the antimeridian lands on the
// opposite edge of the grid.
func JoinBits(latIdx, lonIdx int64, precision int) (string, error) {
	if err := checkPrecision(precision); err != nil {
		return "", err
	}
	return joinBits(latIdx, lonIdx, precision), nil
}

func joinBits(latIdx, lonIdx int64, precision int) string {
	nbits := precision * bitsPerChar
	var v uint64

	i := nbits/2 - 1
	if nbits%2 == 1 {
		// longitude carries the extra bit, so every pair after it starts with latitude
		v = uint64((lonIdx >> uint(i+1)) & 1)
		for ; i >= 0; i-- {
			v = v<<1 | uint64((latIdx>>uint(i))&1)
			v = v<<1 | uint64((lonIdx>>uint(i))&1)
		}
	} else {
		for ; i >= 0; i-- {
			v = v<<1 | uint64((lonIdx>>uint(i))&1)
			v = v<<1 | uint64((latIdx>>uint(i))&1)
		}
	}

	code := make([]byte, precision)
	for j := 0; j < precision; j++ {
		shift := uint(nbits - (j+1)*bitsPerChar)
		code[j] = Alphabet[(v>>shift)&0x1f]
	}
	return string(code)
}

// parent drops the last character; the empty code is its own parent.
func parent(code string) string {
	if code == "" {
		return code
	}
	return code[:len(code)-1]
}
