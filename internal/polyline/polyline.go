// Package polyline encodes and decodes coordinate sequences using the
// signed-varint delta format shared by routing APIs (5-bit groups with a
// continuation bit, offset by 63 into printable ASCII).
package polyline

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Point is a single decoded coordinate.
type Point struct {
	Lat float64
	Lng float64
}

// Coordinates are scaled by 1e5 and rounded before delta encoding.
const precision = 1e5

var (
	// ErrTruncated reports an encoded chunk cut off mid-varint.
	ErrTruncated = errors.New("polyline: truncated varint group")
	// ErrOddDeltaCount reports a latitude delta without its longitude.
	ErrOddDeltaCount = errors.New("polyline: odd number of decoded deltas")
)

// Encode returns the encoded form of points. Encoding an empty slice
// yields the empty string.
func Encode(points []Point) string {
	var sb strings.Builder

	prevLat, prevLng := int64(0), int64(0)
	for _, p := range points {
		lat := int64(math.Round(p.Lat * precision))
		lng := int64(math.Round(p.Lng * precision))

		writeVarint(&sb, lat-prevLat)
		writeVarint(&sb, lng-prevLng)

		prevLat, prevLng = lat, lng
	}

	return sb.String()
}

// Decode parses an encoded polyline back into coordinates. It is the
// exact inverse of Encode for any valid input.
func Decode(encoded string) ([]Point, error) {
	var deltas []int64

	var value uint64
	var shift uint
	inGroup := false

	for i := 0; i < len(encoded); i++ {
		c := int64(encoded[i]) - 63
		if c < 0 || c > 63 {
			return nil, fmt.Errorf("polyline: invalid character %q at offset %d", encoded[i], i)
		}

		value |= uint64(c&0x1f) << shift
		shift += 5
		inGroup = true

		if c&0x20 == 0 {
			// Zig-zag decode the completed group.
			d := int64(value >> 1)
			if value&1 != 0 {
				d = ^d
			}
			deltas = append(deltas, d)
			value, shift, inGroup = 0, 0, false
		}
	}

	if inGroup {
		return nil, ErrTruncated
	}
	if len(deltas)%2 != 0 {
		return nil, ErrOddDeltaCount
	}

	points := make([]Point, 0, len(deltas)/2)
	lat, lng := int64(0), int64(0)
	for i := 0; i < len(deltas); i += 2 {
		lat += deltas[i]
		lng += deltas[i+1]
		points = append(points, Point{
			Lat: float64(lat) / precision,
			Lng: float64(lng) / precision,
		})
	}

	return points, nil
}

func writeVarint(sb *strings.Builder, v int64) {
	// Zig-zag encode so small negative deltas stay short.
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}

	for u >= 0x20 {
		sb.WriteByte(byte(0x20|(u&0x1f)) + 63)
		u >>= 5
	}
	sb.WriteByte(byte(u) + 63)
}
