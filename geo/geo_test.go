package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePoint(t *testing.T) {
	tests := []struct {
		name    string
		lng     float64
		lat     float64
		wantErr bool
	}{
		{"origin", 0, 0, false},
		{"extremes", 180, 90, false},
		{"negative extremes", -180, -90, false},
		{"longitude too big", 180.0001, 0, true},
		{"longitude too small", -181, 0, true},
		{"latitude too big", 0, 90.5, true},
		{"latitude too small", 0, -91, true},
		{"NaN longitude", math.NaN(), 0, true},
		{"Inf latitude", 0, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePoint(tt.lng, tt.lat)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidGeometry)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRing(t *testing.T) {
	closed := []Point{{-0.005, -0.005}, {0.005, -0.005}, {0.005, 0.005}, {-0.005, 0.005}, {-0.005, -0.005}}
	assert.NoError(t, ValidateRing(closed))

	t.Run("too few points", func(t *testing.T) {
		err := ValidateRing(closed[:3])
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("unclosed ring rejected regardless of point count", func(t *testing.T) {
		open := []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0.1, 0}}
		err := ValidateRing(open)
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("no auto-closing", func(t *testing.T) {
		// Even a 5th point that nearly matches must not pass.
		almost := []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 1e-9}}
		err := ValidateRing(almost)
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("out of range vertex", func(t *testing.T) {
		bad := []Point{{0, 0}, {200, 0}, {1, 1}, {0, 0}}
		err := ValidateRing(bad)
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})
}

func TestHaversine(t *testing.T) {
	// (0,0) -> (0.001, 0.001) is roughly 157m.
	d := Haversine(0, 0, 0.001, 0.001)
	assert.InDelta(t, 157.2, d, 1.0)

	// (0,0) -> (0.1, 0.1) is roughly 15.7km.
	d = Haversine(0, 0, 0.1, 0.1)
	assert.InDelta(t, 15725, d, 50)

	// Symmetry and identity.
	assert.Equal(t, 0.0, Haversine(12.5, -33.2, 12.5, -33.2))
	assert.InDelta(t, Haversine(10, 20, 30, 40), Haversine(30, 40, 10, 20), 1e-9)

	// One degree of latitude is ~111.2km anywhere.
	d = Haversine(74, 40, 74, 41)
	assert.InDelta(t, 111195, d, 100)
}

func TestPointInRing(t *testing.T) {
	square := []Point{{-0.005, -0.005}, {0.005, -0.005}, {0.005, 0.005}, {-0.005, 0.005}, {-0.005, -0.005}}

	assert.True(t, PointInRing(0, 0, square))
	assert.True(t, PointInRing(0.001, 0.001, square))
	assert.False(t, PointInRing(0.1, 0.1, square))
	assert.False(t, PointInRing(0.0051, 0, square))

	t.Run("boundary counts as inside", func(t *testing.T) {
		assert.True(t, PointInRing(0.005, 0, square), "edge point")
		assert.True(t, PointInRing(0.005, 0.005, square), "vertex")
		assert.True(t, PointInRing(0, -0.005, square), "bottom edge")
	})

	t.Run("concave ring", func(t *testing.T) {
		// L-shaped ring: the notch at the top right is outside.
		l := []Point{{0, 0}, {4, 0}, {4, 2}, {2, 2}, {2, 4}, {0, 4}, {0, 0}}
		assert.True(t, PointInRing(1, 1, l))
		assert.True(t, PointInRing(1, 3, l))
		assert.False(t, PointInRing(3, 3, l))
	})
}
