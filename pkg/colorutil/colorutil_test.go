package colorutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float64
		h, s, v float64
	}{
		{"black", 0, 0, 0, 0, 0, 0},
		{"white", 255, 255, 255, 0, 0, 255},
		{"red", 255, 0, 0, 0, 255, 255},
		{"green", 0, 255, 0, 60, 255, 255},
		{"blue", 0, 0, 255, 120, 255, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := RGBToHSV(tt.r, tt.g, tt.b)
			assert.InDelta(t, tt.h, h, 1e-9)
			assert.InDelta(t, tt.s, s, 1e-9)
			assert.InDelta(t, tt.v, v, 1e-9)
		})
	}
}

func TestHSVTriplet(t *testing.T) {
	assert.Equal(t, Triplet{60, 255, 255}, HSVTriplet(Triplet{0, 255, 0}))
	assert.Equal(t, Triplet{0, 0, 128}, HSVTriplet(Triplet{128, 128, 128}))
}

func TestVec3(t *testing.T) {
	v := Triplet{10, 20, 30}.Vec()
	assert.Equal(t, Vec3{10, 20, 30}, v)
	assert.Equal(t, Vec3{9, 18, 27}, v.Sub(Vec3{1, 2, 3}))
	assert.Equal(t, []float64{10, 20, 30}, v.Slice())
}

func TestSpaceValid(t *testing.T) {
	assert.True(t, SpaceNative.Valid())
	assert.True(t, SpaceHSV.Valid())
	assert.False(t, Space("lab").Valid())
}
