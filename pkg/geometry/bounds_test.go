package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBoxValidate(t *testing.T) {
	tests := []struct {
		name string
		box  BoundingBox
		ok   bool
	}{
		{"unit", BoundingBox{0, 1, 0, 1, 0, 1}, true},
		{"degenerate", BoundingBox{0, 0, 0, 1, 0, 1}, true},
		{"inverted x", BoundingBox{2, 1, 0, 1, 0, 1}, false},
		{"inverted z", BoundingBox{0, 1, 0, 1, 3, 1}, false},
		{"nan", BoundingBox{math.NaN(), 1, 0, 1, 0, 1}, false},
		{"inf", BoundingBox{0, math.Inf(1), 0, 1, 0, 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidBounds)
			}
		})
	}
}

func TestContainsIsClosed(t *testing.T) {
	box := BoundingBox{0, 5, 0, 5, 0, 5}

	assert.True(t, box.Contains(Vertex{X: 0, Y: 0, Z: 0}))
	assert.True(t, box.Contains(Vertex{X: 5, Y: 5, Z: 5}))
	assert.True(t, box.Contains(Vertex{X: 2.5, Y: 5, Z: 0}))
	assert.False(t, box.Contains(Vertex{X: 5.0001, Y: 1, Z: 1}))
	assert.False(t, box.Contains(Vertex{X: math.NaN(), Y: 1, Z: 1}))
	assert.False(t, box.Contains(Vertex{X: 1, Y: math.Inf(-1), Z: 1}))
}

func TestFootprintOrderAndWKT(t *testing.T) {
	box := BoundingBox{MinX: 1, MaxX: 3, MinY: 2, MaxY: 4, MinZ: 0, MaxZ: 9}
	fp := box.Footprint()

	assert.Equal(t, []float64{1, 2, 3, 2, 3, 4, 1, 4}, fp.Coords())
	assert.Equal(t, "POLYGON((1 2, 3 2, 3 4, 1 4, 1 2))", fp.WKT())

	back, err := FootprintFromCoords(fp.Coords())
	require.NoError(t, err)
	assert.Equal(t, fp, back)

	_, err = FootprintFromCoords([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestBoundsOf(t *testing.T) {
	_, ok := BoundsOf(nil)
	assert.False(t, ok)

	box, ok := BoundsOf([]Vertex{
		{X: 1, Y: -2, Z: 3},
		{X: -1, Y: 4, Z: 0},
		{X: math.NaN(), Y: 100, Z: 100},
	})
	require.True(t, ok)
	assert.Equal(t, BoundingBox{MinX: -1, MaxX: 1, MinY: -2, MaxY: 4, MinZ: 0, MaxZ: 3}, box)
	assert.InDelta(t, 2*6*3, box.Volume(), 1e-9)
}
