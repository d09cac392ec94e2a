// Package grid partitions a model's bounding volume into a regular lattice of
// addressable cells.
//
// Shape-aware generation keeps a cell only when at least one mesh vertex lies
// inside its closed box. This is a proxy for real mesh/voxel intersection: a
// cell crossed by a mesh edge whose endpoints are both outside it is dropped.
// Swapping in a box/triangle test only requires replacing occupied.
package grid

import (
	"errors"
	"fmt"

	"github.com/sitegrid/sitegrid/pkg/geometry"
)

var (
	ErrInvalidSections = errors.New("sections must be > 0")
	ErrTooManyCells    = errors.New("grid exceeds cell limit")
)

// CellSpec describes one generated cell before it is persisted.
type CellSpec struct {
	XIndex        int
	YIndex        int
	ZIndex        int
	Bounds        geometry.BoundingBox
	Footprint     geometry.Footprint
	TotalCapacity int
}

func ValidateSections(sx, sy, sz int) error {
	if sx <= 0 || sy <= 0 || sz <= 0 {
		return fmt.Errorf("%w: got %dx%dx%d", ErrInvalidSections, sx, sy, sz)
	}
	return nil
}

// CellCount is the size of the full lattice.
func CellCount(sx, sy, sz int) int64 {
	return int64(sx) * int64(sy) * int64(sz)
}

// Generate returns the cells of an sx*sy*sz lattice over bounds in i, j, k
// order (x outermost, z innermost). With a non-empty vertex list only the
// cells containing at least one vertex are returned.
func Generate(bounds geometry.BoundingBox, sx, sy, sz, defaultCapacity int, vertices []geometry.Vertex) ([]CellSpec, error) {
	if err := ValidateSections(sx, sy, sz); err != nil {
		return nil, err
	}

	dx := (bounds.MaxX - bounds.MinX) / float64(sx)
	dy := (bounds.MaxY - bounds.MinY) / float64(sy)
	dz := (bounds.MaxZ - bounds.MinZ) / float64(sz)

	shapeAware := len(vertices) > 0
	capHint := CellCount(sx, sy, sz)
	if shapeAware && int64(len(vertices)) < capHint {
		capHint = int64(len(vertices))
	}
	cells := make([]CellSpec, 0, capHint)

	for i := 0; i < sx; i++ {
		for j := 0; j < sy; j++ {
			for k := 0; k < sz; k++ {
				minX := bounds.MinX + float64(i)*dx
				minY := bounds.MinY + float64(j)*dy
				minZ := bounds.MinZ + float64(k)*dz
				box := geometry.BoundingBox{
					MinX: minX, MaxX: minX + dx,
					MinY: minY, MaxY: minY + dy,
					MinZ: minZ, MaxZ: minZ + dz,
				}
				if shapeAware && !occupied(box, vertices) {
					continue
				}
				cells = append(cells, CellSpec{
					XIndex:        i,
					YIndex:        j,
					ZIndex:        k,
					Bounds:        box,
					Footprint:     box.Footprint(),
					TotalCapacity: defaultCapacity,
				})
			}
		}
	}
	return cells, nil
}

func occupied(box geometry.BoundingBox, vertices []geometry.Vertex) bool {
	for _, v := range vertices {
		if box.Contains(v) {
			return true
		}
	}
	return false
}
