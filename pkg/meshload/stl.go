package meshload

import (
	"github.com/golang/geo/r3"
	"github.com/hschendel/stl"

	"github.com/sitegrid/sitegrid/pkg/geometry"
)

// readSTL reads ASCII and binary STL. Shared triangle corners are kept as
// duplicates; containment only needs presence.
func readSTL(path string) ([]geometry.Vertex, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vertices := make([]geometry.Vertex, 0, len(solid.Triangles)*3)
	for _, tri := range solid.Triangles {
		for _, v := range tri.Vertices {
			vertices = append(vertices, r3.Vector{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])})
		}
	}
	return vertices, nil
}
