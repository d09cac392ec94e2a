package meshload

import (
	"github.com/golang/geo/r3"
	"github.com/udhos/gwob"

	"github.com/sitegrid/sitegrid/pkg/geometry"
)

var objOptions = &gwob.ObjParserOptions{
	LogStats: false,
	Logger:   func(string) {},
}

// readOBJ returns the positions of a Wavefront OBJ file as indexed by its
// faces. Vertices that no face references are not part of the mesh and are
// skipped.
func readOBJ(path string) ([]geometry.Vertex, error) {
	obj, err := gwob.NewObjFromFile(path, objOptions)
	if err != nil {
		return nil, err
	}
	stride := obj.StrideSize / 4
	if stride == 0 {
		return nil, nil
	}
	offset := obj.StrideOffsetPosition / 4
	vertices := make([]geometry.Vertex, 0, len(obj.Coord)/stride)
	for i := 0; i+offset+2 < len(obj.Coord); i += stride {
		p := obj.Coord[i+offset:]
		vertices = append(vertices, r3.Vector{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})
	}
	return vertices, nil
}
