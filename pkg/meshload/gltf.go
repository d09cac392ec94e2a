package meshload

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/sitegrid/sitegrid/pkg/geometry"
)

// readGLTF reads the POSITION accessor of every mesh primitive in a .gltf or
// .glb document. Node transforms are not applied; exports from BIM tools
// place geometry in world coordinates.
func readGLTF(path string) ([]geometry.Vertex, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}

	var vertices []geometry.Vertex
	for mi, mesh := range doc.Meshes {
		for pi, prim := range mesh.Primitives {
			idx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				continue
			}
			if int(idx) >= len(doc.Accessors) {
				return nil, fmt.Errorf("mesh %d primitive %d: position accessor %d out of range", mi, pi, idx)
			}
			positions, err := modeler.ReadPosition(doc, doc.Accessors[idx], nil)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			for _, p := range positions {
				vertices = append(vertices, r3.Vector{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])})
			}
		}
	}
	return vertices, nil
}
