// Package meshload decodes building model files into an axis-aligned
// bounding box and the list of vertex positions used for shape-aware grids.
package meshload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sitegrid/sitegrid/pkg/geometry"
)

var ErrParse = errors.New("model geometry could not be parsed")

// ParseError carries the file and format of a failed decode.
type ParseError struct {
	Path   string
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s model %q: %v", e.Format, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

const (
	FormatOBJ  = "obj"
	FormatSTL  = "stl"
	FormatGLTF = "gltf"
	FormatGLB  = "glb"
)

// DefaultBounds is used for models registered without a file.
var DefaultBounds = geometry.BoundingBox{MinX: 0, MaxX: 170, MinY: 0, MaxY: 12, MinZ: 0, MaxZ: 13}

type Geometry struct {
	Bounds   geometry.BoundingBox
	Vertices []geometry.Vertex
}

type decoder func(path string) ([]geometry.Vertex, error)

var decoders = map[string]decoder{
	FormatOBJ:  readOBJ,
	FormatSTL:  readSTL,
	FormatGLTF: readGLTF,
	FormatGLB:  readGLTF,
}

// NormalizeFormat lower-cases format, falling back to the file extension
// when format is empty.
func NormalizeFormat(path, format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "" {
		f = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	return f
}

func Supported(format string) bool {
	_, ok := decoders[NormalizeFormat("", format)]
	return ok
}

// Load decodes the file at path. Every failure, including an unknown format
// or a file with no finite vertices, is returned as a *ParseError.
func Load(path, format string) (Geometry, error) {
	f := NormalizeFormat(path, format)
	dec, ok := decoders[f]
	if !ok {
		return Geometry{}, &ParseError{Path: path, Format: f, Err: fmt.Errorf("unsupported format %q", f)}
	}

	vertices, err := dec(path)
	if err != nil {
		return Geometry{}, &ParseError{Path: path, Format: f, Err: err}
	}
	bounds, ok := geometry.BoundsOf(vertices)
	if !ok {
		return Geometry{}, &ParseError{Path: path, Format: f, Err: errors.New("no vertices")}
	}
	return Geometry{Bounds: bounds, Vertices: vertices}, nil
}
