package geometry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

var ErrInvalidBounds = errors.New("invalid bounding box")

// Vertex is a single mesh vertex position.
type Vertex = r3.Vector

// BoundingBox is an axis-aligned box. Min <= Max on every axis.
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
	MinZ float64 `json:"min_z"`
	MaxZ float64 `json:"max_z"`
}

func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.MinX, b.MaxX, b.MinY, b.MaxY, b.MinZ, b.MaxZ} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrInvalidBounds)
		}
	}
	if b.MinX > b.MaxX || b.MinY > b.MaxY || b.MinZ > b.MaxZ {
		return fmt.Errorf("%w: min exceeds max", ErrInvalidBounds)
	}
	return nil
}

func (b BoundingBox) X() r1.Interval { return r1.Interval{Lo: b.MinX, Hi: b.MaxX} }
func (b BoundingBox) Y() r1.Interval { return r1.Interval{Lo: b.MinY, Hi: b.MaxY} }
func (b BoundingBox) Z() r1.Interval { return r1.Interval{Lo: b.MinZ, Hi: b.MaxZ} }

// Contains reports whether v lies inside the closed box. Vertices with
// non-finite coordinates are never contained.
func (b BoundingBox) Contains(v Vertex) bool {
	if !finite(v) {
		return false
	}
	return b.X().Contains(v.X) && b.Y().Contains(v.Y) && b.Z().Contains(v.Z)
}

// ContainsBox reports whether o lies entirely within b, with tolerance eps.
func (b BoundingBox) ContainsBox(o BoundingBox, eps float64) bool {
	return o.MinX >= b.MinX-eps && o.MaxX <= b.MaxX+eps &&
		o.MinY >= b.MinY-eps && o.MaxY <= b.MaxY+eps &&
		o.MinZ >= b.MinZ-eps && o.MaxZ <= b.MaxZ+eps
}

func (b BoundingBox) Volume() float64 {
	return b.X().Length() * b.Y().Length() * b.Z().Length()
}

func (b BoundingBox) Footprint() Footprint {
	rect := r2.Rect{X: b.X(), Y: b.Y()}
	return Footprint(rect.Vertices())
}

// BoundsOf returns the tightest box around the finite vertices. ok is false
// when no finite vertex was supplied.
func BoundsOf(vertices []Vertex) (box BoundingBox, ok bool) {
	x, y, z := r1.EmptyInterval(), r1.EmptyInterval(), r1.EmptyInterval()
	for _, v := range vertices {
		if !finite(v) {
			continue
		}
		x = x.AddPoint(v.X)
		y = y.AddPoint(v.Y)
		z = z.AddPoint(v.Z)
		ok = true
	}
	if !ok {
		return BoundingBox{}, false
	}
	return BoundingBox{MinX: x.Lo, MaxX: x.Hi, MinY: y.Lo, MaxY: y.Hi, MinZ: z.Lo, MaxZ: z.Hi}, true
}

func finite(v Vertex) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Footprint is the XY rectangle of a cell, corners ordered
// (minx,miny), (maxx,miny), (maxx,maxy), (minx,maxy).
type Footprint [4]r2.Point

// Coords flattens the corners into x0,y0,x1,y1,... for array columns.
func (f Footprint) Coords() []float64 {
	out := make([]float64, 0, 8)
	for _, p := range f {
		out = append(out, p.X, p.Y)
	}
	return out
}

// FootprintFromCoords is the inverse of Coords.
func FootprintFromCoords(coords []float64) (Footprint, error) {
	var f Footprint
	if len(coords) != 8 {
		return f, fmt.Errorf("footprint needs 8 coordinates, got %d", len(coords))
	}
	for i := range f {
		f[i] = r2.Point{X: coords[2*i], Y: coords[2*i+1]}
	}
	return f, nil
}

// WKT renders the footprint as a closed polygon ring.
func (f Footprint) WKT() string {
	var sb strings.Builder
	sb.WriteString("POLYGON((")
	for i := 0; i <= len(f); i++ {
		p := f[i%len(f)]
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
	}
	sb.WriteString("))")
	return sb.String()
}
