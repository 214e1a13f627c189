package toolpath

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/layermesh/pkg/mesh"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrMisaligned is returned when a segment's per-line arrays do not match its
// line count (points - 1).
var ErrMisaligned = errors.New("toolpath: misaligned segment arrays")

// facePattern is the local index pattern of the two triangles of one quad.
var facePattern = [2][3]uint32{{0, 3, 2}, {0, 1, 3}}

// Segment is a toolpath polyline. Line i runs from point i to point i+1 and
// carries its own type, width and jump flag.
type Segment struct {
	points   []v3.Vec
	types    []LineType
	widths   []float64
	jumpMask []bool
	colors   ColorMap

	meshLineCount int
	jumpCount     int
	elementCount  int
}

// NewSegment creates a segment. The jump mask is derived from the line types.
// A nil color map selects DefaultColorMap.
func NewSegment(points []v3.Vec, types []LineType, widths []float64, colors ColorMap) (*Segment, error) {
	lines := len(points) - 1
	if lines < 0 {
		lines = 0
	}
	if len(types) != lines {
		return nil, fmt.Errorf("%w: %d points need %d line types, got %d", ErrMisaligned, len(points), lines, len(types))
	}
	if len(widths) != lines {
		return nil, fmt.Errorf("%w: %d points need %d line widths, got %d", ErrMisaligned, len(points), lines, len(widths))
	}
	if colors == nil {
		colors = DefaultColorMap()
	}
	for i, t := range types {
		if !t.Valid() || int(t) >= len(colors) {
			return nil, fmt.Errorf("toolpath: line %d: no color for line type %s", i, t)
		}
	}

	mask := make([]bool, lines)
	for i, t := range types {
		mask[i] = t.IsJump()
	}

	s := &Segment{
		points:   points,
		types:    types,
		widths:   widths,
		jumpMask: mask,
		colors:   colors,
	}
	s.count()
	return s, nil
}

// SetJumpMask overrides the derived jump mask.
func (s *Segment) SetJumpMask(mask []bool) error {
	if len(mask) != len(s.types) {
		return fmt.Errorf("%w: jump mask has %d entries, want %d", ErrMisaligned, len(mask), len(s.types))
	}
	s.jumpMask = append([]bool(nil), mask...)
	s.count()
	return nil
}

func (s *Segment) count() {
	s.meshLineCount, s.jumpCount = 0, 0
	for _, jump := range s.jumpMask {
		if jump {
			s.jumpCount++
		} else {
			s.meshLineCount++
		}
	}
}

// Points returns the polyline points.
func (s *Segment) Points() []v3.Vec { return s.points }

// Types returns the per-line types.
func (s *Segment) Types() []LineType { return s.types }

// Widths returns the per-line widths.
func (s *Segment) Widths() []float64 { return s.widths }

// JumpMask returns the per-line jump flags.
func (s *Segment) JumpMask() []bool { return s.jumpMask }

// LineCount returns the number of lines (points - 1).
func (s *Segment) LineCount() int { return len(s.jumpMask) }

// MeshLineCount returns the number of printing lines.
func (s *Segment) MeshLineCount() int { return s.meshLineCount }

// JumpCount returns the number of travel lines.
func (s *Segment) JumpCount() int { return s.jumpCount }

// LineMeshVertexCount returns the number of vertices Build writes.
func (s *Segment) LineMeshVertexCount() int { return 4 * s.meshLineCount }

// LineMeshElementCount returns the number of triangles Build writes.
func (s *Segment) LineMeshElementCount() int { return 2 * s.meshLineCount }

// ElementCount returns the number of triangles written by the last Build.
func (s *Segment) ElementCount() int { return s.elementCount }

// Normals returns the unit normal of every line, in the build plane and
// perpendicular to the line. Zero-length lines yield NaN components.
func (s *Segment) Normals() []v3.Vec {
	out := make([]v3.Vec, len(s.jumpMask))
	for i := range out {
		out[i] = lineNormal(s.points[i], s.points[i+1])
	}
	return out
}

func lineNormal(p0, p1 v3.Vec) v3.Vec {
	d := p0.Sub(p1)
	l := math.Sqrt(d.X*d.X + d.Z*d.Z)
	return v3.Vec{X: -d.Z / l, Y: 0, Z: d.X / l}
}

// expand turns every selected line into a quad of width equal to the line
// width. Print lines are selected when makeMesh is true, travel lines
// otherwise. Face indices are local to the returned vertices.
func (s *Segment) expand(makeMesh bool) ([]v3.Vec, [][3]uint32, []mesh.Color) {
	n := s.jumpCount
	if makeMesh {
		n = s.meshLineCount
	}
	verts := make([]v3.Vec, 0, 4*n)
	faces := make([][3]uint32, 0, 2*n)
	colors := make([]mesh.Color, 0, 4*n)

	for i, jump := range s.jumpMask {
		if jump == makeMesh {
			continue
		}
		t := s.types[i]
		p0, p1 := s.points[i], s.points[i+1]
		if makeMesh {
			if t.IsInfillOrSkin() {
				p0, p1 = lift(p0, -heightBias), lift(p1, -heightBias)
			}
		} else {
			p0, p1 = lift(p0, heightBias), lift(p1, heightBias)
		}

		nrm := lineNormal(s.points[i], s.points[i+1]).MulScalar(s.widths[i] / 2)

		base := uint32(len(verts))
		verts = append(verts, p0.Sub(nrm), p0.Add(nrm), p1.Sub(nrm), p1.Add(nrm))
		for _, f := range facePattern {
			faces = append(faces, [3]uint32{f[0] + base, f[1] + base, f[2] + base})
		}
		c := s.colors[t]
		colors = append(colors, c, c, c, c)
	}
	return verts, faces, colors
}

// Build writes the print-line quads into flat buffers. vertexOffset is in
// vertices and indexOffset in triangles; indices are absolute. The buffers
// must have room for LineMeshVertexCount vertices and LineMeshElementCount
// triangles past the offsets.
func (s *Segment) Build(vertexOffset, indexOffset int, vertices, colors []float32, indices []uint32) {
	verts, faces, cols := s.expand(true)
	for i, v := range verts {
		j := (vertexOffset + i) * 3
		vertices[j], vertices[j+1], vertices[j+2] = float32(v.X), float32(v.Y), float32(v.Z)
		c := cols[i]
		k := (vertexOffset + i) * 4
		colors[k], colors[k+1], colors[k+2], colors[k+3] = c.R, c.G, c.B, c.A
	}
	base := uint32(vertexOffset)
	for i, f := range faces {
		j := (indexOffset + i) * 3
		indices[j], indices[j+1], indices[j+2] = f[0]+base, f[1]+base, f[2]+base
	}
	s.elementCount = len(faces)
}
