// Package toolpath holds the toolpath segments of printed layers and expands
// them into renderable quad meshes: a print mesh for extruding lines and a
// jump mesh for travel moves.
package toolpath

import (
	"github.com/chazu/layermesh/pkg/mesh"
	"github.com/deadsy/sdfx/sdf"
)

// Layer is one printed slice and the segments printed in it.
type Layer struct {
	id           int
	height       float64
	thickness    float64
	segments     []*Segment
	elementCount int
}

// NewLayer returns an empty layer with the given id.
func NewLayer(id int) *Layer {
	return &Layer{id: id}
}

func (l *Layer) ID() int                  { return l.id }
func (l *Layer) Height() float64          { return l.height }
func (l *Layer) Thickness() float64       { return l.thickness }
func (l *Layer) SetHeight(h float64)      { l.height = h }
func (l *Layer) SetThickness(t float64)   { l.thickness = t }
func (l *Layer) Segments() []*Segment     { return l.segments }
func (l *Layer) AddSegment(s ...*Segment) { l.segments = append(l.segments, s...) }

// ElementCount returns the triangle count recorded by the last Build.
func (l *Layer) ElementCount() int { return l.elementCount }

// LineMeshVertexCount returns the number of vertices Build writes.
func (l *Layer) LineMeshVertexCount() int {
	n := 0
	for _, s := range l.segments {
		n += s.LineMeshVertexCount()
	}
	return n
}

// LineMeshElementCount returns the number of triangles Build writes.
func (l *Layer) LineMeshElementCount() int {
	n := 0
	for _, s := range l.segments {
		n += s.LineMeshElementCount()
	}
	return n
}

// Build writes every segment's print quads into the shared buffers, starting
// at vertexOffset (in vertices) and indexOffset (in triangles). It returns
// the offsets just past the written data so that layers can be chained.
func (l *Layer) Build(vertexOffset, indexOffset int, vertices, colors []float32, indices []uint32) (int, int) {
	l.elementCount = 0
	for _, s := range l.segments {
		s.Build(vertexOffset, indexOffset, vertices, colors, indices)
		vertexOffset += s.LineMeshVertexCount()
		indexOffset += s.LineMeshElementCount()
		l.elementCount += s.ElementCount()
	}
	return vertexOffset, indexOffset
}

// CreateMesh returns the mesh of the layer's printing lines.
func (l *Layer) CreateMesh() *mesh.Mesh {
	b := mesh.NewBuilder()
	l.CreateMeshOrJumps(b, true)
	return b.Build()
}

// CreateJumps returns the mesh of the layer's travel moves.
func (l *Layer) CreateJumps() *mesh.Mesh {
	b := mesh.NewBuilder()
	l.CreateMeshOrJumps(b, false)
	return b.Build()
}

// CreateMeshOrJumps submits the quads of either the printing lines
// (makeMesh) or the travel moves to sink, one batch per segment.
func (l *Layer) CreateMeshOrJumps(sink mesh.Sink, makeMesh bool) {
	lines := 0
	for _, s := range l.segments {
		if makeMesh {
			lines += s.MeshLineCount()
		} else {
			lines += s.JumpCount()
		}
	}
	sink.ReserveFaceAndVertexCount(2*lines, 4*lines)

	for _, s := range l.segments {
		verts, faces, colors := s.expand(makeMesh)
		sink.AddFacesWithColor(verts, faces, colors)
	}
}

// Bounds returns the bounding box of all segment points. ok is false when the
// layer has no points.
func (l *Layer) Bounds() (box sdf.Box3, ok bool) {
	for _, s := range l.segments {
		for _, p := range s.points {
			if !ok {
				box = sdf.Box3{Min: p, Max: p}
				ok = true
				continue
			}
			box.Min = box.Min.Min(p)
			box.Max = box.Max.Max(p)
		}
	}
	return box, ok
}
