// Package mesh defines the colored triangle mesh produced from toolpaths and
// the Sink abstraction that mesh producers write into. The sink abstraction
// keeps geometry code independent of any particular renderer.
package mesh

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Sink accepts batches of colored triangles.
type Sink interface {
	// ReserveFaceAndVertexCount hints the total number of faces and vertices
	// that will be submitted.
	ReserveFaceAndVertexCount(faces, vertices int)

	// AddFacesWithColor appends vertices with one color each, and faces that
	// index into this batch starting at 0.
	AddFacesWithColor(vertices []v3.Vec, faces [][3]uint32, colors []Color)
}

// Compile-time interface check.
var _ Sink = (*Builder)(nil)

// Builder is the default Sink. It accumulates faces into flat buffers.
type Builder struct {
	vertices []float32
	colors   []float32
	indices  []uint32
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// ReserveFaceAndVertexCount grows the internal buffers so that the given
// number of faces and vertices can be added without reallocating.
func (b *Builder) ReserveFaceAndVertexCount(faces, vertices int) {
	b.vertices = grow(b.vertices, vertices*3)
	b.colors = grow(b.colors, vertices*4)
	b.indices = grow(b.indices, faces*3)
}

// AddFacesWithColor appends a batch. Face indices are rebased onto the
// vertices already held by the builder.
func (b *Builder) AddFacesWithColor(vertices []v3.Vec, faces [][3]uint32, colors []Color) {
	base := uint32(b.VertexCount())
	for i, v := range vertices {
		b.vertices = append(b.vertices, float32(v.X), float32(v.Y), float32(v.Z))
		c := colors[i]
		b.colors = append(b.colors, c.R, c.G, c.B, c.A)
	}
	for _, f := range faces {
		b.indices = append(b.indices, f[0]+base, f[1]+base, f[2]+base)
	}
}

// VertexCount returns the number of vertices added so far.
func (b *Builder) VertexCount() int {
	return len(b.vertices) / 3
}

// FaceCount returns the number of faces added so far.
func (b *Builder) FaceCount() int {
	return len(b.indices) / 3
}

// Build returns the accumulated mesh. The builder must not be used afterwards.
func (b *Builder) Build() *Mesh {
	m := &Mesh{
		Vertices: b.vertices,
		Colors:   b.colors,
		Indices:  b.indices,
	}
	if m.Vertices == nil {
		m.Vertices = []float32{}
	}
	if m.Colors == nil {
		m.Colors = []float32{}
	}
	if m.Indices == nil {
		m.Indices = []uint32{}
	}
	b.vertices, b.colors, b.indices = nil, nil, nil
	return m
}

func grow[T any](s []T, n int) []T {
	if cap(s)-len(s) >= n {
		return s
	}
	out := make([]T, len(s), len(s)+n)
	copy(out, s)
	return out
}
