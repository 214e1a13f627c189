package mesh

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Mesh is a colored triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// colors has 4 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Colors   []float32 `json:"colors"`   // [r0,g0,b0,a0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Alloc returns a mesh whose buffers are sized for the given vertex and
// triangle counts, ready to be filled in place at caller-chosen offsets.
func Alloc(vertices, triangles int) *Mesh {
	return &Mesh{
		Vertices: make([]float32, vertices*3),
		Colors:   make([]float32, vertices*4),
		Indices:  make([]uint32, triangles*3),
	}
}
