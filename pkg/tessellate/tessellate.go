// Package tessellate turns sliced layers into meshes. Tessellate produces a
// print mesh and a jump mesh per layer; Combine packs the print quads of
// every layer into one shared buffer.
package tessellate

import (
	"fmt"

	"github.com/chazu/layermesh/pkg/mesh"
	"github.com/chazu/layermesh/pkg/toolpath"
	"go.uber.org/zap"
)

// Options controls tessellation.
type Options struct {
	// Jumps also produces the travel-move mesh of every layer.
	Jumps bool
	// Logger receives debug output. Nil disables logging.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// LayerMesh holds the meshes produced for one layer.
type LayerMesh struct {
	ID        int
	Height    float64
	Thickness float64
	Print     *mesh.Mesh
	Jumps     *mesh.Mesh // nil unless Options.Jumps
}

// Tessellate produces one LayerMesh per layer, in input order.
func Tessellate(layers []*toolpath.Layer, opts Options) ([]*LayerMesh, error) {
	log := opts.logger()
	out := make([]*LayerMesh, 0, len(layers))
	for i, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("tessellate: layer at index %d is nil", i)
		}
		lm := &LayerMesh{
			ID:        l.ID(),
			Height:    l.Height(),
			Thickness: l.Thickness(),
			Print:     l.CreateMesh(),
		}
		if opts.Jumps {
			lm.Jumps = l.CreateJumps()
		}
		log.Debug("tessellated layer",
			zap.Int("layer", lm.ID),
			zap.Int("segments", len(l.Segments())),
			zap.Int("triangles", lm.Print.TriangleCount()))
		out = append(out, lm)
	}
	return out, nil
}

// LayerRange locates one layer's data inside a combined mesh.
type LayerRange struct {
	ID            int `json:"id"`
	FirstVertex   int `json:"firstVertex"`
	VertexCount   int `json:"vertexCount"`
	FirstTriangle int `json:"firstTriangle"`
	TriangleCount int `json:"triangleCount"`
}

// Combined is the print geometry of many layers in one mesh.
type Combined struct {
	Mesh   *mesh.Mesh
	Layers []LayerRange
}

// Combine sizes one buffer from the layers' counts and builds every layer
// into it back to back.
func Combine(layers []*toolpath.Layer) (*Combined, error) {
	verts, tris := 0, 0
	for i, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("tessellate: layer at index %d is nil", i)
		}
		verts += l.LineMeshVertexCount()
		tris += l.LineMeshElementCount()
	}

	m := mesh.Alloc(verts, tris)
	ranges := make([]LayerRange, 0, len(layers))
	v, t := 0, 0
	for _, l := range layers {
		nv, nt := l.Build(v, t, m.Vertices, m.Colors, m.Indices)
		ranges = append(ranges, LayerRange{
			ID:            l.ID(),
			FirstVertex:   v,
			VertexCount:   nv - v,
			FirstTriangle: t,
			TriangleCount: l.ElementCount(),
		})
		v, t = nv, nt
	}
	return &Combined{Mesh: m, Layers: ranges}, nil
}
