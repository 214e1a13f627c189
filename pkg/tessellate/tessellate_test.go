package tessellate

import (
	"strings"
	"testing"

	"github.com/chazu/layermesh/pkg/toolpath"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

// square builds a layer with one closed square perimeter whose last side is
// a travel move.
func square(t *testing.T, id int, height float64) *toolpath.Layer {
	t.Helper()
	pts := []v3.Vec{
		{X: 0, Y: height, Z: 0},
		{X: 10, Y: height, Z: 0},
		{X: 10, Y: height, Z: 10},
		{X: 0, Y: height, Z: 10},
		{X: 0, Y: height, Z: 0},
	}
	types := []toolpath.LineType{
		toolpath.Inset0Type, toolpath.Inset0Type, toolpath.InfillType, toolpath.MoveCombingType,
	}
	seg, err := toolpath.NewSegment(pts, types, []float64{0.4, 0.4, 0.4, 0.4}, nil)
	if err != nil {
		t.Fatalf("NewSegment: %v", err)
	}
	l := toolpath.NewLayer(id)
	l.SetHeight(height)
	l.SetThickness(0.2)
	l.AddSegment(seg)
	return l
}

func TestTessellateNil(t *testing.T) {
	meshes, err := Tessellate(nil, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(meshes) != 0 {
		t.Fatalf("expected 0 meshes, got %d", len(meshes))
	}
}

func TestTessellateNilLayer(t *testing.T) {
	_, err := Tessellate([]*toolpath.Layer{square(t, 0, 0.2), nil}, Options{})
	if err == nil {
		t.Fatal("expected error for nil layer")
	}
	if !strings.Contains(err.Error(), "index 1") {
		t.Errorf("error %q should name the index", err)
	}
}

func TestTessellateLayers(t *testing.T) {
	layers := []*toolpath.Layer{square(t, 0, 0.2), square(t, 1, 0.4)}
	meshes, err := Tessellate(layers, Options{Jumps: true})
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 layer meshes, got %d", len(meshes))
	}
	for i, lm := range meshes {
		if lm.ID != i {
			t.Errorf("mesh %d has ID %d", i, lm.ID)
		}
		if lm.Thickness != 0.2 {
			t.Errorf("mesh %d thickness = %f", i, lm.Thickness)
		}
		if lm.Print.TriangleCount() != 6 {
			t.Errorf("layer %d print triangles = %d, want 6", i, lm.Print.TriangleCount())
		}
		if lm.Jumps == nil || lm.Jumps.TriangleCount() != 2 {
			t.Errorf("layer %d jump mesh = %+v, want 2 triangles", i, lm.Jumps)
		}
	}
	if meshes[1].Height != 0.4 {
		t.Errorf("second layer height = %f, want 0.4", meshes[1].Height)
	}
}

func TestTessellateWithoutJumps(t *testing.T) {
	meshes, err := Tessellate([]*toolpath.Layer{square(t, 0, 0.2)}, Options{})
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if meshes[0].Jumps != nil {
		t.Error("jump mesh should be nil when Options.Jumps is false")
	}
}

func TestTessellateLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := Tessellate([]*toolpath.Layer{square(t, 3, 0.2)}, Options{Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	entries := logs.FilterMessage("tessellated layer").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["layer"]; got != int64(3) {
		t.Errorf("logged layer = %v, want 3", got)
	}
}

func TestCombine(t *testing.T) {
	layers := []*toolpath.Layer{square(t, 0, 0.2), toolpath.NewLayer(1), square(t, 2, 0.6)}
	c, err := Combine(layers)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if c.Mesh.VertexCount() != 24 || c.Mesh.TriangleCount() != 12 {
		t.Fatalf("combined = (%d vertices, %d triangles), want (24, 12)", c.Mesh.VertexCount(), c.Mesh.TriangleCount())
	}
	want := []LayerRange{
		{ID: 0, FirstVertex: 0, VertexCount: 12, FirstTriangle: 0, TriangleCount: 6},
		{ID: 1, FirstVertex: 12, VertexCount: 0, FirstTriangle: 6, TriangleCount: 0},
		{ID: 2, FirstVertex: 12, VertexCount: 12, FirstTriangle: 6, TriangleCount: 6},
	}
	for i := range want {
		if c.Layers[i] != want[i] {
			t.Errorf("range %d = %+v, want %+v", i, c.Layers[i], want[i])
		}
	}

	// Triangles of the third layer must only reference its own vertices.
	r := c.Layers[2]
	for _, idx := range c.Mesh.Indices[r.FirstTriangle*3:] {
		if int(idx) < r.FirstVertex || int(idx) >= r.FirstVertex+r.VertexCount {
			t.Fatalf("index %d outside layer range %+v", idx, r)
		}
	}
}

func TestCombineMatchesPerLayerMeshes(t *testing.T) {
	l := square(t, 0, 0.2)
	c, err := Combine([]*toolpath.Layer{l})
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	m := l.CreateMesh()
	for i := range m.Vertices {
		if m.Vertices[i] != c.Mesh.Vertices[i] {
			t.Fatalf("vertex component %d differs: %f vs %f", i, m.Vertices[i], c.Mesh.Vertices[i])
		}
	}
	for i := range m.Indices {
		if m.Indices[i] != c.Mesh.Indices[i] {
			t.Fatalf("index %d differs: %d vs %d", i, m.Indices[i], c.Mesh.Indices[i])
		}
	}
}
