package export

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/layermesh/pkg/tessellate"
	"github.com/chazu/layermesh/pkg/toolpath"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func sampleLayers(t *testing.T) []*toolpath.Layer {
	t.Helper()
	var layers []*toolpath.Layer
	for id := 0; id < 2; id++ {
		y := 0.2 * float64(id+1)
		seg, err := toolpath.NewSegment(
			[]v3.Vec{{Y: y}, {X: 5, Y: y}, {X: 5, Y: y, Z: 5}},
			[]toolpath.LineType{toolpath.Inset0Type, toolpath.MoveRetractionType},
			[]float64{0.4, 0.4},
			nil,
		)
		if err != nil {
			t.Fatalf("NewSegment: %v", err)
		}
		l := toolpath.NewLayer(id)
		l.SetHeight(y)
		l.SetThickness(0.2)
		l.AddSegment(seg)
		layers = append(layers, l)
	}
	return layers
}

func sampleDoc(t *testing.T) *Document {
	t.Helper()
	meshes, err := tessellate.Tessellate(sampleLayers(t), tessellate.Options{Jumps: true})
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	return FromLayers(meshes)
}

func TestRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "zstd"
		}
		t.Run(name, func(t *testing.T) {
			doc := sampleDoc(t)
			var buf bytes.Buffer
			if err := Write(&buf, doc, compress); err != nil {
				t.Fatalf("Write: %v", err)
			}
			isZstd := bytes.HasPrefix(buf.Bytes(), zstdMagic)
			if isZstd != compress {
				t.Fatalf("zstd framing = %v, want %v", isZstd, compress)
			}

			got, err := Read(&buf)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !reflect.DeepEqual(got, doc) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, doc)
			}
		})
	}
}

func TestPlainOutputShape(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleDoc(t), false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, key := range []string{`"version":1`, `"print":`, `"jumps":`, `"vertices":`, `"colors":`, `"indices":`} {
		if !strings.Contains(out, key) {
			t.Errorf("output missing %s", key)
		}
	}
	if strings.Contains(out, `"combined"`) {
		t.Error("per-layer document should omit combined")
	}
}

func TestCombinedFile(t *testing.T) {
	c, err := tessellate.Combine(sampleLayers(t))
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	path := filepath.Join(t.TempDir(), "combined.json.zst")
	if err := WriteFile(path, FromCombined(c), true); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if doc.Combined == nil || len(doc.Layers) != 0 {
		t.Fatalf("expected a combined-only document, got %+v", doc)
	}
	if doc.Combined.Mesh.TriangleCount() != 4 {
		t.Errorf("combined triangles = %d, want 4", doc.Combined.Mesh.TriangleCount())
	}
	if len(doc.Combined.Layers) != 2 || doc.Combined.Layers[1].FirstVertex != 4 {
		t.Errorf("ranges = %+v", doc.Combined.Layers)
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	_, err := Read(strings.NewReader(`{"version": 99}`))
	if err == nil || !strings.Contains(err.Error(), "version 99") {
		t.Errorf("expected version error, got %v", err)
	}
}

func TestWriteRejectsNaN(t *testing.T) {
	seg, err := toolpath.NewSegment([]v3.Vec{{X: 1}, {X: 1}}, []toolpath.LineType{toolpath.Inset0Type}, []float64{0.4}, nil)
	if err != nil {
		t.Fatalf("NewSegment: %v", err)
	}
	l := toolpath.NewLayer(0)
	l.AddSegment(seg)
	meshes, err := tessellate.Tessellate([]*toolpath.Layer{l}, tessellate.Options{})
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if err := Write(&bytes.Buffer{}, FromLayers(meshes), false); err == nil {
		t.Error("expected encode error for NaN vertices")
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
