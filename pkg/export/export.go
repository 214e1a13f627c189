// Package export writes tessellated layers as JSON mesh documents,
// optionally zstd-compressed.
package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/chazu/layermesh/pkg/mesh"
	"github.com/chazu/layermesh/pkg/tessellate"
	"github.com/klauspost/compress/zstd"
)

// FormatVersion is written into every document.
const FormatVersion = 1

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Document is the exported file.
type Document struct {
	Version  int           `json:"version"`
	Layers   []LayerData   `json:"layers,omitempty"`
	Combined *CombinedData `json:"combined,omitempty"`
}

// LayerData is one layer's meshes.
type LayerData struct {
	ID        int        `json:"id"`
	Height    float64    `json:"height"`
	Thickness float64    `json:"thickness"`
	Print     *mesh.Mesh `json:"print"`
	Jumps     *mesh.Mesh `json:"jumps,omitempty"`
}

// CombinedData is every layer's print geometry in one mesh.
type CombinedData struct {
	Mesh   *mesh.Mesh              `json:"mesh"`
	Layers []tessellate.LayerRange `json:"layers"`
}

// FromLayers builds a per-layer document.
func FromLayers(meshes []*tessellate.LayerMesh) *Document {
	doc := &Document{Version: FormatVersion, Layers: make([]LayerData, 0, len(meshes))}
	for _, lm := range meshes {
		doc.Layers = append(doc.Layers, LayerData{
			ID:        lm.ID,
			Height:    lm.Height,
			Thickness: lm.Thickness,
			Print:     lm.Print,
			Jumps:     lm.Jumps,
		})
	}
	return doc
}

// FromCombined builds a single-mesh document.
func FromCombined(c *tessellate.Combined) *Document {
	return &Document{
		Version:  FormatVersion,
		Combined: &CombinedData{Mesh: c.Mesh, Layers: c.Layers},
	}
}

// Write encodes doc to w, through a zstd encoder when compress is set.
// Meshes containing NaN coordinates (zero-length lines) cannot be encoded.
func Write(w io.Writer, doc *Document, compress bool) error {
	if !compress {
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("export: encode: %w", err)
		}
		return nil
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("export: zstd: %w", err)
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := json.NewEncoder(bw).Encode(doc); err != nil {
		enc.Close()
		return fmt.Errorf("export: encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("export: flush: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export: zstd: %w", err)
	}
	return nil
}

// WriteFile writes doc to path.
func WriteFile(path string, doc *Document, compress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := Write(f, doc, compress); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// Read decodes a document, detecting zstd compression from the stream.
func Read(r io.Reader) (*Document, error) {
	br := bufio.NewReaderSize(r, 256*1024)
	head, _ := br.Peek(len(zstdMagic))

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("export: zstd: %w", err)
		}
		defer dec.Close()
		src = dec
	}

	var doc Document
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return nil, fmt.Errorf("export: decode: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("export: unsupported document version %d", doc.Version)
	}
	return &doc, nil
}

// ReadFile reads a document from path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	defer f.Close()
	return Read(f)
}
