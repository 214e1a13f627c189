package main

import (
	"github.com/chazu/layermesh/pkg/config"
	"github.com/chazu/layermesh/pkg/engine"
	"github.com/chazu/layermesh/pkg/export"
	"github.com/chazu/layermesh/pkg/tessellate"
	"go.uber.org/zap"
)

// App runs the script -> layers -> meshes pipeline.
type App struct {
	engine *engine.Engine
	cfg    config.Config
	log    *zap.Logger
}

// EvalErrorData is a script error with its location.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the outcome of one pipeline run. Document is nil when
// Errors is non-empty.
type EvalResult struct {
	Document *export.Document
	Errors   []EvalErrorData
}

// NewApp creates an App configured from cfg.
func NewApp(cfg config.Config, log *zap.Logger) (*App, error) {
	colors, err := cfg.ColorMap()
	if err != nil {
		return nil, err
	}
	eng := engine.NewEngine()
	eng.SetColorMap(colors)
	eng.SetTimeout(cfg.EvalTimeout)
	eng.SetLogger(log.Named("engine"))
	return &App{engine: eng, cfg: cfg, log: log}, nil
}

// Evaluate takes toolpath script source and returns the export document.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{Errors: []EvalErrorData{}}

	// Step 1: Evaluate the script into layers.
	layers, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("evaluate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 2: Tessellate into either one combined mesh or per-layer meshes.
	if a.cfg.Export.Combined {
		c, err := tessellate.Combine(layers)
		if err != nil {
			a.log.Error("combine failed", zap.Error(err))
			result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
			return result
		}
		a.log.Info("combined layers",
			zap.Int("layers", len(c.Layers)),
			zap.Int("triangles", c.Mesh.TriangleCount()))
		result.Document = export.FromCombined(c)
		return result
	}

	meshes, err := tessellate.Tessellate(layers, tessellate.Options{
		Jumps:  a.cfg.Export.Jumps,
		Logger: a.log.Named("tessellate"),
	})
	if err != nil {
		a.log.Error("tessellate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	a.log.Info("tessellated layers", zap.Int("layers", len(meshes)))
	result.Document = export.FromLayers(meshes)
	return result
}
