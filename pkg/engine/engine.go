// Package engine evaluates toolpath scripts. It wraps zygomys in a sandboxed
// environment and produces the layers described by the script.
package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/layermesh/pkg/toolpath"
	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout time.Duration
	colors  toolpath.ColorMap
	log     *zap.Logger
}

// NewEngine creates a new Engine with the default timeout and palette.
func NewEngine() *Engine {
	return &Engine{
		timeout: EvalTimeout,
		colors:  toolpath.DefaultColorMap(),
		log:     zap.NewNop(),
	}
}

// SetTimeout changes the evaluation time limit. Non-positive values restore
// EvalTimeout.
func (e *Engine) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = EvalTimeout
	}
	e.mu.Lock()
	e.timeout = d
	e.mu.Unlock()
}

// SetColorMap sets the palette attached to segments created by later
// evaluations. Nil restores the default palette.
func (e *Engine) SetColorMap(m toolpath.ColorMap) {
	if m == nil {
		m = toolpath.DefaultColorMap()
	}
	e.mu.Lock()
	e.colors = m
	e.mu.Unlock()
}

// SetLogger sets the logger. Nil disables logging.
func (e *Engine) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	e.mu.Lock()
	e.log = l
	e.mu.Unlock()
}

// Evaluate runs a toolpath script and returns the layers it defines, sorted
// by layer id.
//
// Return semantics:
//   - On success: returns layers + nil errors + nil error
//   - On parse/eval failure: returns nil layers + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) ([]*toolpath.Layer, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	timeout, colors, log := e.timeout, e.colors, e.log
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		layers, evalErrs, err := evaluate(source, colors)
		ch <- evalResult{layers: layers, errors: evalErrs, err: err}
	}()

	layers, evalErrs, err := waitWithTimeout(ch, timeout, gen, &e.mu, &e.generation)
	switch {
	case err != nil:
		log.Warn("evaluation failed", zap.Uint64("generation", gen), zap.Error(err))
	case len(evalErrs) > 0:
		log.Debug("evaluation reported errors", zap.Uint64("generation", gen), zap.Int("errors", len(evalErrs)))
	default:
		log.Debug("evaluated script", zap.Uint64("generation", gen), zap.Int("layers", len(layers)))
	}
	return layers, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func evaluate(source string, colors toolpath.ColorMap) ([]*toolpath.Layer, []EvalError, error) {
	// Empty source is a valid program that defines no layers.
	if strings.TrimSpace(source) == "" {
		return []*toolpath.Layer{}, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	sc := newScene(colors)
	registerBuiltins(env, sc)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	return sc.sorted(), nil, nil
}

// scene collects the layers defined while a script runs.
type scene struct {
	colors toolpath.ColorMap
	layers map[int]*toolpath.Layer
}

func newScene(colors toolpath.ColorMap) *scene {
	return &scene{colors: colors, layers: make(map[int]*toolpath.Layer)}
}

func (s *scene) sorted() []*toolpath.Layer {
	out := make([]*toolpath.Layer, 0, len(s.layers))
	for _, l := range s.layers {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?is)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?is)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
