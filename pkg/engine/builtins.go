package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/layermesh/pkg/toolpath"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms toolpath script source before passing it to
// zygomys. It performs three transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: line-types -> line_types
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
//  3. Line comments: ; and ;; become //, which is what zygomys expects.
//
// All transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is part of a name, not a minus.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a point.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSegment wraps a segment so it can be returned from `segment`
// and consumed by `layer`.
type sexpSegment struct {
	seg *toolpath.Segment
}

func (s *sexpSegment) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(segment %d lines)", s.seg.LineCount())
}
func (s *sexpSegment) Type() *zygo.RegisteredType { return nil }

// sexpLayerRef is returned from `layer`.
type sexpLayerRef struct {
	id int
}

func (l *sexpLayerRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(layer %d)", l.id)
}
func (l *sexpLayerRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A keyword consumes the argument that follows it as its value.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toInt extracts an integer from a SexpInt.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_infill) and plain strings ("infill").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toLineType converts a keyword such as :move-combing to a toolpath.LineType.
func toLineType(s zygo.Sexp) (toolpath.LineType, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected line type keyword: %w", err)
	}
	return toolpath.ParseLineType(name)
}

// toVec3 extracts a point from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// listOf converts every element of a list with conv.
func listOf[T any](s zygo.Sexp, conv func(zygo.Sexp) (T, error)) ([]T, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(items))
	for i, item := range items {
		v, err := conv(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// repeat returns n copies of v.
func repeat[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// Segment construction
// ---------------------------------------------------------------------------

// segmentFromArgs builds a segment from the keyword arguments shared by
// `segment` and `closed-segment`. Per-line values come either as a single
// :type / :width applied to every line or as :types / :widths lists.
func segmentFromArgs(fn string, pa kwArgs, closed bool, colors toolpath.ColorMap) (*toolpath.Segment, error) {
	v, ok := pa.kw["points"]
	if !ok {
		return nil, fmt.Errorf("%s: :points is required", fn)
	}
	points, err := listOf(v, toVec3)
	if err != nil {
		return nil, fmt.Errorf("%s: points: %w", fn, err)
	}
	if closed && len(points) > 0 {
		points = append(points, points[0])
	}
	lines := len(points) - 1
	if lines < 0 {
		lines = 0
	}

	var types []toolpath.LineType
	switch {
	case pa.kw["types"] != nil:
		types, err = listOf(pa.kw["types"], toLineType)
		if err != nil {
			return nil, fmt.Errorf("%s: types: %w", fn, err)
		}
	case pa.kw["type"] != nil:
		lt, err := toLineType(pa.kw["type"])
		if err != nil {
			return nil, fmt.Errorf("%s: type: %w", fn, err)
		}
		types = repeat(lt, lines)
	default:
		return nil, fmt.Errorf("%s: one of :type or :types is required", fn)
	}

	var widths []float64
	switch {
	case pa.kw["widths"] != nil:
		widths, err = listOf(pa.kw["widths"], toFloat64)
		if err != nil {
			return nil, fmt.Errorf("%s: widths: %w", fn, err)
		}
	case pa.kw["width"] != nil:
		w, err := toFloat64(pa.kw["width"])
		if err != nil {
			return nil, fmt.Errorf("%s: width: %w", fn, err)
		}
		widths = repeat(w, lines)
	default:
		return nil, fmt.Errorf("%s: one of :width or :widths is required", fn)
	}

	seg, err := toolpath.NewSegment(points, types, widths, colors)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	if v, ok := pa.kw["jumps"]; ok {
		mask, err := listOf(v, toBool)
		if err != nil {
			return nil, fmt.Errorf("%s: jumps: %w", fn, err)
		}
		if err := seg.SetJumpMask(mask); err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
	}
	return seg, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the toolpath DSL builtins into a zygomys
// environment. Layers defined by the script are collected in sc.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *scene) {

	// -----------------------------------------------------------------------
	// (vec3 1 0.2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}

		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (segment :points (list (vec3 0 0.2 0) (vec3 10 0.2 0))
	//          :type :inset0 :width 0.4)
	// (segment :points ... :types (list :infill :move-combing)
	//          :widths (list 0.4 0.4) :jumps (list false true))
	// -----------------------------------------------------------------------
	env.AddFunction("segment", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		seg, err := segmentFromArgs("segment", parseArgs(args), false, sc.colors)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSegment{seg: seg}, nil
	})

	// -----------------------------------------------------------------------
	// (closed-segment :points (list ...) :type :inset0 :width 0.4)
	//
	// Like segment, but returns to the first point. Registered as
	// "closed_segment"; the preprocessor rewrites the kebab-case name.
	// -----------------------------------------------------------------------
	env.AddFunction("closed_segment", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		seg, err := segmentFromArgs("closed-segment", parseArgs(args), true, sc.colors)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSegment{seg: seg}, nil
	})

	// -----------------------------------------------------------------------
	// (layer 3 :height 0.8 :thickness 0.2 (segment ...) (segment ...))
	// -----------------------------------------------------------------------
	env.AddFunction("layer", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("layer requires an id as first argument")
		}

		id, err := toInt(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("layer: id: %w", err)
		}
		if _, dup := sc.layers[id]; dup {
			return zygo.SexpNull, fmt.Errorf("layer: duplicate layer id %d", id)
		}

		l := toolpath.NewLayer(id)
		if v, ok := pa.kw["height"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: height: %w", err)
			}
			l.SetHeight(f)
		}
		if v, ok := pa.kw["thickness"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("layer: thickness: %w", err)
			}
			l.SetThickness(f)
		}

		for i, arg := range pa.positional[1:] {
			s, ok := arg.(*sexpSegment)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("layer %d: child %d: expected segment, got %T (%s)",
					id, i+1, arg, arg.SexpString(nil))
			}
			l.AddSegment(s.seg)
		}

		sc.layers[id] = l
		return &sexpLayerRef{id: id}, nil
	})
}
