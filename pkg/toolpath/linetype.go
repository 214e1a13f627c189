package toolpath

import (
	"fmt"

	"github.com/chazu/layermesh/pkg/mesh"
)

// LineType classifies one line of a toolpath.
type LineType int

const (
	NoneType LineType = iota
	Inset0Type
	InsetXType
	SkinType
	SupportType
	SkirtType
	InfillType
	SupportInfillType
	MoveCombingType
	MoveRetractionType

	lineTypeCount
)

var lineTypeNames = [lineTypeCount]string{
	NoneType:           "none",
	Inset0Type:         "inset0",
	InsetXType:         "inset-x",
	SkinType:           "skin",
	SupportType:        "support",
	SkirtType:          "skirt",
	InfillType:         "infill",
	SupportInfillType:  "support-infill",
	MoveCombingType:    "move-combing",
	MoveRetractionType: "move-retraction",
}

func (t LineType) String() string {
	if t.Valid() {
		return lineTypeNames[t]
	}
	return fmt.Sprintf("LineType(%d)", int(t))
}

// Valid reports whether t is one of the known line types.
func (t LineType) Valid() bool {
	return t >= 0 && t < lineTypeCount
}

// IsJump reports whether lines of this type are non-printing travel moves.
func (t LineType) IsJump() bool {
	switch t {
	case NoneType, MoveCombingType, MoveRetractionType:
		return true
	}
	return false
}

// IsInfillOrSkin reports whether t belongs to the infill/skin subset that is
// drawn slightly below the other print lines.
func (t LineType) IsInfillOrSkin() bool {
	switch t {
	case SkinType, InfillType, SupportInfillType:
		return true
	}
	return false
}

// ParseLineType returns the line type with the given name, as produced by
// String. Underscores are accepted in place of hyphens.
func ParseLineType(name string) (LineType, error) {
	for i, n := range lineTypeNames {
		if n == name || underscored(n) == name {
			return LineType(i), nil
		}
	}
	return NoneType, fmt.Errorf("toolpath: unknown line type %q", name)
}

// LineTypes returns every known line type in declaration order.
func LineTypes() []LineType {
	out := make([]LineType, lineTypeCount)
	for i := range out {
		out[i] = LineType(i)
	}
	return out
}

func underscored(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}

// ColorMap maps a LineType (used as index) to its display color.
type ColorMap []mesh.Color

// DefaultColorMap returns a fresh copy of the default line type palette.
func DefaultColorMap() ColorMap {
	return ColorMap{
		NoneType:           {R: 1.0, G: 1.0, B: 1.0, A: 1.0},
		Inset0Type:         {R: 1.0, G: 0.0, B: 0.0, A: 1.0},
		InsetXType:         {R: 0.0, G: 1.0, B: 0.0, A: 1.0},
		SkinType:           {R: 1.0, G: 1.0, B: 0.0, A: 1.0},
		SupportType:        {R: 0.0, G: 1.0, B: 1.0, A: 1.0},
		SkirtType:          {R: 0.0, G: 1.0, B: 1.0, A: 1.0},
		InfillType:         {R: 1.0, G: 0.74, B: 0.0, A: 1.0},
		SupportInfillType:  {R: 0.0, G: 1.0, B: 1.0, A: 1.0},
		MoveCombingType:    {R: 0.0, G: 0.0, B: 1.0, A: 1.0},
		MoveRetractionType: {R: 0.5, G: 0.5, B: 1.0, A: 1.0},
	}
}

// With returns a copy of m with the color for t replaced.
func (m ColorMap) With(t LineType, c mesh.Color) ColorMap {
	out := make(ColorMap, len(m))
	copy(out, m)
	out[t] = c
	return out
}
