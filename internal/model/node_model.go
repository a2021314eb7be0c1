// Package model defines the data structures used throughout the Mindnoscape application.
package model

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Kind distinguishes root, question and answer nodes.
type Kind int

const (
	KindQuestion Kind = iota
	KindAnswer
	KindRoot
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindQuestion:
		return "question"
	case KindAnswer:
		return "answer"
	case KindRoot:
		return "root"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ChildKind returns the kind of node generated beneath a node of this kind.
func (k Kind) ChildKind() Kind {
	switch k {
	case KindRoot:
		return KindAnswer
	case KindQuestion:
		return KindAnswer
	case KindAnswer:
		return KindQuestion
	default:
		return KindQuestion
	}
}

// ParseKind converts a wire name into a Kind. The legacy names
// "pregunta" and "respuesta" are accepted for older documents.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "question", "pregunta":
		return KindQuestion, nil
	case "answer", "respuesta":
		return KindAnswer, nil
	case "root":
		return KindRoot, nil
	default:
		return KindQuestion, fmt.Errorf("unknown node kind: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Node represents a single node in a mind map. A node reachable from a
// document tree is never modified in place; edits produce a copy.
type Node struct {
	ID          string
	Text        string
	Kind        Kind
	Description string
	Source      string

	X        float64
	Y        float64
	InitialX float64
	InitialY float64

	Width           float64
	Height          float64
	FontSize        float64
	BackgroundColor string
	BorderColor     string
	BorderWidth     float64

	Children []*Node

	Collapsed            bool
	HasGeneratedChildren bool
	CreatedAt            time.Time
	LastModified         time.Time
}

// Range bounds a numeric style property.
type Range struct {
	Min     float64
	Max     float64
	Default float64
}

// Clamp coerces v into the range. Non-finite values become the default.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return r.Default
	}
	return math.Min(r.Max, math.Max(r.Min, v))
}

var (
	WidthRange       = Range{Min: 100, Max: 500, Default: 200}
	HeightRange      = Range{Min: 50, Max: 300, Default: 80}
	FontSizeRange    = Range{Min: 10, Max: 32, Default: 16}
	BorderWidthRange = Range{Min: 0, Max: 10, Default: 2}
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidColor reports whether s is a #rrggbb color.
func ValidColor(s string) bool {
	return hexColor.MatchString(s)
}

// Property names a user-editable style attribute of a node.
type Property int

const (
	PropWidth Property = iota
	PropHeight
	PropFontSize
	PropBackgroundColor
	PropBorderColor
	PropBorderWidth
)

var propertyNames = map[Property]string{
	PropWidth:           "width",
	PropHeight:          "height",
	PropFontSize:        "fontSize",
	PropBackgroundColor: "backgroundColor",
	PropBorderColor:     "borderColor",
	PropBorderWidth:     "borderWidth",
}

func (p Property) String() string {
	if name, ok := propertyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("property(%d)", int(p))
}

// ParseProperty accepts the record field name of a property, case-insensitively.
func ParseProperty(s string) (Property, error) {
	for p, name := range propertyNames {
		if strings.EqualFold(name, s) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown node property: %q", s)
}

// IsColor reports whether the property holds a hex color.
func (p Property) IsColor() bool {
	return p == PropBackgroundColor || p == PropBorderColor
}

// Range returns the numeric bounds of the property.
func (p Property) Range() (Range, bool) {
	switch p {
	case PropWidth:
		return WidthRange, true
	case PropHeight:
		return HeightRange, true
	case PropFontSize:
		return FontSizeRange, true
	case PropBorderWidth:
		return BorderWidthRange, true
	default:
		return Range{}, false
	}
}
