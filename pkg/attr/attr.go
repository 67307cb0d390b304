// Package attr defines the markers a model author attaches to types and
// properties to control how they are woven into row storage.
//
// Property markers live in a `realm` struct tag on the backing field of an
// accessor pair:
//
//	type Person struct {
//		id        int64  `realm:"objectid"`
//		email     string `realm:"indexed,mapto=Email2"`
//		scratch   string `realm:"ignored"`
//	}
//
// Type and file markers are directive comments (`//realm:woven`,
// `//realm:mapto Table`).
package attr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// TagKey is the struct tag key read by the weaver.
const TagKey = "realm"

// DirectivePrefix starts every realm directive comment.
const DirectivePrefix = "//realm:"

// Marker is a single boolean property marker.
type Marker uint8

// Property markers.
const (
	ObjectID Marker = 1 << iota
	Indexed
	Ignored
)

func (m Marker) String() string {
	switch m {
	case ObjectID:
		return "objectid"
	case Indexed:
		return "indexed"
	case Ignored:
		return "ignored"
	default:
		return fmt.Sprintf("Marker(%d)", uint8(m))
	}
}

// Set is the parsed content of one realm struct tag.
type Set struct {
	markers Marker
	// MapTo overrides the column name when non-empty.
	MapTo string
}

// Has reports whether m is present in the set.
func (s Set) Has(m Marker) bool { return s.markers&m != 0 }

// With returns a copy of s with m added.
func (s Set) With(m Marker) Set {
	s.markers |= m
	return s
}

// IsZero reports whether the tag carried no markers at all.
func (s Set) IsZero() bool { return s.markers == 0 && s.MapTo == "" }

func (s Set) String() string {
	var parts []string
	for _, m := range []Marker{ObjectID, Indexed, Ignored} {
		if s.Has(m) {
			parts = append(parts, m.String())
		}
	}
	if s.MapTo != "" {
		parts = append(parts, "mapto="+s.MapTo)
	}
	return strings.Join(parts, ",")
}

// ErrInvalidTag is matched by every *InvalidTagError.
var ErrInvalidTag = errors.New("invalid realm tag")

// InvalidTagError reports a malformed realm tag option.
type InvalidTagError struct {
	Option string
	Reason string
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("invalid realm tag option %q: %s", e.Option, e.Reason)
}

func (e *InvalidTagError) Is(target error) bool {
	return target == ErrInvalidTag
}

// Parse reads the realm options of a struct tag. A missing realm key yields
// the zero Set.
func Parse(tag reflect.StructTag) (Set, error) {
	value, ok := tag.Lookup(TagKey)
	if !ok {
		return Set{}, nil
	}
	return ParseOptions(value)
}

// ParseOptions parses the comma separated option list of a realm tag.
func ParseOptions(value string) (Set, error) {
	var s Set
	for _, raw := range strings.Split(value, ",") {
		opt := strings.TrimSpace(raw)
		switch {
		case opt == "":
			continue
		case opt == "-" || opt == "ignored":
			s.markers |= Ignored
		case opt == "objectid":
			s.markers |= ObjectID
		case opt == "indexed":
			s.markers |= Indexed
		case strings.HasPrefix(opt, "mapto="):
			name := strings.TrimSpace(strings.TrimPrefix(opt, "mapto="))
			if name == "" {
				return Set{}, &InvalidTagError{Option: opt, Reason: "mapping name is empty"}
			}
			if s.MapTo != "" && s.MapTo != name {
				return Set{}, &InvalidTagError{Option: opt, Reason: "mapping already set to " + s.MapTo}
			}
			s.MapTo = name
		default:
			return Set{}, &InvalidTagError{Option: opt, Reason: "unknown option"}
		}
	}
	return s, nil
}

// DirectiveKind names a realm directive comment.
type DirectiveKind string

// Known directives.
const (
	DirectiveWoven DirectiveKind = "woven"
	DirectiveMapTo DirectiveKind = "mapto"
)

// Directive is a parsed `//realm:<kind> [arg]` comment line.
type Directive struct {
	Kind DirectiveKind
	Arg  string
}

func (d Directive) String() string {
	if d.Arg == "" {
		return DirectivePrefix + string(d.Kind)
	}
	return DirectivePrefix + string(d.Kind) + " " + d.Arg
}

// ParseDirective parses one comment line. It reports false for comments that
// are not realm directives.
func ParseDirective(text string) (Directive, bool) {
	if !strings.HasPrefix(text, DirectivePrefix) {
		return Directive{}, false
	}
	rest := strings.TrimPrefix(text, DirectivePrefix)
	kind, arg, _ := strings.Cut(rest, " ")
	if kind == "" {
		return Directive{}, false
	}
	return Directive{Kind: DirectiveKind(kind), Arg: strings.TrimSpace(arg)}, true
}
