package weave

import (
	"errors"
	"fmt"
	"go/token"
	"strings"
)

// Sentinel errors. Every typed error below matches exactly one of them via
// errors.Is.
var (
	ErrConflictingAttributes   = errors.New("conflicting attributes")
	ErrDuplicateObjectID       = errors.New("duplicate object id")
	ErrUnsupportedPropertyType = errors.New("unsupported property type")
	ErrDuplicateColumn         = errors.New("duplicate column")
	ErrReservedMember          = errors.New("reserved member")
	ErrAlreadyWoven            = errors.New("module already woven")
	ErrValidation              = errors.New("validation failed")
)

// Position is a source location in the input module.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

func positionOf(fset *token.FileSet, pos token.Pos) Position {
	if fset == nil || !pos.IsValid() {
		return Position{}
	}
	p := fset.Position(pos)
	return Position{File: p.Filename, Line: p.Line, Column: p.Column}
}

// Error is implemented by every positioned analysis error.
type Error interface {
	error
	Position() Position
}

type baseError struct {
	pos Position
	msg string
}

func (e *baseError) Position() Position { return e.pos }
func (e *baseError) Error() string {
	if e.pos.Line == 0 {
		return e.msg
	}
	return e.pos.String() + ": " + e.msg
}

// ConflictingAttributesError is reported for a property that is both the
// object id and ignored.
type ConflictingAttributesError struct {
	baseError
	Type     string
	Property string
}

func newConflictingAttributesError(pos Position, typeName, prop string) *ConflictingAttributesError {
	return &ConflictingAttributesError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("%s.%s: objectid and ignored are mutually exclusive", typeName, prop)},
		Type:      typeName,
		Property:  prop,
	}
}

func (e *ConflictingAttributesError) Is(target error) bool { return target == ErrConflictingAttributes }

// DuplicateObjectIDError is reported for the second objectid property of a
// type.
type DuplicateObjectIDError struct {
	baseError
	Type     string
	Property string
	First    string
}

func newDuplicateObjectIDError(pos Position, typeName, prop, first string) *DuplicateObjectIDError {
	return &DuplicateObjectIDError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("%s.%s: type already has object id %s", typeName, prop, first)},
		Type:      typeName,
		Property:  prop,
		First:     first,
	}
}

func (e *DuplicateObjectIDError) Is(target error) bool { return target == ErrDuplicateObjectID }

// UnsupportedPropertyTypeError is reported for a persisted property whose
// type has no storage representation.
type UnsupportedPropertyTypeError struct {
	baseError
	Type     string
	Property string
	GoType   string
}

func newUnsupportedPropertyTypeError(pos Position, typeName, prop, goType string) *UnsupportedPropertyTypeError {
	return &UnsupportedPropertyTypeError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("%s.%s: type %s cannot be persisted", typeName, prop, goType)},
		Type:      typeName,
		Property:  prop,
		GoType:    goType,
	}
}

func (e *UnsupportedPropertyTypeError) Is(target error) bool {
	return target == ErrUnsupportedPropertyType
}

// DuplicateColumnError is reported when two persisted properties of a type
// resolve to the same column.
type DuplicateColumnError struct {
	baseError
	Type     string
	Column   string
	Property string
	First    string
}

func newDuplicateColumnError(pos Position, typeName, column, prop, first string) *DuplicateColumnError {
	return &DuplicateColumnError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("%s.%s: column %q already used by %s", typeName, prop, column, first)},
		Type:      typeName,
		Column:    column,
		Property:  prop,
		First:     first,
	}
}

func (e *DuplicateColumnError) Is(target error) bool { return target == ErrDuplicateColumn }

// ReservedMemberError is reported when a model type already declares a
// member the weaver must generate.
type ReservedMemberError struct {
	baseError
	Type   string
	Member string
}

func newReservedMemberError(pos Position, typeName, member string) *ReservedMemberError {
	return &ReservedMemberError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("%s declares %s, which is generated by the weaver", typeName, member)},
		Type:      typeName,
		Member:    member,
	}
}

func (e *ReservedMemberError) Is(target error) bool { return target == ErrReservedMember }

// TagError positions an invalid realm tag on its backing field.
type TagError struct {
	baseError
	Type  string
	Field string
	Cause error
}

func newTagError(pos Position, typeName, field string, cause error) *TagError {
	return &TagError{
		baseError: baseError{pos: pos, msg: fmt.Sprintf("%s.%s: %v", typeName, field, cause)},
		Type:      typeName,
		Field:     field,
		Cause:     cause,
	}
}

func (e *TagError) Unwrap() error { return e.Cause }

// ValidationError is returned when a verifier rejects the woven output.
type ValidationError struct {
	Verifier string
	Cause    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s verifier: %v", e.Verifier, e.Cause)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Diagnostics collects every analysis error of a module.
type Diagnostics []error

func (d Diagnostics) Error() string {
	switch len(d) {
	case 0:
		return "no errors"
	case 1:
		return d[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(d))
	for _, err := range d {
		b.WriteString("\n\t")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (d Diagnostics) Unwrap() []error { return d }

// err returns d as an error, or nil when empty.
func (d Diagnostics) err() error {
	if len(d) == 0 {
		return nil
	}
	return d
}
