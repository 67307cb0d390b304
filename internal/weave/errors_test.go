package weave

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/realmweave/pkg/attr"
)

func TestErrors_MatchSentinels(t *testing.T) {
	pos := Position{File: "a.go", Line: 3, Column: 1}
	tests := []struct {
		err    error
		target error
	}{
		{newConflictingAttributesError(pos, "T", "A"), ErrConflictingAttributes},
		{newDuplicateObjectIDError(pos, "T", "B", "A"), ErrDuplicateObjectID},
		{newUnsupportedPropertyTypeError(pos, "T", "A", "chan int"), ErrUnsupportedPropertyType},
		{newDuplicateColumnError(pos, "T", "c", "B", "A"), ErrDuplicateColumn},
		{newReservedMemberError(pos, "T", "BindRow"), ErrReservedMember},
		{newTagError(pos, "T", "a", &attr.InvalidTagError{Option: "x", Reason: "unknown option"}), attr.ErrInvalidTag},
		{&ValidationError{Verifier: "v", Cause: errors.New("boom")}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T", tt.err), func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.target))
			assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", tt.err), tt.target))
			assert.False(t, errors.Is(tt.err, ErrAlreadyWoven))
		})
	}
}

func TestErrors_Position(t *testing.T) {
	err := newDuplicateObjectIDError(Position{File: "m/a.go", Line: 12, Column: 2}, "Person", "Key", "ID")
	assert.Equal(t, "m/a.go:12:2: Person.Key: type already has object id ID", err.Error())

	err = newDuplicateObjectIDError(Position{}, "Person", "Key", "ID")
	assert.Equal(t, "Person.Key: type already has object id ID", err.Error())
}

func TestDiagnostics(t *testing.T) {
	var empty Diagnostics
	assert.NoError(t, empty.err())

	one := Diagnostics{newReservedMemberError(Position{}, "T", "BindRow")}
	assert.Equal(t, "T declares BindRow, which is generated by the weaver", one.Error())

	two := Diagnostics{
		newReservedMemberError(Position{}, "T", "BindRow"),
		newConflictingAttributesError(Position{}, "T", "A"),
	}
	assert.Equal(t, "2 errors:\n\tT declares BindRow, which is generated by the weaver\n\tT.A: objectid and ignored are mutually exclusive", two.Error())
	assert.True(t, errors.Is(two.err(), ErrReservedMember))
	assert.True(t, errors.Is(two.err(), ErrConflictingAttributes))

	var conflict *ConflictingAttributesError
	assert.True(t, errors.As(two.err(), &conflict))
	assert.Equal(t, "A", conflict.Property)
}

func TestPhaseAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "analyzing", PhaseAnalyzing.String())
	assert.True(t, PhaseFailed.Terminal())
	assert.False(t, PhaseRewriting.Terminal())
	assert.Equal(t, "already_woven", OutcomeAlreadyWoven.String())
	assert.Equal(t, "objectid", ObjectID.String())
}
