package access

import (
	"errors"
	"fmt"
)

// ForbiddenError indicates an authenticated caller without the required
// standing on a list or task. OwnerRequired distinguishes owner-gated
// operations from plain membership checks so the transport layer can report
// the right message.
type ForbiddenError struct {
	OwnerRequired bool
}

func (e ForbiddenError) Error() string {
	if e.OwnerRequired {
		return "only the owner can perform this action"
	}
	return "access denied"
}

// Conflict reasons for membership mutations.
const (
	ConflictAlreadyMember = "already_member"
	ConflictSelfReference = "self_reference"
	ConflictSelfRemoval   = "self_removal"
)

// ConflictError indicates a membership rule violation rather than a
// permission problem.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string {
	switch e.Reason {
	case ConflictAlreadyMember:
		return "user is already a member"
	case ConflictSelfReference:
		return "you cannot add yourself"
	case ConflictSelfRemoval:
		return "owner cannot remove themselves"
	}
	return fmt.Sprintf("conflict: %s", e.Reason)
}

// ValidationError indicates a missing or malformed required field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// ErrNoFields is returned by update operations called with an empty patch,
// distinct from not-found: the row exists but there is nothing to write.
var ErrNoFields = errors.New("no fields to update")
