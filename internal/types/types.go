// Package types holds the school's entity model: the Student, Instructor
// and Course records, their validation rules and the half-operations that
// mutate the relationships between them.
//
// Nothing in this package performs I/O. Storage backends, the shared
// registry and the HTTP handlers all import types without depending on
// each other.
package types

import "strings"

// Kind names an entity collection. The values double as the top-level keys
// of the document store and as the subject of user-facing messages.
type Kind string

const (
	KindCourse     Kind = "Course"
	KindStudent    Kind = "Student"
	KindInstructor Kind = "Instructor"
)

// Ref is a tagged entity identifier: the collection an ID belongs to plus
// the ID itself. Two refs are equal only when both parts match.
type Ref struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (r Ref) String() string { return string(r.Kind) + ":" + r.ID }

// ErrKind classifies a failed Result so callers can branch without parsing
// messages.
type ErrKind string

const (
	ErrNone       ErrKind = ""
	ErrValidation ErrKind = "validation"
	ErrConflict   ErrKind = "conflict"
	ErrNotFound   ErrKind = "not_found"
	ErrBackend    ErrKind = "backend"
)

// Result is the outcome of every validation, relationship change and
// gateway write. Expected failures are reported here, never as Go errors.
type Result struct {
	OK       bool     `json:"ok"`
	Kind     ErrKind  `json:"kind,omitempty"`
	Messages []string `json:"messages"`
}

// Success builds an ok Result.
func Success(messages ...string) Result {
	return Result{OK: true, Messages: messages}
}

// Failure builds a failed Result of the given kind.
func Failure(kind ErrKind, messages ...string) Result {
	return Result{OK: false, Kind: kind, Messages: messages}
}

// BackendFailure flattens an infrastructure error into a Result.
func BackendFailure(err error) Result {
	return Failure(ErrBackend, err.Error())
}

// Merge concatenates the messages of two failed results. The kind of the
// first failure wins.
func Merge(a, b Result) Result {
	out := Result{OK: a.OK && b.OK, Kind: a.Kind}
	if out.Kind == ErrNone {
		out.Kind = b.Kind
	}
	out.Messages = append(append([]string{}, a.Messages...), b.Messages...)
	return out
}

// String joins the messages one per line, the way they are shown to users.
func (r Result) String() string { return strings.Join(r.Messages, "\n") }

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func cloneIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
