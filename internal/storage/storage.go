// Package storage defines the Gateway interface, the contract every durable
// backend must satisfy to hold the school's records.
//
// Callers depend only on this interface, so the relational and document
// backends are interchangeable: switching is a config change in main.go.
//
// Expected failures (validation, duplicate IDs, missing records) come back
// as a failed types.Result. Infrastructure failures are also flattened into
// a Result at the gateway boundary, after any partial writes were rolled
// back.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/aanand-mishra/school-records/internal/types"
)

// Gateway is the persistence contract.
type Gateway interface {
	// FetchCourses returns every course with its enrolled students and
	// instructor populated.
	FetchCourses(ctx context.Context) ([]types.Course, error)
	// FetchStudents returns every student with registered courses populated.
	FetchStudents(ctx context.Context) ([]types.Student, error)
	// FetchInstructors returns every instructor with assigned courses populated.
	FetchInstructors(ctx context.Context) ([]types.Instructor, error)

	// Add validates and inserts a new record; an existing ID is a conflict.
	// Relationship fields on the record are not written.
	AddCourse(ctx context.Context, c types.Course) types.Result
	AddStudent(ctx context.Context, s types.Student) types.Result
	AddInstructor(ctx context.Context, i types.Instructor) types.Result

	// Edit validates and overwrites the scalar fields of an existing record.
	// Relationship fields are left alone; they change only through the
	// relationship writes below.
	EditCourse(ctx context.Context, c types.Course) types.Result
	EditStudent(ctx context.Context, s types.Student) types.Result
	EditInstructor(ctx context.Context, i types.Instructor) types.Result

	// Delete removes a record. Course and Student deletes remove their
	// enrollments; Instructor deletes clear the instructor on its courses.
	DeleteCourse(ctx context.Context, c types.Course) types.Result
	DeleteStudent(ctx context.Context, s types.Student) types.Result
	DeleteInstructor(ctx context.Context, i types.Instructor) types.Result

	// Relationship writes are not validated against entity rules.
	RegisterCourse(ctx context.Context, s types.Student, c types.Course) types.Result
	UnregisterCourse(ctx context.Context, s types.Student, c types.Course) types.Result
	AssignInstructor(ctx context.Context, i types.Instructor, c types.Course) types.Result
	UnassignInstructor(ctx context.Context, i types.Instructor, c types.Course) types.Result

	Close() error
}

// ─────────────────────────────────────────────────────────────────────────────
// Messages shared by every backend so the two variants report identically.
// ─────────────────────────────────────────────────────────────────────────────

// AlreadyExists is the conflict reported when an Add finds the ID taken.
func AlreadyExists(k types.Kind) types.Result {
	return types.Failure(types.ErrConflict, fmt.Sprintf("%s already exists in table", k))
}

// NotInTable reports that no row or record of kind k has the given ID.
func NotInTable(k types.Kind) types.Result {
	return types.Failure(types.ErrNotFound, fmt.Sprintf("%s not in table", k))
}

// NotRegistered is returned by UnregisterCourse when the student was not enrolled.
func NotRegistered() types.Result {
	return types.Failure(types.ErrNotFound, "Student not registered in course")
}

// AlreadyRegistered is returned by RegisterCourse for an existing enrollment.
func AlreadyRegistered() types.Result {
	return types.Failure(types.ErrConflict, "Student already registered in course")
}

// NotAssigned is returned by UnassignInstructor when the course has another
// instructor or none.
func NotAssigned() types.Result {
	return types.Failure(types.ErrNotFound, "Instructor not assigned to course")
}

// Added reports a successful insert.
func Added(k types.Kind, name string) types.Result {
	return types.Success(fmt.Sprintf("Added %s %s to table", lower(k), name))
}

// Edited reports a successful update.
func Edited(k types.Kind, name string) types.Result {
	return types.Success(fmt.Sprintf("Edited %s %s in table", lower(k), name))
}

// Deleted reports a successful delete, cascades included.
func Deleted(k types.Kind, name string) types.Result {
	return types.Success(fmt.Sprintf("Deleted %s %s from table", lower(k), name))
}

// Registered reports a new enrollment.
func Registered(s types.Student, c types.Course) types.Result {
	return types.Success(fmt.Sprintf("Added student %s to course %s", s.Name, c.CourseName))
}

// Unregistered reports a removed enrollment.
func Unregistered(s types.Student, c types.Course) types.Result {
	return types.Success(fmt.Sprintf("Removed student %s from course %s", s.Name, c.CourseName))
}

// Assigned reports an instructor placed on a course.
func Assigned(i types.Instructor, c types.Course) types.Result {
	return types.Success(fmt.Sprintf("Added instructor %s to course %s", i.Name, c.CourseName))
}

// Unassigned reports an instructor taken off a course.
func Unassigned(i types.Instructor, c types.Course) types.Result {
	return types.Success(fmt.Sprintf("Removed instructor %s from course %s", i.Name, c.CourseName))
}

func lower(k types.Kind) string { return strings.ToLower(string(k)) }

// SplitIDs turns a comma-joined ID list (as produced by a group-concat) into
// a slice. An empty or absent list yields an empty, non-nil slice.
func SplitIDs(joined string) []string {
	out := []string{}
	for _, id := range strings.Split(joined, ",") {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
