// Package document implements storage.Gateway over a single JSON document
// kept in a blob store:
//
//	{"Course": [...], "Student": [...], "Instructor": [...]}
//
// Every write loads the whole document, mutates it in memory and writes it
// back with one Put. A write that fails validation, or whose Put fails,
// leaves the stored document as it was.
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aanand-mishra/school-records/internal/blob"
	"github.com/aanand-mishra/school-records/internal/config"
	"github.com/aanand-mishra/school-records/internal/storage"
	"github.com/aanand-mishra/school-records/internal/types"
)

var _ storage.Gateway = (*Store)(nil)

// Store is the document gateway.
type Store struct {
	mu    sync.Mutex
	blobs blob.Store
	key   string
	log   *slog.Logger
}

// New returns a Store keeping its document at key in blobs.
func New(blobs blob.Store, key string, log *slog.Logger) *Store {
	return &Store{blobs: blobs, key: key, log: log}
}

// Open builds the blob store named by cfg.Document.Blob and wraps it.
func Open(ctx context.Context, cfg config.Storage, log *slog.Logger) (*Store, error) {
	blobs, err := blob.Open(ctx, cfg.Document.Blob)
	if err != nil {
		return nil, fmt.Errorf("document.Open: %w", err)
	}
	log.Info("document store ready",
		slog.String("driver", string(blobs.Driver())),
		slog.String("key", cfg.Document.Key))
	return New(blobs, cfg.Document.Key, log), nil
}

// Close is a no-op; the blob store holds no open handles.
func (s *Store) Close() error { return nil }

// ─────────────────────────────────────────────────────────────────────────────
// Fetch
// ─────────────────────────────────────────────────────────────────────────────

// FetchCourses returns the courses in stored order.
func (s *Store) FetchCourses(ctx context.Context) ([]types.Course, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchCourses: %w", err)
	}
	out := make([]types.Course, 0, len(doc.Course))
	for _, r := range doc.Course {
		out = append(out, r.course())
	}
	return out, nil
}

// FetchStudents returns the students in stored order.
func (s *Store) FetchStudents(ctx context.Context) ([]types.Student, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchStudents: %w", err)
	}
	out := make([]types.Student, 0, len(doc.Student))
	for _, r := range doc.Student {
		out = append(out, r.student())
	}
	return out, nil
}

// FetchInstructors returns the instructors in stored order.
func (s *Store) FetchInstructors(ctx context.Context) ([]types.Instructor, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchInstructors: %w", err)
	}
	out := make([]types.Instructor, 0, len(doc.Instructor))
	for _, r := range doc.Instructor {
		out = append(out, r.instructor())
	}
	return out, nil
}

func (s *Store) read(ctx context.Context) (*document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Courses
// ─────────────────────────────────────────────────────────────────────────────

// AddCourse appends c with no instructor and no students.
func (s *Store) AddCourse(ctx context.Context, c types.Course) types.Result {
	if res := c.Validate(); !res.OK {
		return res
	}
	return s.update(ctx, "AddCourse", func(doc *document) types.Result {
		if doc.courseAt(c.CourseID) >= 0 {
			return storage.AlreadyExists(types.KindCourse)
		}
		doc.Course = append(doc.Course, courseRecord{CourseID: c.CourseID, CourseName: c.CourseName, EnrolledStudents: []string{}})
		return storage.Added(types.KindCourse, c.CourseName)
	})
}

// EditCourse renames the stored course.
func (s *Store) EditCourse(ctx context.Context, c types.Course) types.Result {
	if res := c.Validate(); !res.OK {
		return res
	}
	return s.update(ctx, "EditCourse", func(doc *document) types.Result {
		i := doc.courseAt(c.CourseID)
		if i < 0 {
			return storage.NotInTable(types.KindCourse)
		}
		doc.Course[i].CourseName = c.CourseName
		return storage.Edited(types.KindCourse, c.CourseName)
	})
}

// DeleteCourse removes the course and scrubs its ID from every student's
// and instructor's course list.
func (s *Store) DeleteCourse(ctx context.Context, c types.Course) types.Result {
	return s.update(ctx, "DeleteCourse", func(doc *document) types.Result {
		i := doc.courseAt(c.CourseID)
		if i < 0 {
			return storage.NotInTable(types.KindCourse)
		}
		doc.Course = slices.Delete(doc.Course, i, i+1)
		for j := range doc.Student {
			doc.Student[j].RegisteredCourses = remove(doc.Student[j].RegisteredCourses, c.CourseID)
		}
		for j := range doc.Instructor {
			doc.Instructor[j].AssignedCourses = remove(doc.Instructor[j].AssignedCourses, c.CourseID)
		}
		return storage.Deleted(types.KindCourse, c.CourseName)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

// AddStudent appends st with an empty course list.
func (s *Store) AddStudent(ctx context.Context, st types.Student) types.Result {
	if res := st.Validate(); !res.OK {
		return res
	}
	return s.update(ctx, "AddStudent", func(doc *document) types.Result {
		if doc.studentAt(st.StudentID) >= 0 {
			return storage.AlreadyExists(types.KindStudent)
		}
		doc.Student = append(doc.Student, studentRecord{
			StudentID: st.StudentID, Name: st.Name, Age: st.Age, Email: st.Email,
			RegisteredCourses: []string{},
		})
		return storage.Added(types.KindStudent, st.Name)
	})
}

// EditStudent overwrites the scalar fields of the stored student.
func (s *Store) EditStudent(ctx context.Context, st types.Student) types.Result {
	if res := st.Validate(); !res.OK {
		return res
	}
	return s.update(ctx, "EditStudent", func(doc *document) types.Result {
		i := doc.studentAt(st.StudentID)
		if i < 0 {
			return storage.NotInTable(types.KindStudent)
		}
		r := &doc.Student[i]
		r.Name, r.Age, r.Email = st.Name, st.Age, st.Email
		return storage.Edited(types.KindStudent, st.Name)
	})
}

// DeleteStudent removes the student and scrubs it from every course.
func (s *Store) DeleteStudent(ctx context.Context, st types.Student) types.Result {
	return s.update(ctx, "DeleteStudent", func(doc *document) types.Result {
		i := doc.studentAt(st.StudentID)
		if i < 0 {
			return storage.NotInTable(types.KindStudent)
		}
		doc.Student = slices.Delete(doc.Student, i, i+1)
		for j := range doc.Course {
			doc.Course[j].EnrolledStudents = remove(doc.Course[j].EnrolledStudents, st.StudentID)
		}
		return storage.Deleted(types.KindStudent, st.Name)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Instructors
// ─────────────────────────────────────────────────────────────────────────────

// AddInstructor appends in with an empty course list.
func (s *Store) AddInstructor(ctx context.Context, in types.Instructor) types.Result {
	if res := in.Validate(); !res.OK {
		return res
	}
	return s.update(ctx, "AddInstructor", func(doc *document) types.Result {
		if doc.instructorAt(in.InstructorID) >= 0 {
			return storage.AlreadyExists(types.KindInstructor)
		}
		doc.Instructor = append(doc.Instructor, instructorRecord{
			InstructorID: in.InstructorID, Name: in.Name, Age: in.Age, Email: in.Email,
			AssignedCourses: []string{},
		})
		return storage.Added(types.KindInstructor, in.Name)
	})
}

// EditInstructor overwrites the scalar fields of the stored instructor.
func (s *Store) EditInstructor(ctx context.Context, in types.Instructor) types.Result {
	if res := in.Validate(); !res.OK {
		return res
	}
	return s.update(ctx, "EditInstructor", func(doc *document) types.Result {
		i := doc.instructorAt(in.InstructorID)
		if i < 0 {
			return storage.NotInTable(types.KindInstructor)
		}
		r := &doc.Instructor[i]
		r.Name, r.Age, r.Email = in.Name, in.Age, in.Email
		return storage.Edited(types.KindInstructor, in.Name)
	})
}

// DeleteInstructor clears the instructor on every course it taught.
func (s *Store) DeleteInstructor(ctx context.Context, in types.Instructor) types.Result {
	return s.update(ctx, "DeleteInstructor", func(doc *document) types.Result {
		i := doc.instructorAt(in.InstructorID)
		if i < 0 {
			return storage.NotInTable(types.KindInstructor)
		}
		doc.Instructor = slices.Delete(doc.Instructor, i, i+1)
		for j := range doc.Course {
			if doc.Course[j].InstructorID != nil && *doc.Course[j].InstructorID == in.InstructorID {
				doc.Course[j].InstructorID = nil
			}
		}
		return storage.Deleted(types.KindInstructor, in.Name)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Relationships
//
// Both embedded arrays change in the same document write.
// ─────────────────────────────────────────────────────────────────────────────

// RegisterCourse appends each ID to the other record's list.
func (s *Store) RegisterCourse(ctx context.Context, st types.Student, c types.Course) types.Result {
	return s.update(ctx, "RegisterCourse", func(doc *document) types.Result {
		si, ci, res := doc.pair(st.Ref(), c.Ref())
		if !res.OK {
			return res
		}
		sr, cr := &doc.Student[si], &doc.Course[ci]
		if slices.Contains(sr.RegisteredCourses, c.CourseID) || slices.Contains(cr.EnrolledStudents, st.StudentID) {
			return storage.AlreadyRegistered()
		}
		sr.RegisteredCourses = append(sr.RegisteredCourses, c.CourseID)
		cr.EnrolledStudents = append(cr.EnrolledStudents, st.StudentID)
		return storage.Registered(st, c)
	})
}

// UnregisterCourse removes the pair from both lists.
func (s *Store) UnregisterCourse(ctx context.Context, st types.Student, c types.Course) types.Result {
	return s.update(ctx, "UnregisterCourse", func(doc *document) types.Result {
		si, ci := doc.studentAt(st.StudentID), doc.courseAt(c.CourseID)
		if si < 0 || ci < 0 {
			return storage.NotRegistered()
		}
		sr, cr := &doc.Student[si], &doc.Course[ci]
		if !slices.Contains(sr.RegisteredCourses, c.CourseID) && !slices.Contains(cr.EnrolledStudents, st.StudentID) {
			return storage.NotRegistered()
		}
		sr.RegisteredCourses = remove(sr.RegisteredCourses, c.CourseID)
		cr.EnrolledStudents = remove(cr.EnrolledStudents, st.StudentID)
		return storage.Unregistered(st, c)
	})
}

// AssignInstructor replaces any current instructor on the course and moves
// the course between the two instructors' lists.
func (s *Store) AssignInstructor(ctx context.Context, in types.Instructor, c types.Course) types.Result {
	return s.update(ctx, "AssignInstructor", func(doc *document) types.Result {
		ii, ci, res := doc.pair(in.Ref(), c.Ref())
		if !res.OK {
			return res
		}
		cr := &doc.Course[ci]
		if cr.InstructorID != nil && *cr.InstructorID != in.InstructorID {
			if prev := doc.instructorAt(*cr.InstructorID); prev >= 0 {
				doc.Instructor[prev].AssignedCourses = remove(doc.Instructor[prev].AssignedCourses, c.CourseID)
			}
		}
		id := in.InstructorID
		cr.InstructorID = &id
		ir := &doc.Instructor[ii]
		if !slices.Contains(ir.AssignedCourses, c.CourseID) {
			ir.AssignedCourses = append(ir.AssignedCourses, c.CourseID)
		}
		return storage.Assigned(in, c)
	})
}

// UnassignInstructor clears instructor_id and drops the course from the
// instructor's list.
func (s *Store) UnassignInstructor(ctx context.Context, in types.Instructor, c types.Course) types.Result {
	return s.update(ctx, "UnassignInstructor", func(doc *document) types.Result {
		ci := doc.courseAt(c.CourseID)
		if ci < 0 || doc.Course[ci].InstructorID == nil || *doc.Course[ci].InstructorID != in.InstructorID {
			return storage.NotAssigned()
		}
		doc.Course[ci].InstructorID = nil
		if ii := doc.instructorAt(in.InstructorID); ii >= 0 {
			doc.Instructor[ii].AssignedCourses = remove(doc.Instructor[ii].AssignedCourses, c.CourseID)
		}
		return storage.Unassigned(in, c)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// update loads the document, applies fn and writes the document back only
// when fn succeeds.
func (s *Store) update(ctx context.Context, op string, fn func(doc *document) types.Result) types.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return s.fail(op, err)
	}
	res := fn(doc)
	if !res.OK {
		return res
	}
	if err := s.save(ctx, doc); err != nil {
		return s.fail(op, err)
	}
	return res
}

// load returns an empty document when nothing has been stored yet.
func (s *Store) load(ctx context.Context) (*document, error) {
	raw, err := blob.ReadAll(ctx, s.blobs, s.key)
	if errors.Is(err, blob.ErrNotFound) {
		return newDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	doc := newDocument()
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("load: decode %s: %w", s.key, err)
	}
	// A table written as null decodes to nil; keep it a list on save.
	if doc.Course == nil {
		doc.Course = []courseRecord{}
	}
	if doc.Student == nil {
		doc.Student = []studentRecord{}
	}
	if doc.Instructor == nil {
		doc.Instructor = []instructorRecord{}
	}
	return doc, nil
}

func (s *Store) save(ctx context.Context, doc *document) error {
	raw, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("save: encode: %w", err)
	}
	if err := s.blobs.Put(ctx, s.key, bytes.NewReader(raw), blob.PutOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func (s *Store) fail(op string, err error) types.Result {
	err = fmt.Errorf("%s: %w", op, err)
	s.log.Error("document write failed", slog.String("op", op), slog.String("error", err.Error()))
	return types.BackendFailure(err)
}
