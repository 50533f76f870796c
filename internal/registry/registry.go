// Package registry keeps the process-wide in-memory mirror of every
// entity and keeps it in step with the storage gateway.
//
// Each mutation follows the same protocol: apply the change to working
// copies of the cached entities, ask the gateway to persist it, and commit
// the working copies to the cache only if the gateway reports success. A
// failed call leaves the cache exactly as it was.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aanand-mishra/school-records/internal/storage"
	"github.com/aanand-mishra/school-records/internal/types"
)

// Registry is the shared cache. The zero value is not usable; call New.
type Registry struct {
	mu  sync.Mutex
	gw  storage.Gateway
	log *slog.Logger

	courses     []types.Course
	students    []types.Student
	instructors []types.Instructor
}

// New returns an empty Registry over gw. Call Load before serving reads.
func New(gw storage.Gateway, log *slog.Logger) *Registry {
	return &Registry{gw: gw, log: log}
}

// Load fetches all three collections and replaces the cache. If any fetch
// fails the cache keeps its previous contents.
//
// The lock is held across the fetches, so no mutation can commit between
// the read of storage and the swap and then be overwritten by it.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Refresh re-reads everything from the gateway. It is the only way the
// cache is re-derived after startup.
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// load does the work of Load. Callers hold r.mu.
func (r *Registry) load(ctx context.Context) error {
	courses, err := r.gw.FetchCourses(ctx)
	if err != nil {
		return fmt.Errorf("registry.Load: %w", err)
	}
	instructors, err := r.gw.FetchInstructors(ctx)
	if err != nil {
		return fmt.Errorf("registry.Load: %w", err)
	}
	students, err := r.gw.FetchStudents(ctx)
	if err != nil {
		return fmt.Errorf("registry.Load: %w", err)
	}

	r.courses, r.instructors, r.students = courses, instructors, students

	r.log.Info("registry loaded",
		slog.Int("courses", len(courses)),
		slog.Int("instructors", len(instructors)),
		slog.Int("students", len(students)))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads. Every read returns copies; callers cannot reach cached entities.
// ─────────────────────────────────────────────────────────────────────────────

// Courses returns every cached course in cache order.
func (r *Registry) Courses() []types.Course {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Course, len(r.courses))
	for i, c := range r.courses {
		out[i] = c.Clone()
	}
	return out
}

// Students returns every cached student in cache order.
func (r *Registry) Students() []types.Student {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Student, len(r.students))
	for i, s := range r.students {
		out[i] = s.Clone()
	}
	return out
}

// Instructors returns every cached instructor in cache order.
func (r *Registry) Instructors() []types.Instructor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Instructor, len(r.instructors))
	for i, in := range r.instructors {
		out[i] = in.Clone()
	}
	return out
}

// Course looks up one course by ID.
func (r *Registry) Course(id string) (types.Course, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.courseAt(id); i >= 0 {
		return r.courses[i].Clone(), true
	}
	return types.Course{}, false
}

// Student looks up one student by ID.
func (r *Registry) Student(id string) (types.Student, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.studentAt(id); i >= 0 {
		return r.students[i].Clone(), true
	}
	return types.Student{}, false
}

// Instructor looks up one instructor by ID.
func (r *Registry) Instructor(id string) (types.Instructor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.instructorAt(id); i >= 0 {
		return r.instructors[i].Clone(), true
	}
	return types.Instructor{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

// AddCourse persists a new course. Relationship fields on c are ignored;
// a new course starts unassigned and empty.
func (r *Registry) AddCourse(ctx context.Context, c types.Course) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := types.NewCourse(c.CourseID, c.CourseName)
	res := r.gw.AddCourse(ctx, fresh)
	if r.settled("AddCourse", res) {
		r.courses = append(r.courses, fresh)
	}
	return res
}

// AddStudent persists a new student with no registered courses.
func (r *Registry) AddStudent(ctx context.Context, s types.Student) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := types.NewStudent(s.StudentID, s.Name, s.Age, s.Email)
	res := r.gw.AddStudent(ctx, fresh)
	if r.settled("AddStudent", res) {
		r.students = append(r.students, fresh)
	}
	return res
}

// AddInstructor persists a new instructor with no assigned courses.
func (r *Registry) AddInstructor(ctx context.Context, in types.Instructor) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := types.NewInstructor(in.InstructorID, in.Name, in.Age, in.Email)
	res := r.gw.AddInstructor(ctx, fresh)
	if r.settled("AddInstructor", res) {
		r.instructors = append(r.instructors, fresh)
	}
	return res
}

// ─────────────────────────────────────────────────────────────────────────────
// Edit. The cached entry is replaced in place, matched by ID.
// ─────────────────────────────────────────────────────────────────────────────

// EditCourse renames course id. The edited copy is validated before the
// gateway sees it.
func (r *Registry) EditCourse(ctx context.Context, id, name string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.courseAt(id)
	if i < 0 {
		return notFound(types.KindCourse, id)
	}
	work := r.courses[i].Clone()
	work.CourseName = name
	if res := work.Validate(); !res.OK {
		return res
	}
	res := r.gw.EditCourse(ctx, work)
	if r.settled("EditCourse", res) {
		r.courses[i] = work
	}
	return res
}

// EditStudent replaces the name, age and email of student id. Registered
// courses are kept.
func (r *Registry) EditStudent(ctx context.Context, id, name string, age int, email string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.studentAt(id)
	if i < 0 {
		return notFound(types.KindStudent, id)
	}
	work := r.students[i].Clone()
	work.Name, work.Age, work.Email = name, age, email
	if res := work.Validate(); !res.OK {
		return res
	}
	res := r.gw.EditStudent(ctx, work)
	if r.settled("EditStudent", res) {
		r.students[i] = work
	}
	return res
}

// EditInstructor replaces the name, age and email of instructor id.
func (r *Registry) EditInstructor(ctx context.Context, id, name string, age int, email string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.instructorAt(id)
	if i < 0 {
		return notFound(types.KindInstructor, id)
	}
	work := r.instructors[i].Clone()
	work.Name, work.Age, work.Email = name, age, email
	if res := work.Validate(); !res.OK {
		return res
	}
	res := r.gw.EditInstructor(ctx, work)
	if r.settled("EditInstructor", res) {
		r.instructors[i] = work
	}
	return res
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete. Cascades mirror what the gateway does to storage.
// ─────────────────────────────────────────────────────────────────────────────

// DeleteCourse removes the course and drops it from every student's and
// instructor's list.
func (r *Registry) DeleteCourse(ctx context.Context, id string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.courseAt(id)
	if i < 0 {
		return notFound(types.KindCourse, id)
	}
	c := r.courses[i]
	res := r.gw.DeleteCourse(ctx, c)
	if !r.settled("DeleteCourse", res) {
		return res
	}
	r.courses = slices.Delete(r.courses, i, i+1)
	for j := range r.students {
		if slices.Contains(r.students[j].RegisteredCourses, id) {
			r.students[j].UnregisterCourse(c)
		}
	}
	for j := range r.instructors {
		if slices.Contains(r.instructors[j].AssignedCourses, id) {
			r.instructors[j].UnassignCourse(c)
		}
	}
	return res
}

// DeleteStudent removes the student and unenrolls it from its courses.
func (r *Registry) DeleteStudent(ctx context.Context, id string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.studentAt(id)
	if i < 0 {
		return notFound(types.KindStudent, id)
	}
	s := r.students[i]
	res := r.gw.DeleteStudent(ctx, s)
	if !r.settled("DeleteStudent", res) {
		return res
	}
	r.students = slices.Delete(r.students, i, i+1)
	for j := range r.courses {
		if slices.Contains(r.courses[j].EnrolledStudents, id) {
			r.courses[j].UnenrollStudent(s)
		}
	}
	return res
}

// DeleteInstructor removes the instructor and leaves its courses
// unassigned.
func (r *Registry) DeleteInstructor(ctx context.Context, id string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.instructorAt(id)
	if i < 0 {
		return notFound(types.KindInstructor, id)
	}
	in := r.instructors[i]
	res := r.gw.DeleteInstructor(ctx, in)
	if !r.settled("DeleteInstructor", res) {
		return res
	}
	r.instructors = slices.Delete(r.instructors, i, i+1)
	for j := range r.courses {
		if r.courses[j].InstructorID == id {
			r.courses[j].UnassignInstructor(in)
		}
	}
	return res
}

// ─────────────────────────────────────────────────────────────────────────────
// Relationships. Both halves run on working copies; if either half fails
// the messages of every failed half are reported and nothing is persisted.
// ─────────────────────────────────────────────────────────────────────────────

// Register enrolls studentID in courseID. Both sides are checked on working
// copies first, and both sets of messages come back when both refuse.
func (r *Registry) Register(ctx context.Context, studentID, courseID string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	si, ci, res := r.studentAndCourse(studentID, courseID)
	if !res.OK {
		return res
	}
	s, c := r.students[si].Clone(), r.courses[ci].Clone()
	if res := halves(s.RegisterCourse(c), c.EnrollStudent(s)); !res.OK {
		return res
	}
	res = r.gw.RegisterCourse(ctx, s, c)
	if r.settled("Register", res) {
		r.students[si], r.courses[ci] = s, c
	}
	return res
}

// Unregister reverses Register.
func (r *Registry) Unregister(ctx context.Context, studentID, courseID string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	si, ci, res := r.studentAndCourse(studentID, courseID)
	if !res.OK {
		return res
	}
	s, c := r.students[si].Clone(), r.courses[ci].Clone()
	if res := halves(s.UnregisterCourse(c), c.UnenrollStudent(s)); !res.OK {
		return res
	}
	res = r.gw.UnregisterCourse(ctx, s, c)
	if r.settled("Unregister", res) {
		r.students[si], r.courses[ci] = s, c
	}
	return res
}

// Assign makes instructorID the instructor of courseID. A course that
// already has an instructor is refused.
func (r *Registry) Assign(ctx context.Context, instructorID, courseID string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	ii, ci, res := r.instructorAndCourse(instructorID, courseID)
	if !res.OK {
		return res
	}
	in, c := r.instructors[ii].Clone(), r.courses[ci].Clone()
	if res := halves(in.AssignCourse(c), c.AssignInstructor(in)); !res.OK {
		return res
	}
	res = r.gw.AssignInstructor(ctx, in, c)
	if r.settled("Assign", res) {
		r.instructors[ii], r.courses[ci] = in, c
	}
	return res
}

// Unassign takes instructorID off courseID.
func (r *Registry) Unassign(ctx context.Context, instructorID, courseID string) types.Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	ii, ci, res := r.instructorAndCourse(instructorID, courseID)
	if !res.OK {
		return res
	}
	in, c := r.instructors[ii].Clone(), r.courses[ci].Clone()
	if res := halves(in.UnassignCourse(c), c.UnassignInstructor(in)); !res.OK {
		return res
	}
	res = r.gw.UnassignInstructor(ctx, in, c)
	if r.settled("Unassign", res) {
		r.instructors[ii], r.courses[ci] = in, c
	}
	return res
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers. Callers hold r.mu.
// ─────────────────────────────────────────────────────────────────────────────

// settled logs a rejected gateway call and reports whether to commit.
func (r *Registry) settled(op string, res types.Result) bool {
	if !res.OK {
		r.log.Warn("gateway rejected change",
			slog.String("op", op),
			slog.String("kind", string(res.Kind)),
			slog.Any("messages", res.Messages))
	}
	return res.OK
}

func (r *Registry) courseAt(id string) int {
	return slices.IndexFunc(r.courses, func(c types.Course) bool { return c.CourseID == id })
}

func (r *Registry) studentAt(id string) int {
	return slices.IndexFunc(r.students, func(s types.Student) bool { return s.StudentID == id })
}

func (r *Registry) instructorAt(id string) int {
	return slices.IndexFunc(r.instructors, func(in types.Instructor) bool { return in.InstructorID == id })
}

func (r *Registry) studentAndCourse(studentID, courseID string) (int, int, types.Result) {
	si, ci := r.studentAt(studentID), r.courseAt(courseID)
	return si, ci, missing(
		ref{types.KindStudent, studentID, si},
		ref{types.KindCourse, courseID, ci})
}

func (r *Registry) instructorAndCourse(instructorID, courseID string) (int, int, types.Result) {
	ii, ci := r.instructorAt(instructorID), r.courseAt(courseID)
	return ii, ci, missing(
		ref{types.KindInstructor, instructorID, ii},
		ref{types.KindCourse, courseID, ci})
}

type ref struct {
	kind types.Kind
	id   string
	at   int
}

// missing reports every ref that was not found in the cache.
func missing(refs ...ref) types.Result {
	res := types.Success()
	for _, rf := range refs {
		if rf.at >= 0 {
			continue
		}
		if res.OK {
			res = notFound(rf.kind, rf.id)
		} else {
			res = types.Merge(res, notFound(rf.kind, rf.id))
		}
	}
	return res
}

func notFound(k types.Kind, id string) types.Result {
	return types.Failure(types.ErrNotFound, fmt.Sprintf("%s %s not found", k, id))
}

// halves combines the two sides of a relationship change. Only failed
// sides contribute messages.
func halves(a, b types.Result) types.Result {
	switch {
	case a.OK && b.OK:
		return types.Success()
	case !a.OK && !b.OK:
		return types.Merge(a, b)
	case !a.OK:
		return a
	default:
		return b
	}
}
