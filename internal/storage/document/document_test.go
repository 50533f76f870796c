package document

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/school-records/internal/blob"
	"github.com/aanand-mishra/school-records/internal/config"
	"github.com/aanand-mishra/school-records/internal/types"
)

const key = "data.json"

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newStore(t *testing.T) (*Store, *blob.Memory) {
	t.Helper()
	mem := blob.NewMemory()
	return New(mem, key, discard()), mem
}

func alice() types.Student { return types.NewStudent("S0001", "Alice B", 20, "a@b.com") }
func bob() types.Student   { return types.NewStudent("S0002", "Bob C", 22, "bob@c.org") }
func prof(id string) types.Instructor {
	return types.NewInstructor(id, "Prof X", 50, "x@uni.edu")
}
func course(id string) types.Course { return types.NewCourse(id, "CourseX") }

func stored(t *testing.T, mem *blob.Memory) string {
	t.Helper()
	raw, err := blob.ReadAll(context.Background(), mem, key)
	require.NoError(t, err)
	return string(raw)
}

func TestMissingDocumentIsEmpty(t *testing.T) {
	s, _ := newStore(t)

	courses, err := s.FetchCourses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestLegacyDocumentDecodes(t *testing.T) {
	s, mem := newStore(t)
	legacy := `{
		"Course": [{"course_id": "CRS01", "course_name": "CourseX", "instructor_id": null, "enrolled_students": ["S0001"]}],
		"Student": [{"student_id": "S0001", "name": "Alice B", "age": 20, "_email": "a@b.com", "registered_courses": ["CRS01"]}],
		"Instructor": [{"instructor_id": "I0001", "name": "Prof X", "age": 50, "_email": "x@uni.edu", "assigned_courses": null}]
	}`
	require.NoError(t, mem.Put(context.Background(), key, strings.NewReader(legacy), blob.PutOptions{}))

	students, err := s.FetchStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "a@b.com", students[0].Email)
	assert.Equal(t, []string{"CRS01"}, students[0].RegisteredCourses)

	instructors, err := s.FetchInstructors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{}, instructors[0].AssignedCourses)

	courses, err := s.FetchCourses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, courses[0].InstructorID)
}

func TestWritesUseLegacyFieldNames(t *testing.T) {
	s, mem := newStore(t)
	require.True(t, s.AddStudent(context.Background(), alice()).OK)

	doc := stored(t, mem)
	assert.Contains(t, doc, `"_email": "a@b.com"`)
	assert.Contains(t, doc, `"Course": []`)
	assert.Contains(t, doc, `"registered_courses": []`)
}

func TestAddValidationAndConflict(t *testing.T) {
	s, mem := newStore(t)
	ctx := context.Background()

	res := s.AddStudent(ctx, types.NewStudent("S1", "A", 3, "nope"))
	assert.Equal(t, types.ErrValidation, res.Kind)
	_, err := mem.Get(ctx, key)
	assert.ErrorIs(t, err, blob.ErrNotFound, "nothing written")

	require.True(t, s.AddStudent(ctx, alice()).OK)
	res = s.AddStudent(ctx, alice())
	assert.Equal(t, []string{"Student already exists in table"}, res.Messages)
}

func TestEditKeepsRelationships(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	st, c := alice(), course("CRS01")
	require.True(t, s.AddStudent(ctx, st).OK)
	require.True(t, s.AddCourse(ctx, c).OK)
	require.True(t, s.RegisterCourse(ctx, st, c).OK)

	st.Name = "Alice Z"
	st.RegisteredCourses = []string{}
	res := s.EditStudent(ctx, st)
	require.True(t, res.OK)
	assert.Equal(t, []string{"Edited student Alice Z in table"}, res.Messages)

	students, err := s.FetchStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice Z", students[0].Name)
	assert.Equal(t, []string{"CRS01"}, students[0].RegisteredCourses)

	assert.Equal(t, []string{"Course not in table"}, s.EditCourse(ctx, course("CRS09")).Messages)
}

func TestEndToEndEnrollment(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	st, c := alice(), course("CRS01")

	require.True(t, s.AddStudent(ctx, st).OK)
	require.True(t, s.AddCourse(ctx, c).OK)
	res := s.RegisterCourse(ctx, st, c)
	require.True(t, res.OK)
	assert.Equal(t, []string{"Added student Alice B to course CourseX"}, res.Messages)

	students, err := s.FetchStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CRS01"}, students[0].RegisteredCourses)
	courses, err := s.FetchCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"S0001"}, courses[0].EnrolledStudents)

	require.True(t, s.DeleteCourse(ctx, c).OK)

	students, err = s.FetchStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, students[0].RegisteredCourses)
}

func TestRegisterAndUnregister(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	st, c := alice(), course("CRS01")

	assert.Equal(t, []string{"Student not in table"}, s.RegisterCourse(ctx, st, c).Messages)
	require.True(t, s.AddStudent(ctx, st).OK)
	assert.Equal(t, []string{"Course not in table"}, s.RegisterCourse(ctx, st, c).Messages)
	require.True(t, s.AddCourse(ctx, c).OK)

	require.True(t, s.RegisterCourse(ctx, st, c).OK)
	assert.Equal(t, types.ErrConflict, s.RegisterCourse(ctx, st, c).Kind)

	require.True(t, s.UnregisterCourse(ctx, st, c).OK)
	res := s.UnregisterCourse(ctx, st, c)
	assert.Equal(t, []string{"Student not registered in course"}, res.Messages)
}

func TestAssignMovesCourseBetweenInstructors(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	first, second, c := prof("I0001"), prof("I0002"), course("CRS01")
	require.True(t, s.AddInstructor(ctx, first).OK)
	require.True(t, s.AddInstructor(ctx, second).OK)
	require.True(t, s.AddCourse(ctx, c).OK)

	require.True(t, s.AssignInstructor(ctx, first, c).OK)
	require.True(t, s.AssignInstructor(ctx, second, c).OK)

	instructors, err := s.FetchInstructors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, instructors[0].AssignedCourses)
	assert.Equal(t, []string{"CRS01"}, instructors[1].AssignedCourses)

	assert.Equal(t, []string{"Instructor not assigned to course"}, s.UnassignInstructor(ctx, first, c).Messages)
	require.True(t, s.UnassignInstructor(ctx, second, c).OK)

	courses, err := s.FetchCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, courses[0].InstructorID)
}

func TestDeleteCascades(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	in, c1, c2 := prof("I0001"), course("CRS01"), course("CRS02")
	require.True(t, s.AddInstructor(ctx, in).OK)
	for _, c := range []types.Course{c1, c2} {
		require.True(t, s.AddCourse(ctx, c).OK)
		require.True(t, s.AssignInstructor(ctx, in, c).OK)
	}
	for _, st := range []types.Student{alice(), bob()} {
		require.True(t, s.AddStudent(ctx, st).OK)
		require.True(t, s.RegisterCourse(ctx, st, c1).OK)
		require.True(t, s.RegisterCourse(ctx, st, c2).OK)
	}

	require.True(t, s.DeleteCourse(ctx, c1).OK)
	students, err := s.FetchStudents(ctx)
	require.NoError(t, err)
	for _, st := range students {
		assert.Equal(t, []string{"CRS02"}, st.RegisteredCourses)
	}
	instructors, err := s.FetchInstructors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CRS02"}, instructors[0].AssignedCourses)

	require.True(t, s.DeleteStudent(ctx, alice()).OK)
	courses, err := s.FetchCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"S0002"}, courses[0].EnrolledStudents)

	require.True(t, s.DeleteInstructor(ctx, in).OK)
	courses, err = s.FetchCourses(ctx)
	require.NoError(t, err)
	assert.Empty(t, courses[0].InstructorID)

	assert.Equal(t, []string{"Instructor not in table"}, s.DeleteInstructor(ctx, in).Messages)
}

// flakyBlobs fails every Put after the first n.
type flakyBlobs struct {
	*blob.Memory
	n int
}

func (f *flakyBlobs) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) error {
	if f.n == 0 {
		return errors.New("bucket unavailable")
	}
	f.n--
	return f.Memory.Put(ctx, key, r, opts)
}

func TestFailedWriteLeavesDocumentUnchanged(t *testing.T) {
	blobs := &flakyBlobs{Memory: blob.NewMemory(), n: 1}
	s := New(blobs, key, discard())
	ctx := context.Background()
	require.True(t, s.AddStudent(ctx, alice()).OK)
	before := stored(t, blobs.Memory)

	res := s.AddStudent(ctx, bob())

	require.False(t, res.OK)
	assert.Equal(t, types.ErrBackend, res.Kind)
	assert.Contains(t, res.Messages[0], "bucket unavailable")
	assert.Equal(t, before, stored(t, blobs.Memory))
}

func TestCorruptDocumentIsBackendFailure(t *testing.T) {
	s, mem := newStore(t)
	ctx := context.Background()
	require.NoError(t, mem.Put(ctx, key, strings.NewReader("{not json"), blob.PutOptions{}))

	_, err := s.FetchCourses(ctx)
	assert.Error(t, err)
	assert.Equal(t, types.ErrBackend, s.AddCourse(ctx, course("CRS01")).Kind)
}

func TestOpenOnFilesystem(t *testing.T) {
	cfg := config.Storage{
		Backend: config.BackendDocument,
		Document: config.Document{
			Key:  key,
			Blob: config.Blob{Driver: "fs", FSRoot: t.TempDir()},
		},
	}
	s, err := Open(context.Background(), cfg, discard())
	require.NoError(t, err)
	require.True(t, s.AddCourse(context.Background(), course("CRS01")).OK)

	again, err := Open(context.Background(), cfg, discard())
	require.NoError(t, err)
	courses, err := again.FetchCourses(context.Background())
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}
