package relational

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/school-records/internal/config"
	"github.com/aanand-mishra/school-records/internal/types"
)

var drivers = []string{"sqlite3", "sqlite"}

func newStore(t *testing.T, driver string) *Store {
	t.Helper()
	cfg := config.Storage{
		Backend: config.BackendRelational,
		Driver:  driver,
		DSN:     filepath.Join(t.TempDir(), "school.db"),
	}
	store, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func forEachDriver(t *testing.T, fn func(t *testing.T, s *Store)) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) { fn(t, newStore(t, driver)) })
	}
}

func alice() types.Student { return types.NewStudent("S0001", "Alice B", 20, "a@b.com") }
func bob() types.Student   { return types.NewStudent("S0002", "Bob C", 22, "bob@c.org") }
func prof() types.Instructor {
	return types.NewInstructor("I0001", "Prof X", 50, "x@uni.edu")
}
func course(id string) types.Course { return types.NewCourse(id, "CourseX") }

func TestAddRejectsInvalidWithoutWriting(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		res := s.AddStudent(ctx, types.NewStudent("S01", "A", 10, "bad"))

		require.False(t, res.OK)
		assert.Equal(t, types.ErrValidation, res.Kind)
		assert.Len(t, res.Messages, 4)

		students, err := s.FetchStudents(ctx)
		require.NoError(t, err)
		assert.Empty(t, students)
	})
}

func TestAddDuplicateIsConflict(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		require.True(t, s.AddStudent(ctx, alice()).OK)
		dup := types.NewStudent("S0001", "Other Name", 30, "o@n.com")
		res := s.AddStudent(ctx, dup)

		assert.False(t, res.OK)
		assert.Equal(t, types.ErrConflict, res.Kind)
		assert.Equal(t, []string{"Student already exists in table"}, res.Messages)

		students, err := s.FetchStudents(ctx)
		require.NoError(t, err)
		require.Len(t, students, 1)
		assert.Equal(t, "Alice B", students[0].Name)
	})
}

func TestEditMissingIsNotInTable(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()

		assert.Equal(t, []string{"Student not in table"}, s.EditStudent(ctx, alice()).Messages)
		assert.Equal(t, []string{"Course not in table"}, s.EditCourse(ctx, course("CRS01")).Messages)
		assert.Equal(t, []string{"Instructor not in table"}, s.EditInstructor(ctx, prof()).Messages)
	})
}

func TestEditOverwrites(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		require.True(t, s.AddInstructor(ctx, prof()).OK)

		edited := prof()
		edited.Name = "Prof Y"
		edited.Age = 51
		require.True(t, s.EditInstructor(ctx, edited).OK)

		got, err := s.FetchInstructors(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Prof Y", got[0].Name)
		assert.Equal(t, 51, got[0].Age)
		assert.Equal(t, []string{}, got[0].AssignedCourses)
	})
}

func TestEndToEndEnrollment(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		st := alice()
		c := course("CRS01")

		require.True(t, s.AddStudent(ctx, st).OK)
		require.True(t, s.AddCourse(ctx, c).OK)
		require.True(t, s.RegisterCourse(ctx, st, c).OK)

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
	})
}

func TestEnrollmentOrderFollowsInsertion(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		st := alice()
		require.True(t, s.AddStudent(ctx, st).OK)
		for _, id := range []string{"CRS03", "CRS01", "CRS02"} {
			require.True(t, s.AddCourse(ctx, course(id)).OK)
			require.True(t, s.RegisterCourse(ctx, st, course(id)).OK)
		}

		students, err := s.FetchStudents(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"CRS03", "CRS01", "CRS02"}, students[0].RegisteredCourses)
	})
}

func TestFetchFollowsInsertionOrder(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		in := prof()
		require.True(t, s.AddStudent(ctx, bob()).OK)
		require.True(t, s.AddStudent(ctx, alice()).OK)
		require.True(t, s.AddInstructor(ctx, types.NewInstructor("I0009", "Prof Z", 40, "z@uni.edu")).OK)
		require.True(t, s.AddInstructor(ctx, in).OK)
		for _, id := range []string{"CRS03", "CRS01", "CRS02"} {
			require.True(t, s.AddCourse(ctx, course(id)).OK)
		}
		for _, id := range []string{"CRS02", "CRS03", "CRS01"} {
			require.True(t, s.AssignInstructor(ctx, in, course(id)).OK)
		}

		students, err := s.FetchStudents(ctx)
		require.NoError(t, err)
		require.Len(t, students, 2)
		assert.Equal(t, "S0002", students[0].StudentID)
		assert.Equal(t, "S0001", students[1].StudentID)

		courses, err := s.FetchCourses(ctx)
		require.NoError(t, err)
		require.Len(t, courses, 3)
		assert.Equal(t, []string{"CRS03", "CRS01", "CRS02"},
			[]string{courses[0].CourseID, courses[1].CourseID, courses[2].CourseID})

		instructors, err := s.FetchInstructors(ctx)
		require.NoError(t, err)
		require.Len(t, instructors, 2)
		assert.Equal(t, "I0009", instructors[0].InstructorID)
		assert.Equal(t, []string{"CRS02", "CRS03", "CRS01"}, instructors[1].AssignedCourses,
			"assigned courses follow assignment order")
	})
}

func TestMissingTableIsBackendFailure(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		st, c := alice(), course("CRS01")
		require.True(t, s.AddStudent(ctx, st).OK)
		require.True(t, s.AddCourse(ctx, c).OK)

		_, err := s.DB().Exec("DROP TABLE Enrollment")
		require.NoError(t, err)

		res := s.RegisterCourse(ctx, st, c)

		require.False(t, res.OK)
		assert.Equal(t, types.ErrBackend, res.Kind)
		assert.Contains(t, res.Messages[0], "prepare")
	})
}

func TestRelationshipWrites(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		st, c, in := alice(), course("CRS01"), prof()

		assert.Equal(t, []string{"Student not in table"}, s.RegisterCourse(ctx, st, c).Messages)
		require.True(t, s.AddStudent(ctx, st).OK)
		assert.Equal(t, []string{"Course not in table"}, s.RegisterCourse(ctx, st, c).Messages)
		require.True(t, s.AddCourse(ctx, c).OK)
		require.True(t, s.AddInstructor(ctx, in).OK)

		require.True(t, s.RegisterCourse(ctx, st, c).OK)
		res := s.RegisterCourse(ctx, st, c)
		assert.Equal(t, types.ErrConflict, res.Kind)

		require.True(t, s.UnregisterCourse(ctx, st, c).OK)
		res = s.UnregisterCourse(ctx, st, c)
		assert.Equal(t, types.ErrNotFound, res.Kind)

		require.True(t, s.AssignInstructor(ctx, in, c).OK)
		instructors, err := s.FetchInstructors(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"CRS01"}, instructors[0].AssignedCourses)
		courses, err := s.FetchCourses(ctx)
		require.NoError(t, err)
		assert.Equal(t, "I0001", courses[0].InstructorID)

		other := types.NewInstructor("I0002", "Prof Z", 40, "z@uni.edu")
		assert.Equal(t, []string{"Instructor not assigned to course"}, s.UnassignInstructor(ctx, other, c).Messages)
		require.True(t, s.UnassignInstructor(ctx, in, c).OK)

		courses, err = s.FetchCourses(ctx)
		require.NoError(t, err)
		assert.Empty(t, courses[0].InstructorID)
	})
}

func TestDeleteCourseCascades(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		c, in := course("CRS01"), prof()
		require.True(t, s.AddCourse(ctx, c).OK)
		require.True(t, s.AddInstructor(ctx, in).OK)
		require.True(t, s.AssignInstructor(ctx, in, c).OK)
		for _, st := range []types.Student{alice(), bob()} {
			require.True(t, s.AddStudent(ctx, st).OK)
			require.True(t, s.RegisterCourse(ctx, st, c).OK)
		}

		require.True(t, s.DeleteCourse(ctx, c).OK)

		courses, err := s.FetchCourses(ctx)
		require.NoError(t, err)
		assert.Empty(t, courses)
		students, err := s.FetchStudents(ctx)
		require.NoError(t, err)
		for _, st := range students {
			assert.Empty(t, st.RegisteredCourses)
		}
		instructors, err := s.FetchInstructors(ctx)
		require.NoError(t, err)
		assert.Empty(t, instructors[0].AssignedCourses)

		assert.Equal(t, []string{"Course not in table"}, s.DeleteCourse(ctx, c).Messages)
	})
}

func TestDeleteInstructorNullifiesCourses(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		c, in := course("CRS01"), prof()
		require.True(t, s.AddCourse(ctx, c).OK)
		require.True(t, s.AddInstructor(ctx, in).OK)
		require.True(t, s.AssignInstructor(ctx, in, c).OK)

		require.True(t, s.DeleteInstructor(ctx, in).OK)

		courses, err := s.FetchCourses(ctx)
		require.NoError(t, err)
		require.Len(t, courses, 1)
		assert.Empty(t, courses[0].InstructorID)
	})
}

func TestDeleteStudentRemovesEnrollments(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		st, c := alice(), course("CRS01")
		require.True(t, s.AddCourse(ctx, c).OK)
		require.True(t, s.AddStudent(ctx, st).OK)
		require.True(t, s.RegisterCourse(ctx, st, c).OK)

		require.True(t, s.DeleteStudent(ctx, st).OK)

		courses, err := s.FetchCourses(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{}, courses[0].EnrolledStudents)
	})
}

func TestFailedDeleteRollsBackEnrollments(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		st, c := alice(), course("CRS01")
		require.True(t, s.AddCourse(ctx, c).OK)
		require.True(t, s.AddStudent(ctx, st).OK)
		require.True(t, s.RegisterCourse(ctx, st, c).OK)

		// The enrollment delete succeeds; the course delete then aborts.
		_, err := s.DB().Exec(`
			CREATE TRIGGER lock_course BEFORE DELETE ON Course
			BEGIN SELECT RAISE(ABORT, 'course is locked'); END`)
		require.NoError(t, err)

		res := s.DeleteCourse(ctx, c)

		require.False(t, res.OK)
		assert.Equal(t, types.ErrBackend, res.Kind)
		assert.Contains(t, res.Messages[0], "course is locked")

		courses, err := s.FetchCourses(ctx)
		require.NoError(t, err)
		require.Len(t, courses, 1)
		assert.Equal(t, []string{"S0001"}, courses[0].EnrolledStudents)
	})
}

func TestReopenKeepsData(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "school.db")
	cfg := config.Storage{Driver: "sqlite3", DSN: dsn}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := New(cfg, log)
	require.NoError(t, err)
	require.True(t, first.AddCourse(context.Background(), course("CRS01")).OK)
	require.NoError(t, first.Close())

	second, err := New(cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	courses, err := second.FetchCourses(context.Background())
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}
