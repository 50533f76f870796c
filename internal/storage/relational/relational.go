// Package relational provides the SQL implementation of storage.Gateway on
// top of database/sql.
//
// Four tables hold the records: Course, Student, Instructor and Enrollment.
// Enrollment is the single source of truth for which students take which
// course. An instructor assignment is the nullable Course.instructor_id
// column, so there is no association table for it.
//
// Every write runs inside one transaction. A multi-statement write such as
// "delete the enrollments, then delete the course" either applies fully or
// leaves the database untouched.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aanand-mishra/school-records/internal/config"
	"github.com/aanand-mishra/school-records/internal/storage"
	"github.com/aanand-mishra/school-records/internal/types"
)

var _ storage.Gateway = (*Store)(nil)

// Store is the relational gateway. It holds a *sql.DB connection pool.
type Store struct {
	db  *sql.DB
	d   dialect
	log *slog.Logger
}

// New opens the database named by cfg.Driver and cfg.DSN, creates the
// tables if they do not exist yet, and returns a ready-to-use *Store.
func New(cfg config.Storage, log *slog.Logger) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("relational.New: %w", err)
	}

	db, err := sql.Open(d.driver, d.dsn(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("relational.New: open db: %w", err)
	}
	if d.sqlite {
		// SQLite allows one writer; a single connection also keeps the
		// foreign_keys pragma in force for every statement.
		db.SetMaxOpenConns(1)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("relational.New: ping: %w", err)
	}
	for _, stmt := range d.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("relational.New: create table: %w", err)
		}
	}

	return &Store{db: db, d: d, log: log}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// ─────────────────────────────────────────────────────────────────────────────
// Fetch
//
// Each fetch LEFT JOINs the association and aggregates the related IDs into a
// comma-joined column, which is split back into the entity's list field.
// ─────────────────────────────────────────────────────────────────────────────

// FetchCourses returns courses in insertion order, each with its students in
// enrollment order.
func (s *Store) FetchCourses(ctx context.Context) ([]types.Course, error) {
	query := `
		SELECT c.course_id, c.course_name, c.instructor_id,
		       ` + s.d.groupConcat("e.student_id", "e.seq") + `
		FROM Course c
		LEFT JOIN Enrollment e ON c.course_id = e.course_id
		GROUP BY c.course_id, c.course_name, c.instructor_id, c.seq
		ORDER BY c.seq, c.course_id`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("FetchCourses: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchCourses: query: %w", err)
	}
	defer rows.Close()

	courses := make([]types.Course, 0)
	for rows.Next() {
		var (
			c          types.Course
			instructor sql.NullString
			enrolled   sql.NullString
		)
		if err := rows.Scan(&c.CourseID, &c.CourseName, &instructor, &enrolled); err != nil {
			return nil, fmt.Errorf("FetchCourses: scan row: %w", err)
		}
		c.InstructorID = instructor.String
		c.EnrolledStudents = storage.SplitIDs(enrolled.String)
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FetchCourses: rows iteration: %w", err)
	}
	return courses, nil
}

// FetchStudents returns students in insertion order, each with its courses in
// enrollment order.
func (s *Store) FetchStudents(ctx context.Context) ([]types.Student, error) {
	query := `
		SELECT s.student_id, s.name, s.age, s.email,
		       ` + s.d.groupConcat("e.course_id", "e.seq") + `
		FROM Student s
		LEFT JOIN Enrollment e ON s.student_id = e.student_id
		GROUP BY s.student_id, s.name, s.age, s.email, s.seq
		ORDER BY s.seq, s.student_id`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("FetchStudents: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var (
			st         types.Student
			registered sql.NullString
		)
		if err := rows.Scan(&st.StudentID, &st.Name, &st.Age, &st.Email, &registered); err != nil {
			return nil, fmt.Errorf("FetchStudents: scan row: %w", err)
		}
		st.RegisteredCourses = storage.SplitIDs(registered.String)
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FetchStudents: rows iteration: %w", err)
	}
	return students, nil
}

// FetchInstructors returns instructors in insertion order, each with its
// courses in assignment order.
func (s *Store) FetchInstructors(ctx context.Context) ([]types.Instructor, error) {
	query := `
		SELECT i.instructor_id, i.name, i.age, i.email,
		       ` + s.d.groupConcat("c.course_id", "c.assign_seq, c.course_id") + `
		FROM Instructor i
		LEFT JOIN Course c ON i.instructor_id = c.instructor_id
		GROUP BY i.instructor_id, i.name, i.age, i.email, i.seq
		ORDER BY i.seq, i.instructor_id`

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("FetchInstructors: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchInstructors: query: %w", err)
	}
	defer rows.Close()

	instructors := make([]types.Instructor, 0)
	for rows.Next() {
		var (
			in       types.Instructor
			assigned sql.NullString
		)
		if err := rows.Scan(&in.InstructorID, &in.Name, &in.Age, &in.Email, &assigned); err != nil {
			return nil, fmt.Errorf("FetchInstructors: scan row: %w", err)
		}
		in.AssignedCourses = storage.SplitIDs(assigned.String)
		instructors = append(instructors, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FetchInstructors: rows iteration: %w", err)
	}
	return instructors, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Courses
// ─────────────────────────────────────────────────────────────────────────────

// AddCourse inserts c as an unassigned course.
func (s *Store) AddCourse(ctx context.Context, c types.Course) types.Result {
	if res := c.Validate(); !res.OK {
		return res
	}
	return s.inTx(ctx, "AddCourse", func(tx *sql.Tx) (types.Result, error) {
		found, err := s.exists(ctx, tx, "SELECT 1 FROM Course WHERE course_id = ?", c.CourseID)
		if err != nil || found {
			return storage.AlreadyExists(types.KindCourse), err
		}
		if _, err := s.exec(ctx, tx,
			"INSERT INTO Course (course_id, course_name, seq) VALUES (?, ?, "+nextSeq("Course", "seq")+")",
			c.CourseID, c.CourseName); err != nil {
			return types.Result{}, fmt.Errorf("insert course: %w", err)
		}
		return storage.Added(types.KindCourse, c.CourseName), nil
	})
}

// EditCourse renames an existing course.
func (s *Store) EditCourse(ctx context.Context, c types.Course) types.Result {
	if res := c.Validate(); !res.OK {
		return res
	}
	return s.inTx(ctx, "EditCourse", func(tx *sql.Tx) (types.Result, error) {
		n, err := s.exec(ctx, tx,
			"UPDATE Course SET course_name = ? WHERE course_id = ?", c.CourseName, c.CourseID)
		if err != nil {
			return types.Result{}, fmt.Errorf("update course: %w", err)
		}
		if n == 0 {
			return storage.NotInTable(types.KindCourse), nil
		}
		return storage.Edited(types.KindCourse, c.CourseName), nil
	})
}

// DeleteCourse removes the course's enrollment rows, then the course row.
func (s *Store) DeleteCourse(ctx context.Context, c types.Course) types.Result {
	return s.inTx(ctx, "DeleteCourse", func(tx *sql.Tx) (types.Result, error) {
		if _, err := s.exec(ctx, tx, "DELETE FROM Enrollment WHERE course_id = ?", c.CourseID); err != nil {
			return types.Result{}, fmt.Errorf("delete enrollments: %w", err)
		}
		n, err := s.exec(ctx, tx, "DELETE FROM Course WHERE course_id = ?", c.CourseID)
		if err != nil {
			return types.Result{}, fmt.Errorf("delete course: %w", err)
		}
		if n == 0 {
			return storage.NotInTable(types.KindCourse), nil
		}
		return storage.Deleted(types.KindCourse, c.CourseName), nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

// AddStudent inserts st. Its registered courses are not written.
func (s *Store) AddStudent(ctx context.Context, st types.Student) types.Result {
	if res := st.Validate(); !res.OK {
		return res
	}
	return s.inTx(ctx, "AddStudent", func(tx *sql.Tx) (types.Result, error) {
		found, err := s.exists(ctx, tx, "SELECT 1 FROM Student WHERE student_id = ?", st.StudentID)
		if err != nil || found {
			return storage.AlreadyExists(types.KindStudent), err
		}
		if _, err := s.exec(ctx, tx,
			"INSERT INTO Student (student_id, name, age, email, seq) VALUES (?, ?, ?, ?, "+nextSeq("Student", "seq")+")",
			st.StudentID, st.Name, st.Age, st.Email); err != nil {
			return types.Result{}, fmt.Errorf("insert student: %w", err)
		}
		return storage.Added(types.KindStudent, st.Name), nil
	})
}

// EditStudent overwrites name, age and email.
func (s *Store) EditStudent(ctx context.Context, st types.Student) types.Result {
	if res := st.Validate(); !res.OK {
		return res
	}
	return s.inTx(ctx, "EditStudent", func(tx *sql.Tx) (types.Result, error) {
		n, err := s.exec(ctx, tx,
			"UPDATE Student SET name = ?, age = ?, email = ? WHERE student_id = ?",
			st.Name, st.Age, st.Email, st.StudentID)
		if err != nil {
			return types.Result{}, fmt.Errorf("update student: %w", err)
		}
		if n == 0 {
			return storage.NotInTable(types.KindStudent), nil
		}
		return storage.Edited(types.KindStudent, st.Name), nil
	})
}

// DeleteStudent removes the student's enrollment rows, then the student row.
func (s *Store) DeleteStudent(ctx context.Context, st types.Student) types.Result {
	return s.inTx(ctx, "DeleteStudent", func(tx *sql.Tx) (types.Result, error) {
		if _, err := s.exec(ctx, tx, "DELETE FROM Enrollment WHERE student_id = ?", st.StudentID); err != nil {
			return types.Result{}, fmt.Errorf("delete enrollments: %w", err)
		}
		n, err := s.exec(ctx, tx, "DELETE FROM Student WHERE student_id = ?", st.StudentID)
		if err != nil {
			return types.Result{}, fmt.Errorf("delete student: %w", err)
		}
		if n == 0 {
			return storage.NotInTable(types.KindStudent), nil
		}
		return storage.Deleted(types.KindStudent, st.Name), nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Instructors
// ─────────────────────────────────────────────────────────────────────────────

// AddInstructor inserts in. Its assigned courses are not written.
func (s *Store) AddInstructor(ctx context.Context, in types.Instructor) types.Result {
	if res := in.Validate(); !res.OK {
		return res
	}
	return s.inTx(ctx, "AddInstructor", func(tx *sql.Tx) (types.Result, error) {
		found, err := s.exists(ctx, tx, "SELECT 1 FROM Instructor WHERE instructor_id = ?", in.InstructorID)
		if err != nil || found {
			return storage.AlreadyExists(types.KindInstructor), err
		}
		if _, err := s.exec(ctx, tx,
			"INSERT INTO Instructor (instructor_id, name, age, email, seq) VALUES (?, ?, ?, ?, "+nextSeq("Instructor", "seq")+")",
			in.InstructorID, in.Name, in.Age, in.Email); err != nil {
			return types.Result{}, fmt.Errorf("insert instructor: %w", err)
		}
		return storage.Added(types.KindInstructor, in.Name), nil
	})
}

// EditInstructor overwrites name, age and email.
func (s *Store) EditInstructor(ctx context.Context, in types.Instructor) types.Result {
	if res := in.Validate(); !res.OK {
		return res
	}
	return s.inTx(ctx, "EditInstructor", func(tx *sql.Tx) (types.Result, error) {
		n, err := s.exec(ctx, tx,
			"UPDATE Instructor SET name = ?, age = ?, email = ? WHERE instructor_id = ?",
			in.Name, in.Age, in.Email, in.InstructorID)
		if err != nil {
			return types.Result{}, fmt.Errorf("update instructor: %w", err)
		}
		if n == 0 {
			return storage.NotInTable(types.KindInstructor), nil
		}
		return storage.Edited(types.KindInstructor, in.Name), nil
	})
}

// DeleteInstructor detaches the instructor from its courses instead of
// blocking on them, then deletes the instructor row.
func (s *Store) DeleteInstructor(ctx context.Context, in types.Instructor) types.Result {
	return s.inTx(ctx, "DeleteInstructor", func(tx *sql.Tx) (types.Result, error) {
		if _, err := s.exec(ctx, tx,
			"UPDATE Course SET instructor_id = NULL WHERE instructor_id = ?", in.InstructorID); err != nil {
			return types.Result{}, fmt.Errorf("detach courses: %w", err)
		}
		n, err := s.exec(ctx, tx, "DELETE FROM Instructor WHERE instructor_id = ?", in.InstructorID)
		if err != nil {
			return types.Result{}, fmt.Errorf("delete instructor: %w", err)
		}
		if n == 0 {
			return storage.NotInTable(types.KindInstructor), nil
		}
		return storage.Deleted(types.KindInstructor, in.Name), nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Relationships
// ─────────────────────────────────────────────────────────────────────────────

// RegisterCourse adds an Enrollment row. Both rows must exist.
func (s *Store) RegisterCourse(ctx context.Context, st types.Student, c types.Course) types.Result {
	return s.inTx(ctx, "RegisterCourse", func(tx *sql.Tx) (types.Result, error) {
		if res, err := s.requireAll(ctx, tx, st.Ref(), c.Ref()); err != nil || !res.OK {
			return res, err
		}
		found, err := s.exists(ctx, tx,
			"SELECT 1 FROM Enrollment WHERE course_id = ? AND student_id = ?", c.CourseID, st.StudentID)
		if err != nil || found {
			return storage.AlreadyRegistered(), err
		}
		if _, err := s.exec(ctx, tx,
			"INSERT INTO Enrollment (course_id, student_id) VALUES (?, ?)", c.CourseID, st.StudentID); err != nil {
			return types.Result{}, fmt.Errorf("insert enrollment: %w", err)
		}
		return storage.Registered(st, c), nil
	})
}

// UnregisterCourse deletes the Enrollment row for the pair.
func (s *Store) UnregisterCourse(ctx context.Context, st types.Student, c types.Course) types.Result {
	return s.inTx(ctx, "UnregisterCourse", func(tx *sql.Tx) (types.Result, error) {
		n, err := s.exec(ctx, tx,
			"DELETE FROM Enrollment WHERE course_id = ? AND student_id = ?", c.CourseID, st.StudentID)
		if err != nil {
			return types.Result{}, fmt.Errorf("delete enrollment: %w", err)
		}
		if n == 0 {
			return storage.NotRegistered(), nil
		}
		return storage.Unregistered(st, c), nil
	})
}

// AssignInstructor points the course at in, replacing any current
// instructor, and stamps the assignment order.
func (s *Store) AssignInstructor(ctx context.Context, in types.Instructor, c types.Course) types.Result {
	return s.inTx(ctx, "AssignInstructor", func(tx *sql.Tx) (types.Result, error) {
		if res, err := s.requireAll(ctx, tx, in.Ref(), c.Ref()); err != nil || !res.OK {
			return res, err
		}
		if _, err := s.exec(ctx, tx,
			"UPDATE Course SET instructor_id = ?, assign_seq = "+nextSeq("Course", "assign_seq")+" WHERE course_id = ?",
			in.InstructorID, c.CourseID); err != nil {
			return types.Result{}, fmt.Errorf("assign instructor: %w", err)
		}
		return storage.Assigned(in, c), nil
	})
}

// UnassignInstructor clears the course's instructor if it is in.
func (s *Store) UnassignInstructor(ctx context.Context, in types.Instructor, c types.Course) types.Result {
	return s.inTx(ctx, "UnassignInstructor", func(tx *sql.Tx) (types.Result, error) {
		n, err := s.exec(ctx, tx,
			"UPDATE Course SET instructor_id = NULL WHERE course_id = ? AND instructor_id = ?",
			c.CourseID, in.InstructorID)
		if err != nil {
			return types.Result{}, fmt.Errorf("unassign instructor: %w", err)
		}
		if n == 0 {
			return storage.NotAssigned(), nil
		}
		return storage.Unassigned(in, c), nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// inTx runs fn in a transaction. The transaction commits only when fn
// returns an ok Result and no error; anything else rolls back every
// statement fn executed. Errors are logged and flattened into the Result.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) (types.Result, error)) (res types.Result) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail(op, fmt.Errorf("begin: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.log.Error("rollback failed", slog.String("op", op), slog.String("error", rbErr.Error()))
			}
		}
	}()

	res, err = fn(tx)
	if err != nil {
		return s.fail(op, err)
	}
	if !res.OK {
		return res
	}
	if err := tx.Commit(); err != nil {
		return s.fail(op, fmt.Errorf("commit: %w", err))
	}
	committed = true
	return res
}

func (s *Store) fail(op string, err error) types.Result {
	err = fmt.Errorf("%s: %w", op, err)
	s.log.Error("relational write failed", slog.String("op", op), slog.String("error", err.Error()))
	return types.BackendFailure(err)
}

// exec prepares query on tx, runs it with args and returns the rows affected.
func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, s.d.rebind(query))
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// exists reports whether query returns a row.
func (s *Store) exists(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	stmt, err := tx.PrepareContext(ctx, s.d.rebind(query))
	if err != nil {
		return false, fmt.Errorf("lookup: prepare: %w", err)
	}
	defer stmt.Close()

	var one int
	err = stmt.QueryRowContext(ctx, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup: %w", err)
	}
	return true, nil
}

var lookups = map[types.Kind]string{
	types.KindCourse:     "SELECT 1 FROM Course WHERE course_id = ?",
	types.KindStudent:    "SELECT 1 FROM Student WHERE student_id = ?",
	types.KindInstructor: "SELECT 1 FROM Instructor WHERE instructor_id = ?",
}

// requireAll reports NotInTable for the first ref with no row.
func (s *Store) requireAll(ctx context.Context, tx *sql.Tx, refs ...types.Ref) (types.Result, error) {
	for _, ref := range refs {
		found, err := s.exists(ctx, tx, lookups[ref.Kind], ref.ID)
		if err != nil {
			return types.Result{}, err
		}
		if !found {
			return storage.NotInTable(ref.Kind), nil
		}
	}
	return types.Success(), nil
}
