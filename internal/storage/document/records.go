package document

import (
	"slices"

	"github.com/aanand-mishra/school-records/internal/storage"
	"github.com/aanand-mishra/school-records/internal/types"
)

// document is the on-disk shape. The top-level keys are the Kind names.
type document struct {
	Course     []courseRecord     `json:"Course"`
	Student    []studentRecord    `json:"Student"`
	Instructor []instructorRecord `json:"Instructor"`
}

// Person records spell the email field "_email"; existing data files use
// that name.
type studentRecord struct {
	StudentID         string   `json:"student_id"`
	Name              string   `json:"name"`
	Age               int      `json:"age"`
	Email             string   `json:"_email"`
	RegisteredCourses []string `json:"registered_courses"`
}

type instructorRecord struct {
	InstructorID    string   `json:"instructor_id"`
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	Email           string   `json:"_email"`
	AssignedCourses []string `json:"assigned_courses"`
}

type courseRecord struct {
	CourseID         string   `json:"course_id"`
	CourseName       string   `json:"course_name"`
	InstructorID     *string  `json:"instructor_id"`
	EnrolledStudents []string `json:"enrolled_students"`
}

func newDocument() *document {
	return &document{Course: []courseRecord{}, Student: []studentRecord{}, Instructor: []instructorRecord{}}
}

func (r studentRecord) student() types.Student {
	st := types.NewStudent(r.StudentID, r.Name, r.Age, r.Email)
	st.RegisteredCourses = ids(r.RegisteredCourses)
	return st
}

func (r instructorRecord) instructor() types.Instructor {
	in := types.NewInstructor(r.InstructorID, r.Name, r.Age, r.Email)
	in.AssignedCourses = ids(r.AssignedCourses)
	return in
}

func (r courseRecord) course() types.Course {
	c := types.NewCourse(r.CourseID, r.CourseName)
	if r.InstructorID != nil {
		c.InstructorID = *r.InstructorID
	}
	c.EnrolledStudents = ids(r.EnrolledStudents)
	return c
}

func (d *document) courseAt(id string) int {
	return slices.IndexFunc(d.Course, func(r courseRecord) bool { return r.CourseID == id })
}

func (d *document) studentAt(id string) int {
	return slices.IndexFunc(d.Student, func(r studentRecord) bool { return r.StudentID == id })
}

func (d *document) instructorAt(id string) int {
	return slices.IndexFunc(d.Instructor, func(r instructorRecord) bool { return r.InstructorID == id })
}

// indexOf locates a record by its tagged reference.
func (d *document) indexOf(ref types.Ref) int {
	switch ref.Kind {
	case types.KindCourse:
		return d.courseAt(ref.ID)
	case types.KindStudent:
		return d.studentAt(ref.ID)
	case types.KindInstructor:
		return d.instructorAt(ref.ID)
	}
	return -1
}

// pair resolves both sides of a relationship, reporting the first one
// missing as not in table.
func (d *document) pair(a, b types.Ref) (int, int, types.Result) {
	ai := d.indexOf(a)
	if ai < 0 {
		return -1, -1, storage.NotInTable(a.Kind)
	}
	bi := d.indexOf(b)
	if bi < 0 {
		return -1, -1, storage.NotInTable(b.Kind)
	}
	return ai, bi, types.Success()
}

// ids copies a stored ID list, turning null into an empty list.
func ids(in []string) []string {
	out := make([]string, 0, len(in))
	return append(out, in...)
}

// remove drops every occurrence of id and never returns nil.
func remove(list []string, id string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
