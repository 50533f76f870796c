package types

// Course is a class students enroll in. At most one instructor teaches it;
// an empty InstructorID means the course is unassigned.
type Course struct {
	CourseID         string   `json:"course_id"   validate:"len=5"`
	CourseName       string   `json:"course_name" validate:"len=7"`
	InstructorID     string   `json:"instructor_id"`
	EnrolledStudents []string `json:"enrolled_students"`
}

// NewCourse returns an unassigned course with nobody enrolled.
func NewCourse(id, name string) Course {
	return Course{CourseID: id, CourseName: name, EnrolledStudents: []string{}}
}

func (c Course) String() string { return c.CourseName }

func (c Course) Ref() Ref { return Ref{Kind: KindCourse, ID: c.CourseID} }

// Validate checks the ID and name lengths. A course is not a person, so
// no person rules apply.
func (c Course) Validate() Result { return check(c) }

// Clone returns a copy that shares no slices with c.
func (c Course) Clone() Course {
	c.EnrolledStudents = cloneIDs(c.EnrolledStudents)
	return c
}

// AssignInstructor records the course's side of an assignment. It fails
// when the course already has an instructor, even the same one.
func (c *Course) AssignInstructor(i Instructor) Result {
	if c.InstructorID != "" {
		return Failure(ErrConflict, "Instructor Already Assigned")
	}
	c.InstructorID = i.InstructorID
	return Success("Instructor Assigned")
}

// UnassignInstructor clears the instructor only if it is i.
func (c *Course) UnassignInstructor(i Instructor) Result {
	if c.InstructorID != i.InstructorID {
		return Failure(ErrNotFound, "Instructor not assigned in course")
	}
	c.InstructorID = ""
	return Success("Instructor unassigned")
}

// EnrollStudent records the course's side of an enrollment.
func (c *Course) EnrollStudent(s Student) Result {
	if contains(c.EnrolledStudents, s.StudentID) {
		return Failure(ErrConflict, "Student already in course")
	}
	c.EnrolledStudents = append(c.EnrolledStudents, s.StudentID)
	return Success("Student assigned to course")
}

// UnenrollStudent removes the course's side of an enrollment.
func (c *Course) UnenrollStudent(s Student) Result {
	if !contains(c.EnrolledStudents, s.StudentID) {
		return Failure(ErrNotFound, "Student not in course")
	}
	c.EnrolledStudents = without(c.EnrolledStudents, s.StudentID)
	return Success("Student unregistered from course")
}
