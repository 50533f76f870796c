package types

// Instructor is a person who teaches courses.
type Instructor struct {
	InstructorID string `json:"instructor_id" validate:"len=5"`
	Person
	AssignedCourses []string `json:"assigned_courses"`
}

// NewInstructor returns an instructor with no assignments.
func NewInstructor(id, name string, age int, email string) Instructor {
	return Instructor{
		InstructorID:    id,
		Person:          Person{Name: name, Age: age, Email: email},
		AssignedCourses: []string{},
	}
}

func (i Instructor) Ref() Ref { return Ref{Kind: KindInstructor, ID: i.InstructorID} }

// Validate reports every failing rule, ID length first.
func (i Instructor) Validate() Result { return check(i) }

// Clone returns a copy that shares no slices with i.
func (i Instructor) Clone() Instructor {
	i.AssignedCourses = cloneIDs(i.AssignedCourses)
	return i
}

// AssignCourse records the instructor's side of an assignment.
func (i *Instructor) AssignCourse(c Course) Result {
	if contains(i.AssignedCourses, c.CourseID) {
		return Failure(ErrConflict, "Already assigned to course")
	}
	i.AssignedCourses = append(i.AssignedCourses, c.CourseID)
	return Success("Assigned to course")
}

// UnassignCourse removes the instructor's side of an assignment.
func (i *Instructor) UnassignCourse(c Course) Result {
	if !contains(i.AssignedCourses, c.CourseID) {
		return Failure(ErrNotFound, "Course not assigned course")
	}
	i.AssignedCourses = without(i.AssignedCourses, c.CourseID)
	return Success("Instructor unassigned from course")
}
