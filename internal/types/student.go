package types

// Student is a person who registers for courses.
//
// RegisteredCourses holds course IDs in registration order and never holds
// the same ID twice.
type Student struct {
	StudentID string `json:"student_id" validate:"len=5"`
	Person
	RegisteredCourses []string `json:"registered_courses"`
}

// NewStudent returns a student with no registrations.
func NewStudent(id, name string, age int, email string) Student {
	return Student{
		StudentID:         id,
		Person:            Person{Name: name, Age: age, Email: email},
		RegisteredCourses: []string{},
	}
}

// Ref identifies the student in the Student collection.
func (s Student) Ref() Ref { return Ref{Kind: KindStudent, ID: s.StudentID} }

// Validate reports every failing rule: the ID length first, then the
// inherited person rules.
func (s Student) Validate() Result { return check(s) }

// Clone returns a deep copy that can be mutated without touching s.
func (s Student) Clone() Student {
	s.RegisteredCourses = cloneIDs(s.RegisteredCourses)
	return s
}

// RegisterCourse records the student's side of an enrollment.
func (s *Student) RegisterCourse(c Course) Result {
	if contains(s.RegisteredCourses, c.CourseID) {
		return Failure(ErrConflict, "Already registered in course")
	}
	s.RegisteredCourses = append(s.RegisteredCourses, c.CourseID)
	return Success("Registered in course")
}

// UnregisterCourse removes the student's side of an enrollment.
func (s *Student) UnregisterCourse(c Course) Result {
	if !contains(s.RegisteredCourses, c.CourseID) {
		return Failure(ErrNotFound, "Course not registered")
	}
	s.RegisteredCourses = without(s.RegisteredCourses, c.CourseID)
	return Success("Course unregistered")
}
