package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentValidateReportsEveryRule(t *testing.T) {
	s := NewStudent("S01", "A", 10, "not-an-email")

	res := s.Validate()

	require.False(t, res.OK)
	assert.Equal(t, ErrValidation, res.Kind)
	assert.Equal(t, []string{
		"Not a valid student_id",
		"Not a valid name",
		"Not a valid age",
		"Not a valid email",
	}, res.Messages)
}

func TestValidatePassedIsSingleMessage(t *testing.T) {
	for name, res := range map[string]Result{
		"student":    NewStudent("S0001", "Alice B", 20, "a@b.com").Validate(),
		"instructor": NewInstructor("I0001", "Prof X", 45, "x@uni.edu").Validate(),
		"course":     NewCourse("CRS01", "CourseX").Validate(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, res.OK)
			assert.Equal(t, []string{ValidationPassed}, res.Messages)
		})
	}
}

func TestInstructorValidateOnlyID(t *testing.T) {
	res := NewInstructor("I01", "Prof X", 45, "x@uni.edu").Validate()

	require.False(t, res.OK)
	assert.Equal(t, []string{"Not a valid instructor_id"}, res.Messages)
}

func TestPersonAgeRules(t *testing.T) {
	cases := []struct {
		age int
		ok  bool
	}{
		{0, false},
		{-3, false},
		{16, false},
		{17, true},
		{80, true},
	}
	for _, tc := range cases {
		res := Person{Name: "Bo", Age: tc.age, Email: "b@o.io"}.Validate()
		assert.Equal(t, tc.ok, res.OK, "age %d", tc.age)
	}
}

func TestEmailRule(t *testing.T) {
	valid := func(email string) bool {
		return Person{Name: "Bo", Age: 30, Email: email}.Validate().OK
	}
	assert.True(t, valid("first.last+tag@school-1.co.uk"))
	assert.False(t, valid("a@b"))
	assert.False(t, valid("@b.com"))
	assert.False(t, valid("a b@c.com"))
}

func TestCourseValidate(t *testing.T) {
	res := NewCourse("CRS1", "Short").Validate()

	require.False(t, res.OK)
	assert.Equal(t, []string{"Not a valid course id", "Not a valid course name"}, res.Messages)

	res = NewCourse("CRS01", "CourseXY").Validate()
	assert.Equal(t, []string{"Not a valid course name"}, res.Messages)
}

func TestEnrollStudentIsGuarded(t *testing.T) {
	c := NewCourse("CRS01", "CourseX")
	s := NewStudent("S0001", "Alice B", 20, "a@b.com")

	first := c.EnrollStudent(s)
	second := c.EnrollStudent(s)

	assert.True(t, first.OK)
	assert.False(t, second.OK)
	assert.Equal(t, []string{"Student already in course"}, second.Messages)
	assert.Equal(t, []string{"S0001"}, c.EnrolledStudents)

	assert.True(t, c.UnenrollStudent(s).OK)
	res := c.UnenrollStudent(s)
	assert.False(t, res.OK)
	assert.Equal(t, ErrNotFound, res.Kind)
	assert.Empty(t, c.EnrolledStudents)
}

func TestRegisterCourseKeepsOrder(t *testing.T) {
	s := NewStudent("S0001", "Alice B", 20, "a@b.com")
	for _, id := range []string{"CRS03", "CRS01", "CRS02"} {
		require.True(t, s.RegisterCourse(NewCourse(id, "CourseX")).OK)
	}
	assert.Equal(t, []string{"CRS03", "CRS01", "CRS02"}, s.RegisteredCourses)

	res := s.RegisterCourse(NewCourse("CRS01", "CourseX"))
	assert.Equal(t, []string{"Already registered in course"}, res.Messages)

	require.True(t, s.UnregisterCourse(NewCourse("CRS01", "CourseX")).OK)
	assert.Equal(t, []string{"CRS03", "CRS02"}, s.RegisteredCourses)
	assert.Equal(t, []string{"Course not registered"}, s.UnregisterCourse(NewCourse("CRS01", "CourseX")).Messages)
}

func TestAssignInstructorSingleSlot(t *testing.T) {
	c := NewCourse("CRS01", "CourseX")
	a := NewInstructor("I0001", "Prof A", 40, "a@uni.edu")
	b := NewInstructor("I0002", "Prof B", 41, "b@uni.edu")

	require.True(t, c.AssignInstructor(a).OK)
	res := c.AssignInstructor(b)
	assert.Equal(t, []string{"Instructor Already Assigned"}, res.Messages)
	assert.Equal(t, "I0001", c.InstructorID)

	res = c.UnassignInstructor(b)
	assert.Equal(t, []string{"Instructor not assigned in course"}, res.Messages)
	assert.True(t, c.UnassignInstructor(a).OK)
	assert.Empty(t, c.InstructorID)
}

func TestInstructorAssignCourse(t *testing.T) {
	i := NewInstructor("I0001", "Prof A", 40, "a@uni.edu")
	c := NewCourse("CRS01", "CourseX")

	require.True(t, i.AssignCourse(c).OK)
	assert.Equal(t, []string{"Already assigned to course"}, i.AssignCourse(c).Messages)
	require.True(t, i.UnassignCourse(c).OK)
	assert.Equal(t, []string{"Course not assigned course"}, i.UnassignCourse(c).Messages)
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewStudent("S0001", "Alice B", 20, "a@b.com")
	s.RegisteredCourses = append(s.RegisteredCourses, "CRS01")

	cp := s.Clone()
	cp.RegisterCourse(NewCourse("CRS02", "CourseX"))

	assert.Equal(t, []string{"CRS01"}, s.RegisteredCourses)
	assert.Equal(t, []string{"CRS01", "CRS02"}, cp.RegisteredCourses)
}

func TestMergeKeepsAllMessages(t *testing.T) {
	got := Merge(Failure(ErrConflict, "a"), Failure(ErrNotFound, "b"))

	assert.False(t, got.OK)
	assert.Equal(t, ErrConflict, got.Kind)
	assert.Equal(t, []string{"a", "b"}, got.Messages)
	assert.Equal(t, "a\nb", got.String())
}

func TestRefsAreTagged(t *testing.T) {
	s := NewStudent("X0001", "Alice B", 20, "a@b.com")
	c := NewCourse("X0001", "CourseX")

	assert.NotEqual(t, s.Ref(), c.Ref())
	assert.Equal(t, "Student:X0001", s.Ref().String())
}

func TestIntroduce(t *testing.T) {
	s := NewStudent("S0001", "Alice B", 20, "a@b.com")
	assert.Equal(t, "Hi, my name is Alice B and I am 20 years old.", s.Introduce())
	assert.Equal(t, "Alice B", s.String())
}
