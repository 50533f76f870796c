package types

import "fmt"

// Person is the contact data shared by students and instructors. It is only
// ever embedded, never stored on its own.
type Person struct {
	Name  string `json:"name"  validate:"min=2"`
	Age   int    `json:"age"   validate:"required,gte=17"`
	Email string `json:"email" validate:"school_email"`
}

func (p Person) String() string { return p.Name }

// Introduce returns a one-line self introduction.
func (p Person) Introduce() string {
	return fmt.Sprintf("Hi, my name is %s and I am %d years old.", p.Name, p.Age)
}

// Validate checks the age, name and email rules.
func (p Person) Validate() Result { return check(p) }
