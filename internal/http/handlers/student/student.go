// Package student contains all HTTP handlers related to the Student resource.
//
// HANDLER PATTERN USED HERE (THE CLOSURE / FACTORY PATTERN):
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like the registry.
// To inject dependencies we use a factory function that:
//  1. Accepts dependencies (the registry)
//  2. Returns a function with the exact signature the router needs
//
// Example:
//
//	router.HandleFunc("POST /api/students", student.New(reg))
//	//                                              ^^^^^^^^
//	//                         New(reg) is called ONCE at startup.
//	//                         It returns a handler func which is called
//	//                         on EVERY incoming request.
package student

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/school-records/internal/http/middleware"
	"github.com/aanand-mishra/school-records/internal/types"
	"github.com/aanand-mishra/school-records/internal/utils/request"
	"github.com/aanand-mishra/school-records/internal/utils/response"
)

// Registry is the slice of the shared cache these handlers need.
type Registry interface {
	Students() []types.Student
	Student(id string) (types.Student, bool)
	AddStudent(ctx context.Context, s types.Student) types.Result
	EditStudent(ctx context.Context, id, name string, age int, email string) types.Result
	DeleteStudent(ctx context.Context, id string) types.Result
}

// PersonFields is the PUT body shared by students and instructors. The ID
// comes from the path and cannot be changed.
type PersonFields struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
//
// Request body (JSON):
//
//	{ "student_id": "S0001", "name": "Alice B", "age": 20, "email": "a@b.com" }
//
// Success response (201 Created):
//
//	{ "status": "ok", "messages": ["Added student Alice B to table"] }
//
// Error responses:
//
//	400 Bad Request: empty body, malformed JSON, or failed validation
//	409 Conflict: a student with that ID already exists
//	500 Internal: storage failure
//
// ─────────────────────────────────────────────────────────────────────────────
func New(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context())
		log.Info("creating a student")

		var student types.Student
		if err := request.DecodeJSON(r, &student); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		res := reg.AddStudent(r.Context(), student)
		if res.OK {
			log.Info("student created", slog.String("id", student.StudentID))
		}
		response.WriteResult(w, http.StatusCreated, res)
	}
}

// GetList handles GET /api/students. It returns [] (not null) when there
// are no students.
func GetList(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.Logger(r.Context()).Info("getting all students")
		response.WriteJSON(w, http.StatusOK, reg.Students())
	}
}

// GetByID handles GET /api/students/{id}.
func GetByID(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.PathValue("id") extracts the {id} segment from the URL.
		id := r.PathValue("id")
		middleware.Logger(r.Context()).Info("getting a student", slog.String("id", id))

		student, ok := reg.Student(id)
		if !ok {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(errors.New("Student "+id+" not found")))
			return
		}
		response.WriteJSON(w, http.StatusOK, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
// Replaces the name, age and email of an existing student. Registered
// courses are unaffected.
//
// Request body (JSON):
//
//	{ "name": "Alice Z", "age": 21, "email": "z@b.com" }
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		log := middleware.Logger(r.Context())
		log.Info("updating a student", slog.String("id", id))

		var body PersonFields
		if err := request.DecodeJSON(r, &body); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		res := reg.EditStudent(r.Context(), id, body.Name, body.Age, body.Email)
		if res.OK {
			log.Info("student updated", slog.String("id", id))
		}
		response.WriteResult(w, http.StatusOK, res)
	}
}

// Delete handles DELETE /api/students/{id}. The student is also removed
// from every course it was registered in.
func Delete(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		log := middleware.Logger(r.Context())
		log.Info("deleting a student", slog.String("id", id))

		res := reg.DeleteStudent(r.Context(), id)
		if res.OK {
			log.Info("student deleted", slog.String("id", id))
		}
		response.WriteResult(w, http.StatusOK, res)
	}
}
