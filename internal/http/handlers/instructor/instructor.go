// Package instructor contains the HTTP handlers for the Instructor
// resource. They follow the same factory pattern as package student.
package instructor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/school-records/internal/http/handlers/student"
	"github.com/aanand-mishra/school-records/internal/http/middleware"
	"github.com/aanand-mishra/school-records/internal/types"
	"github.com/aanand-mishra/school-records/internal/utils/request"
	"github.com/aanand-mishra/school-records/internal/utils/response"
)

type Registry interface {
	Instructors() []types.Instructor
	Instructor(id string) (types.Instructor, bool)
	AddInstructor(ctx context.Context, in types.Instructor) types.Result
	EditInstructor(ctx context.Context, id, name string, age int, email string) types.Result
	DeleteInstructor(ctx context.Context, id string) types.Result
}

// New handles POST /api/instructors.
//
//	{ "instructor_id": "I0001", "name": "Prof X", "age": 50, "email": "x@uni.edu" }
func New(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context())
		log.Info("creating an instructor")

		var in types.Instructor
		if err := request.DecodeJSON(r, &in); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		res := reg.AddInstructor(r.Context(), in)
		if res.OK {
			log.Info("instructor created", slog.String("id", in.InstructorID))
		}
		response.WriteResult(w, http.StatusCreated, res)
	}
}

// GetList handles GET /api/instructors.
func GetList(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, reg.Instructors())
	}
}

// GetByID handles GET /api/instructors/{id}.
func GetByID(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		in, ok := reg.Instructor(id)
		if !ok {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(errors.New("Instructor "+id+" not found")))
			return
		}
		response.WriteJSON(w, http.StatusOK, in)
	}
}

// Update handles PUT /api/instructors/{id} with a student.PersonFields body.
func Update(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		log := middleware.Logger(r.Context())
		log.Info("updating an instructor", slog.String("id", id))

		var body student.PersonFields
		if err := request.DecodeJSON(r, &body); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		response.WriteResult(w, http.StatusOK,
			reg.EditInstructor(r.Context(), id, body.Name, body.Age, body.Email))
	}
}

// Delete handles DELETE /api/instructors/{id}. Courses the instructor
// taught become unassigned.
func Delete(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		middleware.Logger(r.Context()).Info("deleting an instructor", slog.String("id", id))
		response.WriteResult(w, http.StatusOK, reg.DeleteInstructor(r.Context(), id))
	}
}
