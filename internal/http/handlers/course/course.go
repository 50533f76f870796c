// Package course contains the HTTP handlers for courses and for the two
// relationships hanging off a course: enrolled students and the assigned
// instructor.
package course

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

type Registry interface {
	Courses() []types.Course
	Course(id string) (types.Course, bool)
	AddCourse(ctx context.Context, c types.Course) types.Result
	EditCourse(ctx context.Context, id, name string) types.Result
	DeleteCourse(ctx context.Context, id string) types.Result

	Register(ctx context.Context, studentID, courseID string) types.Result
	Unregister(ctx context.Context, studentID, courseID string) types.Result
	Assign(ctx context.Context, instructorID, courseID string) types.Result
	Unassign(ctx context.Context, instructorID, courseID string) types.Result
}

// New handles POST /api/courses.
//
//	{ "course_id": "CRS01", "course_name": "CourseX" }
func New(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context())
		log.Info("creating a course")

		var c types.Course
		if err := request.DecodeJSON(r, &c); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		res := reg.AddCourse(r.Context(), c)
		if res.OK {
			log.Info("course created", slog.String("id", c.CourseID))
		}
		response.WriteResult(w, http.StatusCreated, res)
	}
}

// GetList handles GET /api/courses.
func GetList(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, reg.Courses())
	}
}

// GetByID handles GET /api/courses/{id}.
func GetByID(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		c, ok := reg.Course(id)
		if !ok {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(errors.New("Course "+id+" not found")))
			return
		}
		response.WriteJSON(w, http.StatusOK, c)
	}
}

// Update handles PUT /api/courses/{id}. Only the name can change.
//
//	{ "course_name": "CourseY" }
func Update(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		middleware.Logger(r.Context()).Info("updating a course", slog.String("id", id))

		var body struct {
			CourseName string `json:"course_name"`
		}
		if err := request.DecodeJSON(r, &body); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		response.WriteResult(w, http.StatusOK, reg.EditCourse(r.Context(), id, body.CourseName))
	}
}

// Delete handles DELETE /api/courses/{id}. Enrollments are removed and the
// instructor loses the course.
func Delete(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		middleware.Logger(r.Context()).Info("deleting a course", slog.String("id", id))
		response.WriteResult(w, http.StatusOK, reg.DeleteCourse(r.Context(), id))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Relationships
//
//	POST   /api/courses/{id}/students/{studentID}       register
//	DELETE /api/courses/{id}/students/{studentID}       unregister
//	POST   /api/courses/{id}/instructor/{instructorID}  assign
//	DELETE /api/courses/{id}/instructor/{instructorID}  unassign
// ─────────────────────────────────────────────────────────────────────────────

// Register enrolls a student in the course.
func Register(reg Registry) http.HandlerFunc {
	return link(reg.Register, "studentID", "registering a student")
}

// Unregister removes a student from the course.
func Unregister(reg Registry) http.HandlerFunc {
	return link(reg.Unregister, "studentID", "unregistering a student")
}

// Assign makes an instructor teach the course.
func Assign(reg Registry) http.HandlerFunc {
	return link(reg.Assign, "instructorID", "assigning an instructor")
}

// Unassign takes the instructor off the course.
func Unassign(reg Registry) http.HandlerFunc {
	return link(reg.Unassign, "instructorID", "unassigning an instructor")
}

func link(op func(ctx context.Context, otherID, courseID string) types.Result, param, msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courseID, otherID := r.PathValue("id"), r.PathValue(param)
		middleware.Logger(r.Context()).Info(msg,
			slog.String("course_id", courseID),
			slog.String(param, otherID))
		response.WriteResult(w, http.StatusOK, op(r.Context(), otherID, courseID))
	}
}
