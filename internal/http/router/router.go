// Package router wires every HTTP route to its handler.
//
// Route table:
//
//	GET    /api/students                                 list students
//	POST   /api/students                                 add a student
//	GET    /api/students/{id}                            one student
//	PUT    /api/students/{id}                            edit a student
//	DELETE /api/students/{id}                            delete a student
//	       /api/instructors...                           same five routes
//	       /api/courses...                               same five routes
//	POST   /api/courses/{id}/students/{studentID}        register
//	DELETE /api/courses/{id}/students/{studentID}        unregister
//	POST   /api/courses/{id}/instructor/{instructorID}   assign
//	DELETE /api/courses/{id}/instructor/{instructorID}   unassign
//	POST   /api/refresh                                  reload the cache from storage
//	GET    /metrics                                      Prometheus metrics
package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/school-records/internal/http/handlers/course"
	"github.com/aanand-mishra/school-records/internal/http/handlers/instructor"
	"github.com/aanand-mishra/school-records/internal/http/handlers/student"
	"github.com/aanand-mishra/school-records/internal/http/middleware"
	"github.com/aanand-mishra/school-records/internal/utils/response"
)

// Registry is everything the handlers need from the shared cache.
type Registry interface {
	student.Registry
	instructor.Registry
	course.Registry
	Refresh(ctx context.Context) error
}

// New returns the application handler. metrics is mounted at /metrics.
func New(reg Registry, metrics http.Handler, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/students", student.GetList(reg))
	mux.HandleFunc("POST /api/students", student.New(reg))
	mux.HandleFunc("GET /api/students/{id}", student.GetByID(reg))
	mux.HandleFunc("PUT /api/students/{id}", student.Update(reg))
	mux.HandleFunc("DELETE /api/students/{id}", student.Delete(reg))

	mux.HandleFunc("GET /api/instructors", instructor.GetList(reg))
	mux.HandleFunc("POST /api/instructors", instructor.New(reg))
	mux.HandleFunc("GET /api/instructors/{id}", instructor.GetByID(reg))
	mux.HandleFunc("PUT /api/instructors/{id}", instructor.Update(reg))
	mux.HandleFunc("DELETE /api/instructors/{id}", instructor.Delete(reg))

	mux.HandleFunc("GET /api/courses", course.GetList(reg))
	mux.HandleFunc("POST /api/courses", course.New(reg))
	mux.HandleFunc("GET /api/courses/{id}", course.GetByID(reg))
	mux.HandleFunc("PUT /api/courses/{id}", course.Update(reg))
	mux.HandleFunc("DELETE /api/courses/{id}", course.Delete(reg))

	mux.HandleFunc("POST /api/courses/{id}/students/{studentID}", course.Register(reg))
	mux.HandleFunc("DELETE /api/courses/{id}/students/{studentID}", course.Unregister(reg))
	mux.HandleFunc("POST /api/courses/{id}/instructor/{instructorID}", course.Assign(reg))
	mux.HandleFunc("DELETE /api/courses/{id}/instructor/{instructorID}", course.Unassign(reg))

	mux.HandleFunc("POST /api/refresh", refresh(reg))
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return middleware.RequestID(log)(mux)
}

// refresh re-reads every collection from storage. On failure the cache
// keeps serving what it had.
func refresh(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.Logger(r.Context())
		if err := reg.Refresh(r.Context()); err != nil {
			log.Error("refresh failed", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		response.WriteJSON(w, http.StatusOK, response.Response{Status: response.StatusOK})
	}
}
