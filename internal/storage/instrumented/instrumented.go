// Package instrumented wraps a storage.Gateway and records Prometheus
// metrics for every call: a counter by operation and outcome, and a latency
// histogram by operation.
package instrumented

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aanand-mishra/school-records/internal/storage"
	"github.com/aanand-mishra/school-records/internal/types"
)

const namespace = "school_records"

// Outcome label values besides the types.ErrKind names.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var _ storage.Gateway = (*Gateway)(nil)

// Gateway is a metrics decorator. It adds no behaviour of its own.
type Gateway struct {
	next storage.Gateway
	ops  *prometheus.CounterVec
	dur  *prometheus.HistogramVec
}

// New registers the gateway collectors on reg and returns the decorator.
func New(next storage.Gateway, reg prometheus.Registerer) (*Gateway, error) {
	g := &Gateway{
		next: next,
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Gateway calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		dur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "operation_duration_seconds",
			Help:      "Gateway call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{g.ops, g.dur} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("instrumented.New: %w", err)
		}
	}
	return g, nil
}

func (g *Gateway) observe(op, outcome string, start time.Time) {
	g.ops.WithLabelValues(op, outcome).Inc()
	g.dur.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (g *Gateway) result(op string, fn func() types.Result) types.Result {
	start := time.Now()
	res := fn()
	outcome := OutcomeOK
	if !res.OK {
		outcome = string(res.Kind)
		if outcome == "" {
			outcome = OutcomeError
		}
	}
	g.observe(op, outcome, start)
	return res
}

func fetch[T any](g *Gateway, op string, fn func() ([]T, error)) ([]T, error) {
	start := time.Now()
	out, err := fn()
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	g.observe(op, outcome, start)
	return out, err
}

// ─────────────────────────────────────────────────────────────────────────────
// storage.Gateway. Each method forwards to next and records the call under
// its own name.
// ─────────────────────────────────────────────────────────────────────────────

// FetchCourses counts a returned error as OutcomeError.
func (g *Gateway) FetchCourses(ctx context.Context) ([]types.Course, error) {
	return fetch(g, "FetchCourses", func() ([]types.Course, error) { return g.next.FetchCourses(ctx) })
}

func (g *Gateway) FetchStudents(ctx context.Context) ([]types.Student, error) {
	return fetch(g, "FetchStudents", func() ([]types.Student, error) { return g.next.FetchStudents(ctx) })
}

func (g *Gateway) FetchInstructors(ctx context.Context) ([]types.Instructor, error) {
	return fetch(g, "FetchInstructors", func() ([]types.Instructor, error) { return g.next.FetchInstructors(ctx) })
}

func (g *Gateway) AddCourse(ctx context.Context, c types.Course) types.Result {
	return g.result("AddCourse", func() types.Result { return g.next.AddCourse(ctx, c) })
}

func (g *Gateway) AddStudent(ctx context.Context, s types.Student) types.Result {
	return g.result("AddStudent", func() types.Result { return g.next.AddStudent(ctx, s) })
}

func (g *Gateway) AddInstructor(ctx context.Context, i types.Instructor) types.Result {
	return g.result("AddInstructor", func() types.Result { return g.next.AddInstructor(ctx, i) })
}

func (g *Gateway) EditCourse(ctx context.Context, c types.Course) types.Result {
	return g.result("EditCourse", func() types.Result { return g.next.EditCourse(ctx, c) })
}

func (g *Gateway) EditStudent(ctx context.Context, s types.Student) types.Result {
	return g.result("EditStudent", func() types.Result { return g.next.EditStudent(ctx, s) })
}

func (g *Gateway) EditInstructor(ctx context.Context, i types.Instructor) types.Result {
	return g.result("EditInstructor", func() types.Result { return g.next.EditInstructor(ctx, i) })
}

func (g *Gateway) DeleteCourse(ctx context.Context, c types.Course) types.Result {
	return g.result("DeleteCourse", func() types.Result { return g.next.DeleteCourse(ctx, c) })
}

func (g *Gateway) DeleteStudent(ctx context.Context, s types.Student) types.Result {
	return g.result("DeleteStudent", func() types.Result { return g.next.DeleteStudent(ctx, s) })
}

func (g *Gateway) DeleteInstructor(ctx context.Context, i types.Instructor) types.Result {
	return g.result("DeleteInstructor", func() types.Result { return g.next.DeleteInstructor(ctx, i) })
}

func (g *Gateway) RegisterCourse(ctx context.Context, s types.Student, c types.Course) types.Result {
	return g.result("RegisterCourse", func() types.Result { return g.next.RegisterCourse(ctx, s, c) })
}

func (g *Gateway) UnregisterCourse(ctx context.Context, s types.Student, c types.Course) types.Result {
	return g.result("UnregisterCourse", func() types.Result { return g.next.UnregisterCourse(ctx, s, c) })
}

func (g *Gateway) AssignInstructor(ctx context.Context, i types.Instructor, c types.Course) types.Result {
	return g.result("AssignInstructor", func() types.Result { return g.next.AssignInstructor(ctx, i, c) })
}

func (g *Gateway) UnassignInstructor(ctx context.Context, i types.Instructor, c types.Course) types.Result {
	return g.result("UnassignInstructor", func() types.Result { return g.next.UnassignInstructor(ctx, i, c) })
}

// Close closes next. It is not measured.
func (g *Gateway) Close() error { return g.next.Close() }
