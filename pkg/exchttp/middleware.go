package exchttp

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/ashleyglee/exceptional/pkg/exceptional"
)

// CaptureOptions wires the capture middleware. Store may be nil, in which
// case records are only logged.
type CaptureOptions struct {
	Settings *exceptional.Settings
	Filters  *exceptional.FilterRegistry
	Store    exceptional.ErrorStore
}

// panicFault boxes a recovered panic value as an error that carries the
// goroutine stack, which the record's Detail picks up.
type panicFault struct {
	value any
	stack []byte
}

func (p *panicFault) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func (p *panicFault) Stack() []byte { return p.stack }

// Unwrap exposes the panic value's own chain when it was an error.
func (p *panicFault) Unwrap() error {
	if err, ok := p.value.(error); ok {
		return err
	}
	return nil
}

// statusRecorder remembers the status written so far, so the snapshot sees
// the response status at the moment of capture.
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.wrote = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

// Capture returns middleware that recovers a panic, records it as an error
// record with full request context, hands a clone to the store, and responds
// 500. A failed capture is logged and never re-panics: the 500 response is
// written regardless.
func Capture(opts CaptureOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				fault := &panicFault{value: v, stack: debug.Stack()}
				e, err := exceptional.New(fault, opts.Settings,
					exceptional.WithRequest(Snapshot(r, capturedStatus(rec)), opts.Filters))
				if err != nil {
					slog.Error("error capture failed",
						"error", err, "method", r.Method, "path", r.URL.Path)
				} else {
					if opts.Store != nil {
						// The request may still own the record; the store
						// gets its own copy.
						if err := opts.Store.Log(r.Context(), e.Clone()); err != nil {
							slog.Error("error store rejected record", "error", err, "guid", e.GUID)
						}
					}
					slog.Error("panic recovered",
						"guid", e.GUID,
						"type", e.Type,
						"message", e.Message,
						"method", r.Method,
						"path", r.URL.Path,
					)
				}
				if !rec.wrote {
					http.Error(rec, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// capturedStatus is the response status at capture time: zero until the
// handler has written one.
func capturedStatus(rec *statusRecorder) int {
	if rec.wrote {
		return rec.status
	}
	return 0
}
