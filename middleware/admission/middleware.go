package admission

import (
	"log/slog"
	"net/http"
	"time"

	"image-quality-api/middleware/admission/application"
	"image-quality-api/middleware/admission/domain"
)

type Options struct {
	Drainer *application.Drainer
	Stats   domain.StatsStore
	Logger  *slog.Logger
}

// Middleware é o guarda externo de toda requisição: rejeita imediatamente
// quando o processo está drenando, marca a requisição como ativa
// (Enter/Exit em todo caminho de saída) e adiciona o header
// X-Process-Time + log de conclusão.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Drainer != nil && opts.Drainer.IsDraining() {
				if opts.Stats != nil {
					_ = opts.Stats.Record(r.Context(), domain.Event{
						Reason: domain.ReasonShuttingDown,
						Method: r.Method,
						Path:   r.URL.Path,
						At:     time.Now(),
					})
				}
				WriteReasonError(w, domain.ReasonShuttingDown, domain.ErrShuttingDown.Error())
				return
			}

			start := time.Now()

			if opts.Drainer != nil {
				opts.Drainer.Enter()
				defer opts.Drainer.Exit()
			}

			tw := &timingWriter{ResponseWriter: w, start: start}
			next.ServeHTTP(tw, r)

			opts.Logger.Info("request processed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", tw.Status(),
				"duration", time.Since(start))
		})
	}
}

// timingWriter injeta X-Process-Time no momento do primeiro write, que é
// a última chance de mexer em headers no net/http.
type timingWriter struct {
	http.ResponseWriter
	start  time.Time
	status int
	wrote  bool
}

func (w *timingWriter) WriteHeader(code int) {
	if !w.wrote {
		w.wrote = true
		w.status = code
		w.Header().Set("X-Process-Time", formatFloat(time.Since(w.start).Seconds()))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *timingWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *timingWriter) Status() int {
	if !w.wrote {
		return http.StatusOK
	}
	return w.status
}
