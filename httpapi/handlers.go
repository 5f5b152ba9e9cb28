// Package httpapi contém os handlers HTTP do serviço de score de
// qualidade de imagens: upload (multipart), score por caminho, health e
// banner. Os handlers são adapters finos: validam entrada, montam a
// unidade de trabalho e delegam para o Scheduler; a tradução de Outcome
// para status/JSON mora no pacote admission.
package httpapi

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"image-quality-api/middleware/admission"
	"image-quality-api/middleware/admission/application"
	"image-quality-api/middleware/admission/domain"
	"image-quality-api/scoring"
)

const (
	// um pouco acima do limite de 20MB do engine, para que o excesso
	// vire o erro específico de "file too large" e não um corte de body
	maxUploadBytes = 25 << 20

	memBufferBytes = 8 << 20

	Version = "1.0.0"
)

type Server struct {
	Scheduler *application.Scheduler
	Drainer   *application.Drainer
	Engine    *scoring.Engine
	Stats     domain.StatsStore
	Logger    *slog.Logger

	// MaxWorkers aparece no /health; o invariante documentado é
	// capacidade do gate <= MaxWorkers.
	MaxWorkers int

	// Metrics, quando presente, é montado em GET /metrics.
	Metrics http.Handler
}

// Handler monta o mux: os endpoints de score passam pelo middleware de
// admissão (dreno + contagem de ativos); health, métricas e banner ficam
// fora para continuarem respondendo durante o desligamento.
func (s *Server) Handler() http.Handler {
	guarded := admission.Middleware(admission.Options{
		Drainer: s.Drainer,
		Stats:   s.Stats,
		Logger:  s.logger(),
	})

	mux := http.NewServeMux()
	mux.Handle("POST /score-from-file", guarded(http.HandlerFunc(s.handleScoreFromFile)))
	mux.Handle("POST /score-from-path", guarded(http.HandlerFunc(s.handleScoreFromPath)))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	return mux
}

func (s *Server) handleScoreFromFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(memBufferBytes); err != nil {
		admission.WriteJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		admission.WriteJSON(w, http.StatusBadRequest, errorBody("missing file field"))
		return
	}
	defer file.Close()

	downscale, ok := parseDownscale(r.FormValue("downscale"))
	if !ok {
		admission.WriteJSON(w, http.StatusBadRequest, errorBody("downscale must be a number"))
		return
	}

	tmpPath, err := saveTemp(file)
	if err != nil {
		s.logger().Error("failed to spool upload", "filename", header.Filename, "err", err)
		admission.WriteJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
		return
	}
	defer removeTemp(s.logger(), tmpPath)

	s.logger().Info("processing file upload", "filename", header.Filename, "downscale", downscale)
	s.score(w, r, tmpPath, header.Filename, downscale)
}

func (s *Server) handleScoreFromPath(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		admission.WriteJSON(w, http.StatusBadRequest, errorBody("invalid form"))
		return
	}

	imagePath := r.FormValue("image_path")
	if imagePath == "" {
		admission.WriteJSON(w, http.StatusBadRequest, errorBody("image_path is required"))
		return
	}

	downscale, ok := parseDownscale(r.FormValue("downscale"))
	if !ok {
		admission.WriteJSON(w, http.StatusBadRequest, errorBody("downscale must be a number"))
		return
	}

	s.logger().Info("processing image from path", "path", imagePath, "downscale", downscale)
	s.score(w, r, imagePath, filepath.Base(imagePath), downscale)
}

// score é o miolo comum: submete a unidade de trabalho ao escalonador e
// traduz o Outcome.
func (s *Server) score(w http.ResponseWriter, r *http.Request, path, filename string, downscale float64) {
	start := time.Now()
	outcome := s.Scheduler.Submit(r.Context(), func(ctx context.Context) (any, error) {
		return s.Engine.Score(ctx, path, downscale)
	})
	s.recordStats(r, outcome.Reason)

	if !outcome.OK() {
		s.logger().Warn("scoring not completed",
			"filename", filename, "reason", outcome.Reason, "err", outcome.Err)
		admission.WriteOutcomeError(w, outcome)
		return
	}

	sc, okResult := outcome.Result.(float64)
	if !okResult {
		s.logger().Error("unexpected result type from work unit", "filename", filename)
		admission.WriteJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
		return
	}

	s.logger().Info("scored image",
		"filename", filename, "score", round2(sc), "duration", time.Since(start))
	admission.WriteJSON(w, http.StatusOK, scoreResponse{Filename: filename, Score: round2(sc)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if s.Drainer != nil && s.Drainer.IsDraining() {
		status = "shutting_down"
	}

	var load domain.Load
	if s.Scheduler != nil {
		load = s.Scheduler.CurrentLoad()
	}

	active := 0
	if s.Drainer != nil {
		active = s.Drainer.Active()
	}

	admission.WriteJSON(w, http.StatusOK, healthResponse{
		Status:                status,
		Timestamp:             float64(time.Now().UnixMilli()) / 1000,
		ActiveRequests:        active,
		QueueSize:             load.QueueSize,
		PermitsInUse:          load.InUse,
		MaxWorkers:            s.MaxWorkers,
		MaxConcurrentRequests: load.Capacity,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	status := "available"
	if s.Drainer != nil && s.Drainer.IsDraining() {
		status = "shutting_down"
	}
	admission.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Image Quality Assessment API",
		"version": Version,
		"endpoints": map[string]string{
			"/score-from-file": "Upload an image file to get quality score",
			"/score-from-path": "Provide a path to an image file to get quality score",
			"/health":          "Health check endpoint",
		},
		"status": status,
	})
}

func (s *Server) recordStats(r *http.Request, reason domain.Reason) {
	if s.Stats == nil {
		return
	}
	_ = s.Stats.Record(r.Context(), domain.Event{
		Reason: reason,
		Method: r.Method,
		Path:   r.URL.Path,
		At:     time.Now(),
	})
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

type scoreResponse struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

type healthResponse struct {
	Status                string  `json:"status"`
	Timestamp             float64 `json:"timestamp"`
	ActiveRequests        int     `json:"active_requests"`
	QueueSize             int     `json:"queue_size"`
	PermitsInUse          int     `json:"permits_in_use"`
	MaxWorkers            int     `json:"max_workers"`
	MaxConcurrentRequests int     `json:"max_concurrent_requests"`
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// parseDownscale valida presença/numericidade; o clamp para [0.1, 1.0]
// é do contrato do scoring, não daqui.
func parseDownscale(v string) (float64, bool) {
	if v == "" {
		return 1.0, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func saveTemp(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "score-upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func removeTemp(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to delete temp file", "path", path, "err", err)
	}
}
