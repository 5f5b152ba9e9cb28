package admission

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"image-quality-api/middleware/admission/application"
	"image-quality-api/middleware/admission/domain"
	"image-quality-api/middleware/admission/infra"

	"github.com/stretchr/testify/require"
)

func TestMiddleware_RejectsImmediatelyWhileDraining(t *testing.T) {
	drainer := application.NewDrainer()
	stats := infra.NewMemoryStatsStore()

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	h := Middleware(Options{Drainer: drainer, Stats: stats})(next)

	drainer.BeginDrain()

	r := httptest.NewRequest(http.MethodPost, "http://example/score-from-path", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.False(t, called, "handler must not run while draining")

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body["error"], "shutting down")

	require.Equal(t, int64(1), stats.Total()[domain.ReasonShuttingDown])
	// rejeitada antes do Enter: não conta como ativa
	require.Equal(t, 0, drainer.Active())
}

func TestMiddleware_BracketsActiveCount(t *testing.T) {
	drainer := application.NewDrainer()

	activeDuring := -1
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		activeDuring = drainer.Active()
		w.WriteHeader(http.StatusOK)
	})

	h := Middleware(Options{Drainer: drainer})(next)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, activeDuring)
	require.Equal(t, 0, drainer.Active())
}

func TestMiddleware_ExitRunsEvenWhenHandlerPanics(t *testing.T) {
	drainer := application.NewDrainer()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler blew up")
	})

	h := Middleware(Options{Drainer: drainer})(next)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	w := httptest.NewRecorder()
	require.Panics(t, func() { h.ServeHTTP(w, r) })

	require.Equal(t, 0, drainer.Active())
}

func TestMiddleware_SetsProcessTimeHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	h := Middleware(Options{})(next)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.NotEmpty(t, w.Header().Get("X-Process-Time"))
}

func TestStatusFor_MapsReasons(t *testing.T) {
	cases := map[domain.Reason]int{
		domain.ReasonCompleted:        http.StatusOK,
		domain.ReasonCapacityExceeded: http.StatusServiceUnavailable,
		domain.ReasonQueueTimeout:     http.StatusServiceUnavailable,
		domain.ReasonShuttingDown:     http.StatusServiceUnavailable,
		domain.ReasonComputation:      http.StatusBadRequest,
		domain.ReasonInternal:         http.StatusInternalServerError,
	}
	for reason, want := range cases {
		require.Equal(t, want, StatusFor(reason), "reason %s", reason)
	}
}

func TestWriteReasonError_CapacitySetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	WriteReasonError(w, domain.ReasonCapacityExceeded, "full")

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestWriteOutcomeError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	out := domain.Rejected(domain.ReasonInternal, domain.ErrInternal)
	WriteOutcomeError(w, out)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "internal server error", body["error"])
}
