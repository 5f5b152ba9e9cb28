package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func scoreHandler(score float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ScoreResult{
			Filename: "img.png",
			Score:    score,
		})
	}
}

func TestScoreFromPath_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/score-from-path", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "/imgs/img.png", r.FormValue("image_path"))
		require.Equal(t, "0.5", r.FormValue("downscale"))
		scoreHandler(42.5)(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.ScoreFromPath(context.Background(), "/imgs/img.png", 0.5)
	require.NoError(t, err)
	require.Equal(t, "img.png", res.Filename)
	require.Equal(t, 42.5, res.Score)
}

func TestScoreFromPath_RetriesOn503ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "server is at capacity"})
			return
		}
		scoreHandler(10)(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL, WithBackoff(1.0, 0))
	res, err := c.ScoreFromPath(context.Background(), "/x.png", 1.0)
	require.NoError(t, err)
	require.Equal(t, 10.0, res.Score)
	require.Equal(t, int32(2), calls.Load())
}

func TestScoreFromPath_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, WithMaxRetries(2), WithBackoff(1.0, 0))
	_, err := c.ScoreFromPath(context.Background(), "/x.png", 1.0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed after 2 attempts")
	require.Equal(t, int32(2), calls.Load())
}

func TestScoreFromPath_BadRequestIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "file not found"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ScoreFromPath(context.Background(), "/x.png", 1.0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "api error (400): file not found")
	require.Equal(t, int32(1), calls.Load(), "4xx must not retry")
}

func TestScoreFromFile_SendsMultipart(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(imgPath, []byte("fake-png-bytes"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "0.75", r.FormValue("downscale"))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "photo.png", header.Filename)

		scoreHandler(7)(w, r)
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.ScoreFromFile(context.Background(), imgPath, 0.75)
	require.NoError(t, err)
	require.Equal(t, 7.0, res.Score)
}

func TestScoreFromFile_MissingLocalFile(t *testing.T) {
	c := New("http://localhost:1")
	_, err := c.ScoreFromFile(context.Background(), "/nonexistent.png", 1.0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "image file not found")
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Health{
			Status:                "healthy",
			MaxWorkers:            4,
			MaxConcurrentRequests: 6,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	require.Equal(t, "healthy", h.Status)
	require.Equal(t, 4, h.MaxWorkers)
}

func TestRetryAfter_Parsing(t *testing.T) {
	mk := func(v string) *http.Response {
		h := http.Header{}
		if v != "" {
			h.Set("Retry-After", v)
		}
		return &http.Response{Header: h}
	}

	require.Equal(t, 3*time.Second, retryAfter(mk("3")))
	require.Equal(t, time.Duration(0), retryAfter(mk("0")))
	require.Equal(t, time.Second, retryAfter(mk("")))
	require.Equal(t, time.Second, retryAfter(mk("soon")))
}

func TestProcessDirectory_ScoresAllImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.jpg", "notes.txt", "c.jpeg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		_ = json.NewEncoder(w).Encode(ScoreResult{
			Filename: filepath.Base(r.FormValue("image_path")),
			Score:    1,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	results, err := c.ProcessDirectory(context.Background(), dir, BatchOptions{Workers: 2})
	require.NoError(t, err)
	require.Len(t, results, 3, "txt file must be skipped")

	// resultados na ordem de descoberta (alfabética no WalkDir)
	require.Equal(t, "a.png", results[0].Filename)
	require.Equal(t, "b.jpg", results[1].Filename)
	require.Equal(t, "c.jpeg", results[2].Filename)
	for _, res := range results {
		require.NoError(t, res.Err)
	}
}

func TestProcessDirectory_MissingDir(t *testing.T) {
	c := New("http://localhost:1")
	_, err := c.ProcessDirectory(context.Background(), "/nonexistent-dir", BatchOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "directory not found")
}

func TestProcessDirectory_EmptyDir(t *testing.T) {
	c := New("http://localhost:1")
	results, err := c.ProcessDirectory(context.Background(), t.TempDir(), BatchOptions{})
	require.NoError(t, err)
	require.Empty(t, results)
}
