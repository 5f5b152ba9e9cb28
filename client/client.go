// Package client implementa o cliente da Image Quality Assessment API
// com retry, backoff exponencial e jitter. É um wrapper de conveniência
// best-effort: sem estado compartilhado além do pacer opcional do modo
// batch.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	httpc   *http.Client

	maxRetries    int
	backoffFactor float64
	jitter        float64
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff ajusta o fator exponencial e o jitter (em segundos)
// aplicados entre tentativas.
func WithBackoff(factor, jitter float64) Option {
	return func(c *Client) {
		if factor > 0 {
			c.backoffFactor = factor
		}
		if jitter >= 0 {
			c.jitter = jitter
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpc:         &http.Client{Timeout: 30 * time.Second},
		maxRetries:    3,
		backoffFactor: 1.5,
		jitter:        0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type ScoreResult struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
}

type Health struct {
	Status                string `json:"status"`
	ActiveRequests        int    `json:"active_requests"`
	QueueSize             int    `json:"queue_size"`
	MaxWorkers            int    `json:"max_workers"`
	MaxConcurrentRequests int    `json:"max_concurrent_requests"`
}

// Health consulta o endpoint de saúde (com retry).
func (c *Client) Health(ctx context.Context) (Health, error) {
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	})
	if err != nil {
		return Health{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Health{}, apiError(resp)
	}
	var h Health
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return Health{}, fmt.Errorf("decoding health response: %w", err)
	}
	return h, nil
}

// ScoreFromPath pede o score de um arquivo que o servidor enxerga pelo
// caminho (sem upload).
func (c *Client) ScoreFromPath(ctx context.Context, imagePath string, downscale float64) (ScoreResult, error) {
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		form := url.Values{}
		form.Set("image_path", imagePath)
		form.Set("downscale", strconv.FormatFloat(downscale, 'f', -1, 64))
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/score-from-path", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return ScoreResult{}, err
	}
	return decodeScore(resp)
}

// ScoreFromFile faz upload do arquivo e pede o score.
func (c *Client) ScoreFromFile(ctx context.Context, filePath string, downscale float64) (ScoreResult, error) {
	if _, err := os.Stat(filePath); err != nil {
		return ScoreResult{}, fmt.Errorf("image file not found: %s", filePath)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		// o corpo é remontado a cada tentativa: multipart não é
		// re-lível depois de consumido
		body, contentType, err := multipartFile(filePath, downscale)
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/score-from-file", body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return ScoreResult{}, err
	}
	return decodeScore(resp)
}

// doWithRetry executa a requisição com política de resiliência:
// erro de transporte → backoff exponencial + jitter; 503 → espera o
// Retry-After do servidor. Outros status são devolvidos ao caller.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries-1 {
				wait := time.Duration((math.Pow(c.backoffFactor, float64(attempt)) + rand.Float64()*c.jitter) * float64(time.Second))
				if err := sleepCtx(ctx, wait); err != nil {
					return nil, err
				}
			}
			continue
		}

		if resp.StatusCode == http.StatusServiceUnavailable {
			wait := retryAfter(resp) + time.Duration(rand.Float64()*c.jitter*float64(time.Second))
			drain(resp)
			lastErr = fmt.Errorf("server overloaded (503)")
			if attempt < c.maxRetries-1 {
				if err := sleepCtx(ctx, wait); err != nil {
					return nil, err
				}
			}
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 1 * time.Second
}

func decodeScore(resp *http.Response) (ScoreResult, error) {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ScoreResult{}, apiError(resp)
	}
	var out ScoreResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ScoreResult{}, fmt.Errorf("decoding score response: %w", err)
	}
	return out, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("api error (%d): %s", resp.StatusCode, body.Error)
}

func multipartFile(filePath string, downscale float64) (io.Reader, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("downscale", strconv.FormatFloat(downscale, 'f', -1, 64)); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
