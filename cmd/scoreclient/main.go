package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-quality-api/client"

	"golang.org/x/time/rate"
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8000", "base URL da API")
		dir       = flag.String("dir", "", "diretório de imagens para processar em lote")
		file      = flag.String("file", "", "um único arquivo de imagem")
		upload    = flag.Bool("upload", false, "envia o arquivo (multipart) em vez de mandar o caminho")
		downscale = flag.Float64("downscale", 1.0, "fator de redução antes do score (0.1 a 1.0)")
		workers   = flag.Int("workers", 5, "fan-out concorrente no modo batch")
		rps       = flag.Float64("rps", 0, "limite de submissões por segundo no modo batch (0 = sem limite)")
		retries   = flag.Int("retries", 3, "tentativas por arquivo")
		timeout   = flag.Duration("timeout", 30*time.Second, "timeout por requisição HTTP")
	)
	flag.Parse()

	if *dir == "" && *file == "" {
		fmt.Fprintln(os.Stderr, "uso: scoreclient -dir <diretório> | -file <arquivo> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := client.New(*baseURL,
		client.WithMaxRetries(*retries),
		client.WithHTTPClient(httpClient(*timeout)),
	)

	if h, err := c.Health(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "api unreachable: %v\n", err)
		os.Exit(1)
	} else if h.Status != "healthy" {
		fmt.Fprintf(os.Stderr, "api status: %s\n", h.Status)
	}

	if *file != "" {
		res, err := scoreOne(ctx, c, *file, *upload, *downscale)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\t%.2f\n", res.Filename, res.Score)
		return
	}

	opts := client.BatchOptions{
		Workers:        *workers,
		Downscale:      *downscale,
		Upload:         *upload,
		RetriesPerFile: *retries,
	}
	if *rps > 0 {
		opts.Pace = rate.NewLimiter(rate.Limit(*rps), 1)
	}

	results, err := c.ProcessDirectory(ctx, *dir, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Printf("no image files found in %s\n", *dir)
		return
	}

	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		fmt.Printf("%s\t%.2f\n", r.Filename, r.Score)
	}

	if errCount > 0 {
		fmt.Fprintf(os.Stderr, "\n%d errors:\n", errCount)
		shown := 0
		for _, r := range results {
			if r.Err == nil {
				continue
			}
			if shown < 5 {
				fmt.Fprintf(os.Stderr, "  %s: %v\n", r.Filename, r.Err)
			}
			shown++
		}
		if shown > 5 {
			fmt.Fprintf(os.Stderr, "  ... and %d more errors\n", shown-5)
		}
		os.Exit(1)
	}
}

func httpClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func scoreOne(ctx context.Context, c *client.Client, path string, upload bool, downscale float64) (client.ScoreResult, error) {
	if upload {
		return c.ScoreFromFile(ctx, path, downscale)
	}
	return c.ScoreFromPath(ctx, path, downscale)
}
