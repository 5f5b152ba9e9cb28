package client

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// BatchOptions controla o processamento de um diretório de imagens.
type BatchOptions struct {
	// Workers limita o fan-out concorrente (padrão 5).
	Workers int
	// Extensions filtra os arquivos (padrão .jpg/.jpeg/.png).
	Extensions []string
	Downscale  float64
	// Upload envia o arquivo (multipart); caso contrário usa o caminho.
	Upload bool
	// RetriesPerFile re-tenta cada arquivo individualmente (padrão 3),
	// por cima do retry de transporte do próprio Client.
	RetriesPerFile int
	// Pace, quando presente, espaça as submissões (token bucket) para
	// não martelar um servidor já saturado.
	Pace *rate.Limiter
}

// FileResult é o desfecho de um arquivo do batch.
type FileResult struct {
	Filename string
	Score    float64
	Err      error
}

// ProcessDirectory percorre o diretório recursivamente e pede o score de
// cada imagem, com fan-out limitado e resiliência por arquivo. A ordem
// dos resultados segue a ordem de descoberta dos arquivos.
func (c *Client) ProcessDirectory(ctx context.Context, dir string, opts BatchOptions) ([]FileResult, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}

	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".jpg", ".jpeg", ".png"}
	}
	if opts.Downscale == 0 {
		opts.Downscale = 1.0
	}
	if opts.RetriesPerFile <= 0 {
		opts.RetriesPerFile = 3
	}

	files, err := listImages(dir, opts.Extensions)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]FileResult, len(files))
	sem := make(chan struct{}, opts.Workers)
	var wg sync.WaitGroup

	for i, path := range files {
		if opts.Pace != nil {
			if err := opts.Pace.Wait(ctx); err != nil {
				results[i] = FileResult{Filename: filepath.Base(path), Err: err}
				continue
			}
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = c.processFile(ctx, path, opts)
		}(i, path)
	}

	wg.Wait()
	return results, nil
}

func (c *Client) processFile(ctx context.Context, path string, opts BatchOptions) FileResult {
	name := filepath.Base(path)

	for attempt := 0; ; attempt++ {
		var (
			res ScoreResult
			err error
		)
		if opts.Upload {
			res, err = c.ScoreFromFile(ctx, path, opts.Downscale)
		} else {
			res, err = c.ScoreFromPath(ctx, path, opts.Downscale)
		}
		if err == nil {
			return FileResult{Filename: res.Filename, Score: res.Score}
		}
		if attempt >= opts.RetriesPerFile-1 || ctx.Err() != nil {
			return FileResult{Filename: name, Err: err}
		}

		// jitter para evitar que todos os arquivos re-tentem em fase
		wait := time.Duration((math.Pow(2, float64(attempt)) + rand.Float64()*0.5) * float64(time.Second))
		if err := sleepCtx(ctx, wait); err != nil {
			return FileResult{Filename: name, Err: err}
		}
	}
}

func listImages(dir string, extensions []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
