// Package logging configura o slog do serviço: console colorido (tint)
// e, opcionalmente, arquivo JSON com rotação (lumberjack) — o mesmo
// papel do velho RotatingFileHandler: efeito colateral puro, nada aqui
// realimenta o fluxo de controle.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Name vira o nome do arquivo de log (<Name>.log) dentro de Dir.
	Name string
	// Dir vazio desliga o arquivo; fica só o console.
	Dir string

	FileMaxMB   int // padrão 10
	FileBackups int // padrão 5

	Level slog.Level
}

// Setup monta o logger e o define como default do processo. O io.Closer
// retornado fecha o arquivo rotacionado (no-op quando só há console).
func Setup(opts Options) (*slog.Logger, io.Closer) {
	if opts.Name == "" {
		opts.Name = "image-quality-api"
	}
	if opts.FileMaxMB <= 0 {
		opts.FileMaxMB = 10
	}
	if opts.FileBackups <= 0 {
		opts.FileBackups = 5
	}

	handlers := []slog.Handler{
		tint.NewHandler(os.Stderr, &tint.Options{Level: opts.Level}),
	}

	var closer io.Closer = nopCloser{}
	if opts.Dir != "" {
		rot := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, opts.Name+".log"),
			MaxSize:    opts.FileMaxMB,
			MaxBackups: opts.FileBackups,
		}
		handlers = append(handlers, slog.NewJSONHandler(rot, &slog.HandlerOptions{Level: opts.Level}))
		closer = rot
	}

	logger := slog.New(Fanout(handlers...))
	slog.SetDefault(logger)
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Fanout replica cada record para todos os handlers habilitados.
// O slog da stdlib não traz multi-handler; este é o mínimo necessário.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanoutHandler(handlers)
}

type fanoutHandler []slog.Handler

func (f fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanoutHandler) Handle(ctx context.Context, rec slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, rec.Level) {
			continue
		}
		if err := h.Handle(ctx, rec.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanoutHandler) WithGroup(name string) slog.Handler {
	out := make(fanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
