package infra

import (
	"context"
	"sync"

	"image-quality-api/middleware/admission/domain"
)

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes e desenvolvimento.
//
// Não faz expiração e não é indicada para produção.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   map[domain.Reason]int64
	byRoute map[string]map[domain.Reason]int64

	trackRoutes bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackRoutes(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackRoutes = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		total:   make(map[domain.Reason]int64),
		byRoute: make(map[string]map[domain.Reason]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.Event) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total[ev.Reason]++
	if s.trackRoutes {
		c := s.byRoute[route]
		if c == nil {
			c = make(map[domain.Reason]int64)
			s.byRoute[route] = c
		}
		c[ev.Reason]++
	}
	return nil
}

func (s *MemoryStatsStore) Total() map[domain.Reason]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Reason]int64, len(s.total))
	for k, v := range s.total {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByRoute() map[string]map[domain.Reason]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[domain.Reason]int64, len(s.byRoute))
	for route, c := range s.byRoute {
		cc := make(map[domain.Reason]int64, len(c))
		for k, v := range c {
			cc[k] = v
		}
		out[route] = cc
	}
	return out
}
