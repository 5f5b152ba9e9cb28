package infra

import (
	"context"

	"image-quality-api/middleware/admission/domain"
)

type chanGate struct {
	sem chan struct{}
}

// NewChanGate cria as vagas de execução como um semáforo de channel com
// capacidade `max` (mínimo 1).
//
// O release retornado por Acquire é a única forma de devolver a vaga:
// quando ok=false nenhum token entrou no channel, então não há o que
// liberar — isso elimina a corrida clássica de "liberar um semáforo que
// talvez não tenha sido adquirido" em timeouts.
func NewChanGate(max int) domain.Gate {
	if max < 1 {
		max = 1
	}
	return &chanGate{sem: make(chan struct{}, max)}
}

func (g *chanGate) Acquire(ctx context.Context) (func(), bool) {
	select {
	case g.sem <- struct{}{}:
		return func() { <-g.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

func (g *chanGate) InUse() int    { return len(g.sem) }
func (g *chanGate) Capacity() int { return cap(g.sem) }
