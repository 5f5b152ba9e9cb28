package infra

import "sync"

// Queue implementa domain.Queue: um contador de admissão limitado,
// com check-and-increment atômico sob um único mutex (incremento e
// decremento compartilham o mesmo lock para não perder updates).
//
// Nenhuma operação bloqueia além do lock; quem espera por vaga espera
// no Gate, nunca aqui.
type Queue struct {
	mu   sync.Mutex
	max  int
	size int
}

// NewQueue cria a fila de admissão com limite `max` (mínimo 1).
func NewQueue(max int) *Queue {
	if max < 1 {
		max = 1
	}
	return &Queue{max: max}
}

// TryReserve tenta reservar um slot. Retorna false quando a fila está
// cheia, sem mutar estado.
func (q *Queue) TryReserve() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size >= q.max {
		return false
	}
	q.size++
	return true
}

// ReleaseReservation devolve um slot reservado. Deve ser chamado
// exatamente uma vez por TryReserve bem-sucedido.
func (q *Queue) ReleaseReservation() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size > 0 {
		q.size--
	}
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *Queue) Max() int { return q.max }
