package application

import (
	"context"
	"errors"
	"time"

	"image-quality-api/middleware/admission/domain"
)

// Scheduler orquestra a admissão de uma unidade de trabalho:
// reserva de fila → espera por vaga com timeout → execução via Executor
// → liberação da vaga → devolução da reserva.
//
// Todo caminho de saída (rejeição, timeout, erro, sucesso) deixa fila e
// vagas exatamente como estavam antes da requisição entrar; as
// liberações são por defer, então valem inclusive sob panic do caminho
// de agendamento. A ordem dos defers garante que a vaga é liberada
// antes da reserva de fila.
type Scheduler struct {
	Queue    domain.Queue
	Gate     domain.Gate
	Executor domain.Executor

	// WaitTimeout é o orçamento de espera por uma vaga.
	// - Se <= 0, espera indefinidamente (até ctx cancelar).
	// - Se > 0, espera até o timeout.
	WaitTimeout time.Duration
}

// Submit executa a máquina de estados de uma requisição e produz o
// Outcome exatamente uma vez.
func (s *Scheduler) Submit(ctx context.Context, w domain.Work) domain.Outcome {
	if s.Queue != nil {
		if !s.Queue.TryReserve() {
			return domain.Rejected(domain.ReasonCapacityExceeded, domain.ErrCapacityExceeded)
		}
		defer s.Queue.ReleaseReservation()
	}

	release, ok := s.acquire(ctx)
	if !ok {
		// nenhuma vaga foi adquirida: não há release a fazer
		return domain.Rejected(domain.ReasonQueueTimeout, domain.ErrQueueWaitTimeout)
	}
	defer release()

	result, err := s.execute(ctx, w)
	if err != nil {
		return domain.Rejected(classify(err), err)
	}
	return domain.Completed(result)
}

// CurrentLoad retorna a fotografia de carga para health/métricas.
func (s *Scheduler) CurrentLoad() domain.Load {
	var l domain.Load
	if s.Queue != nil {
		l.QueueSize = s.Queue.Size()
	}
	if s.Gate != nil {
		l.InUse = s.Gate.InUse()
		l.Capacity = s.Gate.Capacity()
	}
	return l
}

// acquire tenta adquirir uma vaga respeitando WaitTimeout.
// Retorna (release, ok). Se ok=false, nenhuma vaga foi adquirida.
func (s *Scheduler) acquire(ctx context.Context) (func(), bool) {
	if s.Gate == nil {
		return func() {}, true
	}

	if s.WaitTimeout <= 0 {
		return s.Gate.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.WaitTimeout)
	defer cancel()
	return s.Gate.Acquire(acqCtx)
}

func (s *Scheduler) execute(ctx context.Context, w domain.Work) (any, error) {
	if s.Executor == nil {
		return w(ctx)
	}
	return s.Executor.Execute(ctx, w)
}

func classify(err error) domain.Reason {
	switch {
	case errors.Is(err, domain.ErrExecutorClosed):
		return domain.ReasonShuttingDown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// o caller desistiu antes de um worker pegar o trabalho
		return domain.ReasonQueueTimeout
	case errors.Is(err, domain.ErrInternal):
		return domain.ReasonInternal
	default:
		return domain.ReasonComputation
	}
}
