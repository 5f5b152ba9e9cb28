package domain

import (
	"context"
	"errors"
)

// Work é a unidade de trabalho opaca que o escalonador protege.
// O escalonador não interpreta nada além de sucesso/erro.
type Work func(ctx context.Context) (any, error)

// Reason classifica o desfecho de uma submissão.
type Reason string

const (
	ReasonCompleted        Reason = "completed"
	ReasonCapacityExceeded Reason = "capacity_exceeded"
	ReasonQueueTimeout     Reason = "queue_timeout"
	ReasonShuttingDown     Reason = "shutting_down"
	ReasonComputation      Reason = "computation_error"
	ReasonInternal         Reason = "internal_error"
)

// Erros sentinela das camadas de admissão. Os handlers HTTP traduzem
// cada um para status/mensagem; o texto aqui é o que vai para o cliente
// nos casos de rejeição.
var (
	ErrCapacityExceeded = errors.New("server is at capacity, please try again later")
	ErrQueueWaitTimeout = errors.New("request timed out waiting in queue, please try again later")
	ErrShuttingDown     = errors.New("server is shutting down, please try again later")
	ErrExecutorClosed   = errors.New("executor closed for new work")
	ErrInternal         = errors.New("internal error")
)

// Outcome é o desfecho de uma unidade de trabalho submetida.
// Produzido exatamente uma vez por submissão.
type Outcome struct {
	Reason Reason
	Result any
	Err    error
}

func (o Outcome) OK() bool { return o.Reason == ReasonCompleted }

func Completed(result any) Outcome {
	return Outcome{Reason: ReasonCompleted, Result: result}
}

func Rejected(reason Reason, err error) Outcome {
	return Outcome{Reason: reason, Err: err}
}

// Load é a fotografia de carga para o endpoint de health.
type Load struct {
	QueueSize int
	InUse     int
	Capacity  int
}
