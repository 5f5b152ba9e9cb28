package domain

import "context"

// Executor é a fronteira entre a camada de agendamento (não bloqueante)
// e a camada de execução (bloqueante, CPU-bound).
//
// Execute entrega a unidade de trabalho para a camada de execução e
// espera o resultado. Uma submissão ainda não iniciada pode ser
// cancelada pelo ctx; trabalho já em execução não é interrompido.
type Executor interface {
	Execute(ctx context.Context, w Work) (any, error)
}
