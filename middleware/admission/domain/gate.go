package domain

import "context"

// Gate representa as vagas de execução: um recurso com capacidade finita
// que limita quantas unidades de trabalho rodam ao mesmo tempo.
//
// A semântica é: Acquire bloqueia até conseguir uma vaga ou até o ctx
// encerrar. Ao adquirir, retorna uma função de release que deve ser
// chamada exatamente uma vez. Quando ok=false, nenhuma vaga foi adquirida
// e não existe release a fazer — o caller nunca deve "adivinhar" se
// adquiriu olhando para o estado da espera; a posse da vaga é exatamente
// a posse da função de release.
type Gate interface {
	Acquire(ctx context.Context) (release func(), ok bool)

	// InUse e Capacity existem para observabilidade (health/métricas).
	InUse() int
	Capacity() int
}

// Queue é o contador de admissão: quantas requisições já foram aceitas
// pelo sistema (reservaram um slot) e ainda não devolveram a reserva.
// Uma requisição reservada pode ainda estar esperando vaga no Gate —
// é exatamente isso que a fila representa.
//
// TryReserve é um check-and-increment atômico: retorna false quando a
// fila está cheia, sem mutar estado. ReleaseReservation deve ser chamado
// exatamente uma vez para cada TryReserve que retornou true, em todo
// caminho de saída da requisição.
type Queue interface {
	TryReserve() bool
	ReleaseReservation()
	Size() int
}
