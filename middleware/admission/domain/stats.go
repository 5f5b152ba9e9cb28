package domain

import (
	"context"
	"time"
)

// Event representa o desfecho de uma submissão, para fins de estatística.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings
// genéricas e podem ficar vazias fora de um servidor web.
//
// Observação: cuidado com cardinalidade (ex.: salvar Path sem controle
// pode explodir o número de chaves em uma base como Redis/Prometheus).
type Event struct {
	Reason Reason

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas de admissão.
//
// Implementações podem armazenar em Redis, Prometheus, memória, etc.
// Quem registra deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev Event) error
}
