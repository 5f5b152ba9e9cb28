package application

import (
	"context"
	"sync"
	"time"
)

// intervalo de verificação do dreno; curto o bastante para o shutdown
// não esperar à toa, longo o bastante para não virar busy-wait.
const drainPollInterval = 50 * time.Millisecond

// Drainer coordena o desligamento gracioso do processo: marca o estado
// como draining (monotônico, nunca volta atrás), acompanha quantas
// requisições estão ativas e espera todas terminarem até um prazo.
//
// O Drainer não sabe nada sobre sinais de SO: quem recebe SIGTERM/SIGINT
// (cmd/api) chama BeginDrain. Enter/Exit devem abraçar a vida inteira de
// uma requisição admitida, com Exit garantido em todo caminho de saída.
type Drainer struct {
	mu       sync.Mutex
	draining bool
	active   int
}

func NewDrainer() *Drainer {
	return &Drainer{}
}

// BeginDrain é idempotente: a primeira chamada vira a chave; as demais
// são no-ops.
func (d *Drainer) BeginDrain() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.draining = true
}

func (d *Drainer) IsDraining() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draining
}

func (d *Drainer) Enter() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active++
}

func (d *Drainer) Exit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active > 0 {
		d.active--
	}
}

func (d *Drainer) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// AwaitDrainComplete bloqueia até todas as requisições ativas terminarem
// ou o ctx expirar (prazo de graça). Retorna true se o dreno foi limpo.
//
// É polling de propósito: uma requisição que passou pela checagem de
// dreno pouco antes do flag virar ainda chama Enter logo depois, e o
// poll a enxerga na próxima volta — um sinal de "zerou" disparado uma
// única vez a perderia.
func (d *Drainer) AwaitDrainComplete(ctx context.Context) bool {
	t := time.NewTicker(drainPollInterval)
	defer t.Stop()

	for {
		if d.Active() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
}
