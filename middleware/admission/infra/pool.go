package infra

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"image-quality-api/middleware/admission/domain"
)

// Pool é a camada de execução: um conjunto fixo de workers consumindo
// tarefas de um channel. A camada de agendamento nunca chama o trabalho
// diretamente; ela entrega a tarefa e espera o resultado por channel.
//
// Espera-se (invariante de configuração, não derivado automaticamente)
// que a capacidade do Gate seja <= Size() do pool, para que uma vaga
// adquirida sempre corresponda a um worker de fato disponível.
type Pool struct {
	tasks chan poolTask
	quit  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup

	closing atomic.Bool
	size    int
}

type poolTask struct {
	ctx  context.Context
	work domain.Work
	out  chan poolResult
}

type poolResult struct {
	value any
	err   error
}

// NewPool cria o pool e sobe `size` workers (mínimo 1).
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		tasks: make(chan poolTask),
		quit:  make(chan struct{}),
		size:  size,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) Size() int { return p.size }

// Execute implementa domain.Executor.
//
// A submissão pode ser cancelada pelo ctx enquanto nenhum worker pegou a
// tarefa; depois disso o trabalho roda até o fim (sem preempção) e o
// resultado é aguardado mesmo que o ctx expire no meio.
func (p *Pool) Execute(ctx context.Context, w domain.Work) (any, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil work", domain.ErrInternal)
	}
	if p.closing.Load() {
		return nil, domain.ErrExecutorClosed
	}

	t := poolTask{ctx: ctx, work: w, out: make(chan poolResult, 1)}

	select {
	case p.tasks <- t:
	case <-p.quit:
		return nil, domain.ErrExecutorClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// out tem buffer 1: o worker sempre consegue entregar, mesmo que o
	// caller já tenha desistido.
	r := <-t.out
	return r.value, r.err
}

// Close fecha o pool para novas submissões e espera os workers
// terminarem a tarefa corrente. Não interrompe trabalho em andamento.
func (p *Pool) Close() {
	p.closing.Store(true)
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case t := <-p.tasks:
			// o caller pode ter cancelado enquanto a tarefa esperava worker
			if err := t.ctx.Err(); err != nil {
				t.out <- poolResult{err: err}
				continue
			}
			t.out <- p.run(t)
		}
	}
}

func (p *Pool) run(t poolTask) (res poolResult) {
	defer func() {
		if r := recover(); r != nil {
			res = poolResult{err: fmt.Errorf("%w: panic in worker: %v", domain.ErrInternal, r)}
		}
	}()
	v, err := t.work(t.ctx)
	return poolResult{value: v, err: err}
}
