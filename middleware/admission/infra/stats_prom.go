package infra

import (
	"context"

	"image-quality-api/middleware/admission/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PromStats expõe desfechos de admissão como counters Prometheus.
//
// O label é só a razão (cardinalidade fixa); rota fica de fora de
// propósito para não multiplicar séries.
type PromStats struct {
	outcomes *prometheus.CounterVec
}

func NewPromStats(reg prometheus.Registerer) *PromStats {
	s := &PromStats{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "image_quality",
			Subsystem: "admission",
			Name:      "outcomes_total",
			Help:      "Desfechos de submissões, por razão.",
		}, []string{"reason"}),
	}
	reg.MustRegister(s.outcomes)
	return s
}

func (s *PromStats) Record(_ context.Context, ev domain.Event) error {
	s.outcomes.WithLabelValues(string(ev.Reason)).Inc()
	return nil
}

// RegisterLoadMetrics registra gauges de carga corrente (fila, vagas em
// uso, requisições ativas) lendo das funções fornecidas a cada scrape.
func RegisterLoadMetrics(reg prometheus.Registerer, load func() domain.Load, active func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "image_quality",
		Subsystem: "admission",
		Name:      "queue_size",
		Help:      "Requisições com reserva de fila ainda não devolvida.",
	}, func() float64 { return float64(load().QueueSize) }))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "image_quality",
		Subsystem: "admission",
		Name:      "permits_in_use",
		Help:      "Vagas de execução em uso.",
	}, func() float64 { return float64(load().InUse) }))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "image_quality",
		Subsystem: "admission",
		Name:      "permit_capacity",
		Help:      "Capacidade total de vagas de execução.",
	}, func() float64 { return float64(load().Capacity) }))

	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "image_quality",
		Subsystem: "admission",
		Name:      "active_requests",
		Help:      "Requisições ativas (entre Enter e Exit do drain).",
	}, func() float64 { return float64(active()) }))
}

// MultiStats combina vários StatsStore em um só, best-effort: registra
// em todos e retorna o primeiro erro encontrado.
func MultiStats(stores ...domain.StatsStore) domain.StatsStore {
	return multiStats(stores)
}

type multiStats []domain.StatsStore

func (m multiStats) Record(ctx context.Context, ev domain.Event) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
