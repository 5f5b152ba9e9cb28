// Package infra contém implementações concretas (infraestrutura) para os
// contratos definidos no pacote domain.
//
// Exemplos:
//   - ChanGate: semáforo baseado em channel para as vagas de execução
//   - Queue: contador de admissão sob mutex
//   - Pool: workers fixos para a camada de execução bloqueante
//   - MemoryStatsStore / RedisStatsStore / PromStats: desfechos por razão
package infra
