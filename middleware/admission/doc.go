// Package admission fornece adapters HTTP (net/http) para o controle de
// admissão de requisições do serviço de score de imagens.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (fila → vaga → execução, dreno) sem net/http
//   - infra: implementações concretas (semáforo de channel, contador de
//     fila, pool de workers, stores de estatística), detalhes de infraestrutura
//   - admission (este pacote): middleware HTTP + tradução de Outcome para
//     status/headers/corpo de erro
//
// Fluxo no servidor:
//
//  1. Middleware checa o dreno: se o processo está desligando, responde 503
//     antes de qualquer outra coisa
//  2. Enter/Exit marcam a requisição como ativa para o dreno gracioso
//  3. O handler monta a unidade de trabalho e chama Scheduler.Submit
//  4. O Outcome vira status + JSON via este pacote
//
// Variáveis de ambiente do binário (cmd/api) controlam o comportamento,
// como MAX_CONCURRENT_REQUESTS, MAX_QUEUE_SIZE e REQUEST_TIMEOUT.
package admission
