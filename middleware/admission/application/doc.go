// Package application contém os casos de uso do controle de admissão.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Scheduler.Submit(ctx, work) percorre fila → vaga → execução e
// retorna um Outcome; Drainer coordena o desligamento gracioso.
package application
