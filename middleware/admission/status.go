package admission

import (
	"encoding/json"
	"net/http"
	"time"

	"image-quality-api/middleware/admission/domain"
)

// retryAfterCapacity é a recomendação de Retry-After quando a fila está
// cheia; o cliente deve recuar, o servidor nunca re-tenta por conta.
const retryAfterCapacity = 1 * time.Second

// StatusFor traduz a razão do Outcome para o status HTTP.
//
// Rejeições da camada de agendamento são classe 503 (retryable, exceto
// durante shutdown desta instância); erro da computação é culpa da
// entrada, classe 400; falha inesperada é 500 com mensagem genérica.
func StatusFor(reason domain.Reason) int {
	switch reason {
	case domain.ReasonCompleted:
		return http.StatusOK
	case domain.ReasonCapacityExceeded, domain.ReasonQueueTimeout, domain.ReasonShuttingDown:
		return http.StatusServiceUnavailable
	case domain.ReasonComputation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteOutcomeError escreve a resposta de erro JSON para um Outcome não-OK.
// Detalhe interno nunca vaza: para ReasonInternal a mensagem é genérica.
func WriteOutcomeError(w http.ResponseWriter, o domain.Outcome) {
	msg := "internal server error"
	if o.Reason != domain.ReasonInternal && o.Err != nil {
		msg = o.Err.Error()
	}
	WriteReasonError(w, o.Reason, msg)
}

// WriteReasonError escreve {"error": msg} com o status da razão e, no
// caso de fila cheia, o header Retry-After.
func WriteReasonError(w http.ResponseWriter, reason domain.Reason, msg string) {
	if reason == domain.ReasonCapacityExceeded {
		w.Header().Set("Retry-After", formatInt(int(retryAfterCapacity.Seconds())))
	}
	WriteJSON(w, StatusFor(reason), map[string]string{"error": msg})
}

// WriteJSON serializa v com o status dado. Erro de encode aqui é
// best-effort: a essa altura não dá mais para trocar o status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
