package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aabdeab/para-ecommerce/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError транслирует типизированную доменную ошибку в HTTP-код.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrStockNotFound),
		errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrReservationNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrOwnerRequired),
		errors.Is(err, domain.ErrOwnerConflict),
		errors.Is(err, domain.ErrGuestEmailInvalid),
		errors.Is(err, domain.ErrItemQtyInvalid),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrReservationQtyInvalid),
		errors.Is(err, domain.ErrProductIDRequired),
		errors.Is(err, domain.ErrOrderIDRequired),
		errors.Is(err, domain.ErrAmountNegative),
		errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrPaymentInvalid):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusPaymentRequired

	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrOrderNotCancelable),
		errors.Is(err, domain.ErrOrderStateInvalid),
		errors.Is(err, domain.ErrNoPaymentRecord),
		errors.Is(err, domain.ErrPaymentNotRefundable),
		errors.Is(err, domain.ErrShipmentStateInvalid),
		errors.Is(err, domain.ErrOrderVersionConflict):
		return http.StatusConflict

	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON читает тело запроса. Пустое тело допускается: все поля
// запросов опциональны и валидируются сервисным слоем.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
