package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/canchalibre/market/internal/market"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainErr maps engine errors onto HTTP codes. Validation failures are
// 4xx; anything the store could not persist is a plain 500.
func writeDomainErr(w http.ResponseWriter, err error) {
	var ise *market.InsufficientStockError
	if errors.As(err, &ise) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient_stock",
			"product_id": ise.ProductID,
			"requested":  ise.Requested,
			"available":  ise.Available,
		})
		return
	}

	code, label := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, market.ErrNotFound):
		code, label = http.StatusNotFound, "not_found"
	case errors.Is(err, market.ErrItemNotFound):
		code, label = http.StatusNotFound, "item_not_found"
	case errors.Is(err, market.ErrInvalidQuantity):
		code, label = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, market.ErrInvalidSlot):
		code, label = http.StatusConflict, "invalid_slot"
	case errors.Is(err, market.ErrCartFull):
		code, label = http.StatusConflict, "cart_full"
	case errors.Is(err, market.ErrQuantityCap):
		code, label = http.StatusConflict, "quantity_cap"
	case errors.Is(err, market.ErrEmptyCart):
		code, label = http.StatusConflict, "empty_cart"
	case errors.Is(err, market.ErrBadTransition):
		code, label = http.StatusConflict, "bad_transition"
	}
	writeJSON(w, code, map[string]string{"error": label, "detail": err.Error()})
}
