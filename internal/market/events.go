package market

import (
	"encoding/json"
	"time"
)

const (
	EventRequestCreated  = "RequestCreated"
	EventRequestApproved = "RequestApproved"
	EventRequestDeleted  = "RequestDeleted"
	EventCartCheckedOut  = "CartCheckedOut"
	EventStockRejected   = "StockRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// RequestEventPayload is shared by the request lifecycle events. Status is the
// request's status after the event (for RequestDeleted, at the moment of
// deletion).
type RequestEventPayload struct {
	RequestID       string `json:"request_id"`
	ProductID       string `json:"product_id"`
	SellerID        string `json:"seller_id,omitempty"`
	UserID          string `json:"user_id"`
	Quantity        int    `json:"quantity"`
	Status          string `json:"status"`
	ReservationInfo string `json:"reservation_info,omitempty"`
}

type CartCheckedOutPayload struct {
	UserID     string   `json:"user_id"`
	RequestIDs []string `json:"request_ids"`
}

type StockRejectedPayload struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}
