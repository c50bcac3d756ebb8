package httpx

import (
	"time"

	kafkax "github.com/canchalibre/market/internal/kafka"
	"github.com/canchalibre/market/internal/market"
	"github.com/google/uuid"
)

// envelope wraps a payload in the versioned event envelope.
func envelope(service, eventType, traceID, correlationID string, payload any) []byte {
	ev := market.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      service,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	return kafkax.MustMarshal(ev)
}
