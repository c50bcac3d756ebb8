package projector

import (
	"context"
	"testing"
	"time"

	kafkax "github.com/canchalibre/market/internal/kafka"
	"github.com/canchalibre/market/internal/market"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStatusStore struct {
	seen     map[string]bool
	statuses map[string]string
	pending  map[string]int
}

func newMockStatusStore() *mockStatusStore {
	return &mockStatusStore{
		seen:     map[string]bool{},
		statuses: map[string]string{},
		pending:  map[string]int{},
	}
}

func (m *mockStatusStore) Seen(_ context.Context, eventID string) (bool, error) {
	if m.seen[eventID] {
		return true, nil
	}
	m.seen[eventID] = true
	return false, nil
}

func (m *mockStatusStore) SetStatus(_ context.Context, requestID, status string) error {
	m.statuses[requestID] = status
	return nil
}

func (m *mockStatusStore) DropStatus(_ context.Context, requestID string) error {
	delete(m.statuses, requestID)
	return nil
}

func (m *mockStatusStore) AddSellerPending(_ context.Context, sellerID string, delta int) error {
	m.pending[sellerID] += delta
	return nil
}

func requestMessage(eventType string, p market.RequestEventPayload) kafkago.Message {
	env := market.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "test",
		CorrelationID: p.RequestID,
		Payload:       kafkax.MustMarshal(p),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleRequestCreated(t *testing.T) {
	store := newMockStatusStore()
	svc := &Service{Store: store, ServiceName: "test"}

	msg := requestMessage(market.EventRequestCreated, market.RequestEventPayload{
		RequestID: "r1", ProductID: "p1", SellerID: "s1", UserID: "u1", Quantity: 2, Status: "PENDING",
	})
	require.NoError(t, svc.HandleRequestEvent(context.Background(), msg))

	assert.Equal(t, "PENDING", store.statuses["r1"])
	assert.Equal(t, 1, store.pending["s1"])
}

func TestHandleRequestApproved(t *testing.T) {
	store := newMockStatusStore()
	svc := &Service{Store: store, ServiceName: "test"}

	require.NoError(t, svc.HandleRequestEvent(context.Background(),
		requestMessage(market.EventRequestCreated, market.RequestEventPayload{RequestID: "r1", SellerID: "s1", Status: "PENDING"})))
	require.NoError(t, svc.HandleRequestEvent(context.Background(),
		requestMessage(market.EventRequestApproved, market.RequestEventPayload{RequestID: "r1", SellerID: "s1", Status: "APPROVED"})))

	assert.Equal(t, "APPROVED", store.statuses["r1"])
	assert.Equal(t, 0, store.pending["s1"])
}

func TestHandleRequestDeleted(t *testing.T) {
	store := newMockStatusStore()
	svc := &Service{Store: store, ServiceName: "test"}

	require.NoError(t, svc.HandleRequestEvent(context.Background(),
		requestMessage(market.EventRequestCreated, market.RequestEventPayload{RequestID: "r1", SellerID: "s1", Status: "PENDING"})))
	require.NoError(t, svc.HandleRequestEvent(context.Background(),
		requestMessage(market.EventRequestDeleted, market.RequestEventPayload{RequestID: "r1", SellerID: "s1", Status: "PENDING"})))

	_, ok := store.statuses["r1"]
	assert.False(t, ok, "deleted requests drop out of the status cache")
	assert.Equal(t, 0, store.pending["s1"])
}

func TestHandleDeletedApprovedKeepsCounter(t *testing.T) {
	store := newMockStatusStore()
	svc := &Service{Store: store, ServiceName: "test"}

	// an approved request was already counted down on approval
	require.NoError(t, svc.HandleRequestEvent(context.Background(),
		requestMessage(market.EventRequestDeleted, market.RequestEventPayload{RequestID: "r1", SellerID: "s1", Status: "APPROVED"})))
	assert.Equal(t, 0, store.pending["s1"])
}

func TestHandleRequestEventDedup(t *testing.T) {
	store := newMockStatusStore()
	svc := &Service{Store: store, ServiceName: "test"}

	msg := requestMessage(market.EventRequestCreated, market.RequestEventPayload{RequestID: "r1", SellerID: "s1", Status: "PENDING"})
	require.NoError(t, svc.HandleRequestEvent(context.Background(), msg))
	require.NoError(t, svc.HandleRequestEvent(context.Background(), msg))

	assert.Equal(t, 1, store.pending["s1"], "replayed event must not double-count")
}

func TestHandleRequestEventIgnoresOtherTypes(t *testing.T) {
	store := newMockStatusStore()
	svc := &Service{Store: store, ServiceName: "test"}

	msg := requestMessage(market.EventStockRejected, market.RequestEventPayload{RequestID: "r1"})
	require.NoError(t, svc.HandleRequestEvent(context.Background(), msg))
	assert.Empty(t, store.statuses)
	assert.Empty(t, store.seen, "ignored events are not marked seen")
}

func TestHandleCheckoutEvent(t *testing.T) {
	store := newMockStatusStore()
	svc := &Service{Store: store, ServiceName: "test"}

	env := market.Envelope{
		EventID:      uuid.NewString(),
		EventType:    market.EventCartCheckedOut,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload: kafkax.MustMarshal(market.CartCheckedOutPayload{
			UserID: "u1", RequestIDs: []string{"r1", "r2"},
		}),
	}
	msg := kafkago.Message{Value: kafkax.MustMarshal(env)}

	require.NoError(t, svc.HandleCheckoutEvent(context.Background(), msg))
	assert.Equal(t, "PENDING", store.statuses["r1"])
	assert.Equal(t, "PENDING", store.statuses["r2"])
}

func TestHandleBadEnvelope(t *testing.T) {
	svc := &Service{Store: newMockStatusStore(), ServiceName: "test"}
	err := svc.HandleRequestEvent(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.Error(t, err)
}
