package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	kafkax "github.com/canchalibre/market/internal/kafka"
	"github.com/canchalibre/market/internal/market"
	"github.com/canchalibre/market/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type RequestsHandler struct {
	Store    market.Store
	Producer *kafkax.Producer // request lifecycle events
	Rejected *kafkax.Producer // stock rejections
	Redis    *redis.Client    // optional status cache
	Service  string
}

type CreateRequestReq struct {
	ProductID string `json:"product_id"`
	UserID    string `json:"user_id"`
	Quantity  int    `json:"quantity"`
	// RFC3339; when set the product schedule must cover it.
	ReservationDatetime string `json:"reservation_datetime,omitempty"`
}

type RequestResp struct {
	RequestID       string `json:"request_id"`
	ProductID       string `json:"product_id"`
	UserID          string `json:"user_id"`
	Quantity        int    `json:"quantity"`
	Status          string `json:"status"`
	ReservationInfo string `json:"reservation_info,omitempty"`
}

func toRequestResp(q market.Request) RequestResp {
	return RequestResp{
		RequestID:       q.ID,
		ProductID:       q.ProductID,
		UserID:          q.UserID,
		Quantity:        q.Quantity,
		Status:          string(q.Status),
		ReservationInfo: q.ReservationInfo,
	}
}

func (h *RequestsHandler) Register(r *chi.Mux) {
	r.Post("/requests", h.create)
	r.Get("/requests", h.list)
	r.Get("/requests/{id}", h.get)
	r.Get("/requests/{id}/status", h.getStatus)
	r.Post("/requests/{id}/approve", h.approve)
	r.Delete("/requests/{id}", h.remove)
	r.Get("/products", h.listProducts)
}

func (h *RequestsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ProductID == "" || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	in := market.CreateRequestInput{ProductID: req.ProductID, UserID: req.UserID, Quantity: req.Quantity}
	if req.ReservationDatetime != "" {
		ts, err := time.Parse(time.RFC3339, req.ReservationDatetime)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid reservation_datetime"})
			return
		}
		in.SlotTime = &ts
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q, err := h.Store.CreateRequest(ctx, in)
	if err != nil {
		h.publishRejected(r, req.UserID, err)
		writeDomainErr(w, err)
		return
	}

	h.publishRequestEvent(ctx, r, market.EventRequestCreated, q)
	writeJSON(w, http.StatusCreated, toRequestResp(q))
}

func (h *RequestsHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	qs, err := h.Store.ListRequests(ctx, userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]RequestResp, 0, len(qs))
	for _, q := range qs {
		out = append(out, toRequestResp(q))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RequestsHandler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := h.Store.GetRequest(ctx, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResp(q))
}

// getStatus serves the status from the redis read model when warm, falling
// back to the store and re-warming the cache.
func (h *RequestsHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyRequestStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	q, err := h.Store.GetRequest(ctx, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	body, _ := json.Marshal(map[string]string{"status": string(q.Status)})
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}

func (h *RequestsHandler) approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q, err := h.Store.ApproveRequest(ctx, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	h.publishRequestEvent(ctx, r, market.EventRequestApproved, q)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RequestsHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q, err := h.Store.DeleteRequest(ctx, id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	h.publishRequestEvent(ctx, r, market.EventRequestDeleted, q)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RequestsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Store.ListProducts(ctx)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *RequestsHandler) publishRequestEvent(ctx context.Context, r *http.Request, eventType string, q market.Request) {
	payload := market.RequestEventPayload{
		RequestID:       q.ID,
		ProductID:       q.ProductID,
		UserID:          q.UserID,
		Quantity:        q.Quantity,
		Status:          string(q.Status),
		ReservationInfo: q.ReservationInfo,
	}
	// seller id enriches the projector's counters; best effort
	if p, err := h.Store.GetProduct(ctx, q.ProductID); err == nil {
		payload.SellerID = p.SellerID
	}
	h.Producer.Publish(market.PartitionKey(q.ProductID),
		envelope(h.Service, eventType, r.Header.Get("X-Request-Id"), q.ID, payload),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *RequestsHandler) publishRejected(r *http.Request, userID string, err error) {
	var ise *market.InsufficientStockError
	if !errors.As(err, &ise) {
		return
	}
	payload := market.StockRejectedPayload{
		UserID:    userID,
		ProductID: ise.ProductID,
		Requested: ise.Requested,
		Available: ise.Available,
	}
	h.Rejected.Publish(market.PartitionKey(ise.ProductID),
		envelope(h.Service, market.EventStockRejected, r.Header.Get("X-Request-Id"), ise.ProductID, payload),
		kafkago.Header{Key: "x-event-type", Value: []byte(market.EventStockRejected)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
