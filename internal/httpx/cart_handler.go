package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/canchalibre/market/internal/cache"
	kafkax "github.com/canchalibre/market/internal/kafka"
	"github.com/canchalibre/market/internal/market"
	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/singleflight"
)

type CartHandler struct {
	Store    market.Store
	Cache    cache.TotalsCache
	Requests *kafkax.Producer // request lifecycle events for checkout-created requests
	Checkout *kafkax.Producer
	Rejected *kafkax.Producer
	Service  string

	sfg singleflight.Group // collapses concurrent totals recomputes per user
}

type cartItemReq struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Amount    int    `json:"amount"`
}

type cartUserReq struct {
	UserID string `json:"user_id"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.show)
	r.Get("/cart/totals", h.totals)
	r.Post("/cart/items", h.addItem)
	r.Delete("/cart/items/{productID}", h.removeItem)
	r.Post("/cart/clear", h.clear)
	r.Post("/cart/checkout", h.checkout)
}

func (h *CartHandler) show(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Store.GetCart(ctx, userID)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": c.UserID, "items": c.Items})
}

func (h *CartHandler) totals(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err, _ := h.sfg.Do(userID, func() (any, error) {
		t, err := h.Cache.Get(ctx, userID)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("totals cache get: %v", err)
		}

		c, err := h.Store.GetCart(ctx, userID)
		if err != nil {
			return market.CartTotals{}, err
		}
		prices := map[string]int{}
		if !c.IsEmpty() {
			ps, err := h.Store.GetProducts(ctx, c.SortedProductIDs())
			if err != nil {
				return market.CartTotals{}, err
			}
			for id, p := range ps {
				prices[id] = p.Price
			}
		}
		t = market.Totals(c.Items, prices)

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := h.Cache.Set(ctx, userID, t); err != nil {
				log.Printf("totals cache set: %v", err)
			}
		}()
		return t, nil
	})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v.(market.CartTotals))
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.AddCartItem(ctx, req.UserID, req.ProductID, req.Amount); err != nil {
		h.publishRejected(r, req.UserID, err)
		writeDomainErr(w, err)
		return
	}
	h.invalidateTotals(req.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.RemoveCartItem(ctx, userID, productID); err != nil {
		writeDomainErr(w, err)
		return
	}
	h.invalidateTotals(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	var req cartUserReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.ClearCart(ctx, req.UserID); err != nil {
		writeDomainErr(w, err)
		return
	}
	h.invalidateTotals(req.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req cartUserReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	created, err := h.Store.Checkout(ctx, req.UserID)
	if err != nil {
		h.publishRejected(r, req.UserID, err)
		writeDomainErr(w, err)
		return
	}
	h.invalidateTotals(req.UserID)
	h.publishCheckout(ctx, r, req.UserID, created)

	ids := make([]string, 0, len(created))
	for _, q := range created {
		ids = append(ids, q.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"request_ids": ids})
}

func (h *CartHandler) invalidateTotals(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Cache.Invalidate(ctx, userID); err != nil {
		log.Printf("totals cache invalidate: %v", err)
	}
}

func (h *CartHandler) publishCheckout(ctx context.Context, r *http.Request, userID string, created []market.Request) {
	trace := r.Header.Get("X-Request-Id")

	ids := make([]string, 0, len(created))
	pids := make([]string, 0, len(created))
	for _, q := range created {
		ids = append(ids, q.ID)
		pids = append(pids, q.ProductID)
	}
	h.Checkout.Publish(market.PartitionKey(userID),
		envelope(h.Service, market.EventCartCheckedOut, trace, userID,
			market.CartCheckedOutPayload{UserID: userID, RequestIDs: ids}),
		kafkago.Header{Key: "x-event-type", Value: []byte(market.EventCartCheckedOut)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	// one lifecycle event per created request, same as direct creation
	sellers, err := h.Store.GetProducts(ctx, pids)
	if err != nil {
		sellers = map[string]market.Product{}
	}
	for _, q := range created {
		payload := market.RequestEventPayload{
			RequestID: q.ID,
			ProductID: q.ProductID,
			SellerID:  sellers[q.ProductID].SellerID,
			UserID:    q.UserID,
			Quantity:  q.Quantity,
			Status:    string(q.Status),
		}
		h.Requests.Publish(market.PartitionKey(q.ProductID),
			envelope(h.Service, market.EventRequestCreated, trace, q.ID, payload),
			kafkago.Header{Key: "x-event-type", Value: []byte(market.EventRequestCreated)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
}

func (h *CartHandler) publishRejected(r *http.Request, userID string, err error) {
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
