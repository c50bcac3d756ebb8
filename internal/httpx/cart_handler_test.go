package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/canchalibre/market/internal/cache"
	"github.com/canchalibre/market/internal/market"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTotalsCache struct {
	m            sync.Mutex
	data         map[string]market.CartTotals
	invalidated  int
	missesServed int
}

func newMockTotalsCache() *mockTotalsCache {
	return &mockTotalsCache{data: map[string]market.CartTotals{}}
}

func (c *mockTotalsCache) Get(_ context.Context, userID string) (market.CartTotals, error) {
	c.m.Lock()
	defer c.m.Unlock()
	t, ok := c.data[userID]
	if !ok {
		c.missesServed++
		return market.CartTotals{}, cache.ErrCacheMiss
	}
	return t, nil
}

func (c *mockTotalsCache) Set(_ context.Context, userID string, t market.CartTotals) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.data[userID] = t
	return nil
}

func (c *mockTotalsCache) Invalidate(_ context.Context, userID string) error {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.data, userID)
	c.invalidated++
	return nil
}

func newCartServer(t *testing.T) (*market.MemStore, *mockTotalsCache, *chi.Mux) {
	t.Helper()
	store := market.NewMemStore()
	tc := newMockTotalsCache()
	h := &CartHandler{
		Store:    store,
		Cache:    tc,
		Requests: testProducer(market.TopicRequestEvents),
		Checkout: testProducer(market.TopicCheckout),
		Rejected: testProducer(market.TopicStockRejected),
		Service:  "test-api",
	}
	r := NewRouter()
	h.Register(r)
	return store, tc, r
}

func TestCartAddAndShow(t *testing.T) {
	store, tc, r := newCartServer(t)
	p := seedProduct(store, 10)

	w := doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p.ID, Amount: 2})
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, tc.invalidated)

	w = doJSON(t, r, http.MethodGet, "/cart?user_id=u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		UserID string         `json:"user_id"`
		Items  map[string]int `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]int{p.ID: 2}, body.Items)
}

func TestCartAddLimits(t *testing.T) {
	store, _, r := newCartServer(t)

	// fill up to the line limit
	for i := 0; i < market.MaxCartLines; i++ {
		p := store.SeedProduct(market.Product{Name: fmt.Sprintf("p%d", i), Stock: 10})
		w := doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p.ID, Amount: 1})
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	extra := store.SeedProduct(market.Product{Name: "extra", Stock: 10})
	w := doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: extra.ID, Amount: 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "cart_full")

	big := store.SeedProduct(market.Product{Name: "big", Stock: 500})
	w = doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u2", ProductID: big.ID, Amount: market.MaxPerProduct + 1})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "quantity_cap")

	small := store.SeedProduct(market.Product{Name: "small", Stock: 2})
	w = doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u3", ProductID: small.ID, Amount: 3})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient_stock")
}

func TestCartRemoveEndpoint(t *testing.T) {
	store, _, r := newCartServer(t)
	p := seedProduct(store, 10)

	w := doJSON(t, r, http.MethodDelete, "/cart/items/"+p.ID+"?user_id=u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "item_not_found")

	doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p.ID, Amount: 1})
	w = doJSON(t, r, http.MethodDelete, "/cart/items/"+p.ID+"?user_id=u1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCartClearIdempotentEndpoint(t *testing.T) {
	store, _, r := newCartServer(t)
	p := seedProduct(store, 10)
	doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p.ID, Amount: 1})

	w := doJSON(t, r, http.MethodPost, "/cart/clear", cartUserReq{UserID: "u1"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, r, http.MethodPost, "/cart/clear", cartUserReq{UserID: "u1"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCartTotalsEndpoint(t *testing.T) {
	store, _, r := newCartServer(t)
	p1 := store.SeedProduct(market.Product{Name: "a", Price: 2000, Stock: 10})
	p2 := store.SeedProduct(market.Product{Name: "b", Price: 3000, Stock: 10})

	doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p1.ID, Amount: 2})
	doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p2.ID, Amount: 1})

	w := doJSON(t, r, http.MethodGet, "/cart/totals?user_id=u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tot market.CartTotals
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tot))
	assert.Equal(t, market.CartTotals{Subtotal: 7000, Shipping: 1350, Total: 8350}, tot)
}

func TestCartTotalsEmptyCart(t *testing.T) {
	_, _, r := newCartServer(t)

	w := doJSON(t, r, http.MethodGet, "/cart/totals?user_id=nobody", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tot market.CartTotals
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tot))
	assert.Equal(t, market.CartTotals{Subtotal: 0, Shipping: 1000, Total: 1000}, tot)
}

func TestCartTotalsServedFromCache(t *testing.T) {
	_, tc, r := newCartServer(t)
	warm := market.CartTotals{Subtotal: 500, Shipping: 1025, Total: 1525}
	require.NoError(t, tc.Set(context.Background(), "u1", warm))

	w := doJSON(t, r, http.MethodGet, "/cart/totals?user_id=u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tot market.CartTotals
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tot))
	assert.Equal(t, warm, tot)
}

func TestCheckoutEndpoint(t *testing.T) {
	store, _, r := newCartServer(t)
	p1 := store.SeedProduct(market.Product{Name: "a", Price: 2000, Stock: 5})
	p2 := store.SeedProduct(market.Product{Name: "b", Price: 3000, Stock: 3})

	doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p1.ID, Amount: 2})
	doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p2.ID, Amount: 1})

	w := doJSON(t, r, http.MethodPost, "/cart/checkout", cartUserReq{UserID: "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		RequestIDs []string `json:"request_ids"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.RequestIDs, 2)

	g1, _ := store.GetProduct(context.Background(), p1.ID)
	g2, _ := store.GetProduct(context.Background(), p2.ID)
	assert.Equal(t, 3, g1.Stock)
	assert.Equal(t, 2, g2.Stock)

	cart, _ := store.GetCart(context.Background(), "u1")
	assert.True(t, cart.IsEmpty())
}

func TestCheckoutEmptyCartEndpoint(t *testing.T) {
	_, _, r := newCartServer(t)
	w := doJSON(t, r, http.MethodPost, "/cart/checkout", cartUserReq{UserID: "u1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "empty_cart")
}

func TestCheckoutAllOrNothingEndpoint(t *testing.T) {
	store, _, r := newCartServer(t)
	p1 := store.SeedProduct(market.Product{Name: "a", Price: 2000, Stock: 5})
	p2 := store.SeedProduct(market.Product{Name: "b", Price: 3000, Stock: 3})

	doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p1.ID, Amount: 2})
	doJSON(t, r, http.MethodPost, "/cart/items", cartItemReq{UserID: "u1", ProductID: p2.ID, Amount: 3})

	// a competing request drains the second product before checkout
	_, err := store.CreateRequest(context.Background(), market.CreateRequestInput{ProductID: p2.ID, UserID: "u2", Quantity: 1})
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodPost, "/cart/checkout", cartUserReq{UserID: "u1"})
	require.Equal(t, http.StatusConflict, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "insufficient_stock", body["error"])
	assert.Equal(t, p2.ID, body["product_id"])

	// nothing was committed
	g1, _ := store.GetProduct(context.Background(), p1.ID)
	assert.Equal(t, 5, g1.Stock)
	cart, _ := store.GetCart(context.Background(), "u1")
	assert.Len(t, cart.Items, 2)
}
