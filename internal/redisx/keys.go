package redisx

import "time"

const (
	// Cache of a request's current status: request_status:{request_id} -> {"status":"..."}
	KeyRequestStatus = "request_status:%s"

	// Cache of a user's cart totals: cart_totals:{user_id} -> {"subtotal":...,"shipping":...,"total":...}
	KeyCartTotals = "cart_totals:%s"

	// Count of pending requests against a seller's products: seller_pending:{seller_id} -> int
	KeySellerPending = "seller_pending:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLTotalsCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
