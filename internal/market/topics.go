package market

const (
	TopicRequestEvents = "market.requests"
	TopicCheckout      = "market.cart.checked_out"
	TopicStockRejected = "market.stock.rejected"
)

// Partition key keeps events for one entity in order.
func PartitionKey(id string) []byte { return []byte(id) }
