package orders

const (
	TopicStockChanged     = "inventory.stock.changed"
	TopicCheckoutCreated  = "checkout.created"
	TopicPaymentConfirmed = "checkout.payment.confirmed"
	TopicPaymentCancelled = "checkout.payment.cancelled"
	TopicPurchaseCreated  = "purchase.created"
	TopicPurchaseStatus   = "purchase.status.changed"
)

// Partition key = aggregate id, so every event of one product/checkout/purchase keeps its order.
func PartitionKey(id string) []byte { return []byte(id) }
