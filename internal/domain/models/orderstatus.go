// internal/domain/models/orderstatus.go
package models

// Canonical order status identifiers, stored in Order.Status.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// OrderStatuses is the full set of allowed order statuses.
var OrderStatuses = []string{
	OrderPending,
	OrderProcessing,
	OrderShipped,
	OrderDelivered,
	OrderCancelled,
}

// Payment statuses, stored in Order.PaymentStatus.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// PaymentStatuses is the full set of allowed payment statuses.
var PaymentStatuses = []string{
	PaymentPending,
	PaymentPaid,
	PaymentFailed,
	PaymentRefunded,
}

// Payment methods, stored in Order.PaymentMethod.
const (
	PayCreditCard     = "credit_card"
	PayPayPal         = "paypal"
	PayBankTransfer   = "bank_transfer"
	PayCashOnDelivery = "cash_on_delivery"
)

// PaymentMethods is the full set of accepted payment methods.
var PaymentMethods = []string{
	PayCreditCard,
	PayPayPal,
	PayBankTransfer,
	PayCashOnDelivery,
}

// IsOneOf reports whether v is in set.
func IsOneOf(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
