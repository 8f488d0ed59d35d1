// internal/domain/models/order.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is a placed purchase. Items are snapshots taken at placement time and
// never change afterwards, even if the product does.
type Order struct {
	ID     primitive.ObjectID `bson:"_id" json:"id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user"`
	Items  []OrderItem        `bson:"items" json:"items"`

	Subtotal       float64 `bson:"subtotal" json:"subtotal"`
	ShippingCost   float64 `bson:"shipping_cost" json:"shippingCost"`
	TaxAmount      float64 `bson:"tax_amount" json:"taxAmount"`
	DiscountAmount float64 `bson:"discount_amount" json:"discountAmount"`
	TotalAmount    float64 `bson:"total_amount" json:"totalAmount"`

	Status        string `bson:"status" json:"status"`
	PaymentStatus string `bson:"payment_status" json:"paymentStatus"`
	PaymentMethod string `bson:"payment_method" json:"paymentMethod"`

	ShippingAddress PostalAddress `bson:"shipping_address" json:"shippingAddress"`
	BillingAddress  PostalAddress `bson:"billing_address" json:"billingAddress"`

	Notes             string     `bson:"notes,omitempty" json:"notes,omitempty"`
	TrackingNumber    string     `bson:"tracking_number,omitempty" json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time `bson:"estimated_delivery,omitempty" json:"estimatedDelivery,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// OrderItem is a product snapshot.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Image     string             `bson:"image" json:"image"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}
