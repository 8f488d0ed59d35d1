// internal/app/features/orders/place.go
package orders

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/services/checkout"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/inputval"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type itemInput struct {
	Product  string `json:"product" validate:"required,objectid" label:"Product"`
	Quantity int    `json:"quantity" validate:"required,gte=1,lte=1000" label:"Quantity"`
}

type addressInput struct {
	Street  string `json:"street" validate:"required,max=200" label:"Street"`
	City    string `json:"city" validate:"required,max=100" label:"City"`
	State   string `json:"state" validate:"max=100" label:"State"`
	ZipCode string `json:"zipCode" validate:"required,max=20" label:"Zip code"`
	Country string `json:"country" validate:"required,max=100" label:"Country"`
}

func (a addressInput) postal() models.PostalAddress {
	return models.PostalAddress{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
	}
}

type placeInput struct {
	Items           []itemInput   `json:"items" validate:"required,min=1,max=100,dive" label:"Items"`
	ShippingAddress addressInput  `json:"shippingAddress" validate:"required" label:"Shipping address"`
	BillingAddress  *addressInput `json:"billingAddress" validate:"omitempty" label:"Billing address"`
	PaymentMethod   string        `json:"paymentMethod" validate:"omitempty,paymentmethod" label:"Payment method"`
	ShippingCost    float64       `json:"shippingCost" validate:"gte=0" label:"Shipping cost"`
	TaxAmount       float64       `json:"taxAmount" validate:"gte=0" label:"Tax amount"`
	DiscountAmount  float64       `json:"discountAmount" validate:"gte=0" label:"Discount amount"`
	Notes           string        `json:"notes" validate:"max=500" label:"Notes"`
	// TotalAmount is informational; the server computes the total itself.
	TotalAmount *float64 `json:"totalAmount"`
}

// Place handles POST /api/orders. A missing or short item is answered with
// 400 and an "item" object naming the product, requested and available
// quantities.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		httperr.Message(w, http.StatusUnauthorized, httperr.CodeUnauthorized, "Not authenticated")
		return
	}
	var in placeInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	req := checkout.Request{
		UserID:          uid,
		Items:           make([]checkout.Item, len(in.Items)),
		ShippingAddress: in.ShippingAddress.postal(),
		PaymentMethod:   in.PaymentMethod,
		ShippingCost:    in.ShippingCost,
		TaxAmount:       in.TaxAmount,
		DiscountAmount:  in.DiscountAmount,
		Notes:           in.Notes,
		ClientTotal:     in.TotalAmount,
	}
	for i, it := range in.Items {
		pid, _ := primitive.ObjectIDFromHex(it.Product)
		req.Items[i] = checkout.Item{ProductID: pid, Quantity: it.Quantity}
	}
	if in.BillingAddress != nil {
		req.BillingAddress = in.BillingAddress.postal()
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	o, err := h.Checkout.PlaceOrder(ctx, req)
	if err != nil {
		h.ErrLog.Write(w, r, err, zap.String("user_id", uid.Hex()))
		return
	}
	httperr.JSON(w, http.StatusCreated, orderResponse{Order: o})
}
