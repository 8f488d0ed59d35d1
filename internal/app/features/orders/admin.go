// internal/app/features/orders/admin.go
package orders

import (
	"context"
	"net/http"
	"time"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/policy/orderpolicy"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/events"
	"github.com/dalemusser/storefront/internal/app/system/inputval"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type statusInput struct {
	Status            string     `json:"status" validate:"required,orderstatus" label:"Status"`
	TrackingNumber    string     `json:"trackingNumber" validate:"max=100" label:"Tracking number"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery"`
}

// StatusChangedEvent is the payload of an order.status_changed event.
type StatusChangedEvent struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// UpdateStatus handles PUT /api/orders/{id}/status. Any status may follow
// any other unless strict transitions are enabled. Stock is not restored on
// cancellation.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "order")
	if !ok {
		return
	}
	var in statusInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ch := orderstore.StatusChange{
		Status:            in.Status,
		TrackingNumber:    in.TrackingNumber,
		EstimatedDelivery: in.EstimatedDelivery,
	}
	if h.StrictTransitions {
		current, err := h.Orders.GetByID(ctx, id)
		if err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
		if err := orderpolicy.CheckTransition(current.Status, in.Status, true); err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
		ch.From = current.Status
	}

	before, after, err := h.Orders.SetStatus(ctx, id, ch)
	if err != nil {
		h.ErrLog.Write(w, r, err, zap.String("order_id", id.Hex()))
		return
	}

	h.AuditLog.OrderStatusChanged(ctx, r, authz.ActorID(r), id, before.Status, after.Status)
	if before.Status != after.Status {
		h.Events.Publish(ctx, events.OrderStatusChanged, StatusChangedEvent{
			OrderID: id.Hex(),
			UserID:  after.UserID.Hex(),
			From:    before.Status,
			To:      after.Status,
		})
	}
	httperr.JSON(w, http.StatusOK, orderResponse{Order: after})
}

type paymentInput struct {
	PaymentStatus string `json:"paymentStatus" validate:"required,paymentstatus" label:"Payment status"`
}

// UpdatePaymentStatus handles PUT /api/orders/{id}/payment-status.
func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "order")
	if !ok {
		return
	}
	var in paymentInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.SetPaymentStatus(ctx, id, in.PaymentStatus)
	if err != nil {
		h.ErrLog.Write(w, r, err, zap.String("order_id", id.Hex()))
		return
	}
	h.AuditLog.Admin(ctx, r, authz.ActorID(r), audit.EventOrderPaymentChanged, id, map[string]string{
		"payment_status": in.PaymentStatus,
	})
	httperr.JSON(w, http.StatusOK, orderResponse{Order: o})
}

// Delete handles DELETE /api/orders/{id}. It removes the order only; stock
// is not returned.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "order")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Orders.Delete(ctx, id); err != nil {
		h.ErrLog.Write(w, r, err, zap.String("order_id", id.Hex()))
		return
	}
	h.AuditLog.Admin(ctx, r, authz.ActorID(r), audit.EventOrderDeleted, id, nil)
	httperr.JSON(w, http.StatusOK, map[string]string{"message": "Order deleted"})
}
