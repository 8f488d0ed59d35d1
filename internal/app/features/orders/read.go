// internal/app/features/orders/read.go
package orders

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/policy/orderpolicy"
	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/normalize"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MyOrders handles GET /api/orders/my-orders.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	_, _, uid, ok := authz.UserCtx(r)
	if !ok {
		httperr.Message(w, http.StatusUnauthorized, httperr.CodeUnauthorized, "Not authenticated")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Orders.ListByUser(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"orders": list})
}

// Get handles GET /api/orders/{id}. Customers can only read their own orders.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "order")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if !orderpolicy.CanView(r, o) {
		httperr.Message(w, http.StatusForbidden, httperr.CodeForbidden, "Not authorized to view this order")
		return
	}
	httperr.JSON(w, http.StatusOK, orderResponse{Order: o})
}

// List handles GET /api/orders (admin) with optional userId and status filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var f orderstore.Filter
	if uid := normalize.FilterID(query.Get(r, "userId")); uid != "" {
		oid, err := primitive.ObjectIDFromHex(uid)
		if err != nil {
			httperr.Message(w, http.StatusBadRequest, httperr.CodeInvalid, "Invalid user id")
			return
		}
		f.UserID = oid
	}
	if st := normalize.QueryParam(query.Get(r, "status")); st != "" {
		if !models.IsOneOf(st, models.OrderStatuses) {
			httperr.Message(w, http.StatusBadRequest, httperr.CodeInvalid, "Invalid order status")
			return
		}
		f.Status = st
	}
	pg := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, total, err := h.Orders.List(ctx, f, pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, listResponse{
		Orders: list,
		Total:  total,
		Page:   pg.Page,
		Limit:  pg.Limit,
		Pages:  pg.Pages(total),
	})
}
