// internal/app/features/admin/stats.go
package admin

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	metricsstore "github.com/dalemusser/storefront/internal/app/store/metrics"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
)

type statsResponse struct {
	TotalSales     float64 `json:"totalSales"`
	TotalOrders    int64   `json:"totalOrders"`
	TotalCustomers int64   `json:"totalCustomers"`
	TotalProducts  int64   `json:"totalProducts"`

	Categories     int64 `json:"categories"`
	PendingReviews int64 `json:"pendingReviews"`
	LowStock       int64 `json:"lowStock"`
}

// Stats handles GET /api/admin/stats. Sales exclude cancelled orders; the
// order count does not.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "admin stats")
	defer cancel()

	sales, err := h.Orders.SalesSummary(ctx)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	counts := metricsstore.FetchDashboardCounts(ctx, h.DB)

	httperr.JSON(w, http.StatusOK, statsResponse{
		TotalSales:     sales.TotalSales,
		TotalOrders:    sales.TotalOrders,
		TotalCustomers: counts.Customers,
		TotalProducts:  counts.Products,
		Categories:     counts.Categories,
		PendingReviews: counts.PendingReviews,
		LowStock:       counts.LowStock,
	})
}

// RecentOrders handles GET /api/admin/orders/recent.
func (h *Handler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Orders.Recent(ctx, dashboardLimit)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if list == nil {
		list = []models.Order{}
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"orders": list})
}

// PopularProducts handles GET /api/admin/products/popular: active products
// ranked by review count, then average rating.
func (h *Handler) PopularProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Products.Popular(ctx, dashboardLimit)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if list == nil {
		list = []models.Product{}
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"products": list})
}
