// internal/app/features/products/handler.go
package products

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/inputval"
	"github.com/dalemusser/storefront/internal/app/system/normalize"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Store    *productstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *httperr.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, errLog *httperr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    productstore.New(db),
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type listResponse struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Pages    int              `json:"pages"`
}

type productResponse struct {
	Product models.Product `json:"product"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/products                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// List supports ?category=<id>&search=<text>&sort=<key>&featured=true and
// page/limit paging. Admins also see inactive products.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f := productstore.Filter{
		Search:          normalize.QueryParam(query.Get(r, "search")),
		Sort:            query.Get(r, "sort"),
		FeaturedOnly:    query.Get(r, "featured") == "true",
		IncludeInactive: authz.IsAdmin(r),
	}
	if cat := normalize.FilterID(query.Get(r, "category")); cat != "" {
		oid, err := primitive.ObjectIDFromHex(cat)
		if err != nil {
			httperr.Message(w, http.StatusBadRequest, httperr.CodeInvalid, "Invalid category id")
			return
		}
		f.CategoryID = oid
	}
	pg := paging.Parse(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, total, err := h.Store.List(ctx, f, pg)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, listResponse{
		Products: list,
		Total:    total,
		Page:     pg.Page,
		Limit:    pg.Limit,
		Pages:    pg.Pages(total),
	})
}

// Featured handles GET /api/products/featured.
func (h *Handler) Featured(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Store.Featured(ctx, 8)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"products": list})
}

// Get handles GET /api/products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "product")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Store.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, productResponse{Product: p})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin writes                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// createInput deliberately has no rating fields: those belong to the
// ratings aggregator.
type createInput struct {
	Name           string             `json:"name" validate:"required,max=200" label:"Name"`
	Description    string             `json:"description" validate:"max=20000" label:"Description"`
	Price          *float64           `json:"price" validate:"required,gte=0" label:"Price"`
	ComparePrice   *float64           `json:"comparePrice" validate:"omitempty,gte=0" label:"Compare price"`
	Category       string             `json:"category" validate:"required,objectid" label:"Category"`
	Brand          string             `json:"brand" validate:"max=100" label:"Brand"`
	SKU            string             `json:"sku" validate:"required,max=64" label:"SKU"`
	Stock          *int               `json:"stock" validate:"required,gte=0" label:"Stock"`
	Images         []string           `json:"images" validate:"max=10,dive,httpurl" label:"Images"`
	Tags           []string           `json:"tags" validate:"max=20,dive,max=40" label:"Tags"`
	IsActive       *bool              `json:"isActive"`
	IsFeatured     bool               `json:"isFeatured"`
	Weight         *float64           `json:"weight" validate:"omitempty,gte=0" label:"Weight"`
	Dimensions     *models.Dimensions `json:"dimensions"`
	Specifications map[string]string  `json:"specifications"`
}

// Create handles POST /api/products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}
	catID, _ := primitive.ObjectIDFromHex(in.Category)
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Store.Create(ctx, productstore.Input{
		Name:           in.Name,
		Description:    in.Description,
		Price:          *in.Price,
		ComparePrice:   in.ComparePrice,
		CategoryID:     catID,
		Brand:          in.Brand,
		SKU:            in.SKU,
		Stock:          *in.Stock,
		Images:         in.Images,
		Tags:           in.Tags,
		IsActive:       active,
		IsFeatured:     in.IsFeatured,
		Weight:         in.Weight,
		Dimensions:     in.Dimensions,
		Specifications: in.Specifications,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.Admin(ctx, r, authz.ActorID(r), audit.EventProductCreated, p.ID, map[string]string{"sku": p.SKU})
	httperr.JSON(w, http.StatusCreated, productResponse{Product: p})
}

type updateInput struct {
	Name           *string            `json:"name" validate:"omitempty,max=200" label:"Name"`
	Description    *string            `json:"description" validate:"omitempty,max=20000" label:"Description"`
	Price          *float64           `json:"price" validate:"omitempty,gte=0" label:"Price"`
	ComparePrice   *float64           `json:"comparePrice" validate:"omitempty,gte=0" label:"Compare price"`
	Category       *string            `json:"category" validate:"omitempty,objectid" label:"Category"`
	Brand          *string            `json:"brand" validate:"omitempty,max=100" label:"Brand"`
	SKU            *string            `json:"sku" validate:"omitempty,max=64" label:"SKU"`
	Stock          *int               `json:"stock" validate:"omitempty,gte=0" label:"Stock"`
	Images         *[]string          `json:"images" validate:"omitempty,max=10,dive,httpurl" label:"Images"`
	Tags           *[]string          `json:"tags" validate:"omitempty,max=20,dive,max=40" label:"Tags"`
	IsActive       *bool              `json:"isActive"`
	IsFeatured     *bool              `json:"isFeatured"`
	Weight         *float64           `json:"weight" validate:"omitempty,gte=0" label:"Weight"`
	Dimensions     *models.Dimensions `json:"dimensions"`
	Specifications map[string]string  `json:"specifications"`
}

// Update handles PUT /api/products/{id}. Absent fields are left alone.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "product")
	if !ok {
		return
	}
	var in updateInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}
	upd := productstore.Update{
		Name:           in.Name,
		Description:    in.Description,
		Price:          in.Price,
		ComparePrice:   in.ComparePrice,
		Brand:          in.Brand,
		SKU:            in.SKU,
		Stock:          in.Stock,
		Images:         in.Images,
		Tags:           in.Tags,
		IsActive:       in.IsActive,
		IsFeatured:     in.IsFeatured,
		Weight:         in.Weight,
		Dimensions:     in.Dimensions,
		Specifications: in.Specifications,
	}
	if in.Category != nil {
		catID, _ := primitive.ObjectIDFromHex(*in.Category)
		upd.CategoryID = &catID
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Store.Update(ctx, id, upd)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.Admin(ctx, r, authz.ActorID(r), audit.EventProductUpdated, p.ID, map[string]string{"sku": p.SKU})
	httperr.JSON(w, http.StatusOK, productResponse{Product: p})
}

// Delete handles DELETE /api/products/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "product")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Store.Delete(ctx, id); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.Admin(ctx, r, authz.ActorID(r), audit.EventProductDeleted, id, nil)
	httperr.JSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}
