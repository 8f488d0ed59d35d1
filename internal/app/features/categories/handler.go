// internal/app/features/categories/handler.go
package categories

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	categorystore "github.com/dalemusser/storefront/internal/app/store/categories"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/inputval"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Store    *categorystore.Store
	AuditLog *auditlog.Logger
	ErrLog   *httperr.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, errLog *httperr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    categorystore.New(db),
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type categoryResponse struct {
	Category models.Category `json:"category"`
}

// List handles GET /api/categories. Admins also see inactive categories.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Store.List(ctx, !authz.IsAdmin(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"categories": list})
}

// Get handles GET /api/categories/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "category")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Store.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, categoryResponse{Category: c})
}

type createInput struct {
	Name        string `json:"name" validate:"required,max=100" label:"Name"`
	Description string `json:"description" validate:"max=1000" label:"Description"`
	Image       string `json:"image" validate:"omitempty,httpurl" label:"Image"`
	IsActive    *bool  `json:"isActive"`
	SortOrder   int    `json:"sortOrder"`
}

// Create handles POST /api/categories.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Store.Create(ctx, models.Category{
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		IsActive:    active,
		SortOrder:   in.SortOrder,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.Admin(ctx, r, authz.ActorID(r), audit.EventCategoryCreated, c.ID, map[string]string{"name": c.Name})
	httperr.JSON(w, http.StatusCreated, categoryResponse{Category: c})
}

type updateInput struct {
	Name        *string `json:"name" validate:"omitempty,max=100" label:"Name"`
	Description *string `json:"description" validate:"omitempty,max=1000" label:"Description"`
	Image       *string `json:"image" validate:"omitempty,httpurl" label:"Image"`
	IsActive    *bool   `json:"isActive"`
	SortOrder   *int    `json:"sortOrder"`
}

// Update handles PUT /api/categories/{id}. Absent fields are left alone.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "category")
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Store.Update(ctx, id, categorystore.Update{
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		IsActive:    in.IsActive,
		SortOrder:   in.SortOrder,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.Admin(ctx, r, authz.ActorID(r), audit.EventCategoryUpdated, c.ID, map[string]string{"name": c.Name})
	httperr.JSON(w, http.StatusOK, categoryResponse{Category: c})
}

// Delete handles DELETE /api/categories/{id}. A category that products
// still reference is refused with 409.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "category")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Store.Delete(ctx, id); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.AuditLog.Admin(ctx, r, authz.ActorID(r), audit.EventCategoryDeleted, id, nil)
	httperr.JSON(w, http.StatusOK, map[string]string{"message": "Category deleted"})
}
