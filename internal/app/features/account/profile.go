// internal/app/features/account/profile.go
package account

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/inputval"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, userResponse{User: u})
}

type profileInput struct {
	Name  string `json:"name" validate:"required,min=2,max=100" label:"Name"`
	Phone string `json:"phone" validate:"omitempty,max=30" label:"Phone"`
}

// UpdateProfile handles PUT /api/auth/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var in profileInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, uid, in.Name, in.Phone)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, userResponse{User: u})
}

type favoritesInput struct {
	Categories []string `json:"categories" validate:"dive,objectid" label:"Category"`
}

type favoritesResponse struct {
	FavoriteCategories []primitive.ObjectID `json:"favoriteCategories"`
}

// SetFavoriteCategories handles PUT /api/auth/favorite-categories. Every id
// must name an existing category.
func (h *Handler) SetFavoriteCategories(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var in favoritesInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(in.Categories))
	seen := make(map[primitive.ObjectID]bool, len(in.Categories))
	for _, s := range in.Categories {
		oid, _ := primitive.ObjectIDFromHex(s)
		if seen[oid] {
			continue
		}
		seen[oid] = true
		ids = append(ids, oid)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if len(ids) > 0 {
		n, err := h.Categories.CountExisting(ctx, ids)
		if err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
		if n != int64(len(ids)) {
			h.ErrLog.Write(w, r, apperr.NotFound("category"))
			return
		}
	}

	u, err := h.Users.SetFavoriteCategories(ctx, uid, ids)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, favoritesResponse{FavoriteCategories: u.FavoriteCategories})
}
