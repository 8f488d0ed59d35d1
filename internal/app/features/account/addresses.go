// internal/app/features/account/addresses.go
package account

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/system/inputval"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type addressesResponse struct {
	Addresses []models.Address `json:"addresses"`
}

func writeAddresses(w http.ResponseWriter, status int, u *models.User) {
	list := u.Addresses
	if list == nil {
		list = []models.Address{}
	}
	httperr.JSON(w, status, addressesResponse{Addresses: list})
}

// ListAddresses handles GET /api/auth/addresses.
func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
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
	writeAddresses(w, http.StatusOK, u)
}

type addressInput struct {
	Type      string `json:"type" validate:"omitempty,addresstype" label:"Type"`
	Title     string `json:"title" validate:"max=60" label:"Title"`
	FirstName string `json:"firstName" validate:"required,max=100" label:"First name"`
	LastName  string `json:"lastName" validate:"required,max=100" label:"Last name"`
	Phone     string `json:"phone" validate:"max=30" label:"Phone"`
	Street    string `json:"street" validate:"required,max=200" label:"Street"`
	City      string `json:"city" validate:"required,max=100" label:"City"`
	State     string `json:"state" validate:"required,max=100" label:"State"`
	ZipCode   string `json:"zipCode" validate:"required,max=20" label:"Zip code"`
	Country   string `json:"country" validate:"required,max=100" label:"Country"`
	IsDefault bool   `json:"isDefault"`
}

// AddAddress handles POST /api/auth/addresses. The first address, or one
// sent with isDefault, becomes the default.
func (h *Handler) AddAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}
	var in addressInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.AddAddress(ctx, uid, models.Address{
		Type:      in.Type,
		Title:     in.Title,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Street:    in.Street,
		City:      in.City,
		State:     in.State,
		ZipCode:   in.ZipCode,
		Country:   in.Country,
		IsDefault: in.IsDefault,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	writeAddresses(w, http.StatusCreated, u)
}

// SetDefaultAddress handles PUT /api/auth/addresses/{id}/default.
func (h *Handler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}
	addrID, ok := addressID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.SetDefaultAddress(ctx, uid, addrID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	writeAddresses(w, http.StatusOK, u)
}

// DeleteAddress handles DELETE /api/auth/addresses/{id}.
func (h *Handler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}
	addrID, ok := addressID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.DeleteAddress(ctx, uid, addrID)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	writeAddresses(w, http.StatusOK, u)
}

func addressID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	return httperr.PathID(w, r, "id", "address")
}
