// internal/app/features/reviews/handler.go
package reviews

import (
	"context"
	"net/http"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/services/ratings"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	reviewstore "github.com/dalemusser/storefront/internal/app/store/reviews"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/inputval"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// pendingLimit caps the moderation queue returned in one response.
const pendingLimit = 100

type Handler struct {
	Service  *ratings.Service
	Reviews  *reviewstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *httperr.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, svc *ratings.Service, audit *auditlog.Logger, errLog *httperr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Service:  svc,
		Reviews:  reviewstore.New(db),
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// mutationResponse pairs a changed review with the product's refreshed
// rating. Rating.Skipped is set when the product no longer exists.
type mutationResponse struct {
	Review models.Review  `json:"review"`
	Rating ratings.Result `json:"rating"`
}

type listResponse struct {
	Reviews []models.Review `json:"reviews"`
}

// ForProduct handles GET /api/reviews/product/{productId}: approved reviews,
// newest first.
func (h *Handler) ForProduct(w http.ResponseWriter, r *http.Request) {
	pid, ok := httperr.PathID(w, r, "productId", "product")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Reviews.ListApproved(ctx, pid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, listResponse{Reviews: list})
}

type createInput struct {
	Product string `json:"product" validate:"required,objectid" label:"Product"`
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5" label:"Rating"`
	Title   string `json:"title" validate:"required,max=100" label:"Title"`
	Comment string `json:"comment" validate:"required,max=1000" label:"Comment"`
}

// Create handles POST /api/reviews.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	_, name, uid, ok := authz.UserCtx(r)
	if !ok {
		httperr.Message(w, http.StatusUnauthorized, httperr.CodeUnauthorized, "Not authenticated")
		return
	}
	var in createInput
	if !httperr.ReadJSON(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		httperr.Validation(w, res)
		return
	}
	pid, _ := primitive.ObjectIDFromHex(in.Product)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rv, res, err := h.Service.Submit(ctx, ratings.Submission{
		UserID:    uid,
		UserName:  name,
		ProductID: pid,
		Rating:    in.Rating,
		Title:     in.Title,
		Comment:   in.Comment,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err, zap.String("product_id", pid.Hex()))
		return
	}
	httperr.JSON(w, http.StatusCreated, mutationResponse{Review: rv, Rating: res})
}

// Approve handles PUT /api/reviews/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.setApproved(w, r, true)
}

// Unapprove handles PUT /api/reviews/{id}/unapprove.
func (h *Handler) Unapprove(w http.ResponseWriter, r *http.Request) {
	h.setApproved(w, r, false)
}

func (h *Handler) setApproved(w http.ResponseWriter, r *http.Request, approved bool) {
	id, ok := httperr.PathID(w, r, "id", "review")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rv, res, err := h.Service.SetApproved(ctx, id, approved)
	if err != nil {
		h.ErrLog.Write(w, r, err, zap.String("review_id", id.Hex()))
		return
	}
	h.AuditLog.ReviewModerated(ctx, r, authz.ActorID(r), rv.ID, rv.ProductID, approved)
	httperr.JSON(w, http.StatusOK, mutationResponse{Review: rv, Rating: res})
}

// Helpful handles POST /api/reviews/{id}/helpful.
func (h *Handler) Helpful(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "review")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, err := h.Service.Helpful(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, err, zap.String("review_id", id.Hex()))
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]any{"review": rv})
}

// Delete handles DELETE /api/reviews/{id}. Authors may delete their own
// reviews; admins may delete any.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httperr.PathID(w, r, "id", "review")
	if !ok {
		return
	}
	role, _, uid, signedIn := authz.UserCtx(r)
	if !signedIn {
		httperr.Message(w, http.StatusUnauthorized, httperr.CodeUnauthorized, "Not authenticated")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rv, res, err := h.Service.Delete(ctx, id, uid, role == models.RoleAdmin)
	if err != nil {
		h.ErrLog.Write(w, r, err, zap.String("review_id", id.Hex()))
		return
	}
	h.AuditLog.Admin(ctx, r, uid.Hex(), audit.EventReviewDeleted, rv.ID, map[string]string{
		"product_id": rv.ProductID.Hex(),
	})
	httperr.JSON(w, http.StatusOK, mutationResponse{Review: rv, Rating: res})
}

// Pending handles GET /api/admin/reviews/pending: the moderation queue,
// oldest first.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Reviews.ListPending(ctx, pendingLimit)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	httperr.JSON(w, http.StatusOK, listResponse{Reviews: list})
}
