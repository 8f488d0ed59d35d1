// internal/app/features/orders/handler.go
package orders

import (
	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/services/checkout"
	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	"github.com/dalemusser/storefront/internal/app/system/auditlog"
	"github.com/dalemusser/storefront/internal/app/system/events"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Checkout *checkout.Service
	Orders   *orderstore.Store
	Events   events.Publisher
	AuditLog *auditlog.Logger
	ErrLog   *httperr.ErrorLogger
	Log      *zap.Logger

	// StrictTransitions enforces the order lifecycle graph on status changes.
	StrictTransitions bool
}

func NewHandler(
	db *mongo.Database,
	svc *checkout.Service,
	pub events.Publisher,
	audit *auditlog.Logger,
	errLog *httperr.ErrorLogger,
	strict bool,
	logger *zap.Logger,
) *Handler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Handler{
		Checkout:          svc,
		Orders:            orderstore.New(db),
		Events:            pub,
		AuditLog:          audit,
		ErrLog:            errLog,
		Log:               logger,
		StrictTransitions: strict,
	}
}

type orderResponse struct {
	Order models.Order `json:"order"`
}

type listResponse struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
	Pages  int            `json:"pages"`
}
