// internal/app/features/admin/handler.go
package admin

import (
	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	userstore "github.com/dalemusser/storefront/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// dashboardLimit is the length of the recent-orders and popular-products lists.
const dashboardLimit = 10

type Handler struct {
	DB       *mongo.Database
	Orders   *orderstore.Store
	Products *productstore.Store
	Users    *userstore.Store
	Audit    *audit.Store
	ErrLog   *httperr.ErrorLogger
	Log      *zap.Logger
}

// NewHandler constructs the admin dashboard handler bound to db.
func NewHandler(db *mongo.Database, errLog *httperr.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Orders:   orderstore.New(db),
		Products: productstore.New(db),
		Users:    userstore.New(db),
		Audit:    audit.New(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}
