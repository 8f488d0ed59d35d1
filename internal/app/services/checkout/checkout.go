// Package checkout turns a cart into an order: it reserves stock for every
// line, snapshots the products, and persists the order.
//
// Each line is reserved with a conditional decrement (stock >= quantity), so
// two orders can never jointly oversell. The whole sequence runs in a MongoDB
// transaction when the deployment has one; in addition, a failure on a later
// line releases the reservations already taken, so standalone servers also
// end with no partial decrement.
package checkout

import (
	"context"
	"errors"

	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/events"
	"github.com/dalemusser/storefront/internal/app/system/instrument"
	"github.com/dalemusser/storefront/internal/app/system/money"
	"github.com/dalemusser/storefront/internal/app/system/txn"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Item is one cart line.
type Item struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// Request is everything needed to place an order for UserID.
type Request struct {
	UserID          primitive.ObjectID
	Items           []Item
	ShippingAddress models.PostalAddress
	BillingAddress  models.PostalAddress // defaults to ShippingAddress
	PaymentMethod   string               // defaults to cash_on_delivery
	ShippingCost    float64
	TaxAmount       float64
	DiscountAmount  float64
	Notes           string

	// ClientTotal is the total the client computed, if it sent one. The
	// server total always wins; a mismatch is only logged.
	ClientTotal *float64
}

// Service places orders.
type Service struct {
	db       *mongo.Database
	products *productstore.Store
	orders   *orderstore.Store
	events   events.Publisher
	metrics  *instrument.Metrics
	log      *zap.Logger
}

// New returns a checkout Service. pub and metrics may be nil.
func New(db *mongo.Database, pub events.Publisher, metrics *instrument.Metrics, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		db:       db,
		products: productstore.New(db),
		orders:   orderstore.New(db),
		events:   pub,
		metrics:  metrics,
		log:      log,
	}
}

func (req *Request) normalize() error {
	if len(req.Items) == 0 {
		return apperr.Invalid("order must contain at least one item")
	}
	for i, it := range req.Items {
		if it.ProductID.IsZero() {
			return apperr.Invalid("item %d: product is required", i+1)
		}
		if it.Quantity < 1 {
			return apperr.Invalid("item %d: quantity must be at least 1", i+1)
		}
	}
	if req.ShippingAddress.IsZero() {
		return apperr.Invalid("shipping address is required")
	}
	if req.BillingAddress.IsZero() {
		req.BillingAddress = req.ShippingAddress
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PayCashOnDelivery
	}
	if !models.IsOneOf(req.PaymentMethod, models.PaymentMethods) {
		return apperr.Invalid("invalid payment method %q", req.PaymentMethod)
	}
	if req.ShippingCost < 0 || req.TaxAmount < 0 || req.DiscountAmount < 0 {
		return apperr.Invalid("shipping, tax and discount amounts cannot be negative")
	}
	return nil
}

// PlaceOrder reserves stock for every item in list order and creates a
// pending order. If any item is missing or short, no order is created, no
// stock stays decremented, and the returned error is an *apperr.StockError
// naming that item.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (models.Order, error) {
	if err := req.normalize(); err != nil {
		s.metrics.OrderRejected("invalid")
		return models.Order{}, err
	}

	var placed models.Order
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		o, err := s.place(ctx, req)
		if err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		s.metrics.OrderRejected(rejectReason(err))
		var se *apperr.StockError
		if errors.As(err, &se) {
			s.log.Info("order rejected",
				zap.String("user_id", req.UserID.Hex()),
				zap.String("product_id", se.ProductID.Hex()),
				zap.Int("requested", se.Requested),
				zap.Int("available", se.Available),
				zap.Bool("missing", se.Missing))
		}
		return models.Order{}, err
	}

	if req.ClientTotal != nil && !money.Equal(*req.ClientTotal, placed.TotalAmount) {
		s.log.Info("client order total differs from server total",
			zap.String("order_id", placed.ID.Hex()),
			zap.Float64("client_total", *req.ClientTotal),
			zap.Float64("server_total", placed.TotalAmount))
	}

	s.metrics.OrderPlaced()
	s.events.Publish(ctx, events.OrderPlaced, placed)
	return placed, nil
}

// place does one attempt. On failure it releases what it reserved.
func (s *Service) place(ctx context.Context, req Request) (o models.Order, err error) {
	var reserved []Item
	defer func() {
		if err != nil && len(reserved) > 0 {
			s.release(ctx, reserved)
		}
	}()

	items := make([]models.OrderItem, 0, len(req.Items))
	lines := make([]money.Line, 0, len(req.Items))
	for _, it := range req.Items {
		p, err := s.reserve(ctx, it)
		if err != nil {
			return models.Order{}, err
		}
		reserved = append(reserved, it)

		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.PrimaryImage(),
			Quantity:  it.Quantity,
		})
		lines = append(lines, money.Line{Price: p.Price, Quantity: it.Quantity})
	}

	b := money.Total(lines, req.ShippingCost, req.TaxAmount, req.DiscountAmount)
	return s.orders.Create(ctx, models.Order{
		UserID:          req.UserID,
		Items:           items,
		Subtotal:        b.Subtotal,
		ShippingCost:    b.Shipping,
		TaxAmount:       b.Tax,
		DiscountAmount:  b.Discount,
		TotalAmount:     b.Total,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
	})
}

// reserve loads the product for its snapshot and takes qty units of stock.
func (s *Service) reserve(ctx context.Context, it Item) (models.Product, error) {
	p, err := s.products.GetByID(ctx, it.ProductID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Product{}, &apperr.StockError{ProductID: it.ProductID, Requested: it.Quantity, Missing: true}
	}
	if err != nil {
		return models.Product{}, err
	}
	if p.Stock < it.Quantity {
		return models.Product{}, stockErr(p, it.Quantity)
	}

	ok, err := s.products.ReserveStock(ctx, p.ID, it.Quantity)
	if err != nil {
		return models.Product{}, err
	}
	if ok {
		return p, nil
	}

	// Lost a race since the read; report what is there now.
	cur, err := s.products.GetByID(ctx, p.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Product{}, &apperr.StockError{ProductID: p.ID, Name: p.Name, Requested: it.Quantity, Missing: true}
	}
	if err != nil {
		return models.Product{}, err
	}
	return models.Product{}, stockErr(cur, it.Quantity)
}

// release returns reserved stock. Errors are logged; there is nothing more a
// request can do about them.
func (s *Service) release(ctx context.Context, reserved []Item) {
	for _, it := range reserved {
		if err := s.products.ReleaseStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.log.Error("stock compensation failed",
				zap.String("product_id", it.ProductID.Hex()),
				zap.Int("quantity", it.Quantity),
				zap.Error(err))
		}
	}
	s.metrics.Compensated(len(reserved))
}

func stockErr(p models.Product, requested int) *apperr.StockError {
	return &apperr.StockError{
		ProductID: p.ID,
		Name:      p.Name,
		Requested: requested,
		Available: p.Stock,
	}
}

func rejectReason(err error) string {
	switch apperr.Kind(err) {
	case apperr.ErrInsufficientStock:
		var se *apperr.StockError
		if errors.As(err, &se) && se.Missing {
			return "product_missing"
		}
		return "insufficient_stock"
	case apperr.ErrInvalid:
		return "invalid"
	default:
		return "error"
	}
}
