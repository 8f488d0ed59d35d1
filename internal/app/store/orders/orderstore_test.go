package orderstore_test

import (
	"errors"
	"testing"
	"time"

	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := orderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	userID := primitive.NewObjectID()
	o, err := store.Create(ctx, models.Order{
		UserID:        userID,
		Items:         []models.OrderItem{{ProductID: primitive.NewObjectID(), Name: "Mug", Price: 10, Quantity: 2}},
		Subtotal:      20,
		TotalAmount:   20,
		Status:        models.OrderPending,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: models.PayCreditCard,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if o.ID.IsZero() || o.CreatedAt.IsZero() {
		t.Error("expected ID and timestamps to be set")
	}

	got, err := store.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Quantity != 2 {
		t.Errorf("unexpected items %+v", got.Items)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, orderstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := orderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fixtures.CreateCustomer(ctx, "A", "a@example.com")
	b := fixtures.CreateCustomer(ctx, "B", "b@example.com")
	cat := fixtures.CreateCategory(ctx, "Kitchen")
	p := fixtures.CreateProduct(ctx, "Mug", "M1", 10, 5, cat.ID)

	o1 := fixtures.CreateOrder(ctx, a.ID, p)
	fixtures.CreateOrder(ctx, a.ID, p)
	fixtures.CreateOrder(ctx, b.ID, p)

	if _, _, err := store.SetStatus(ctx, o1.ID, orderstore.StatusChange{Status: models.OrderShipped}); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	mine, err := store.ListByUser(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("expected 2 orders for A, got %d", len(mine))
	}

	_, total, err := store.List(ctx, orderstore.Filter{Status: models.OrderPending}, paging.New(1, 10))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 pending orders, got %d", total)
	}

	_, total, _ = store.List(ctx, orderstore.Filter{UserID: b.ID}, paging.New(1, 10))
	if total != 1 {
		t.Errorf("expected 1 order for B, got %d", total)
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil || len(recent) != 2 {
		t.Errorf("Recent = %d orders, %v; want 2", len(recent), err)
	}
}

func TestStore_SetStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := orderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateCustomer(ctx, "A", "a@example.com")
	cat := fixtures.CreateCategory(ctx, "Kitchen")
	p := fixtures.CreateProduct(ctx, "Mug", "M1", 10, 5, cat.ID)
	o := fixtures.CreateOrder(ctx, user.ID, p)

	eta := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Millisecond)
	before, after, err := store.SetStatus(ctx, o.ID, orderstore.StatusChange{
		Status:            models.OrderShipped,
		TrackingNumber:    "TRK123",
		EstimatedDelivery: &eta,
	})
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if before.Status != models.OrderPending || after.Status != models.OrderShipped {
		t.Errorf("unexpected statuses before=%s after=%s", before.Status, after.Status)
	}

	got, _ := store.GetByID(ctx, o.ID)
	if got.Status != models.OrderShipped || got.TrackingNumber != "TRK123" {
		t.Errorf("unexpected stored order %+v", got)
	}
	if got.EstimatedDelivery == nil || !got.EstimatedDelivery.Equal(eta) {
		t.Errorf("expected estimated delivery %v, got %v", eta, got.EstimatedDelivery)
	}

	// Any status may follow any other at the store level.
	if _, _, err := store.SetStatus(ctx, o.ID, orderstore.StatusChange{Status: models.OrderPending}); err != nil {
		t.Errorf("expected unconstrained status change, got %v", err)
	}

	if _, _, err := store.SetStatus(ctx, primitive.NewObjectID(), orderstore.StatusChange{Status: models.OrderShipped}); !errors.Is(err, orderstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SetStatus_ExpectedFrom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := orderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateCustomer(ctx, "A", "a@example.com")
	cat := fixtures.CreateCategory(ctx, "Kitchen")
	p := fixtures.CreateProduct(ctx, "Mug", "M1", 10, 5, cat.ID)
	o := fixtures.CreateOrder(ctx, user.ID, p)

	if _, _, err := store.SetStatus(ctx, o.ID, orderstore.StatusChange{From: models.OrderPending, Status: models.OrderProcessing}); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	// a second writer still expecting pending loses
	_, _, err := store.SetStatus(ctx, o.ID, orderstore.StatusChange{From: models.OrderPending, Status: models.OrderCancelled})
	if !errors.Is(err, orderstore.ErrStatusChanged) {
		t.Errorf("expected ErrStatusChanged, got %v", err)
	}
	got, _ := store.GetByID(ctx, o.ID)
	if got.Status != models.OrderProcessing {
		t.Errorf("status = %s, want processing", got.Status)
	}

	_, _, err = store.SetStatus(ctx, primitive.NewObjectID(), orderstore.StatusChange{From: models.OrderPending, Status: models.OrderShipped})
	if !errors.Is(err, orderstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown order, got %v", err)
	}
}

func TestStore_SetPaymentStatusAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := orderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateCustomer(ctx, "A", "a@example.com")
	cat := fixtures.CreateCategory(ctx, "Kitchen")
	p := fixtures.CreateProduct(ctx, "Mug", "M1", 10, 5, cat.ID)
	o := fixtures.CreateOrder(ctx, user.ID, p)

	got, err := store.SetPaymentStatus(ctx, o.ID, models.PaymentPaid)
	if err != nil {
		t.Fatalf("SetPaymentStatus failed: %v", err)
	}
	if got.PaymentStatus != models.PaymentPaid {
		t.Errorf("expected paid, got %s", got.PaymentStatus)
	}

	if err := store.Delete(ctx, o.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, o.ID); !errors.Is(err, orderstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_SalesSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := orderstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	empty, err := store.SalesSummary(ctx)
	if err != nil {
		t.Fatalf("SalesSummary failed: %v", err)
	}
	if empty.TotalOrders != 0 || empty.TotalSales != 0 {
		t.Errorf("expected empty summary, got %+v", empty)
	}

	user := fixtures.CreateCustomer(ctx, "A", "a@example.com")
	cat := fixtures.CreateCategory(ctx, "Kitchen")
	mug := fixtures.CreateProduct(ctx, "Mug", "M1", 10, 5, cat.ID)
	pot := fixtures.CreateProduct(ctx, "Pot", "P1", 25, 5, cat.ID)

	fixtures.CreateOrder(ctx, user.ID, mug)
	fixtures.CreateOrder(ctx, user.ID, pot)
	cancelled := fixtures.CreateOrder(ctx, user.ID, mug, pot)
	if _, _, err := store.SetStatus(ctx, cancelled.ID, orderstore.StatusChange{Status: models.OrderCancelled}); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	got, err := store.SalesSummary(ctx)
	if err != nil {
		t.Fatalf("SalesSummary failed: %v", err)
	}
	if got.TotalOrders != 3 {
		t.Errorf("expected 3 orders, got %d", got.TotalOrders)
	}
	if got.TotalSales != 35 {
		t.Errorf("expected sales 35, got %v", got.TotalSales)
	}
}
