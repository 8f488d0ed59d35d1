package productstore_test

import (
	"sync"
	"sync/atomic"
	"testing"

	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_ReserveStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := productstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cat := fixtures.CreateCategory(ctx, "Kitchen")
	p := fixtures.CreateProduct(ctx, "Mug", "M1", 10, 5, cat.ID)

	ok, err := store.ReserveStock(ctx, p.ID, 6)
	if err != nil {
		t.Fatalf("ReserveStock failed: %v", err)
	}
	if ok {
		t.Error("expected reservation of 6 against stock 5 to fail")
	}

	ok, err = store.ReserveStock(ctx, p.ID, 5)
	if err != nil || !ok {
		t.Fatalf("expected reservation of 5 to succeed, got %v %v", ok, err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.Stock != 0 {
		t.Errorf("expected stock 0, got %d", got.Stock)
	}

	if err := store.ReleaseStock(ctx, p.ID, 2); err != nil {
		t.Fatalf("ReleaseStock failed: %v", err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if got.Stock != 2 {
		t.Errorf("expected stock 2 after release, got %d", got.Stock)
	}

	ok, err = store.ReserveStock(ctx, primitive.NewObjectID(), 1)
	if err != nil || ok {
		t.Errorf("expected missing product to reserve nothing, got %v %v", ok, err)
	}
}

func TestStore_ReserveStock_NoOversell(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := productstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cat := fixtures.CreateCategory(ctx, "Kitchen")
	p := fixtures.CreateProduct(ctx, "Mug", "M1", 10, 5, cat.ID)

	var wg sync.WaitGroup
	var won int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := store.ReserveStock(ctx, p.ID, 1); err == nil && ok {
				atomic.AddInt32(&won, 1)
			}
		}()
	}
	wg.Wait()

	if won != 5 {
		t.Errorf("expected exactly 5 successful reservations, got %d", won)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.Stock != 0 {
		t.Errorf("expected stock 0, got %d", got.Stock)
	}
}

func TestStore_SetRating(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	store := productstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cat := fixtures.CreateCategory(ctx, "Kitchen")
	p := fixtures.CreateProduct(ctx, "Mug", "M1", 10, 5, cat.ID)

	found, err := store.SetRating(ctx, p.ID, 4.5, 2)
	if err != nil || !found {
		t.Fatalf("SetRating = %v, %v", found, err)
	}
	got, _ := store.GetByID(ctx, p.ID)
	if got.AverageRating != 4.5 || got.ReviewCount != 2 {
		t.Errorf("unexpected rating fields %v/%d", got.AverageRating, got.ReviewCount)
	}

	found, err = store.SetRating(ctx, primitive.NewObjectID(), 1, 1)
	if err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}
	if found {
		t.Error("expected missing product to report not found")
	}
}
