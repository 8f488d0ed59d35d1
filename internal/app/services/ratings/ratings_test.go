package ratings_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/dalemusser/storefront/internal/app/services/ratings"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/events"
	"github.com/dalemusser/storefront/internal/app/system/indexes"
	"github.com/dalemusser/storefront/internal/app/system/instrument"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type env struct {
	db      *mongo.Database
	fx      *testutil.Fixtures
	svc     *ratings.Service
	rec     *events.Recorder
	metrics *instrument.Metrics
	product models.Product
}

func setup(t *testing.T, autoApprove bool) (*env, context.Context) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	fx := testutil.NewFixtures(t, db)
	cat := fx.CreateCategory(ctx, "Kitchen")
	p := fx.CreateProduct(ctx, "Mug", "MUG-1", 12.5, 10, cat.ID)

	m := instrument.New()
	rec := &events.Recorder{}
	agg := ratings.NewAggregator(db, nil, m, zap.NewNop())
	svc := ratings.NewService(db, agg, ratings.Options{AutoApprove: autoApprove, Events: rec}, zap.NewNop())
	return &env{db: db, fx: fx, svc: svc, rec: rec, metrics: m, product: p}, ctx
}

func (e *env) reload(t *testing.T, ctx context.Context) models.Product {
	t.Helper()
	p, err := productstore.New(e.db).GetByID(ctx, e.product.ID)
	if err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return p
}

func (e *env) submission(ctx context.Context, rating int, email string) ratings.Submission {
	u := e.fx.CreateCustomer(ctx, "Reviewer", email)
	return ratings.Submission{
		UserID:    u.ID,
		UserName:  u.Name,
		ProductID: e.product.ID,
		Rating:    rating,
		Title:     "Nice",
		Comment:   "Holds coffee.",
	}
}

func TestRecompute_MatchesApprovedSet(t *testing.T) {
	tests := []struct {
		name       string
		approved   []int
		unapproved []int
		wantAvg    float64
		wantCount  int
	}{
		{"empty", nil, nil, 0, 0},
		{"only unapproved", nil, []int{5, 5}, 0, 0},
		{"single", []int{4}, nil, 4, 1},
		{"rounds to tenths", []int{5, 4, 4}, []int{1}, 4.3, 3},
		{"rounds half up", []int{4, 5, 5, 5}, nil, 4.8, 4},
		{"two thirds", []int{1, 2, 2}, nil, 1.7, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ctx := setup(t, false)
			for _, r := range tt.approved {
				e.fx.CreateReview(ctx, primitive.NewObjectID(), e.product.ID, r, true)
			}
			for _, r := range tt.unapproved {
				e.fx.CreateReview(ctx, primitive.NewObjectID(), e.product.ID, r, false)
			}

			res, err := e.svc.Aggregator().Recompute(ctx, e.product.ID)
			if err != nil {
				t.Fatalf("Recompute: %v", err)
			}
			if res.Skipped {
				t.Fatal("did not expect skip")
			}

			p := e.reload(t, ctx)
			if p.ReviewCount != tt.wantCount {
				t.Errorf("reviewCount = %d, want %d", p.ReviewCount, tt.wantCount)
			}
			if math.Abs(p.AverageRating-tt.wantAvg) > 1e-9 {
				t.Errorf("averageRating = %v, want %v", p.AverageRating, tt.wantAvg)
			}
		})
	}
}

func TestSubmit_DefaultsUnapproved(t *testing.T) {
	e, ctx := setup(t, false)

	rv, res, err := e.svc.Submit(ctx, e.submission(ctx, 5, "a@example.com"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rv.IsApproved {
		t.Error("new review should be unapproved")
	}
	if res.ReviewCount != 0 {
		t.Errorf("unapproved review counted: %+v", res)
	}
	if len(e.rec.Types()) != 0 {
		t.Errorf("no event expected for unapproved review, got %v", e.rec.Types())
	}
}

func TestSubmit_AutoApproveAggregates(t *testing.T) {
	e, ctx := setup(t, true)

	if _, _, err := e.svc.Submit(ctx, e.submission(ctx, 4, "a@example.com")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, _, err := e.svc.Submit(ctx, e.submission(ctx, 5, "b@example.com")); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	p := e.reload(t, ctx)
	if p.ReviewCount != 2 || p.AverageRating != 4.5 {
		t.Errorf("got count=%d avg=%v, want 2 and 4.5", p.ReviewCount, p.AverageRating)
	}
	if got := e.rec.Types(); len(got) != 2 || got[0] != events.ReviewApproved {
		t.Errorf("events = %v", got)
	}
}

func TestSubmit_SecondReviewConflict(t *testing.T) {
	e, ctx := setup(t, false)
	if err := indexes.EnsureAll(ctx, e.db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	sub := e.submission(ctx, 3, "a@example.com")
	if _, _, err := e.svc.Submit(ctx, sub); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, _, err := e.svc.Submit(ctx, sub)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second Submit err = %v, want Conflict", err)
	}
}

func TestSubmit_MissingProduct(t *testing.T) {
	e, ctx := setup(t, false)
	sub := e.submission(ctx, 3, "a@example.com")
	sub.ProductID = primitive.NewObjectID()

	_, _, err := e.svc.Submit(ctx, sub)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestSubmit_RatingOutOfRange(t *testing.T) {
	e, ctx := setup(t, false)
	for _, r := range []int{0, 6} {
		_, _, err := e.svc.Submit(ctx, e.submission(ctx, r, fmt.Sprintf("r%d@example.com", r)))
		if !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("rating %d: err = %v, want Invalid", r, err)
		}
	}
}

func TestSetApproved_IncrementsCount(t *testing.T) {
	e, ctx := setup(t, false)
	e.fx.CreateReview(ctx, primitive.NewObjectID(), e.product.ID, 4, true)
	pending := e.fx.CreateReview(ctx, primitive.NewObjectID(), e.product.ID, 5, false)
	if _, err := e.svc.Aggregator().Recompute(ctx, e.product.ID); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if p := e.reload(t, ctx); p.ReviewCount != 1 || p.AverageRating != 4 {
		t.Fatalf("precondition: count=%d avg=%v", p.ReviewCount, p.AverageRating)
	}

	rv, res, err := e.svc.SetApproved(ctx, pending.ID, true)
	if err != nil {
		t.Fatalf("SetApproved: %v", err)
	}
	if !rv.IsApproved {
		t.Error("review should be approved")
	}
	if res.ReviewCount != 2 || res.AverageRating != 4.5 {
		t.Errorf("result = %+v, want count 2 avg 4.5", res)
	}
	if p := e.reload(t, ctx); p.ReviewCount != 2 || p.AverageRating != 4.5 {
		t.Errorf("product count=%d avg=%v, want 2 and 4.5", p.ReviewCount, p.AverageRating)
	}

	// Unapproving takes it back out.
	if _, res, err = e.svc.SetApproved(ctx, pending.ID, false); err != nil {
		t.Fatalf("unapprove: %v", err)
	}
	if res.ReviewCount != 1 || res.AverageRating != 4 {
		t.Errorf("after unapprove = %+v", res)
	}
}

func TestSetApproved_NotFound(t *testing.T) {
	e, ctx := setup(t, false)
	_, _, err := e.svc.SetApproved(ctx, primitive.NewObjectID(), true)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestDelete_OnlyApprovedResetsToZero(t *testing.T) {
	e, ctx := setup(t, false)
	owner := e.fx.CreateCustomer(ctx, "Owner", "owner@example.com")
	rv := e.fx.CreateReview(ctx, owner.ID, e.product.ID, 5, true)
	if _, err := e.svc.Aggregator().Recompute(ctx, e.product.ID); err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	if _, _, err := e.svc.Delete(ctx, rv.ID, owner.ID, false); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	p := e.reload(t, ctx)
	if p.ReviewCount != 0 || p.AverageRating != 0 {
		t.Errorf("count=%d avg=%v, want zeros", p.ReviewCount, p.AverageRating)
	}
	if got := e.rec.Types(); len(got) != 1 || got[0] != events.ReviewDeleted {
		t.Errorf("events = %v", got)
	}
}

func TestDelete_Authorization(t *testing.T) {
	e, ctx := setup(t, false)
	owner := e.fx.CreateCustomer(ctx, "Owner", "owner@example.com")
	other := e.fx.CreateCustomer(ctx, "Other", "other@example.com")
	rv := e.fx.CreateReview(ctx, owner.ID, e.product.ID, 2, true)

	_, _, err := e.svc.Delete(ctx, rv.ID, other.ID, false)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger delete err = %v, want Forbidden", err)
	}

	if _, _, err := e.svc.Delete(ctx, rv.ID, other.ID, true); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestRecompute_SkipsDeletedProduct(t *testing.T) {
	e, ctx := setup(t, false)
	rv := e.fx.CreateReview(ctx, primitive.NewObjectID(), e.product.ID, 4, false)
	if _, err := e.db.Collection("products").DeleteOne(ctx, bson.M{"_id": e.product.ID}); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	got, res, err := e.svc.SetApproved(ctx, rv.ID, true)
	if err != nil {
		t.Fatalf("review mutation must still succeed: %v", err)
	}
	if !got.IsApproved {
		t.Error("approval should persist")
	}
	if !res.Skipped {
		t.Error("expected aggregation to be skipped")
	}
	if n := promtest.ToFloat64(e.metrics.Aggregations.WithLabelValues(instrument.AggregationSkipped)); n != 1 {
		t.Errorf("skipped counter = %v, want 1", n)
	}
}

func TestHelpful_DoesNotAggregate(t *testing.T) {
	e, ctx := setup(t, false)
	rv := e.fx.CreateReview(ctx, primitive.NewObjectID(), e.product.ID, 5, true)

	got, err := e.svc.Helpful(ctx, rv.ID)
	if err != nil {
		t.Fatalf("Helpful: %v", err)
	}
	if got.Helpful != 1 {
		t.Errorf("helpful = %d, want 1", got.Helpful)
	}
	// Fixture bypassed aggregation and Helpful must not run it.
	if p := e.reload(t, ctx); p.ReviewCount != 0 {
		t.Errorf("reviewCount = %d, want untouched 0", p.ReviewCount)
	}
}

func TestSubmit_ConcurrentReviewersConverge(t *testing.T) {
	e, ctx := setup(t, true)

	const n = 12
	subs := make([]ratings.Submission, n)
	sum := 0
	for i := range subs {
		r := i%5 + 1
		sum += r
		subs[i] = e.submission(ctx, r, fmt.Sprintf("u%d@example.com", i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, s := range subs {
		wg.Add(1)
		go func(s ratings.Submission) {
			defer wg.Done()
			if _, _, err := e.svc.Submit(ctx, s); err != nil {
				errs <- err
			}
		}(s)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Submit: %v", err)
	}

	want := math.Round(float64(sum)/n*10) / 10
	p := e.reload(t, ctx)
	if p.ReviewCount != n || p.AverageRating != want {
		t.Errorf("count=%d avg=%v, want %d and %v", p.ReviewCount, p.AverageRating, n, want)
	}
}
