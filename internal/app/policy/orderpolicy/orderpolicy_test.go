package orderpolicy_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/storefront/internal/app/policy/orderpolicy"
	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/storefront/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.OrderPending, models.OrderProcessing, true},
		{models.OrderPending, models.OrderCancelled, true},
		{models.OrderProcessing, models.OrderShipped, true},
		{models.OrderProcessing, models.OrderCancelled, true},
		{models.OrderShipped, models.OrderDelivered, true},
		{models.OrderPending, models.OrderShipped, false},
		{models.OrderShipped, models.OrderCancelled, false},
		{models.OrderDelivered, models.OrderPending, false},
		{models.OrderCancelled, models.OrderProcessing, false},
		{models.OrderShipped, models.OrderShipped, true},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			if got := orderpolicy.CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []string{models.OrderDelivered, models.OrderCancelled} {
		if !orderpolicy.IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []string{models.OrderPending, models.OrderProcessing, models.OrderShipped, "bogus"} {
		if orderpolicy.IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestCheckTransition(t *testing.T) {
	if err := orderpolicy.CheckTransition(models.OrderDelivered, models.OrderPending, false); err != nil {
		t.Errorf("lenient mode should allow any status, got %v", err)
	}
	if err := orderpolicy.CheckTransition(models.OrderDelivered, models.OrderPending, true); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("strict mode err = %v, want Conflict", err)
	}
	if err := orderpolicy.CheckTransition(models.OrderPending, "lost", false); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("unknown status err = %v, want Invalid", err)
	}
}

func TestNext_ReturnsCopy(t *testing.T) {
	n := orderpolicy.Next(models.OrderPending)
	n[0] = "mutated"
	if orderpolicy.Next(models.OrderPending)[0] != models.OrderProcessing {
		t.Error("Next must not expose the internal table")
	}
}

func TestCanView(t *testing.T) {
	owner := primitive.NewObjectID()
	o := models.Order{UserID: owner}

	customer := testutil.CustomerUser()
	customer.ID = owner.Hex()
	r := testutil.WithUser(httptest.NewRequest("GET", "/", nil), customer)
	if !orderpolicy.CanView(r, o) {
		t.Error("owner should see own order")
	}

	r = testutil.WithUser(httptest.NewRequest("GET", "/", nil), testutil.CustomerUser())
	if orderpolicy.CanView(r, o) {
		t.Error("other customer should not see order")
	}

	r = testutil.WithUser(httptest.NewRequest("GET", "/", nil), testutil.AdminUser())
	if !orderpolicy.CanView(r, o) {
		t.Error("admin should see any order")
	}
}
