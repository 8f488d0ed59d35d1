// internal/app/policy/orderpolicy/orderpolicy.go
package orderpolicy

import (
	"net/http"

	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/domain/models"
)

// transitions lists, per status, the statuses it may move to.
// delivered and cancelled are terminal.
var transitions = map[string][]string{
	models.OrderPending:    {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
}

// Next returns the statuses reachable from status in one step.
func Next(status string) []string {
	return append([]string(nil), transitions[status]...)
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status string) bool {
	return models.IsOneOf(status, models.OrderStatuses) && len(transitions[status]) == 0
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
// Setting a status to itself is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	return models.IsOneOf(to, transitions[from])
}

// CheckTransition validates a status change. Unknown statuses are always
// rejected; the lifecycle graph is only enforced when strict is true.
func CheckTransition(from, to string, strict bool) error {
	if !models.IsOneOf(to, models.OrderStatuses) {
		return apperr.Invalid("invalid order status %q", to)
	}
	if strict && !CanTransition(from, to) {
		return apperr.Conflict("cannot change order status from " + from + " to " + to)
	}
	return nil
}

// CanView reports whether the current request user may see order o:
// admins always can, everyone else only their own orders.
func CanView(r *http.Request, o models.Order) bool {
	return authz.CanActOn(r, o.UserID)
}
