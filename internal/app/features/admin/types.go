// internal/app/features/admin/types.go
package admin

import (
	"time"

	"github.com/dalemusser/storefront/internal/app/store/audit"
)

// auditItem is one row of the audit listing with actor and user names resolved.
type auditItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"eventType"`
	ActorID       string            `json:"actorId,omitempty"`
	ActorName     string            `json:"actorName,omitempty"`
	UserID        string            `json:"userId,omitempty"`
	UserName      string            `json:"userName,omitempty"`
	TargetID      string            `json:"targetId,omitempty"`
	IP            string            `json:"ip"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failureReason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type auditResponse struct {
	Events []auditItem `json:"events"`
	Total  int64       `json:"total"`
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
	Pages  int         `json:"pages"`
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginSuccess,
		audit.EventLoginFailedUserNotFound,
		audit.EventLoginFailedWrongPassword,
		audit.EventLoginFailedRateLimit,
		audit.EventRegistered,
		audit.EventEmailVerified,
		audit.EventPasswordResetRequested,
		audit.EventPasswordReset,
	}

	adminEvents := []string{
		audit.EventCategoryCreated,
		audit.EventCategoryUpdated,
		audit.EventCategoryDeleted,
		audit.EventProductCreated,
		audit.EventProductUpdated,
		audit.EventProductDeleted,
		audit.EventReviewApproved,
		audit.EventReviewUnapproved,
		audit.EventReviewDeleted,
		audit.EventOrderStatusChanged,
		audit.EventOrderPaymentChanged,
		audit.EventOrderDeleted,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents))
		all = append(all, authEvents...)
		all = append(all, adminEvents...)
		return all
	default:
		return nil
	}
}
