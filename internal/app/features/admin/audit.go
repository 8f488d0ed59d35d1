// internal/app/features/admin/audit.go
package admin

import (
	"net/http"
	"strconv"
	"time"

	httperr "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/dalemusser/storefront/internal/app/store/audit"
	"github.com/dalemusser/storefront/internal/app/system/limits"
	"github.com/dalemusser/storefront/internal/app/system/normalize"
	"github.com/dalemusser/storefront/internal/app/system/paging"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AuditLog handles GET /api/admin/audit with optional category, event_type,
// start_date and end_date (YYYY-MM-DD) filters. failed=true keeps only
// unsuccessful events.
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	category := normalize.QueryParam(query.Get(r, "category"))
	eventType := normalize.QueryParam(query.Get(r, "event_type"))

	valid := eventTypesForCategory(category)
	if valid == nil {
		httperr.Message(w, http.StatusBadRequest, httperr.CodeInvalid, "Unknown audit category")
		return
	}
	if eventType != "" && !models.IsOneOf(eventType, valid) {
		httperr.Message(w, http.StatusBadRequest, httperr.CodeInvalid, "Unknown event type for category")
		return
	}

	pg := paging.New(paging.Parse(r).Page, limits.MaxAuditPage)
	filter := audit.Filter{
		Category:  category,
		EventType: eventType,
		Limit:     int64(pg.Limit),
		Offset:    pg.Skip(),
	}
	if f := query.Get(r, "failed"); f != "" {
		failed, err := strconv.ParseBool(f)
		if err != nil {
			httperr.Message(w, http.StatusBadRequest, httperr.CodeInvalid, "Invalid failed flag")
			return
		}
		filter.FailedOnly = failed
	}
	if s := query.Get(r, "start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			httperr.Message(w, http.StatusBadRequest, httperr.CodeInvalid, "Invalid start_date")
			return
		}
		filter.From = &t
	}
	if s := query.Get(r, "end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			httperr.Message(w, http.StatusBadRequest, httperr.CodeInvalid, "Invalid end_date")
			return
		}
		// end of day
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Audit.Query(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	total, err := h.Audit.Count(ctx, filter)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(events)*2)
	seen := make(map[primitive.ObjectID]bool)
	for _, e := range events {
		for _, id := range []*primitive.ObjectID{e.ActorID, e.UserID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				ids = append(ids, *id)
			}
		}
	}
	names, err := h.Users.NamesByIDs(ctx, ids)
	if err != nil {
		h.Log.Warn("failed to fetch user names for audit log", zap.Error(err))
		names = map[primitive.ObjectID]string{}
	}

	items := make([]auditItem, 0, len(events))
	for _, e := range events {
		item := auditItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.Hex()
			item.ActorName = names[*e.ActorID]
		}
		if e.UserID != nil {
			item.UserID = e.UserID.Hex()
			item.UserName = names[*e.UserID]
		}
		if e.TargetID != nil {
			item.TargetID = e.TargetID.Hex()
		}
		items = append(items, item)
	}

	httperr.JSON(w, http.StatusOK, auditResponse{
		Events: items,
		Total:  total,
		Page:   pg.Page,
		Limit:  pg.Limit,
		Pages:  pg.Pages(total),
	})
}
