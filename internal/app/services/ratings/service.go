package ratings

import (
	"context"

	reviewstore "github.com/dalemusser/storefront/internal/app/store/reviews"
	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/events"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Submission is a new review from a signed-in user.
type Submission struct {
	UserID    primitive.ObjectID
	UserName  string
	ProductID primitive.ObjectID
	Rating    int
	Title     string
	Comment   string
}

// Service performs review mutations and re-aggregates the affected product
// after each one.
type Service struct {
	reviews     *reviewstore.Store
	agg         *Aggregator
	events      events.Publisher
	autoApprove bool
	log         *zap.Logger
}

// Options configures a Service.
type Options struct {
	AutoApprove bool
	Events      events.Publisher
}

// NewService returns a review Service backed by agg.
func NewService(db *mongo.Database, agg *Aggregator, opts Options, log *zap.Logger) *Service {
	pub := opts.Events
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		reviews:     reviewstore.New(db),
		agg:         agg,
		events:      pub,
		autoApprove: opts.AutoApprove,
		log:         log,
	}
}

// Aggregator returns the aggregator used after each mutation.
func (s *Service) Aggregator() *Aggregator { return s.agg }

// Submit creates a review, unapproved unless auto-approval is on, then
// re-aggregates its product.
func (s *Service) Submit(ctx context.Context, in Submission) (models.Review, Result, error) {
	rv, err := s.reviews.Create(ctx, models.Review{
		UserID:     in.UserID,
		UserName:   in.UserName,
		ProductID:  in.ProductID,
		Rating:     in.Rating,
		Title:      in.Title,
		Comment:    in.Comment,
		IsApproved: s.autoApprove,
	})
	if err != nil {
		return models.Review{}, Result{}, err
	}
	res := s.recompute(ctx, rv)
	if rv.IsApproved {
		s.events.Publish(ctx, events.ReviewApproved, rv)
	}
	return rv, res, nil
}

// SetApproved changes a review's approval flag. The product is re-aggregated
// even when the flag was already set, which also repairs stale totals.
func (s *Service) SetApproved(ctx context.Context, id primitive.ObjectID, approved bool) (models.Review, Result, error) {
	rv, changed, err := s.reviews.SetApproved(ctx, id, approved)
	if err != nil {
		return models.Review{}, Result{}, err
	}
	res := s.recompute(ctx, rv)
	if changed && approved {
		s.events.Publish(ctx, events.ReviewApproved, rv)
	}
	return rv, res, nil
}

// Delete removes a review. Only its author or an admin may do so.
func (s *Service) Delete(ctx context.Context, id, actorID primitive.ObjectID, isAdmin bool) (models.Review, Result, error) {
	existing, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return models.Review{}, Result{}, err
	}
	if !isAdmin && existing.UserID != actorID {
		return models.Review{}, Result{}, apperr.Forbidden("you can only delete your own reviews")
	}

	rv, err := s.reviews.Delete(ctx, id)
	if err != nil {
		return models.Review{}, Result{}, err
	}
	res := s.recompute(ctx, rv)
	s.events.Publish(ctx, events.ReviewDeleted, rv)
	return rv, res, nil
}

// Helpful adds a helpful vote. Votes do not feed the aggregate.
func (s *Service) Helpful(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	return s.reviews.IncrementHelpful(ctx, id)
}

// recompute runs the aggregator for the product the review referenced when
// it was mutated. Failures are logged; the mutation itself already succeeded.
func (s *Service) recompute(ctx context.Context, rv models.Review) Result {
	res, err := s.agg.Recompute(ctx, rv.ProductID)
	if err != nil {
		s.log.Error("rating aggregation failed",
			zap.String("review_id", rv.ID.Hex()),
			zap.String("product_id", rv.ProductID.Hex()),
			zap.Error(err))
		return Result{ProductID: rv.ProductID}
	}
	return res
}
