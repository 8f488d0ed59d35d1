package userstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/normalize"
	"github.com/dalemusser/storefront/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = apperr.Conflict("a user with this email already exists")
	// ErrNotFound is returned when no user matches.
	ErrNotFound = apperr.NotFound("user")
	// ErrTokenInvalid is returned for unknown or expired verification/reset tokens.
	ErrTokenInvalid = apperr.Invalid("invalid or expired token")

	errBadRole = apperr.Invalid(`role must be "user"|"admin"`)
)

// tokenBytes is the entropy of verification and reset tokens (64 hex chars).
const tokenBytes = 32

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// NamesByIDs returns display names for the given users. Unknown ids are
// simply absent from the map.
func (s *Store) NamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.Name
	}
	return out, cur.Err()
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user after normalizing & validating fields.
// PasswordHash must already be set by the caller.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Name = normalize.Name(u.Name)
	u.NameCI = text.Fold(u.Name)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Role != models.RoleUser && u.Role != models.RoleAdmin {
		return models.User{}, errBadRole
	}
	if u.Addresses == nil {
		u.Addresses = []models.Address{}
	}
	if u.FavoriteCategories == nil {
		u.FavoriteCategories = []primitive.ObjectID{}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// UpdateProfile sets name and phone and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, phone string) (*models.User, error) {
	name = normalize.Name(name)
	return s.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"phone":      phone,
		"updated_at": time.Now().UTC(),
	}})
}

// SetFavoriteCategories replaces the user's favorite category list.
func (s *Store) SetFavoriteCategories(ctx context.Context, id primitive.ObjectID, ids []primitive.ObjectID) (*models.User, error) {
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	return s.findAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"favorite_categories": ids,
		"updated_at":          time.Now().UTC(),
	}})
}

// IssueVerificationToken stores a fresh email verification token valid for
// ttl and returns the raw token to be mailed. Only its hash is persisted.
func (s *Store) IssueVerificationToken(ctx context.Context, id primitive.ObjectID, ttl time.Duration) (string, error) {
	raw, hash, err := newToken()
	if err != nil {
		return "", err
	}
	exp := time.Now().UTC().Add(ttl)
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"verification_token":   hash,
		"verification_expires": exp,
	}})
	if err != nil {
		return "", err
	}
	if res.MatchedCount == 0 {
		return "", ErrNotFound
	}
	return raw, nil
}

// VerifyEmail marks the owner of an unexpired verification token as verified
// and clears the token.
func (s *Store) VerifyEmail(ctx context.Context, rawToken string) (*models.User, error) {
	u, err := s.findAndUpdate(ctx,
		bson.M{
			"verification_token":   hashToken(rawToken),
			"verification_expires": bson.M{"$gt": time.Now().UTC()},
		},
		bson.M{
			"$set":   bson.M{"is_verified": true, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"verification_token": "", "verification_expires": ""},
		})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	return u, err
}

// IssueResetToken stores a password reset token for the user with the given
// email and returns the user and the raw token.
func (s *Store) IssueResetToken(ctx context.Context, email string, ttl time.Duration) (*models.User, string, error) {
	raw, hash, err := newToken()
	if err != nil {
		return nil, "", err
	}
	u, err := s.findAndUpdate(ctx, bson.M{"email": normalize.Email(email)}, bson.M{"$set": bson.M{
		"reset_token":   hash,
		"reset_expires": time.Now().UTC().Add(ttl),
	}})
	if err != nil {
		return nil, "", err
	}
	return u, raw, nil
}

// ResetPassword replaces the password hash of the owner of an unexpired reset
// token and clears the token.
func (s *Store) ResetPassword(ctx context.Context, rawToken, passwordHash string) (*models.User, error) {
	u, err := s.findAndUpdate(ctx,
		bson.M{
			"reset_token":   hashToken(rawToken),
			"reset_expires": bson.M{"$gt": time.Now().UTC()},
		},
		bson.M{
			"$set":   bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"reset_token": "", "reset_expires": ""},
		})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	return u, err
}

// ClearExpiredTokens unsets verification and reset tokens whose expiry has
// passed. Returns the number of users touched.
func (s *Store) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	res, err := s.c.UpdateMany(ctx,
		bson.M{"verification_expires": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"verification_token": "", "verification_expires": ""}})
	if err != nil {
		return 0, err
	}
	total += res.ModifiedCount

	res, err = s.c.UpdateMany(ctx,
		bson.M{"reset_expires": bson.M{"$lte": now}},
		bson.M{"$unset": bson.M{"reset_token": "", "reset_expires": ""}})
	if err != nil {
		return total, err
	}
	return total + res.ModifiedCount, nil
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

func (s *Store) findAndUpdate(ctx context.Context, filter bson.M, update any) (*models.User, error) {
	var u models.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func newToken() (raw, hash string, err error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
