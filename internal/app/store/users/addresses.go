package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrAddressNotFound is returned when the user has no address with the given id.
var ErrAddressNotFound = apperr.NotFound("address")

// Every address mutation below is a single pipeline update on the user
// document, so the "at most one default" rule holds after each write without
// a read-modify-write window.

// AddAddress appends a to the user's address list. The new address becomes
// the default when it asks to be, or when the list was empty; in both cases
// every other address loses its default flag in the same write.
func (s *Store) AddAddress(ctx context.Context, userID primitive.ObjectID, a models.Address) (*models.User, error) {
	if err := validateAddress(&a); err != nil {
		return nil, err
	}
	a.ID = primitive.NewObjectID()

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"addresses": bson.M{"$let": bson.M{
				"vars": bson.M{"existing": bson.M{"$ifNull": bson.A{"$addresses", bson.A{}}}},
				"in": bson.M{"$let": bson.M{
					"vars": bson.M{"makeDefault": bson.M{"$or": bson.A{
						a.IsDefault,
						bson.M{"$eq": bson.A{bson.M{"$size": "$$existing"}, 0}},
					}}},
					"in": bson.M{"$concatArrays": bson.A{
						bson.M{"$map": bson.M{
							"input": "$$existing",
							"as":    "a",
							"in": bson.M{"$mergeObjects": bson.A{"$$a", bson.M{
								"is_default": bson.M{"$cond": bson.A{
									"$$makeDefault",
									false,
									bson.M{"$ifNull": bson.A{"$$a.is_default", false}},
								}},
							}}},
						}},
						bson.A{bson.M{"$mergeObjects": bson.A{
							bson.M{"$literal": addressDoc(a)},
							bson.M{"is_default": "$$makeDefault"},
						}}},
					}},
				}},
			}},
			"updated_at": time.Now().UTC(),
		}}},
	}
	return s.findAndUpdate(ctx, bson.M{"_id": userID}, pipeline)
}

// SetDefaultAddress flags addrID as default and clears every sibling.
func (s *Store) SetDefaultAddress(ctx context.Context, userID, addrID primitive.ObjectID) (*models.User, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"addresses": bson.M{"$map": bson.M{
				"input": "$addresses",
				"as":    "a",
				"in": bson.M{"$mergeObjects": bson.A{"$$a", bson.M{
					"is_default": bson.M{"$eq": bson.A{"$$a._id", addrID}},
				}}},
			}},
			"updated_at": time.Now().UTC(),
		}}},
	}
	u, err := s.findAndUpdate(ctx, bson.M{"_id": userID, "addresses._id": addrID}, pipeline)
	return u, s.addressErr(ctx, userID, err)
}

// DeleteAddress removes addrID. If the removed address was the default and
// others remain, the first remaining address becomes the default.
func (s *Store) DeleteAddress(ctx context.Context, userID, addrID primitive.ObjectID) (*models.User, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"addresses": bson.M{"$filter": bson.M{
				"input": "$addresses",
				"as":    "a",
				"cond":  bson.M{"$ne": bson.A{"$$a._id", addrID}},
			}},
		}}},
		{{Key: "$set", Value: bson.M{
			"addresses": bson.M{"$cond": bson.A{
				bson.M{"$or": bson.A{
					bson.M{"$eq": bson.A{bson.M{"$size": "$addresses"}, 0}},
					bson.M{"$anyElementTrue": bson.A{bson.M{"$map": bson.M{
						"input": "$addresses",
						"as":    "a",
						"in":    "$$a.is_default",
					}}}},
				}},
				"$addresses",
				bson.M{"$concatArrays": bson.A{
					bson.A{bson.M{"$mergeObjects": bson.A{
						bson.M{"$arrayElemAt": bson.A{"$addresses", 0}},
						bson.M{"is_default": true},
					}}},
					bson.M{"$slice": bson.A{"$addresses", 1, bson.M{"$max": bson.A{bson.M{"$size": "$addresses"}, 1}}}},
				}},
			}},
			"updated_at": time.Now().UTC(),
		}}},
	}
	u, err := s.findAndUpdate(ctx, bson.M{"_id": userID, "addresses._id": addrID}, pipeline)
	return u, s.addressErr(ctx, userID, err)
}

// addressErr tells a missing user apart from a missing address.
func (s *Store) addressErr(ctx context.Context, userID primitive.ObjectID, err error) error {
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	if _, gerr := s.GetByID(ctx, userID); gerr != nil {
		return gerr
	}
	return ErrAddressNotFound
}

func validateAddress(a *models.Address) error {
	a.Type = strings.ToLower(strings.TrimSpace(a.Type))
	if a.Type == "" {
		a.Type = models.AddressHome
	}
	if !models.IsOneOf(a.Type, models.AddressTypes) {
		return apperr.Invalid("address type must be home, work or other")
	}
	required := map[string]string{
		"firstName": a.FirstName,
		"lastName":  a.LastName,
		"street":    a.Street,
		"city":      a.City,
		"state":     a.State,
		"zipCode":   a.ZipCode,
		"country":   a.Country,
	}
	for _, field := range []string{"firstName", "lastName", "street", "city", "state", "zipCode", "country"} {
		if strings.TrimSpace(required[field]) == "" {
			return apperr.Invalid("%s is required", field)
		}
	}
	return nil
}

func addressDoc(a models.Address) bson.M {
	return bson.M{
		"_id":        a.ID,
		"type":       a.Type,
		"title":      a.Title,
		"first_name": a.FirstName,
		"last_name":  a.LastName,
		"phone":      a.Phone,
		"street":     a.Street,
		"city":       a.City,
		"state":      a.State,
		"zip_code":   a.ZipCode,
		"country":    a.Country,
	}
}
