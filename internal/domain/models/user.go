// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a storefront account. Addresses are embedded and kept in the order
// they were added; at most one of them carries IsDefault.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"` // user | admin
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`

	IsVerified          bool       `bson:"is_verified" json:"isVerified"`
	VerificationToken   string     `bson:"verification_token,omitempty" json:"-"`
	VerificationExpires *time.Time `bson:"verification_expires,omitempty" json:"-"`
	ResetToken          string     `bson:"reset_token,omitempty" json:"-"`
	ResetExpires        *time.Time `bson:"reset_expires,omitempty" json:"-"`

	Addresses          []Address            `bson:"addresses" json:"addresses"`
	FavoriteCategories []primitive.ObjectID `bson:"favorite_categories" json:"favoriteCategories"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// DefaultAddress returns the address flagged as default, if any.
func (u User) DefaultAddress() (Address, bool) {
	for _, a := range u.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}
