// internal/domain/models/address.go
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Address types.
const (
	AddressHome  = "home"
	AddressWork  = "work"
	AddressOther = "other"
)

// AddressTypes lists the accepted Address.Type values.
var AddressTypes = []string{AddressHome, AddressWork, AddressOther}

// Address is embedded in User.Addresses.
type Address struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Type      string             `bson:"type" json:"type"`
	Title     string             `bson:"title,omitempty" json:"title,omitempty"`
	FirstName string             `bson:"first_name" json:"firstName"`
	LastName  string             `bson:"last_name" json:"lastName"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Street    string             `bson:"street" json:"street"`
	City      string             `bson:"city" json:"city"`
	State     string             `bson:"state" json:"state"`
	ZipCode   string             `bson:"zip_code" json:"zipCode"`
	Country   string             `bson:"country" json:"country"`
	IsDefault bool               `bson:"is_default" json:"isDefault"`
}

// PostalAddress is the address shape copied onto orders.
type PostalAddress struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zip_code" json:"zipCode"`
	Country string `bson:"country" json:"country"`
}

// Postal projects a saved address onto the order address shape.
func (a Address) Postal() PostalAddress {
	return PostalAddress{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		ZipCode: a.ZipCode,
		Country: a.Country,
	}
}

// IsZero reports whether every field is empty.
func (p PostalAddress) IsZero() bool {
	return p == PostalAddress{}
}
