// Package record defines the schema-less document shape served by the gateway
// and the identifier rules shared by every store backend.
package record

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDField is the name of the store-assigned identifier field.
const IDField = "_id"

// Record is one schema-less document. Values are whatever encoding/json
// decodes into: string, float64, bool, nil, map[string]any and []any.
type Record map[string]any

// IsValidID reports whether id has the store's identifier format
// (24 hexadecimal characters). It performs no I/O.
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// NewID returns a fresh identifier in the same format the mongo backend
// produces, so every backend hands out interchangeable ids.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// NormalizeID returns the canonical (lowercase hex) spelling of a valid
// identifier. Anything that does not parse is returned unchanged.
func NormalizeID(id string) string {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return id
	}
	return oid.Hex()
}

// WithoutID returns a shallow copy of r with the identifier field removed.
func (r Record) WithoutID() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// Merge overwrites the top-level fields of dst with those in fields.
// Fields absent from fields are left untouched.
func Merge(dst, fields Record) {
	for k, v := range fields {
		if k == IDField {
			continue
		}
		dst[k] = v
	}
}
