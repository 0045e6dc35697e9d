// Package models contains the document types of the social graph and the
// application error type shared by every layer.
package models

import "go.mongodb.org/mongo-driver/v2/bson"

// NewID returns a fresh document id in ObjectId layout (24 hex characters).
func NewID() string {
	return bson.NewObjectID().Hex()
}

// IsValidID reports whether s has the shape of a document id.
func IsValidID(s string) bool {
	_, err := bson.ObjectIDFromHex(s)
	return err == nil
}

// Contains reports whether id is a member of the reference set.
func Contains(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}
