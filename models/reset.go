package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ResetToken is a single-use password reset credential.
type ResetToken struct {
	Token     string             `bson:"token"`
	UserID    primitive.ObjectID `bson:"userId"`
	ExpiresAt int64              `bson:"expiresAt"`
}
