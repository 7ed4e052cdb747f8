package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SavedPost is a bookmark of a post by a user.
type SavedPost struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	PostID    primitive.ObjectID `bson:"postId" json:"postId"`
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
}
