package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Comment struct {
	Text     string `bson:"text" json:"text"`
	AuthorID string `bson:"authorId" json:"authorId"`
}

type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID    primitive.ObjectID `bson:"authorId" json:"authorId"`
	Content     string             `bson:"content" json:"content"`
	Explanation string             `bson:"explanation,omitempty" json:"explanation,omitempty"`
	ImageURL    string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	ImagePath   string             `bson:"imagePath,omitempty" json:"imagePath,omitempty"`
	Likes       map[string]bool    `bson:"likes" json:"likes"`
	Comments    []Comment          `bson:"comments" json:"comments"`
	IsDeleted   bool               `bson:"isDeleted" json:"-"`
	CreatedAt   int64              `bson:"createdAt" json:"createdAt"`
	Author      *Author            `bson:"-" json:"author,omitempty"` // Populated in responses only
}
