package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	Name         string             `bson:"name" json:"name"`
	Bio          string             `bson:"bio" json:"bio"`
	PasswordHash *string            `bson:"passwordHash,omitempty" json:"-"`
	AuthProvider string             `bson:"authProvider" json:"authProvider"`
	GoogleID     *string            `bson:"googleId,omitempty" json:"-"`
	PicturePath  string             `bson:"picturePath" json:"picturePath"`
	CreatedAt    int64              `bson:"createdAt" json:"createdAt"`
}

// Author is the subset of a user embedded in hydrated post responses.
type Author struct {
	ID          primitive.ObjectID `json:"id"`
	Username    string             `json:"username"`
	Name        string             `json:"name"`
	Bio         string             `json:"bio"`
	PicturePath string             `json:"picturePath"`
}

func (u *User) Author() *Author {
	return &Author{
		ID:          u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Bio:         u.Bio,
		PicturePath: u.PicturePath,
	}
}
