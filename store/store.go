// Package store defines the persistence ports for users, posts and
// supporting collections, with a MongoDB implementation and an in-memory
// implementation used by tests.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"scribble/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// ProfileUpdate carries a partial user update. Nil fields are left untouched.
type ProfileUpdate struct {
	Username     *string
	Name         *string
	Bio          *string
	Email        *string
	PasswordHash *string
	PicturePath  *string
}

// IsEmpty reports whether the update would change nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.Username == nil && u.Name == nil && u.Bio == nil &&
		u.Email == nil && u.PasswordHash == nil && u.PicturePath == nil
}

type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error)
}

// PostStore persists posts. All read methods exclude soft-deleted posts and
// return hydrated documents (author profile resolved), ordered newest first.
type PostStore interface {
	InsertPost(ctx context.Context, p *models.Post) error
	PostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Feed(ctx context.Context) ([]models.Post, error)
	ByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error)

	// ToggleLike flips userID's like on the post as an atomic conditional
	// update (remove-if-present, otherwise add-if-absent). It reports
	// whether the post is liked by userID after the call.
	ToggleLike(ctx context.Context, postID primitive.ObjectID, userID string) (bool, error)

	// PrependComment pushes c to the front of the post's comment list.
	PrependComment(ctx context.Context, postID primitive.ObjectID, c models.Comment) error

	// SoftDelete marks the post deleted; likes and comments are kept.
	SoftDelete(ctx context.Context, postID primitive.ObjectID) error
}

type ResetStore interface {
	SaveReset(ctx context.Context, t models.ResetToken) error

	// Consume validates and deletes the token, returning the bound user id.
	// Missing, already used and expired tokens all yield ErrNotFound.
	Consume(ctx context.Context, token string, now int64) (primitive.ObjectID, error)
}

type SavedStore interface {
	SavePost(ctx context.Context, userID, postID primitive.ObjectID) error
	RemoveSaved(ctx context.Context, userID, postID primitive.ObjectID) error
	ListSaved(ctx context.Context, userID primitive.ObjectID) ([]models.SavedPost, error)
}

type PushStore interface {
	Upsert(ctx context.Context, sub models.PushSubscription) error
	ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error)
}
