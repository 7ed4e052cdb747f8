package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"scribble/models"
	"scribble/store"
	"scribble/uploads"
)

// UserService reads and updates user profiles.
type UserService struct {
	users    store.UserStore
	uploader uploads.Uploader
}

func NewUserService(users store.UserStore, uploader uploads.Uploader) *UserService {
	return &UserService{users: users, uploader: uploader}
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.ByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("user not found")
	}
	if err != nil {
		return nil, dependencyErr("fetch user", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dependencyErr("list users", err)
	}
	return users, nil
}

type UpdateProfileInput struct {
	Username string
	Name     string
	Bio      string
	Email    string

	// Password change. OldPassword must match the stored hash and the two
	// new values must agree.
	OldPassword     string
	NewPassword     string
	ConfirmPassword string

	Picture io.Reader // optional replacement profile picture
}

// UpdateProfile applies the non-blank fields of in to the user. Blank fields
// never overwrite existing values.
func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in UpdateProfileInput) (*models.User, error) {
	upd := store.ProfileUpdate{}

	if v := strings.TrimSpace(in.Username); v != "" {
		upd.Username = &v
	}
	if v := strings.TrimSpace(in.Name); v != "" {
		upd.Name = &v
	}
	if v := strings.TrimSpace(in.Bio); v != "" {
		upd.Bio = &v
	}
	if v := strings.TrimSpace(in.Email); v != "" {
		upd.Email = &v
	}

	if in.OldPassword != "" {
		user, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if user.PasswordHash == nil ||
			bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(in.OldPassword)) != nil {
			return nil, authErr("invalid old password")
		}
		if in.NewPassword != in.ConfirmPassword {
			return nil, validationErr("new password and confirmation do not match")
		}
		if len(in.NewPassword) < 6 {
			return nil, validationErr("password must be at least 6 characters")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, dependencyErr("hash password", err)
		}
		hash := string(hashed)
		upd.PasswordHash = &hash
	}

	if in.Picture != nil {
		if s.uploader == nil {
			return nil, dependencyErr("image uploads not configured", nil)
		}
		res, err := s.uploader.Upload(ctx, in.Picture, "scribble/avatars")
		if err != nil {
			return nil, dependencyErr("upload profile picture", err)
		}
		upd.PicturePath = &res.URL
	}

	user, err := s.users.Update(ctx, id, upd)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("user not found")
	}
	if errors.Is(err, store.ErrDuplicate) {
		return nil, validationErr("username or email already in use")
	}
	if err != nil {
		return nil, dependencyErr("update profile", err)
	}
	return user, nil
}
