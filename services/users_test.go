package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"scribble/models"
	"scribble/services"
	"scribble/store"
)

func newUserService(t *testing.T) (*services.UserService, *models.User) {
	t.Helper()
	mem := store.NewMemory()

	hashed, err := bcrypt.GenerateFromPassword([]byte("Passw0rd"), bcrypt.MinCost)
	require.NoError(t, err)
	hash := string(hashed)

	user := &models.User{
		Username:     "alice",
		Email:        "alice@x.com",
		Name:         "Alice",
		Bio:          "original bio",
		PasswordHash: &hash,
		AuthProvider: "email",
	}
	require.NoError(t, mem.Insert(context.Background(), user))
	return services.NewUserService(mem, nil), user
}

func TestGetAndListUsers(t *testing.T) {
	svc, user := newUserService(t)
	ctx := context.Background()

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = svc.Get(ctx, primitive.NewObjectID())
	assertKind(t, err, services.KindNotFound)
}

func TestUpdateProfileBlankFieldsRetained(t *testing.T) {
	svc, user := newUserService(t)
	ctx := context.Background()

	updated, err := svc.UpdateProfile(ctx, user.ID, services.UpdateProfileInput{
		Name: "Alice Cooper",
		Bio:  "",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Cooper", updated.Name)
	assert.Equal(t, "original bio", updated.Bio)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "alice@x.com", updated.Email)

	// Whitespace-only counts as blank.
	updated, err = svc.UpdateProfile(ctx, user.ID, services.UpdateProfileInput{Bio: "   "})
	require.NoError(t, err)
	assert.Equal(t, "original bio", updated.Bio)
}

func TestUpdateProfileTrims(t *testing.T) {
	svc, user := newUserService(t)

	updated, err := svc.UpdateProfile(context.Background(), user.ID, services.UpdateProfileInput{
		Bio: "  new bio  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "new bio", updated.Bio)
}

func TestChangePassword(t *testing.T) {
	svc, user := newUserService(t)
	ctx := context.Background()

	updated, err := svc.UpdateProfile(ctx, user.ID, services.UpdateProfileInput{
		OldPassword:     "Passw0rd",
		NewPassword:     "NewPassw0rd",
		ConfirmPassword: "NewPassw0rd",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*updated.PasswordHash), []byte("NewPassw0rd")))
}

func TestChangePasswordWrongOld(t *testing.T) {
	svc, user := newUserService(t)

	_, err := svc.UpdateProfile(context.Background(), user.ID, services.UpdateProfileInput{
		OldPassword:     "wrong",
		NewPassword:     "NewPassw0rd",
		ConfirmPassword: "NewPassw0rd",
	})
	assertKind(t, err, services.KindAuth)
}

func TestChangePasswordMismatchedConfirmation(t *testing.T) {
	svc, user := newUserService(t)

	_, err := svc.UpdateProfile(context.Background(), user.ID, services.UpdateProfileInput{
		OldPassword:     "Passw0rd",
		NewPassword:     "NewPassw0rd",
		ConfirmPassword: "Different",
	})
	assertKind(t, err, services.KindValidation)
}

func TestUpdateProfileDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	alice := &models.User{Username: "alice", Email: "alice@x.com", AuthProvider: "email"}
	bob := &models.User{Username: "bob", Email: "bob@x.com", AuthProvider: "email"}
	require.NoError(t, mem.Insert(ctx, alice))
	require.NoError(t, mem.Insert(ctx, bob))

	svc := services.NewUserService(mem, nil)
	_, err := svc.UpdateProfile(ctx, bob.ID, services.UpdateProfileInput{Username: "alice"})
	assertKind(t, err, services.KindValidation)
}

func TestUpdateProfileMissingUser(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.UpdateProfile(context.Background(), primitive.NewObjectID(), services.UpdateProfileInput{
		Name: "Ghost",
	})
	assertKind(t, err, services.KindNotFound)
}
