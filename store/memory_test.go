package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"scribble/models"
	"scribble/store"
)

func newUser(t *testing.T, m *store.Memory, username, email string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: email, Name: username, AuthProvider: "email"}
	require.NoError(t, m.Insert(context.Background(), u))
	return u
}

func newPost(t *testing.T, m *store.Memory, author primitive.ObjectID, content string) *models.Post {
	t.Helper()
	p := &models.Post{AuthorID: author, Content: content}
	require.NoError(t, m.InsertPost(context.Background(), p))
	return p
}

func TestUserUniqueness(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	newUser(t, m, "alice", "alice@x.com")

	err := m.Insert(ctx, &models.User{Username: "alice", Email: "other@x.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	err = m.Insert(ctx, &models.User{Username: "other", Email: "alice@x.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestProfileUpdatePartial(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	u := newUser(t, m, "alice", "alice@x.com")

	bio := "hello"
	updated, err := m.Update(ctx, u.ID, store.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Bio)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, "alice@x.com", updated.Email)

	// A nil field leaves the stored value alone.
	name := "Alice A."
	updated, err = m.Update(ctx, u.ID, store.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Bio)
	assert.Equal(t, "Alice A.", updated.Name)
}

func TestProfileUpdateDuplicate(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	newUser(t, m, "alice", "alice@x.com")
	bob := newUser(t, m, "bob", "bob@x.com")

	taken := "alice"
	_, err := m.Update(ctx, bob.ID, store.ProfileUpdate{Username: &taken})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestToggleLikeInvolution(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	alice := newUser(t, m, "alice", "alice@x.com")
	p := newPost(t, m, alice.ID, "hello")

	liked, err := m.ToggleLike(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.True(t, liked)

	got, err := m.PostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"u1": true}, got.Likes)

	liked, err = m.ToggleLike(ctx, p.ID, "u1")
	require.NoError(t, err)
	assert.False(t, liked)

	got, err = m.PostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)
}

func TestToggleLikeIndependentUsers(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	alice := newUser(t, m, "alice", "alice@x.com")
	p := newPost(t, m, alice.ID, "hello")

	_, err := m.ToggleLike(ctx, p.ID, "u1")
	require.NoError(t, err)
	_, err = m.ToggleLike(ctx, p.ID, "u2")
	require.NoError(t, err)
	_, err = m.ToggleLike(ctx, p.ID, "u1")
	require.NoError(t, err)

	got, err := m.PostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"u2": true}, got.Likes)
}

func TestToggleLikeMissingPost(t *testing.T) {
	m := store.NewMemory()
	_, err := m.ToggleLike(context.Background(), primitive.NewObjectID(), "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCommentPrepend(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	alice := newUser(t, m, "alice", "alice@x.com")
	p := newPost(t, m, alice.ID, "hello")

	require.NoError(t, m.PrependComment(ctx, p.ID, models.Comment{Text: "first", AuthorID: "u1"}))
	require.NoError(t, m.PrependComment(ctx, p.ID, models.Comment{Text: "second", AuthorID: "u2"}))
	require.NoError(t, m.PrependComment(ctx, p.ID, models.Comment{Text: "third", AuthorID: "u1"}))

	got, err := m.PostByID(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 3)
	assert.Equal(t, "third", got.Comments[0].Text)
	assert.Equal(t, "second", got.Comments[1].Text)
	assert.Equal(t, "first", got.Comments[2].Text)
}

func TestFeedOrderingAndHydration(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	alice := newUser(t, m, "alice", "alice@x.com")
	first := newPost(t, m, alice.ID, "first")
	second := newPost(t, m, alice.ID, "second")

	feed, err := m.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)

	// Newest first.
	assert.Equal(t, second.ID, feed[0].ID)
	assert.Equal(t, first.ID, feed[1].ID)
	for i := 1; i < len(feed); i++ {
		assert.GreaterOrEqual(t, feed[i-1].CreatedAt, feed[i].CreatedAt)
	}

	require.NotNil(t, feed[0].Author)
	assert.Equal(t, "alice", feed[0].Author.Username)
}

func TestSoftDeleteExcludedEverywhere(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	alice := newUser(t, m, "alice", "alice@x.com")
	keep := newPost(t, m, alice.ID, "keep")
	gone := newPost(t, m, alice.ID, "gone")

	require.NoError(t, m.SoftDelete(ctx, gone.ID))

	feed, err := m.Feed(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, keep.ID, feed[0].ID)

	byAuthor, err := m.ByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, keep.ID, byAuthor[0].ID)

	_, err = m.PostByID(ctx, gone.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Likes and comments survive the delete flag.
	_, err = m.ToggleLike(ctx, gone.ID, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResetTokenSingleUse(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	userID := primitive.NewObjectID()
	require.NoError(t, m.SaveReset(ctx, models.ResetToken{Token: "tok", UserID: userID, ExpiresAt: 100}))

	got, err := m.Consume(ctx, "tok", 50)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = m.Consume(ctx, "tok", 50)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResetTokenExpiry(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveReset(ctx, models.ResetToken{Token: "tok", UserID: primitive.NewObjectID(), ExpiresAt: 100}))

	_, err := m.Consume(ctx, "tok", 101)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSavedPosts(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	userID := primitive.NewObjectID()
	postID := primitive.NewObjectID()

	require.NoError(t, m.SavePost(ctx, userID, postID))
	assert.ErrorIs(t, m.SavePost(ctx, userID, postID), store.ErrDuplicate)

	saved, err := m.ListSaved(ctx, userID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, postID, saved[0].PostID)

	require.NoError(t, m.RemoveSaved(ctx, userID, postID))
	assert.ErrorIs(t, m.RemoveSaved(ctx, userID, postID), store.ErrNotFound)
}
