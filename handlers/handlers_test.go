package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribble/handlers"
	"scribble/models"
	"scribble/routes"
	"scribble/services"
	"scribble/store"
	"scribble/token"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemory()
	tokens := token.NewJWT("test-secret", time.Hour)

	api := &handlers.API{
		Auth:  services.NewAuthService(mem, mem, tokens, nil, nil),
		Posts: services.NewPostService(mem, mem, mem, nil, nil),
		Users: services.NewUserService(mem, nil),
		Subs:  mem,
	}
	return routes.SetupRouter(api, tokens)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, authToken string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func registerAndLogin(t *testing.T, router *gin.Engine, username, email string) loginResponse {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/auth/register", "", gin.H{
		"username": username,
		"email":    email,
		"password": "Passw0rd",
		"name":     username,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/auth/login", "", gin.H{
		"identifier": email,
		"password":   "Passw0rd",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[loginResponse](t, w)
}

func TestHealth(t *testing.T) {
	router := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginPostFlow(t *testing.T) {
	router := newTestServer(t)

	session := registerAndLogin(t, router, "alice", "alice@x.com")
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "alice", session.User.Username)

	// Duplicate email is rejected.
	w := doJSON(t, router, http.MethodPost, "/auth/register", "", gin.H{
		"username": "alice2",
		"email":    "alice@x.com",
		"password": "Passw0rd",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Create a post via multipart form, the shape browser clients send.
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	require.NoError(t, mw.WriteField("content", "hello world"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/posts", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	post := decode[models.Post](t, rec)
	assert.Equal(t, "hello world", post.Content)
	assert.Empty(t, post.Likes)
	assert.Empty(t, post.Comments)
	require.NotNil(t, post.Author)
	assert.Equal(t, "alice", post.Author.Username)

	// Like toggles on, then off.
	likePath := fmt.Sprintf("/posts/%s/like", post.ID.Hex())
	w = doJSON(t, router, http.MethodPatch, likePath, session.Token, gin.H{"userId": "u1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	liked := decode[models.Post](t, w)
	assert.True(t, liked.Likes["u1"])

	w = doJSON(t, router, http.MethodPatch, likePath, session.Token, gin.H{"userId": "u1"})
	require.Equal(t, http.StatusOK, w.Code)
	unliked := decode[models.Post](t, w)
	assert.Empty(t, unliked.Likes)

	// Comment.
	commentPath := fmt.Sprintf("/posts/%s/comment", post.ID.Hex())
	w = doJSON(t, router, http.MethodPatch, commentPath, session.Token, gin.H{"comment": "nice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	commented := decode[models.Post](t, w)
	require.Len(t, commented.Comments, 1)
	assert.Equal(t, "nice", commented.Comments[0].Text)

	// Soft-delete removes the post from the feed.
	w = doJSON(t, router, http.MethodDelete, "/posts/"+post.ID.Hex(), session.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := decode[[]models.Post](t, w)
	assert.Empty(t, feed)

	w = doJSON(t, router, http.MethodGet, "/posts", session.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed = decode[[]models.Post](t, w)
	assert.Empty(t, feed)
}

func TestAuthRequired(t *testing.T) {
	router := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/posts", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	router := newTestServer(t)
	registerAndLogin(t, router, "bob", "bob@x.com")

	w := doJSON(t, router, http.MethodPost, "/auth/login", "", gin.H{
		"identifier": "bob@x.com",
		"password":   "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfileSelfOnly(t *testing.T) {
	router := newTestServer(t)
	alice := registerAndLogin(t, router, "alice", "alice@x.com")
	bob := registerAndLogin(t, router, "bob", "bob@x.com")

	// Alice cannot edit Bob.
	w := doJSON(t, router, http.MethodPut, "/users/"+bob.User.ID.Hex(), alice.Token, gin.H{"bio": "hijacked"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Alice edits herself; blank fields keep existing values.
	w = doJSON(t, router, http.MethodPut, "/users/"+alice.User.ID.Hex(), alice.Token, gin.H{"bio": "writer"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.User](t, w)
	assert.Equal(t, "writer", updated.Bio)
	assert.Equal(t, "alice", updated.Username)

	w = doJSON(t, router, http.MethodGet, "/users/"+alice.User.ID.Hex(), bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	fetched := decode[models.User](t, w)
	assert.Equal(t, "writer", fetched.Bio)
}

func TestSavedPostsFlow(t *testing.T) {
	router := newTestServer(t)
	alice := registerAndLogin(t, router, "alice", "alice@x.com")
	bob := registerAndLogin(t, router, "bob", "bob@x.com")

	w := doJSON(t, router, http.MethodPost, "/posts", alice.Token, gin.H{"content": "worth saving"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[models.Post](t, w)

	savePath := fmt.Sprintf("/posts/%s/save", post.ID.Hex())
	w = doJSON(t, router, http.MethodPost, savePath, bob.Token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Saving twice is a validation error.
	w = doJSON(t, router, http.MethodPost, savePath, bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/saved", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	saved := decode[[]models.Post](t, w)
	require.Len(t, saved, 1)
	assert.Equal(t, "worth saving", saved[0].Content)

	w = doJSON(t, router, http.MethodDelete, savePath, bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/saved", bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	saved = decode[[]models.Post](t, w)
	assert.Empty(t, saved)
}

func TestGetUserPostsByAuthor(t *testing.T) {
	router := newTestServer(t)
	alice := registerAndLogin(t, router, "alice", "alice@x.com")
	bob := registerAndLogin(t, router, "bob", "bob@x.com")

	w := doJSON(t, router, http.MethodPost, "/posts", alice.Token, gin.H{"content": "by alice"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, router, http.MethodPost, "/posts", bob.Token, gin.H{"content": "by bob"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/posts/"+alice.User.ID.Hex(), bob.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	posts := decode[[]models.Post](t, w)
	require.Len(t, posts, 1)
	assert.Equal(t, "by alice", posts[0].Content)
}

func TestPushPublicKeyUnconfigured(t *testing.T) {
	router := newTestServer(t)
	w := doJSON(t, router, http.MethodGet, "/push/public-key", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
