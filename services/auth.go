package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"scribble/identity"
	"scribble/models"
	"scribble/store"
	"scribble/token"
	"scribble/uploads"
)

const resetTokenTTL = time.Hour

// AuthService validates credentials, issues session tokens and handles the
// password reset and Google sign-in flows.
type AuthService struct {
	users    store.UserStore
	resets   store.ResetStore
	tokens   token.Strategy
	verifier identity.Verifier
	uploader uploads.Uploader
}

func NewAuthService(users store.UserStore, resets store.ResetStore, tokens token.Strategy, verifier identity.Verifier, uploader uploads.Uploader) *AuthService {
	return &AuthService{
		users:    users,
		resets:   resets,
		tokens:   tokens,
		verifier: verifier,
		uploader: uploader,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Name     string
	Bio      string
	Password string
	Picture  io.Reader // optional profile picture
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if in.Username == "" || in.Email == "" {
		return nil, validationErr("username and email are required")
	}
	if len(in.Password) < 6 {
		return nil, validationErr("password must be at least 6 characters")
	}

	if _, err := s.users.ByUsername(ctx, in.Username); err == nil {
		return nil, validationErr("username already taken")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, dependencyErr("lookup username", err)
	}
	if _, err := s.users.ByEmail(ctx, in.Email); err == nil {
		return nil, validationErr("email already in use")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, dependencyErr("lookup email", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dependencyErr("hash password", err)
	}
	hash := string(hashed)

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		Bio:          in.Bio,
		PasswordHash: &hash,
		AuthProvider: "email",
	}

	if in.Picture != nil {
		if s.uploader == nil {
			return nil, dependencyErr("image uploads not configured", nil)
		}
		res, err := s.uploader.Upload(ctx, in.Picture, "scribble/avatars")
		if err != nil {
			return nil, dependencyErr("upload profile picture", err)
		}
		user.PicturePath = res.URL
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, validationErr("username or email already in use")
		}
		return nil, dependencyErr("create user", err)
	}
	return user, nil
}

// Login accepts an email address or a username as identifier.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (string, *models.User, error) {
	identifier = strings.TrimSpace(identifier)

	user, err := s.users.ByEmail(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		user, err = s.users.ByUsername(ctx, identifier)
	}
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, authErr("invalid credentials")
	}
	if err != nil {
		return "", nil, dependencyErr("lookup user", err)
	}

	if user.PasswordHash == nil {
		// Google-only account; no password to compare against.
		return "", nil, authErr("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		return "", nil, authErr("invalid credentials")
	}

	tok, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return "", nil, dependencyErr("issue session token", err)
	}
	return tok, user, nil
}

// ForgotPassword issues a single-use reset token. Delivery is out of band;
// the token is returned to the caller for that purpose.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.users.ByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", notFoundErr("no account with that email")
	}
	if err != nil {
		return "", dependencyErr("lookup user", err)
	}

	tok, err := generateResetToken()
	if err != nil {
		return "", dependencyErr("generate reset token", err)
	}

	err = s.resets.SaveReset(ctx, models.ResetToken{
		Token:     tok,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(resetTokenTTL).Unix(),
	})
	if err != nil {
		return "", dependencyErr("save reset token", err)
	}
	return tok, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, tok, newPassword string) error {
	if len(newPassword) < 6 {
		return validationErr("password must be at least 6 characters")
	}

	userID, err := s.resets.Consume(ctx, tok, time.Now().Unix())
	if errors.Is(err, store.ErrNotFound) {
		return authErr("invalid or expired reset token")
	}
	if err != nil {
		return dependencyErr("consume reset token", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return dependencyErr("hash password", err)
	}
	hash := string(hashed)

	if _, err := s.users.Update(ctx, userID, store.ProfileUpdate{PasswordHash: &hash}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundErr("user not found")
		}
		return dependencyErr("update password", err)
	}
	return nil
}

// GoogleLogin verifies a Google ID token and finds or creates the local
// account bound to its email.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (string, *models.User, error) {
	if s.verifier == nil {
		return "", nil, dependencyErr("google sign-in not configured", nil)
	}

	claims, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return "", nil, authErr("invalid Google credential")
	}
	if claims.Email == "" {
		return "", nil, authErr("Google credential has no email")
	}
	return s.LoginWithClaims(ctx, claims)
}

// LoginWithClaims issues a session for already verified identity claims.
// Used by GoogleLogin and by the OAuth callback flow.
func (s *AuthService) LoginWithClaims(ctx context.Context, claims *identity.Claims) (string, *models.User, error) {
	user, err := s.users.ByEmail(ctx, claims.Email)
	if errors.Is(err, store.ErrNotFound) {
		user = userFromClaims(claims)
		if err := s.users.Insert(ctx, user); err != nil {
			return "", nil, dependencyErr("create user", err)
		}
		log.Printf("[GoogleLogin] created account for %s", claims.Email)
	} else if err != nil {
		return "", nil, dependencyErr("lookup user", err)
	}

	tok, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return "", nil, dependencyErr("issue session token", err)
	}
	return tok, user, nil
}

func userFromClaims(claims *identity.Claims) *models.User {
	name := claims.Name
	username := usernameFromEmail(claims.Email)
	if name == "" {
		name = username
	}
	googleID := claims.Subject
	return &models.User{
		Username:     username,
		Email:        claims.Email,
		Name:         name,
		AuthProvider: "google",
		GoogleID:     &googleID,
		PicturePath:  claims.Picture,
	}
}

// usernameFromEmail derives a unique username from the local part of an
// email address.
func usernameFromEmail(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	local = strings.ReplaceAll(local, ".", "")
	if local == "" {
		local = "user"
	}
	return local + "_" + primitive.NewObjectID().Hex()[:4]
}

func generateResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
