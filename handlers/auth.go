package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"scribble/services"
)

type registerRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Name     string `json:"name" form:"name"`
	Bio      string `json:"bio" form:"bio"`
	Password string `json:"password" form:"password" binding:"required,min=6"`
}

// Register creates an account. Accepts JSON, or multipart form data with an
// optional "picture" file.
func (a *API) Register(c *gin.Context) {
	var req registerRequest
	var picture io.Reader

	if c.ContentType() == "application/json" {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if file, _, err := c.Request.FormFile("picture"); err == nil {
			defer file.Close()
			picture = file
		}
	}

	user, err := a.Auth.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Bio:      req.Bio,
		Password: req.Password,
		Picture:  picture,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"` // accepted as an alias for identifier
	Password   string `json:"password" binding:"required"`
}

func (a *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identifier := req.Identifier
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier is required"})
		return
	}

	tok, user, err := a.Auth.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "user": user})
}

func (a *API) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tok, err := a.Auth.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	// Delivery is out of band. Until a mailer is wired up the token is
	// logged so operators can relay it.
	log.Printf("[ForgotPassword] reset token for %s: %s", req.Email, tok)
	c.JSON(http.StatusOK, gin.H{"message": "password reset token issued"})
}

func (a *API) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.Auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

func (a *API) GoogleLogin(c *gin.Context) {
	var req struct {
		IDToken    string `json:"idToken"`
		Credential string `json:"credential"` // Google Identity Services field name
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	idToken := req.IDToken
	if idToken == "" {
		idToken = req.Credential
	}
	if idToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idToken is required"})
		return
	}

	tok, user, err := a.Auth.GoogleLogin(c.Request.Context(), idToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "user": user})
}

// GoogleAuthURL starts the redirect-based OAuth flow.
func (a *API) GoogleAuthURL(c *gin.Context) {
	if a.OAuth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	state := primitive.NewObjectID().Hex()
	c.JSON(http.StatusOK, gin.H{"url": a.OAuth.AuthURL(state)})
}

// GoogleCallback finishes the redirect-based OAuth flow.
func (a *API) GoogleCallback(c *gin.Context) {
	if a.OAuth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization code missing"})
		return
	}

	claims, err := a.OAuth.Exchange(c.Request.Context(), code)
	if err != nil {
		log.Printf("[GoogleCallback] exchange failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to exchange authorization code"})
		return
	}

	tok, user, err := a.Auth.LoginWithClaims(c.Request.Context(), claims)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "user": user})
}
