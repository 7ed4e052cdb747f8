package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"scribble/services"
)

func (a *API) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user, err := a.Users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *API) ListUsers(c *gin.Context) {
	users, err := a.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type updateProfileRequest struct {
	Username        string `json:"username" form:"username"`
	Name            string `json:"name" form:"name"`
	Bio             string `json:"bio" form:"bio"`
	Email           string `json:"email" form:"email"`
	OldPassword     string `json:"oldPassword" form:"oldPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

// UpdateUser applies a partial profile update. Users may only update their
// own profile. Multipart requests may carry a "picture" file.
func (a *API) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	authID, ok := currentUserID(c)
	if !ok {
		return
	}
	if id != authID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot update another user's profile"})
		return
	}

	var req updateProfileRequest
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

	user, err := a.Users.UpdateProfile(c.Request.Context(), id, services.UpdateProfileInput{
		Username:        req.Username,
		Name:            req.Name,
		Bio:             req.Bio,
		Email:           req.Email,
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
		Picture:         picture,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
