// Package handlers maps the HTTP surface onto the services.
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"scribble/identity"
	"scribble/middleware"
	"scribble/services"
	"scribble/store"
)

// API bundles the handler dependencies.
type API struct {
	Auth  *services.AuthService
	Posts *services.PostService
	Users *services.UserService

	OAuth         *identity.OAuthFlow // nil when Google OAuth is not configured
	Subs          store.PushStore
	PushPublicKey string
}

// respondError maps the service error taxonomy onto HTTP statuses:
// validation 400, auth 401, not-found 404, dependency 502.
func respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		log.Printf("[%s] unexpected error: %v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch svcErr.Kind {
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindAuth:
		status = http.StatusUnauthorized
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindDependency:
		status = http.StatusBadGateway
		log.Printf("[%s] dependency failure: %v", c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": svcErr.Message})
}

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(middleware.ContextUserID))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return primitive.NilObjectID, false
	}
	return id, true
}
