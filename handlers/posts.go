package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"scribble/middleware"
	"scribble/services"
)

// CreatePost accepts multipart form data: content, optional explanation,
// optional image file. Plain JSON works for posts without an image.
func (a *API) CreatePost(c *gin.Context) {
	authorID, ok := currentUserID(c)
	if !ok {
		return
	}

	var in services.CreatePostInput
	var image io.Reader

	if c.ContentType() == "application/json" {
		var req struct {
			Content     string `json:"content" binding:"required"`
			Explanation string `json:"explanation"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in.Content = req.Content
		in.Explanation = req.Explanation
	} else {
		in.Content = c.PostForm("content")
		in.Explanation = c.PostForm("explanation")
		if file, _, err := c.Request.FormFile("image"); err == nil {
			defer file.Close()
			image = file
		}
	}
	in.Image = image

	post, err := a.Posts.Create(c.Request.Context(), authorID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (a *API) GetFeed(c *gin.Context) {
	posts, err := a.Posts.Feed(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetUserPosts lists one author's posts; :id is the author id.
func (a *API) GetUserPosts(c *gin.Context) {
	authorID, ok := pathID(c)
	if !ok {
		return
	}
	posts, err := a.Posts.ByAuthor(c.Request.Context(), authorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (a *API) LikePost(c *gin.Context) {
	postID, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.UserID == "" {
		req.UserID = c.GetString(middleware.ContextUserID)
	}

	post, err := a.Posts.ToggleLike(c.Request.Context(), postID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (a *API) CommentPost(c *gin.Context) {
	postID, ok := pathID(c)
	if !ok {
		return
	}

	var req struct {
		Comment string `json:"comment" binding:"required"`
		UserID  string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetString(middleware.ContextUserID)
	}

	post, err := a.Posts.Comment(c.Request.Context(), postID, req.UserID, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost soft-deletes and returns the refreshed feed.
func (a *API) DeletePost(c *gin.Context) {
	postID, ok := pathID(c)
	if !ok {
		return
	}
	posts, err := a.Posts.Delete(c.Request.Context(), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (a *API) SavePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.Posts.Save(c.Request.Context(), userID, postID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "post saved"})
}

func (a *API) UnsavePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	postID, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.Posts.Unsave(c.Request.Context(), userID, postID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post unsaved"})
}

func (a *API) GetSavedPosts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	posts, err := a.Posts.Saved(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}
