package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"scribble/models"
	"scribble/push"
	"scribble/store"
	"scribble/uploads"
)

// PostService creates, lists and mutates posts, and notifies authors about
// likes and comments on their posts.
type PostService struct {
	posts    store.PostStore
	saved    store.SavedStore
	subs     store.PushStore
	uploader uploads.Uploader
	pusher   push.Sender
}

func NewPostService(posts store.PostStore, saved store.SavedStore, subs store.PushStore, uploader uploads.Uploader, pusher push.Sender) *PostService {
	return &PostService{
		posts:    posts,
		saved:    saved,
		subs:     subs,
		uploader: uploader,
		pusher:   pusher,
	}
}

type CreatePostInput struct {
	Content     string
	Explanation string
	Image       io.Reader // optional
}

func (s *PostService) Create(ctx context.Context, authorID primitive.ObjectID, in CreatePostInput) (*models.Post, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, validationErr("content is required")
	}

	post := &models.Post{
		AuthorID:    authorID,
		Content:     in.Content,
		Explanation: strings.TrimSpace(in.Explanation),
		Likes:       map[string]bool{},
		Comments:    []models.Comment{},
	}

	if in.Image != nil {
		if s.uploader == nil {
			return nil, dependencyErr("image uploads not configured", nil)
		}
		res, err := s.uploader.Upload(ctx, in.Image, "scribble/posts")
		if err != nil {
			return nil, dependencyErr("upload image", err)
		}
		post.ImageURL = res.URL
		post.ImagePath = res.Path
	}

	if err := s.posts.InsertPost(ctx, post); err != nil {
		return nil, dependencyErr("create post", err)
	}
	return s.hydrated(ctx, post.ID)
}

func (s *PostService) Feed(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.Feed(ctx)
	if err != nil {
		return nil, dependencyErr("fetch feed", err)
	}
	return posts, nil
}

func (s *PostService) ByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	posts, err := s.posts.ByAuthor(ctx, authorID)
	if err != nil {
		return nil, dependencyErr("fetch posts", err)
	}
	return posts, nil
}

// ToggleLike flips userID's like on the post and returns the updated,
// hydrated post.
func (s *PostService) ToggleLike(ctx context.Context, postID primitive.ObjectID, userID string) (*models.Post, error) {
	liked, err := s.posts.ToggleLike(ctx, postID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("post not found")
	}
	if err != nil {
		return nil, dependencyErr("toggle like", err)
	}

	post, err := s.hydrated(ctx, postID)
	if err != nil {
		return nil, err
	}
	if liked {
		s.notify(ctx, post, userID, "liked your post")
	}
	return post, nil
}

func (s *PostService) Comment(ctx context.Context, postID primitive.ObjectID, authorID, text string) (*models.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationErr("comment text is required")
	}

	err := s.posts.PrependComment(ctx, postID, models.Comment{Text: text, AuthorID: authorID})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("post not found")
	}
	if err != nil {
		return nil, dependencyErr("add comment", err)
	}

	post, err := s.hydrated(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, post, authorID, "commented on your post")
	return post, nil
}

// Delete soft-deletes the post and returns the refreshed feed.
func (s *PostService) Delete(ctx context.Context, postID primitive.ObjectID) ([]models.Post, error) {
	err := s.posts.SoftDelete(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("post not found")
	}
	if err != nil {
		return nil, dependencyErr("delete post", err)
	}
	return s.Feed(ctx)
}

func (s *PostService) Save(ctx context.Context, userID, postID primitive.ObjectID) error {
	if _, err := s.hydrated(ctx, postID); err != nil {
		return err
	}
	err := s.saved.SavePost(ctx, userID, postID)
	if errors.Is(err, store.ErrDuplicate) {
		return validationErr("post already saved")
	}
	if err != nil {
		return dependencyErr("save post", err)
	}
	return nil
}

func (s *PostService) Unsave(ctx context.Context, userID, postID primitive.ObjectID) error {
	err := s.saved.RemoveSaved(ctx, userID, postID)
	if errors.Is(err, store.ErrNotFound) {
		return notFoundErr("saved post not found")
	}
	if err != nil {
		return dependencyErr("remove saved post", err)
	}
	return nil
}

// Saved returns the user's bookmarks, hydrated, newest bookmark first.
// Posts deleted since being saved are skipped.
func (s *PostService) Saved(ctx context.Context, userID primitive.ObjectID) ([]models.Post, error) {
	saved, err := s.saved.ListSaved(ctx, userID)
	if err != nil {
		return nil, dependencyErr("list saved posts", err)
	}

	posts := []models.Post{}
	for _, sp := range saved {
		post, err := s.posts.PostByID(ctx, sp.PostID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, dependencyErr("fetch saved post", err)
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

func (s *PostService) hydrated(ctx context.Context, postID primitive.ObjectID) (*models.Post, error) {
	post, err := s.posts.PostByID(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundErr("post not found")
	}
	if err != nil {
		return nil, dependencyErr("fetch post", err)
	}
	return post, nil
}

// notify sends a best-effort web push to the post's author. Failures are
// logged, never surfaced.
func (s *PostService) notify(ctx context.Context, post *models.Post, actorID, action string) {
	if s.pusher == nil || s.subs == nil {
		return
	}
	if actorID == post.AuthorID.Hex() {
		return
	}

	subs, err := s.subs.ByUser(ctx, post.AuthorID)
	if err != nil {
		log.Printf("[notify] list subscriptions: %v", err)
		return
	}

	payload, err := json.Marshal(map[string]string{
		"title":  "Scribble",
		"body":   "Someone " + action,
		"postId": post.ID.Hex(),
	})
	if err != nil {
		return
	}

	for _, sub := range subs {
		if err := s.pusher.Send(ctx, sub.Sub, payload); err != nil {
			log.Printf("[notify] push to %s: %v", post.AuthorID.Hex(), err)
		}
	}
}
