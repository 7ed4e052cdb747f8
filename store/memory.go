package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"scribble/models"
)

// Memory is an in-memory store used by tests and local development.
type Memory struct {
	mu     sync.Mutex
	users  []*models.User
	posts  []*memPost
	resets map[string]models.ResetToken
	saved  []models.SavedPost
	subs   map[primitive.ObjectID]models.PushSubscription

	seq int64
}

type memPost struct {
	post *models.Post
	seq  int64
}

var (
	_ UserStore  = (*Memory)(nil)
	_ PostStore  = (*Memory)(nil)
	_ ResetStore = (*Memory)(nil)
	_ SavedStore = (*Memory)(nil)
	_ PushStore  = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		resets: make(map[string]models.ResetToken),
		subs:   make(map[primitive.ObjectID]models.PushSubscription),
	}
}

// --- UserStore ---

func (m *Memory) Insert(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	clone := *u
	m.users = append(m.users, &clone)
	return nil
}

func (m *Memory) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findUser(func(u *models.User) bool { return u.ID == id })
}

func (m *Memory) ByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findUser(func(u *models.User) bool { return u.Email == email })
}

func (m *Memory) ByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findUser(func(u *models.User) bool { return u.Username == username })
}

func (m *Memory) findUser(match func(*models.User) bool) (*models.User, error) {
	for _, u := range m.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) List(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt > users[j].CreatedAt })
	return users, nil
}

func (m *Memory) Update(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var target *models.User
	for _, u := range m.users {
		if u.ID == id {
			target = u
			break
		}
	}
	if target == nil {
		return nil, ErrNotFound
	}

	for _, other := range m.users {
		if other.ID == id {
			continue
		}
		if upd.Username != nil && other.Username == *upd.Username {
			return nil, ErrDuplicate
		}
		if upd.Email != nil && other.Email == *upd.Email {
			return nil, ErrDuplicate
		}
	}

	if upd.Username != nil {
		target.Username = *upd.Username
	}
	if upd.Name != nil {
		target.Name = *upd.Name
	}
	if upd.Bio != nil {
		target.Bio = *upd.Bio
	}
	if upd.Email != nil {
		target.Email = *upd.Email
	}
	if upd.PasswordHash != nil {
		hash := *upd.PasswordHash
		target.PasswordHash = &hash
	}
	if upd.PicturePath != nil {
		target.PicturePath = *upd.PicturePath
	}

	clone := *target
	return &clone, nil
}

// --- PostStore ---

func (m *Memory) InsertPost(ctx context.Context, p *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.CreatedAt = time.Now().Unix()
	if p.Likes == nil {
		p.Likes = map[string]bool{}
	}
	if p.Comments == nil {
		p.Comments = []models.Comment{}
	}

	m.seq++
	clone := clonePost(p)
	m.posts = append(m.posts, &memPost{post: clone, seq: m.seq})
	return nil
}

func clonePost(p *models.Post) *models.Post {
	clone := *p
	clone.Likes = make(map[string]bool, len(p.Likes))
	for k, v := range p.Likes {
		clone.Likes[k] = v
	}
	clone.Comments = append([]models.Comment{}, p.Comments...)
	return &clone
}

func (m *Memory) hydrate(p *models.Post) models.Post {
	out := *clonePost(p)
	for _, u := range m.users {
		if u.ID == p.AuthorID {
			out.Author = u.Author()
			break
		}
	}
	return out
}

func (m *Memory) PostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mp := range m.posts {
		if mp.post.ID == id && !mp.post.IsDeleted {
			out := m.hydrate(mp.post)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Feed(ctx context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectPosts(func(p *models.Post) bool { return true }), nil
}

func (m *Memory) ByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectPosts(func(p *models.Post) bool { return p.AuthorID == authorID }), nil
}

func (m *Memory) selectPosts(match func(*models.Post) bool) []models.Post {
	matched := []*memPost{}
	for _, mp := range m.posts {
		if !mp.post.IsDeleted && match(mp.post) {
			matched = append(matched, mp)
		}
	}
	// Newest first; ties on createdAt broken by insertion order, newest first.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].post.CreatedAt != matched[j].post.CreatedAt {
			return matched[i].post.CreatedAt > matched[j].post.CreatedAt
		}
		return matched[i].seq > matched[j].seq
	})

	out := make([]models.Post, len(matched))
	for i, mp := range matched {
		out[i] = m.hydrate(mp.post)
	}
	return out
}

func (m *Memory) ToggleLike(ctx context.Context, postID primitive.ObjectID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mp := range m.posts {
		if mp.post.ID != postID || mp.post.IsDeleted {
			continue
		}
		if mp.post.Likes[userID] {
			delete(mp.post.Likes, userID)
			return false, nil
		}
		mp.post.Likes[userID] = true
		return true, nil
	}
	return false, ErrNotFound
}

func (m *Memory) PrependComment(ctx context.Context, postID primitive.ObjectID, c models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mp := range m.posts {
		if mp.post.ID == postID && !mp.post.IsDeleted {
			mp.post.Comments = append([]models.Comment{c}, mp.post.Comments...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) SoftDelete(ctx context.Context, postID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, mp := range m.posts {
		if mp.post.ID == postID {
			mp.post.IsDeleted = true
			return nil
		}
	}
	return ErrNotFound
}

// --- ResetStore ---

func (m *Memory) SaveReset(ctx context.Context, t models.ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.resets[t.Token]; ok {
		return ErrDuplicate
	}
	m.resets[t.Token] = t
	return nil
}

func (m *Memory) Consume(ctx context.Context, token string, now int64) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.resets[token]
	if !ok {
		return primitive.NilObjectID, ErrNotFound
	}
	delete(m.resets, token)
	if now > t.ExpiresAt {
		return primitive.NilObjectID, ErrNotFound
	}
	return t.UserID, nil
}

// --- SavedStore ---

func (m *Memory) SavePost(ctx context.Context, userID, postID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.saved {
		if s.UserID == userID && s.PostID == postID {
			return ErrDuplicate
		}
	}
	m.saved = append(m.saved, models.SavedPost{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		PostID:    postID,
		CreatedAt: time.Now().Unix(),
	})
	return nil
}

func (m *Memory) RemoveSaved(ctx context.Context, userID, postID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.saved {
		if s.UserID == userID && s.PostID == postID {
			m.saved = append(m.saved[:i], m.saved[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListSaved(ctx context.Context, userID primitive.ObjectID) ([]models.SavedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.SavedPost{}
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].UserID == userID {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}

// --- PushStore ---

func (m *Memory) Upsert(ctx context.Context, sub models.PushSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	m.subs[sub.UserID] = sub
	return nil
}

func (m *Memory) ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub, ok := m.subs[userID]; ok {
		return []models.PushSubscription{sub}, nil
	}
	return []models.PushSubscription{}, nil
}
