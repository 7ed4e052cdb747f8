package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"scribble/models"
)

// Mongo implements every store interface on top of a mongo database.
type Mongo struct {
	users  *mongo.Collection
	posts  *mongo.Collection
	resets *mongo.Collection
	saved  *mongo.Collection
	subs   *mongo.Collection
}

var (
	_ UserStore  = (*Mongo)(nil)
	_ PostStore  = (*Mongo)(nil)
	_ ResetStore = (*Mongo)(nil)
	_ SavedStore = (*Mongo)(nil)
	_ PushStore  = (*Mongo)(nil)
)

func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		users:  db.Collection("users"),
		posts:  db.Collection("posts"),
		resets: db.Collection("reset_tokens"),
		saved:  db.Collection("saved_posts"),
		subs:   db.Collection("push_subscriptions"),
	}
}

// EnsureIndexes creates the unique indexes the data model relies on.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
	})
	if err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}

	_, err = m.resets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "token", Value: 1}}, Options: unique,
	})
	if err != nil {
		return fmt.Errorf("reset token index: %w", err)
	}

	_, err = m.saved.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "postId", Value: 1}}, Options: unique,
	})
	if err != nil {
		return fmt.Errorf("saved post index: %w", err)
	}

	_, err = m.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "isDeleted", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("post index: %w", err)
	}
	return nil
}

// --- UserStore ---

func (m *Mongo) Insert(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	_, err := m.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *Mongo) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id})
}

func (m *Mongo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *Mongo) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"username": username})
}

func (m *Mongo) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := m.users.FindOne(ctx, filter).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *Mongo) List(ctx context.Context) ([]models.User, error) {
	cursor, err := m.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m *Mongo) Update(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	if upd.IsEmpty() {
		return m.ByID(ctx, id)
	}

	set := bson.M{}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.Email != nil {
		set["email"] = *upd.Email
	}
	if upd.PasswordHash != nil {
		set["passwordHash"] = *upd.PasswordHash
	}
	if upd.PicturePath != nil {
		set["picturePath"] = *upd.PicturePath
	}

	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u models.User
	err := m.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, after).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// --- PostStore ---

func (m *Mongo) InsertPost(ctx context.Context, p *models.Post) error {
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
	_, err := m.posts.InsertOne(ctx, p)
	return err
}

// hydrated pairs a post with the $lookup'd author document.
type hydrated struct {
	models.Post `bson:",inline"`
	AuthorDoc   *models.User `bson:"authorDoc"`
}

func hydrationStages() mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "users"},
			{Key: "localField", Value: "authorId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "authorDoc"},
		}}},
		bson.D{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$authorDoc"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}

func (m *Mongo) findPosts(ctx context.Context, match bson.M) ([]models.Post, error) {
	pipeline := append(mongo.Pipeline{bson.D{{Key: "$match", Value: match}}}, hydrationStages()...)

	cursor, err := m.posts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []hydrated
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	posts := make([]models.Post, len(rows))
	for i, row := range rows {
		p := row.Post
		if row.AuthorDoc != nil {
			p.Author = row.AuthorDoc.Author()
		}
		posts[i] = p
	}
	return posts, nil
}

func (m *Mongo) PostByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	posts, err := m.findPosts(ctx, bson.M{"_id": id, "isDeleted": false})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

func (m *Mongo) Feed(ctx context.Context) ([]models.Post, error) {
	return m.findPosts(ctx, bson.M{"isDeleted": false})
}

func (m *Mongo) ByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	return m.findPosts(ctx, bson.M{"authorId": authorID, "isDeleted": false})
}

func (m *Mongo) ToggleLike(ctx context.Context, postID primitive.ObjectID, userID string) (bool, error) {
	key := "likes." + userID

	// Each attempt is a single conditional update, so concurrent toggles by
	// different users can never clobber each other's entries. A retry only
	// happens when the same user's like flips between the two updates.
	for attempt := 0; attempt < 4; attempt++ {
		res, err := m.posts.UpdateOne(ctx,
			bson.M{"_id": postID, "isDeleted": false, key: bson.M{"$exists": true}},
			bson.M{"$unset": bson.M{key: ""}},
		)
		if err != nil {
			return false, err
		}
		if res.MatchedCount == 1 {
			return false, nil
		}

		res, err = m.posts.UpdateOne(ctx,
			bson.M{"_id": postID, "isDeleted": false, key: bson.M{"$exists": false}},
			bson.M{"$set": bson.M{key: true}},
		)
		if err != nil {
			return false, err
		}
		if res.MatchedCount == 1 {
			return true, nil
		}

		count, err := m.posts.CountDocuments(ctx, bson.M{"_id": postID, "isDeleted": false})
		if err != nil {
			return false, err
		}
		if count == 0 {
			return false, ErrNotFound
		}
	}
	return false, fmt.Errorf("toggle like on %s: too many contended retries", postID.Hex())
}

func (m *Mongo) PrependComment(ctx context.Context, postID primitive.ObjectID, c models.Comment) error {
	res, err := m.posts.UpdateOne(ctx,
		bson.M{"_id": postID, "isDeleted": false},
		bson.M{"$push": bson.M{"comments": bson.M{
			"$each":     []models.Comment{c},
			"$position": 0,
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) SoftDelete(ctx context.Context, postID primitive.ObjectID) error {
	res, err := m.posts.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$set": bson.M{"isDeleted": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// --- ResetStore ---

func (m *Mongo) SaveReset(ctx context.Context, t models.ResetToken) error {
	_, err := m.resets.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *Mongo) Consume(ctx context.Context, token string, now int64) (primitive.ObjectID, error) {
	var t models.ResetToken
	err := m.resets.FindOneAndDelete(ctx, bson.M{"token": token}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return primitive.NilObjectID, ErrNotFound
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	if now > t.ExpiresAt {
		return primitive.NilObjectID, ErrNotFound
	}
	return t.UserID, nil
}

// --- SavedStore ---

func (m *Mongo) SavePost(ctx context.Context, userID, postID primitive.ObjectID) error {
	_, err := m.saved.InsertOne(ctx, models.SavedPost{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		PostID:    postID,
		CreatedAt: time.Now().Unix(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *Mongo) RemoveSaved(ctx context.Context, userID, postID primitive.ObjectID) error {
	res, err := m.saved.DeleteOne(ctx, bson.M{"userId": userID, "postId": postID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) ListSaved(ctx context.Context, userID primitive.ObjectID) ([]models.SavedPost, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := m.saved.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	saved := []models.SavedPost{}
	if err := cursor.All(ctx, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// --- PushStore ---

func (m *Mongo) Upsert(ctx context.Context, sub models.PushSubscription) error {
	if sub.ID.IsZero() {
		sub.ID = primitive.NewObjectID()
	}
	_, err := m.subs.UpdateOne(ctx,
		bson.M{"userId": sub.UserID},
		bson.M{"$set": bson.M{"sub": sub.Sub}, "$setOnInsert": bson.M{"_id": sub.ID}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error) {
	cursor, err := m.subs.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	subs := []models.PushSubscription{}
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}
