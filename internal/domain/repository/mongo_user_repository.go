package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blog_api/internal/common"
	"blog_api/internal/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	blogsCollection = "blogs"
)

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	FirstName string             `bson:"first_name"`
	LastName  string             `bson:"last_name"`
	Address   string             `bson:"address"`
	Blogs     []string           `bson:"blogs"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d *userDocument) toModel() *model.User {
	blogs := d.Blogs
	if blogs == nil {
		blogs = []string{}
	}
	return &model.User{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		HashedPassword: d.Password,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Address:        d.Address,
		Blogs:          blogs,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{coll: db.Collection(usersCollection)}
}

// EnsureMongoIndexes declares the unique email index and the author lookup
// index. Safe to call on every start.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("create users.email index: %w", err)
	}
	_, err = db.Collection(blogsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "author_id", Value: 1}},
		Options: options.Index().SetName("author_id"),
	})
	if err != nil {
		return fmt.Errorf("create blogs.author_id index: %w", err)
	}
	return nil
}

// objectID parses a hex id; a malformed id can never match a document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.ErrNotFound
	}
	return oid, nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.Blogs == nil {
		user.Blogs = []string{}
	}
	doc := userDocument{
		ID:        primitive.NewObjectID(),
		Email:     user.Email,
		Password:  user.HashedPassword,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Address:   user.Address,
		Blogs:     user.Blogs,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errDuplicateEmail
		}
		return fmt.Errorf("mongoUserRepository.Create: %w: %w", common.ErrPersistence, err)
	}
	user.ID = doc.ID.Hex()
	return nil
}

func (r *mongoUserRepository) findOne(ctx context.Context, op string, filter bson.M) (*model.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoUserRepository.%s: %w: %w", op, common.ErrPersistence, err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", bson.M{"email": email})
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, "FindByID", bson.M{"_id": oid})
}

func (r *mongoUserRepository) List(ctx context.Context) ([]model.User, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongoUserRepository.List: %w: %w", common.ErrPersistence, err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongoUserRepository.List: %w: %w", common.ErrPersistence, err)
	}
	users := make([]model.User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toModel())
	}
	return users, nil
}

func (r *mongoUserRepository) Update(ctx context.Context, id string, patch model.UserPatch, updatedAt time.Time) (*model.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updated_at": updatedAt}
	if patch.FirstName != nil {
		set["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		set["last_name"] = *patch.LastName
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}

	var doc userDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoUserRepository.Update: %w: %w", common.ErrPersistence, err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongoUserRepository.Delete: %w: %w", common.ErrPersistence, err)
	}
	if res.DeletedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) PushBlog(ctx context.Context, userID, blogID string) error {
	return r.updateBlogs(ctx, "PushBlog", userID, bson.M{"$push": bson.M{"blogs": blogID}})
}

func (r *mongoUserRepository) PullBlog(ctx context.Context, userID, blogID string) error {
	return r.updateBlogs(ctx, "PullBlog", userID, bson.M{"$pull": bson.M{"blogs": blogID}})
}

func (r *mongoUserRepository) updateBlogs(ctx context.Context, op, userID string, update bson.M) error {
	oid, err := objectID(userID)
	if err != nil {
		return err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("mongoUserRepository.%s: %w: %w", op, common.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}
