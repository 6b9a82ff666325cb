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

type blogDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Title     string             `bson:"title"`
	Slug      string             `bson:"slug"`
	Content   string             `bson:"content"`
	AuthorID  string             `bson:"author_id"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d *blogDocument) toModel() *model.Blog {
	return &model.Blog{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Slug:      d.Slug,
		Content:   d.Content,
		AuthorID:  d.AuthorID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type mongoBlogRepository struct {
	coll *mongo.Collection
}

func NewMongoBlogRepository(db *mongo.Database) BlogRepository {
	return &mongoBlogRepository{coll: db.Collection(blogsCollection)}
}

func (r *mongoBlogRepository) Create(ctx context.Context, blog *model.Blog) error {
	doc := blogDocument{
		ID:        primitive.NewObjectID(),
		Title:     blog.Title,
		Slug:      blog.Slug,
		Content:   blog.Content,
		AuthorID:  blog.AuthorID,
		CreatedAt: blog.CreatedAt,
		UpdatedAt: blog.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongoBlogRepository.Create: %w: %w", common.ErrPersistence, err)
	}
	blog.ID = doc.ID.Hex()
	return nil
}

func (r *mongoBlogRepository) FindByID(ctx context.Context, id string) (*model.Blog, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc blogDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoBlogRepository.FindByID: %w: %w", common.ErrPersistence, err)
	}
	return doc.toModel(), nil
}

func (r *mongoBlogRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Blog, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []model.Blog{}, nil
	}

	found, err := r.find(ctx, "FindByIDs", bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Blog, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	ordered := make([]model.Blog, 0, len(found))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (r *mongoBlogRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Blog, error) {
	return r.find(ctx, "ListByAuthor", bson.M{"author_id": authorID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *mongoBlogRepository) find(ctx context.Context, op string, filter bson.M, opts ...*options.FindOptions) ([]model.Blog, error) {
	cur, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("mongoBlogRepository.%s: %w: %w", op, common.ErrPersistence, err)
	}
	var docs []blogDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongoBlogRepository.%s: %w: %w", op, common.ErrPersistence, err)
	}
	blogs := make([]model.Blog, 0, len(docs))
	for i := range docs {
		blogs = append(blogs, *docs[i].toModel())
	}
	return blogs, nil
}

func (r *mongoBlogRepository) Update(ctx context.Context, id string, patch model.BlogPatch, updatedAt time.Time) (*model.Blog, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updated_at": updatedAt}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Slug != nil {
		set["slug"] = *patch.Slug
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}

	var doc blogDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("mongoBlogRepository.Update: %w: %w", common.ErrPersistence, err)
	}
	return doc.toModel(), nil
}

func (r *mongoBlogRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongoBlogRepository.Delete: %w: %w", common.ErrPersistence, err)
	}
	if res.DeletedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *mongoBlogRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"author_id": authorID})
	if err != nil {
		return 0, fmt.Errorf("mongoBlogRepository.DeleteByAuthor: %w: %w", common.ErrPersistence, err)
	}
	return res.DeletedCount, nil
}
