package mongostore

import (
	"context"
	"regexp"

	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BookRepository stores catalog books.
type BookRepository struct {
	s    *Store
	coll *mongo.Collection
}

func (r *BookRepository) GetByID(ctx context.Context, id string) (types.Book, error) {
	var book types.Book
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&book); err != nil {
		return types.Book{}, notFound(err, store.ErrBookNotFound)
	}
	return book, nil
}

func (r *BookRepository) GetMany(ctx context.Context, ids []string) ([]types.Book, error) {
	books := make([]types.Book, 0, len(ids))
	if len(ids) == 0 {
		return books, nil
	}
	err := findAll(ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}}, &books, options.Find().SetSort(byCreation))
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (r *BookRepository) List(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	query := bson.M{}
	if filter.Grade != "" {
		query["grade"] = filter.Grade
	}
	if filter.Subject != "" {
		query["subject"] = filter.Subject
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Author != "" {
		query["author"] = filter.Author
	}
	switch {
	case filter.ExactName != "" && filter.Name != "":
		query["$and"] = bson.A{
			bson.M{"name": filter.ExactName},
			bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(filter.Name), Options: "i"}},
		}
	case filter.ExactName != "":
		query["name"] = filter.ExactName
	case filter.Name != "":
		query["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Name), Options: "i"}
	}

	opts := options.Find().SetSort(byCreation)
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	books := make([]types.Book, 0)
	if err := findAll(ctx, r.coll, query, &books, opts); err != nil {
		return nil, err
	}
	return books, nil
}

func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	if book.ID == "" {
		book.ID = newID()
	}
	ts := r.s.now()
	book.CreatedAt = ts
	book.UpdatedAt = ts

	if _, err := r.coll.InsertOne(ctx, book); err != nil {
		return types.Book{}, err
	}
	return book, nil
}

func (r *BookRepository) Update(ctx context.Context, id string, patch types.BookPatch) (types.Book, error) {
	set := bson.M{"updatedAt": r.s.now()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Subject != nil {
		set["subject"] = *patch.Subject
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.Grade != nil {
		set["grade"] = *patch.Grade
	}
	if patch.Count != nil {
		set["count"] = *patch.Count
	}
	if patch.Author != nil {
		set["author"] = *patch.Author
	}
	if patch.Img != nil {
		set["img"] = *patch.Img
	}

	var book types.Book
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&book)
	if err != nil {
		return types.Book{}, notFound(err, store.ErrBookNotFound)
	}
	return book, nil
}

func (r *BookRepository) Delete(ctx context.Context, id string) (types.Book, error) {
	var book types.Book
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&book); err != nil {
		return types.Book{}, notFound(err, store.ErrBookNotFound)
	}
	return book, nil
}
