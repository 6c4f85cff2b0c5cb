package mongostore

import (
	"context"

	"github.com/talent-hunters/bookportal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CatalogRepository stores the class and subject lookup lists.
type CatalogRepository struct {
	classes  *mongo.Collection
	subjects *mongo.Collection
}

func (r *CatalogRepository) ListClasses(ctx context.Context, filter types.ClassFilter) ([]types.Class, error) {
	query := bson.M{}
	if filter.Grade != "" {
		query["grade"] = filter.Grade
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}

	classes := make([]types.Class, 0)
	opts := options.Find().SetSort(bson.D{{Key: "grade", Value: 1}, {Key: "_id", Value: 1}})
	if err := findAll(ctx, r.classes, query, &classes, opts); err != nil {
		return nil, err
	}
	return classes, nil
}

func (r *CatalogRepository) CreateClass(ctx context.Context, class types.Class) (types.Class, error) {
	if class.ID == "" {
		class.ID = newID()
	}
	if _, err := r.classes.InsertOne(ctx, class); err != nil {
		return types.Class{}, err
	}
	return class, nil
}

func (r *CatalogRepository) ListSubjects(ctx context.Context, subject string) ([]types.Subject, error) {
	query := bson.M{}
	if subject != "" {
		query["subject"] = subject
	}

	subjects := make([]types.Subject, 0)
	opts := options.Find().SetSort(bson.D{{Key: "subject", Value: 1}, {Key: "_id", Value: 1}})
	if err := findAll(ctx, r.subjects, query, &subjects, opts); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *CatalogRepository) CreateSubject(ctx context.Context, subject types.Subject) (types.Subject, error) {
	if subject.ID == "" {
		subject.ID = newID()
	}
	if _, err := r.subjects.InsertOne(ctx, subject); err != nil {
		return types.Subject{}, err
	}
	return subject, nil
}
