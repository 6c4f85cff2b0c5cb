package mongostore

import (
	"context"
	"errors"

	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository stores users with their book list embedded.
type UserRepository struct {
	s    *Store
	coll *mongo.Collection
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) GetMany(ctx context.Context, ids []string) ([]types.User, error) {
	if len(ids) == 0 {
		return []types.User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *UserRepository) List(ctx context.Context, filter types.UserFilter) ([]types.User, error) {
	query := bson.M{}
	if filter.AccountType != "" {
		query["accountType"] = filter.AccountType
	}
	if filter.Username != "" {
		query["username"] = filter.Username
	}
	if filter.FamilyName != "" {
		query["familyName"] = filter.FamilyName
	}
	return r.find(ctx, query)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.ID == "" {
		user.ID = newID()
	}
	ts := r.s.now()
	user.CreatedAt = ts
	user.UpdatedAt = ts
	user.Books = []types.BookRef{}

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.User{}, store.ErrDuplicateEmail
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, patch types.UserPatch) (types.User, error) {
	set := bson.M{"updatedAt": r.s.now()}
	if patch.Username != nil {
		set["username"] = *patch.Username
	}
	if patch.FatherName != nil {
		set["fatherName"] = *patch.FatherName
	}
	if patch.FamilyName != nil {
		set["familyName"] = *patch.FamilyName
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.PhoneNumber != nil {
		set["phoneNumber"] = *patch.PhoneNumber
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.AccountType != nil {
		set["accountType"] = *patch.AccountType
	}

	var user types.User
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.User{}, store.ErrDuplicateEmail
		}
		return types.User{}, notFound(err, store.ErrUserNotFound)
	}
	return normalizeUser(user), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) (types.User, error) {
	var user types.User
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return types.User{}, notFound(err, store.ErrUserNotFound)
	}
	return normalizeUser(user), nil
}

func (r *UserRepository) ClearBookLists(ctx context.Context) (int64, error) {
	result, err := r.coll.UpdateMany(
		ctx,
		bson.M{"books.0": bson.M{"$exists": true}},
		bson.M{"$set": bson.M{"books": bson.A{}}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (types.User, error) {
	var user types.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		return types.User{}, notFound(err, store.ErrUserNotFound)
	}
	return normalizeUser(user), nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M) ([]types.User, error) {
	users := make([]types.User, 0)
	if err := findAll(ctx, r.coll, filter, &users, options.Find().SetSort(byCreation)); err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = normalizeUser(users[i])
	}
	return users, nil
}

func normalizeUser(u types.User) types.User {
	if u.Books == nil {
		u.Books = []types.BookRef{}
	}
	return u
}

// notFound maps mongo.ErrNoDocuments to sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sentinel
	}
	return err
}
