package mongostore

import (
	"context"

	"github.com/talent-hunters/bookportal/internal/store"
	"github.com/talent-hunters/bookportal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LedgerRepository stores the ownership logs, one collection per log.
type LedgerRepository struct {
	s *Store
}

func (r *LedgerRepository) collection(name string) *mongo.Collection {
	return r.s.db.Collection(name)
}

// RecordOrder pushes the book onto the user's list and inserts the order
// entry in one transaction.
func (r *LedgerRepository) RecordOrder(ctx context.Context, order types.OrderedBook, opts types.OrderOptions) (types.User, error) {
	if order.ID == "" {
		order.ID = newID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.s.now()
	}

	session, err := r.s.client.StartSession()
	if err != nil {
		return types.User{}, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		if opts.RequireStock {
			if err := r.checkStock(sc, order.BookID); err != nil {
				return nil, err
			}
		}

		var user types.User
		err := r.collection(usersCollection).FindOneAndUpdate(
			sc,
			bson.M{"_id": order.UserID},
			bson.M{
				"$push": bson.M{"books": types.BookRef{BookID: order.BookID}},
				"$set":  bson.M{"updatedAt": order.CreatedAt},
			},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&user)
		if err != nil {
			return nil, notFound(err, store.ErrUserNotFound)
		}

		if _, err := r.collection(ordersCollection).InsertOne(sc, order); err != nil {
			return nil, err
		}
		return normalizeUser(user), nil
	})
	if err != nil {
		return types.User{}, err
	}
	return result.(types.User), nil
}

// checkStock fails unless the book has fewer orders than copies. Bumping
// orderSeq on the book makes concurrent strict orders for it conflict.
func (r *LedgerRepository) checkStock(sc mongo.SessionContext, bookID string) error {
	var book types.Book
	err := r.collection(booksCollection).FindOneAndUpdate(
		sc,
		bson.M{"_id": bookID},
		bson.M{"$inc": bson.M{"orderSeq": 1}},
	).Decode(&book)
	if err != nil {
		return notFound(err, store.ErrBookNotFound)
	}

	ordered, err := r.collection(ordersCollection).CountDocuments(sc, bson.M{"bookid": bookID})
	if err != nil {
		return err
	}
	if ordered >= int64(book.Count) {
		return store.ErrOutOfStock
	}
	return nil
}

func (r *LedgerRepository) AddSoldOut(ctx context.Context, entry types.SoldOutBook) (types.SoldOutBook, error) {
	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = r.s.now()
	if _, err := r.collection(soldOutCollection).InsertOne(ctx, entry); err != nil {
		return types.SoldOutBook{}, err
	}
	return entry, nil
}

func (r *LedgerRepository) AddRequest(ctx context.Context, entry types.RequestedBook) (types.RequestedBook, error) {
	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = r.s.now()
	if _, err := r.collection(requestsCollection).InsertOne(ctx, entry); err != nil {
		return types.RequestedBook{}, err
	}
	return entry, nil
}

func (r *LedgerRepository) AddDonation(ctx context.Context, entry types.DonatedBook) (types.DonatedBook, error) {
	if entry.ID == "" {
		entry.ID = newID()
	}
	entry.CreatedAt = r.s.now()
	if _, err := r.collection(donationsCollection).InsertOne(ctx, entry); err != nil {
		return types.DonatedBook{}, err
	}
	return entry, nil
}

func (r *LedgerRepository) ListOrders(ctx context.Context) ([]types.OrderedBook, error) {
	entries := make([]types.OrderedBook, 0)
	if err := findAll(ctx, r.collection(ordersCollection), bson.M{}, &entries, options.Find().SetSort(byCreation)); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerRepository) ListSoldOut(ctx context.Context) ([]types.SoldOutBook, error) {
	entries := make([]types.SoldOutBook, 0)
	if err := findAll(ctx, r.collection(soldOutCollection), bson.M{}, &entries, options.Find().SetSort(byCreation)); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerRepository) ListRequests(ctx context.Context) ([]types.RequestedBook, error) {
	entries := make([]types.RequestedBook, 0)
	if err := findAll(ctx, r.collection(requestsCollection), bson.M{}, &entries, options.Find().SetSort(byCreation)); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *LedgerRepository) ListDonations(ctx context.Context) ([]types.DonatedBook, error) {
	entries := make([]types.DonatedBook, 0)
	if err := findAll(ctx, r.collection(donationsCollection), bson.M{}, &entries, options.Find().SetSort(byCreation)); err != nil {
		return nil, err
	}
	return entries, nil
}
