package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/josiahbryan/userhub/internal/domain/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// DBObserver times logical store operations; satisfied by observability.Prom.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type UsersRepo struct {
	col     *mongo.Collection
	metrics DBObserver
}

func NewUsersRepo(db *mongo.Database, metrics DBObserver) *UsersRepo {
	return &UsersRepo{
		col:     db.Collection(usersCollection),
		metrics: metrics,
	}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.metrics == nil {
		return fn()
	}

	return r.metrics.ObserveDB(op, fn)
}

// EnsureIndexes creates the unique email index. The index is what actually
// enforces one user per email; races between concurrent creates resolve here.
func (r *UsersRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return err
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	err := r.observe("users.create", func() error {
		_, err := r.col.InsertOne(ctx, u)
		return err
	})

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		return r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// List returns one page of users plus the unpaged total. Email filters by
// case-insensitive substring, role by equality; page is 1-based.
func (r *UsersRepo) List(ctx context.Context, filter user.ListUsersFilter, page, limit int) ([]user.User, int, error) {
	query := bson.M{}

	if filter.Email != nil && *filter.Email != "" {
		query["email"] = primitive.Regex{Pattern: regexp.QuoteMeta(*filter.Email), Options: "i"}
	}

	if filter.Role != nil && *filter.Role != "" {
		query["role"] = *filter.Role
	}

	var total int64

	err := r.observe("users.count", func() error {
		var err error
		total, err = r.col.CountDocuments(ctx, query)
		return err
	})

	if err != nil {
		return nil, 0, err
	}

	skip := int64(page-1) * int64(limit)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(int64(limit))

	users := []user.User{}

	err = r.observe("users.list", func() error {
		cur, err := r.col.Find(ctx, query, opts)
		if err != nil {
			return err
		}

		defer cur.Close(ctx)

		return cur.All(ctx, &users)
	})

	if err != nil {
		return nil, 0, err
	}

	return users, int(total), nil
}

// Update applies the prepared fields to one document and returns the updated
// record. Missing document maps to ErrNotFound, a duplicate email to
// ErrEmailTaken.
func (r *UsersRepo) Update(ctx context.Context, id string, fields user.UpdateFields) (user.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}

	if fields.Email != nil {
		set["email"] = *fields.Email
	}

	if fields.PasswordHash != nil {
		set["password"] = *fields.PasswordHash
	}

	if fields.Items != nil {
		set["items"] = *fields.Items
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u user.User

	err := r.observe("users.update", func() error {
		return r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	})

	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return user.User{}, user.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// Delete removes the matching document. Zero matches is not an error; the
// count lets callers log it.
func (r *UsersRepo) Delete(ctx context.Context, id string) (int64, error) {
	var deleted int64

	err := r.observe("users.delete", func() error {
		res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}

		deleted = res.DeletedCount
		return nil
	})

	if err != nil {
		return 0, err
	}

	return deleted, nil
}
