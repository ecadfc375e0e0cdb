package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/techdiscoveria/discoveria/internal/domain/user"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	Email      string             `bson:"email"`
	Photo      string             `bson:"photo,omitempty"`
	Role       string             `bson:"role"`
	Membership string             `bson:"Membership"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d userDoc) toDomain() user.User {
	return user.User{
		ID:         d.ID.Hex(),
		Name:       d.Name,
		Email:      d.Email,
		Photo:      d.Photo,
		Role:       d.Role,
		Membership: d.Membership,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type UsersRepo struct {
	base
	coll *mongo.Collection
}

func NewUsersRepo(coll *mongo.Collection, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base: base{prom: prom}, coll: coll}
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var docs []userDoc

	err := r.observe("users.list", func() error {
		cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})

	if err != nil {
		return nil, err
	}

	out := make([]user.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var doc userDoc

	err := r.observe("users.get_by_email", func() error {
		return r.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	return doc.toDomain(), nil
}

// CreateIfAbsent upserts on email with $setOnInsert so an existing record is never touched.
func (r *UsersRepo) CreateIfAbsent(ctx context.Context, u user.User) (user.User, bool, error) {
	doc := userDoc{
		ID:         primitive.NewObjectID(),
		Name:       u.Name,
		Email:      u.Email,
		Photo:      u.Photo,
		Role:       u.Role,
		Membership: u.Membership,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}

	var res *mongo.UpdateResult
	err := r.observe("users.create_if_absent", func() error {
		var err error
		res, err = r.coll.UpdateOne(ctx,
			bson.D{{Key: "email", Value: u.Email}},
			bson.D{{Key: "$setOnInsert", Value: doc}},
			options.Update().SetUpsert(true),
		)
		return err
	})

	if err != nil {
		// two concurrent upserts on the same email: the unique index rejects the loser
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, false, nil
		}
		return user.User{}, false, err
	}

	if res.UpsertedCount == 0 {
		return user.User{}, false, nil
	}
	return doc.toDomain(), true, nil
}

func (r *UsersRepo) SetRole(ctx context.Context, id, role string) (repo.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repo.UpdateResult{Acknowledged: true}, nil
	}

	return r.set(ctx, "users.set_role", bson.D{{Key: "_id", Value: oid}}, "role", role)
}

func (r *UsersRepo) SetMembership(ctx context.Context, email, membership string) (repo.UpdateResult, error) {
	return r.set(ctx, "users.set_membership", bson.D{{Key: "email", Value: email}}, "Membership", membership)
}

func (r *UsersRepo) set(ctx context.Context, op string, filter bson.D, field, value string) (repo.UpdateResult, error) {
	// matching on the current value keeps modifiedCount honest when nothing changes
	var matched int64
	var res *mongo.UpdateResult

	err := r.observe(op, func() error {
		var err error
		matched, err = r.coll.CountDocuments(ctx, filter)
		if err != nil || matched == 0 {
			return err
		}

		res, err = r.coll.UpdateOne(ctx,
			append(filter, bson.E{Key: field, Value: bson.D{{Key: "$ne", Value: value}}}),
			bson.D{{Key: "$set", Value: bson.D{
				{Key: field, Value: value},
				{Key: "updatedAt", Value: time.Now().UTC()},
			}}},
		)
		return err
	})

	if err != nil {
		return repo.UpdateResult{}, err
	}

	out := repo.UpdateResult{Acknowledged: true, MatchedCount: matched}
	if res != nil {
		out.ModifiedCount = res.ModifiedCount
	}
	return out, nil
}

func (r *UsersRepo) EnsureAdmin(ctx context.Context, email, name string) error {
	now := time.Now().UTC()

	return r.observe("users.ensure_admin", func() error {
		_, err := r.coll.UpdateOne(ctx,
			bson.D{{Key: "email", Value: email}},
			bson.D{
				{Key: "$set", Value: bson.D{{Key: "role", Value: user.RoleAdmin}, {Key: "updatedAt", Value: now}}},
				{Key: "$setOnInsert", Value: bson.D{
					{Key: "name", Value: name},
					{Key: "Membership", Value: user.MembershipNone},
					{Key: "createdAt", Value: now},
				}},
			},
			options.Update().SetUpsert(true),
		)
		return err
	})
}
