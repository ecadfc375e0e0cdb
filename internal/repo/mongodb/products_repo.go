package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/techdiscoveria/discoveria/internal/domain/product"
	"github.com/techdiscoveria/discoveria/internal/observability"
	"github.com/techdiscoveria/discoveria/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Name         string             `bson:"productName"`
	Image        string             `bson:"productImage,omitempty"`
	Description  string             `bson:"description,omitempty"`
	Tags         []string           `bson:"tags"`
	ExternalLink string             `bson:"externalLink,omitempty"`
	OwnerName    string             `bson:"ownerName,omitempty"`
	OwnerImage   string             `bson:"ownerImage,omitempty"`
	OwnerEmail   string             `bson:"ownerEmail"`
	Category     string             `bson:"category,omitempty"`
	Status       string             `bson:"status"`
	Upvotes      int                `bson:"upvote"`
	Timestamp    time.Time          `bson:"timestamp"`
}

func newProductDoc(p product.Product) productDoc {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return productDoc{
		Name:         p.Name,
		Image:        p.Image,
		Description:  p.Description,
		Tags:         tags,
		ExternalLink: p.ExternalLink,
		OwnerName:    p.OwnerName,
		OwnerImage:   p.OwnerImage,
		OwnerEmail:   p.OwnerEmail,
		Category:     p.Category,
		Status:       string(p.Status),
		Upvotes:      p.Upvotes,
		Timestamp:    p.Timestamp,
	}
}

func (d productDoc) toDomain() product.Product {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	return product.Product{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Image:        d.Image,
		Description:  d.Description,
		Tags:         tags,
		ExternalLink: d.ExternalLink,
		OwnerName:    d.OwnerName,
		OwnerImage:   d.OwnerImage,
		OwnerEmail:   d.OwnerEmail,
		Category:     d.Category,
		Status:       product.Status(d.Status),
		Upvotes:      d.Upvotes,
		Timestamp:    d.Timestamp,
	}
}

// patchFields lists the $set pairs for the non-nil patch fields.
func patchFields(p product.Patch) bson.D {
	set := bson.D{}

	add := func(key string, v any) { set = append(set, bson.E{Key: key, Value: v}) }

	if p.Name != nil {
		add("productName", *p.Name)
	}
	if p.Image != nil {
		add("productImage", *p.Image)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Tags != nil {
		add("tags", *p.Tags)
	}
	if p.ExternalLink != nil {
		add("externalLink", *p.ExternalLink)
	}
	if p.OwnerName != nil {
		add("ownerName", *p.OwnerName)
	}
	if p.OwnerImage != nil {
		add("ownerImage", *p.OwnerImage)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Upvotes != nil {
		add("upvote", *p.Upvotes)
	}
	return set
}

var (
	recentSort  = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}}
	upvotesSort = bson.D{{Key: "upvote", Value: -1}, {Key: "timestamp", Value: -1}, {Key: "_id", Value: 1}}
	acceptedQ   = bson.D{{Key: "status", Value: string(product.StatusAccepted)}}
)

type ProductsRepo struct {
	base
	coll *mongo.Collection
}

func NewProductsRepo(coll *mongo.Collection, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{base: base{prom: prom}, coll: coll}
}

func (r *ProductsRepo) Create(ctx context.Context, p product.Product) (product.Product, error) {
	doc := newProductDoc(p)
	doc.ID = primitive.NewObjectID()

	err := r.observe("products.create", func() error {
		_, err := r.coll.InsertOne(ctx, doc)
		return err
	})

	if err != nil {
		return product.Product{}, err
	}
	return doc.toDomain(), nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return product.Product{}, product.ErrInvalidID
	}

	var doc productDoc
	err = r.observe("products.get_by_id", func() error {
		return r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}
	return doc.toDomain(), nil
}

func (r *ProductsRepo) find(ctx context.Context, op string, filter bson.D, opts *options.FindOptions) ([]product.Product, error) {
	var docs []productDoc

	err := r.observe(op, func() error {
		cur, err := r.coll.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})

	if err != nil {
		return nil, err
	}
	return toProducts(docs), nil
}

func toProducts(docs []productDoc) []product.Product {
	out := make([]product.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out
}

func (r *ProductsRepo) ListByOwner(ctx context.Context, email string) ([]product.Product, error) {
	return r.find(ctx, "products.list_by_owner",
		bson.D{{Key: "ownerEmail", Value: email}}, options.Find().SetSort(recentSort))
}

func (r *ProductsRepo) List(ctx context.Context, filter product.ListFilter) ([]product.Product, error) {
	if filter.Category != nil {
		return r.find(ctx, "products.list_by_category",
			bson.D{{Key: "category", Value: *filter.Category}}, options.Find().SetSort(recentSort))
	}

	pipeline := mongo.Pipeline{
		{{Key: "$addFields", Value: bson.D{
			{Key: "sortOrder", Value: bson.D{
				{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$status", string(product.StatusPending)}}},
					0,
					1,
				}},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "sortOrder", Value: 1},
			{Key: "timestamp", Value: -1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$project", Value: bson.D{{Key: "sortOrder", Value: 0}}}},
	}

	var docs []productDoc
	err := r.observe("products.list_pending_first", func() error {
		cur, err := r.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		return cur.All(ctx, &docs)
	})

	if err != nil {
		return nil, err
	}
	return toProducts(docs), nil
}

// Upsert applies patch to the product, creating it from onInsert when the id is unknown.
func (r *ProductsRepo) Upsert(ctx context.Context, id string, patch product.Patch, onInsert product.Product) (repo.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repo.UpdateResult{}, product.ErrInvalidID
	}

	set := patchFields(patch)

	// a field may not appear in both $set and $setOnInsert
	inSet := make(map[string]bool, len(set))
	for _, e := range set {
		inSet[e.Key] = true
	}

	raw, err := bson.Marshal(newProductDoc(onInsert))
	if err != nil {
		return repo.UpdateResult{}, err
	}
	var insertDoc bson.D
	if err := bson.Unmarshal(raw, &insertDoc); err != nil {
		return repo.UpdateResult{}, err
	}

	onInsertFields := bson.D{}
	for _, e := range insertDoc {
		if e.Key != "_id" && !inSet[e.Key] {
			onInsertFields = append(onInsertFields, e)
		}
	}

	update := bson.D{}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(onInsertFields) > 0 {
		update = append(update, bson.E{Key: "$setOnInsert", Value: onInsertFields})
	}

	var res *mongo.UpdateResult
	err = r.observe("products.upsert", func() error {
		var err error
		res, err = r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: oid}}, update, options.Update().SetUpsert(true))
		return err
	})

	if err != nil {
		return repo.UpdateResult{}, err
	}
	return updateResult(res), nil
}

func (r *ProductsRepo) Patch(ctx context.Context, id string, patch product.Patch) (repo.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repo.UpdateResult{}, product.ErrInvalidID
	}

	set := patchFields(patch)
	filter := bson.D{{Key: "_id", Value: oid}}

	var res *mongo.UpdateResult
	err = r.observe("products.patch", func() error {
		if len(set) == 0 {
			n, err := r.coll.CountDocuments(ctx, filter)
			res = &mongo.UpdateResult{MatchedCount: n}
			return err
		}

		var err error
		res, err = r.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}})
		return err
	})

	if err != nil {
		return repo.UpdateResult{}, err
	}
	return updateResult(res), nil
}

func (r *ProductsRepo) Delete(ctx context.Context, id string) (repo.DeleteResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repo.DeleteResult{}, product.ErrInvalidID
	}

	var res *mongo.DeleteResult
	err = r.observe("products.delete", func() error {
		var err error
		res, err = r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
		return err
	})

	if err != nil {
		return repo.DeleteResult{}, err
	}
	return repo.DeleteResult{Acknowledged: true, DeletedCount: res.DeletedCount}, nil
}

func (r *ProductsRepo) ListAcceptedPage(ctx context.Context, page, size int) ([]product.Product, error) {
	opts := options.Find().
		SetSort(recentSort).
		SetSkip(int64(page) * int64(size)).
		SetLimit(int64(size))

	return r.find(ctx, "products.list_accepted_page", acceptedQ, opts)
}

func (r *ProductsRepo) CountAccepted(ctx context.Context) (int64, error) {
	var n int64

	err := r.observe("products.count_accepted", func() error {
		var err error
		n, err = r.coll.CountDocuments(ctx, acceptedQ)
		return err
	})

	return n, err
}

func (r *ProductsRepo) ListAccepted(ctx context.Context, sort product.Sort, limit int) ([]product.Product, error) {
	order := recentSort
	if sort == product.SortUpvotes {
		order = upvotesSort
	}

	opts := options.Find().SetSort(order)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	return r.find(ctx, "products.list_accepted", acceptedQ, opts)
}
