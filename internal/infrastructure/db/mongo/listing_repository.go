package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartrent/rental-api/internal/core/domain"
	"github.com/smartrent/rental-api/internal/core/ports"
)

const collectionListings = "listings"

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(collectionListings)}
}

type mongoListing struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	City      string             `bson:"city"`
	District  string             `bson:"district"`
	Address   string             `bson:"address"`
	SizeM2    float64            `bson:"size_m2"`
	Rooms     int                `bson:"rooms"`
	Furnished bool               `bson:"furnished"`
	RentCold  float64            `bson:"rent_cold"`
	RentWarm  *float64           `bson:"rent_warm,omitempty"`
	Source    string             `bson:"source"`
	URL       string             `bson:"url,omitempty"`
	CreatedBy string             `bson:"created_by,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func toMongoListing(l *domain.Listing) mongoListing {
	return mongoListing{
		Title:     l.Title,
		City:      l.City,
		District:  l.District,
		Address:   l.Address,
		SizeM2:    l.SizeM2,
		Rooms:     l.Rooms,
		Furnished: l.Furnished,
		RentCold:  l.RentCold,
		RentWarm:  l.RentWarm,
		Source:    string(l.Source),
		URL:       l.URL,
		CreatedBy: l.CreatedBy,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func (m mongoListing) toDomain() *domain.Listing {
	return &domain.Listing{
		ID:        m.ID.Hex(),
		Title:     m.Title,
		City:      m.City,
		District:  m.District,
		Address:   m.Address,
		SizeM2:    m.SizeM2,
		Rooms:     m.Rooms,
		Furnished: m.Furnished,
		RentCold:  m.RentCold,
		RentWarm:  m.RentWarm,
		Source:    domain.ListingSource(m.Source),
		URL:       m.URL,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// Create inserts a listing and sets its ID.
func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoListing(l)
	doc.ID = primitive.NewObjectID()

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateListing
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	l.ID = doc.ID.Hex()
	return nil
}

// InsertMany writes listings in a single unordered batch. Duplicate-key
// failures are counted, not returned; any other write failure is an error.
func (r *ListingRepository) InsertMany(ctx context.Context, ls []*domain.Listing) (ports.InsertManyResult, error) {
	if len(ls) == 0 {
		return ports.InsertManyResult{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs := make([]interface{}, len(ls))
	for i, l := range ls {
		doc := toMongoListing(l)
		doc.ID = primitive.NewObjectID()
		docs[i] = doc
	}

	_, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		for i, l := range ls {
			l.ID = docs[i].(mongoListing).ID.Hex()
		}
		return ports.InsertManyResult{Inserted: len(ls)}, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return ports.InsertManyResult{}, fmt.Errorf("insert listings: %w", err)
	}

	wes := make([]mongo.WriteError, len(bwe.WriteErrors))
	for i, e := range bwe.WriteErrors {
		wes[i] = e.WriteError
	}
	dups, err := duplicateRows(wes)
	if err != nil {
		return ports.InsertManyResult{}, err
	}
	for i, l := range ls {
		if !dups[i] {
			l.ID = docs[i].(mongoListing).ID.Hex()
		}
	}
	return ports.InsertManyResult{Inserted: len(ls) - len(dups), Duplicates: len(dups)}, nil
}

// duplicateRows returns the indexes of rows rejected for a duplicate key.
// Any other write error fails the whole insert.
func duplicateRows(wes []mongo.WriteError) (map[int]bool, error) {
	dups := make(map[int]bool, len(wes))
	for _, we := range wes {
		if !mongo.IsDuplicateKeyError(we) {
			return nil, fmt.Errorf("insert listings: row %d: %w", we.Index, we)
		}
		dups[we.Index] = true
	}
	return dups, nil
}

// Find returns listings matching f, newest first, at most limit items.
func (r *ListingRepository) Find(ctx context.Context, f ports.ListingFilter, limit int) ([]*domain.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, buildListingFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoListing
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}

	out := make([]*domain.Listing, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// FindByID returns domain.ErrListingNotFound for unknown and malformed ids alike.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoListing
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrListingNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes the listing queries rely on. The unique
// url index only covers documents that carry a url; empty urls are omitted
// from the document on write.
func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "city", Value: 1}}},
		{Keys: bson.D{
			{Key: "city", Value: 1},
			{Key: "district", Value: 1},
			{Key: "rent_cold", Value: 1},
			{Key: "size_m2", Value: 1},
		}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{
			Keys: bson.D{{Key: "url", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"url": bson.M{"$type": "string"}}),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// buildListingFilter translates f into a Mongo query. Absent fields add no
// constraint; present fields are combined with AND.
func buildListingFilter(f ports.ListingFilter) bson.M {
	filter := bson.M{}

	if f.City != "" {
		filter["city"] = f.City
	}
	if rng := rangeFilter(f.MinRent, f.MaxRent); rng != nil {
		filter["rent_cold"] = rng
	}
	if rng := rangeFilter(f.MinSize, f.MaxSize); rng != nil {
		filter["size_m2"] = rng
	}
	if f.Furnished != nil {
		filter["furnished"] = *f.Furnished
	}
	if f.Query != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
	}

	return filter
}

func rangeFilter(lo, hi *float64) bson.M {
	if lo == nil && hi == nil {
		return nil
	}
	rng := bson.M{}
	if lo != nil {
		rng["$gte"] = *lo
	}
	if hi != nil {
		rng["$lte"] = *hi
	}
	return rng
}
