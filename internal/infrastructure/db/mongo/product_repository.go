package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shouryamanekar/product-management-backend/internal/core/domain"
	"github.com/shouryamanekar/product-management-backend/internal/core/ports"
)

const collectionProducts = "products"

// Server error codes the repository translates.
const (
	codeNamespaceExists    = 48
	codeDocumentValidation = 121
)

// ProductRepository implements ports.ProductRepository using MongoDB.
type ProductRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{db: db, col: db.Collection(collectionProducts)}
}

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Price       float64            `bson:"price"`
	Description string             `bson:"description"`
	Stock       int                `bson:"stock"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Price:       d.Price,
		Description: d.Description,
		Stock:       d.Stock,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := productDocument{
		ID:          primitive.NewObjectID(),
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, writeError("insert product", err)
	}
	created := doc.toDomain()
	return &created, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc productDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

// List counts every match, then fetches one page ordered by creation time.
func (r *ProductRepository) List(ctx context.Context, f ports.ProductFilter) ([]domain.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := listFilter(f)

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	cur, err := r.col.Find(ctx, filter, findOptions(f))
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}

	products := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toDomain())
	}
	return products, total, nil
}

// Update writes only the fields present in patch and returns the stored
// document as it is after the write.
func (r *ProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch, at time.Time) (*domain.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDocument
	err = r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": setFields(patch, at)}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, writeError("update product", err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes backing name search and price/creation
// ordering.
func (r *ProductRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// EnsureSchema installs the $jsonSchema validator on the products
// collection, creating the collection if needed.
func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	validator := bson.M{"$jsonSchema": productSchema}

	err := r.db.CreateCollection(ctx, collectionProducts, options.CreateCollection().SetValidator(validator))
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if !errors.As(err, &se) || !se.HasErrorCode(codeNamespaceExists) {
		return fmt.Errorf("create products collection: %w", err)
	}

	cmd := bson.D{
		{Key: "collMod", Value: collectionProducts},
		{Key: "validator", Value: validator},
	}
	if err := r.db.RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("update products validator: %w", err)
	}
	return nil
}

var productSchema = bson.M{
	"bsonType": "object",
	"required": bson.A{"name", "price"},
	"properties": bson.M{
		"name":        bson.M{"bsonType": "string", "minLength": 1},
		"price":       bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0},
		"description": bson.M{"bsonType": "string"},
		"stock":       bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
		"createdAt":   bson.M{"bsonType": "date"},
		"updatedAt":   bson.M{"bsonType": "date"},
	},
}

func listFilter(f ports.ProductFilter) bson.M {
	filter := bson.M{}
	if f.Search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}

	price := bson.M{}
	if f.MinPrice != nil {
		price["$gte"] = *f.MinPrice
	}
	if f.MaxPrice != nil {
		price["$lte"] = *f.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter
}

// findOptions orders by creation time and selects page f.Page. The skip is
// computed in int64 and saturates instead of overflowing.
func findOptions(f ports.ProductFilter) *options.FindOptions {
	limit := int64(f.Limit)
	var skip int64
	if f.Page > 1 && limit > 0 {
		pages := int64(f.Page - 1)
		if pages > math.MaxInt64/limit {
			skip = math.MaxInt64
		} else {
			skip = pages * limit
		}
	}

	return options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(skip).
		SetLimit(limit)
}

func setFields(patch domain.ProductPatch, at time.Time) bson.M {
	set := bson.M{"updatedAt": at}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Stock != nil {
		set["stock"] = *patch.Stock
	}
	return set
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrInvalidProductID
	}
	return oid, nil
}

// writeError surfaces a schema-validator rejection as a validation error.
func writeError(op string, err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorCode(codeDocumentValidation) {
		return &domain.Error{Kind: domain.KindValidation, Message: "Product validation failed", Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
