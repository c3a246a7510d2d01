package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/fasogadget/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by every deployment of the storefront.
const (
	ConfigCollection   = "config"
	ProductsCollection = "products"
	OrdersCollection   = "orders"
)

func mongoErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrPersistence, op, err)
}

type mongoProduct struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Category models.Category    `bson:"category"`
	Price    int64              `bson:"price"`
	Image    string             `bson:"image"`
	Badge    string             `bson:"badge"`
}

func (d mongoProduct) product() models.Product {
	return models.Product{
		ID:       d.ID.Hex(),
		Name:     d.Name,
		Category: d.Category,
		Price:    d.Price,
		Image:    d.Image,
		Badge:    d.Badge,
	}
}

// MongoProductRepository stores products in the products collection.
type MongoProductRepository struct {
	collection *mongo.Collection
}

// NewMongoProductRepository creates a repository over db.
func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{collection: db.Collection(ProductsCollection)}
}

// objectID parses a product id. Malformed ids cannot match any document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("product %q: %w", id, models.ErrNotFound)
	}
	return oid, nil
}

// List returns every product in insertion order.
func (r *MongoProductRepository) List(ctx context.Context) ([]models.Product, error) {
	cur, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, mongoErr("list products", err)
	}
	var docs []mongoProduct
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decode products", err)
	}
	products := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.product())
	}
	return products, nil
}

// Get returns the product id or models.ErrNotFound.
func (r *MongoProductRepository) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc mongoProduct
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, mongoErr("get product", err)
	}
	p := doc.product()
	return &p, nil
}

// Insert stores p and returns the generated ObjectID in hex.
func (r *MongoProductRepository) Insert(ctx context.Context, p models.Product) (string, error) {
	doc := mongoProduct{
		ID:       primitive.NewObjectID(),
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		Image:    p.Image,
		Badge:    p.Badge,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return "", mongoErr("insert product", err)
	}
	return doc.ID.Hex(), nil
}

// Update sets the fields present in patch.
func (r *MongoProductRepository) Update(ctx context.Context, id string, patch models.ProductPatch) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	if patch.Badge != nil {
		set["badge"] = *patch.Badge
	}

	var res *mongo.UpdateResult
	if len(set) == 0 {
		n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return mongoErr("update product", err)
		}
		res = &mongo.UpdateResult{MatchedCount: n}
	} else if res, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}); err != nil {
		return mongoErr("update product", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// Delete removes the product id.
func (r *MongoProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mongoErr("delete product", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// Count returns the number of products.
func (r *MongoProductRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, mongoErr("count products", err)
	}
	return n, nil
}

type mongoOrder struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	models.Order `bson:",inline"`
}

// MongoOrderRepository appends orders to the orders collection.
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates a repository over db.
func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{collection: db.Collection(OrdersCollection)}
}

// Insert stores order and returns the generated ObjectID in hex.
func (r *MongoOrderRepository) Insert(ctx context.Context, order models.Order) (string, error) {
	doc := mongoOrder{ID: primitive.NewObjectID(), Order: order}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return "", mongoErr("insert order", err)
	}
	return doc.ID.Hex(), nil
}

// List returns every order, most recently stored first.
func (r *MongoOrderRepository) List(ctx context.Context) ([]models.Order, error) {
	cur, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, mongoErr("list orders", err)
	}
	var docs []mongoOrder
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoErr("decode orders", err)
	}
	orders := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		o := d.Order
		o.ID = d.ID.Hex()
		orders = append(orders, o)
	}
	return orders, nil
}

// CreateIndexes creates the indexes used by the dashboard.
func (r *MongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "numeroCommande", Value: 1}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

type mongoConfig struct {
	ID                 string `bson:"_id"`
	models.AdminConfig `bson:",inline"`
}

// MongoConfigRepository stores the AdminConfig singleton in the config
// collection under _id "admin".
type MongoConfigRepository struct {
	collection *mongo.Collection
}

// NewMongoConfigRepository creates a repository over db.
func NewMongoConfigRepository(db *mongo.Database) *MongoConfigRepository {
	return &MongoConfigRepository{collection: db.Collection(ConfigCollection)}
}

// GetAdminConfig returns the stored credentials or models.ErrNotFound.
func (r *MongoConfigRepository) GetAdminConfig(ctx context.Context) (*models.AdminConfig, error) {
	var doc mongoConfig
	err := r.collection.FindOne(ctx, bson.M{"_id": models.AdminConfigID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("admin config: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, mongoErr("get admin config", err)
	}
	return &doc.AdminConfig, nil
}

// SaveAdminConfig replaces the singleton, creating it when absent.
func (r *MongoConfigRepository) SaveAdminConfig(ctx context.Context, cfg models.AdminConfig) error {
	doc := mongoConfig{ID: models.AdminConfigID, AdminConfig: cfg}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": models.AdminConfigID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return mongoErr("save admin config", err)
	}
	return nil
}
