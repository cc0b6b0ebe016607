package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrConditionFailed = errors.New("order no longer in expected status")
	ErrDuplicateOrder  = errors.New("order already exists")
)

// OrderKey selects a single order. TxRef is used instead of OrderID when set.
type OrderKey struct {
	OrderID string
	TxRef   string
}

func (k OrderKey) filter() bson.M {
	if k.TxRef != "" {
		return bson.M{"flutterwave.txRef": k.TxRef}
	}
	return bson.M{"orderId": k.OrderID}
}

func (k OrderKey) String() string {
	if k.TxRef != "" {
		return "txRef=" + k.TxRef
	}
	return "orderId=" + k.OrderID
}

// Patch is a partial update. Set maps dotted field paths to values, Push
// appends to array fields.
type Patch struct {
	Set  bson.M
	Push bson.M
}

func (p Patch) document() bson.M {
	update := bson.M{}
	if len(p.Set) > 0 {
		update["$set"] = p.Set
	}
	if len(p.Push) > 0 {
		update["$push"] = p.Push
	}
	return update
}

// OrderRepository is the order store. ConditionalUpdate is the only way a
// status transition is written.
type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindByTxRef(ctx context.Context, txRef string) (*models.Order, error)
	FindBySellerID(ctx context.Context, sellerID string) ([]models.Order, error)
	FindByBuyerID(ctx context.Context, buyerID string) ([]models.Order, error)
	ConditionalUpdate(ctx context.Context, key OrderKey, expected models.OrderStatus, patch Patch) (*models.Order, error)
	Update(ctx context.Context, key OrderKey, patch Patch) (*models.Order, error)
}

type MongoOrderRepository struct {
	coll *mongo.Collection
}

func NewMongoOrderRepository(coll *mongo.Collection) *MongoOrderRepository {
	return &MongoOrderRepository{coll: coll}
}

// EnsureIndexes creates the unique business key index and the lookup index
// used by payment verification.
func (r *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "flutterwave.txRef", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create order indexes: %w", err)
	}
	return nil
}

func (r *MongoOrderRepository) Insert(ctx context.Context, order *models.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	res, err := r.coll.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (r *MongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*models.Order, error) {
	var order models.Order
	if err := r.coll.FindOne(ctx, filter).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

func (r *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	return r.findOne(ctx, OrderKey{OrderID: orderID}.filter())
}

func (r *MongoOrderRepository) FindByTxRef(ctx context.Context, txRef string) (*models.Order, error) {
	return r.findOne(ctx, OrderKey{TxRef: txRef}.filter())
}

func (r *MongoOrderRepository) findMany(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func (r *MongoOrderRepository) FindBySellerID(ctx context.Context, sellerID string) ([]models.Order, error) {
	return r.findMany(ctx, bson.M{"sellerId": sellerID})
}

func (r *MongoOrderRepository) FindByBuyerID(ctx context.Context, buyerID string) ([]models.Order, error) {
	return r.findMany(ctx, bson.M{"buyerId": buyerID})
}

// ConditionalUpdate applies patch only while the order still has the expected
// status. A miss returns ErrConditionFailed; the caller decides whether the
// order vanished or lost a race.
func (r *MongoOrderRepository) ConditionalUpdate(ctx context.Context, key OrderKey, expected models.OrderStatus, patch Patch) (*models.Order, error) {
	filter := key.filter()
	filter["status"] = expected

	order, err := r.findOneAndUpdate(ctx, filter, patch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrConditionFailed
	}
	return order, err
}

// Update applies patch without a status guard.
func (r *MongoOrderRepository) Update(ctx context.Context, key OrderKey, patch Patch) (*models.Order, error) {
	order, err := r.findOneAndUpdate(ctx, key.filter(), patch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

func (r *MongoOrderRepository) findOneAndUpdate(ctx context.Context, filter bson.M, patch Patch) (*models.Order, error) {
	update := patch.document()
	if len(update) == 0 {
		return nil, errors.New("empty order patch")
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var order models.Order
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("update order: %w", err)
	}
	return &order, nil
}
