package repository_test

import (
	"context"
	"testing"

	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	"github.com/gigconnectportfolio/gigconnect-order-service/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func orderDoc(orderID string, status models.OrderStatus) bson.D {
	return bson.D{
		{Key: "orderId", Value: orderID},
		{Key: "sellerId", Value: "seller-1"},
		{Key: "buyerId", Value: "buyer-1"},
		{Key: "status", Value: string(status)},
		{Key: "price", Value: 2500.0},
		{Key: "serviceFee", Value: 250.0},
		{Key: "flutterwave", Value: bson.D{{Key: "txRef", Value: orderID + "-1700000000000-ABCDEF"}}},
	}
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestMongoOrderRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert success", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		order := &models.Order{OrderID: "o-1", Status: models.StatusAwaitingPayment}
		err := repo.Insert(context.Background(), order)
		assert.NoError(t, err)
		assert.False(t, order.CreatedAt.IsZero())
		assert.False(t, order.ID.IsZero())
	})

	mt.Run("insert duplicate", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.Insert(context.Background(), &models.Order{OrderID: "o-1"})
		assert.ErrorIs(t, err, repository.ErrDuplicateOrder)
	})

	mt.Run("find by order id", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, orderDoc("o-7", models.StatusProcessing)))

		order, err := repo.FindByOrderID(context.Background(), "o-7")
		require.NoError(t, err)
		assert.Equal(t, "o-7", order.OrderID)
		assert.Equal(t, models.StatusProcessing, order.Status)
		assert.Equal(t, 2750.0, order.ExpectedTotal())
	})

	mt.Run("find by tx ref not found", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		order, err := repo.FindByTxRef(context.Background(), "missing")
		assert.ErrorIs(t, err, repository.ErrOrderNotFound)
		assert.Nil(t, order)
	})

	mt.Run("find by seller id", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			orderDoc("o-2", models.StatusDelivered),
			orderDoc("o-1", models.StatusProcessing),
		))

		orders, err := repo.FindBySellerID(context.Background(), "seller-1")
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, "o-2", orders[0].OrderID)
	})

	mt.Run("find by buyer id empty", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		orders, err := repo.FindByBuyerID(context.Background(), "buyer-9")
		require.NoError(t, err)
		assert.NotNil(t, orders)
		assert.Empty(t, orders)
	})

	mt.Run("conditional update applies", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: orderDoc("o-1", models.StatusProcessing)},
		})

		order, err := repo.ConditionalUpdate(context.Background(),
			repository.OrderKey{TxRef: "o-1-1700000000000-ABCDEF"},
			models.StatusAwaitingPayment,
			repository.Patch{Set: bson.M{"status": models.StatusProcessing}},
		)
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, order.Status)
	})

	mt.Run("conditional update loses race", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: nil},
		})

		order, err := repo.ConditionalUpdate(context.Background(),
			repository.OrderKey{OrderID: "o-1"},
			models.StatusAwaitingPayment,
			repository.Patch{Set: bson.M{"status": models.StatusProcessing}},
		)
		assert.ErrorIs(t, err, repository.ErrConditionFailed)
		assert.Nil(t, order)
	})

	mt.Run("update missing order", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)
		mt.AddMockResponses(bson.D{
			{Key: "ok", Value: 1},
			{Key: "value", Value: nil},
		})

		_, err := repo.Update(context.Background(),
			repository.OrderKey{OrderID: "gone"},
			repository.Patch{Set: bson.M{"buyerReview.rating": 5}},
		)
		assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	})

	mt.Run("empty patch rejected", func(mt *mtest.T) {
		repo := repository.NewMongoOrderRepository(mt.Coll)

		_, err := repo.Update(context.Background(), repository.OrderKey{OrderID: "o-1"}, repository.Patch{})
		assert.Error(t, err)
	})
}

func TestOrderKey_String(t *testing.T) {
	assert.Equal(t, "orderId=o-1", repository.OrderKey{OrderID: "o-1"}.String())
	assert.Equal(t, "txRef=abc", repository.OrderKey{OrderID: "o-1", TxRef: "abc"}.String())
}
