package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	"github.com/gigconnectportfolio/gigconnect-order-service/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

var notificationColumns = []string{
	"id", "user_to", "sender_username", "sender_picture", "receiver_username",
	"receiver_picture", "is_read", "message", "order_id", "created_at",
}

func TestNotificationCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewNotificationRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_notifications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))
	mock.ExpectCommit()

	n := &models.Notification{UserTo: "seller-1", Message: "placed an order for your gig.", OrderID: "o-1"}
	err := repo.Create(context.Background(), n)
	assert.NoError(t, err)
	assert.Equal(t, id, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationFindByUserTo(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewNotificationRepository(gormDB)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_notifications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_notifications"`)).
		WillReturnRows(sqlmock.NewRows(notificationColumns).
			AddRow(uuid.NewString(), "buyer-1", "seller", "", "buyer", "", false, "Your order has been delivered.", "o-1", now).
			AddRow(uuid.NewString(), "buyer-1", "seller", "", "buyer", "", true, "There is a delivery extension request for your order.", "o-1", now.Add(-time.Hour)))

	items, total, err := repo.FindByUserTo(context.Background(), models.NotificationFilter{UserTo: "buyer-1", PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, "Your order has been delivered.", items[0].Message)
	assert.True(t, items[1].IsRead)
}

func TestNotificationMarkAsRead_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewNotificationRepository(gormDB)

	id := uuid.New()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_notifications" SET "is_read"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_notifications"`)).
		WillReturnRows(sqlmock.NewRows(notificationColumns).
			AddRow(id.String(), "seller-1", "seller", "", "buyer", "", true, "Your order has been approved.", "o-1", time.Now()))

	n, err := repo.MarkAsRead(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.Equal(t, id, n.ID)
}

func TestNotificationMarkAsRead_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewNotificationRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_notifications" SET "is_read"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	n, err := repo.MarkAsRead(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotificationNotFound)
	assert.Nil(t, n)
}
