package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	"github.com/gigconnectportfolio/gigconnect-order-service/repository"
	"github.com/gigconnectportfolio/gigconnect-order-service/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockNotificationRepo struct {
	created   []*models.Notification
	createErr error
	list      []models.Notification
	total     int64
	listErr   error
	marked    *models.Notification
	markErr   error
}

func (m *mockNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = uuid.New()
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) FindByUserTo(_ context.Context, _ models.NotificationFilter) ([]models.Notification, int64, error) {
	return m.list, m.total, m.listErr
}

func (m *mockNotificationRepo) MarkAsRead(_ context.Context, _ uuid.UUID) (*models.Notification, error) {
	return m.marked, m.markErr
}

type mockEmitter struct {
	emitted []models.LiveNotification
	err     error
}

func (m *mockEmitter) Emit(_ context.Context, p models.LiveNotification) error {
	m.emitted = append(m.emitted, p)
	return m.err
}

var notifOrder = &models.Order{
	OrderID:        "ord-1",
	SellerUsername: "Sally",
	SellerImage:    "https://img.example.com/sally.png",
	BuyerUsername:  "Bob",
	BuyerImage:     "https://img.example.com/bob.png",
}

func TestSend_StoresThenEmits(t *testing.T) {
	repo := &mockNotificationRepo{}
	emitter := &mockEmitter{}
	svc := services.NewNotificationService(repo, emitter, zap.NewNop())

	n, err := svc.Send(context.Background(), notifOrder, "Sally", "placed an order for your gig.")

	require.Nil(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Sally", n.UserTo)
	assert.Equal(t, "Sally", n.SenderUsername)
	assert.Equal(t, "Bob", n.ReceiverUsername)
	assert.False(t, n.IsRead)
	require.Len(t, emitter.emitted, 1)
	assert.Equal(t, n, emitter.emitted[0].Notification)
	assert.Equal(t, "ord-1", emitter.emitted[0].Order.OrderID)
}

func TestSend_StoreFailureSkipsEmit(t *testing.T) {
	repo := &mockNotificationRepo{createErr: errors.New("pg down")}
	emitter := &mockEmitter{}
	svc := services.NewNotificationService(repo, emitter, zap.NewNop())

	_, err := svc.Send(context.Background(), notifOrder, "Sally", "msg")

	require.NotNil(t, err)
	assert.Equal(t, 500, err.StatusCode)
	assert.Empty(t, emitter.emitted)
}

func TestSend_EmitFailureIsNotFatal(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := services.NewNotificationService(repo, &mockEmitter{err: errors.New("redis down")}, zap.NewNop())

	n, err := svc.Send(context.Background(), notifOrder, "Bob", "msg")

	assert.Nil(t, err)
	assert.NotNil(t, n)
}

func TestSend_NilEmitter(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := services.NewNotificationService(repo, nil, zap.NewNop())

	_, err := svc.Send(context.Background(), notifOrder, "Bob", "msg")

	assert.Nil(t, err)
	assert.Len(t, repo.created, 1)
}

func TestGetNotifications(t *testing.T) {
	repo := &mockNotificationRepo{list: []models.Notification{{UserTo: "Bob"}}, total: 1}
	svc := services.NewNotificationService(repo, nil, zap.NewNop())

	items, total, err := svc.GetNotifications(context.Background(), models.NotificationFilter{UserTo: "Bob"})

	require.Nil(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), total)
}

func TestGetNotifications_EmptyIsNotNil(t *testing.T) {
	svc := services.NewNotificationService(&mockNotificationRepo{}, nil, zap.NewNop())

	items, _, err := svc.GetNotifications(context.Background(), models.NotificationFilter{UserTo: "Bob"})

	require.Nil(t, err)
	assert.NotNil(t, items)
}

func TestGetNotifications_RequiresRecipient(t *testing.T) {
	svc := services.NewNotificationService(&mockNotificationRepo{}, nil, zap.NewNop())

	_, _, err := svc.GetNotifications(context.Background(), models.NotificationFilter{})

	require.NotNil(t, err)
	assert.Equal(t, 400, err.StatusCode)
}

func TestMarkAsRead(t *testing.T) {
	id := uuid.New()
	repo := &mockNotificationRepo{marked: &models.Notification{ID: id, IsRead: true}}
	svc := services.NewNotificationService(repo, nil, zap.NewNop())

	n, err := svc.MarkAsRead(context.Background(), id.String())

	require.Nil(t, err)
	assert.True(t, n.IsRead)
}

func TestMarkAsRead_InvalidID(t *testing.T) {
	svc := services.NewNotificationService(&mockNotificationRepo{}, nil, zap.NewNop())

	_, err := svc.MarkAsRead(context.Background(), "not-a-uuid")

	require.NotNil(t, err)
	assert.Equal(t, 400, err.StatusCode)
}

func TestMarkAsRead_NotFound(t *testing.T) {
	repo := &mockNotificationRepo{markErr: repository.ErrNotificationNotFound}
	svc := services.NewNotificationService(repo, nil, zap.NewNop())

	_, err := svc.MarkAsRead(context.Background(), uuid.NewString())

	require.NotNil(t, err)
	assert.Equal(t, 404, err.StatusCode)
	var svcErr *services.ServiceError
	assert.ErrorAs(t, err, &svcErr)
}
