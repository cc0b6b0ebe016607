package services

import (
	"context"
	"errors"

	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	"github.com/gigconnectportfolio/gigconnect-order-service/realtime"
	"github.com/gigconnectportfolio/gigconnect-order-service/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService persists in-app notifications and pushes them live.
type NotificationService interface {
	// Send stores a notification for userTo about order, then emits it. The
	// emit is best effort.
	Send(ctx context.Context, order *models.Order, userTo, message string) (*models.Notification, *ServiceError)
	GetNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int64, *ServiceError)
	MarkAsRead(ctx context.Context, notificationID string) (*models.Notification, *ServiceError)
}

type notificationServiceImpl struct {
	repo    repository.NotificationRepository
	emitter realtime.Emitter
	logger  *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, emitter realtime.Emitter, logger *zap.Logger) NotificationService {
	if emitter == nil {
		emitter = realtime.NoopEmitter{}
	}
	return &notificationServiceImpl{repo: repo, emitter: emitter, logger: logger}
}

func (s *notificationServiceImpl) Send(ctx context.Context, order *models.Order, userTo, message string) (*models.Notification, *ServiceError) {
	n := &models.Notification{
		UserTo:           userTo,
		SenderUsername:   order.SellerUsername,
		SenderPicture:    order.SellerImage,
		ReceiverUsername: order.BuyerUsername,
		ReceiverPicture:  order.BuyerImage,
		Message:          message,
		OrderID:          order.OrderID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("Failed to store notification", zap.String("order_id", order.OrderID), zap.Error(err))
		return nil, NewInternalError(err)
	}

	if err := s.emitter.Emit(ctx, models.LiveNotification{Order: order, Notification: n}); err != nil {
		s.logger.Warn("Failed to push live notification",
			zap.String("order_id", order.OrderID),
			zap.String("user_to", userTo),
			zap.Error(err),
		)
	}
	return n, nil
}

func (s *notificationServiceImpl) GetNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int64, *ServiceError) {
	if filter.UserTo == "" {
		return nil, 0, NewValidationError("userTo is required")
	}
	items, total, err := s.repo.FindByUserTo(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.String("user_to", filter.UserTo), zap.Error(err))
		return nil, 0, NewInternalError(err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, total, nil
}

func (s *notificationServiceImpl) MarkAsRead(ctx context.Context, notificationID string) (*models.Notification, *ServiceError) {
	id, err := uuid.Parse(notificationID)
	if err != nil {
		return nil, NewValidationError("Invalid notification ID")
	}
	n, err := s.repo.MarkAsRead(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return nil, NewNotFoundError("Notification not found")
		}
		s.logger.Error("Failed to mark notification as read", zap.String("notification_id", notificationID), zap.Error(err))
		return nil, NewInternalError(err)
	}
	return n, nil
}
