package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gigconnectportfolio/gigconnect-order-service/events"
	"github.com/gigconnectportfolio/gigconnect-order-service/gateway"
	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	aws_pkg "github.com/gigconnectportfolio/gigconnect-order-service/pkg/aws"
	"github.com/gigconnectportfolio/gigconnect-order-service/repository"
	"github.com/gigconnectportfolio/gigconnect-order-service/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Notification texts. The recipient is noted next to each.
const (
	msgOrderPlaced          = "placed an order for your gig."                                 // seller
	msgOrderCancelled       = "Your order has been cancelled."                                // seller
	msgOrderApproved        = "Your order has been approved."                                 // seller
	msgOrderDelivered       = "Your order has been delivered."                                // buyer
	msgExtensionRequested   = "There is a delivery extension request for your order."         // buyer
	msgExtensionSent        = "Your delivery extension request has been sent to the seller."  // seller
	msgExtensionApproved    = "Your delivery date extension request has been approved."       // buyer
	msgExtensionApprovedAck = "You have approved the delivery date extension request."        // seller
	msgExtensionRejected    = "Your delivery date extension request has been rejected."       // seller
	msgExtensionRejectedAck = "You have rejected the delivery date extension request."        // buyer
)

const defaultEffectTimeout = 10 * time.Second

type OrderServiceConfig struct {
	// ClientURL is the web app origin used to build order links in emails.
	ClientURL string
	// EffectTimeout bounds each side effect. Zero means 10 seconds.
	EffectTimeout time.Duration
}

// OrderService owns every status change of an order. Each mutating call
// commits its store write first and only then runs its side effects
// (events, emails, notifications); a side effect failure never rolls the
// write back.
type OrderService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResult, *ServiceError)
	GetOrderByOrderID(ctx context.Context, orderID string) (*models.Order, *ServiceError)
	GetOrdersBySellerID(ctx context.Context, sellerID string) ([]models.Order, *ServiceError)
	GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]models.Order, *ServiceError)

	VerifyPayment(ctx context.Context, in models.VerificationInput) (*models.Order, *ServiceError)
	CancelOrder(ctx context.Context, orderID string, data models.CancelOrderData) (*models.Order, *ServiceError)
	DeliverOrder(ctx context.Context, orderID string, req *models.DeliverOrderRequest) (*models.Order, *ServiceError)
	ApproveOrder(ctx context.Context, orderID string, req *models.ApproveOrderRequest) (*models.Order, *ServiceError)

	RequestExtension(ctx context.Context, orderID string, in *models.ExtensionInput) (*models.Order, *ServiceError)
	ApproveExtension(ctx context.Context, orderID string, in *models.ExtensionInput) (*models.Order, *ServiceError)
	RejectExtension(ctx context.Context, orderID string) (*models.Order, *ServiceError)

	ApplyReview(ctx context.Context, msg *models.ReviewMessage) (*models.Order, *ServiceError)
}

type orderServiceImpl struct {
	repo      repository.OrderRepository
	gateway   gateway.PaymentGateway
	publisher events.Publisher
	notifier  NotificationService
	uploader  storage.Uploader
	metrics   *aws_pkg.MetricsClient
	cfg       OrderServiceConfig
	logger    *zap.Logger
}

// NewOrderService wires the engine. publisher, uploader and metrics may be nil.
func NewOrderService(
	repo repository.OrderRepository,
	gw gateway.PaymentGateway,
	publisher events.Publisher,
	notifier NotificationService,
	uploader storage.Uploader,
	metrics *aws_pkg.MetricsClient,
	cfg OrderServiceConfig,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		repo:      repo,
		gateway:   gw,
		publisher: publisher,
		notifier:  notifier,
		uploader:  uploader,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// ---- queries ----

func (s *orderServiceImpl) GetOrderByOrderID(ctx context.Context, orderID string) (*models.Order, *ServiceError) {
	return s.loadOrder(ctx, orderID)
}

func (s *orderServiceImpl) GetOrdersBySellerID(ctx context.Context, sellerID string) ([]models.Order, *ServiceError) {
	orders, err := s.repo.FindBySellerID(ctx, sellerID)
	if err != nil {
		s.logger.Error("Failed to list seller orders", zap.String("seller_id", sellerID), zap.Error(err))
		return nil, NewInternalError(err)
	}
	return orders, nil
}

func (s *orderServiceImpl) GetOrdersByBuyerID(ctx context.Context, buyerID string) ([]models.Order, *ServiceError) {
	orders, err := s.repo.FindByBuyerID(ctx, buyerID)
	if err != nil {
		s.logger.Error("Failed to list buyer orders", zap.String("buyer_id", buyerID), zap.Error(err))
		return nil, NewInternalError(err)
	}
	return orders, nil
}

// ---- create ----

func (s *orderServiceImpl) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResult, *ServiceError) {
	now := time.Now().UTC()
	txRef := GenerateTxRef(req.OrderID, now)

	order := &models.Order{
		OrderID:             req.OrderID,
		InvoiceID:           req.InvoiceID,
		Offer:               req.Offer,
		GigID:               req.GigID,
		GigCoverImage:       req.GigCoverImage,
		GigMainTitle:        req.GigMainTitle,
		GigBasicTitle:       req.GigBasicTitle,
		GigBasicDescription: req.GigBasicDescription,
		SellerID:            req.SellerID,
		SellerUsername:      req.SellerUsername,
		SellerImage:         req.SellerImage,
		SellerEmail:         req.SellerEmail,
		BuyerID:             req.BuyerID,
		BuyerUsername:       req.BuyerUsername,
		BuyerImage:          req.BuyerImage,
		BuyerEmail:          req.BuyerEmail,
		Status:              models.StatusAwaitingPayment,
		Quantity:            req.Quantity,
		Price:               req.Price,
		ServiceFee:          ServiceFee(req.Price),
		Requirements:        req.Requirements,
		Payment:             models.PaymentDetails{TxRef: txRef},
		DeliveredWork:       []models.DeliveredWork{},
		Events:              models.OrderEvents{PlaceOrder: &now},
		CreatedAt:           now,
	}

	if err := s.repo.Insert(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			return nil, NewConflictError("Order already exists")
		}
		s.logger.Error("Failed to create order", zap.String("order_id", req.OrderID), zap.Error(err))
		svcErr := NewInternalError(err)
		svcErr.Message = "Failed to create order"
		return nil, svcErr
	}

	s.count(ctx, aws_pkg.MetricOrdersCreated)
	s.logger.Info("Order created",
		zap.String("order_id", order.OrderID),
		zap.String("tx_ref", txRef),
		zap.Float64("service_fee", order.ServiceFee),
	)
	return &models.CreateOrderResult{Order: order, TxRef: txRef}, nil
}

// ---- payment verification ----

// VerifyPayment confirms a gateway payment against the stored order and moves
// it to PROCESSING. The write is conditioned on the order still awaiting
// payment, so concurrent or repeated calls fulfil it at most once.
func (s *orderServiceImpl) VerifyPayment(ctx context.Context, in models.VerificationInput) (*models.Order, *ServiceError) {
	if in.TransactionID == "" || in.TxRef == "" {
		return nil, NewValidationError("Transaction ID and reference are required for verification")
	}

	order, err := s.repo.FindByTxRef(ctx, in.TxRef)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, NewNotFoundError("Order not found for the provided transaction reference")
		}
		s.logger.Error("Failed to load order for verification", zap.String("tx_ref", in.TxRef), zap.Error(err))
		return nil, NewInternalError(err)
	}

	if order.Status != models.StatusAwaitingPayment {
		return nil, NewConflictError(fmt.Sprintf("Order status is not valid for verification. Current status: %s", order.Status))
	}
	expectedTotal := order.ExpectedTotal()

	v, err := s.gateway.VerifyTransaction(ctx, in.TransactionID)
	if err != nil {
		s.count(ctx, aws_pkg.MetricPaymentFailed)
		s.logger.Warn("Gateway verification failed",
			zap.String("order_id", order.OrderID),
			zap.String("transaction_id", in.TransactionID),
			zap.Error(err),
		)
		if errors.Is(err, gateway.ErrTransactionNotFound) {
			return nil, NewUpstreamError("Transaction not found at payment gateway", err)
		}
		return nil, NewUpstreamError("Payment verification failed", err)
	}

	if v.Status != gateway.StatusSuccessful {
		s.count(ctx, aws_pkg.MetricPaymentFailed)
		return nil, NewValidationError(fmt.Sprintf("Payment not successful. Current status: %s", v.Status))
	}
	if v.TxRef != "" && v.TxRef != in.TxRef {
		s.count(ctx, aws_pkg.MetricPaymentFailed)
		return nil, NewValidationError("Payment reference does not match this order")
	}
	if !order.PaidInFull(v.Amount) {
		s.count(ctx, aws_pkg.MetricPaymentFailed)
		s.logger.Warn("Payment amount mismatch",
			zap.String("order_id", order.OrderID),
			zap.Float64("expected", expectedTotal),
			zap.Float64("received", v.Amount),
		)
		return nil, NewValidationError(fmt.Sprintf("Payment amount mismatch. Expected: %.2f, Received: %.2f", expectedTotal, v.Amount))
	}

	now := time.Now().UTC()
	updated, svcErr := s.transition(ctx, order, repository.OrderKey{TxRef: in.TxRef}, models.StatusProcessing, repository.Patch{
		Set: bson.M{
			"status":                    models.StatusProcessing,
			"flutterwave.txRef":         in.TxRef,
			"flutterwave.transactionId": v.TransactionID,
			"flutterwave.gatewayStatus": v.Status,
			"flutterwave.paymentMethod": v.PaymentType,
			"flutterwave.fee":           v.AppFee,
			"events.orderStarted":       now,
		},
	})
	if svcErr != nil {
		if svcErr.Retryable {
			s.count(ctx, aws_pkg.MetricPaymentConflicts)
		}
		return nil, svcErr
	}
	s.count(ctx, aws_pkg.MetricPaymentSucceeded)

	s.dispatch(ctx, updated.OrderID,
		s.publish(models.SellerUpdatesExchange, models.SellerRoutingKey, models.SellerUpdate{
			Type:        models.UpdateCreateOrder,
			SellerID:    updated.SellerID,
			OngoingJobs: 1,
		}, "Update seller data after payment confirmation"),
		s.publish(models.OrderEmailExchange, models.OrderEmailRoutingKey, models.OrderEmail{
			Template:       models.TemplateOrderPlaced,
			OrderID:        updated.OrderID,
			InvoiceID:      updated.InvoiceID,
			ReceiverEmail:  updated.SellerEmail,
			BuyerUsername:  strings.ToLower(updated.BuyerUsername),
			SellerUsername: strings.ToLower(updated.SellerUsername),
			Title:          updated.Offer.GigTitle,
			Description:    updated.Offer.Description,
			Requirements:   updated.Requirements,
			OrderDue:       updated.Offer.NewDeliveryDate,
			Amount:         updated.Price,
			ServiceFee:     updated.ServiceFee,
			Total:          updated.ExpectedTotal(),
			OrderURL:       s.orderURL(updated.OrderID),
		}, "Send order placed email after payment confirmation"),
		s.notify(updated, updated.SellerUsername, msgOrderPlaced),
	)
	return updated, nil
}

// ---- cancellation ----

// CancelOrder commits CANCELLED before asking the gateway for a refund, so a
// lost cancellation race never refunds. The refund itself is best effort.
func (s *orderServiceImpl) CancelOrder(ctx context.Context, orderID string, data models.CancelOrderData) (*models.Order, *ServiceError) {
	order, svcErr := s.loadOrder(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if order.Status == models.StatusCancelled {
		return nil, NewConflictError("Order is already cancelled")
	}

	now := time.Now().UTC()
	updated, svcErr := s.transition(ctx, order, repository.OrderKey{OrderID: orderID}, models.StatusCancelled, repository.Patch{
		Set: bson.M{
			"status":          models.StatusCancelled,
			"cancelled":       true,
			"offer.cancelled": true,
			"approvedAt":      now,
		},
	})
	if svcErr != nil {
		return nil, svcErr
	}
	s.count(ctx, aws_pkg.MetricOrdersCancelled)
	s.logger.Info("Order cancelled", zap.String("order_id", orderID), zap.String("previous_status", string(order.Status)))

	sellerID := firstNonEmpty(data.SellerID, updated.SellerID)
	buyerID := firstNonEmpty(data.BuyerID, updated.BuyerID)

	effects := make([]sideEffect, 0, 4)
	if txID := order.Payment.TransactionID; txID != "" {
		effects = append(effects, s.refund(updated, txID))
	} else {
		s.logger.Info("No transaction recorded, skipping refund", zap.String("order_id", orderID))
	}
	effects = append(effects,
		s.publish(models.SellerUpdatesExchange, models.SellerRoutingKey, models.SellerUpdate{
			Type:     models.UpdateCancelOrder,
			SellerID: sellerID,
		}, "Update seller data after order cancellation"),
		s.publish(models.BuyerUpdatesExchange, models.BuyerRoutingKey, models.BuyerUpdate{
			Type:          models.UpdateCancelOrder,
			BuyerID:       buyerID,
			PurchasedGigs: nonNilStrings(data.PurchasedGigs),
		}, "Update buyer data after order cancellation"),
		s.notify(updated, updated.SellerUsername, msgOrderCancelled),
	)
	s.dispatch(ctx, orderID, effects...)
	return updated, nil
}

func (s *orderServiceImpl) refund(order *models.Order, transactionID string) sideEffect {
	amount := RefundAmount(order.Price)
	return sideEffect{
		name: "refund",
		run: func(ctx context.Context) error {
			if err := s.gateway.Refund(ctx, transactionID, amount); err != nil {
				s.count(ctx, aws_pkg.MetricRefundsFailed)
				return err
			}
			s.logger.Info("Refund requested",
				zap.String("order_id", order.OrderID),
				zap.String("transaction_id", transactionID),
				zap.Float64("amount", amount),
			)
			return nil
		},
	}
}

// ---- delivery ----

// DeliverOrder uploads the attached file before touching the order and
// appends the artifact to deliveredWork. Delivering again appends again.
func (s *orderServiceImpl) DeliverOrder(ctx context.Context, orderID string, req *models.DeliverOrderRequest) (*models.Order, *ServiceError) {
	order, svcErr := s.loadOrder(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}
	if err := models.CheckTransition(order.Status, models.StatusDelivered); err != nil {
		return nil, NewConflictError(err.Error())
	}

	file := req.File
	if file != "" {
		if s.uploader == nil {
			return nil, NewUpstreamError("File upload failed. Try again", errors.New("uploader not configured"))
		}
		name := ""
		if req.FileType == "zip" {
			name = storage.RandomName() + ".zip"
		}
		res, err := s.uploader.Upload(ctx, file, name)
		if err != nil || res == nil || res.PublicID == "" {
			s.logger.Warn("Delivery upload failed", zap.String("order_id", orderID), zap.Error(err))
			return nil, NewUpstreamError("File upload failed. Try again", err)
		}
		file = res.SecureURL
	}

	now := time.Now().UTC()
	updated, svcErr := s.transition(ctx, order, repository.OrderKey{OrderID: orderID}, models.StatusDelivered, repository.Patch{
		Set: bson.M{
			"status":                models.StatusDelivered,
			"delivered":             true,
			"events.orderDelivered": now,
		},
		Push: bson.M{
			"deliveredWork": models.DeliveredWork{
				Message:  req.Message,
				File:     file,
				FileType: req.FileType,
				FileSize: req.FileSize,
				FileName: req.FileName,
			},
		},
	})
	if svcErr != nil {
		return nil, svcErr
	}
	s.count(ctx, aws_pkg.MetricOrdersDelivered)

	s.dispatch(ctx, orderID,
		s.publish(models.OrderEmailExchange, models.OrderEmailRoutingKey, models.OrderEmail{
			Template:       models.TemplateOrderDelivered,
			OrderID:        updated.OrderID,
			ReceiverEmail:  updated.BuyerEmail,
			BuyerUsername:  strings.ToLower(updated.BuyerUsername),
			SellerUsername: strings.ToLower(updated.SellerUsername),
			Title:          updated.Offer.GigTitle,
			Description:    updated.Offer.Description,
			OrderURL:       s.orderURL(updated.OrderID),
		}, "Order delivery message sent to notification service"),
		s.notify(updated, updated.BuyerUsername, msgOrderDelivered),
	)
	return updated, nil
}

// ---- approval ----

func (s *orderServiceImpl) ApproveOrder(ctx context.Context, orderID string, req *models.ApproveOrderRequest) (*models.Order, *ServiceError) {
	order, svcErr := s.loadOrder(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	now := time.Now().UTC()
	updated, svcErr := s.transition(ctx, order, repository.OrderKey{OrderID: orderID}, models.StatusCompleted, repository.Patch{
		Set: bson.M{
			"status":     models.StatusCompleted,
			"approved":   true,
			"approvedAt": now,
		},
	})
	if svcErr != nil {
		return nil, svcErr
	}
	s.count(ctx, aws_pkg.MetricOrdersCompleted)

	s.dispatch(ctx, orderID,
		s.publish(models.SellerUpdatesExchange, models.SellerRoutingKey, models.SellerUpdate{
			Type:           models.UpdateApproveOrder,
			SellerID:       firstNonEmpty(req.SellerID, updated.SellerID),
			BuyerID:        firstNonEmpty(req.BuyerID, updated.BuyerID),
			OngoingJobs:    req.OngoingJobs,
			CompletedJobs:  req.CompletedJobs,
			TotalEarnings:  req.TotalEarnings,
			RecentDelivery: &now,
		}, "Update seller data after order approval"),
		s.publish(models.BuyerUpdatesExchange, models.BuyerRoutingKey, models.BuyerUpdate{
			Type:          models.UpdatePurchasedGigs,
			BuyerID:       firstNonEmpty(req.BuyerID, updated.BuyerID),
			PurchasedGigs: nonNilStrings(req.PurchasedGigs),
		}, "Update buyer data after order approval"),
		s.notify(updated, updated.SellerUsername, msgOrderApproved),
	)
	return updated, nil
}

// ---- delivery extension ----

// RequestExtension stores the seller's proposal, replacing any pending one.
// Status is unchanged but the write is still conditioned on it.
func (s *orderServiceImpl) RequestExtension(ctx context.Context, orderID string, in *models.ExtensionInput) (*models.Order, *ServiceError) {
	order, svcErr := s.loadOrder(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	updated, svcErr := s.conditionalWrite(ctx, order, repository.OrderKey{OrderID: orderID}, repository.Patch{
		Set: bson.M{
			"requestExtension": models.ExtensionRequest{
				OriginalDate: in.OriginalDate,
				NewDate:      in.NewDate,
				Days:         in.Days,
				Reason:       in.Reason,
			},
		},
	})
	if svcErr != nil {
		return nil, svcErr
	}

	s.dispatch(ctx, orderID,
		s.publish(models.OrderEmailExchange, models.OrderEmailRoutingKey, models.OrderEmail{
			Template:       models.TemplateOrderExtension,
			OrderID:        updated.OrderID,
			ReceiverEmail:  updated.BuyerEmail,
			BuyerUsername:  strings.ToLower(updated.BuyerUsername),
			SellerUsername: strings.ToLower(updated.SellerUsername),
			OriginalDate:   in.OriginalDate,
			NewDate:        in.NewDate,
			Reason:         in.Reason,
			OrderURL:       s.orderURL(updated.OrderID),
		}, "Order extension request message sent to notification service"),
		s.notify(updated, updated.BuyerUsername, msgExtensionRequested),
		s.notify(updated, updated.SellerUsername, msgExtensionSent),
	)
	return updated, nil
}

// ApproveExtension makes the pending proposal the authoritative delivery
// date. When nothing is pending the request body supplies the values.
func (s *orderServiceImpl) ApproveExtension(ctx context.Context, orderID string, in *models.ExtensionInput) (*models.Order, *ServiceError) {
	order, svcErr := s.loadOrder(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	proposal := order.RequestExtension
	if proposal.IsEmpty() {
		if in == nil || in.NewDate == "" {
			return nil, NewValidationError("No pending delivery extension request")
		}
		proposal = models.ExtensionRequest{
			OriginalDate: in.OriginalDate,
			NewDate:      in.NewDate,
			Days:         in.Days,
			Reason:       in.Reason,
		}
	}

	now := time.Now().UTC()
	updated, svcErr := s.conditionalWrite(ctx, order, repository.OrderKey{OrderID: orderID}, repository.Patch{
		Set: bson.M{
			"offer.newDeliveryDate":     proposal.NewDate,
			"offer.deliveryInDays":      proposal.Days,
			"offer.reason":              proposal.Reason,
			"events.deliveryDateUpdate": now,
			"requestExtension":          models.ExtensionRequest{},
		},
	})
	if svcErr != nil {
		return nil, svcErr
	}

	s.dispatch(ctx, orderID,
		s.publish(models.OrderEmailExchange, models.OrderEmailRoutingKey, models.OrderEmail{
			Template:       models.TemplateOrderExtensionApproval,
			OrderID:        updated.OrderID,
			ReceiverEmail:  updated.SellerEmail,
			BuyerUsername:  strings.ToLower(updated.BuyerUsername),
			SellerUsername: strings.ToLower(updated.SellerUsername),
			Subject:        "Delivery Date Extension Approved",
			Header:         "Request Accepted",
			Type:           "Accepted",
			Message:        "You can continue working on the order.",
			OrderURL:       s.orderURL(updated.OrderID),
		}, "Order extension approval message sent to notification service"),
		s.notify(updated, updated.BuyerUsername, msgExtensionApproved),
		s.notify(updated, updated.SellerUsername, msgExtensionApprovedAck),
	)
	return updated, nil
}

// RejectExtension clears the pending proposal and leaves the offer alone.
func (s *orderServiceImpl) RejectExtension(ctx context.Context, orderID string) (*models.Order, *ServiceError) {
	order, svcErr := s.loadOrder(ctx, orderID)
	if svcErr != nil {
		return nil, svcErr
	}

	updated, svcErr := s.conditionalWrite(ctx, order, repository.OrderKey{OrderID: orderID}, repository.Patch{
		Set: bson.M{"requestExtension": models.ExtensionRequest{}},
	})
	if svcErr != nil {
		return nil, svcErr
	}

	s.dispatch(ctx, orderID,
		s.publish(models.OrderEmailExchange, models.OrderEmailRoutingKey, models.OrderEmail{
			Template:       models.TemplateOrderExtensionApproval,
			OrderID:        updated.OrderID,
			ReceiverEmail:  updated.SellerEmail,
			BuyerUsername:  strings.ToLower(updated.BuyerUsername),
			SellerUsername: strings.ToLower(updated.SellerUsername),
			Subject:        "Delivery Date Extension Rejected",
			Header:         "Request Rejected",
			Type:           "Rejected",
			Message:        "Please adhere to the original delivery date. Contact the Buyer for more information",
			OrderURL:       s.orderURL(updated.OrderID),
		}, "Order extension rejection message sent to notification service"),
		s.notify(updated, updated.SellerUsername, msgExtensionRejected),
		s.notify(updated, updated.BuyerUsername, msgExtensionRejectedAck),
	)
	return updated, nil
}

// ---- reviews ----

// ApplyReview records a rating from the review service. It does not change
// status, so it is written without a status condition.
func (s *orderServiceImpl) ApplyReview(ctx context.Context, msg *models.ReviewMessage) (*models.Order, *ServiceError) {
	var field, eventField string
	switch msg.Type {
	case models.ReviewTypeBuyer:
		field, eventField = "buyerReview", "events.buyerReview"
	case models.ReviewTypeSeller:
		field, eventField = "sellerReview", "events.sellerReview"
	default:
		return nil, NewValidationError(fmt.Sprintf("Unknown review type %q", msg.Type))
	}
	if msg.OrderID == "" {
		return nil, NewValidationError("Review message has no orderId")
	}

	now := time.Now().UTC()
	created := now
	if t, err := time.Parse(time.RFC3339, msg.CreatedAt); err == nil {
		created = t.UTC()
	}

	updated, err := s.repo.Update(ctx, repository.OrderKey{OrderID: msg.OrderID}, repository.Patch{
		Set: bson.M{
			field: models.Review{
				Rating:  msg.Rating,
				Review:  msg.Review,
				Created: &created,
			},
			eventField: now,
		},
	})
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, NewNotFoundError(fmt.Sprintf("Order with ID %s not found", msg.OrderID))
		}
		s.logger.Error("Failed to apply review", zap.String("order_id", msg.OrderID), zap.Error(err))
		return nil, NewInternalError(err)
	}
	s.count(ctx, aws_pkg.MetricReviewsApplied)

	// the reviewed party hears about it
	userTo := updated.SellerUsername
	if msg.Type == models.ReviewTypeSeller {
		userTo = updated.BuyerUsername
	}
	s.dispatch(ctx, msg.OrderID,
		s.notify(updated, userTo, fmt.Sprintf("left you a %d star review", msg.Rating)),
	)
	return updated, nil
}

// ---- helpers ----

func (s *orderServiceImpl) loadOrder(ctx context.Context, orderID string) (*models.Order, *ServiceError) {
	order, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, NewNotFoundError(fmt.Sprintf("Order with ID %s not found", orderID))
		}
		s.logger.Error("Failed to load order", zap.String("order_id", orderID), zap.Error(err))
		return nil, NewInternalError(err)
	}
	return order, nil
}

// transition checks the move against the status table and writes it
// conditioned on the status observed at read.
func (s *orderServiceImpl) transition(ctx context.Context, order *models.Order, key repository.OrderKey, next models.OrderStatus, patch repository.Patch) (*models.Order, *ServiceError) {
	if err := models.CheckTransition(order.Status, next); err != nil {
		return nil, NewConflictError(err.Error())
	}
	return s.conditionalWrite(ctx, order, key, patch)
}

func (s *orderServiceImpl) conditionalWrite(ctx context.Context, order *models.Order, key repository.OrderKey, patch repository.Patch) (*models.Order, *ServiceError) {
	updated, err := s.repo.ConditionalUpdate(ctx, key, order.Status, patch)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			s.logger.Warn("Order changed between read and write",
				zap.String("order", key.String()),
				zap.String("expected_status", string(order.Status)),
			)
			return nil, NewRetryableConflict("Order was modified concurrently. Please retry.")
		}
		s.logger.Error("Failed to update order", zap.String("order", key.String()), zap.Error(err))
		return nil, NewInternalError(err)
	}
	return updated, nil
}

// sideEffect runs after the order write has committed.
type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

// dispatch runs effects in order. They outlive a cancelled request context
// but each one gets its own deadline, and their failures are only logged.
func (s *orderServiceImpl) dispatch(ctx context.Context, orderID string, effects ...sideEffect) {
	base := context.WithoutCancel(ctx)
	timeout := s.cfg.EffectTimeout
	if timeout <= 0 {
		timeout = defaultEffectTimeout
	}
	for _, e := range effects {
		if err := s.runEffect(base, timeout, e); err != nil {
			s.logger.Error("Order side effect failed",
				zap.String("order_id", orderID),
				zap.String("effect", e.name),
				zap.Error(err),
			)
		}
	}
}

func (s *orderServiceImpl) runEffect(ctx context.Context, timeout time.Duration, e sideEffect) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.run(ctx)
}

func (s *orderServiceImpl) publish(exchange, routingKey string, payload interface{}, description string) sideEffect {
	return sideEffect{
		name: "publish " + exchange + "/" + routingKey,
		run: func(ctx context.Context) error {
			if s.publisher == nil {
				s.logger.Warn("Event publisher not configured, skipping event", zap.String("exchange", exchange))
				return nil
			}
			b, err := json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			return s.publisher.Publish(ctx, exchange, routingKey, b, description)
		},
	}
}

func (s *orderServiceImpl) notify(order *models.Order, userTo, message string) sideEffect {
	return sideEffect{
		name: "notify " + userTo,
		run: func(ctx context.Context) error {
			if _, svcErr := s.notifier.Send(ctx, order, userTo, message); svcErr != nil {
				return svcErr
			}
			return nil
		},
	}
}

func (s *orderServiceImpl) count(ctx context.Context, metric string) {
	if err := s.metrics.RecordCount(ctx, metric, nil); err != nil {
		s.logger.Debug("Failed to record metric", zap.String("metric", metric), zap.Error(err))
	}
}

func (s *orderServiceImpl) orderURL(orderID string) string {
	return fmt.Sprintf("%s/orders/%s/activities", strings.TrimRight(s.cfg.ClientURL, "/"), orderID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
