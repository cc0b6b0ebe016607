package controllers

import (
	"net/http"

	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	"github.com/gigconnectportfolio/gigconnect-order-service/services"
	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	notificationService services.NotificationService
	validator           *RequestValidator
}

func NewNotificationController(svc services.NotificationService) *NotificationController {
	return &NotificationController{notificationService: svc, validator: NewRequestValidator()}
}

// GetNotifications handles GET /notification/:userTo
func (nc *NotificationController) GetNotifications(ctx *gin.Context) {
	page, size := parsePaginationParams(ctx)
	filter := models.NotificationFilter{
		UserTo:   ctx.Param("userTo"),
		Page:     page,
		PageSize: size,
	}

	items, total, svcErr := nc.notificationService.GetNotifications(ctx.Request.Context(), filter)
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":       "Notifications",
		"notifications": items,
		"total":         total,
		"page":          page,
		"page_size":     size,
	})
}

// MarkAsRead handles PUT /notification/mark-as-read
func (nc *NotificationController) MarkAsRead(ctx *gin.Context) {
	var req models.MarkAsReadRequest
	if err := nc.validator.BindJSON(ctx, &req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	n, svcErr := nc.notificationService.MarkAsRead(ctx.Request.Context(), req.NotificationID)
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Notification updated successfully.", "notification": n})
}
