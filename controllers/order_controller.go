package controllers

import (
	"net/http"

	"github.com/gigconnectportfolio/gigconnect-order-service/models"
	"github.com/gigconnectportfolio/gigconnect-order-service/services"
	"github.com/gin-gonic/gin"
)

// OrderController handles HTTP requests for the order lifecycle.
type OrderController struct {
	orderService services.OrderService
	validator    *RequestValidator
}

func NewOrderController(svc services.OrderService) *OrderController {
	return &OrderController{orderService: svc, validator: NewRequestValidator()}
}

// CreateOrder handles POST /
func (oc *OrderController) CreateOrder(ctx *gin.Context) {
	var req models.CreateOrderRequest
	if err := oc.validator.BindJSON(ctx, &req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	res, svcErr := oc.orderService.CreateOrder(ctx.Request.Context(), &req)
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": "Order created successfully.", "order": res.Order, "txRef": res.TxRef})
}

// GetOrder handles GET /:orderId
func (oc *OrderController) GetOrder(ctx *gin.Context) {
	order, svcErr := oc.orderService.GetOrderByOrderID(ctx.Request.Context(), ctx.Param("orderId"))
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Order by order id", "order": order})
}

// GetSellerOrders handles GET /seller/:sellerId
func (oc *OrderController) GetSellerOrders(ctx *gin.Context) {
	orders, svcErr := oc.orderService.GetOrdersBySellerID(ctx.Request.Context(), ctx.Param("sellerId"))
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Seller orders", "orders": orders})
}

// GetBuyerOrders handles GET /buyer/:buyerId
func (oc *OrderController) GetBuyerOrders(ctx *gin.Context) {
	orders, svcErr := oc.orderService.GetOrdersByBuyerID(ctx.Request.Context(), ctx.Param("buyerId"))
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Buyer orders", "orders": orders})
}

// VerifyPayment handles PUT /verify/:transactionId/:txRef
func (oc *OrderController) VerifyPayment(ctx *gin.Context) {
	in := models.VerificationInput{
		TransactionID: ctx.Param("transactionId"),
		TxRef:         ctx.Param("txRef"),
	}
	if err := oc.validator.Struct(&in); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Transaction ID and reference are required", "details": err.Error()})
		return
	}

	order, svcErr := oc.orderService.VerifyPayment(ctx.Request.Context(), in)
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Payment verified successfully.", "order": order})
}

// CancelOrder handles PUT /cancel/:orderId. The body is optional.
func (oc *OrderController) CancelOrder(ctx *gin.Context) {
	var req models.CancelOrderRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}
	}

	order, svcErr := oc.orderService.CancelOrder(ctx.Request.Context(), ctx.Param("orderId"), req.OrderData)
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully.", "order": order})
}

// RequestExtension handles PUT /extension/:orderId
func (oc *OrderController) RequestExtension(ctx *gin.Context) {
	var in models.ExtensionInput
	if err := oc.validator.BindJSON(ctx, &in); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, svcErr := oc.orderService.RequestExtension(ctx.Request.Context(), ctx.Param("orderId"), &in)
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Order delivery date extension request", "order": order})
}

// DeliveryDate handles PUT /gig/:type/:orderId where type is approve or reject.
func (oc *OrderController) DeliveryDate(ctx *gin.Context) {
	orderID := ctx.Param("orderId")

	switch ctx.Param("type") {
	case "approve":
		// the stored proposal wins; the body is a fallback
		var in models.ExtensionInput
		if ctx.Request.ContentLength > 0 {
			if err := ctx.ShouldBindJSON(&in); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
				return
			}
		}
		order, svcErr := oc.orderService.ApproveExtension(ctx.Request.Context(), orderID, &in)
		if svcErr != nil {
			writeError(ctx, svcErr)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"message": "Order delivery date approved.", "order": order})
	case "reject":
		order, svcErr := oc.orderService.RejectExtension(ctx.Request.Context(), orderID)
		if svcErr != nil {
			writeError(ctx, svcErr)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"message": "Order delivery date rejected.", "order": order})
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "type must be approve or reject"})
	}
}

// DeliverOrder handles PUT /deliver-order/:orderId
func (oc *OrderController) DeliverOrder(ctx *gin.Context) {
	var req models.DeliverOrderRequest
	if err := oc.validator.BindJSON(ctx, &req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, svcErr := oc.orderService.DeliverOrder(ctx.Request.Context(), ctx.Param("orderId"), &req)
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Order delivered successfully.", "order": order})
}

// ApproveOrder handles PUT /approve-order/:orderId
func (oc *OrderController) ApproveOrder(ctx *gin.Context) {
	var req models.ApproveOrderRequest
	if err := oc.validator.BindJSON(ctx, &req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, svcErr := oc.orderService.ApproveOrder(ctx.Request.Context(), ctx.Param("orderId"), &req)
	if svcErr != nil {
		writeError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Order approved successfully.", "order": order})
}

// writeError renders a service error. Lost races are flagged so clients know
// a retry may succeed.
func writeError(ctx *gin.Context, svcErr *services.ServiceError) {
	body := gin.H{"error": svcErr.Message}
	if svcErr.Retryable {
		body["retryable"] = true
	}
	if svcErr.StatusCode >= http.StatusInternalServerError && svcErr.Err != nil {
		_ = ctx.Error(svcErr.Err)
	}
	ctx.JSON(svcErr.StatusCode, body)
}
