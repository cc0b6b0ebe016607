package routes

import (
	"net/http"
	"time"

	"github.com/gigconnectportfolio/gigconnect-order-service/controllers"
	"github.com/gigconnectportfolio/gigconnect-order-service/middleware"
	"github.com/gin-gonic/gin"
)

const BasePath = "/api/v1/order"

// RegisterHealthRoutes sets up the liveness probes.
func RegisterHealthRoutes(r *gin.Engine) {
	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Order service is healthy and OK."})
	}
	r.GET("/health", health)
	r.GET(BasePath+"/order-health", health)
}

// RegisterOrderRoutes sets up all order and notification routes. The live
// stream is registered outside the request timeout.
func RegisterOrderRoutes(r *gin.Engine, oc *controllers.OrderController, nc *controllers.NotificationController, stream gin.HandlerFunc, timeout time.Duration) {
	order := r.Group(BasePath)

	if stream != nil {
		order.GET("/notification/:userTo/stream", stream)
	}

	api := order.Group("", middleware.Timeout(timeout))

	api.GET("/notification/:userTo", nc.GetNotifications)
	api.PUT("/notification/mark-as-read", nc.MarkAsRead)

	api.POST("/", oc.CreateOrder)
	api.GET("/:orderId", oc.GetOrder)
	api.GET("/seller/:sellerId", oc.GetSellerOrders)
	api.GET("/buyer/:buyerId", oc.GetBuyerOrders)

	api.PUT("/verify/:transactionId/:txRef", oc.VerifyPayment)
	api.PUT("/cancel/:orderId", oc.CancelOrder)
	api.PUT("/extension/:orderId", oc.RequestExtension)
	api.PUT("/gig/:type/:orderId", oc.DeliveryDate)
	api.PUT("/deliver-order/:orderId", oc.DeliverOrder)
	api.PUT("/approve-order/:orderId", oc.ApproveOrder)
}
