package realtime

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StreamHandler relays a recipient's live notifications as server-sent
// events until the client disconnects.
func StreamHandler(sub Subscriber, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userTo := c.Param("userTo")
		if userTo == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userTo is required"})
			return
		}

		ctx := c.Request.Context()
		messages, closeFn, err := sub.Subscribe(ctx, userTo)
		if err != nil {
			logger.Error("Failed to subscribe to live notifications", zap.String("user_to", userTo), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live notifications unavailable"})
			return
		}
		defer func() {
			if err := closeFn(); err != nil {
				logger.Warn("Failed to close live subscription", zap.Error(err))
			}
		}()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case msg, ok := <-messages:
				if !ok {
					return false
				}
				c.SSEvent(EventOrderNotification, json.RawMessage(msg))
				return true
			}
		})
	}
}
