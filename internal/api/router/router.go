package router

import (
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"

	"github.com/nurtech/notify-hub/internal/api/handlers/notification"
)

const requestIDHeader = "X-Request-ID"

func New(handler *notification.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())
	e.Use(requestID())

	e.GET("/health", handler.Health)

	api := e.Group("/api/notifications")

	api.POST("", handler.Create)
	api.GET("/:id", handler.Get)
	api.GET("", handler.List)

	return e
}

// requestID tags every response with a request id, generating one when
// the client did not supply it.
func requestID() func(c *ginext.Context) {
	return func(c *ginext.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}
