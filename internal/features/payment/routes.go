package payment

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches payment endpoints to the router. The success and
// cancel pages are reachable without a token.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc) {
	payments := router.Group("/payments")
	{
		payments.GET("/success", handler.Success)
		payments.GET("/cancel", handler.Cancel)

		payments.GET("", auth, handler.List)
		payments.POST("/create", auth, handler.Create)
		payments.GET("/:paymentId/status", auth, handler.Status)
	}
}
