package user

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches user endpoints to the router. All of them need an
// authenticated caller.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc) {
	users := router.Group("/users", auth)
	{
		users.GET("", handler.List)
		users.GET("/me", handler.Me)
		users.GET("/:userId", handler.GetByID)
		users.PATCH("/:userId", handler.Update)
		users.PUT("/:userId", handler.Update)
		users.DELETE("/:userId", handler.Delete)
	}
}
