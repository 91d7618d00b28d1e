package lesson

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches lesson endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, optionalAuth, requiredAuth gin.HandlerFunc) {
	lessons := router.Group("/lessons")
	{
		lessons.GET("", optionalAuth, handler.List)
		lessons.GET("/:lessonId", optionalAuth, handler.GetByID)
		lessons.POST("", requiredAuth, handler.Create)
		lessons.PUT("/:lessonId", requiredAuth, handler.Update)
		lessons.PATCH("/:lessonId", requiredAuth, handler.Update)
		lessons.DELETE("/:lessonId", requiredAuth, handler.Delete)
	}
}
