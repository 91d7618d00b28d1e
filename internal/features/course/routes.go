package course

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches course endpoints to the router. Reads take the
// optional auth handler, writes the required one.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, optionalAuth, requiredAuth gin.HandlerFunc) {
	courses := router.Group("/courses")

	courses.GET("", optionalAuth, handler.List)
	courses.GET("/:courseId", optionalAuth, handler.GetByID)
	courses.POST("", requiredAuth, handler.Create)
	courses.PUT("/:courseId", requiredAuth, handler.Update)
	courses.PATCH("/:courseId", requiredAuth, handler.Update)
	courses.DELETE("/:courseId", requiredAuth, handler.Delete)
}
