package subscription

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches subscription endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc) {
	router.POST("/courses/:courseId/subscription", auth, handler.Toggle)
	router.GET("/courses/:courseId/subscription", auth, handler.Status)
	router.GET("/my-subscriptions", auth, handler.ListMine)
}
