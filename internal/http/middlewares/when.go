package middlewares

import "github.com/gin-gonic/gin"

// When runs mw only for requests matching pred. Other requests continue down the chain.
func When(pred func(*gin.Context) bool, mw gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !pred(c) {
			c.Next()
			return
		}
		mw(c)
	}
}
