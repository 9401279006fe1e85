package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextUserIDKey AuthMiddleware 写入的用户 ID
const ContextUserIDKey = "user_id"

// getUserID 统一的 userID 读取工具
func getUserID(c *gin.Context) (int, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	userID, ok := v.(int)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return userID, true
}
