package handlers

import (
	"github.com/gin-gonic/gin"

	"agrosynchro-engine/internal/models"
)

// UserContextKey is where the auth middleware stores the resolved user.
const UserContextKey = "user"

func currentUser(c *gin.Context) *models.User {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
