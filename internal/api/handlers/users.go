package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"agrosynchro-engine/internal/models"
)

// UserStore covers registration and profile lookup.
type UserStore interface {
	UpsertUser(ctx context.Context, mail string, cognitoSub, name *string) (*models.User, error)
}

type UserHandler struct {
	store UserStore
}

func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

type registerRequest struct {
	Mail       string  `json:"mail"`
	Email      string  `json:"email"`
	CognitoSub *string `json:"cognito_sub"`
	Name       *string `json:"name"`
}

// Register upserts a user by contact address. Legacy clients send "mail",
// newer ones "email" plus the identity subject.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	mail := req.Email
	if mail == "" {
		mail = req.Mail
	}
	if mail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	name := req.Name
	if name == nil {
		if at := strings.Index(mail, "@"); at > 0 {
			local := mail[:at]
			name = &local
		}
	}

	user, err := h.store.UpsertUser(c.Request.Context(), mail, req.CognitoSub, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Profile returns the authenticated user.
func (h *UserHandler) Profile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}
