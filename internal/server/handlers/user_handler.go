package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/internal/repository/mongodb"
	"github.com/hgp-lactario/milkbank/pkg/folio"
)

var validRoles = map[models.Role]bool{
	models.RoleAdmin:       true,
	models.RoleMedico:      true,
	models.RoleEnfermeria:  true,
	models.RoleLaboratorio: true,
}

// UserHandler manages staff accounts. Accounts carry no credentials,
// so the handler talks to the repository directly.
type UserHandler struct {
	users  *mongodb.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewUserHandler constructs the HTTP handler adapter.
func NewUserHandler(users *mongodb.UserRepository, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{users: users, logger: logger, now: time.Now}
}

type userRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// Create registers a staff account.
func (h *UserHandler) Create(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !validRoles[models.Role(req.Role)] {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown role"})
		return
	}

	now := h.now().UTC()
	user := models.User{
		ID:        folio.NewID(),
		Name:      req.Name,
		Email:     req.Email,
		Role:      models.Role(req.Role),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.users.Insert(c.Request.Context(), user); err != nil {
		respondDomainError(c, err)
		return
	}

	h.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	c.JSON(http.StatusCreated, user)
}

// List returns all staff accounts.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// Get returns one staff account.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type userUpdateRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active *bool  `json:"active"`
}

// Update modifies the provided fields of a staff account.
func (h *UserHandler) Update(c *gin.Context) {
	var req userUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Role != "" {
		if !validRoles[models.Role(req.Role)] {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown role"})
			return
		}
		user.Role = models.Role(req.Role)
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedAt = h.now().UTC()

	if err := h.users.Update(c.Request.Context(), user); err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete removes a staff account.
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
