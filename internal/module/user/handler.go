package user

import (
	"github.com/gin-gonic/gin"

	"github.com/simp-lee/saleads/internal/domain"
	"github.com/simp-lee/saleads/internal/pkg"
)

// UserHandler handles REST API requests for the user resource.
type UserHandler struct {
	svc domain.UserService
}

// NewUserHandler creates a new UserHandler with the given service.
func NewUserHandler(svc domain.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Profile handles GET /api/v1/users/:username.
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.svc.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		pkg.Error(c, err)
		return
	}
	pkg.Success(c, newProfileResponse(user))
}
