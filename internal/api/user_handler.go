package api

import (
	"net/http"

	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	users  *service.UserService
	logger *logrus.Logger
}

func NewUserHandler(users *service.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// ListUsers GET /api/users?role=admin&page=1&page_size=20
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, pageSize := paging(c)
	list, total, err := h.users.ListUsers(c.Request.Context(), model.Role(c.Query("role")), page, pageSize)
	if err != nil {
		respondError(c, h.logger, "list_users", err)
		return
	}
	c.JSON(http.StatusOK, PageResult[*model.User]{Items: list, Total: total, Page: page, PageSize: pageSize})
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	u, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get_user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var in service.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.users.CreateUser(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		respondError(c, h.logger, "create_user", err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in service.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.users.UpdateUser(c.Request.Context(), actorFrom(c), id, in)
	if err != nil {
		respondError(c, h.logger, "update_user", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.DeleteUser(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, h.logger, "delete_user", err)
		return
	}
	c.Status(http.StatusNoContent)
}
