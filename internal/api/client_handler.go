package api

import (
	"net/http"

	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/repository"
	"github.com/fouadsmari/DIA360-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ClientHandler struct {
	clients *service.ClientService
	logger  *logrus.Logger
}

func NewClientHandler(clients *service.ClientService, logger *logrus.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, logger: logger}
}

// ListClients GET /api/clients?search=&active=true&page=1&page_size=20
func (h *ClientHandler) ListClients(c *gin.Context) {
	page, pageSize := paging(c)
	filter := repository.ClientFilter{
		Search:     c.Query("search"),
		OnlyActive: c.Query("active") == "true",
	}
	list, total, err := h.clients.ListClients(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		respondError(c, h.logger, "list_clients", err)
		return
	}
	c.JSON(http.StatusOK, PageResult[*model.Client]{Items: list, Total: total, Page: page, PageSize: pageSize})
}

func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	client, err := h.clients.GetClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "get_client", err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) CreateClient(c *gin.Context) {
	var in service.ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	client, err := h.clients.CreateClient(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, "create_client", err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var in service.ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	client, err := h.clients.UpdateClient(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.logger, "update_client", err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.clients.DeleteClient(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "delete_client", err)
		return
	}
	c.Status(http.StatusNoContent)
}
