package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vibestack/internal/items"
	"vibestack/internal/models"
)

func (h *Handler) listItems(c *gin.Context) {
	list, err := h.items.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if list == nil {
		list = []models.Item{}
	}
	c.JSON(http.StatusOK, models.ListResponse[models.Item]{Data: list})
}

func (h *Handler) getItem(c *gin.Context) {
	item, err := h.items.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.itemError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response[*models.Item]{Data: item})
}

func (h *Handler) createItem(c *gin.Context) {
	var in models.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	item, err := h.items.Create(c.Request.Context(), in)
	if err != nil {
		h.itemError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.Response[*models.Item]{Data: item, Message: "created"})
}

func (h *Handler) updateItem(c *gin.Context) {
	var in models.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.items.Update(c.Request.Context(), c.Param("id"), in); err != nil {
		h.itemError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response[any]{Message: "updated"})
}

func (h *Handler) deleteItem(c *gin.Context) {
	if err := h.items.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.itemError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.Response[any]{Message: "deleted"})
}

func (h *Handler) itemError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, items.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, items.ErrNameMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
