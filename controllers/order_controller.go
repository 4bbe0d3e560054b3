package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shop-service/middlewares"
	"shop-service/models"
)

func (h *Handler) CreateOrder(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("orders", "create", succeeded(c))
	}()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orders.Create(c.Request.Context(), middlewares.UserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Order created successfully", order)
}

func (h *Handler) GetUserOrders(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("orders", "list", succeeded(c))
	}()

	var q models.OrderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	orders, meta, err := h.orders.FindAll(c.Request.Context(), middlewares.UserID(c), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondList(c, orders, meta)
}

func (h *Handler) GetAllOrders(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("orders", "admin_list", succeeded(c))
	}()

	var q models.OrderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	orders, meta, err := h.orders.FindAllForAdmin(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondList(c, orders, meta)
}

// scope is the owner filter applied to single-order routes: the caller's id
// on the user routes, none on the admin routes.
func scope(c *gin.Context, admin bool) string {
	if admin {
		return ""
	}
	return middlewares.UserID(c)
}

func (h *Handler) getOrder(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			middlewares.RecordOperation("orders", "details", succeeded(c))
		}()

		id, ok := pathID(c, "id", "order")
		if !ok {
			return
		}

		order, err := h.orders.FindOne(c.Request.Context(), id, scope(c, admin))
		if err != nil {
			h.respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, "Order retrieved successfully", order)
	}
}

func (h *Handler) updateOrder(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			middlewares.RecordOperation("orders", "update", succeeded(c))
		}()

		id, ok := pathID(c, "id", "order")
		if !ok {
			return
		}
		var patch models.OrderPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			respondBindError(c, err)
			return
		}

		order, err := h.orders.Update(c.Request.Context(), id, patch, scope(c, admin))
		if err != nil {
			h.respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, "Order updated successfully", order)
	}
}

func (h *Handler) cancelOrder(admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			middlewares.RecordOperation("orders", "cancel", succeeded(c))
		}()

		id, ok := pathID(c, "id", "order")
		if !ok {
			return
		}

		order, err := h.orders.Cancel(c.Request.Context(), id, scope(c, admin))
		if err != nil {
			h.respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, "Order cancelled successfully", order)
	}
}
