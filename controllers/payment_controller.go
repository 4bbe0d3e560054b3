package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shop-service/middlewares"
	"shop-service/models"
)

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("payments", "create_intent", succeeded(c))
	}()

	var req models.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.payments.CreateIntent(c.Request.Context(), middlewares.UserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Payment intent created successfully", res)
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	defer func() {
		middlewares.RecordOperation("payments", "confirm", succeeded(c))
	}()

	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.payments.Confirm(c.Request.Context(), middlewares.UserID(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Payment confirmed successfully", p)
}

func (h *Handler) GetPayments(c *gin.Context) {
	payments, err := h.payments.FindAll(c.Request.Context(), middlewares.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Payments retrieved successfully", payments)
}

func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := pathID(c, "id", "payment")
	if !ok {
		return
	}

	p, err := h.payments.FindOne(c.Request.Context(), id, middlewares.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Payment retrieved successfully", p)
}

func (h *Handler) GetOrderPayment(c *gin.Context) {
	orderID, ok := pathID(c, "orderId", "order")
	if !ok {
		return
	}

	p, err := h.payments.FindByOrder(c.Request.Context(), orderID, middlewares.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if p == nil {
		respondOK(c, http.StatusOK, "No payment found for this order", nil)
		return
	}
	respondOK(c, http.StatusOK, "Payment retrieved successfully", p)
}
