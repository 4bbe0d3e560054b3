package controllers

import (
	"github.com/gin-gonic/gin"

	"shop-service/middlewares"
	"shop-service/models"
	"shop-service/utils"
)

// RegisterRoutes mounts the API on r. A nil limiter disables rate limiting.
func (h *Handler) RegisterRoutes(r gin.IRouter, tokens *utils.TokenIssuer, users middlewares.UserLookup, rl *middlewares.RateLimiter) {
	authenticated := middlewares.AuthMiddleware(tokens, users)
	admin := middlewares.RequireRole(models.RoleAdmin)

	strict := rl.Limit(middlewares.TierStrict)
	moderate := rl.Limit(middlewares.TierModerate)
	relaxed := rl.Limit(middlewares.TierRelaxed)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", strict, h.Register)
		auth.POST("/login", strict, h.Login)
		auth.POST("/refresh", strict, h.Refresh)
		auth.POST("/logout", authenticated, h.Logout)
	}

	userGroup := api.Group("/users", authenticated)
	{
		userGroup.GET("/me", relaxed, h.Me)
		userGroup.PATCH("/me", moderate, h.UpdateMe)
		userGroup.PATCH("/me/password", strict, h.ChangePassword)
		userGroup.DELETE("/me", moderate, h.DeleteMe)
		userGroup.GET("", admin, relaxed, h.ListUsers)
		userGroup.GET("/:id", admin, relaxed, h.GetUser)
		userGroup.DELETE("/:id", admin, moderate, h.DeleteUser)
	}

	categories := api.Group("/categories")
	{
		categories.GET("", relaxed, h.ListCategories)
		categories.GET("/slug/:slug", relaxed, h.GetCategoryBySlug)
		categories.GET("/:id", relaxed, h.GetCategory)
		categories.POST("", authenticated, admin, moderate, h.CreateCategory)
		categories.PATCH("/:id", authenticated, admin, moderate, h.UpdateCategory)
		categories.DELETE("/:id", authenticated, admin, moderate, h.DeleteCategory)
	}

	products := api.Group("/products")
	{
		products.GET("", relaxed, h.ListProducts)
		products.GET("/:id", relaxed, h.GetProduct)
		products.POST("", authenticated, admin, moderate, h.CreateProduct)
		products.PATCH("/:id", authenticated, admin, moderate, h.UpdateProduct)
		products.PATCH("/:id/stock", authenticated, admin, moderate, h.UpdateStock)
		products.DELETE("/:id", authenticated, admin, moderate, h.DeleteProduct)
	}

	orders := api.Group("/orders", authenticated)
	{
		orders.POST("", moderate, h.CreateOrder)
		orders.GET("", relaxed, h.GetUserOrders)
		orders.GET("/:id", relaxed, h.getOrder(false))
		orders.PATCH("/:id", moderate, h.updateOrder(false))
		orders.DELETE("/:id", moderate, h.cancelOrder(false))
	}

	adminOrders := api.Group("/admin/orders", authenticated, admin)
	{
		adminOrders.GET("", relaxed, h.GetAllOrders)
		adminOrders.GET("/:id", relaxed, h.getOrder(true))
		adminOrders.PATCH("/:id", moderate, h.updateOrder(true))
		adminOrders.DELETE("/:id", moderate, h.cancelOrder(true))
	}

	payments := api.Group("/payments", authenticated)
	{
		payments.POST("/create-intent", strict, h.CreatePaymentIntent)
		payments.POST("/confirm", strict, h.ConfirmPayment)
		payments.GET("", relaxed, h.GetPayments)
		payments.GET("/order/:orderId", relaxed, h.GetOrderPayment)
		payments.GET("/:id", relaxed, h.GetPayment)
	}

	carts := api.Group("/carts", authenticated)
	{
		carts.GET("/current", relaxed, h.CurrentCart)
	}
}
