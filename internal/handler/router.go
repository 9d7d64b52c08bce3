package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/storefront/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware витрины.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{productID}", h.GetProduct)
	r.Get("/api/settings", h.GetPublicSettings)
	r.Get("/api/settings/discount", h.CalculateDiscount)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Get("/api/events", h.Events)
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/me", h.Me)

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddToCart)
			r.Put("/cart/items/{productID}", h.UpdateCartItem)
			r.Delete("/cart/items/{productID}", h.RemoveCartItem)

			r.Post("/orders", h.Checkout)
			r.Get("/orders", h.GetOrders)
			r.Get("/orders/{orderID}", h.GetOrder)

			r.Get("/chat", h.GetConversation)
			r.Get("/chat/messages", h.GetMyMessages)
			r.Post("/chat/messages", h.SendMyMessage)
			r.Post("/chat/read", h.MarkMyMessagesRead)
			r.Get("/chat/unread", h.GetMyUnread)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)
		r.Use(custommiddleware.RequireAdmin)

		r.Get("/stats", h.AdminStats)

		r.Get("/orders", h.AdminListOrders)
		r.Get("/orders/{orderID}", h.GetOrder)
		r.Patch("/orders/{orderID}", h.AdminUpdateOrderStatus)
		r.Post("/orders/{orderID}/confirm", h.AdminConfirmOrder)
		r.Post("/orders/{orderID}/cancel", h.AdminCancelOrder)
		r.Put("/orders/{orderID}/notes", h.AdminUpdateOrderNotes)

		r.Post("/products", h.CreateProduct)
		r.Patch("/products/{productID}", h.UpdateProduct)
		r.Delete("/products/{productID}", h.DeleteProduct)

		r.Get("/users", h.AdminListUsers)

		r.Get("/settings", h.AdminGetSettings)
		r.Put("/settings", h.AdminUpdateSettings)

		r.Get("/conversations", h.AdminListConversations)
		r.Get("/conversations/{conversationID}/messages", h.AdminGetMessages)
		r.Post("/conversations/{conversationID}/messages", h.AdminSendMessage)
		r.Post("/conversations/{conversationID}/read", h.AdminMarkRead)
		r.Get("/chat/unread", h.AdminUnread)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
