package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.HandleSignup)
		r.Post("/login", s.HandleLogin)
	})

	// Meta webhook (public, Meta calls it)
	r.Route("/whatsapp/webhook", func(r chi.Router) {
		r.Get("/", s.HandleWebhookVerify)
		r.Post("/", s.HandleWebhookReceive)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Users
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListUsers)
			r.Post("/", s.HandleInviteUser)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", s.HandleDeleteUser)
				r.Get("/permissions", s.HandleGetUserPermissions)
				r.Put("/permissions", s.HandleUpdateUserPermissions)
			})
		})

		// Tenants
		r.Route("/tenants", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListTenants)
			r.Get("/{id}", s.HandleGetTenant)
		})

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListConversations)
			r.Post("/", s.HandleCreateConversation)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/messages", s.HandleGetMessages)
				r.Post("/messages", s.HandleAppendMessage)
			})
		})

		// Chatbots
		r.Route("/chatbots", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListChatbots)
			r.Post("/", s.HandleCreateChatbot)
		})

		// Contacts
		r.Route("/contacts", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListContacts)
			r.Post("/", s.HandleCreateContact)
		})

		// Campaigns
		r.Route("/campaigns", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListCampaigns)
			r.Post("/", s.HandleCreateCampaign)
		})

		// Message templates
		r.Route("/templates", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListTemplates)
			r.Post("/", s.HandleCreateTemplate)
			r.Post("/{id}/submit", s.HandleSubmitTemplate)
		})

		// Analytics
		r.Route("/analytics", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/overview", s.HandleAnalyticsOverview)
		})

		// WhatsApp integration
		r.Route("/whatsapp", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/send", s.HandleSendMessage)
			r.Get("/accounts", s.HandleListWhatsAppAccounts)
			r.Post("/accounts", s.HandleCreateWhatsAppAccount)
		})

		// Meta Cloud API credentials
		r.Route("/meta", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/config", s.HandleGetMetaConfig)
			r.Post("/config", s.HandleUpsertMetaConfig)
		})
	})
}
