package routes

import (
	"tenf/portal/internal/api"
	"tenf/portal/internal/auth"
	"tenf/portal/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers every /api route. Reads are public unless
// noted; writes go through the safe mode guard.
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers, deps *api.Dependencies) {
	safeMode := middleware.SafeModeGuard(deps.Services.SafeMode)
	authLimiter := middleware.NewRateLimiter(1, 5, "127.0.0.1")

	// Auth
	r.Route("/auth", func(a chi.Router) {
		a.Group(func(limited chi.Router) {
			limited.Use(authLimiter.Middleware)
			limited.Get("/discord/login", handlers.DiscordLogin())
			limited.Get("/discord/callback", handlers.DiscordCallback())
			limited.Get("/twitch/callback", handlers.TwitchCallback())
			limited.Post("/admin/login", handlers.AdminLogin())
		})
		a.Post("/logout", handlers.Logout())
		a.Get("/me", handlers.Me())
		a.Get("/section-access", handlers.SectionAccess())
	})

	// Public reads
	r.Get("/members", handlers.ListMembers(false))
	r.Get("/members/{login}", handlers.GetMember())
	r.Get("/members/{login}/clips", handlers.MemberClips())
	r.Get("/members/{login}/videos", handlers.MemberVideos())
	r.Get("/events", handlers.ListEvents(false))
	r.Get("/events/{id}", handlers.GetEvent())
	r.Get("/spotlight/active", handlers.ActiveSpotlight())
	r.Get("/vip", handlers.GetVip())
	r.Get("/vip/{month}", handlers.GetVip())
	r.Get("/live", handlers.LiveStreams())
	r.Get("/academy/settings", handlers.AcademySettings())
	r.Get("/academy/promos", handlers.ListPromos())
	r.Get("/academy/promos/{id}/public-forms", handlers.PublicForms())

	// Signed-in members
	r.Group(func(member chi.Router) {
		member.Use(middleware.RequireAuth())
		member.Use(safeMode)

		member.Post("/events/{id}/register", handlers.RegisterForEvent())
		member.Delete("/events/{id}/register", handlers.UnregisterFromEvent())

		member.Get("/me/evaluations", handlers.MyEvaluations())
		member.Get("/me/twitch", handlers.TwitchStatus())
		member.Get("/me/twitch/link", handlers.TwitchLink())
		member.Delete("/me/twitch", handlers.TwitchUnlink())

		member.Post("/academy/promos/{id}/join", handlers.JoinPromo())
		member.Get("/academy/promos/{id}/access", handlers.MyPromoAccess())
		member.Get("/academy/promos/{id}/forms", handlers.MyForms())
		member.Post("/academy/promos/{id}/forms", handlers.SubmitForm())
	})

	// Admin panel, one group per section. Reads are gated by the section,
	// writes also by the matching permission.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin())
		admin.Use(safeMode)

		admin.Get("/safe-mode", handlers.SafeModeState())
		admin.With(
			middleware.RequireSection("/admin/safe-mode"),
			middleware.RequirePermission(auth.PermSafeModeToggle),
		).Put("/safe-mode", handlers.ToggleSafeMode())

		admin.Group(func(s chi.Router) {
			s.Use(middleware.RequireSection("/admin/spotlight"))
			s.Get("/spotlights", handlers.ListSpotlights())
			s.Get("/spotlights/{id}", handlers.GetSpotlight())

			w := s.With(middleware.RequirePermission(auth.PermSpotlightWrite))
			w.Post("/spotlights", handlers.StartSpotlight())
			w.Post("/spotlights/{id}/presence", handlers.SetSpotlightPresence())
			w.Put("/spotlights/{id}/criteria", handlers.SetSpotlightCriteria())
			w.Post("/spotlights/{id}/complete", handlers.EndSpotlight(true))
			w.Post("/spotlights/{id}/cancel", handlers.EndSpotlight(false))
		})

		admin.Group(func(s chi.Router) {
			s.Use(middleware.RequireSection("/admin/events"))
			s.Get("/events", handlers.ListEvents(true))
			s.Get("/events/{id}/registrations", handlers.EventRegistrations())

			w := s.With(middleware.RequirePermission(auth.PermEventsWrite))
			w.Post("/events", handlers.CreateEvent())
			w.Put("/events/{id}", handlers.UpdateEvent())
			w.Delete("/events/{id}", handlers.DeleteEvent())
		})

		admin.Group(func(s chi.Router) {
			s.Use(middleware.RequireSection("/admin/raids"))
			s.Get("/raids/{month}", handlers.ListRaids())
			s.Get("/raids/{month}/summary", handlers.RaidSummary())

			w := s.With(middleware.RequirePermission(auth.PermRaidsWrite))
			w.Post("/raids", handlers.AddRaid())
			w.Post("/raids/{month}/scan", handlers.ScanRaids())
			w.Post("/raids/{month}/dedupe", handlers.DedupeRaids())
			w.Post("/raids/{month}/ignore", handlers.IgnoreRaidPair())
			w.Post("/raids/{month}/recompute", handlers.RecomputeRaidPoints())
		})

		admin.Group(func(s chi.Router) {
			s.Use(middleware.RequireSection("/admin/membres"))
			s.Get("/members", handlers.ListMembers(true))

			w := s.With(middleware.RequirePermission(auth.PermMembersWrite))
			w.Post("/members", handlers.CreateMember())
			w.Patch("/members/{login}", handlers.UpdateMember())
			w.Delete("/members/{login}", handlers.DeactivateMember())
			w.Post("/members/import", handlers.ImportMembers())
		})

		admin.Group(func(s chi.Router) {
			s.Use(middleware.RequireSection("/admin/evaluation"))
			s.Get("/evaluations/member/{login}", handlers.MemberEvaluationHistory())
			s.Get("/evaluations/{month}", handlers.ListEvaluations())
			s.Get("/evaluations/{month}/status", handlers.MonthStatus())
			s.Get("/evaluations/{month}/export", handlers.ExportEvaluations())

			w := s.With(middleware.RequirePermission(auth.PermEvaluationsWrite))
			w.Put("/evaluations/{month}/{login}/bonus", handlers.SetBonus())
			w.Post("/evaluations/{month}/discord", handlers.ImportDiscordEngagement())
			w.Post("/evaluations/{month}/follow", handlers.SetFollow())
			w.Post("/evaluations/{month}/events", handlers.RecomputeEventScores())
			w.Post("/evaluations/{month}/close", handlers.CloseMonth())
		})

		admin.Group(func(s chi.Router) {
			s.Use(middleware.RequireSection("/admin/academy"))
			s.Get("/academy/promos/{id}/access", handlers.ListPromoAccess())
			s.Get("/academy/promos/{id}/forms", handlers.AdminPromoForms())

			w := s.With(middleware.RequirePermission(auth.PermAcademyWrite))
			w.Put("/academy/settings", handlers.UpdateAcademySettings())
			w.Post("/academy/promos", handlers.CreatePromo())
			w.Put("/academy/promos/{id}", handlers.UpdatePromo())
			w.Post("/academy/promos/{id}/access", handlers.GrantPromoAccess())
			w.Delete("/academy/promos/{id}/access/{discordId}", handlers.RevokePromoAccess())
		})

		admin.With(
			middleware.RequireSection("/admin/vip"),
			middleware.RequirePermission(auth.PermVipWrite),
		).Put("/vip/{month}", handlers.SetVip())

		admin.Group(func(s chi.Router) {
			s.Use(middleware.RequireSection("/admin/sync"))
			s.Get("/sync/check", handlers.CheckSync())

			w := s.With(middleware.RequirePermission(auth.PermSyncRun))
			w.Post("/members/sync", handlers.SyncMembers())
			w.Post("/sync/import/{entity}", handlers.ImportMissing())
		})

		admin.With(
			middleware.RequireSection("/admin/logs"),
			middleware.RequirePermission(auth.PermAuditRead),
		).Get("/logs", handlers.AuditLogs())
	})
}
