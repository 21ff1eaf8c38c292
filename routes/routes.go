package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/matchplay/tournament-engine/handlers"
	"github.com/matchplay/tournament-engine/middleware"
	"github.com/matchplay/tournament-engine/models"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Match      *handlers.MatchHandler
	Websocket  *handlers.WebsocketHandler
}

func InitRoutes(h Handlers, jwtSecret string) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/auth/chat", h.Auth.LinkChat)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.GetByID)
		r.Get("/{tournamentID}/standings", h.Tournament.Standings)
		r.Get("/{tournamentID}/teams", h.Team.List)
		r.Get("/{tournamentID}/matches", h.Match.List)

		// live updates, no auth so spectators can watch
		r.Get("/{tournamentID}/ws", h.Websocket.ServeTournament)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{tournamentID}/teams", h.Team.Register)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleOrganizer))

			r.Post("/", h.Tournament.Create)
			r.Post("/{tournamentID}/registration", h.Tournament.OpenRegistration)
			r.Post("/{tournamentID}/start", h.Tournament.Start)
			r.Post("/{tournamentID}/cancel", h.Tournament.Cancel)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Delete("/{teamID}", h.Team.Remove)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/{matchID}/results", h.Match.SubmitResult)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleOrganizer))
			r.Post("/{matchID}/disqualify", h.Match.DisqualifyTeam)
		})
	})

	router.Route("/results", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.Authorize(models.RoleOrganizer))

			r.Post("/{resultID}/approve", h.Match.ApproveResult)
			r.Post("/{resultID}/reject", h.Match.RejectResult)
			r.Post("/{resultID}/penalties", h.Match.SubmitPenalty)
		})
	})

	return router
}
