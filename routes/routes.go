package routes

import (
	"github.com/akozhin/matchup/handlers"
	appmw "github.com/akozhin/matchup/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	gameHandler *handlers.GameHandler,
	matchHandler *handlers.MatchHandler,
	tournamentHandler *handlers.TournamentHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	router.Use(appmw.Authenticate([]byte(jwtSecret)))

	router.Post("/users/signup", authHandler.SignUp)
	router.Post("/users/signin", authHandler.SignIn)

	router.Route("/games", func(r chi.Router) {
		r.Get("/", gameHandler.ListHandler)
		r.Post("/", gameHandler.CreateHandler)
		r.Get("/{gameID}", gameHandler.GetByIDHandler)
		r.Patch("/{gameID}", gameHandler.UpdateHandler)
		r.Delete("/{gameID}", gameHandler.DeleteHandler)
		r.Post("/{gameID}/cover", gameHandler.UploadCoverHandler)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/", matchHandler.ListHandler)
		r.Post("/", matchHandler.CreateHandler)
		r.Get("/{matchID}", matchHandler.GetByIDHandler)
		r.Patch("/{matchID}", matchHandler.UpdateHandler)
		r.Delete("/{matchID}", matchHandler.DeleteHandler)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Post("/", tournamentHandler.CreateHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Patch("/{tournamentID}", tournamentHandler.UpdateHandler)
		r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)
	})
}
