package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/braindeck/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/braindeck/internal/api/middlewares"
	"github.com/markdave123-py/braindeck/internal/config"
	"github.com/markdave123-py/braindeck/internal/core"
	"github.com/markdave123-py/braindeck/internal/core/generation"
	"github.com/markdave123-py/braindeck/internal/core/remote"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(ctx context.Context, cfg *config.Config, db core.DbClient, obj core.ObjectClient, queue *generation.Queue, dispatcher *remote.Dispatcher) *Server {
	authHandler := handlers.NewAuthHandler(db)
	uploadHandler := handlers.NewUploadHandler(db, obj, cfg)
	generateHandler := handlers.NewGenerateHandler(db, queue)
	remoteHandler := handlers.NewRemoteHandler(db, dispatcher, cfg.CallbackSecret)
	suggestionHandler := handlers.NewSuggestionHandler(db)
	deckHandler := handlers.NewDeckHandler(db)
	cardHandler := handlers.NewCardHandler(db)
	subjectHandler := handlers.NewSubjectHandler(db)
	studyHandler := handlers.NewStudyHandler(db)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "x-callback-secret"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// The worker authenticates with the shared secret, not a JWT.
		api.Post("/remote/callback", remoteHandler.Callback)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)

			protected.Post("/uploads", uploadHandler.Create)
			protected.Get("/uploads", uploadHandler.List)
			protected.Delete("/uploads/{id}", uploadHandler.Delete)

			protected.Post("/generate", generateHandler.GenerateLocal)
			protected.Post("/generate-gemini", generateHandler.GenerateGemini)
			protected.Get("/generate/status", generateHandler.Status)
			protected.Post("/remote/dispatch", remoteHandler.Dispatch)

			protected.Get("/suggestions", suggestionHandler.List)
			protected.Patch("/suggestions/{id}", suggestionHandler.Update)
			protected.Post("/suggestions/{id}/accept", suggestionHandler.Accept)

			protected.Post("/subjects", subjectHandler.Create)
			protected.Get("/subjects", subjectHandler.List)

			protected.Post("/decks", deckHandler.Create)
			protected.Get("/decks", deckHandler.List)
			protected.Delete("/decks/{id}", deckHandler.Delete)
			protected.Get("/decks/{deckId}/cards", cardHandler.ListByDeck)
			protected.Patch("/cards/{id}", cardHandler.Update)
			protected.Delete("/decks/{deckId}/cards/{id}", cardHandler.Delete)

			protected.Get("/study/decks/{deckId}/due", studyHandler.Due)
			protected.Post("/study/review", studyHandler.Review)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
