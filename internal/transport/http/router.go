package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter assembles the REST API, the websocket attempt channel, and the
// health probe behind JWT auth and role-scoped subrouters.
func NewRouter(auth *AuthService, handlers *Handlers, ws *AttemptWSHandler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Route("/teacher", func(r chi.Router) {
			r.Use(RequireRole(RoleTeacher))
			r.Post("/quizzes", handlers.createQuiz)
			r.Get("/quizzes", handlers.listOwnQuizzes)
			r.Post("/quizzes/{id}/assign", handlers.assignQuiz)
			r.Get("/quizzes/{id}/results", handlers.quizResults)
			r.Delete("/quizzes/{id}", handlers.deleteQuiz)
		})

		r.Route("/student", func(r chi.Router) {
			r.Use(RequireRole(RoleStudent))
			r.Get("/quizzes", handlers.assignedQuizzes)
			r.Get("/quizzes/{id}", handlers.assignedQuiz)
			r.Post("/quizzes/{id}/start", handlers.startAttempt)
			r.Post("/quizzes/{id}/submit", handlers.submitAttempt)
			r.Get("/quizzes/{id}/result", handlers.attemptResult)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Get("/reports/quizzes", handlers.quizReports)
			r.Get("/reports/subjects", handlers.subjectReports)
			r.Get("/reports/teachers", handlers.teacherReports)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Use(RequireRole(RoleStudent))
		r.Get("/ws/attempt", ws.ServeWS)
	})

	return r
}
