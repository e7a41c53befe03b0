package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server handles HTTP requests for the finsight API
type Server struct {
	service   *Service
	basicAuth BasicAuth
	router    *chi.Mux
}

// BasicAuth holds basic authentication credentials. Empty credentials
// disable authentication.
type BasicAuth struct {
	Username string
	Password string
}

func (a BasicAuth) enabled() bool {
	return a.Username != "" || a.Password != ""
}

// NewServer creates a new Server and registers its routes
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		router:    chi.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if !s.basicAuth.enabled() {
		return true
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// cors sets CORS headers on every response and answers preflight requests
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Finsight"`)
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/receipts", func(r chi.Router) {
			r.Post("/", s.handleUploadReceipt)
			r.Get("/", s.handleListScans)
			r.Get("/{id}", s.handleGetScan)
			r.Get("/{id}/file", s.handleGetScanFile)
			r.Delete("/{id}", s.handleDeleteScan)
		})

		r.Route("/fees", func(r chi.Router) {
			r.Post("/detect", s.handleDetectFees)
			r.Get("/report", s.handleFeeReport)
			r.Post("/", s.handleConfirmFee)
			r.Get("/", s.handleListFees)
		})

		r.Post("/subscriptions/detect", s.handleDetectSubscriptions)
		r.Post("/emails/classify", s.handleClassifyEmails)
	})
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
