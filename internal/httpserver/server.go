// internal/httpserver/server.go
//
// HTTP server wiring for the digit span backend.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, request logging, panic recovery, CORS).
//   - Public endpoints: "/", "/health", "/play", "/guide/*".
//   - Game endpoints: POST /game/new, then /game/{id}/* guarded by the per-game token.
//   - Live view stream: GET /game/{id}/events (SSE).
//
// Notes:
//   - Everything except the event stream is bounded by a 10 s timeout and defaults to JSON.
//   - Start and check return as soon as the move is accepted (202); the timed part of the
//     move runs under the match context and shows up on the event stream.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/digitspan/assets"
	"github.com/robalobadob/digitspan/internal/guide"
	"github.com/robalobadob/digitspan/internal/store"
)

// Options configures a Server.
type Options struct {
	Secret    []byte        // HS256 key for game tokens
	TokenTTL  time.Duration // game token lifetime
	Origin    string        // allowed CORS origin
	DailySalt string        // seed salt for daily matches
	Clock     clockwork.Clock
}

// Server bundles router, match store and settings.
type Server struct {
	r     *chi.Mux
	store store.Store
	opts  Options
	clock clockwork.Clock
	http  *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("dev_secret_change_me")
	}
	s := &Server{r: chi.NewRouter(), store: st, opts: opts, clock: opts.Clock}

	// --- middleware ---
	s.r.Use(chimw.RequestID)      // add X-Request-ID
	s.r.Use(chimw.RealIP)         // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)        // one log line per request
	s.r.Use(chimw.Recoverer)      // recover from panics
	s.r.Use(corsFor(opts.Origin)) // credentials-friendly CORS

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","path":"` + r.URL.Path + `"}`))
	})

	s.r.Get("/play", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(assets.IndexHTML)
	})

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"digitspan-go","endpoints":["/health","/play","/guide/how-to-play","/guide/faq","POST /game/new","/game/{id}"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/debug/matches", func(w http.ResponseWriter, r *http.Request) {
			questions, howTo := guide.Stats()
			_ = json.NewEncoder(w).Encode(map[string]int{
				"live":           s.store.Len(),
				"faqQuestions":   questions,
				"howToPlayBytes": howTo,
			})
		})

		// --- guide ---
		r.Get("/guide/how-to-play", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(guideRes{Title: "How to play", Markdown: guide.HowToPlay()})
		})
		r.Get("/guide/faq", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(guideRes{Title: "FAQ", Markdown: guide.FAQ()})
		})

		// --- game ---
		r.Post("/game/new", s.handleNewGame)
		g := r.With(s.requireGameToken, s.withMatch)
		g.Get("/game/{id}", s.handleState)
		g.Post("/game/{id}/start", s.handleStart)
		g.Post("/game/{id}/input", s.handleInput)
		g.Post("/game/{id}/check", s.handleCheck)
		g.Post("/game/{id}/restart", s.handleRestart)
		g.Delete("/game/{id}", s.handleDelete)
	})

	// Streams stay open; no timeout.
	s.r.With(s.requireGameToken, s.withMatch).Get("/game/{id}/events", s.handleEvents)

	s.http = &http.Server{Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	// Closing the matches ends their event streams so Shutdown does not wait on them.
	s.http.RegisterOnShutdown(func() { _ = s.store.Close() })
	return s
}

type guideRes struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// Start begins serving HTTP on addr and blocks until the server stops.
// A graceful Shutdown makes it return nil.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }
