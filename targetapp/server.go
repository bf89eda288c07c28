// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package targetapp is a small "question of the day" site: a login page, a
// dashboard with a leaderboard and the question of the day, a JSON API and a
// websocket that pushes the question. It gives the harness something real to
// verify.
package targetapp

import (
	"context"
	"crypto/tls"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.html"))

const (
	DefaultDemoEmail    = "demo@example.com"
	DefaultDemoPassword = "demo-password"

	loadingTitle = "Loading..."
	failedTitle  = "Failed to fetch question"
)

// Options represent server options.
type Options struct {
	Addr     string
	Listener net.Listener
	Cert     *tls.Certificate
	DataDir  string
	Storage  *storage.Storage
	Store    *Store
	Debug    bool

	AuthCookieName string
	TokenTTL       time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int

	// DemoEmail and DemoPassword are the seeded account of an empty store.
	DemoEmail    string
	DemoPassword string

	// LoadingRenders is the number of dashboard renders, per user and per
	// sign in, that show the question placeholder instead of the question.
	LoadingRenders int
	// QOTDDelay is how long the websocket waits before pushing the question.
	QOTDDelay time.Duration
	// UnsortedLeaderboard renders the leaderboard lowest score first.
	UnsortedLeaderboard bool
	// FailQOTD makes the question fail to load.
	FailQOTD bool
}

// app holds the state shared by the handlers.
type app struct {
	opts   Options
	store  *Store
	auth   *issuer
	hub    *hub
	debugf func(string, ...any)
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	app        *app
}

// Addr returns the address the server listens on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	scheme := "http"
	if s.httpServer.TLSConfig != nil {
		scheme = "https"
	}
	return scheme + "://" + s.listener.Addr().String()
}

// Store returns the data of the server.
func (s *Server) Store() *Store {
	return s.app.store
}

// SetQuestion replaces the question of the day and pushes it to every
// connected client.
func (s *Server) SetQuestion(q Question) error {
	return s.app.setQuestion(q)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.hub.closeAll()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// StartServer starts the web server on opts.Listener, or on a new listener
// bound to opts.Addr.
func StartServer(opts Options) (*Server, error) {
	a, err := newApp(opts)
	if err != nil {
		return nil, err
	}
	ln := opts.Listener
	if ln == nil {
		if ln, err = net.Listen("tcp", opts.Addr); err != nil {
			return nil, err
		}
	}
	httpServer := &http.Server{
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if opts.Cert != nil {
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*opts.Cert},
		}
	}

	go func() {
		var err error
		if httpServer.TLSConfig != nil {
			log.Printf("Starting HTTPS server on %s...", ln.Addr())
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			log.Printf("Starting HTTP server on %s...", ln.Addr())
			err = httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{httpServer: httpServer, listener: ln, app: a}, nil
}

// NewServerHandler returns the HTTP handler of the application.
func NewServerHandler(opts Options) (http.Handler, error) {
	a, err := newApp(opts)
	if err != nil {
		return nil, err
	}
	return a.handler(), nil
}

func newApp(opts Options) (*app, error) {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Storage == nil {
		opts.Storage = storage.New(opts.DataDir, nil)
	}
	if opts.DemoEmail == "" {
		opts.DemoEmail = DefaultDemoEmail
	}
	if opts.DemoPassword == "" {
		opts.DemoPassword = DefaultDemoPassword
	}
	store := opts.Store
	if store == nil {
		var err error
		if store, err = NewStore(opts.Storage, opts.BcryptCost); err != nil {
			return nil, err
		}
	}
	if err := store.Seed(opts.DemoEmail, opts.DemoPassword); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	auth, err := newIssuer(opts)
	if err != nil {
		return nil, err
	}
	a := &app{
		opts:   opts,
		store:  store,
		auth:   auth,
		hub:    newHub(),
		debugf: func(string, ...any) {},
	}
	if opts.Debug {
		a.debugf = func(f string, args ...any) {
			log.Printf("[DEBUG TARGETAPP] "+f, args...)
		}
	}
	return a, nil
}

func (s *app) handler() http.Handler {
	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r := chi.NewRouter()
	r.Use(cacheControlMiddleware)
	r.Use(securityMiddleware)
	r.Use(loggingMiddleware)
	r.Use(s.auth.middleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		if getUserID(r) != "" {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
	})
	r.Get("/auth", s.handleLoginPage)
	r.Post("/auth", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/dashboard", s.handleDashboard)
	r.Get("/ws", s.serveWS)
	r.Get("/.well-known/jwks.json", s.auth.serveJWKS)
	r.Route("/api/v1/qotd", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/today", s.handleToday)
		r.Get("/leaderboard", s.handleLeaderboard)
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(assets)))
	return r
}

type loginPage struct {
	Email string
	Error string
}

func (s *app) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if getUserID(r) != "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "auth.html", loginPage{})
}

func (s *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	u, ok := s.store.CheckPassword(email, r.PostForm.Get("password"))
	if !ok {
		log.Printf("[AUTH] Failed sign in for %s", maskEmail(normalizeEmail(email)))
		s.render(w, http.StatusUnauthorized, "auth.html", loginPage{Email: email, Error: "Invalid email or password"})
		return
	}
	if err := s.auth.setCookie(w, r, u); err != nil {
		log.Printf("Error signing token: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.store.ResetRenders(u.Email)
	log.Printf("[AUTH] Signed in %s", maskEmail(u.Email))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearCookie(w)
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

type dashboardPage struct {
	User        string
	Submissions []Submission
	Board       []Entry
	Title       string
	Link        string
	Pending     bool
}

func (s *app) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userId := getUserID(r)
	if userId == "" {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}
	page := dashboardPage{
		User:        userId,
		Submissions: s.store.Submissions(),
		Board:       s.leaderboard(),
		Title:       loadingTitle,
		Link:        "#",
	}
	if u, ok := s.store.User(userId); ok && u.Name != "" {
		page.User = u.Name
	}
	n := s.store.CountRender(userId)
	q, ok := s.store.Question()
	switch {
	case s.opts.FailQOTD:
		page.Title = failedTitle
	case n < s.opts.LoadingRenders || !ok:
		page.Pending = true
	default:
		page.Title = q.Title
		page.Link = q.Link
	}
	s.debugf("dashboard render %d for %s (pending=%v)", n, maskEmail(userId), page.Pending)
	s.render(w, http.StatusOK, "dashboard.html", page)
}

func (s *app) leaderboard() []Entry {
	board := s.store.Leaderboard()
	if s.opts.UnsortedLeaderboard {
		slices.Reverse(board)
	}
	return board
}

func (s *app) handleToday(w http.ResponseWriter, r *http.Request) {
	if s.opts.FailQOTD {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to fetch question"})
		return
	}
	q, ok := s.store.Question()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "No question available today"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"question": q})
}

func (s *app) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": s.leaderboard()})
}

func (s *app) setQuestion(q Question) error {
	if err := s.store.SetQuestion(q); err != nil {
		return err
	}
	s.hub.broadcast(Message{Type: MsgTypeQOTD, Question: &q})
	return nil
}

func (s *app) render(w http.ResponseWriter, code int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// cacheControlMiddleware keeps every dynamic response out of caches.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/static/") {
			w.Header().Set("Cache-Control", "public, max-age=300, no-transform")
		} else {
			w.Header().Set("Cache-Control", "private, no-cache, no-transform")
		}
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
