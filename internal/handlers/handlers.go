package handlers

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/websocket"
	"github.com/ngenohkevin/prize_admin/internal/countdown"
	"github.com/ngenohkevin/prize_admin/internal/database"
	"github.com/ngenohkevin/prize_admin/internal/models"
	"github.com/ngenohkevin/prize_admin/internal/storage"
	"github.com/ngenohkevin/prize_admin/internal/templates"
)

// Credentials is the single admin account
type Credentials struct {
	Username string
	Password string
}

type Handler struct {
	DB       *database.DB
	Session  *scs.SessionManager
	Uploader storage.Uploader
	Clock    countdown.Clock
	Admin    Credentials

	upgrader websocket.Upgrader
	done     chan struct{}
	once     sync.Once
}

// New creates a new handler instance
func New(db *database.DB, session *scs.SessionManager, uploader storage.Uploader, admin Credentials) *Handler {
	return &Handler{
		DB:       db,
		Session:  session,
		Uploader: uploader,
		Clock:    countdown.RealClock{},
		Admin:    admin,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		done: make(chan struct{}),
	}
}

// Close ends every open countdown stream. Safe to call more than once.
func (h *Handler) Close() {
	h.once.Do(func() { close(h.done) })
}

// Home handles the dashboard request
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	now := h.Clock.Now()

	var stats models.DashboardStats
	var err error

	// Retry a couple of times; the pool may still be warming up
	for i := 0; i < 3; i++ {
		stats, err = models.GetDashboardStats(h.DB, now)
		if err == nil {
			break
		}
		log.Printf("Database error getting dashboard stats (attempt %d): %v", i+1, err)
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		http.Error(w, "Error getting dashboard stats", http.StatusInternalServerError)
		return
	}

	templates.Home(stats, now).Render(r.Context(), w)
}

// AUTH HANDLERS

// LoginPage displays the login form
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if h.Session.GetBool(r.Context(), "authenticated") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	templates.Login(r.URL.Query().Get("error")).Render(r.Context(), w)
}

// Login handles the login form submission
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if h.Admin.Username != "" && secureEqual(username, h.Admin.Username) && secureEqual(password, h.Admin.Password) {
		if err := h.Session.RenewToken(r.Context()); err != nil {
			http.Error(w, "Error starting session", http.StatusInternalServerError)
			return
		}
		h.Session.Put(r.Context(), "authenticated", true)
		h.Session.Put(r.Context(), "username", username)

		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	log.Printf("Failed login attempt for user %q", username)
	http.Redirect(w, r, "/login?error=Invalid+username+or+password", http.StatusSeeOther)
}

// Logout handles user logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Destroy(r.Context()); err != nil {
		http.Error(w, "Error ending session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// httpError maps model errors to a status code
func httpError(w http.ResponseWriter, what string, err error) {
	status := http.StatusInternalServerError
	var verrs models.ValidationErrors
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.As(err, &verrs):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		log.Printf("Error %s: %v", what, err)
	}
	http.Error(w, fmt.Sprintf("Error %s: %v", what, err), status)
}
