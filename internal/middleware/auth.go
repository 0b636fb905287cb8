package middleware

import (
	"mime"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
)

// publicPrefixes are served without a session
var publicPrefixes = []string{"/static/", "/uploads/"}

// Auth creates an authentication middleware with the given session manager
func Auth(sessionManager *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if !sessionManager.GetBool(r.Context(), "authenticated") {
				// HTMX swaps the response in place, so tell it to navigate instead
				if r.Header.Get("HX-Request") == "true" {
					w.Header().Set("HX-Redirect", "/login")
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MethodOverride lets HTML forms send PUT and DELETE through a _method
// field. The field is read from the query string, or from the body of a
// urlencoded form. Multipart bodies are left for the handler to parse under
// its own size limit, so multipart forms put _method in the action URL.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			method := r.URL.Query().Get("_method")
			if method == "" && isURLEncoded(r) {
				method = r.PostFormValue("_method")
			}
			if method != "" {
				r.Method = strings.ToUpper(method)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func isURLEncoded(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "application/x-www-form-urlencoded"
}

func isPublic(path string) bool {
	if path == "/login" {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
