package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtected(sm *scs.SessionManager) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return sm.LoadAndSave(Auth(sm)(mux))
}

func TestAuthRedirectsAnonymous(t *testing.T) {
	h := newProtected(scs.New())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/prizes", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestAuthHTMXRedirect(t *testing.T) {
	h := newProtected(scs.New())

	req := httptest.NewRequest(http.MethodGet, "/countdown?target=x", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("HX-Redirect"))
}

func TestAuthPublicPaths(t *testing.T) {
	h := newProtected(scs.New())

	for _, path := range []string{"/login", "/static/css/app.css", "/uploads/a.png"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAuthAllowsSession(t *testing.T) {
	sm := scs.New()
	h := newProtected(sm)

	// Sign in outside the auth middleware, then replay the cookie.
	signin := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sm.Put(r.Context(), "authenticated", true)
	}))
	rec := httptest.NewRecorder()
	signin.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/prizes", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMethodOverride(t *testing.T) {
	var got string
	h := MethodOverride(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Method
	}))

	req := httptest.NewRequest(http.MethodPost, "/prizes/1", strings.NewReader("_method=delete"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, http.MethodDelete, got)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/prizes", nil))
	assert.Equal(t, http.MethodGet, got)
}

func TestMethodOverrideLeavesMultipartBodyUnread(t *testing.T) {
	var (
		method string
		parsed bool
		body   string
	)
	h := MethodOverride(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		parsed = r.MultipartForm != nil || r.PostForm != nil
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))

	payload := "--b\r\nContent-Disposition: form-data; name=\"_method\"\r\n\r\ndelete\r\n--b--\r\n"
	send := func(target string) {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(payload))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	send("/prizes/1")
	assert.Equal(t, http.MethodPost, method)
	assert.False(t, parsed)
	assert.Equal(t, payload, body)

	send("/prizes/1?_method=put")
	assert.Equal(t, http.MethodPut, method)
	assert.False(t, parsed)
	assert.Equal(t, payload, body)
}
