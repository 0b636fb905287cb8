package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/ngenohkevin/prize_admin/internal/countdown"
	"github.com/ngenohkevin/prize_admin/internal/middleware"
	"github.com/ngenohkevin/prize_admin/internal/models"
	"github.com/ngenohkevin/prize_admin/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// stubClock is frozen at now and never fires timers. Stop on the pending
// timer is reported through stopped.
type stubClock struct {
	now     time.Time
	once    sync.Once
	stopped chan struct{}
}

func newStubClock() *stubClock {
	return &stubClock{now: now, stopped: make(chan struct{})}
}

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) AfterFunc(d time.Duration, f func()) countdown.Timer {
	return stubTimer{c}
}

type stubTimer struct{ c *stubClock }

func (t stubTimer) Stop() bool {
	t.c.once.Do(func() { close(t.c.stopped) })
	return true
}

func newTestHandler(clock countdown.Clock) *Handler {
	h := New(nil, scs.New(), nil, Credentials{Username: "admin", Password: "s3cret"})
	h.Clock = clock
	return h
}

func TestCountdownFragment(t *testing.T) {
	h := newTestHandler(newStubClock())

	tests := []struct {
		name  string
		query url.Values
		want  string
	}{
		{"coarse", url.Values{"target": {now.Add(90061 * time.Second).Format(time.RFC3339)}, "mode": {"coarse"}}, "1 Day: 1 Hours: 1 Mins left"},
		{"default mode is coarse", url.Values{"target": {now.Add(90061 * time.Second).Format(time.RFC3339)}}, "1 Day: 1 Hours: 1 Mins left"},
		{"fine", url.Values{"target": {now.Add(50 * time.Second).Format(time.RFC3339)}, "mode": {"fine"}}, "Hours: 0 Minutes: 0 Seconds: 50"},
		{"past target clamps", url.Values{"target": {"2020-01-01T00:00:00Z"}}, "0 Day: 0 Hours: 0 Mins left"},
		{"invalid target", url.Values{"target": {"whenever"}}, "Invalid date"},
		{"missing target", url.Values{}, "Invalid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Countdown(rec, httptest.NewRequest(http.MethodGet, "/countdown?"+tt.query.Encode(), nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		})
	}
}

func TestCountdownStream(t *testing.T) {
	clock := newStubClock()
	h := newTestHandler(clock)

	srv := httptest.NewServer(http.HandlerFunc(h.CountdownStream))
	defer srv.Close()

	q := url.Values{"target": {now.Add(50 * time.Second).Format(time.RFC3339)}, "mode": {"fine"}}
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/countdown/ws?" + q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	var msg tickMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "Hours: 0 Minutes: 0 Seconds: 50", msg.Text)
	assert.True(t, msg.Valid)
	assert.Equal(t, int64(50), msg.Seconds)

	require.NoError(t, conn.Close())

	select {
	case <-clock.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh cycle was not cancelled after the client left")
	}
}

func TestCountdownStreamInvalidTarget(t *testing.T) {
	h := newTestHandler(newStubClock())

	srv := httptest.NewServer(http.HandlerFunc(h.CountdownStream))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?target=nope", nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg tickMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, countdown.InvalidDate, msg.Text)
	assert.False(t, msg.Valid)
}

func postForm(h http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	h := newTestHandler(newStubClock())
	login := h.Session.LoadAndSave(http.HandlerFunc(h.Login))

	rec := postForm(login, "/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error=Invalid+username+or+password", rec.Header().Get("Location"))

	rec = postForm(login, "/login", url.Values{"username": {"admin"}, "password": {"s3cret"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	// A signed-in user skips the login page.
	page := h.Session.LoadAndSave(http.HandlerFunc(h.LoginPage))
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	page.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	logout := h.Session.LoadAndSave(http.HandlerFunc(h.Logout))
	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	logout.ServeHTTP(rec, req)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLoginRejectsEmptyAdmin(t *testing.T) {
	h := New(nil, scs.New(), nil, Credentials{})
	login := h.Session.LoadAndSave(http.HandlerFunc(h.Login))

	rec := postForm(login, "/login", url.Values{"username": {""}, "password": {""}})
	assert.Contains(t, rec.Header().Get("Location"), "error=")
}

func TestLoginPageShowsError(t *testing.T) {
	h := newTestHandler(newStubClock())
	page := h.Session.LoadAndSave(http.HandlerFunc(h.LoginPage))

	rec := httptest.NewRecorder()
	page.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login?error=Invalid+username+or+password", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
}

type fakeUploader struct {
	calls int
	body  string
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	b, _ := io.ReadAll(r)
	f.body = string(b)
	return "/uploads/" + name, nil
}

func multipartRequest(t *testing.T, fields map[string]string, filename, contentType, content string) *http.Request {
	t.Helper()
	body, ct := multipartBody(t, fields, filename, contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/prizes", body)
	req.Header.Set("Content-Type", ct)
	require.NoError(t, req.ParseMultipartForm(maxUploadSize))
	return req
}

func multipartBody(t *testing.T, fields map[string]string, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="thumbnail"; filename="%s"`, filename))
		if contentType != "" {
			hdr.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreatePrizeRejectsOversizedThumbnail(t *testing.T) {
	h := newTestHandler(newStubClock())
	r := chi.NewRouter()
	r.Use(middleware.MethodOverride)
	r.Post("/prizes", h.CreatePrize)

	body, ct := multipartBody(t, map[string]string{"prize_name": "Bike"}, "big.png", "image/png", strings.Repeat("x", 9<<20))
	req := httptest.NewRequest(http.MethodPost, "/prizes", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid form data")
}

func TestStageThumbnail(t *testing.T) {
	req := multipartRequest(t, map[string]string{"prize_name": "Bike"}, "bike.png", "image/png", "png")
	staged, err := stageThumbnail(req)
	require.NoError(t, err)
	require.NotNil(t, staged)
	assert.Equal(t, "bike.png", staged.Name)
	assert.Equal(t, "image/png", staged.ContentType)

	req = multipartRequest(t, map[string]string{"prize_name": "Bike"}, "", "", "")
	staged, err = stageThumbnail(req)
	require.NoError(t, err)
	assert.Nil(t, staged)

	req = multipartRequest(t, nil, "empty.png", "image/png", "")
	staged, err = stageThumbnail(req)
	require.NoError(t, err)
	assert.Nil(t, staged)

	req = httptest.NewRequest(http.MethodPost, "/prizes", nil)
	staged, err = stageThumbnail(req)
	require.NoError(t, err)
	assert.Nil(t, staged)
}

func TestResolveThumbnail(t *testing.T) {
	current := "/uploads/old.png"
	ctx := context.Background()

	up := &fakeUploader{}
	got, err := resolveThumbnail(ctx, up, &current, nil, false)
	require.NoError(t, err)
	assert.Equal(t, &current, got)
	assert.Zero(t, up.calls)

	got, err = resolveThumbnail(ctx, up, &current, nil, true)
	require.NoError(t, err)
	assert.Nil(t, got)

	req := multipartRequest(t, nil, "new.png", "image/png", "new-bytes")
	staged, err := stageThumbnail(req)
	require.NoError(t, err)

	got, err = resolveThumbnail(ctx, up, &current, staged, true)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "/uploads/new.png", *got)
	assert.Equal(t, "new-bytes", up.body)
	assert.Equal(t, 1, up.calls)

	_, err = resolveThumbnail(ctx, &fakeUploader{err: storage.ErrNotImage}, nil, staged, false)
	assert.ErrorIs(t, err, storage.ErrNotImage)
}

func TestWithPartner(t *testing.T) {
	approved := []string{"Akram"}
	assert.Equal(t, []string{"Akram"}, withPartner(approved, ""))
	assert.Equal(t, []string{"Akram"}, withPartner(approved, "Akram"))
	assert.Equal(t, []string{"Akram", "Jhon"}, withPartner(approved, "Jhon"))
	assert.Equal(t, []string{"Akram"}, approved)
}

func TestHTTPError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("prize x: %w", models.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("partner x is still referenced by prizes: %w", models.ErrConflict), http.StatusConflict},
		{models.ValidationErrors{"name": "Name is required"}, http.StatusUnprocessableEntity},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		httpError(rec, "testing", tt.err)
		assert.Equal(t, tt.code, rec.Code)
		assert.Contains(t, rec.Body.String(), "Error testing")
	}
}

func TestCloseEndsStreams(t *testing.T) {
	clock := newStubClock()
	h := newTestHandler(clock)

	srv := httptest.NewServer(http.HandlerFunc(h.CountdownStream))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?mode=fine&target=2030-01-01T00:00:00Z", nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg tickMessage
	require.NoError(t, conn.ReadJSON(&msg))

	h.Close()
	h.Close()

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	select {
	case <-clock.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh cycle was not cancelled on shutdown")
	}
}
