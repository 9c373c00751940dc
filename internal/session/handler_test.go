package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/party-queue-system/internal/auth"
	"github.com/party-queue-system/pkg/jwt"
	"github.com/party-queue-system/pkg/models"
	"github.com/party-queue-system/pkg/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiResponse struct {
	Session   *models.Session     `json:"session"`
	User      *models.CurrentUser `json:"user"`
	Song      *models.Song        `json:"song"`
	Token     string              `json:"token"`
	Outcome   Outcome             `json:"outcome"`
	Persisted bool                `json:"persisted"`
	Notice    *Notice             `json:"notice"`
	Error     string              `json:"error"`
}

type testClient struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func (c *testClient) do(method, path string, body interface{}) (int, apiResponse) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == auth.CookieName {
			c.cookie = ck
		}
	}

	var resp apiResponse
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			c.t.Fatalf("%s %s: bad body %s: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, resp
}

func newTestRouter(st store.Store) (*gin.Engine, *Service) {
	tokens := jwt.NewManager("test-secret", time.Hour)
	svc, _ := newTestService(st)

	r := gin.New()
	r.Use(auth.IdentityMiddleware(tokens))
	NewHandler(svc, auth.NewIssuer(tokens, false)).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func TestHandlerSessionFlow(t *testing.T) {
	router, _ := newTestRouter(store.NewMemory())
	host := &testClient{t: t, router: router}
	guest := &testClient{t: t, router: router}
	stranger := &testClient{t: t, router: router}

	status, resp := host.do(http.MethodPost, "/api/v1/sessions", CreateSessionRequest{SessionName: "Friday Night", HostName: "Dana"})
	if status != http.StatusCreated || resp.Session.ID != "ABC234" || !resp.User.IsHost || resp.Token == "" || !resp.Persisted {
		t.Fatalf("create: %d %+v", status, resp)
	}

	status, resp = guest.do(http.MethodPost, "/api/v1/sessions/join", JoinSessionRequest{Code: "abc234", Name: "Eli"})
	if status != http.StatusOK || resp.User.IsHost || resp.User.SessionCode != "ABC234" {
		t.Fatalf("join: %d %+v", status, resp)
	}

	status, resp = guest.do(http.MethodPost, "/api/v1/sessions/ABC234/songs", AddSongRequest{Title: "Bohemian Rhapsody", Artist: "Queen"})
	if status != http.StatusCreated || resp.Song == nil || resp.Notice == nil || resp.Notice.Message != `"Bohemian Rhapsody" added to the queue!` {
		t.Fatalf("add: %d %+v", status, resp)
	}
	songID := resp.Song.ID

	tests := []struct {
		name           string
		client         *testClient
		method         string
		path           string
		body           interface{}
		expectedStatus int
		outcome        Outcome
		notice         string
	}{
		{"no identity", stranger, http.MethodGet, "/api/v1/sessions/ABC234", nil, http.StatusUnauthorized, "", ""},
		{"view session", guest, http.MethodGet, "/api/v1/sessions/ABC234", nil, http.StatusOK, "", ""},
		{"missing title", guest, http.MethodPost, "/api/v1/sessions/ABC234/songs", AddSongRequest{Artist: "Queen"}, http.StatusBadRequest, "", "Please enter a song title."},
		{"bad direction", guest, http.MethodPost, "/api/v1/sessions/ABC234/songs/" + songID + "/vote", gin.H{"direction": "sideways"}, http.StatusBadRequest, "", ""},
		{"upvote", guest, http.MethodPost, "/api/v1/sessions/ABC234/songs/" + songID + "/vote", VoteRequest{Direction: models.VoteUp}, http.StatusOK, OutcomeApplied, ""},
		{"duplicate upvote", guest, http.MethodPost, "/api/v1/sessions/ABC234/songs/" + songID + "/vote", VoteRequest{Direction: models.VoteUp}, http.StatusOK, OutcomeRejectedDuplicate, "You already voted that way!"},
		{"guest cannot remove", guest, http.MethodDelete, "/api/v1/sessions/ABC234/songs/" + songID, nil, http.StatusForbidden, "", "Only the host can do that."},
		{"guest cannot clear", guest, http.MethodDelete, "/api/v1/sessions/ABC234/queue?confirm=true", nil, http.StatusForbidden, "", "Only the host can do that."},
		{"clear needs confirmation", host, http.MethodDelete, "/api/v1/sessions/ABC234/queue", nil, http.StatusBadRequest, "", ""},
		{"play next", guest, http.MethodPost, "/api/v1/sessions/ABC234/next", nil, http.StatusOK, OutcomeApplied, `Now playing: "Bohemian Rhapsody"`},
		{"play next on empty queue", host, http.MethodPost, "/api/v1/sessions/ABC234/next", nil, http.StatusOK, OutcomeNoop, ""},
		{"remove missing song", host, http.MethodDelete, "/api/v1/sessions/ABC234/songs/" + songID, nil, http.StatusOK, OutcomeNoop, ""},
		{"clear confirmed", host, http.MethodDelete, "/api/v1/sessions/ABC234/queue?confirm=true", nil, http.StatusOK, OutcomeApplied, "Queue cleared."},
		{"other session", host, http.MethodGet, "/api/v1/sessions/XYZ789", nil, http.StatusUnauthorized, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := tt.client.do(tt.method, tt.path, tt.body)
			if status != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d (%+v)", tt.expectedStatus, status, resp)
			}
			if tt.outcome != "" && resp.Outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s", resp.Outcome, tt.outcome)
			}
			if tt.notice != "" && (resp.Notice == nil || resp.Notice.Message != tt.notice) {
				t.Errorf("notice = %+v, want %q", resp.Notice, tt.notice)
			}
		})
	}

	_, resp = host.do(http.MethodGet, "/api/v1/sessions/ABC234", nil)
	s := resp.Session
	if s.NowPlaying == nil || s.NowPlaying.NetScore != 1 || len(s.Queue) != 0 || len(s.History) != 0 {
		t.Errorf("final session %+v", s)
	}
}

func TestHandlerJoinUnknownSession(t *testing.T) {
	router, _ := newTestRouter(store.NewMemory())
	c := &testClient{t: t, router: router}

	status, resp := c.do(http.MethodPost, "/api/v1/sessions/join", JoinSessionRequest{Code: "ZZZ999", Name: "Eli"})
	if status != http.StatusNotFound || resp.Error != "Session not found. Check the code and try again." {
		t.Errorf("join: %d %+v", status, resp)
	}
	if c.cookie != nil {
		t.Errorf("failed join must not issue an identity")
	}

	status, resp = c.do(http.MethodPost, "/api/v1/sessions", CreateSessionRequest{SessionName: "Friday"})
	if status != http.StatusBadRequest || resp.Error != "Please enter your display name." {
		t.Errorf("create: %d %+v", status, resp)
	}
}

func TestHandlerPersistenceFailures(t *testing.T) {
	st := newFlakyStore()
	router, _ := newTestRouter(st)
	host := &testClient{t: t, router: router}

	if status, _ := host.do(http.MethodPost, "/api/v1/sessions", CreateSessionRequest{SessionName: "Friday", HostName: "Dana"}); status != http.StatusCreated {
		t.Fatalf("create: %d", status)
	}

	st.fail(false, true)
	status, resp := host.do(http.MethodPost, "/api/v1/sessions/ABC234/songs", AddSongRequest{Title: "A", Artist: "B"})
	if status != http.StatusOK || resp.Persisted || len(resp.Session.Queue) != 1 {
		t.Errorf("write failure: %d %+v", status, resp)
	}
	if resp.Notice == nil || resp.Notice.Kind != NoticeError || resp.Notice.Message != "Failed to add song. Please try again." {
		t.Errorf("write failure notice: %+v", resp.Notice)
	}

	st.fail(true, false)
	status, _ = host.do(http.MethodGet, "/api/v1/sessions/ABC234", nil)
	if status != http.StatusServiceUnavailable {
		t.Errorf("read failure: status %d, want 503", status)
	}
}
