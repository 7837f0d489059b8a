package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"xydo.org/internal/auth"
	"xydo.org/internal/kv"
	"xydo.org/internal/session"
)

type captured struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

// newStub serves every request with handler and records what it saw.
func newStub(t *testing.T, handler http.HandlerFunc) (*Client, *session.Store, *[]captured) {
	t.Helper()
	var seen []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, captured{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   string(body),
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store := session.NewStore(kv.NewMemory())
	return New(srv.URL+"/api", store, WithHTTPClient(srv.Client())), store, &seen
}

func reply(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}

func TestRequestAttachesBearerToken(t *testing.T) {
	ctx := context.Background()
	client, store, seen := newStub(t, reply(http.StatusOK, `{"success":true}`))

	if _, err := client.Request(ctx, "/teams", RequestOptions{}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if got := (*seen)[0].header.Get("Authorization"); got != "" {
		t.Fatalf("unexpected Authorization without token: %q", got)
	}

	if err := store.SetToken(ctx, "tok-1"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := client.Request(ctx, "/teams", RequestOptions{Header: http.Header{"Authorization": {"Bearer caller"}}}); err != nil {
			t.Fatalf("Request: %v", err)
		}
	}
	for _, c := range (*seen)[1:] {
		if got := c.header.Get("Authorization"); got != "Bearer tok-1" {
			t.Fatalf("Authorization = %q, want Bearer tok-1", got)
		}
		if c.header.Get("X-Request-ID") == "" {
			t.Fatal("expected X-Request-ID")
		}
	}
	if (*seen)[0].path != "/api/teams" || (*seen)[0].method != http.MethodGet {
		t.Fatalf("unexpected request %+v", (*seen)[0])
	}
}

func TestRequestHeadersAndBody(t *testing.T) {
	ctx := context.Background()
	client, _, seen := newStub(t, reply(http.StatusOK, `{"success":true}`))

	if _, err := client.Request(ctx, "/feedback", RequestOptions{Method: http.MethodPost, Body: map[string]int{"rating": 5}}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := client.Request(ctx, "/feedback", RequestOptions{
		Method: http.MethodPost,
		Header: http.Header{"content-type": {"text/plain"}},
		Body:   `{"raw":true}`,
	}); err != nil {
		t.Fatalf("Request: %v", err)
	}

	first, second := (*seen)[0], (*seen)[1]
	if first.header.Get("Content-Type") != "application/json" {
		t.Fatalf("default Content-Type = %q", first.header.Get("Content-Type"))
	}
	if first.body != `{"rating":5}` {
		t.Fatalf("encoded body = %q", first.body)
	}
	if second.header.Get("Content-Type") != "text/plain" {
		t.Fatalf("override Content-Type = %q", second.header.Get("Content-Type"))
	}
	if second.body != `{"raw":true}` {
		t.Fatalf("raw body = %q", second.body)
	}
}

func TestRequestFailures(t *testing.T) {
	cases := []struct {
		name        string
		code        int
		body        string
		wantMessage string
		wantVerify  bool
	}{
		{name: "server message", code: http.StatusBadRequest, body: `{"success":false,"error":"Email already registered"}`, wantMessage: "Email already registered"},
		{name: "message field", code: http.StatusNotFound, body: `{"message":"Team not found"}`, wantMessage: "Team not found"},
		{name: "no message", code: http.StatusInternalServerError, body: `{"success":false}`, wantMessage: GenericErrorMessage},
		{name: "not json", code: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantMessage: GenericErrorMessage},
		{name: "verification", code: http.StatusForbidden, body: `{"error":"Please verify your email","requiresVerification":true}`, wantMessage: "Please verify your email", wantVerify: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _, _ := newStub(t, reply(tc.code, tc.body))
			_, err := client.Request(context.Background(), "/teams", RequestOptions{})
			apiErr, ok := AsError(err)
			if !ok {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.Status != tc.code || apiErr.Message != tc.wantMessage || apiErr.RequiresVerification != tc.wantVerify {
				t.Fatalf("unexpected error %+v", apiErr)
			}
			if RequiresVerification(err) != tc.wantVerify {
				t.Fatalf("RequiresVerification = %v", !tc.wantVerify)
			}
		})
	}
}

func TestRequestSuccessBodies(t *testing.T) {
	client, _, _ := newStub(t, reply(http.StatusNoContent, ``))
	raw, err := client.Request(context.Background(), "/messages/1", RequestOptions{Method: http.MethodDelete})
	if err != nil || raw != nil {
		t.Fatalf("empty body = %q, %v", raw, err)
	}

	client, _, _ = newStub(t, reply(http.StatusOK, `not json`))
	_, err = client.Request(context.Background(), "/teams", RequestOptions{})
	if apiErr, ok := AsError(err); !ok || apiErr.Status != http.StatusOK {
		t.Fatalf("expected *Error for invalid JSON, got %v", err)
	}
}

func TestRequestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := New(base, session.NewStore(kv.NewMemory()))
	_, err := client.Request(context.Background(), "/teams", RequestOptions{})
	apiErr, ok := AsError(err)
	if !ok || !apiErr.IsTransport() || apiErr.Err == nil {
		t.Fatalf("expected transport *Error, got %#v", err)
	}
}

func TestLoginPersistsSession(t *testing.T) {
	ctx := context.Background()
	client, store, seen := newStub(t, reply(http.StatusOK,
		`{"success":true,"token":"jwt-1","data":{"id":"u1","name":"Ana","email":"ana@example.com","role":"coach"}}`))

	resp, err := client.Login(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token != "jwt-1" || resp.Data.Name != "Ana" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if tok, ok := store.GetToken(ctx); !ok || tok != "jwt-1" {
		t.Fatalf("token not persisted: %q %v", tok, ok)
	}
	u, ok := store.GetUser(ctx)
	if !ok || u.Role != auth.RoleCoach || u.ID != "u1" {
		t.Fatalf("user not persisted: %+v", u)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte((*seen)[0].body), &body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	if body["email"] != "ana@example.com" || body["password"] != "secret1" || (*seen)[0].method != http.MethodPost {
		t.Fatalf("unexpected login request %+v", (*seen)[0])
	}
}

func TestLoginFailureDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	client, store, _ := newStub(t, reply(http.StatusUnauthorized, `{"success":false,"error":"Invalid credentials","token":"leaked"}`))

	_, err := client.Login(ctx, "ana@example.com", "nope")
	apiErr, ok := AsError(err)
	if !ok || apiErr.Message != "Invalid credentials" {
		t.Fatalf("unexpected error %v", err)
	}
	if _, ok := store.GetToken(ctx); ok {
		t.Fatal("token persisted after failed login")
	}
	if _, ok := store.GetUser(ctx); ok {
		t.Fatal("user persisted after failed login")
	}
}

func TestRegisterWithoutTokenLeavesSessionEmpty(t *testing.T) {
	ctx := context.Background()
	client, store, seen := newStub(t, reply(http.StatusCreated, `{"success":true,"message":"Check your inbox","data":{"name":"Ben"}}`))

	resp, err := client.Register(ctx, RegisterRequest{Name: "Ben", Email: "ben@example.com", Password: "secret1", Role: auth.RolePlayer})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.Message != "Check your inbox" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, ok := store.GetToken(ctx); ok {
		t.Fatal("unexpected token")
	}
	var body map[string]any
	_ = json.Unmarshal([]byte((*seen)[0].body), &body)
	if _, ok := body["team"]; ok {
		t.Fatalf("empty team should be omitted: %v", body)
	}
	if body["role"] != "player" {
		t.Fatalf("unexpected role %v", body["role"])
	}
}

func TestLogoutAlwaysClears(t *testing.T) {
	ctx := context.Background()
	for _, code := range []int{http.StatusOK, http.StatusInternalServerError} {
		client, store, seen := newStub(t, reply(code, `{"success":true}`))
		_ = store.Set(ctx, "tok", &session.User{Name: "Ana"})

		err := client.Logout(ctx)
		if code == http.StatusOK && err != nil {
			t.Fatalf("Logout: %v", err)
		}
		if code != http.StatusOK && err == nil {
			t.Fatal("expected logout error to surface")
		}
		if _, ok := store.GetToken(ctx); ok {
			t.Fatalf("token survived logout (status %d)", code)
		}
		if _, ok := store.GetUser(ctx); ok {
			t.Fatalf("user survived logout (status %d)", code)
		}
		if (*seen)[0].path != "/api/auth/logout" || (*seen)[0].header.Get("Authorization") != "Bearer tok" {
			t.Fatalf("unexpected logout request %+v", (*seen)[0])
		}
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	store := session.NewStore(kv.NewMemory())
	_ = store.Set(ctx, "tok", &session.User{Name: "Ana"})
	client := New(srv.URL, store)
	if err := client.Logout(ctx); err == nil {
		t.Fatal("expected transport error")
	}
	if _, ok := store.GetToken(ctx); ok {
		t.Fatal("token survived logout after transport failure")
	}
}

func TestMeRefreshesUser(t *testing.T) {
	ctx := context.Background()
	client, store, _ := newStub(t, reply(http.StatusOK, `{"success":true,"data":{"name":"Ana","role":"athlete","team":"t9"}}`))
	_ = store.Set(ctx, "tok", &session.User{Name: "Old"})

	if _, err := client.Me(ctx); err != nil {
		t.Fatalf("Me: %v", err)
	}
	u, ok := store.GetUser(ctx)
	if !ok || u.Name != "Ana" || u.Team != "t9" {
		t.Fatalf("user not refreshed: %+v", u)
	}
}

func TestResourceRoutes(t *testing.T) {
	ctx := context.Background()
	client, _, seen := newStub(t, reply(http.StatusOK, `{"success":true,"data":null}`))

	calls := []struct {
		name   string
		call   func() error
		method string
		path   string
		query  string
		body   string
	}{
		{"list users", func() error { _, err := client.ListUsers(ctx); return err }, "GET", "/api/users", "", ""},
		{"get user", func() error { _, err := client.GetUser(ctx, "u 1"); return err }, "GET", "/api/users/u 1", "", ""},
		{"update user", func() error { _, err := client.UpdateUser(ctx, "u1", Record{"name": "A"}); return err }, "PUT", "/api/users/u1", "", `{"name":"A"}`},
		{"delete user", func() error { _, err := client.DeleteUser(ctx, "u1"); return err }, "DELETE", "/api/users/u1", "", ""},
		{"list teams", func() error { _, err := client.ListTeams(ctx); return err }, "GET", "/api/teams", "", ""},
		{"get team", func() error { _, err := client.GetTeam(ctx, "t1"); return err }, "GET", "/api/teams/t1", "", ""},
		{"create team", func() error { _, err := client.CreateTeam(ctx, Record{"name": "Hawks"}); return err }, "POST", "/api/teams", "", `{"name":"Hawks"}`},
		{"update team", func() error { _, err := client.UpdateTeam(ctx, "t1", Record{"name": "B"}); return err }, "PUT", "/api/teams/t1", "", `{"name":"B"}`},
		{"delete team", func() error { _, err := client.DeleteTeam(ctx, "t1"); return err }, "DELETE", "/api/teams/t1", "", ""},
		{"list content", func() error { _, err := client.ListContent(ctx, 0); return err }, "GET", "/api/content", "", ""},
		{"list content week", func() error { _, err := client.ListContent(ctx, 3); return err }, "GET", "/api/content", "week=3", ""},
		{"get content", func() error { _, err := client.GetContent(ctx, "c1"); return err }, "GET", "/api/content/c1", "", ""},
		{"create content", func() error {
			_, err := client.CreateContent(ctx, Content{Week: 1, Title: "T", Role: "both"})
			return err
		}, "POST", "/api/content", "", `{"role":"both","title":"T","week":1}`},
		{"update content", func() error { _, err := client.UpdateContent(ctx, "c1", Record{"title": "U"}); return err }, "PUT", "/api/content/c1", "", `{"title":"U"}`},
		{"delete content", func() error { _, err := client.DeleteContent(ctx, "c1"); return err }, "DELETE", "/api/content/c1", "", ""},
		{"list videos", func() error { _, err := client.ListVideos(ctx, url.Values{"category": {"drills"}}); return err }, "GET", "/api/videos", "category=drills", ""},
		{"get video", func() error { _, err := client.GetVideo(ctx, "v1"); return err }, "GET", "/api/videos/v1", "", ""},
		{"create video", func() error { _, err := client.CreateVideo(ctx, Record{"url": "x"}); return err }, "POST", "/api/videos", "", `{"url":"x"}`},
		{"update video", func() error { _, err := client.UpdateVideo(ctx, "v1", Record{"url": "y"}); return err }, "PUT", "/api/videos/v1", "", `{"url":"y"}`},
		{"delete video", func() error { _, err := client.DeleteVideo(ctx, "v1"); return err }, "DELETE", "/api/videos/v1", "", ""},
		{"list messages", func() error { _, err := client.ListMessages(ctx, nil); return err }, "GET", "/api/messages", "", ""},
		{"get message", func() error { _, err := client.GetMessage(ctx, "m1"); return err }, "GET", "/api/messages/m1", "", ""},
		{"create message", func() error { _, err := client.CreateMessage(ctx, Record{"content": "hi"}); return err }, "POST", "/api/messages", "", `{"content":"hi"}`},
		{"reply", func() error { _, err := client.ReplyToMessage(ctx, "m1", "ok"); return err }, "POST", "/api/messages/m1/reply", "", `{"content":"ok"}`},
		{"like", func() error { _, err := client.LikeMessage(ctx, "m1"); return err }, "POST", "/api/messages/m1/like", "", ""},
		{"update message", func() error { _, err := client.UpdateMessage(ctx, "m1", Record{"content": "e"}); return err }, "PUT", "/api/messages/m1", "", `{"content":"e"}`},
		{"delete message", func() error { _, err := client.DeleteMessage(ctx, "m1"); return err }, "DELETE", "/api/messages/m1", "", ""},
		{"pin", func() error { _, err := client.PinMessage(ctx, "m1"); return err }, "PUT", "/api/messages/m1/pin", "", ""},
		{"submit feedback", func() error { _, err := client.SubmitFeedback(ctx, Record{"rating": 4}); return err }, "POST", "/api/feedback", "", `{"rating":4}`},
		{"list feedback", func() error { _, err := client.ListFeedback(ctx); return err }, "GET", "/api/feedback", "", ""},
	}
	for i, tc := range calls {
		if err := tc.call(); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		got := (*seen)[i]
		if got.method != tc.method || got.path != tc.path || got.query != tc.query || got.body != tc.body {
			t.Fatalf("%s: got %s %s?%s %q, want %s %s?%s %q", tc.name, got.method, got.path, got.query, got.body, tc.method, tc.path, tc.query, tc.body)
		}
	}
}

func TestDecodeContent(t *testing.T) {
	client, _, _ := newStub(t, reply(http.StatusOK,
		`{"success":true,"count":2,"data":[{"week":1,"title":"Footwork","role":"coach"},{"week":2,"title":"Shooting","role":"both"}]}`))
	resp, err := client.ListContent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	if resp.Count != 2 || len(resp.Data) != 2 {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	if !resp.Data[0].VisibleTo("coach") || resp.Data[0].VisibleTo("player") || !resp.Data[1].VisibleTo("player") {
		t.Fatal("unexpected visibility")
	}
}

func TestLoginToleratesUserShapes(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		wantID string
	}{
		{"nested team", `{"success":true,"token":"tok-9","data":{"_id":"u1","name":"Ana","role":"coach","team":{"_id":"t1","name":"Tigers"}}}`, "u1"},
		{"numeric id", `{"success":true,"token":"tok-9","data":{"id":42,"name":"Ana","role":"coach"}}`, "42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, store, _ := newStub(t, reply(http.StatusOK, tc.body))
			ctx := context.Background()

			resp, err := client.Login(ctx, "ana@example.com", "secret1")
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if resp.Data.Identifier() != tc.wantID || resp.Data.Role != auth.RoleCoach {
				t.Fatalf("unexpected user %#v", resp.Data)
			}
			if tok, ok := store.GetToken(ctx); !ok || tok != "tok-9" {
				t.Fatalf("token not stored: %q %v", tok, ok)
			}
			u, ok := store.GetUser(ctx)
			if !ok {
				t.Fatal("user not stored")
			}
			var sent struct {
				Data json.RawMessage `json:"data"`
			}
			_ = json.Unmarshal([]byte(tc.body), &sent)
			stored, _ := json.Marshal(u)
			if !sameJSON(t, sent.Data, stored) {
				t.Fatalf("stored user %s, want %s", stored, sent.Data)
			}
		})
	}
}

func TestMeToleratesNumericID(t *testing.T) {
	client, store, _ := newStub(t, reply(http.StatusOK, `{"success":true,"data":{"id":42,"name":"Ana","team":{"name":"Tigers"}}}`))
	ctx := context.Background()
	_ = store.SetToken(ctx, "tok")

	resp, err := client.Me(ctx)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if resp.Data.Identifier() != "42" {
		t.Fatalf("Identifier = %q", resp.Data.Identifier())
	}
	if u, ok := store.GetUser(ctx); !ok || u.Name != "Ana" {
		t.Fatalf("user not refreshed: %#v %v", u, ok)
	}
}

func TestUndecodableSuccessIsAPIError(t *testing.T) {
	cases := []struct {
		name string
		call func(c *Client) error
		body string
	}{
		{"login", func(c *Client) error { _, err := c.Login(context.Background(), "a@b.c", "secret1"); return err }, `{"success":true,"token":7,"data":{}}`},
		{"me", func(c *Client) error { _, err := c.Me(context.Background()); return err }, `{"success":true,"data":"nobody"}`},
		{"list content", func(c *Client) error { _, err := c.ListContent(context.Background(), 0); return err }, `{"success":true,"data":{"week":1}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, store, _ := newStub(t, reply(http.StatusOK, tc.body))
			err := tc.call(client)
			apiErr, ok := AsError(err)
			if !ok {
				t.Fatalf("expected *Error, got %T %v", err, err)
			}
			if apiErr.Status != http.StatusOK || apiErr.IsTransport() {
				t.Fatalf("unexpected error %+v", apiErr)
			}
			if _, ok := store.GetUser(context.Background()); ok && tc.name == "login" {
				t.Fatal("session stored for an undecodable login")
			}
		})
	}
}

func TestContentKeepsUnknownFields(t *testing.T) {
	body := `{"success":true,"count":1,"page":2,"data":[{"_id":"c1","week":"3","title":"Footwork","role":"both","videoUrl":"https://v/1","tags":["feet"]}]}`
	client, _, _ := newStub(t, reply(http.StatusOK, body))

	resp, err := client.ListContent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListContent: %v", err)
	}
	item := resp.Data[0]
	if item.Title != "Footwork" || item.Week != 0 || !item.VisibleTo("player") {
		t.Fatalf("unexpected item %#v", item)
	}
	out, _ := json.Marshal(item)
	if !sameJSON(t, json.RawMessage(`{"_id":"c1","week":"3","title":"Footwork","role":"both","videoUrl":"https://v/1","tags":["feet"]}`), out) {
		t.Fatalf("content re-encoded as %s", out)
	}
	if !sameJSON(t, json.RawMessage(body), resp.RawBody()) {
		t.Fatalf("raw body %s", resp.RawBody())
	}
}

func sameJSON(t *testing.T, a, b []byte) bool {
	t.Helper()
	var x, y any
	if err := json.Unmarshal(a, &x); err != nil {
		t.Fatalf("invalid JSON %s: %v", a, err)
	}
	if err := json.Unmarshal(b, &y); err != nil {
		t.Fatalf("invalid JSON %s: %v", b, err)
	}
	return reflect.DeepEqual(x, y)
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := error(&Error{Message: cause.Error(), Err: cause})
	if !errors.Is(err, cause) {
		t.Fatal("expected Unwrap to expose the cause")
	}
	if err.Error() != "api: dial tcp: refused" {
		t.Fatalf("unexpected text %q", err.Error())
	}
	if (&Error{Status: 400, Message: "bad"}).Error() != "api: bad (status 400)" {
		t.Fatal("unexpected status formatting")
	}
}
