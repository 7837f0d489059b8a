package session

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"xydo.org/internal/auth"
	"xydo.org/internal/kv"
)

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory())

	if _, ok := s.GetToken(ctx); ok {
		t.Fatal("expected no token")
	}
	if err := s.SetToken(ctx, "opaque"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if tok, ok := s.GetToken(ctx); !ok || tok != "opaque" {
		t.Fatalf("GetToken = %q, %v", tok, ok)
	}
	if err := s.RemoveToken(ctx); err != nil {
		t.Fatalf("RemoveToken: %v", err)
	}
	if _, ok := s.GetToken(ctx); ok {
		t.Fatal("token present after removal")
	}
}

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory())

	cases := []struct {
		name string
		user User
	}{
		{name: "minimal", user: User{Name: "Ana", Role: auth.RoleCoach}},
		{name: "full", user: User{ID: "u1", Name: "Ben", Email: "ben@example.com", Role: auth.RolePlayer, Team: "t1", Verified: true}},
		{name: "extra fields", user: User{
			Name: "Cy",
			Role: auth.RoleAthlete,
			Extra: map[string]json.RawMessage{
				"_id":       json.RawMessage(`"665f"`),
				"stats":     json.RawMessage(`{"games":3,"tags":["a","b"]}`),
				"createdAt": json.RawMessage(`"2024-01-01T00:00:00Z"`),
			},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.user
			if err := s.SetUser(ctx, &u); err != nil {
				t.Fatalf("SetUser: %v", err)
			}
			got, ok := s.GetUser(ctx)
			if !ok {
				t.Fatal("GetUser absent")
			}
			want, _ := json.Marshal(tc.user)
			assertSameJSON(t, want, mustMarshal(t, got))
			if got.Name != tc.user.Name || got.Role != tc.user.Role || got.Identifier() != tc.user.Identifier() {
				t.Fatalf("fields mismatch: got %#v", got)
			}
		})
	}
}

func TestUserStoredJSONUnchanged(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := NewStore(mem)

	docs := []string{
		`{"name":"Ana","role":"coach","isVerified":false}`,
		`{"id":"","name":"","team":null}`,
		`{"_id":"u1","name":"Ana","role":"coach","team":{"_id":"t1","name":"Tigers"}}`,
		`{"id":42,"name":"Ben","email":"ben@example.com","isVerified":"yes"}`,
		`{"role":["coach"],"stats":{"games":3},"tags":[1,2]}`,
		`{}`,
	}
	for _, doc := range docs {
		t.Run(doc, func(t *testing.T) {
			if err := mem.SetItem(ctx, UserKey, doc); err != nil {
				t.Fatalf("SetItem: %v", err)
			}
			u, ok := s.GetUser(ctx)
			if !ok {
				t.Fatal("GetUser absent")
			}
			if err := s.SetUser(ctx, u); err != nil {
				t.Fatalf("SetUser: %v", err)
			}
			stored, _, _ := mem.GetItem(ctx, UserKey)
			assertSameJSON(t, []byte(doc), []byte(stored))
		})
	}
}

func TestUserTolerantFields(t *testing.T) {
	var u User
	doc := `{"id":42,"name":"Ana","role":"coach","team":{"_id":"t1","name":"Tigers"}}`
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.Name != "Ana" || u.Role != auth.RoleCoach {
		t.Fatalf("known fields not decoded: %#v", u)
	}
	if u.Team != "" || u.ID != "" {
		t.Fatalf("mismatched fields decoded: %#v", u)
	}
	if u.Identifier() != "42" {
		t.Fatalf("Identifier = %q", u.Identifier())
	}

	u.Name = "Ana B"
	out := mustMarshal(t, &u)
	assertSameJSON(t, []byte(`{"id":42,"name":"Ana B","role":"coach","team":{"_id":"t1","name":"Tigers"}}`), out)
}

func TestUserIdentifierFallback(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"_id":"665f","name":"Ana"}`), &u); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if u.Identifier() != "665f" {
		t.Fatalf("Identifier = %q", u.Identifier())
	}
	if (User{}).DisplayName() != "User" {
		t.Fatal("expected default display name")
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func assertSameJSON(t *testing.T, want, got []byte) {
	t.Helper()
	var w, g any
	if err := json.Unmarshal(want, &w); err != nil {
		t.Fatalf("want is not JSON: %v", err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("got is not JSON: %v", err)
	}
	if !reflect.DeepEqual(w, g) {
		t.Fatalf("JSON mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestGetUserInvalid(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := NewStore(mem)

	for _, raw := range []string{"{not json", "null", `"just a string"`, ""} {
		_ = mem.SetItem(ctx, UserKey, raw)
		if u, ok := s.GetUser(ctx); ok {
			t.Fatalf("GetUser(%q) = %#v, want absent", raw, u)
		}
	}
}

func TestSetAndClear(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := NewStore(mem)

	if err := s.Set(ctx, "tok", &User{Name: "Ana"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if mem.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", mem.Len())
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if mem.Len() != 0 {
		t.Fatalf("expected empty storage, got %d", mem.Len())
	}
}

type failingStorage struct{ kv.Storage }

var errBackend = errors.New("backend down")

func (failingStorage) GetItem(context.Context, string) (string, bool, error) {
	return "", false, errBackend
}
func (failingStorage) RemoveItem(context.Context, string) error { return errBackend }

func TestBackendFailures(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingStorage{Storage: kv.NewMemory()})

	if _, ok := s.GetToken(ctx); ok {
		t.Fatal("expected absent token on backend failure")
	}
	if _, ok := s.GetUser(ctx); ok {
		t.Fatal("expected absent user on backend failure")
	}
	if err := s.Clear(ctx); !errors.Is(err, errBackend) {
		t.Fatalf("Clear error = %v", err)
	}
}
