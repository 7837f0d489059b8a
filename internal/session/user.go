package session

import (
	"bytes"
	"encoding/json"

	"xydo.org/internal/auth"
	"xydo.org/internal/record"
)

// User is the cached profile of the signed-in user. The record is opaque to
// the client: modelled fields are filled only when the server sends them in
// the expected shape, and every other key stays in Extra so the stored JSON
// round-trips unchanged.
type User struct {
	ID       string
	Name     string
	Email    string
	Role     auth.Role
	Team     string
	Verified bool

	Extra map[string]json.RawMessage

	present map[string]bool
}

func (u *User) fields() []record.Field {
	return []record.Field{
		{Key: "id", Value: &u.ID},
		{Key: "name", Value: &u.Name},
		{Key: "email", Value: &u.Email},
		{Key: "role", Value: &u.Role},
		{Key: "team", Value: &u.Team},
		{Key: "isVerified", Value: &u.Verified},
	}
}

// Identifier returns ID, falling back to a numeric "id" or a document-style
// "_id" field.
func (u User) Identifier() string {
	if u.ID != "" {
		return u.ID
	}
	for _, key := range []string{"id", "_id"} {
		if id := scalarText(u.Extra[key]); id != "" {
			return id
		}
	}
	return ""
}

// DisplayName returns Name or "User" when the profile has none.
func (u User) DisplayName() string {
	if u.Name == "" {
		return "User"
	}
	return u.Name
}

func (u User) MarshalJSON() ([]byte, error) {
	return record.Marshal(u.Extra, u.present, u.fields())
}

func (u *User) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var next User
	extra, present, err := record.Unmarshal(data, next.fields())
	if err != nil {
		return err
	}
	next.Extra, next.present = extra, present
	*u = next
	return nil
}

// scalarText renders a JSON string or number as text.
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		return n.String()
	}
	return ""
}
