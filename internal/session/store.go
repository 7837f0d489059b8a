// Package session persists the bearer token and the cached user profile.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"xydo.org/internal/kv"
	"xydo.org/internal/obs"
)

// Storage keys.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Store is the session persisted in a kv.Storage. Token and user are written
// and cleared together by Set and Clear.
type Store struct {
	storage kv.Storage
}

func NewStore(storage kv.Storage) *Store {
	return &Store{storage: storage}
}

// GetToken returns the stored bearer token. Storage failures read as absent.
func (s *Store) GetToken(ctx context.Context) (string, bool) {
	v, ok, err := s.storage.GetItem(ctx, TokenKey)
	if err != nil {
		obs.Error("session token read failed", map[string]any{"error": err.Error()})
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.storage.SetItem(ctx, TokenKey, token)
}

func (s *Store) RemoveToken(ctx context.Context) error {
	return s.storage.RemoveItem(ctx, TokenKey)
}

// GetUser decodes the stored profile. A missing, null or malformed record is absent.
func (s *Store) GetUser(ctx context.Context) (*User, bool) {
	raw, ok, err := s.storage.GetItem(ctx, UserKey)
	if err != nil {
		obs.Error("session user read failed", map[string]any{"error": err.Error()})
		return nil, false
	}
	if !ok || raw == "" || raw == "null" {
		return nil, false
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, false
	}
	return &u, true
}

func (s *Store) SetUser(ctx context.Context, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}
	return s.storage.SetItem(ctx, UserKey, string(data))
}

func (s *Store) RemoveUser(ctx context.Context) error {
	return s.storage.RemoveItem(ctx, UserKey)
}

// Set stores token and user as one session.
func (s *Store) Set(ctx context.Context, token string, u *User) error {
	if err := s.SetToken(ctx, token); err != nil {
		return err
	}
	if err := s.SetUser(ctx, u); err != nil {
		_ = s.RemoveToken(ctx)
		return err
	}
	return nil
}

// Clear removes both entries. Both removals are attempted even if one fails.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(s.RemoveToken(ctx), s.RemoveUser(ctx))
}
