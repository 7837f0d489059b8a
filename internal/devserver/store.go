package devserver

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"xydo.org/internal/auth"
	"xydo.org/internal/session"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
)

// Collections served by the generic CRUD handlers.
const (
	Teams    = "teams"
	Content  = "content"
	Videos   = "videos"
	Messages = "messages"
	Feedback = "feedback"
)

var collections = []string{Teams, Content, Videos, Messages, Feedback}

// Record is a stored document. "id" and "createdAt" are set by the store.
type Record map[string]any

type account struct {
	user         session.User
	passwordHash string
	createdAt    time.Time
}

// Directory is the in-memory backing store of the dev server.
type Directory struct {
	mu      sync.RWMutex
	users   map[string]*account
	byEmail map[string]string
	docs    map[string]map[string]Record
	seq     map[string][]string // insertion order per collection
	now     func() time.Time
}

func NewDirectory() *Directory {
	d := &Directory{
		users:   make(map[string]*account),
		byEmail: make(map[string]string),
		docs:    make(map[string]map[string]Record),
		seq:     make(map[string][]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, c := range collections {
		d.docs[c] = make(map[string]Record)
	}
	return d
}

// NewUser describes an account to create.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     auth.Role
	Team     string
	Verified bool
}

func (d *Directory) CreateUser(ctx context.Context, nu NewUser) (session.User, error) {
	email := normalizeEmail(nu.Email)
	hash, err := auth.HashPassword(nu.Password)
	if err != nil {
		return session.User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byEmail[email]; ok {
		return session.User{}, ErrEmailTaken
	}
	u := session.User{
		ID:       uuid.NewString(),
		Name:     nu.Name,
		Email:    email,
		Role:     nu.Role,
		Team:     nu.Team,
		Verified: nu.Verified,
	}
	d.users[u.ID] = &account{user: u, passwordHash: hash, createdAt: d.now()}
	d.byEmail[email] = u.ID
	return u, nil
}

// Authenticate checks credentials. An unverified account with the right
// password yields ErrNotVerified when requireVerified is set.
func (d *Directory) Authenticate(ctx context.Context, email, password string, requireVerified bool) (session.User, error) {
	d.mu.RLock()
	id, ok := d.byEmail[normalizeEmail(email)]
	var acc account
	if ok {
		acc = *d.users[id]
	}
	d.mu.RUnlock()

	if !ok || auth.VerifyPassword(acc.passwordHash, password) != nil {
		return session.User{}, ErrInvalidCredentials
	}
	if requireVerified && !acc.user.Verified {
		return session.User{}, ErrNotVerified
	}
	return acc.user, nil
}

// MarkVerified flags the account registered under email as verified.
func (d *Directory) MarkVerified(ctx context.Context, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return ErrNotFound
	}
	d.users[id].user.Verified = true
	return nil
}

func (d *Directory) GetUser(ctx context.Context, id string) (session.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.users[id]
	if !ok {
		return session.User{}, ErrNotFound
	}
	return acc.user, nil
}

// ListUsers returns users ordered by creation time.
func (d *Directory) ListUsers(ctx context.Context) []session.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	accs := make([]*account, 0, len(d.users))
	for _, acc := range d.users {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool {
		if accs[i].createdAt.Equal(accs[j].createdAt) {
			return accs[i].user.ID < accs[j].user.ID
		}
		return accs[i].createdAt.Before(accs[j].createdAt)
	})
	out := make([]session.User, len(accs))
	for i, acc := range accs {
		out[i] = acc.user
	}
	return out
}

// UserPatch holds the profile fields a client may change.
type UserPatch struct {
	Name *string    `json:"name"`
	Team *string    `json:"team"`
	Role *auth.Role `json:"role"`
}

func (d *Directory) UpdateUser(ctx context.Context, id string, p UserPatch) (session.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.users[id]
	if !ok {
		return session.User{}, ErrNotFound
	}
	if p.Name != nil {
		acc.user.Name = *p.Name
	}
	if p.Team != nil {
		acc.user.Team = *p.Team
	}
	if p.Role != nil {
		acc.user.Role = *p.Role
	}
	return acc.user, nil
}

func (d *Directory) DeleteUser(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	acc, ok := d.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(d.byEmail, acc.user.Email)
	delete(d.users, id)
	return nil
}

// Create stores a copy of rec in collection and returns it with its id.
func (d *Directory) Create(ctx context.Context, collection string, rec Record) (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	docs, ok := d.docs[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc := copyRecord(rec)
	id := uuid.NewString()
	doc["id"] = id
	doc["createdAt"] = d.now().Format(time.RFC3339)
	docs[id] = doc
	d.seq[collection] = append(d.seq[collection], id)
	return copyRecord(doc), nil
}

func (d *Directory) Get(ctx context.Context, collection, id string) (Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(doc), nil
}

// List returns the documents of collection in insertion order, keeping only
// those match accepts. A nil match keeps everything.
func (d *Directory) List(ctx context.Context, collection string, match func(Record) bool) ([]Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	docs, ok := d.docs[collection]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Record, 0, len(docs))
	for _, id := range d.seq[collection] {
		doc, ok := docs[id]
		if !ok || (match != nil && !match(doc)) {
			continue
		}
		out = append(out, copyRecord(doc))
	}
	return out, nil
}

// Update merges patch into the document. id and createdAt cannot change.
func (d *Directory) Update(ctx context.Context, collection, id string, patch Record) (Record, error) {
	return d.mutate(collection, id, func(doc Record) {
		for k, v := range patch {
			if k == "id" || k == "createdAt" {
				continue
			}
			doc[k] = v
		}
	})
}

func (d *Directory) Delete(ctx context.Context, collection, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	docs, ok := d.docs[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := docs[id]; !ok {
		return ErrNotFound
	}
	delete(docs, id)
	order := d.seq[collection]
	for i, v := range order {
		if v == id {
			d.seq[collection] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// Reply appends a reply by userID to a message.
func (d *Directory) Reply(ctx context.Context, id, userID, content string) (Record, error) {
	return d.mutate(Messages, id, func(doc Record) {
		replies, _ := doc["replies"].([]any)
		doc["replies"] = append(replies, map[string]any{
			"user":      userID,
			"content":   content,
			"createdAt": d.now().Format(time.RFC3339),
		})
	})
}

// Like toggles userID in the likes of a message.
func (d *Directory) Like(ctx context.Context, id, userID string) (Record, error) {
	return d.mutate(Messages, id, func(doc Record) {
		likes, _ := doc["likes"].([]any)
		kept := make([]any, 0, len(likes)+1)
		liked := false
		for _, l := range likes {
			if l == userID {
				liked = true
				continue
			}
			kept = append(kept, l)
		}
		if !liked {
			kept = append(kept, userID)
		}
		doc["likes"] = kept
	})
}

// TogglePin flips the pinned flag of a message.
func (d *Directory) TogglePin(ctx context.Context, id string) (Record, error) {
	return d.mutate(Messages, id, func(doc Record) {
		pinned, _ := doc["isPinned"].(bool)
		doc["isPinned"] = !pinned
	})
}

func (d *Directory) mutate(collection, id string, fn func(Record)) (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(doc)
	return copyRecord(doc), nil
}

// copyRecord is shallow apart from the slices the store appends to.
func copyRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if s, ok := v.([]any); ok {
			v = append([]any(nil), s...)
		}
		out[k] = v
	}
	return out
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
