package shareserver

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	errUserNotFound  = errors.New("user not found")
	errUserExists    = errors.New("user already exists")
	errShareNotFound = errors.New("share request not found")
)

// Account is a registered user in the stub service.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
}

// ShareRecord is the service-side share request row.
type ShareRecord struct {
	ID         string
	FromUserID string
	ToUsername string
	ToEmail    string
	Permission string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Repository is the in-memory backing store. Safe for concurrent use.
type Repository struct {
	mu     sync.RWMutex
	users  map[string]*Account     // by id
	byName map[string]string       // username -> id
	shares map[string]*ShareRecord // by id
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		users:  make(map[string]*Account),
		byName: make(map[string]string),
		shares: make(map[string]*ShareRecord),
	}
}

// CreateUser registers an account. Usernames and emails are unique.
func (r *Repository) CreateUser(username, email, passwordHash string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[username]; taken {
		return nil, errUserExists
	}
	for _, u := range r.users {
		if u.Email == email {
			return nil, errUserExists
		}
	}

	acct := &Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
	}
	r.users[acct.ID] = acct
	r.byName[username] = acct.ID
	return acct, nil
}

// UserByID looks up an account by id.
func (r *Repository) UserByID(id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errUserNotFound
	}
	cp := *u
	return &cp, nil
}

// UserByUsername looks up an account by username.
func (r *Repository) UserByUsername(username string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[username]
	if !ok {
		return nil, errUserNotFound
	}
	cp := *r.users[id]
	return &cp, nil
}

// UserByEmail looks up an account by email.
func (r *Repository) UserByEmail(email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errUserNotFound
}

// CreateShare inserts a pending share request.
func (r *Repository) CreateShare(fromUserID, toUsername, toEmail, permission string) *ShareRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	rec := &ShareRecord{
		ID:         uuid.NewString(),
		FromUserID: fromUserID,
		ToUsername: toUsername,
		ToEmail:    toEmail,
		Permission: permission,
		Status:     "pending",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.shares[rec.ID] = rec
	cp := *rec
	return &cp
}

// HasPending reports whether a pending request from fromUserID to toUsername
// already exists.
func (r *Repository) HasPending(fromUserID, toUsername string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.shares {
		if s.FromUserID == fromUserID && s.ToUsername == toUsername && s.Status == "pending" {
			return true
		}
	}
	return false
}

// Share looks up a request by id.
func (r *Repository) Share(id string) (*ShareRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shares[id]
	if !ok {
		return nil, errShareNotFound
	}
	cp := *s
	return &cp, nil
}

// SetStatus updates a request's status. The pending-only guard lives in the
// handler, which reads the record first.
func (r *Repository) SetStatus(id, status string) (*ShareRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shares[id]
	if !ok {
		return nil, errShareNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	cp := *s
	return &cp, nil
}

// SharesTo returns requests addressed to username with the given status,
// most recent first.
func (r *Repository) SharesTo(username, status string) []*ShareRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ShareRecord
	for _, s := range r.shares {
		if s.ToUsername == username && s.Status == status {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// SharesFrom returns all requests created by fromUserID, most recent first.
func (r *Repository) SharesFrom(fromUserID string) []*ShareRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ShareRecord
	for _, s := range r.shares {
		if s.FromUserID == fromUserID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
