package api

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kalambet/bankassist/internal/errx"
	"github.com/kalambet/bankassist/internal/session"
)

// DefaultIdle is how long an unused session stays open.
const DefaultIdle = time.Hour

// SessionLoader opens a session for a user id.
type SessionLoader interface {
	Load(userID string) (*session.Session, string)
}

// Registry holds open sessions in memory. Sessions expire after the idle
// period; every access extends it.
type Registry struct {
	loader   SessionLoader
	idle     time.Duration
	sessions *gocache.Cache
}

func NewRegistry(loader SessionLoader, idle time.Duration) *Registry {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Registry{
		loader:   loader,
		idle:     idle,
		sessions: gocache.New(idle, idle/2),
	}
}

// Open loads a new session for userID and returns it with the greeting.
// A failed load is an errx.NotFound error carrying the user-facing message.
func (r *Registry) Open(userID string) (*session.Session, string, error) {
	sess, msg := r.loader.Load(userID)
	if sess == nil {
		return nil, "", errx.New(errx.NotFound, "api.Open", msg)
	}
	r.sessions.SetDefault(sess.ID, sess)
	return sess, msg, nil
}

// Get returns an open session and refreshes its expiry.
func (r *Registry) Get(id string) (*session.Session, bool) {
	v, ok := r.sessions.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*session.Session)
	r.sessions.SetDefault(id, sess)
	return sess, true
}

// ForUser returns the session bound to userID, opening one if needed.
func (r *Registry) ForUser(userID string) (*session.Session, error) {
	key := "user/" + userID
	if v, ok := r.sessions.Get(key); ok {
		id := v.(string)
		if sess, ok := r.Get(id); ok {
			r.sessions.SetDefault(key, id)
			return sess, nil
		}
	}
	sess, _, err := r.Open(userID)
	if err != nil {
		return nil, err
	}
	r.sessions.SetDefault(key, sess.ID)
	return sess, nil
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}
