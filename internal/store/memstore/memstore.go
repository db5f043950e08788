// Package memstore is an in-process store.Store used for tests and for running
// without postgres. Every call, and every WithinTx body, runs under one mutex.
package memstore

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/5w1tchy/book-reviews/internal/models"
	"github.com/5w1tchy/book-reviews/internal/store"
)

type pairKey struct{ bookID, userID string }

type state struct {
	books   map[string]models.Book
	reviews map[string]models.Review
	users   map[string]models.User

	byPair  map[pairKey]string // reviews_book_id_user_id_key
	byEmail map[string]string  // users_email_key
}

func newState() *state {
	return &state{
		books:   map[string]models.Book{},
		reviews: map[string]models.Review{},
		users:   map[string]models.User{},
		byPair:  map[pairKey]string{},
		byEmail: map[string]string{},
	}
}

// clone copies the maps. Rows are values and their slices are never mutated
// in place, so a shallow copy per map is a full snapshot.
func (st *state) clone() *state {
	return &state{
		books:   maps.Clone(st.books),
		reviews: maps.Clone(st.reviews),
		users:   maps.Clone(st.users),
		byPair:  maps.Clone(st.byPair),
		byEmail: maps.Clone(st.byEmail),
	}
}

type Store struct {
	mu    sync.Mutex
	st    *state
	now   func() time.Time
	newID func() string
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithIDs overrides the id generator.
func WithIDs(newID func() string) Option { return func(s *Store) { s.newID = newID } }

func New(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now, newID: store.NewID}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) repos() *repos { return &repos{st: s.st, now: s.now, newID: s.newID} }

// WithinTx runs fn with exclusive access. If fn fails, every write it made
// is discarded.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.st.clone()
	if err := fn(s.repos()); err != nil {
		s.st = snap
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }
