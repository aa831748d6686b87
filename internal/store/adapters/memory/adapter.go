// Package memory is the in-process storage backend. It backs tests and
// single-node dev setups; one RWMutex guards all tables, which is plenty at
// that scale and makes the compare-and-swap paths trivially atomic.
package memory

import (
	"context"
	"sync"

	"github.com/tastebase/auth/internal/domain/repository"
)

type Store struct {
	mu sync.RWMutex

	users         map[string]*repository.User
	usersByName   map[string]string
	usersByEmail  map[string]string
	usersByPhone  map[string]string
	sessions      map[string]*repository.Session
	sessionByHash map[string]string
	codes         map[string]*repository.VerificationCode
	attempts      []repository.LoginAttempt

	userRepo    *userRepo
	sessionRepo *sessionRepo
	codeRepo    *codeRepo
	attemptRepo *attemptRepo
}

func New() *Store {
	s := &Store{
		users:         make(map[string]*repository.User),
		usersByName:   make(map[string]string),
		usersByEmail:  make(map[string]string),
		usersByPhone:  make(map[string]string),
		sessions:      make(map[string]*repository.Session),
		sessionByHash: make(map[string]string),
		codes:         make(map[string]*repository.VerificationCode),
	}
	s.userRepo = &userRepo{s: s}
	s.sessionRepo = &sessionRepo{s: s}
	s.codeRepo = &codeRepo{s: s}
	s.attemptRepo = &attemptRepo{s: s}
	return s
}

func (s *Store) Users() repository.UserRepository                 { return s.userRepo }
func (s *Store) Sessions() repository.SessionRepository           { return s.sessionRepo }
func (s *Store) Codes() repository.CodeRepository                 { return s.codeRepo }
func (s *Store) LoginAttempts() repository.LoginAttemptRepository { return s.attemptRepo }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}

var (
	_ repository.UserRepository         = (*userRepo)(nil)
	_ repository.SessionRepository      = (*sessionRepo)(nil)
	_ repository.CodeRepository         = (*codeRepo)(nil)
	_ repository.LoginAttemptRepository = (*attemptRepo)(nil)
)
