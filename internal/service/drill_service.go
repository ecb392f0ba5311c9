package service

import (
	"errors"
	"log"
	"sync"
	"time"

	"tingxie/internal/drill"
	"tingxie/internal/models"
	"tingxie/internal/security"
)

// ErrSessionNotFound is returned for unknown or expired drill session IDs
var ErrSessionNotFound = errors.New("drill session not found")

// WordBankLoader resolves a list name to a word bank
type WordBankLoader interface {
	LoadWordBank(name string) (*drill.WordBank, *models.WordList, error)
}

type drillEntry struct {
	mu       sync.Mutex
	session  *drill.Session
	list     models.WordList
	lastUsed time.Time
}

// DrillService keeps running drill sessions in memory. Sessions are lost on
// restart.
type DrillService struct {
	lists       WordBankLoader
	sessionOpts []drill.Option
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*drillEntry
}

// NewDrillService creates a session store. opts are applied to every new
// drill.Session.
func NewDrillService(lists WordBankLoader, opts ...drill.Option) *DrillService {
	return &DrillService{
		lists:       lists,
		sessionOpts: opts,
		now:         time.Now,
		sessions:    make(map[string]*drillEntry),
	}
}

// Start begins a drill over the named list (empty for the default list) and
// returns the new session ID
func (s *DrillService) Start(listName string) (string, *models.WordList, error) {
	bank, list, err := s.lists.LoadWordBank(listName)
	if err != nil {
		return "", nil, err
	}

	id := security.GenerateSessionID()
	entry := &drillEntry{
		session:  drill.NewSession(bank, s.sessionOpts...),
		list:     *list,
		lastUsed: s.now(),
	}

	s.mu.Lock()
	s.sessions[id] = entry
	s.mu.Unlock()

	log.Printf("Drill session started: list=%q words=%d", list.Name, bank.Size())
	return id, list, nil
}

func (s *DrillService) lookup(id string) (*drillEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// With runs fn with exclusive access to the session
func (s *DrillService) With(id string, fn func(*drill.Session) error) error {
	entry, err := s.lookup(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.lastUsed = s.now()
	return fn(entry.session)
}

// List returns the word list a session was started from
func (s *DrillService) List(id string) (*models.WordList, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	list := entry.list
	return &list, nil
}

// End discards a session. Ending an unknown session is not an error.
func (s *DrillService) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Count returns the number of live sessions
func (s *DrillService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CleanupExpired drops sessions idle for longer than maxIdle
func (s *DrillService) CleanupExpired(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, entry := range s.sessions {
		entry.mu.Lock()
		idle := entry.lastUsed.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
