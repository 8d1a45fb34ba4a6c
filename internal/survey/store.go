package survey

import (
	"sort"
	"sync"

	"github.com/SAP-F-2025/survey-service/internal/models"
)

// Definition is an immutable snapshot of one loaded survey together with its registry.
type Definition struct {
	Survey   *models.Survey
	Registry *Registry
}

// Listener is notified after a definition was replaced. def is nil when the survey was removed.
type Listener func(surveyType string, def *Definition)

// Store holds the loaded survey definitions. One store is built per process and passed to
// whoever needs it; readers take snapshots and subscribe for changes.
type Store struct {
	mu        sync.RWMutex
	defs      map[string]*Definition
	listeners map[int]Listener
	nextID    int
}

func NewStore() *Store {
	return &Store{
		defs:      make(map[string]*Definition),
		listeners: make(map[int]Listener),
	}
}

// Snapshot returns the current definition of a survey type.
func (s *Store) Snapshot(surveyType string) (*Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.defs[surveyType]
	return def, ok
}

// Types lists the loaded survey types in sorted order.
func (s *Store) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	types := make([]string, 0, len(s.defs))
	for t := range s.defs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Put installs a survey, rebuilding its registry, and notifies subscribers.
func (s *Store) Put(sv *models.Survey) *Definition {
	def := &Definition{Survey: sv, Registry: BuildRegistry(sv)}

	s.mu.Lock()
	s.defs[sv.Type] = def
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(sv.Type, def)
	}
	return def
}

// Remove drops a survey type and notifies subscribers with a nil definition.
func (s *Store) Remove(surveyType string) {
	s.mu.Lock()
	if _, ok := s.defs[surveyType]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.defs, surveyType)
	listeners := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range listeners {
		l(surveyType, nil)
	}
}

// Subscribe registers a listener and returns the function that removes it.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// listenersLocked copies the listeners in subscription order; called with s.mu held.
func (s *Store) listenersLocked() []Listener {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}
