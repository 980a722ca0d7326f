// Package transcript holds the ordered conversation log shared by the
// session controller, the event interpreter, and UI bindings.
package transcript

import (
	"sync"
	"time"
)

// Kind discriminates transcript item variants.
type Kind string

const (
	KindMessage    Kind = "MESSAGE"
	KindBreadcrumb Kind = "BREADCRUMB"
	KindSeparator  Kind = "SEPARATOR"
)

// Status is a message item's lifecycle status.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
)

// Item is one transcript entry. Message items carry Role, Text and
// Status; breadcrumbs carry Title and optional Data; separators carry
// Title only.
type Item struct {
	ID        string
	Kind      Kind
	Role      string
	Title     string
	Text      string
	Data      any
	Status    Status
	Hidden    bool
	CreatedAt time.Time
}

// Store is an append-mostly ordered item log. All mutations preserve
// the order in which they were applied; ingestion by id is idempotent.
type Store struct {
	mu       sync.Mutex
	items    []Item
	index    map[string]int
	observer func()
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
		now:   time.Now,
	}
}

// SetObserver registers a callback invoked after every mutation. The
// callback runs outside the store lock.
func (s *Store) SetObserver(fn func()) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	fn := s.observer
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// AddMessage appends a message item. It reports false without
// modifying the log when an item with the same id already exists.
func (s *Store) AddMessage(id, role, text string) bool {
	return s.addMessage(id, role, text, false)
}

// AddHiddenMessage appends a message item excluded from user-facing
// rendering, such as a synthesized greeting prompt. Ingestion is
// idempotent by id like AddMessage.
func (s *Store) AddHiddenMessage(id, role, text string) bool {
	return s.addMessage(id, role, text, true)
}

func (s *Store) addMessage(id, role, text string, hidden bool) bool {
	s.mu.Lock()
	if _, exists := s.index[id]; exists {
		s.mu.Unlock()
		return false
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, Item{
		ID:        id,
		Kind:      KindMessage,
		Role:      role,
		Text:      text,
		Status:    StatusInProgress,
		Hidden:    hidden,
		CreatedAt: s.now(),
	})
	s.mu.Unlock()
	s.notify()
	return true
}

// Has reports whether an item with the given id exists.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.index[id]
	return exists
}

// AppendMessageText appends streamed delta text to the named message.
// Unknown ids are ignored.
func (s *Store) AppendMessageText(id, delta string) {
	s.updateMessage(id, func(item *Item) {
		item.Text += delta
	})
}

// SetMessageText replaces the named message's text with its final
// form. Unknown ids are ignored.
func (s *Store) SetMessageText(id, text string) {
	s.updateMessage(id, func(item *Item) {
		item.Text = text
	})
}

// SetStatus updates the named message's lifecycle status. Unknown ids
// are ignored.
func (s *Store) SetStatus(id string, status Status) {
	s.updateMessage(id, func(item *Item) {
		item.Status = status
	})
}

func (s *Store) updateMessage(id string, mutate func(*Item)) {
	s.mu.Lock()
	idx, exists := s.index[id]
	if !exists || s.items[idx].Kind != KindMessage {
		s.mu.Unlock()
		return
	}
	mutate(&s.items[idx])
	s.mu.Unlock()
	s.notify()
}

// AddBreadcrumb appends a diagnostic breadcrumb.
func (s *Store) AddBreadcrumb(title string, data any) {
	s.mu.Lock()
	s.items = append(s.items, Item{
		Kind:      KindBreadcrumb,
		Title:     title,
		Data:      data,
		CreatedAt: s.now(),
	})
	s.mu.Unlock()
	s.notify()
}

// AddBreadcrumbUnique appends a breadcrumb unless one with the same
// title exists anywhere in the log. It reports whether it appended.
func (s *Store) AddBreadcrumbUnique(title string, data any) bool {
	s.mu.Lock()
	for _, item := range s.items {
		if item.Kind == KindBreadcrumb && item.Title == title {
			s.mu.Unlock()
			return false
		}
	}
	s.items = append(s.items, Item{
		Kind:      KindBreadcrumb,
		Title:     title,
		Data:      data,
		CreatedAt: s.now(),
	})
	s.mu.Unlock()
	s.notify()
	return true
}

// AddSeparator appends a hand-off boundary marker unless the
// immediately preceding item is already that exact separator. It
// reports whether it appended.
func (s *Store) AddSeparator(title string) bool {
	s.mu.Lock()
	if n := len(s.items); n > 0 {
		last := s.items[n-1]
		if last.Kind == KindSeparator && last.Title == title {
			s.mu.Unlock()
			return false
		}
	}
	s.items = append(s.items, Item{
		Kind:      KindSeparator,
		Title:     title,
		CreatedAt: s.now(),
	})
	s.mu.Unlock()
	s.notify()
	return true
}

// Items returns an ordered snapshot of the log.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

// LastAssistantMessage returns the most recent assistant-role message
// item, if any.
func (s *Store) LastAssistantMessage() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.items) - 1; i >= 0; i-- {
		item := s.items[i]
		if item.Kind == KindMessage && item.Role == "assistant" {
			return item, true
		}
	}
	return Item{}, false
}

// Len returns the number of items in the log.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
