// Package directory owns the authoritative in-memory contact list and
// persists it after every mutation.
package directory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/smileynet/phonebook/internal/contact"
)

// Sentinel errors for caller-checkable conditions.
var (
	ErrNotFound  = errors.New("directory: contact not found")
	ErrAmbiguous = errors.New("directory: reference matches more than one contact")
)

// minPrefixLen is the shortest ID prefix Lookup accepts.
const minPrefixLen = 4

// Store persists the whole collection. Load never fails: implementations
// substitute an empty collection for unreadable data.
type Store interface {
	Load() []contact.Contact
	Save(contacts []contact.Contact) error
}

// Service is the single source of truth for the contact list.
// All methods are safe for concurrent use; saves are serialized.
type Service struct {
	mu       sync.Mutex
	store    Store
	contacts []contact.Contact
	log      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Service and synchronously loads the collection from store.
// Contacts loaded without an ID are assigned one; the assignment is
// persisted on the next save.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("directory")

	loaded := store.Load()
	s.contacts = make([]contact.Contact, 0, len(loaded))
	for _, c := range loaded {
		s.contacts = append(s.contacts, s.withID(c.Clone()))
	}
	s.log.Info("phonebook loaded", zap.Int("count", len(s.contacts)))
	return s
}

// AllContacts returns a copy of the list in insertion order.
func (s *Service) AllContacts() []contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.contacts)
}

// AddContact appends c and saves. Names are not checked for uniqueness.
// Invalid UTF-8 in the name or numbers is replaced with U+FFFD.
// The stored contact, with its assigned ID, is returned even when the save
// fails; the error reports the failed save.
func (s *Service) AddContact(c contact.Contact) (contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c = s.withID(sanitize(c.Clone()))
	s.contacts = append(s.contacts, c)
	s.log.Info("contact added", zap.String("name", c.FullName), zap.Stringer("id", c.ID))
	return c.Clone(), s.saveLocked()
}

// RemoveContact removes the first contact equal to c (by name). A missing
// contact is a no-op, but the collection is saved either way.
func (s *Service) RemoveContact(c contact.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(c); i >= 0 {
		s.contacts = slices.Delete(s.contacts, i, i+1)
		s.log.Info("contact removed", zap.String("name", c.FullName))
	}
	return s.saveLocked()
}

// UpdateContact replaces the first contact equal to old (by name) with
// updated and saves. If old is not present nothing changes, nothing is
// saved, and it reports false. The slot keeps its ID when updated has none.
func (s *Service) UpdateContact(old, updated contact.Contact) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(old)
	if i < 0 {
		s.log.Warn("update of a contact that is not in the list", zap.String("name", old.FullName))
		return false, nil
	}
	s.replaceLocked(i, updated)
	s.log.Info("contact updated", zap.String("from", old.FullName), zap.String("to", updated.FullName))
	return true, s.saveLocked()
}

// Search returns the contacts whose name contains query, or whose phone
// numbers contain it once spaces are removed. Matching is case-insensitive
// and order-preserving. A blank query returns every contact.
func (s *Service) Search(query string) []contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		return cloneAll(s.contacts)
	}

	nameQuery := fold(query)
	phoneQuery := fold(stripSpaces(query))
	var found []contact.Contact
	for _, c := range s.contacts {
		if matches(c, nameQuery, phoneQuery) {
			found = append(found, c.Clone())
		}
	}
	return found
}

func matches(c contact.Contact, nameQuery, phoneQuery string) bool {
	if c.FullName != "" && strings.Contains(fold(c.FullName), nameQuery) {
		return true
	}
	for _, p := range c.Phones {
		if strings.Contains(fold(stripSpaces(p.Number)), phoneQuery) {
			return true
		}
	}
	return false
}

// SortedByName returns a new list ordered by name, case-insensitively.
// Contacts without a name come last. The sort is stable.
func (s *Service) SortedByName() []contact.Contact {
	sorted := s.AllContacts()
	slices.SortStableFunc(sorted, compareNames)
	return sorted
}

func compareNames(a, b contact.Contact) int {
	switch {
	case a.FullName == "" && b.FullName == "":
		return 0
	case a.FullName == "":
		return 1
	case b.FullName == "":
		return -1
	}
	return strings.Compare(fold(a.FullName), fold(b.FullName))
}

// Save writes the current list to the store.
func (s *Service) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// Contact returns the contact with the given ID.
func (s *Service) Contact(id uuid.UUID) (contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfID(id)
	if i < 0 {
		return contact.Contact{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.contacts[i].Clone(), nil
}

// Lookup resolves ref to a single contact. ref may be a full ID, an exact
// full name, or an ID prefix of at least four characters, tried in that
// order. A name such as "Face" therefore never resolves to another
// contact whose ID starts with "face".
func (s *Service) Lookup(ref string) (contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, err := uuid.Parse(ref); err == nil {
		if i := s.indexOfID(id); i >= 0 {
			return s.contacts[i].Clone(), nil
		}
	}

	var matched []int
	for i, c := range s.contacts {
		if c.FullName == ref {
			matched = append(matched, i)
		}
	}
	if len(matched) == 0 && len(ref) >= minPrefixLen {
		prefix := strings.ToLower(ref)
		for i, c := range s.contacts {
			if strings.HasPrefix(c.ID.String(), prefix) {
				matched = append(matched, i)
			}
		}
	}

	switch len(matched) {
	case 0:
		return contact.Contact{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	case 1:
		return s.contacts[matched[0]].Clone(), nil
	default:
		return contact.Contact{}, fmt.Errorf("%w: %q (%d matches)", ErrAmbiguous, ref, len(matched))
	}
}

// UpdateByID replaces the contact with the given ID and saves. The ID is
// kept. A missing ID returns ErrNotFound without saving.
func (s *Service) UpdateByID(id uuid.UUID, updated contact.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfID(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	old := s.contacts[i].FullName
	updated.ID = id
	s.replaceLocked(i, updated)
	s.log.Info("contact updated", zap.String("from", old), zap.String("to", updated.FullName), zap.Stringer("id", id))
	return s.saveLocked()
}

// RemoveByID removes the contact with the given ID and saves. A missing ID
// returns ErrNotFound without saving.
func (s *Service) RemoveByID(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfID(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	name := s.contacts[i].FullName
	s.contacts = slices.Delete(s.contacts, i, i+1)
	s.log.Info("contact removed", zap.String("name", name), zap.Stringer("id", id))
	return s.saveLocked()
}

func (s *Service) saveLocked() error {
	if err := s.store.Save(s.contacts); err != nil {
		s.log.Error("phonebook not saved, memory and disk differ", zap.Error(err))
		return fmt.Errorf("directory: saving: %w", err)
	}
	return nil
}

// replaceLocked stores updated at slot i, keeping the slot's ID when updated has none.
func (s *Service) replaceLocked(i int, updated contact.Contact) {
	updated = sanitize(updated.Clone())
	if updated.ID == uuid.Nil {
		updated.ID = s.contacts[i].ID
	} else if j := s.indexOfID(updated.ID); j >= 0 && j != i {
		updated.ID = s.contacts[i].ID
	}
	s.contacts[i] = updated
}

// sanitize replaces invalid UTF-8 in the name and numbers with U+FFFD.
// c must not share its Phones with the caller.
func sanitize(c contact.Contact) contact.Contact {
	c.FullName = strings.ToValidUTF8(c.FullName, "\uFFFD")
	for i := range c.Phones {
		c.Phones[i].Number = strings.ToValidUTF8(c.Phones[i].Number, "\uFFFD")
	}
	return c
}

// withID assigns a fresh ID when c has none or its ID is already taken.
func (s *Service) withID(c contact.Contact) contact.Contact {
	for c.ID == uuid.Nil || s.indexOfID(c.ID) >= 0 {
		c.ID = uuid.New()
	}
	return c
}

func (s *Service) indexOf(c contact.Contact) int {
	return slices.IndexFunc(s.contacts, c.Equal)
}

func (s *Service) indexOfID(id uuid.UUID) int {
	if id == uuid.Nil {
		return -1
	}
	return slices.IndexFunc(s.contacts, func(c contact.Contact) bool { return c.ID == id })
}

func cloneAll(contacts []contact.Contact) []contact.Contact {
	out := make([]contact.Contact, len(contacts))
	for i, c := range contacts {
		out[i] = c.Clone()
	}
	return out
}

// fold applies locale-independent case folding.
func fold(s string) string {
	return cases.Fold().String(s)
}

func stripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
