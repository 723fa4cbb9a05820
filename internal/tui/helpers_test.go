package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/smileynet/phonebook/internal/contact"
	"github.com/smileynet/phonebook/internal/directory"
)

// memStore is an in-memory directory.Store.
type memStore struct {
	contacts []contact.Contact
	err      error
}

func (s *memStore) Load() []contact.Contact { return s.contacts }

func (s *memStore) Save(contacts []contact.Contact) error {
	if s.err != nil {
		return s.err
	}
	s.contacts = append([]contact.Contact(nil), contacts...)
	return nil
}

// failingDirectory wraps a Directory and fails every removal.
type failingDirectory struct {
	Directory
}

func (failingDirectory) RemoveByID(uuid.UUID) error { return errors.New("disk full") }

func newDirectory() *directory.Service {
	return directory.New(&memStore{contacts: []contact.Contact{
		contact.New("Петров Пётр", contact.PhoneNumber{Number: "+7 931 922 23 21", Type: contact.Home}),
		contact.New("Иванов Иван",
			contact.PhoneNumber{Number: "+7 931 922 23 22", Type: contact.Mobile},
			contact.PhoneNumber{Number: "8 812 555 11 22", Type: contact.Work},
		),
		contact.New("Сидоров Сидор"),
	}})
}

// loadedModel returns a sized model with the initial fetch applied.
func loadedModel(t *testing.T, dir Directory) Model {
	t.Helper()
	m := NewModel(dir)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)
	return apply(t, m, m.Init())
}

// apply runs cmd and feeds its ContactsMsg/RemovedMsg results back into m.
// Commands that produce other messages (cursor blink) are ignored.
func apply(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range runCmd(cmd) {
		switch msg.(type) {
		case ContactsMsg, RemovedMsg:
			updated, next := m.Update(msg)
			m = apply(t, updated.(Model), next)
		}
	}
	return m
}

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var msgs []tea.Msg
	for _, c := range batch {
		msgs = append(msgs, runCmd(c)...)
	}
	return msgs
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and applies the resulting commands.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	updated, cmd := m.Update(k)
	return apply(t, updated.(Model), cmd)
}

func listNames(m Model) []string {
	out := make([]string, len(m.browse.contacts))
	for i, c := range m.browse.contacts {
		out[i] = c.FullName
	}
	return out
}

func assertList(t *testing.T, m Model, want ...string) {
	t.Helper()
	if got := listNames(m); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("list = %q, want %q", got, want)
	}
}
