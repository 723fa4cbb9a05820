// Package tui implements the two-pane phonebook browser: a contact list
// on the left and the selected contact's phones on the right.
package tui

import (
	"github.com/google/uuid"

	"github.com/smileynet/phonebook/internal/contact"
)

// Mode represents the current browser mode.
type Mode int

const (
	ModeBrowse  Mode = iota // Moving through the contact list.
	ModeSearch              // Typing into the search box.
	ModeConfirm             // Waiting for a yes/no on deletion.
)

// Directory is the subset of the directory service the browser uses.
type Directory interface {
	Search(query string) []contact.Contact
	SortedByName() []contact.Contact
	RemoveByID(id uuid.UUID) error
}

// --- tea.Msg types ---

// ContactsMsg carries a fetched contact list. Seq identifies the request so
// that results of superseded queries can be dropped.
type ContactsMsg struct {
	Seq      int
	Contacts []contact.Contact
}

// RemovedMsg reports the outcome of a deletion.
type RemovedMsg struct {
	Name string
	Err  error
}
