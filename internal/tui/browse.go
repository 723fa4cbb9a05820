package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/phonebook/internal/contact"
)

// CursorMarker is the prefix shown on the selected contact row.
const CursorMarker = "▸ "

// unnamed is shown in place of an empty name.
const unnamed = "(no name)"

// browseState manages the contact list and cursor for the left pane.
type browseState struct {
	contacts []contact.Contact
	cursor   int
	loading  bool
}

func newBrowseState() browseState {
	return browseState{loading: true}
}

// applyContacts replaces the list, keeping the cursor on the same contact
// when it is still present.
func (bs browseState) applyContacts(contacts []contact.Contact) browseState {
	selected, hadSelection := bs.Selected()
	bs.loading = false
	bs.contacts = contacts
	bs.cursor = 0
	if hadSelection {
		for i, c := range contacts {
			if c.ID == selected.ID {
				bs.cursor = i
				return bs
			}
		}
	}
	return bs
}

func (bs browseState) up() browseState {
	if len(bs.contacts) > 0 {
		bs.cursor--
		if bs.cursor < 0 {
			bs.cursor = len(bs.contacts) - 1
		}
	}
	return bs
}

func (bs browseState) down() browseState {
	if len(bs.contacts) > 0 {
		bs.cursor++
		if bs.cursor >= len(bs.contacts) {
			bs.cursor = 0
		}
	}
	return bs
}

// Selected returns the contact at the cursor, or false if the list is empty.
func (bs browseState) Selected() (contact.Contact, bool) {
	if bs.cursor < 0 || bs.cursor >= len(bs.contacts) {
		return contact.Contact{}, false
	}
	return bs.contacts[bs.cursor], true
}

// View renders at most height rows, scrolled so the cursor stays visible.
func (bs browseState) View(width, height int, filtered bool) string {
	if bs.loading {
		return "Loading contacts..."
	}
	if len(bs.contacts) == 0 {
		if filtered {
			return "No matches"
		}
		return "No contacts yet"
	}

	start := max(bs.cursor-height+1, 0)
	end := min(start+height, len(bs.contacts))
	row := lipgloss.NewStyle().MaxWidth(width)

	var b strings.Builder
	for i := start; i < end; i++ {
		if i > start {
			b.WriteByte('\n')
		}
		c := bs.contacts[i]
		prefix := "  "
		if i == bs.cursor {
			prefix = CursorMarker
		}
		name := c.FullName
		if name == "" {
			name = mutedText.Render(unnamed)
		}
		b.WriteString(row.Render(prefix + name + " " + mutedText.Render(fmt.Sprintf("(%d)", len(c.Phones)))))
	}
	return b.String()
}

// detailView renders the phones pane for c.
func detailView(c contact.Contact) string {
	var b strings.Builder
	b.WriteString(titleText.Render(displayName(c.FullName)))
	if id := c.ShortID(); id != "" {
		b.WriteString(" " + mutedText.Render(id))
	}
	b.WriteString("\n")

	if len(c.Phones) == 0 {
		b.WriteString("\n" + mutedText.Render("No phone numbers"))
		return b.String()
	}
	for _, p := range c.Phones {
		fmt.Fprintf(&b, "\n%s %s", labelText.Render(p.Type.Label()+":"), p.Number)
	}
	return b.String()
}
