package tui

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/smileynet/phonebook/internal/contact"
)

// confirmState holds the contact awaiting deletion.
type confirmState struct {
	id     uuid.UUID
	name   string
	phones int
}

func newConfirmState(c contact.Contact) confirmState {
	return confirmState{id: c.ID, name: c.FullName, phones: len(c.Phones)}
}

// View renders the confirmation screen.
func (cs confirmState) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Delete %s?\n", titleText.Render(displayName(cs.name)))

	word := "phone numbers"
	if cs.phones == 1 {
		word = "phone number"
	}
	fmt.Fprintf(&b, "\n  %d %s will be removed.", cs.phones, word)
	b.WriteString("\n\n  [y] Delete   [n] Cancel")
	return b.String()
}
