// Package contact defines the phonebook data model: contacts and their typed phone numbers.
package contact

import (
	"strings"

	"github.com/google/uuid"
)

// PhoneType classifies a phone number. The set is closed.
type PhoneType int

const (
	Mobile PhoneType = iota
	Home
	Work
	Fax
)

// phoneTypes lists every PhoneType in declaration order.
var phoneTypes = [...]PhoneType{Mobile, Home, Work, Fax}

var phoneLabels = [...]string{
	Mobile: "Мобильный",
	Home:   "Домашний",
	Work:   "Рабочий",
	Fax:    "Факс",
}

var phoneKeys = [...]string{
	Mobile: "mobile",
	Home:   "home",
	Work:   "work",
	Fax:    "fax",
}

// PhoneTypes returns all phone types in declaration order.
func PhoneTypes() []PhoneType {
	return phoneTypes[:]
}

// Valid reports whether t is one of the declared phone types.
func (t PhoneType) Valid() bool {
	return t >= Mobile && t <= Fax
}

// Label returns the human-readable label shown to users.
func (t PhoneType) Label() string {
	if !t.Valid() {
		return phoneLabels[Mobile]
	}
	return phoneLabels[t]
}

// Key returns the stable lowercase identifier used in interchange files.
func (t PhoneType) Key() string {
	if !t.Valid() {
		return phoneKeys[Mobile]
	}
	return phoneKeys[t]
}

func (t PhoneType) String() string {
	return t.Label()
}

// ParsePhoneType maps a label or key back to its PhoneType.
// Matching ignores case and surrounding whitespace. Unrecognized or empty
// text yields Mobile.
func ParsePhoneType(text string) PhoneType {
	text = strings.TrimSpace(text)
	if text == "" {
		return Mobile
	}
	for _, t := range phoneTypes {
		if strings.EqualFold(phoneLabels[t], text) || strings.EqualFold(phoneKeys[t], text) {
			return t
		}
	}
	return Mobile
}

// PhoneNumber is a single free-form number with its type.
// Two phone numbers are equal when both fields are equal.
type PhoneNumber struct {
	Number string
	Type   PhoneType
}

// phoneSeparator separates the type label from the number in "Рабочий: 123".
const phoneSeparator = ": "

// String renders the number as "<label>: <number>".
func (p PhoneNumber) String() string {
	return p.Type.Label() + phoneSeparator + p.Number
}

// ParsePhoneNumber parses "<label>: <number>". Without a separator the whole
// text is taken as the number and the type defaults to Mobile.
func ParsePhoneNumber(text string) PhoneNumber {
	label, number, ok := strings.Cut(text, phoneSeparator)
	if !ok {
		return PhoneNumber{Number: strings.TrimSpace(text), Type: Mobile}
	}
	return PhoneNumber{Number: strings.TrimSpace(number), Type: ParsePhoneType(label)}
}

// Contact is a named phonebook entry with zero or more phone numbers.
//
// Equality is defined by FullName alone; see Equal. ID is an explicit
// identity assigned by the directory and is not part of equality.
type Contact struct {
	ID       uuid.UUID
	FullName string
	Phones   []PhoneNumber
}

// New returns a contact with the given name and phones.
func New(fullName string, phones ...PhoneNumber) Contact {
	return Contact{FullName: fullName, Phones: append([]PhoneNumber(nil), phones...)}
}

// Equal reports whether c and other name the same contact.
// Only FullName is compared; phones and ID are ignored.
func (c Contact) Equal(other Contact) bool {
	return c.FullName == other.FullName
}

// AddPhone appends a phone number. Duplicates are permitted.
func (c *Contact) AddPhone(p PhoneNumber) {
	c.Phones = append(c.Phones, p)
}

// RemovePhone removes the first phone equal to p and reports whether one was removed.
func (c *Contact) RemovePhone(p PhoneNumber) bool {
	for i, existing := range c.Phones {
		if existing == p {
			c.Phones = append(c.Phones[:i:i], c.Phones[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy of c.
func (c Contact) Clone() Contact {
	if c.Phones != nil {
		c.Phones = append([]PhoneNumber(nil), c.Phones...)
	}
	return c
}

// PhonesString joins the phones as "Мобильный: 123; Рабочий: 456".
func (c Contact) PhonesString() string {
	parts := make([]string, len(c.Phones))
	for i, p := range c.Phones {
		parts[i] = p.String()
	}
	return strings.Join(parts, "; ")
}

// String renders the contact as "Name (Мобильный: 123; Домашний: 456)".
func (c Contact) String() string {
	return c.FullName + " (" + c.PhonesString() + ")"
}

// ShortID returns the first eight hex characters of the ID for display,
// or "" when the contact has no ID yet.
func (c Contact) ShortID() string {
	if c.ID == uuid.Nil {
		return ""
	}
	return c.ID.String()[:8]
}
