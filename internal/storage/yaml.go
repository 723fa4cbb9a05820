package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/smileynet/phonebook/internal/contact"
)

// document is the YAML interchange shape.
type document struct {
	Contacts []yamlContact `yaml:"contacts"`
}

type yamlContact struct {
	ID     string      `yaml:"id,omitempty"`
	Name   string      `yaml:"name"`
	Phones []yamlPhone `yaml:"phones,omitempty"`
}

type yamlPhone struct {
	Type   string `yaml:"type"`
	Number string `yaml:"number"`
}

// ExportYAML writes contacts as a YAML document.
func ExportYAML(w io.Writer, contacts []contact.Contact) error {
	doc := document{Contacts: make([]yamlContact, 0, len(contacts))}
	for _, c := range contacts {
		yc := yamlContact{Name: c.FullName}
		if c.ID != uuid.Nil {
			yc.ID = c.ID.String()
		}
		for _, p := range c.Phones {
			yc.Phones = append(yc.Phones, yamlPhone{Type: p.Type.Key(), Number: p.Number})
		}
		doc.Contacts = append(doc.Contacts, yc)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("storage: encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("storage: encoding yaml: %w", err)
	}
	return nil
}

// ImportYAML reads a document written by ExportYAML. Unknown phone types
// become Mobile. An empty input yields no contacts.
func ImportYAML(r io.Reader) ([]contact.Contact, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []contact.Contact{}, nil
		}
		return nil, fmt.Errorf("storage: parsing yaml: %w", err)
	}

	contacts := make([]contact.Contact, 0, len(doc.Contacts))
	for i, yc := range doc.Contacts {
		c := contact.Contact{FullName: yc.Name}
		if yc.ID != "" {
			id, err := uuid.Parse(yc.ID)
			if err != nil {
				return nil, fmt.Errorf("storage: contact %d: invalid id %q: %w", i, yc.ID, err)
			}
			c.ID = id
		}
		for _, p := range yc.Phones {
			c.AddPhone(contact.PhoneNumber{Number: p.Number, Type: contact.ParsePhoneType(p.Type)})
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}
