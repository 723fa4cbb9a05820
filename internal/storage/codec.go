package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/multiformats/go-varint"

	"github.com/smileynet/phonebook/internal/contact"
)

// Binary layout, version 1:
//
//	magic   "PHBK"
//	version 0x01
//	count   uvarint
//	count × { id [16]byte, name string, phones uvarint, phones × { tag byte, number string } }
//
// Strings are a uvarint byte length followed by UTF-8 bytes.
var magic = [4]byte{'P', 'H', 'B', 'K'}

const (
	formatVersion byte = 1

	// maxStringLen bounds a single encoded string so a corrupt length
	// cannot trigger a huge allocation.
	maxStringLen = 1 << 20

	// preallocCap caps slice preallocation from untrusted counts.
	preallocCap = 1024
)

// Decode errors.
var (
	ErrBadMagic           = errors.New("storage: not a phonebook file")
	ErrUnsupportedVersion = errors.New("storage: unsupported format version")
	ErrCorrupt            = errors.New("storage: corrupt data")
)

var phoneTags = map[contact.PhoneType]byte{
	contact.Mobile: 0,
	contact.Home:   1,
	contact.Work:   2,
	contact.Fax:    3,
}

var tagPhones = map[byte]contact.PhoneType{
	0: contact.Mobile,
	1: contact.Home,
	2: contact.Work,
	3: contact.Fax,
}

// Encode writes contacts to w in the versioned binary format. Strings that
// are not valid UTF-8 are rejected with ErrCorrupt, as Decode would reject them.
func Encode(w io.Writer, contacts []contact.Contact) error {
	bw := bufio.NewWriter(w)
	e := &encoder{w: bw}

	e.write(magic[:])
	e.write([]byte{formatVersion})
	e.uvarint(uint64(len(contacts)))
	for _, c := range contacts {
		e.write(c.ID[:])
		e.string(c.FullName)
		e.uvarint(uint64(len(c.Phones)))
		for _, p := range c.Phones {
			e.write([]byte{phoneTags[p.Type]})
			e.string(p.Number)
		}
	}
	if e.err != nil {
		return fmt.Errorf("storage: encoding: %w", e.err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("storage: encoding: %w", err)
	}
	return nil
}

// encoder accumulates the first write error so the layout above reads linearly.
type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) uvarint(x uint64) {
	e.write(varint.ToUvarint(x))
}

func (e *encoder) string(s string) {
	if e.err == nil && !utf8.ValidString(s) {
		e.err = fmt.Errorf("%w: invalid UTF-8 in %q", ErrCorrupt, s)
		return
	}
	e.uvarint(uint64(len(s)))
	e.write([]byte(s))
}

// Decode reads contacts written by Encode.
func Decode(r io.Reader) ([]contact.Contact, error) {
	d := &decoder{r: bufio.NewReader(r)}

	var head [5]byte
	if _, err := io.ReadFull(d.r, head[:]); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrBadMagic, err)
	}
	if !bytes.Equal(head[:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if head[4] != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, head[4])
	}

	count, err := d.uvarint()
	if err != nil {
		return nil, err
	}
	contacts := make([]contact.Contact, 0, min(count, preallocCap))
	for i := uint64(0); i < count; i++ {
		c, err := d.contact()
		if err != nil {
			return nil, fmt.Errorf("contact %d: %w", i, err)
		}
		contacts = append(contacts, c)
	}

	if _, err := d.r.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrCorrupt)
	}
	return contacts, nil
}

type decoder struct {
	r *bufio.Reader
}

func (d *decoder) contact() (contact.Contact, error) {
	var c contact.Contact
	if _, err := io.ReadFull(d.r, c.ID[:]); err != nil {
		return c, fmt.Errorf("%w: reading id: %v", ErrCorrupt, err)
	}
	name, err := d.string()
	if err != nil {
		return c, err
	}
	c.FullName = name

	n, err := d.uvarint()
	if err != nil {
		return c, err
	}
	if n > 0 {
		c.Phones = make([]contact.PhoneNumber, 0, min(n, preallocCap))
	}
	for j := uint64(0); j < n; j++ {
		tag, err := d.r.ReadByte()
		if err != nil {
			return c, fmt.Errorf("%w: reading phone type: %v", ErrCorrupt, err)
		}
		number, err := d.string()
		if err != nil {
			return c, err
		}
		// Unknown tags fall back to Mobile, matching the label policy.
		typ, ok := tagPhones[tag]
		if !ok {
			typ = contact.Mobile
		}
		c.Phones = append(c.Phones, contact.PhoneNumber{Number: number, Type: typ})
	}
	return c, nil
}

func (d *decoder) uvarint() (uint64, error) {
	x, err := varint.ReadUvarint(d.r)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, fmt.Errorf("%w: reading length: %v", ErrCorrupt, err)
	}
	return x, nil
}

func (d *decoder) string() (string, error) {
	n, err := d.uvarint()
	if err != nil {
		return "", err
	}
	if n > maxStringLen {
		return "", fmt.Errorf("%w: string length %d exceeds limit", ErrCorrupt, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", fmt.Errorf("%w: reading string: %v", ErrCorrupt, err)
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrCorrupt)
	}
	return string(buf), nil
}
