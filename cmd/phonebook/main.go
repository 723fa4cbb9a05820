package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/smileynet/phonebook"
	"github.com/smileynet/phonebook/internal/config"
	"github.com/smileynet/phonebook/internal/contact"
	"github.com/smileynet/phonebook/internal/directory"
	"github.com/smileynet/phonebook/internal/logging"
	"github.com/smileynet/phonebook/internal/storage"
	"github.com/smileynet/phonebook/internal/tui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Globals are flags shared by every command.
type Globals struct {
	File string `help:"Data file to use instead of storage.path." short:"f" type:"path"`
}

// CLI is the top-level command structure for phonebook.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	List    ListCmd          `cmd:"" help:"List contacts."`
	Search  SearchCmd        `cmd:"" help:"Find contacts by name or phone number."`
	Show    ShowCmd          `cmd:"" help:"Show one contact."`
	Add     AddCmd           `cmd:"" help:"Add a contact."`
	Edit    EditCmd          `cmd:"" help:"Change a contact's name or phones."`
	Rm      RmCmd            `cmd:"" name:"rm" aliases:"remove" help:"Remove a contact."`
	Export  ExportCmd        `cmd:"" help:"Write all contacts as YAML."`
	Import  ImportCmd        `cmd:"" help:"Add contacts from a YAML file."`
	Check   CheckCmd         `cmd:"" help:"Verify the data file can be read."`
	Browse  BrowseCmd        `cmd:"" help:"Open the interactive browser."`
	Config  ConfigCmd        `cmd:"" help:"Manage configuration."`
}

// book is the directory surface the commands use.
type book interface {
	AllContacts() []contact.Contact
	SortedByName() []contact.Contact
	Search(query string) []contact.Contact
	Lookup(ref string) (contact.Contact, error)
	AddContact(c contact.Contact) (contact.Contact, error)
	UpdateByID(id uuid.UUID, updated contact.Contact) error
	RemoveByID(id uuid.UUID) error
}

// app holds the wired dependencies for one command invocation.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *storage.FileStore
	dir   *directory.Service
}

// loadConfig loads layered config from user and project paths with env
// and flag overrides.
func loadConfig(g *Globals) (*config.Config, error) {
	cfg, err := config.LoadLayered(os.ExpandEnv(config.UserPath), config.ProjectPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if g.File != "" {
		cfg.Storage.Path = g.File
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore builds the logger and file store without loading contacts.
func openStore(g *Globals) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	store := storage.NewFileStore(cfg.Storage.Path, storage.WithLogger(log))
	return &app{cfg: cfg, log: log, store: store}, nil
}

// open builds the full stack and loads the phonebook.
func open(g *Globals) (*app, error) {
	a, err := openStore(g)
	if err != nil {
		return nil, err
	}
	a.dir = directory.New(a.store, directory.WithLogger(a.log))
	return a, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
}

// --- Read commands ---

// ListCmd prints every contact.
type ListCmd struct {
	Sorted bool `help:"Order by name instead of insertion order." short:"s"`
}

// Run executes the list command.
func (l *ListCmd) Run(g *Globals) error {
	a, err := open(g)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	defer a.Close()
	return l.run(os.Stdout, a.dir)
}

func (l *ListCmd) run(w io.Writer, b book) error {
	contacts := b.AllContacts()
	if l.Sorted {
		contacts = b.SortedByName()
	}
	if len(contacts) == 0 {
		_, _ = fmt.Fprintln(w, "No contacts.")
		return nil
	}
	return printContacts(w, contacts)
}

// SearchCmd prints the contacts matching a query.
type SearchCmd struct {
	Query string `arg:"" help:"Part of a name or phone number."`
}

// Run executes the search command.
func (s *SearchCmd) Run(g *Globals) error {
	a, err := open(g)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer a.Close()
	return s.run(os.Stdout, a.dir)
}

func (s *SearchCmd) run(w io.Writer, b book) error {
	found := b.Search(s.Query)
	if len(found) == 0 {
		_, _ = fmt.Fprintf(w, "No contacts match %q.\n", s.Query)
		return nil
	}
	return printContacts(w, found)
}

// printContacts writes one aligned row per contact.
func printContacts(w io.Writer, contacts []contact.Contact) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range contacts {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ShortID(), displayName(c.FullName), c.PhonesString())
	}
	return tw.Flush()
}

// ShowCmd prints a single contact with its phones.
type ShowCmd struct {
	Ref string `arg:"" help:"Contact ID, ID prefix, or exact name."`
}

// Run executes the show command.
func (s *ShowCmd) Run(g *Globals) error {
	a, err := open(g)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	defer a.Close()
	return s.run(os.Stdout, a.dir)
}

func (s *ShowCmd) run(w io.Writer, b book) error {
	c, err := b.Lookup(s.Ref)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	_, _ = fmt.Fprintf(w, "ID:     %s\n", c.ID)
	_, _ = fmt.Fprintf(w, "Name:   %s\n", displayName(c.FullName))
	if len(c.Phones) == 0 {
		_, _ = fmt.Fprintln(w, "Phones: none")
		return nil
	}
	_, _ = fmt.Fprintln(w, "Phones:")
	for _, p := range c.Phones {
		_, _ = fmt.Fprintf(w, "  %s\n", p)
	}
	return nil
}

// --- Write commands ---

var (
	errEmptyName   = errors.New("name cannot be empty")
	errEmptyNumber = errors.New("phone number cannot be empty")
	errNoChanges = errors.New("nothing to change")
)

// AddCmd adds a contact.
type AddCmd struct {
	Name   string   `arg:"" help:"Full name."`
	Phones []string `name:"phone" short:"p" sep:"none" help:"Phone as \"Type: number\" (repeatable). Type defaults to Мобильный."`
}

// Run executes the add command.
func (c *AddCmd) Run(g *Globals) error {
	a, err := open(g)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	defer a.Close()
	return c.run(os.Stdout, a.dir)
}

func (c *AddCmd) run(w io.Writer, b book) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("add: %w", errEmptyName)
	}
	phones, err := parsePhones(c.Phones)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	added, err := b.AddContact(contact.New(name, phones...))
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Added %s %s\n", added.ShortID(), added)
	return nil
}

// EditCmd changes an existing contact.
type EditCmd struct {
	Ref          string   `arg:"" help:"Contact ID, ID prefix, or exact name."`
	Name         *string  `help:"New full name."`
	Phones       []string `name:"phone" sep:"none" help:"Replace all phones (repeatable)."`
	AddPhones    []string `name:"add-phone" sep:"none" help:"Append a phone (repeatable)."`
	RemovePhones []string `name:"remove-phone" sep:"none" help:"Remove every phone with this number (repeatable)."`
}

// Run executes the edit command.
func (e *EditCmd) Run(g *Globals) error {
	a, err := open(g)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	defer a.Close()
	return e.run(os.Stdout, a.dir)
}

func (e *EditCmd) run(w io.Writer, b book) error {
	if e.Name == nil && len(e.Phones) == 0 && len(e.AddPhones) == 0 && len(e.RemovePhones) == 0 {
		return fmt.Errorf("edit: %w", errNoChanges)
	}
	c, err := b.Lookup(e.Ref)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}

	if e.Name != nil {
		name := strings.TrimSpace(*e.Name)
		if name == "" {
			return fmt.Errorf("edit: %w", errEmptyName)
		}
		c.FullName = name
	}
	if len(e.Phones) > 0 {
		phones, err := parsePhones(e.Phones)
		if err != nil {
			return fmt.Errorf("edit: %w", err)
		}
		c.Phones = phones
	}
	for _, number := range e.RemovePhones {
		if !removeNumber(&c, number) {
			return fmt.Errorf("edit: %s has no phone %q", displayName(c.FullName), number)
		}
	}
	added, err := parsePhones(e.AddPhones)
	if err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	for _, p := range added {
		c.AddPhone(p)
	}

	if err := b.UpdateByID(c.ID, c); err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Updated %s %s\n", c.ShortID(), c)
	return nil
}

// RmCmd removes a contact.
type RmCmd struct {
	Ref string `arg:"" help:"Contact ID, ID prefix, or exact name."`
}

// Run executes the rm command.
func (r *RmCmd) Run(g *Globals) error {
	a, err := open(g)
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	defer a.Close()
	return r.run(os.Stdout, a.dir)
}

func (r *RmCmd) run(w io.Writer, b book) error {
	c, err := b.Lookup(r.Ref)
	if err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	if err := b.RemoveByID(c.ID); err != nil {
		return fmt.Errorf("rm: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Removed %s %s\n", c.ShortID(), displayName(c.FullName))
	return nil
}

func parsePhones(specs []string) ([]contact.PhoneNumber, error) {
	phones := make([]contact.PhoneNumber, 0, len(specs))
	for _, s := range specs {
		p := contact.ParsePhoneNumber(s)
		if p.Number == "" {
			return nil, fmt.Errorf("%w: %q", errEmptyNumber, s)
		}
		phones = append(phones, p)
	}
	return phones, nil
}

// removeNumber drops every phone of c with the given number.
func removeNumber(c *contact.Contact, number string) bool {
	removed := false
	for _, p := range slices.Clone(c.Phones) {
		if p.Number == number && c.RemovePhone(p) {
			removed = true
		}
	}
	return removed
}

func displayName(name string) string {
	if name == "" {
		return "(no name)"
	}
	return name
}

// --- Interchange ---

// ExportCmd writes all contacts as YAML.
type ExportCmd struct {
	Output string `help:"Write to this file instead of stdout." short:"o" type:"path"`
}

// Run executes the export command.
func (e *ExportCmd) Run(g *Globals) error {
	a, err := open(g)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer a.Close()

	if e.Output == "" {
		return e.run(os.Stdout, a.dir)
	}
	f, err := os.Create(e.Output)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := e.run(f, a.dir); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func (e *ExportCmd) run(w io.Writer, b book) error {
	if err := storage.ExportYAML(w, b.AllContacts()); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// ImportCmd appends contacts from a YAML file.
type ImportCmd struct {
	Path string `arg:"" help:"YAML file written by export." type:"existingfile"`
}

// Run executes the import command.
func (i *ImportCmd) Run(g *Globals) error {
	f, err := os.Open(i.Path)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer func() { _ = f.Close() }()

	a, err := open(g)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer a.Close()
	return i.run(os.Stdout, f, a.dir)
}

func (i *ImportCmd) run(w io.Writer, r io.Reader, b book) error {
	contacts, err := storage.ImportYAML(r)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	for n, c := range contacts {
		if _, err := b.AddContact(c); err != nil {
			return fmt.Errorf("import: after %d of %d contacts: %w", n, len(contacts), err)
		}
	}
	_, _ = fmt.Fprintf(w, "Imported %d contacts\n", len(contacts))
	return nil
}

// --- Maintenance ---

// CheckCmd reads the data file strictly and reports what it holds.
type CheckCmd struct{}

// dataFile is a strict reader of the data file.
type dataFile interface {
	Path() string
	Read() ([]contact.Contact, error)
}

// Run executes the check command.
func (c *CheckCmd) Run(g *Globals) error {
	a, err := openStore(g)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	defer a.Close()
	return c.run(os.Stdout, a.store)
}

func (c *CheckCmd) run(w io.Writer, f dataFile) error {
	contacts, err := f.Read()
	if errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintf(w, "%s: no data file yet (empty phonebook)\n", f.Path())
		return nil
	}
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	phones := 0
	for _, ct := range contacts {
		phones += len(ct.Phones)
	}
	_, _ = fmt.Fprintf(w, "%s: ok, %d contacts, %d phone numbers\n", f.Path(), len(contacts), phones)
	return nil
}

// BrowseCmd opens the interactive browser.
type BrowseCmd struct{}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the browser.
func (c *BrowseCmd) Run(g *Globals) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("browse: requires a terminal (TTY)")
	}

	a, err := open(g)
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	defer a.Close()

	prog := tea.NewProgram(tui.NewModel(a.dir), tea.WithAltScreen())
	return c.run(true, prog)
}

// run executes the tea program, enabling testable wiring.
func (c *BrowseCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("browse: requires a terminal (TTY)")
	}
	_, err := prog.Run()
	return err
}

// ConfigCmd groups configuration subcommands.
type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write the default config to .phonebook/config.yaml."`
}

// ConfigInitCmd writes the default config template.
type ConfigInitCmd struct {
	Force bool `help:"Overwrite an existing config file."`
}

// Run executes the config init command.
func (c *ConfigInitCmd) Run() error {
	return c.run(os.Stdout, phonebook.DefaultConfig, config.ProjectPath)
}

func (c *ConfigInitCmd) run(w io.Writer, template []byte, path string) error {
	if !c.Force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config init: %s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config init: %w", err)
	}
	if err := os.WriteFile(path, template, 0o644); err != nil {
		return fmt.Errorf("config init: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}

const (
	exitSuccess = 0
	exitLookup  = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, directory.ErrNotFound) || errors.Is(err, directory.ErrAmbiguous) {
		return exitLookup
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("phonebook"),
		kong.Description("A personal phone book."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
