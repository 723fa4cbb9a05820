package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/smileynet/phonebook/internal/contact"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// headerHeight is the number of lines above the contact list in the left pane.
const headerHeight = 2

// Model is the root Bubble Tea model for the phonebook browser.
type Model struct {
	dir       Directory
	mode      Mode
	width     int
	height    int
	browse    browseState
	search    textinput.Model
	confirm   confirmState
	sorted    bool
	seq       int
	status    string
	statusErr bool
	help      help.Model

	browseKeys  browseKeys
	searchKeys  searchKeys
	confirmKeys confirmKeys
}

// NewModel creates a browser over dir in browse mode.
func NewModel(dir Directory) Model {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "name or number"

	return Model{
		dir:         dir,
		mode:        ModeBrowse,
		browse:      newBrowseState(),
		search:      search,
		help:        help.New(),
		browseKeys:  BrowseKeyMap(),
		searchKeys:  SearchKeyMap(),
		confirmKeys: ConfirmKeyMap(),
	}
}

// Init loads the contact list.
func (m Model) Init() tea.Cmd {
	return m.fetch()
}

// fetch returns a command that queries the directory for the current
// filter and sort order.
func (m Model) fetch() tea.Cmd {
	dir, seq, query, sorted := m.dir, m.seq, m.search.Value(), m.sorted
	return func() tea.Msg {
		return ContactsMsg{Seq: seq, Contacts: queryContacts(dir, query, sorted)}
	}
}

// refresh starts a new fetch; results of earlier fetches are ignored.
func (m Model) refresh() (Model, tea.Cmd) {
	m.seq++
	return m, m.fetch()
}

// queryContacts filters by query and, when sorted, orders the matches by name.
func queryContacts(dir Directory, query string, sorted bool) []contact.Contact {
	if !sorted {
		return dir.Search(query)
	}
	all := dir.SortedByName()
	if strings.TrimSpace(query) == "" {
		return all
	}
	matched := make(map[uuid.UUID]bool)
	for _, c := range dir.Search(query) {
		matched[c.ID] = true
	}
	return slices.DeleteFunc(all, func(c contact.Contact) bool { return !matched[c.ID] })
}

func removeContact(dir Directory, cs confirmState) tea.Cmd {
	return func() tea.Msg {
		return RemovedMsg{Name: cs.name, Err: dir.RemoveByID(cs.id)}
	}
}

// Update handles incoming messages with mode-based routing.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		leftWidth, _ := PaneWidths(msg.Width)
		m.search.Width = max(leftWidth-borderChrome-lipgloss.Width(m.search.Prompt)-1, 1)
		return m, nil

	case ContactsMsg:
		if msg.Seq != m.seq {
			return m, nil
		}
		m.browse = m.browse.applyContacts(msg.Contacts)
		return m, nil

	case RemovedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Delete failed: %v", msg.Err), true)
		} else {
			m.setStatus("Deleted "+displayName(msg.Name), false)
		}
		return m.refresh()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.mode == ModeSearch {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// handleKey processes key messages with global and mode-specific routing.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch m.mode {
	case ModeSearch:
		return m.handleSearchKey(msg)
	case ModeConfirm:
		return m.handleConfirmKey(msg)
	default:
		return m.handleBrowseKey(msg)
	}
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.browseKeys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Up):
		m.browse = m.browse.up()
	case key.Matches(msg, k.Down):
		m.browse = m.browse.down()
	case key.Matches(msg, k.Search):
		m.mode = ModeSearch
		m.setStatus("", false)
		return m, m.search.Focus()
	case key.Matches(msg, k.Sort):
		m.sorted = !m.sorted
		return m.refresh()
	case key.Matches(msg, k.Delete):
		if c, ok := m.browse.Selected(); ok {
			m.confirm = newConfirmState(c)
			m.mode = ModeConfirm
		}
	case key.Matches(msg, k.Reload):
		m.setStatus("", false)
		return m.refresh()
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.searchKeys
	switch {
	case key.Matches(msg, k.Accept):
		m.mode = ModeBrowse
		m.search.Blur()
		return m, nil
	case key.Matches(msg, k.Clear):
		m.mode = ModeBrowse
		m.search.Blur()
		if m.search.Value() == "" {
			return m, nil
		}
		m.search.Reset()
		return m.refresh()
	case key.Matches(msg, k.Up):
		m.browse = m.browse.up()
		return m, nil
	case key.Matches(msg, k.Down):
		m.browse = m.browse.down()
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() == before {
		return m, cmd
	}
	m, fetch := m.refresh()
	return m, tea.Batch(cmd, fetch)
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.confirmKeys
	switch {
	case key.Matches(msg, k.Yes):
		m.mode = ModeBrowse
		return m, removeContact(m.dir, m.confirm)
	case key.Matches(msg, k.No):
		m.mode = ModeBrowse
	}
	return m, nil
}

// contentHeight returns the usable height for pane content,
// accounting for border chrome and the help bar.
func (m Model) contentHeight() int {
	h := m.height - borderChrome - helpBarHeight
	if h < 1 {
		return 1
	}
	return h
}

// View renders the two-pane layout with help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	leftWidth, rightWidth := PaneWidths(m.width)
	contentHeight := m.contentHeight()

	leftStyle, rightStyle := FocusedBorder(), UnfocusedBorder()
	if m.mode == ModeConfirm {
		leftStyle, rightStyle = UnfocusedBorder(), FocusedBorder()
	}
	leftStyle = leftStyle.
		Width(leftWidth - borderChrome).
		Height(contentHeight)
	rightStyle = rightStyle.
		Width(rightWidth - borderChrome).
		Height(contentHeight)

	leftPane := leftStyle.Render(m.viewLeft(leftWidth-borderChrome, contentHeight))
	rightPane := rightStyle.Render(m.viewRight())
	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	return lipgloss.JoinVertical(lipgloss.Left, panes, m.viewHelp())
}

func (m Model) viewLeft(width, height int) string {
	var header string
	if m.mode == ModeSearch || m.search.Value() != "" {
		header = m.search.View()
	} else {
		header = fmt.Sprintf("%d contacts", len(m.browse.contacts))
		if m.sorted {
			header += ", sorted"
		}
		header = mutedText.Render(header)
	}
	list := m.browse.View(width, max(height-headerHeight, 1), m.search.Value() != "")
	return header + "\n\n" + list
}

func (m Model) viewRight() string {
	if m.mode == ModeConfirm {
		return m.confirm.View()
	}
	if c, ok := m.browse.Selected(); ok {
		return detailView(c)
	}
	return mutedText.Render("Select a contact")
}

func (m Model) viewHelp() string {
	helpView := m.help.View(HelpBindings(m.mode))
	if m.status == "" {
		return helpView
	}
	style := mutedText
	if m.statusErr {
		style = errorText
	}
	return helpView + "  " + style.Render(m.status)
}

func displayName(name string) string {
	if name == "" {
		return unnamed
	}
	return name
}
