// Package tui is the terminal client: a live item board with fuzzy
// filtering, sorting, and claim support.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tally/internal/board"
	"tally/internal/fuzzy"
	"tally/internal/store"
)

// Backend is the slice of the network client the board mutates through.
type Backend interface {
	Update(ctx context.Context, name string, gathered int) error
	Claim(ctx context.Context, name, claimer string, claimed int) error
}

// FocusRegion identifies where keyboard input is routed.
type FocusRegion int

const (
	// FocusList means navigation keys move the item cursor.
	FocusList FocusRegion = iota
	// FocusFilter means keystrokes edit the fuzzy filter query.
	FocusFilter
)

// SnapshotMsg delivers an authoritative snapshot pushed by the server.
// The program feeds these in from the event stream.
type SnapshotMsg struct {
	Items store.Snapshot
}

// StreamClosedMsg reports that the event stream ended.
type StreamClosedMsg struct{}

// mutationResultMsg is sent when an asynchronous mutation completes.
type mutationResultMsg struct {
	err error
}

// noticeFadeMsg clears the status notice after a delay.
type noticeFadeMsg struct{}

const noticeFadeDelay = 3 * time.Second

const mutationTimeout = 10 * time.Second

// renderCell receives snapshots released by the reconciler. It is a
// pointer shared across model copies so the release survives
// bubbletea's value semantics.
type renderCell struct {
	items store.Snapshot
	dirty bool
}

type Model struct {
	backend Backend
	claimer string

	// master is the last applied authoritative snapshot.
	master store.Snapshot

	rec   *board.Reconciler
	cell  *renderCell
	order *board.OrderFile

	// manualOrder is the persisted name order applied to incoming
	// snapshots.
	manualOrder []string

	sortMode board.SortMode
	finished board.FinishedPriority

	focus  FocusRegion
	query  string
	cursor int
	// selectedName keeps the cursor on the same item across reorders.
	selectedName string

	// claimMode switches left/right gestures from update to claim.
	claimMode bool

	// gestureValue is the optimistic local value while a gesture is
	// active; meaningful only when the reconciler is Dragging.
	gestureValue int

	notice string
	width  int
	height int
}

// NewModel builds the board over a backend and an initial snapshot.
// orderFile may be nil to disable order persistence.
func NewModel(backend Backend, claimer string, initial store.Snapshot, orderFile *board.OrderFile) Model {
	cell := &renderCell{}
	model := Model{
		backend:  backend,
		claimer:  claimer,
		cell:     cell,
		order:    orderFile,
		rec:      board.NewReconciler(func(s store.Snapshot) { cell.items = s; cell.dirty = true }),
		sortMode: board.SortNone,
		finished: board.FinishedNeutral,
	}
	if orderFile != nil {
		model.manualOrder = orderFile.Load()
	}
	model.master = board.Merge(model.manualOrder, initial)
	model.syncSelection()
	return model
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if m.focus == FocusFilter {
			return m.handleFilterKeys(message)
		}
		return m.handleListKeys(message)

	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		return m, nil

	case SnapshotMsg:
		m.rec.Offer(board.Merge(m.manualOrder, message.Items))
		m.drainCell()
		return m, nil

	case StreamClosedMsg:
		m.notice = "event stream closed; restart to reconnect"
		return m, nil

	case mutationResultMsg:
		if message.err != nil {
			m.notice = fmt.Sprintf("send failed: %v", message.err)
			return m, fadeNotice()
		}
		return m, nil

	case noticeFadeMsg:
		m.notice = ""
		return m, nil
	}
	return m, nil
}

func (m Model) handleListKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.String() {
	case "q", "ctrl+c":
		if m.dragging() {
			m.rec.Cancel()
			m.drainCell()
		}
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)

	case "/":
		m.focus = FocusFilter

	case "s":
		m.cycleSort()
	case "f":
		m.cycleFinished()

	case "c":
		if !m.dragging() {
			m.claimMode = !m.claimMode
		}

	case "x":
		return m.releaseClaim()

	case "left", "h":
		m.adjust(-1)
	case "right", "l":
		m.adjust(1)

	case "enter":
		return m.commitGesture()

	case "esc":
		if m.dragging() {
			m.rec.Cancel()
			m.drainCell()
		} else if m.query != "" {
			m.query = ""
			m.clampCursor()
		}
	}
	return m, nil
}

func (m Model) handleFilterKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEsc:
		m.query = ""
		m.focus = FocusList
		m.clampCursor()
	case tea.KeyEnter:
		m.focus = FocusList
	case tea.KeyBackspace:
		if m.query != "" {
			runes := []rune(m.query)
			m.query = string(runes[:len(runes)-1])
		}
		m.clampCursor()
	case tea.KeyRunes, tea.KeySpace:
		m.query += string(message.Runes)
		m.cursor = 0
		m.clampCursor()
	}
	return m, nil
}

// adjust starts a gesture on the first press and steps the optimistic
// value on every press. The display is local until commit.
//
// A claim gesture counts newly claimed units starting from zero: the
// server adds the committed amount to gathered on top of whatever was
// already counted, so re-sending the size of an existing claim would
// double-count it. Releasing an existing claim is its own action.
func (m *Model) adjust(delta int) {
	item, ok := m.selectedItem()
	if !ok {
		return
	}
	if !m.dragging() {
		m.rec.Begin()
		if m.claimMode {
			m.gestureValue = 0
		} else {
			m.gestureValue = item.Gathered
		}
	}
	m.gestureValue += delta
	if m.gestureValue < 0 {
		m.gestureValue = 0
	}
	max := item.Target
	if m.claimMode {
		max = item.Target - item.Gathered
		if max < 0 {
			max = 0
		}
	}
	if m.gestureValue > max {
		m.gestureValue = max
	}
}

// commitGesture ends the gesture and sends exactly one mutation with
// the final value. Unchanged values are suppressed.
func (m Model) commitGesture() (tea.Model, tea.Cmd) {
	if !m.dragging() {
		return m, nil
	}
	item, ok := m.selectedItem()
	if !ok {
		m.rec.Cancel()
		m.drainCell()
		return m, nil
	}

	value := m.gestureValue
	m.rec.End()
	m.drainCell()

	if m.claimMode {
		// Zero new units is a no-op, never an accidental release.
		if value == 0 {
			return m, nil
		}
		return m, m.sendClaim(item.Name, value)
	}
	if value == item.Gathered || !m.rec.ShouldSend(item.Name, value) {
		return m, nil
	}
	return m, m.sendUpdate(item.Name, value)
}

// releaseClaim drops the claimer's existing claim on the selected item
// by sending a zero claim. Only meaningful in claim mode and outside a
// gesture.
func (m Model) releaseClaim() (tea.Model, tea.Cmd) {
	if !m.claimMode || m.dragging() {
		return m, nil
	}
	item, ok := m.selectedItem()
	if !ok || m.claimedBy(item, m.claimer) == 0 {
		return m, nil
	}
	return m, m.sendClaim(item.Name, 0)
}

func (m Model) sendUpdate(name string, gathered int) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return mutationResultMsg{err: backend.Update(ctx, name, gathered)}
	}
}

func (m Model) sendClaim(name string, claimed int) tea.Cmd {
	backend, claimer := m.backend, m.claimer
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), mutationTimeout)
		defer cancel()
		return mutationResultMsg{err: backend.Claim(ctx, name, claimer, claimed)}
	}
}

func fadeNotice() tea.Cmd {
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{}
	})
}

// drainCell applies any snapshot the reconciler released.
func (m *Model) drainCell() {
	if !m.cell.dirty {
		return
	}
	m.master = m.cell.items
	m.cell.dirty = false
	m.syncSelection()
}

func (m *Model) cycleSort() {
	switch m.sortMode {
	case board.SortNone:
		m.sortMode = board.SortAlphabetical
	case board.SortAlphabetical:
		m.sortMode = board.SortProgress
	case board.SortProgress:
		m.sortMode = board.SortTarget
	default:
		m.sortMode = board.SortNone
	}
	m.applySort()
}

func (m *Model) cycleFinished() {
	switch m.finished {
	case board.FinishedNeutral:
		m.finished = board.FinishedFirst
	case board.FinishedFirst:
		m.finished = board.FinishedLast
	default:
		m.finished = board.FinishedNeutral
	}
	m.applySort()
}

// applySort reorders the board and persists the result as the manual
// order, so the arrangement survives restarts and later snapshots.
func (m *Model) applySort() {
	if m.sortMode == board.SortNone {
		m.syncSelection()
		return
	}
	m.master = board.Sort(m.master, m.sortMode, m.finished)
	m.manualOrder = make([]string, len(m.master))
	for i, item := range m.master {
		m.manualOrder[i] = item.Name
	}
	if m.order != nil {
		if err := m.order.Save(m.manualOrder); err != nil {
			m.notice = fmt.Sprintf("save order: %v", err)
		}
	}
	m.syncSelection()
}

// visible returns the rows currently shown, with match positions when
// a filter query is active.
func (m Model) visible() []row {
	if m.query == "" {
		rows := make([]row, len(m.master))
		for i, item := range m.master {
			rows[i] = row{item: item}
		}
		return rows
	}

	names := make([]string, len(m.master))
	for i, item := range m.master {
		names[i] = item.Name
	}
	ranked := fuzzy.Rank(m.query, names)
	rows := make([]row, len(ranked))
	for i, r := range ranked {
		rows[i] = row{item: m.master[r.Index], positions: r.Result.Positions}
	}
	return rows
}

type row struct {
	item      store.Item
	positions []int
}

func (m *Model) moveCursor(delta int) {
	rows := m.visible()
	if len(rows) == 0 {
		return
	}
	// Moving off an item ends any gesture on it.
	if m.dragging() {
		m.rec.Cancel()
		m.drainCell()
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	m.selectedName = rows[m.cursor].item.Name
}

func (m *Model) clampCursor() {
	rows := m.visible()
	if len(rows) == 0 {
		m.cursor = 0
		m.selectedName = ""
		return
	}
	if m.cursor >= len(rows) {
		m.cursor = len(rows) - 1
	}
	m.selectedName = rows[m.cursor].item.Name
}

// syncSelection re-finds the selected item after a reorder.
func (m *Model) syncSelection() {
	rows := m.visible()
	if len(rows) == 0 {
		m.cursor = 0
		m.selectedName = ""
		return
	}
	for i, r := range rows {
		if r.item.Name == m.selectedName {
			m.cursor = i
			return
		}
	}
	m.clampCursor()
}

func (m Model) selectedItem() (store.Item, bool) {
	rows := m.visible()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return store.Item{}, false
	}
	return rows[m.cursor].item, true
}

func (m Model) dragging() bool {
	return m.rec.State() == board.Dragging
}

func (m Model) claimedBy(item store.Item, claimer string) int {
	for _, c := range item.Claims {
		if c.Claimer == claimer {
			return c.ClaimEnd - c.ClaimStart
		}
	}
	return 0
}
