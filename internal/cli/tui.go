package cli

import (
	"fmt"
	"maps"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/engine"
	"github.com/rastermill/rastermill/pkg/project"
)

// watchTick is the poll interval for file changes and engine status.
const watchTick = 200 * time.Millisecond

// spinnerFrames animate the status line while a pass is in flight.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// =============================================================================
// watchModel - Live project view
// =============================================================================

// watchModel is the bubbletea model behind "run --watch". It polls the
// project file's modification time, applies document changes to the live
// engine as edits, and renders the engine status with per-node error
// annotations.
type watchModel struct {
	eng  *engine.Engine
	path string

	doc     *project.Project // last document applied to the engine
	mtime   time.Time
	status  engine.Status
	loadErr error
	reloads int
	frame   int
}

// tickMsg drives the poll loop.
type tickMsg time.Time

func newWatchModel(eng *engine.Engine, path string, doc *project.Project, mtime time.Time) watchModel {
	return watchModel{
		eng:    eng,
		path:   path,
		doc:    doc,
		mtime:  mtime,
		status: eng.Status(),
	}
}

func watchTickCmd() tea.Cmd {
	return tea.Tick(watchTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m watchModel) Init() tea.Cmd {
	return watchTickCmd()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.eng.Run()
		}
	case tickMsg:
		m.frame++
		m = m.poll()
		m.status = m.eng.Status()
		return m, watchTickCmd()
	}
	return m, nil
}

// poll reloads the project document when the file's modification time
// moves and applies the difference to the engine. Load and apply failures
// are kept for display; the engine stays on the last good document.
func (m watchModel) poll() watchModel {
	info, err := os.Stat(m.path)
	if err != nil {
		m.loadErr = err
		return m
	}
	if !info.ModTime().After(m.mtime) {
		return m
	}
	m.mtime = info.ModTime()

	doc, err := project.ReadFile(m.path)
	if err != nil {
		m.loadErr = err
		return m
	}
	if err := applyProject(m.eng, doc); err != nil {
		m.loadErr = err
		return m
	}
	m.loadErr = nil
	m.doc = doc
	m.reloads++
	return m
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("rastermill watch"))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(m.path))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q quit  r run"))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")

	if m.loadErr != nil {
		b.WriteString(styleIconWarning.Render(iconWarning))
		b.WriteString(" ")
		b.WriteString(StyleWarning.Render(m.loadErr.Error()))
		b.WriteString("\n")
	}
	if m.status.Err != "" {
		b.WriteString(styleIconError.Render(iconError))
		b.WriteString(" ")
		b.WriteString(m.status.Err)
		b.WriteString("\n")
	}

	if len(m.status.Annotations) > 0 {
		b.WriteString("\n")
		b.WriteString(m.annotationTable())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("  [%d reloads]", m.reloads)))
	b.WriteString("\n")

	return b.String()
}

// statusLine renders one line of engine state: a spinner while a pass
// runs, a check when idle and clean, a warning when nodes are annotated.
func (m watchModel) statusLine() string {
	icon := StyleSuccess.Render(iconSuccess)
	if m.status.Processing {
		icon = styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)])
	} else if m.status.Err != "" || len(m.status.Annotations) > 0 {
		icon = StyleWarning.Render(iconWarning)
	}

	parts := []string{
		"mode " + string(m.status.Mode),
		fmt.Sprintf("pass %d", m.status.Generation),
		fmt.Sprintf("%d nodes", len(m.doc.Nodes)),
		fmt.Sprintf("%d edges", len(m.doc.Edges)),
	}

	return icon + " " + StyleValue.Render(string(m.status.State)) + "  " + StyleDim.Render(strings.Join(parts, " · "))
}

// annotationTable lists annotated nodes with their display names.
func (m watchModel) annotationTable() string {
	names := make(map[int]string, len(m.doc.Nodes))
	for _, n := range m.doc.Nodes {
		if n.Name != "" {
			names[n.ID] = n.Name
		} else {
			names[n.ID] = n.Kind
		}
	}

	rows := [][]string{}
	for _, id := range slices.Sorted(maps.Keys(m.status.Annotations)) {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("node %d", id)
		}
		rows = append(rows, []string{strconv.Itoa(id), name, m.status.Annotations[id]})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Node", "Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 2 {
				return lipgloss.NewStyle().Foreground(colorYellow)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	return t.Render()
}

// =============================================================================
// Document Diffing
// =============================================================================

// applyProject edits the live engine so its graph matches doc. Parameter
// value changes go through SetParam and debounce like editor keystrokes;
// node and edge changes dispatch as structural edits. A node whose kind
// changed or whose parameter set shrank is replaced outright, since
// parameters can only be set, not unset.
func applyProject(eng *engine.Engine, doc *project.Project) error {
	snap := eng.Snapshot()

	if doc.Mode != "" && engine.Mode(doc.Mode) != eng.Mode() {
		eng.SetMode(engine.Mode(doc.Mode))
	}

	want := make(map[int]project.NodeDoc, len(doc.Nodes))
	for _, n := range doc.Nodes {
		want[n.ID] = n
	}
	wantEdges := make(map[dataflow.Edge]bool, len(doc.Edges))
	for _, e := range doc.Edges {
		wantEdges[dataflow.Edge(e)] = true
	}

	// Drop edges that disappeared. Edges on removed nodes go with their
	// node below.
	for _, e := range snap.Edges() {
		if !wantEdges[e] {
			eng.Disconnect(e)
		}
	}

	// Remove vanished nodes and tear down nodes that need replacing.
	replaced := make(map[int]bool)
	for _, n := range snap.Nodes() {
		d, ok := want[n.ID]
		if !ok {
			if err := eng.RemoveNode(n.ID); err != nil {
				return err
			}
			continue
		}
		if d.Kind != n.Kind || paramsShrank(n.Params, d.Params) {
			if err := eng.RemoveNode(n.ID); err != nil {
				return err
			}
			replaced[n.ID] = true
		}
	}

	// Add new and replaced nodes.
	for _, d := range doc.Nodes {
		if _, ok := snap.Node(d.ID); ok && !replaced[d.ID] {
			continue
		}
		n := dataflow.Node{ID: d.ID, Kind: d.Kind, Name: d.Name, Params: d.Params}
		if err := eng.AddNode(n); err != nil {
			return err
		}
	}

	// Update survivors: names immediately, parameter values through the
	// debounced path.
	for _, d := range doc.Nodes {
		n, ok := snap.Node(d.ID)
		if !ok || replaced[d.ID] {
			continue
		}
		if d.Name != "" && d.Name != n.Name {
			if err := eng.SetName(d.ID, d.Name); err != nil {
				return err
			}
		}
		for _, key := range slices.Sorted(maps.Keys(d.Params)) {
			if cur, ok := n.Params[key]; !ok || !reflect.DeepEqual(cur, d.Params[key]) {
				if err := eng.SetParam(d.ID, key, d.Params[key]); err != nil {
					return err
				}
			}
		}
	}

	// Connect edges that are new, against the post-edit graph so edges on
	// replaced nodes come back too.
	have := make(map[dataflow.Edge]bool)
	for _, e := range eng.Snapshot().Edges() {
		have[e] = true
	}
	for _, e := range doc.Edges {
		if edge := dataflow.Edge(e); !have[edge] {
			if err := eng.Connect(edge); err != nil {
				return err
			}
		}
	}

	return nil
}

// paramsShrank reports whether cur has a key that next lacks.
func paramsShrank(cur dataflow.Params, next map[string]any) bool {
	for key := range cur {
		if _, ok := next[key]; !ok {
			return true
		}
	}
	return false
}
