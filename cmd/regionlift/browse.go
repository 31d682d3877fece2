package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/regionlift/region"
	"github.com/wippyai/regionlift/treeenc"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	ruleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	entryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	newStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const chromeHeight = 5

func browseCmd(a *app) *cobra.Command {
	var funcName string

	cmd := &cobra.Command{
		Use:   "browse FILE",
		Short: "Step through the lifting of a function level by level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fn, err := loadFunction(args[0], funcName)
			if err != nil {
				return err
			}
			var levels []region.Level
			cfg := a.cfg.RegionConfig(a.logger)
			cfg.OnLevel = func(l region.Level) { levels = append(levels, l) }

			tree, err := region.Lift(fn.Graph, fn.Entrypoint(), cfg)
			if err != nil {
				return err
			}

			p := tea.NewProgram(newBrowseModel(fn.Name, tree, levels), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&funcName, "func", "f", "", "Function name (optional for single-function files)")
	return cmd
}

// browseModel shows one generation at a time. Every region of every level
// still lives in the final tree, so earlier levels can be described from it.
type browseModel struct {
	tree     *region.Tree
	name     string
	levels   []region.Level
	viewport viewport.Model
	index    int
	ready    bool
}

func newBrowseModel(name string, tree *region.Tree, levels []region.Level) *browseModel {
	return &browseModel{name: name, tree: tree, levels: levels}
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.viewport.SetContent(m.levelContent())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit

		case "right", "l", "n":
			if m.index < len(m.levels)-1 {
				m.setLevel(m.index + 1)
			}
			return m, nil

		case "left", "h", "p":
			if m.index > 0 {
				m.setLevel(m.index - 1)
			}
			return m, nil

		case "home", "g":
			m.setLevel(0)
			return m, nil

		case "end", "G":
			m.setLevel(len(m.levels) - 1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *browseModel) setLevel(i int) {
	if i < 0 {
		i = 0
	}
	m.index = i
	if m.ready {
		m.viewport.SetContent(m.levelContent())
		m.viewport.GotoTop()
	}
}

// levelContent lists the regions of the current level. The composite built
// by the level's match is highlighted; everything else is an alias.
func (m *browseModel) levelContent() string {
	if len(m.levels) == 0 {
		return ""
	}
	l := m.levels[m.index]
	var b strings.Builder
	for _, id := range l.Nodes {
		line := treeenc.Describe(m.tree, id)
		r := m.tree.Region(id)
		switch {
		case l.Match != nil && r.Variant() == region.Composite:
			line = newStyle.Render(line)
		case r.IsFunctionEntrypoint():
			line = entryStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
		if l.Match != nil && r.Variant() == region.Composite {
			for _, child := range r.Children() {
				b.WriteString("    ")
				b.WriteString(treeenc.Describe(m.tree, child))
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

func (m *browseModel) header() string {
	if len(m.levels) == 0 {
		return "no levels"
	}
	l := m.levels[m.index]
	if l.Match == nil {
		return fmt.Sprintf("level 0/%d: %d blocks", len(m.levels)-1, len(l.Nodes))
	}
	return fmt.Sprintf("level %d/%d: %s absorbed %d regions at %s, %d left",
		l.Index, len(m.levels)-1,
		ruleStyle.Render(l.Match.Pattern.String()),
		len(l.Match.Absorbed),
		m.tree.Label(l.Match.Anchor),
		len(l.Nodes))
}

func (m *browseModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Region Lift"))
	b.WriteString(" ")
	b.WriteString(m.name)
	b.WriteString("\n")
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.index == len(m.levels)-1 && !m.tree.Structured() {
		b.WriteString(warnStyle.Render("unstructured: root is an unordered composite"))
		b.WriteString(" ")
	}
	b.WriteString(helpStyle.Render("←/→ level • g/G first/last • ↑/↓ scroll • q quit"))
	return b.String()
}
