package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	lio "github.com/matzehuels/labeltower/pkg/io"
	"github.com/matzehuels/labeltower/pkg/result"
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [report.json]",
		Short: "Step through the unresolved packages of a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := lio.ImportReport(args[0])
			if err != nil {
				return err
			}
			if len(rep.Unresolved) == 0 {
				printSuccess("All %d packages are placed", rep.Stats.Packages)
				return nil
			}
			_, err = tea.NewProgram(newUnresolvedModel(rep), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	detailKeyStyle    = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

// kindFilters is the cycle of filters behind the tab key.
var kindFilters = []result.Kind{"", result.Ambiguous, result.Unsatisfiable}

// unresolvedModel lists unresolved packages with the details of the
// selected one.
type unresolvedModel struct {
	report *result.Report
	items  []result.Unresolved
	filter int

	cursor int
	offset int
	height int
}

func newUnresolvedModel(rep *result.Report) unresolvedModel {
	m := unresolvedModel{report: rep, height: 12}
	m.applyFilter()
	return m
}

func (m *unresolvedModel) applyFilter() {
	kind := kindFilters[m.filter]
	m.items = nil
	for _, u := range m.report.Unresolved {
		if kind == "" || u.Kind == kind {
			m.items = append(m.items, u)
		}
	}
	m.cursor, m.offset = 0, 0
}

func (m unresolvedModel) Init() tea.Cmd {
	return nil
}

func (m unresolvedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "tab":
			m.filter = (m.filter + 1) % len(kindFilters)
			m.applyFilter()
		}
	case tea.WindowSizeMsg:
		// leave room for the title and the detail pane
		m.height = max(msg.Height-16, 5)
	}
	return m, nil
}

func (m unresolvedModel) selected() (result.Unresolved, bool) {
	if m.cursor >= len(m.items) {
		return result.Unresolved{}, false
	}
	return m.items[m.cursor], true
}

// buildCell is the Build column of u. Packages without a source build are
// shown as "(none)".
func buildCell(u result.Unresolved) string {
	if u.Build == "" {
		return "(none)"
	}
	return u.Build
}

func (m unresolvedModel) View() string {
	var b strings.Builder

	filter := "all"
	if k := kindFilters[m.filter]; k != "" {
		filter = string(k)
	}
	b.WriteString(StyleTitle.Render("Unresolved Packages"))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s · %d of %d", filter, len(m.items), len(m.report.Unresolved))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  tab filter  q quit"))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.items))
	rows := make([][]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		u := m.items[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{cursor, u.Package, string(u.Kind), buildCell(u)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Package", "Kind", "Build").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.offset + row
			if idx >= len(m.items) {
				return lipgloss.NewStyle()
			}
			if idx == m.cursor {
				return listSelectedStyle
			}
			if col == 2 && m.items[idx].Kind == result.Unsatisfiable {
				return StyleWarning
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})
	b.WriteString(t.Render())
	b.WriteString("\n\n")

	if u, ok := m.selected(); ok {
		b.WriteString(m.details(u))
	}
	return b.String()
}

func (m unresolvedModel) details(u result.Unresolved) string {
	var b strings.Builder
	line := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailKeyStyle.Render(key) + " " + StyleValue.Render(value) + "\n")
	}
	line("Package", u.Package)
	line("Reason", u.Reason)
	line("Candidates", strings.Join(u.Candidates, ", "))
	line("Components", strings.Join(u.Components, ", "))
	line("Suggestions", strings.Join(u.Suggestions, ", "))
	if br, ok := m.report.Build(u.Build); ok {
		line("Build", fmt.Sprintf("%s (%d binaries)", br.Name, len(br.Binaries)))
		line("Component", br.Component)
	}
	return b.String()
}
