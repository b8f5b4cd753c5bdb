package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/paperlift/paperlift/internal/money"
	"github.com/paperlift/paperlift/internal/pricing"
)

type PoliciesModel struct {
	CommonModel
	pricingService *pricing.Service
	currency       string

	table    table.Model
	policies []*pricing.Policy

	loading bool
	err     error
}

func NewPoliciesModel(pricingSvc *pricing.Service, currency string) PoliciesModel {
	columns := []table.Column{
		{Title: "Operation", Width: 24},
		{Title: "Model", Width: 16},
		{Title: "Base", Width: 9},
		{Title: "Per Page", Width: 9},
		{Title: "Free Pages", Width: 10},
		{Title: "Minimum", Width: 9},
		{Title: "Cap", Width: 9},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return PoliciesModel{
		pricingService: pricingSvc,
		currency:       currency,
		table:          t,
		loading:        true,
	}
}

func (m PoliciesModel) Title() string     { return "Pricing Policies" }
func (m PoliciesModel) ShortHelp() string { return "Esc: back | r: refresh" }

func (m PoliciesModel) Init() tea.Cmd {
	return m.loadPoliciesCmd()
}

func (m PoliciesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadPoliciesMsg:
		m.loading = false
		m.err = msg.err
		m.policies = msg.policies
		m.refreshTable()
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadPoliciesCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m PoliciesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading pricing policies...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	return lipgloss.NewStyle().Padding(1).Render(tableView)
}

func (m *PoliciesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.policies))
	for _, p := range m.policies {
		maxPrice := "-"
		if p.MaxPricePerFile.IsPositive() {
			maxPrice = money.Format(p.MaxPricePerFile, m.currency)
		}

		rows = append(rows, table.Row{
			p.Operation.Label(),
			string(p.Type),
			money.Format(p.BasePrice, m.currency),
			money.Format(p.PricePerPage, m.currency),
			fmt.Sprintf("%d", p.FreePages),
			money.Format(p.MinimumCharge, m.currency),
			maxPrice,
		})
	}
	m.table.SetRows(rows)
}

// Messages

type loadPoliciesMsg struct {
	policies []*pricing.Policy
	err      error
}

func (m PoliciesModel) loadPoliciesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		policies, err := m.pricingService.List(ctx)
		return loadPoliciesMsg{policies: policies, err: err}
	}
}
