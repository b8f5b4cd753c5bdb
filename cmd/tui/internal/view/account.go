package view

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/paperlift/paperlift/internal/account"
	"github.com/paperlift/paperlift/internal/billing"
	"github.com/paperlift/paperlift/internal/money"
)

type accountState int

const (
	accountStateInput accountState = iota
	accountStateLoading
	accountStateDisplay
)

type AccountModel struct {
	CommonModel
	accountService *account.Service
	billingService *billing.Service
	currency       string

	state accountState
	form  *huh.Form

	formID string

	acc     *account.Account
	summary *billing.Summary
	err     error
}

func NewAccountModel(accSvc *account.Service, billingSvc *billing.Service, currency string) AccountModel {
	m := AccountModel{
		accountService: accSvc,
		billingService: billingSvc,
		currency:       currency,
	}
	m.form = m.newForm()

	return m
}

func (m AccountModel) newForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("account_id").
				Title("Account ID").
				Placeholder("00000000-0000-0000-0000-000000000000").
				Value(&m.formID).
				Validate(func(s string) error {
					if _, err := uuid.Parse(strings.TrimSpace(s)); err != nil {
						return errors.New("not a valid account ID")
					}
					return nil
				}),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m AccountModel) Title() string { return "Account Lookup" }
func (m AccountModel) ShortHelp() string {
	if m.state == accountStateDisplay {
		return "Esc: back | n: look up another"
	}
	return "Enter: look up | Esc: back"
}

func (m AccountModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m AccountModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadAccountMsg:
		m.state = accountStateDisplay
		m.acc = msg.acc
		m.summary = msg.summary
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}
		if m.state == accountStateDisplay && msg.String() == "n" {
			m.state = accountStateInput
			m.formID = ""
			m.form = m.newForm()
			return m, m.form.Init()
		}
	}

	if m.state != accountStateInput {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = accountStateLoading

	return m, m.loadAccountCmd(m.form.GetString("account_id"))
}

func (m AccountModel) View() string {
	switch m.state {
	case accountStateLoading:
		return lipgloss.NewStyle().Padding(2).Render("Loading account...")
	case accountStateDisplay:
		return m.viewDisplay()
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(
		"Account Lookup\n\n" + m.form.View(),
	)
}

func (m AccountModel) viewDisplay() string {
	if m.err != nil {
		msg := fmt.Sprintf("Error: %v", m.err)
		if errors.Is(m.err, account.ErrNotFound) {
			msg = "No account with that ID."
		}
		return lipgloss.NewStyle().Padding(2).Render(msg)
	}

	label := lipgloss.NewStyle().Faint(true).Width(18).Render

	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(m.acc.Email),
		"",
		label("ID") + m.acc.ID.String(),
		label("Balance") + money.Format(m.acc.Balance, m.currency),
		label("Free conversions") + fmt.Sprintf("%d", m.acc.FreeConversions),
		label("Member since") + FormatDate(m.acc.CreatedAt),
	}

	if m.summary != nil {
		lines = append(lines,
			"",
			label("Total spent")+money.Format(m.summary.TotalSpent, m.currency),
			label("Total added")+money.Format(m.summary.TotalAdded, m.currency),
			label("Conversions")+fmt.Sprintf("%d (%d free)", m.summary.TotalConversions, m.summary.FreeConversionsUsed),
		)
	}

	panel := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Render(strings.Join(lines, "\n"))

	return lipgloss.NewStyle().Padding(1).Render(panel)
}

// Messages

type loadAccountMsg struct {
	acc     *account.Account
	summary *billing.Summary
	err     error
}

func (m AccountModel) loadAccountCmd(rawID string) tea.Cmd {
	return func() tea.Msg {
		id, err := uuid.Parse(strings.TrimSpace(rawID))
		if err != nil {
			return loadAccountMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		acc, err := m.accountService.Get(ctx, id)
		if err != nil {
			return loadAccountMsg{err: err}
		}

		// Summary is best-effort; the account panel still renders without it.
		summary, err := m.billingService.Summary(ctx, id)
		if err != nil {
			summary = nil
		}

		return loadAccountMsg{acc: acc, summary: summary}
	}
}
