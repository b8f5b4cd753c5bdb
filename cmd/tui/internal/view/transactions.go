package view

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/paperlift/paperlift/internal/billing"
	"github.com/paperlift/paperlift/internal/money"
)

const historyLimit = 50

type transactionsState int

const (
	transactionsStateInput transactionsState = iota
	transactionsStateBrowse
)

type TransactionsModel struct {
	CommonModel
	billingService *billing.Service
	currency       string

	state transactionsState
	form  *huh.Form
	table table.Model
	txs   []*billing.Transaction

	formID    string
	accountID uuid.UUID

	loading bool
	err     error
}

func NewTransactionsModel(billingSvc *billing.Service, currency string) TransactionsModel {
	columns := []table.Column{
		{Title: "Date", Width: 17},
		{Title: "Type", Width: 12},
		{Title: "Operation", Width: 22},
		{Title: "Amount", Width: 10},
		{Title: "Method", Width: 16},
		{Title: "Status", Width: 8},
		{Title: "Balance", Width: 10},
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

	m := TransactionsModel{
		billingService: billingSvc,
		currency:       currency,
		table:          t,
	}
	m.form = m.newForm()

	return m
}

func (m TransactionsModel) newForm() *huh.Form {
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

func (m TransactionsModel) Title() string { return "Transaction History" }
func (m TransactionsModel) ShortHelp() string {
	if m.state == transactionsStateBrowse {
		return "Esc: back | r: refresh | n: another account"
	}
	return "Enter: load | Esc: back"
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTransactionsMsg:
		m.loading = false
		m.err = msg.err
		m.txs = msg.txs
		m.refreshTable()
		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case transactionsStateInput:
		return m.updateInput(msg)
	case transactionsStateBrowse:
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m TransactionsModel) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m, Back
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	id, err := uuid.Parse(strings.TrimSpace(m.form.GetString("account_id")))
	if err != nil {
		m.err = err
		return m, nil
	}

	m.accountID = id
	m.state = transactionsStateBrowse
	m.loading = true

	return m, m.loadTransactionsCmd()
}

func (m TransactionsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadTransactionsCmd()
		case "n":
			m.state = transactionsStateInput
			m.formID = ""
			m.form = m.newForm()
			return m, m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m TransactionsModel) View() string {
	if m.state == transactionsStateInput {
		return lipgloss.NewStyle().Padding(1, 2).Render(
			"Transaction History\n\n" + m.form.View(),
		)
	}

	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf("Account %s | last %d transactions", m.accountID, historyLimit)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Faint(true).Render(header),
		tableView,
	)

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *TransactionsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		operation := ""
		if tx.Operation != "" {
			operation = tx.Operation.Label()
		}

		status := "ok"
		if !tx.IsSuccessful {
			status = "failed"
		}

		amount := money.Format(tx.Amount, m.currency)
		if tx.Type == billing.TypeConversion {
			amount = money.FormatCharge(tx.Amount, m.currency)
		}

		rows = append(rows, table.Row{
			FormatDate(tx.CreatedAt),
			string(tx.Type),
			operation,
			amount,
			string(tx.PaymentMethod),
			status,
			money.Format(tx.BalanceAfter, m.currency),
		})
	}
	m.table.SetRows(rows)
}

// Messages

type loadTransactionsMsg struct {
	txs []*billing.Transaction
	err error
}

func (m TransactionsModel) loadTransactionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.billingService.History(ctx, m.accountID, historyLimit)
		return loadTransactionsMsg{txs: txs, err: err}
	}
}
