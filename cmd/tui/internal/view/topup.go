package view

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperlift/paperlift/internal/billing"
	"github.com/paperlift/paperlift/internal/money"
)

type topUpState int

const (
	topUpStateForm topUpState = iota
	topUpStateSaving
	topUpStateDone
)

type TopUpModel struct {
	CommonModel
	billingService *billing.Service
	currency       string

	state topUpState
	form  *huh.Form

	formID     string
	formAmount string
	formMethod string

	result *billing.Transaction
	err    error
}

func NewTopUpModel(billingSvc *billing.Service, currency string) TopUpModel {
	m := TopUpModel{
		billingService: billingSvc,
		currency:       currency,
	}
	m.form = m.newForm()

	return m
}

func (m TopUpModel) newForm() *huh.Form {
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

			huh.NewInput().
				Key("amount").
				Title("Amount").
				Placeholder("10.00").
				Value(&m.formAmount).
				Validate(func(s string) error {
					amount, err := decimal.NewFromString(strings.TrimSpace(s))
					if err != nil {
						return errors.New("not a valid amount")
					}
					if !amount.IsPositive() {
						return errors.New("amount must be positive")
					}
					return nil
				}),

			huh.NewSelect[string]().
				Key("payment_method").
				Title("Payment Method").
				Options(
					huh.NewOption("Credit Card", string(billing.MethodCreditCard)),
					huh.NewOption("PayPal", string(billing.MethodPayPal)),
				).
				Value(&m.formMethod),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m TopUpModel) Title() string { return "Balance Top-Up" }
func (m TopUpModel) ShortHelp() string {
	if m.state == topUpStateDone {
		return "Esc: back | n: another top-up"
	}
	return "Navigate form | Esc: back"
}

func (m TopUpModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m TopUpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case topUpSavedMsg:
		m.state = topUpStateDone
		m.result = msg.tx
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}
		if m.state == topUpStateDone && msg.String() == "n" {
			m.state = topUpStateForm
			m.formID = ""
			m.formAmount = ""
			m.formMethod = ""
			m.result = nil
			m.err = nil
			m.form = m.newForm()
			return m, m.form.Init()
		}
	}

	if m.state != topUpStateForm {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = topUpStateSaving

	return m, m.saveCmd(
		m.form.GetString("account_id"),
		m.form.GetString("amount"),
		m.form.GetString("payment_method"),
	)
}

func (m TopUpModel) View() string {
	switch m.state {
	case topUpStateSaving:
		return lipgloss.NewStyle().Padding(2).Render("Crediting balance...")
	case topUpStateDone:
		return m.viewDone()
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(
		"Balance Top-Up\n\n" + m.form.View(),
	)
}

func (m TopUpModel) viewDone() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	label := lipgloss.NewStyle().Faint(true).Width(14).Render

	panel := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Render(strings.Join([]string{
			lipgloss.NewStyle().Bold(true).Render("Balance credited"),
			"",
			label("Amount") + money.Format(m.result.Amount, m.currency),
			label("New balance") + money.Format(m.result.BalanceAfter, m.currency),
			label("Method") + string(m.result.PaymentMethod),
			label("Transaction") + m.result.ID.String(),
		}, "\n"))

	return lipgloss.NewStyle().Padding(1).Render(panel)
}

// Messages

type topUpSavedMsg struct {
	tx  *billing.Transaction
	err error
}

func (m TopUpModel) saveCmd(rawID, rawAmount, rawMethod string) tea.Cmd {
	return func() tea.Msg {
		id, err := uuid.Parse(strings.TrimSpace(rawID))
		if err != nil {
			return topUpSavedMsg{err: err}
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(rawAmount))
		if err != nil {
			return topUpSavedMsg{err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		tx, err := m.billingService.CreditBalance(ctx, billing.CreditParams{
			AccountID:     id,
			Amount:        amount,
			PaymentMethod: billing.PaymentMethod(rawMethod),
		})

		return topUpSavedMsg{tx: tx, err: err}
	}
}
