package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/paperlift/paperlift/cmd/tui/internal/view"
	"github.com/paperlift/paperlift/internal/account"
	accountStore "github.com/paperlift/paperlift/internal/account/store"
	"github.com/paperlift/paperlift/internal/billing"
	billingStore "github.com/paperlift/paperlift/internal/billing/store"
	"github.com/paperlift/paperlift/internal/config"
	"github.com/paperlift/paperlift/internal/database"
	"github.com/paperlift/paperlift/internal/pricing"
	pricingStore "github.com/paperlift/paperlift/internal/pricing/store"
)

type model struct {
	accountService *account.Service
	billingService *billing.Service
	pricingService *pricing.Service
	currency       string

	currentView View

	accountView      view.AccountModel
	transactionsView view.TransactionsModel
	topUpView        view.TopUpModel
	policiesView     view.PoliciesModel
}

type View int

const (
	ViewMenu         View = 0
	ViewAccount      View = 1
	ViewTransactions View = 2
	ViewTopUp        View = 3
	ViewPolicies     View = 4
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	pricingSvc := pricing.NewService(pricingStore.New(db))
	accountSvc := account.NewService(accountStore.New(db), cfg.Billing.FreeConversionGrant)
	billingSvc := billing.NewService(billingStore.New(db), pricingSvc, accountSvc)

	currency := cfg.Billing.Currency

	return model{
		accountService:   accountSvc,
		billingService:   billingSvc,
		pricingService:   pricingSvc,
		currency:         currency,
		currentView:      ViewMenu,
		accountView:      view.NewAccountModel(accountSvc, billingSvc, currency),
		transactionsView: view.NewTransactionsModel(billingSvc, currency),
		topUpView:        view.NewTopUpModel(billingSvc, currency),
		policiesView:     view.NewPoliciesModel(pricingSvc, currency),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewAccount
				m.accountView = view.NewAccountModel(m.accountService, m.billingService, m.currency)

				return m, m.accountView.Init()
			case "2":
				m.currentView = ViewTransactions
				m.transactionsView = view.NewTransactionsModel(m.billingService, m.currency)

				return m, m.transactionsView.Init()
			case "3":
				m.currentView = ViewTopUp
				m.topUpView = view.NewTopUpModel(m.billingService, m.currency)

				return m, m.topUpView.Init()
			case "4":
				m.currentView = ViewPolicies
				m.policiesView = view.NewPoliciesModel(m.pricingService, m.currency)

				return m, m.policiesView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewAccount:
		var newModel tea.Model
		newModel, cmd = m.accountView.Update(msg)
		m.accountView = newModel.(view.AccountModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.transactionsView.Update(msg)
		m.transactionsView = newModel.(view.TransactionsModel)
	case ViewTopUp:
		var newModel tea.Model
		newModel, cmd = m.topUpView.Update(msg)
		m.topUpView = newModel.(view.TopUpModel)
	case ViewPolicies:
		var newModel tea.Model
		newModel, cmd = m.policiesView.Update(msg)
		m.policiesView = newModel.(view.PoliciesModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Paperlift Billing Console\n\n" +
				"1. Look Up Account\n" +
				"2. Transaction History\n" +
				"3. Balance Top-Up\n" +
				"4. Pricing Policies\n\n" +
				"q. Quit",
		)
	case ViewAccount:
		return m.accountView.View()
	case ViewTransactions:
		return m.transactionsView.View()
	case ViewTopUp:
		return m.topUpView.View()
	case ViewPolicies:
		return m.policiesView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
