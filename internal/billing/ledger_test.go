package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/paperlift/paperlift/internal/account"
	"github.com/paperlift/paperlift/internal/billing"
	"github.com/paperlift/paperlift/internal/pricing"
)

// memoryLedger is an in-memory billing.Repository. It serializes ledger
// transactions per account with a mutex, mirroring the row lock the
// Postgres store takes, which makes it a faithful stand-in for the
// concurrency properties under test.
type memoryLedger struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account.Account
	locks    map[uuid.UUID]*sync.Mutex
	log      []*billing.Transaction
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		accounts: make(map[uuid.UUID]*account.Account),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (m *memoryLedger) addAccount(acc *account.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *acc
	m.accounts[acc.ID] = &cp
	m.locks[acc.ID] = &sync.Mutex{}
}

func (m *memoryLedger) account(id uuid.UUID) account.Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	return *m.accounts[id]
}

func (m *memoryLedger) BeginLedgerTx(_ context.Context, accountID uuid.UUID) (billing.LedgerTx, error) {
	m.mu.Lock()
	lock, ok := m.locks[accountID]
	m.mu.Unlock()

	if !ok {
		return nil, account.ErrNotFound
	}

	lock.Lock()

	m.mu.Lock()
	snapshot := *m.accounts[accountID]
	m.mu.Unlock()

	return &memoryLedgerTx{ledger: m, lock: lock, acc: &snapshot}, nil
}

func (m *memoryLedger) ListTransactions(_ context.Context, accountID uuid.UUID, limit int) ([]*billing.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var txs []*billing.Transaction

	for i := len(m.log) - 1; i >= 0; i-- {
		if m.log[i].AccountID != accountID {
			continue
		}

		txs = append(txs, m.log[i])
		if limit > 0 && len(txs) == limit {
			break
		}
	}

	return txs, nil
}

func (m *memoryLedger) SpendSummary(_ context.Context, accountID uuid.UUID) (*billing.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := &billing.Summary{}

	for _, tx := range m.log {
		if tx.AccountID != accountID || !tx.IsSuccessful {
			continue
		}

		switch tx.Type {
		case billing.TypeConversion:
			summary.TotalSpent = summary.TotalSpent.Add(tx.Amount)
			summary.TotalConversions++

			if tx.PaymentMethod == billing.MethodFreeConversion {
				summary.FreeConversionsUsed++
			}
		case billing.TypeBalanceAdd:
			summary.TotalAdded = summary.TotalAdded.Add(tx.Amount)
		}
	}

	return summary, nil
}

type memoryLedgerTx struct {
	ledger *memoryLedger
	lock   *sync.Mutex
	acc    *account.Account
	staged []*billing.Transaction
	saved  bool
	done   bool
}

func (t *memoryLedgerTx) Account() *account.Account { return t.acc }

func (t *memoryLedgerTx) SaveAccount(_ context.Context, _ *account.Account) error {
	t.saved = true
	return nil
}

func (t *memoryLedgerTx) AppendTransaction(_ context.Context, tx *billing.Transaction) error {
	tx.ID = uuid.New()
	tx.CreatedAt = time.Now()
	t.staged = append(t.staged, tx)

	return nil
}

func (t *memoryLedgerTx) Commit() error {
	if t.done {
		return nil
	}

	t.done = true

	t.ledger.mu.Lock()
	if t.saved {
		cp := *t.acc
		t.ledger.accounts[t.acc.ID] = &cp
	}

	t.ledger.log = append(t.ledger.log, t.staged...)
	t.ledger.mu.Unlock()

	t.lock.Unlock()

	return nil
}

func (t *memoryLedgerTx) Rollback() error {
	if t.done {
		return nil
	}

	t.done = true
	t.lock.Unlock()

	return nil
}

func newEngine(t *testing.T, ledger *memoryLedger, base string) *billing.Service {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	return billing.NewService(ledger, fixedPolicy(ctrl, base), accountService(ctrl, nil))
}

func TestCharge_Scenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("FreeConversionsFirst", func(t *testing.T) {
		ledger := newMemoryLedger()
		acc := &account.Account{ID: uuid.New(), FreeConversions: 3}
		ledger.addAccount(acc)

		svc := newEngine(t, ledger, "0.50")

		tx, err := svc.Charge(ctx, billing.ChargeParams{
			AccountID: acc.ID,
			Operation: pricing.OpDocxToPDF,
			PageCount: 1,
		})
		require.NoError(t, err)

		assert.True(t, tx.IsSuccessful)
		assert.Equal(t, billing.MethodFreeConversion, tx.PaymentMethod)
		assert.True(t, tx.Amount.IsZero())
		assert.Equal(t, 3, tx.FreeConversionsBefore)
		assert.Equal(t, 2, tx.FreeConversionsAfter)
		assert.Equal(t, 2, ledger.account(acc.ID).FreeConversions)
	})

	t.Run("BalanceDrainsToInsufficient", func(t *testing.T) {
		ledger := newMemoryLedger()
		acc := &account.Account{ID: uuid.New(), Balance: dec("1.00")}
		ledger.addAccount(acc)

		svc := newEngine(t, ledger, "0.50")

		params := billing.ChargeParams{AccountID: acc.ID, Operation: pricing.OpDocxToPDF, PageCount: 1}

		first, err := svc.Charge(ctx, params)
		require.NoError(t, err)
		assert.True(t, first.IsSuccessful)
		assert.Equal(t, billing.MethodBalance, first.PaymentMethod)
		assert.True(t, first.BalanceAfter.Equal(dec("0.50")))

		second, err := svc.Charge(ctx, params)
		require.NoError(t, err)
		assert.True(t, second.IsSuccessful)
		assert.True(t, second.BalanceAfter.Equal(dec("0.00")))

		third, err := svc.Charge(ctx, params)
		require.NoError(t, err)
		assert.False(t, third.IsSuccessful)
		assert.True(t, third.Amount.Equal(dec("0.50")))
		assert.True(t, third.BalanceAfter.Equal(dec("0.00")))

		// The failed attempt is still on the log.
		txs, err := svc.History(ctx, acc.ID, 0)
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.False(t, txs[0].IsSuccessful)

		assert.True(t, ledger.account(acc.ID).Balance.IsZero())
	})
}

func TestCharge_Concurrent(t *testing.T) {
	// With funds for exactly 5 charges, 20 concurrent attempts must
	// produce exactly 5 successes regardless of interleaving.
	const (
		attempts = 20
		funded   = 5
	)

	ledger := newMemoryLedger()
	acc := &account.Account{ID: uuid.New(), Balance: dec("2.50")}
	ledger.addAccount(acc)

	svc := newEngine(t, ledger, "0.50")

	results := make([]*billing.Transaction, attempts)

	var g errgroup.Group

	for i := range attempts {
		g.Go(func() error {
			tx, err := svc.Charge(context.Background(), billing.ChargeParams{
				AccountID: acc.ID,
				Operation: pricing.OpDocxToPDF,
				PageCount: 1,
			})
			if err != nil {
				return err
			}

			results[i] = tx

			return nil
		})
	}

	require.NoError(t, g.Wait())

	var successes int

	for _, tx := range results {
		require.NotNil(t, tx)

		if tx.IsSuccessful {
			successes++
		}

		assert.False(t, tx.BalanceAfter.IsNegative())
	}

	assert.Equal(t, funded, successes)
	assert.True(t, ledger.account(acc.ID).Balance.IsZero())

	txs, err := svc.History(context.Background(), acc.ID, 0)
	require.NoError(t, err)
	assert.Len(t, txs, attempts)
}

func TestLedger_StateIsFoldOverLog(t *testing.T) {
	ctx := context.Background()

	ledger := newMemoryLedger()
	acc := &account.Account{ID: uuid.New(), FreeConversions: 2}
	ledger.addAccount(acc)

	svc := newEngine(t, ledger, "0.50")

	chargeParams := billing.ChargeParams{AccountID: acc.ID, Operation: pricing.OpDocxToPDF, PageCount: 1}

	_, err := svc.CreditBalance(ctx, billing.CreditParams{
		AccountID:     acc.ID,
		Amount:        dec("1.00"),
		PaymentMethod: billing.MethodCreditCard,
	})
	require.NoError(t, err)

	for range 5 { // 2 free, 2 paid, then one unsuccessful attempt
		_, err := svc.Charge(ctx, chargeParams)
		require.NoError(t, err)
	}

	_, err = svc.Refund(ctx, billing.RefundParams{AccountID: acc.ID, Amount: dec("0.50")})
	require.NoError(t, err)

	_, err = svc.Charge(ctx, chargeParams)
	require.NoError(t, err)

	txs, err := svc.History(ctx, acc.ID, 0)
	require.NoError(t, err)

	// Fold the log oldest-first and compare with the live account.
	balance := decimal.Zero
	free := 2

	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]

		// Each record reconciles with its own snapshots.
		assert.True(t, tx.BalanceAfter.Sub(tx.BalanceBefore).Abs().Equal(tx.Amount) ||
			tx.BalanceAfter.Equal(tx.BalanceBefore))

		if !tx.IsSuccessful {
			assert.True(t, tx.BalanceAfter.Equal(tx.BalanceBefore))
			continue
		}

		switch tx.Type {
		case billing.TypeBalanceAdd, billing.TypeRefund:
			balance = balance.Add(tx.Amount)
		case billing.TypeConversion:
			switch tx.PaymentMethod {
			case billing.MethodBalance:
				balance = balance.Sub(tx.Amount)
			case billing.MethodFreeConversion:
				free--
			}
		}
	}

	final := ledger.account(acc.ID)
	assert.True(t, final.Balance.Equal(balance),
		"folded balance = %s, account balance = %s", balance, final.Balance)
	assert.Equal(t, free, final.FreeConversions)

	summary, err := svc.Summary(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FreeConversionsUsed)
	assert.True(t, summary.TotalAdded.Equal(dec("1.00")))
}
