package billing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/paperlift/paperlift/internal/account"
	"github.com/paperlift/paperlift/internal/billing"
	"github.com/paperlift/paperlift/internal/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixedPolicy returns a pricing service whose repository always resolves
// a fixed-price policy of the given base price.
func fixedPolicy(ctrl *gomock.Controller, base string) *pricing.Service {
	repo := pricing.NewMockRepository(ctrl)
	repo.EXPECT().
		GetPolicy(gomock.Any(), gomock.Any()).
		Return(&pricing.Policy{
			Operation: pricing.OpDocxToPDF,
			Type:      pricing.TypeFixed,
			BasePrice: dec(base),
			IsActive:  true,
		}, nil).
		AnyTimes()

	return pricing.NewService(repo)
}

func accountService(ctrl *gomock.Controller, acc *account.Account) *account.Service {
	repo := account.NewMockRepository(ctrl)

	if acc != nil {
		repo.EXPECT().
			GetAccount(gomock.Any(), acc.ID).
			Return(acc, nil).
			AnyTimes()
	}

	return account.NewService(repo, 3)
}

func TestService_Charge(t *testing.T) {
	accountID := uuid.New()

	type testCase struct {
		name       string
		acc        account.Account
		setupMock  func(m *billing.MockRepository, ltx *billing.MockLedgerTx, acc *account.Account)
		wantOK     bool
		wantMethod billing.PaymentMethod
		wantAmount string
		wantErr    bool
	}

	tests := []testCase{
		{
			name: "FreeConversion",
			acc:  account.Account{ID: accountID, FreeConversions: 3},
			setupMock: func(m *billing.MockRepository, ltx *billing.MockLedgerTx, acc *account.Account) {
				m.EXPECT().BeginLedgerTx(gomock.Any(), accountID).Return(ltx, nil)
				ltx.EXPECT().Account().Return(acc)
				ltx.EXPECT().SaveAccount(gomock.Any(), acc).Return(nil)
				ltx.EXPECT().
					AppendTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *billing.Transaction) error {
						tx.ID = uuid.New()
						return nil
					})
				ltx.EXPECT().Commit().Return(nil)
				ltx.EXPECT().Rollback().Return(nil)
			},
			wantOK:     true,
			wantMethod: billing.MethodFreeConversion,
			wantAmount: "0",
		},
		{
			name: "BalanceDebit",
			acc:  account.Account{ID: accountID, Balance: dec("1.00")},
			setupMock: func(m *billing.MockRepository, ltx *billing.MockLedgerTx, acc *account.Account) {
				m.EXPECT().BeginLedgerTx(gomock.Any(), accountID).Return(ltx, nil)
				ltx.EXPECT().Account().Return(acc)
				ltx.EXPECT().SaveAccount(gomock.Any(), acc).Return(nil)
				ltx.EXPECT().
					AppendTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *billing.Transaction) error {
						tx.ID = uuid.New()
						return nil
					})
				ltx.EXPECT().Commit().Return(nil)
				ltx.EXPECT().Rollback().Return(nil)
			},
			wantOK:     true,
			wantMethod: billing.MethodBalance,
			wantAmount: "0.50",
		},
		{
			name: "InsufficientFundsStillRecorded",
			acc:  account.Account{ID: accountID, Balance: dec("0.25")},
			setupMock: func(m *billing.MockRepository, ltx *billing.MockLedgerTx, acc *account.Account) {
				m.EXPECT().BeginLedgerTx(gomock.Any(), accountID).Return(ltx, nil)
				ltx.EXPECT().Account().Return(acc)
				// No SaveAccount: the failed charge mutates nothing.
				ltx.EXPECT().
					AppendTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *billing.Transaction) error {
						assert.False(t, tx.IsSuccessful)
						assert.Equal(t, "insufficient funds", tx.ErrorMessage)

						tx.ID = uuid.New()
						return nil
					})
				ltx.EXPECT().Commit().Return(nil)
				ltx.EXPECT().Rollback().Return(nil)
			},
			wantOK:     false,
			wantMethod: billing.MethodBalance,
			wantAmount: "0.50",
		},
		{
			name: "AppendFailureRollsBack",
			acc:  account.Account{ID: accountID, Balance: dec("1.00")},
			setupMock: func(m *billing.MockRepository, ltx *billing.MockLedgerTx, acc *account.Account) {
				m.EXPECT().BeginLedgerTx(gomock.Any(), accountID).Return(ltx, nil)
				ltx.EXPECT().Account().Return(acc)
				ltx.EXPECT().SaveAccount(gomock.Any(), acc).Return(nil)
				ltx.EXPECT().
					AppendTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("storage unavailable"))
				// No Commit: the charge must not survive a failed
				// audit write.
				ltx.EXPECT().Rollback().Return(nil)
			},
			wantErr: true,
		},
		{
			name: "BeginError",
			acc:  account.Account{ID: accountID},
			setupMock: func(m *billing.MockRepository, ltx *billing.MockLedgerTx, acc *account.Account) {
				m.EXPECT().
					BeginLedgerTx(gomock.Any(), accountID).
					Return(nil, account.ErrNotFound)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := billing.NewMockRepository(ctrl)
			ltx := billing.NewMockLedgerTx(ctrl)

			acc := tt.acc
			if tt.setupMock != nil {
				tt.setupMock(repo, ltx, &acc)
			}

			svc := billing.NewService(repo, fixedPolicy(ctrl, "0.50"), accountService(ctrl, nil))

			got, err := svc.Charge(context.Background(), billing.ChargeParams{
				AccountID: accountID,
				Operation: pricing.OpDocxToPDF,
				PageCount: 1,
			})

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantOK, got.IsSuccessful)
			assert.Equal(t, tt.wantMethod, got.PaymentMethod)
			assert.True(t, got.Amount.Equal(dec(tt.wantAmount)),
				"amount = %s, want %s", got.Amount, tt.wantAmount)
			assert.Equal(t, billing.TypeConversion, got.Type)
		})
	}
}

func TestService_Charge_NegativePageCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := billing.NewMockRepository(ctrl)
	svc := billing.NewService(repo, fixedPolicy(ctrl, "0.50"), accountService(ctrl, nil))

	got, err := svc.Charge(context.Background(), billing.ChargeParams{
		AccountID: uuid.New(),
		Operation: pricing.OpDocxToPDF,
		PageCount: -1,
	})

	assert.ErrorIs(t, err, billing.ErrInvalidPageCount)
	assert.Nil(t, got)
}

func TestService_CreditBalance(t *testing.T) {
	accountID := uuid.New()

	type testCase struct {
		name      string
		amount    string
		method    billing.PaymentMethod
		setupMock func(m *billing.MockRepository, ltx *billing.MockLedgerTx, acc *account.Account)
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "Success",
			amount: "10.00",
			method: billing.MethodCreditCard,
			setupMock: func(m *billing.MockRepository, ltx *billing.MockLedgerTx, acc *account.Account) {
				m.EXPECT().BeginLedgerTx(gomock.Any(), accountID).Return(ltx, nil)
				ltx.EXPECT().Account().Return(acc)
				ltx.EXPECT().SaveAccount(gomock.Any(), acc).Return(nil)
				ltx.EXPECT().
					AppendTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *billing.Transaction) error {
						assert.Equal(t, billing.TypeBalanceAdd, tx.Type)
						assert.True(t, tx.BalanceAfter.Equal(tx.BalanceBefore.Add(tx.Amount)))

						tx.ID = uuid.New()
						return nil
					})
				ltx.EXPECT().Commit().Return(nil)
				ltx.EXPECT().Rollback().Return(nil)
			},
		},
		{
			name:    "ZeroAmount",
			amount:  "0",
			method:  billing.MethodCreditCard,
			wantErr: billing.ErrInvalidAmount,
		},
		{
			name:    "NegativeAmount",
			amount:  "-5.00",
			method:  billing.MethodPayPal,
			wantErr: billing.ErrInvalidAmount,
		},
		{
			name:    "FreeConversionIsNotATopUpMethod",
			amount:  "5.00",
			method:  billing.MethodFreeConversion,
			wantErr: billing.ErrInvalidPaymentMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := billing.NewMockRepository(ctrl)
			ltx := billing.NewMockLedgerTx(ctrl)
			acc := account.Account{ID: accountID, Balance: dec("2.00")}

			if tt.setupMock != nil {
				tt.setupMock(repo, ltx, &acc)
			}

			svc := billing.NewService(repo, fixedPolicy(ctrl, "0.50"), accountService(ctrl, nil))

			got, err := svc.CreditBalance(context.Background(), billing.CreditParams{
				AccountID:     accountID,
				Amount:        dec(tt.amount),
				PaymentMethod: tt.method,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, got.IsSuccessful)
			assert.True(t, got.BalanceAfter.Equal(dec("12.00")))
		})
	}
}

func TestService_Refund(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accountID := uuid.New()
	acc := account.Account{ID: accountID, Balance: dec("0.00")}

	repo := billing.NewMockRepository(ctrl)
	ltx := billing.NewMockLedgerTx(ctrl)

	repo.EXPECT().BeginLedgerTx(gomock.Any(), accountID).Return(ltx, nil)
	ltx.EXPECT().Account().Return(&acc)
	ltx.EXPECT().SaveAccount(gomock.Any(), &acc).Return(nil)
	ltx.EXPECT().
		AppendTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *billing.Transaction) error {
			assert.Equal(t, billing.TypeRefund, tx.Type)
			assert.Equal(t, billing.MethodBalance, tx.PaymentMethod)

			tx.ID = uuid.New()
			return nil
		})
	ltx.EXPECT().Commit().Return(nil)
	ltx.EXPECT().Rollback().Return(nil)

	svc := billing.NewService(repo, fixedPolicy(ctrl, "0.50"), accountService(ctrl, nil))

	got, err := svc.Refund(context.Background(), billing.RefundParams{
		AccountID: accountID,
		Amount:    dec("0.50"),
		Reason:    "conversion failed after billing",
	})

	require.NoError(t, err)
	assert.True(t, got.BalanceAfter.Equal(dec("0.50")))
	assert.Equal(t, "conversion failed after billing", got.Description)
}

func TestService_CanAttempt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	acc := account.Account{ID: uuid.New(), FreeConversions: 1}

	repo := billing.NewMockRepository(ctrl)
	svc := billing.NewService(repo, fixedPolicy(ctrl, "0.50"), accountService(ctrl, &acc))

	ok, err := svc.CanAttempt(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_History(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accountID := uuid.New()

	repo := billing.NewMockRepository(ctrl)
	repo.EXPECT().
		ListTransactions(gomock.Any(), accountID, 10).
		Return([]*billing.Transaction{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

	svc := billing.NewService(repo, fixedPolicy(ctrl, "0.50"), accountService(ctrl, nil))

	txs, err := svc.History(context.Background(), accountID, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}
