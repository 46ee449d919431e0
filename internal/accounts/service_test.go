package accounts

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"

	"github.com/goldenlotto/lottery-backend/internal/ledger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeAccountRepo struct {
	accounts map[uuid.UUID]*models.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*models.Account)}
}

func (f *fakeAccountRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAccountRepo) Create(ctx context.Context, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (f *fakeAccountRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeAccountRepo) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	account, ok := f.accounts[id]
	if !ok {
		return fmt.Errorf("account %s not found", id)
	}
	account.Balance = balance
	return nil
}

type fakeLedgerRepo struct {
	byReference map[string]*models.Transaction
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{byReference: make(map[string]*models.Transaction)}
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) Create(ctx context.Context, txn *models.Transaction) error {
	if _, exists := f.byReference[txn.Reference]; exists {
		return fmt.Errorf("duplicate key value violates unique constraint \"idx_transactions_reference\"")
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	f.byReference[txn.Reference] = txn
	return nil
}

func (f *fakeLedgerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus) error {
	for _, txn := range f.byReference {
		if txn.ID == id {
			txn.Status = status
		}
	}
	return nil
}

func (f *fakeLedgerRepo) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	txn, ok := f.byReference[reference]
	if !ok {
		return nil, nil
	}
	copied := *txn
	return &copied, nil
}

func (f *fakeLedgerRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, txn := range f.byReference {
		if txn.AccountID == accountID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]models.Transaction, error) {
	return nil, nil
}

type fixture struct {
	svc        Service
	repo       *fakeAccountRepo
	ledgerRepo *fakeLedgerRepo
}

func newFixture(t *testing.T, agentFloat bool) *fixture {
	t.Helper()
	repo := newFakeAccountRepo()
	ledgerRepo := newFakeLedgerRepo()
	svc, err := NewService(fakeTxRunner{}, repo, ledgerRepo, agentFloat)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return &fixture{svc: svc, repo: repo, ledgerRepo: ledgerRepo}
}

func (fx *fixture) seedAccount(kind enums.AccountKind, balance int64) *models.Account {
	account := &models.Account{
		ID:      uuid.New(),
		Kind:    kind,
		Balance: decimal.NewFromInt(balance),
		Status:  enums.AccountStatusActive,
	}
	fx.repo.accounts[account.ID] = account
	return account
}

func TestAdjustBalance_CreditAndDebit(t *testing.T) {
	fx := newFixture(t, false)
	account := fx.seedAccount(enums.AccountKindUser, 1000)
	ctx := context.Background()

	credit, err := fx.svc.AdjustBalance(ctx, Adjustment{
		AccountID: account.ID,
		Type:      enums.TransactionTypeDeposit,
		Direction: enums.EntryDirectionCredit,
		Amount:    decimal.NewFromInt(250),
		Reference: "TXN-credit-1",
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if !credit.BalanceBefore.Equal(decimal.NewFromInt(1000)) || !credit.BalanceAfter.Equal(decimal.NewFromInt(1250)) {
		t.Fatalf("credit snapshots wrong: %s -> %s", credit.BalanceBefore, credit.BalanceAfter)
	}
	if credit.Status != enums.TransactionStatusCompleted {
		t.Fatalf("expected completed, got %s", credit.Status)
	}

	debit, err := fx.svc.AdjustBalance(ctx, Adjustment{
		AccountID: account.ID,
		Type:      enums.TransactionTypeWithdraw,
		Direction: enums.EntryDirectionDebit,
		Amount:    decimal.NewFromInt(1250),
		Reference: "TXN-debit-1",
	})
	if err != nil {
		t.Fatalf("debit to exactly zero should succeed: %v", err)
	}
	if !debit.BalanceAfter.IsZero() {
		t.Fatalf("expected zero balance, got %s", debit.BalanceAfter)
	}
	if !fx.repo.accounts[account.ID].Balance.IsZero() {
		t.Fatalf("account balance not updated: %s", fx.repo.accounts[account.ID].Balance)
	}
}

func TestAdjustBalance_InsufficientFunds(t *testing.T) {
	fx := newFixture(t, false)
	account := fx.seedAccount(enums.AccountKindUser, 100)

	_, err := fx.svc.AdjustBalance(context.Background(), Adjustment{
		AccountID: account.ID,
		Type:      enums.TransactionTypeWithdraw,
		Direction: enums.EntryDirectionDebit,
		Amount:    decimal.NewFromInt(101),
		Reference: "TXN-over",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if !fx.repo.accounts[account.ID].Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance must be untouched, got %s", fx.repo.accounts[account.ID].Balance)
	}
	if len(fx.ledgerRepo.byReference) != 0 {
		t.Fatalf("no ledger rows expected, got %d", len(fx.ledgerRepo.byReference))
	}
}

func TestAdjustBalance_AgentFloat(t *testing.T) {
	fx := newFixture(t, true)
	agent := fx.seedAccount(enums.AccountKindAgent, 50)

	txn, err := fx.svc.AdjustBalance(context.Background(), Adjustment{
		AccountID: agent.ID,
		Type:      enums.TransactionTypeWinning,
		Direction: enums.EntryDirectionDebit,
		Amount:    decimal.NewFromInt(200),
		Reference: "winning:payout",
	})
	if err != nil {
		t.Fatalf("agent float debit failed: %v", err)
	}
	if !txn.BalanceAfter.Equal(decimal.NewFromInt(-150)) {
		t.Fatalf("expected -150, got %s", txn.BalanceAfter)
	}

	// User accounts never float, regardless of the flag.
	user := fx.seedAccount(enums.AccountKindUser, 50)
	_, err = fx.svc.AdjustBalance(context.Background(), Adjustment{
		AccountID: user.ID,
		Type:      enums.TransactionTypeWithdraw,
		Direction: enums.EntryDirectionDebit,
		Amount:    decimal.NewFromInt(200),
		Reference: "TXN-user-over",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds for user, got %v", err)
	}
}

func TestAdjustBalance_IdempotentReplay(t *testing.T) {
	fx := newFixture(t, false)
	account := fx.seedAccount(enums.AccountKindUser, 500)
	ctx := context.Background()

	adj := Adjustment{
		AccountID: account.ID,
		Type:      enums.TransactionTypeDeposit,
		Direction: enums.EntryDirectionCredit,
		Amount:    decimal.NewFromInt(100),
		Reference: "TXN-replay",
	}
	first, err := fx.svc.AdjustBalance(ctx, adj)
	if err != nil {
		t.Fatalf("first apply failed: %v", err)
	}

	second, err := fx.svc.AdjustBalance(ctx, adj)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("replay must return the original transaction")
	}
	if !fx.repo.accounts[account.ID].Balance.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("balance applied twice: %s", fx.repo.accounts[account.ID].Balance)
	}
}

func TestAdjustBalance_PendingReferenceConflicts(t *testing.T) {
	fx := newFixture(t, false)
	account := fx.seedAccount(enums.AccountKindUser, 500)

	fx.ledgerRepo.byReference["TXN-stuck"] = &models.Transaction{
		ID:        uuid.New(),
		AccountID: account.ID,
		Reference: "TXN-stuck",
		Status:    enums.TransactionStatusPending,
	}

	_, err := fx.svc.AdjustBalance(context.Background(), Adjustment{
		AccountID: account.ID,
		Type:      enums.TransactionTypeDeposit,
		Direction: enums.EntryDirectionCredit,
		Amount:    decimal.NewFromInt(10),
		Reference: "TXN-stuck",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for in-flight reference, got %v", err)
	}
}

func TestAdjustBalance_InactiveAccount(t *testing.T) {
	fx := newFixture(t, false)
	account := fx.seedAccount(enums.AccountKindUser, 500)
	fx.repo.accounts[account.ID].Status = enums.AccountStatusSuspended

	_, err := fx.svc.AdjustBalance(context.Background(), Adjustment{
		AccountID: account.ID,
		Type:      enums.TransactionTypeDeposit,
		Direction: enums.EntryDirectionCredit,
		Amount:    decimal.NewFromInt(10),
		Reference: "TXN-suspended",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeAccountInactive) {
		t.Fatalf("expected account inactive, got %v", err)
	}
}

func TestTransfer_MovesBothLegs(t *testing.T) {
	fx := newFixture(t, false)
	agent := fx.seedAccount(enums.AccountKindAgent, 10000)
	user := fx.seedAccount(enums.AccountKindUser, 0)
	ctx := context.Background()

	result, err := fx.svc.Transfer(ctx, TransferInput{
		FromAccountID: agent.ID,
		ToAccountID:   user.ID,
		Type:          enums.TransactionTypeDeposit,
		Amount:        decimal.NewFromInt(3000),
		Reference:     "TXNabc",
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if result.Debit.Reference != "TXNabc:debit" || result.Credit.Reference != "TXNabc:credit" {
		t.Fatalf("unexpected leg references: %s / %s", result.Debit.Reference, result.Credit.Reference)
	}
	if !fx.repo.accounts[agent.ID].Balance.Equal(decimal.NewFromInt(7000)) {
		t.Fatalf("agent balance wrong: %s", fx.repo.accounts[agent.ID].Balance)
	}
	if !fx.repo.accounts[user.ID].Balance.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("user balance wrong: %s", fx.repo.accounts[user.ID].Balance)
	}
}

func TestTransfer_SameAccountRejected(t *testing.T) {
	fx := newFixture(t, false)
	account := fx.seedAccount(enums.AccountKindUser, 100)

	_, err := fx.svc.Transfer(context.Background(), TransferInput{
		FromAccountID: account.ID,
		ToAccountID:   account.ID,
		Type:          enums.TransactionTypeDeposit,
		Amount:        decimal.NewFromInt(10),
		Reference:     "TXNself",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransfer_Replay(t *testing.T) {
	fx := newFixture(t, false)
	agent := fx.seedAccount(enums.AccountKindAgent, 1000)
	user := fx.seedAccount(enums.AccountKindUser, 0)
	ctx := context.Background()

	input := TransferInput{
		FromAccountID: agent.ID,
		ToAccountID:   user.ID,
		Type:          enums.TransactionTypeDeposit,
		Amount:        decimal.NewFromInt(400),
		Reference:     "TXNdup",
	}
	first, err := fx.svc.Transfer(ctx, input)
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	second, err := fx.svc.Transfer(ctx, input)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if second.Debit.ID != first.Debit.ID || second.Credit.ID != first.Credit.ID {
		t.Fatalf("replay must return the original legs")
	}
	if !fx.repo.accounts[user.ID].Balance.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("transfer applied twice: %s", fx.repo.accounts[user.ID].Balance)
	}
}

func TestTransfer_Conservation(t *testing.T) {
	fx := newFixture(t, false)
	ctx := context.Background()

	accounts := []*models.Account{
		fx.seedAccount(enums.AccountKindAgent, 50000),
		fx.seedAccount(enums.AccountKindUser, 20000),
		fx.seedAccount(enums.AccountKindUser, 30000),
	}
	total := decimal.NewFromInt(100000)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		from := accounts[rng.Intn(len(accounts))]
		to := accounts[rng.Intn(len(accounts))]
		if from.ID == to.ID {
			continue
		}
		amount := decimal.NewFromInt(int64(rng.Intn(500) + 1))
		_, err := fx.svc.Transfer(ctx, TransferInput{
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			Type:          enums.TransactionTypeAdjustment,
			Amount:        amount,
			Reference:     fmt.Sprintf("TXNrand%d", i),
		})
		if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
			t.Fatalf("transfer %d failed: %v", i, err)
		}
	}

	sum := decimal.Zero
	for _, account := range accounts {
		sum = sum.Add(fx.repo.accounts[account.ID].Balance)
	}
	if !sum.Equal(total) {
		t.Fatalf("money not conserved: started with %s, ended with %s", total, sum)
	}
}
