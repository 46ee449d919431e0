package bets

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenlotto/lottery-backend/internal/accounts"
	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeBetRepo struct {
	bets map[uuid.UUID]*models.Bet
}

func newFakeBetRepo() *fakeBetRepo {
	return &fakeBetRepo{bets: make(map[uuid.UUID]*models.Bet)}
}

func (f *fakeBetRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeBetRepo) Create(ctx context.Context, bet *models.Bet) error {
	f.bets[bet.ID] = bet
	return nil
}

func (f *fakeBetRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	bet, ok := f.bets[id]
	if !ok {
		return nil, nil
	}
	copied := *bet
	return &copied, nil
}

func (f *fakeBetRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Bet, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeBetRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]models.Bet, error) {
	var out []models.Bet
	for _, bet := range f.bets {
		if bet.AccountID == accountID {
			out = append(out, *bet)
		}
	}
	return out, nil
}

func (f *fakeBetRepo) ListPendingPage(ctx context.Context, lotteryType enums.LotteryType, from, to time.Time, afterID uuid.UUID, limit int) ([]models.Bet, error) {
	return nil, nil
}

func (f *fakeBetRepo) Settle(ctx context.Context, id uuid.UUID, status enums.BetStatus, resultID uuid.UUID, winningAmount *decimal.Decimal) error {
	return nil
}

func (f *fakeBetRepo) AggregateWins(ctx context.Context, resultID uuid.UUID) (int, decimal.Decimal, error) {
	return 0, decimal.Zero, nil
}

type fakeBalances struct {
	applied []accounts.Adjustment
	err     error
}

func (f *fakeBalances) ApplyInTx(ctx context.Context, tx *gorm.DB, adj accounts.Adjustment) (*models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.applied = append(f.applied, adj)
	return &models.Transaction{ID: uuid.New(), Reference: adj.Reference, Status: enums.TransactionStatusCompleted}, nil
}

type fakeCommission struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeCommission) OnBetPlaced(ctx context.Context, bet *models.Bet, stakeTransactionID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, stakeTransactionID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "bets-test", Output: io.Discard})
}

func TestPlaceBet_DebitsStake(t *testing.T) {
	repo := newFakeBetRepo()
	balances := &fakeBalances{}
	svc, err := NewService(fakeTxRunner{}, repo, balances, nil, testLogger())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	accountID := uuid.New()
	bet, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		AccountID:      accountID,
		LotteryType:    enums.LotteryType2D,
		NumberSelected: "47",
		StakeAmount:    decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("PlaceBet error: %v", err)
	}
	if bet.Status != enums.BetStatusPending {
		t.Fatalf("expected pending bet, got %s", bet.Status)
	}
	if len(balances.applied) != 1 {
		t.Fatalf("expected one stake debit, got %d", len(balances.applied))
	}
	adj := balances.applied[0]
	if adj.Type != enums.TransactionTypeBet || adj.Direction != enums.EntryDirectionDebit {
		t.Fatalf("wrong adjustment: %+v", adj)
	}
	if !adj.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("wrong stake amount: %s", adj.Amount)
	}
	if want := "bet:" + bet.ID.String(); adj.Reference != want {
		t.Fatalf("reference %q, want %q", adj.Reference, want)
	}
	if _, ok := repo.bets[bet.ID]; !ok {
		t.Fatalf("bet row not persisted")
	}
}

func TestPlaceBet_InsufficientFundsLeavesNoBet(t *testing.T) {
	repo := newFakeBetRepo()
	balances := &fakeBalances{err: pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds")}
	svc, err := NewService(fakeTxRunner{}, repo, balances, nil, testLogger())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	_, err = svc.PlaceBet(context.Background(), PlaceBetInput{
		AccountID:      uuid.New(),
		LotteryType:    enums.LotteryType3D,
		NumberSelected: "123",
		StakeAmount:    decimal.NewFromInt(500),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestPlaceBet_TriggersCommission(t *testing.T) {
	repo := newFakeBetRepo()
	balances := &fakeBalances{}
	hook := &fakeCommission{}
	svc, err := NewService(fakeTxRunner{}, repo, balances, hook, testLogger())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	_, err = svc.PlaceBet(context.Background(), PlaceBetInput{
		AccountID:      uuid.New(),
		LotteryType:    enums.LotteryType2D,
		NumberSelected: "47",
		StakeAmount:    decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("PlaceBet error: %v", err)
	}
	if len(hook.calls) != 1 {
		t.Fatalf("expected one commission call, got %d", len(hook.calls))
	}
}

func TestPlaceBet_CommissionFailureDoesNotFailBet(t *testing.T) {
	hook := &fakeCommission{err: errors.New("commission backend down")}
	svc, err := NewService(fakeTxRunner{}, newFakeBetRepo(), &fakeBalances{}, hook, testLogger())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	if _, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		AccountID:      uuid.New(),
		LotteryType:    enums.LotteryType2D,
		NumberSelected: "47",
		StakeAmount:    decimal.NewFromInt(1000),
	}); err != nil {
		t.Fatalf("bet must succeed even when commission fails: %v", err)
	}
}

func TestPlaceBet_Validation(t *testing.T) {
	svc, err := NewService(fakeTxRunner{}, newFakeBetRepo(), &fakeBalances{}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	base := PlaceBetInput{
		AccountID:      uuid.New(),
		LotteryType:    enums.LotteryType2D,
		NumberSelected: "47",
		StakeAmount:    decimal.NewFromInt(100),
	}

	tests := []struct {
		name   string
		mutate func(*PlaceBetInput)
	}{
		{"missing account", func(in *PlaceBetInput) { in.AccountID = uuid.Nil }},
		{"invalid lottery type", func(in *PlaceBetInput) { in.LotteryType = enums.LotteryType("5D") }},
		{"empty number", func(in *PlaceBetInput) { in.NumberSelected = "" }},
		{"non digit number", func(in *PlaceBetInput) { in.NumberSelected = "4x" }},
		{"2D wrong length", func(in *PlaceBetInput) { in.NumberSelected = "475" }},
		{"3D wrong length", func(in *PlaceBetInput) {
			in.LotteryType = enums.LotteryType3D
			in.NumberSelected = "42"
		}},
		{"zero stake", func(in *PlaceBetInput) { in.StakeAmount = decimal.Zero }},
		{"negative stake", func(in *PlaceBetInput) { in.StakeAmount = decimal.NewFromInt(-10) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			input := base
			tc.mutate(&input)
			if _, err := svc.PlaceBet(context.Background(), input); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
