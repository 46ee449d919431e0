package commission

import (
	"context"
	"encoding/json"
	"io"
	"testing"

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

type sourceKey struct {
	id uuid.UUID
	ct enums.CommissionType
}

type fakeRepo struct {
	records map[sourceKey]*models.CommissionRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[sourceKey]*models.CommissionRecord)}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, record *models.CommissionRecord) error {
	key := sourceKey{id: record.SourceTransactionID, ct: record.CommissionType}
	if _, exists := f.records[key]; exists {
		return &duplicateError{}
	}
	f.records[key] = record
	return nil
}

type duplicateError struct{}

func (*duplicateError) Error() string {
	return "duplicate key value violates unique constraint \"idx_commission_source\""
}

func (f *fakeRepo) FindBySource(ctx context.Context, sourceTransactionID uuid.UUID, commissionType enums.CommissionType) (*models.CommissionRecord, error) {
	record, ok := f.records[sourceKey{id: sourceTransactionID, ct: commissionType}]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (f *fakeRepo) ListByAgentID(ctx context.Context, agentID uuid.UUID, limit int) ([]models.CommissionRecord, error) {
	var out []models.CommissionRecord
	for _, record := range f.records {
		if record.AgentID == agentID {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (f *fakeRepo) SummarizeByAgentID(ctx context.Context, agentID uuid.UUID) ([]TypeTotal, error) {
	totals := map[enums.CommissionType]*TypeTotal{}
	for _, record := range f.records {
		if record.AgentID != agentID {
			continue
		}
		entry, ok := totals[record.CommissionType]
		if !ok {
			entry = &TypeTotal{CommissionType: record.CommissionType, Total: decimal.Zero}
			totals[record.CommissionType] = entry
		}
		entry.Total = entry.Total.Add(record.Amount)
		entry.Count++
	}
	var out []TypeTotal
	for _, entry := range totals {
		out = append(out, *entry)
	}
	return out, nil
}

type fakeReader struct {
	accounts map[uuid.UUID]*models.Account
}

func (f *fakeReader) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return account, nil
}

type fakeBalances struct {
	credits []accounts.Adjustment
}

func (f *fakeBalances) ApplyInTx(ctx context.Context, tx *gorm.DB, adj accounts.Adjustment) (*models.Transaction, error) {
	f.credits = append(f.credits, adj)
	return &models.Transaction{ID: uuid.New(), Reference: adj.Reference}, nil
}

type fixture struct {
	svc      Service
	repo     *fakeRepo
	reader   *fakeReader
	balances *fakeBalances
	agent    *models.Account
	user     *models.Account
}

func newFixture(t *testing.T, rates map[string]string) *fixture {
	t.Helper()
	repo := newFakeRepo()
	reader := &fakeReader{accounts: make(map[uuid.UUID]*models.Account)}
	balances := &fakeBalances{}

	var rawRates json.RawMessage
	if rates != nil {
		encoded, err := json.Marshal(rates)
		if err != nil {
			t.Fatalf("marshal rates: %v", err)
		}
		rawRates = encoded
	}
	agent := &models.Account{
		ID:              uuid.New(),
		Kind:            enums.AccountKindAgent,
		Status:          enums.AccountStatusActive,
		CommissionRates: rawRates,
	}
	user := &models.Account{
		ID:      uuid.New(),
		Kind:    enums.AccountKindUser,
		Status:  enums.AccountStatusActive,
		AgentID: &agent.ID,
	}
	reader.accounts[agent.ID] = agent
	reader.accounts[user.ID] = user

	logg := logger.New(logger.Options{ServiceName: "commission-test", Output: io.Discard})
	svc, err := NewService(fakeTxRunner{}, repo, reader, balances, logg)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return &fixture{svc: svc, repo: repo, reader: reader, balances: balances, agent: agent, user: user}
}

func TestOnBetPlaced_PaysAgent(t *testing.T) {
	fx := newFixture(t, map[string]string{"bet": "0.05"})
	ctx := context.Background()

	bet := &models.Bet{
		ID:          uuid.New(),
		AccountID:   fx.user.ID,
		StakeAmount: decimal.NewFromInt(1000),
	}
	stakeTxID := uuid.New()

	if err := fx.svc.OnBetPlaced(ctx, bet, stakeTxID); err != nil {
		t.Fatalf("OnBetPlaced error: %v", err)
	}

	if len(fx.balances.credits) != 1 {
		t.Fatalf("expected one commission credit, got %d", len(fx.balances.credits))
	}
	credit := fx.balances.credits[0]
	if credit.AccountID != fx.agent.ID {
		t.Fatalf("commission must credit the agent")
	}
	if !credit.Amount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50 commission, got %s", credit.Amount)
	}
	if credit.Type != enums.TransactionTypeCommission {
		t.Fatalf("wrong transaction type %s", credit.Type)
	}
	want := "commission:" + stakeTxID.String() + ":bet"
	if credit.Reference != want {
		t.Fatalf("reference %q, want %q", credit.Reference, want)
	}

	record, err := fx.repo.FindBySource(ctx, stakeTxID, enums.CommissionTypeBet)
	if err != nil || record == nil {
		t.Fatalf("commission record not persisted: %v", err)
	}
}

func TestOnBetPlaced_ReplayIsNoOp(t *testing.T) {
	fx := newFixture(t, map[string]string{"bet": "0.05"})
	ctx := context.Background()

	bet := &models.Bet{ID: uuid.New(), AccountID: fx.user.ID, StakeAmount: decimal.NewFromInt(1000)}
	stakeTxID := uuid.New()

	if err := fx.svc.OnBetPlaced(ctx, bet, stakeTxID); err != nil {
		t.Fatalf("first call error: %v", err)
	}
	if err := fx.svc.OnBetPlaced(ctx, bet, stakeTxID); err != nil {
		t.Fatalf("replay error: %v", err)
	}
	if len(fx.balances.credits) != 1 {
		t.Fatalf("replay must not pay twice, got %d credits", len(fx.balances.credits))
	}
}

func TestOnDeposit_UsesReferralRate(t *testing.T) {
	fx := newFixture(t, map[string]string{"referral": "0.02"})
	ctx := context.Background()

	deposit := &models.Transaction{
		ID:        uuid.New(),
		AccountID: fx.user.ID,
		Type:      enums.TransactionTypeDeposit,
		Direction: enums.EntryDirectionCredit,
		Amount:    decimal.NewFromInt(10000),
	}

	if err := fx.svc.OnDeposit(ctx, deposit); err != nil {
		t.Fatalf("OnDeposit error: %v", err)
	}
	if len(fx.balances.credits) != 1 {
		t.Fatalf("expected one credit, got %d", len(fx.balances.credits))
	}
	if !fx.balances.credits[0].Amount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected 200 commission, got %s", fx.balances.credits[0].Amount)
	}
}

func TestOnDeposit_RejectsWrongLeg(t *testing.T) {
	fx := newFixture(t, map[string]string{"referral": "0.02"})

	debitLeg := &models.Transaction{
		ID:        uuid.New(),
		AccountID: fx.user.ID,
		Type:      enums.TransactionTypeDeposit,
		Direction: enums.EntryDirectionDebit,
		Amount:    decimal.NewFromInt(10000),
	}
	if err := fx.svc.OnDeposit(context.Background(), debitLeg); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMissingRateSkipsWithoutError(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	bet := &models.Bet{ID: uuid.New(), AccountID: fx.user.ID, StakeAmount: decimal.NewFromInt(1000)}
	if err := fx.svc.OnBetPlaced(ctx, bet, uuid.New()); err != nil {
		t.Fatalf("missing rate must not error: %v", err)
	}
	if len(fx.balances.credits) != 0 {
		t.Fatalf("no commission should be paid without a rate")
	}
}

func TestSummary_RequiresAgent(t *testing.T) {
	fx := newFixture(t, map[string]string{"bet": "0.05"})

	if _, err := fx.svc.Summary(context.Background(), fx.user.ID); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for non-agent, got %v", err)
	}

	bet := &models.Bet{ID: uuid.New(), AccountID: fx.user.ID, StakeAmount: decimal.NewFromInt(2000)}
	if err := fx.svc.OnBetPlaced(context.Background(), bet, uuid.New()); err != nil {
		t.Fatalf("OnBetPlaced error: %v", err)
	}
	totals, err := fx.svc.Summary(context.Background(), fx.agent.ID)
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if len(totals) != 1 || !totals[0].Total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected summary: %+v", totals)
	}
}
