package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenlotto/lottery-backend/internal/ledger"
	"github.com/goldenlotto/lottery-backend/pkg/db"
	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Adjustment describes a single balance delta. Amount is a positive
// magnitude; Direction carries the sign. Reference must be unique across the
// ledger and is the idempotency token: replaying the same reference returns
// the previously recorded transaction without moving money again.
type Adjustment struct {
	AccountID uuid.UUID
	Type      enums.TransactionType
	Direction enums.EntryDirection
	Amount    decimal.Decimal
	Reference string
}

// TransferInput moves Amount between two accounts atomically.
type TransferInput struct {
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Type          enums.TransactionType
	Amount        decimal.Decimal
	Reference     string
}

// TransferResult carries both legs of a completed transfer.
type TransferResult struct {
	Debit  *models.Transaction
	Credit *models.Transaction
}

// CreateAccountInput captures the data needed to open an account.
type CreateAccountInput struct {
	Kind            enums.AccountKind
	AgentID         *uuid.UUID
	CommissionRates []byte
}

// Service is the only writer of account balances. Every mutation runs inside
// one database transaction that locks the account row, appends the ledger
// entry and updates the balance together.
type Service interface {
	Create(ctx context.Context, input CreateAccountInput) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)
	AdjustBalance(ctx context.Context, adj Adjustment) (*models.Transaction, error)
	// ApplyInTx applies a delta inside the caller's transaction, locking the
	// account row itself. Callers own replay handling for their reference.
	ApplyInTx(ctx context.Context, tx *gorm.DB, adj Adjustment) (*models.Transaction, error)
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	ledgerRepo ledger.Repository

	// agentFloat lets agent accounts go below zero, covering payouts that
	// exceed the agent's current balance.
	agentFloat bool
}

// NewService wires the account service.
func NewService(tx txRunner, repo Repository, ledgerRepo ledger.Repository, agentFloat bool) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("account repository required")
	}
	if ledgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{tx: tx, repo: repo, ledgerRepo: ledgerRepo, agentFloat: agentFloat}, nil
}

func (s *service) Create(ctx context.Context, input CreateAccountInput) (*models.Account, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid account kind %q", input.Kind))
	}
	if input.Kind == enums.AccountKindUser && (input.AgentID == nil || *input.AgentID == uuid.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user accounts require an owning agent")
	}
	if input.Kind == enums.AccountKindAgent && input.AgentID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent accounts cannot have an owning agent")
	}

	account := &models.Account{
		Kind:            input.Kind,
		Balance:         decimal.Zero,
		Status:          enums.AccountStatusActive,
		AgentID:         input.AgentID,
		CommissionRates: input.CommissionRates,
	}
	if input.AgentID != nil {
		agent, err := s.repo.FindByID(ctx, *input.AgentID)
		if err != nil {
			return nil, err
		}
		if agent == nil || agent.Kind != enums.AccountKindAgent {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "owning agent not found")
		}
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return account, nil
}

func (s *service) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *service) AdjustBalance(ctx context.Context, adj Adjustment) (*models.Transaction, error) {
	if existing, err := s.replay(ctx, adj.Reference); existing != nil || err != nil {
		return existing, err
	}

	var result *models.Transaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txn, err := s.ApplyInTx(ctx, tx, adj)
		if err != nil {
			return err
		}
		result = txn
		return nil
	})
	if err != nil {
		// A concurrent request with the same reference won the insert race.
		if db.IsUniqueViolation(err, "idx_transactions_reference") {
			return s.replay(ctx, adj.Reference)
		}
		return nil, err
	}
	return result, nil
}

func (s *service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.FromAccountID == uuid.Nil || input.ToAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both account ids required")
	}
	if input.FromAccountID == input.ToAccountID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer to the same account")
	}
	if input.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}

	debitRef := input.Reference + ":debit"
	creditRef := input.Reference + ":credit"

	if prior, err := s.replayTransfer(ctx, debitRef, creditRef); prior != nil || err != nil {
		return prior, err
	}

	var result TransferResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)

		// Lock rows in a fixed order so two opposing transfers cannot
		// deadlock each other.
		first, second := input.FromAccountID, input.ToAccountID
		if second.String() < first.String() {
			first, second = second, first
		}
		locked := map[uuid.UUID]*models.Account{}
		for _, id := range []uuid.UUID{first, second} {
			account, err := repo.FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if account == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
			}
			locked[id] = account
		}

		debit, err := s.applyDelta(ctx, repo, ledgerRepo, locked[input.FromAccountID], Adjustment{
			AccountID: input.FromAccountID,
			Type:      input.Type,
			Direction: enums.EntryDirectionDebit,
			Amount:    input.Amount,
			Reference: debitRef,
		})
		if err != nil {
			return err
		}
		credit, err := s.applyDelta(ctx, repo, ledgerRepo, locked[input.ToAccountID], Adjustment{
			AccountID: input.ToAccountID,
			Type:      input.Type,
			Direction: enums.EntryDirectionCredit,
			Amount:    input.Amount,
			Reference: creditRef,
		})
		if err != nil {
			return err
		}
		result = TransferResult{Debit: debit, Credit: credit}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, "idx_transactions_reference") {
			return s.replayTransfer(ctx, debitRef, creditRef)
		}
		return nil, err
	}
	return &result, nil
}

func (s *service) ApplyInTx(ctx context.Context, tx *gorm.DB, adj Adjustment) (*models.Transaction, error) {
	repo := s.repo.WithTx(tx)
	ledgerRepo := s.ledgerRepo.WithTx(tx)

	account, err := repo.FindByIDForUpdate(ctx, adj.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return s.applyDelta(ctx, repo, ledgerRepo, account, adj)
}

// applyDelta is the single place a balance changes. The caller must hold the
// row lock on account. The ledger entry is written pending first, then the
// balance moves, then the entry completes, all inside the caller's
// transaction.
func (s *service) applyDelta(ctx context.Context, repo Repository, ledgerRepo ledger.Repository, account *models.Account, adj Adjustment) (*models.Transaction, error) {
	if account.Status != enums.AccountStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeAccountInactive, fmt.Sprintf("account is %s", account.Status))
	}

	before := account.Balance
	var after decimal.Decimal
	switch adj.Direction {
	case enums.EntryDirectionDebit:
		after = before.Sub(adj.Amount)
	case enums.EntryDirectionCredit:
		after = before.Add(adj.Amount)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry direction %q", adj.Direction))
	}

	if after.IsNegative() && !s.mayGoNegative(account) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds")
	}

	entry, err := ledger.NewEntry(account.ID, adj.Type, adj.Direction, adj.Amount, before, after, adj.Reference)
	if err != nil {
		return nil, err
	}
	if err := ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	if err := repo.UpdateBalance(ctx, account.ID, after); err != nil {
		return nil, err
	}
	if err := ledgerRepo.UpdateStatus(ctx, entry.ID, enums.TransactionStatusCompleted); err != nil {
		return nil, err
	}
	entry.Status = enums.TransactionStatusCompleted
	account.Balance = after
	return entry, nil
}

func (s *service) mayGoNegative(account *models.Account) bool {
	return s.agentFloat && account.Kind == enums.AccountKindAgent
}

// replay returns the previously completed transaction for reference, nil when
// the reference is unseen, or a conflict error when a prior attempt is still
// pending.
func (s *service) replay(ctx context.Context, reference string) (*models.Transaction, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	existing, err := s.ledgerRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	if existing.Status == enums.TransactionStatusCompleted {
		return existing, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "transaction with this reference is still in flight")
}

func (s *service) replayTransfer(ctx context.Context, debitRef, creditRef string) (*TransferResult, error) {
	debit, err := s.replay(ctx, debitRef)
	if err != nil || debit == nil {
		return nil, err
	}
	credit, err := s.replay(ctx, creditRef)
	if err != nil {
		return nil, err
	}
	if credit == nil {
		// Debit committed without its credit leg: the atomic unit was
		// violated outside this process. Surface loudly.
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transfer ledger is missing its credit leg")
	}
	return &TransferResult{Debit: debit, Credit: credit}, nil
}
