package commission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenlotto/lottery-backend/internal/accounts"
	"github.com/goldenlotto/lottery-backend/pkg/db"
	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type accountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type balanceApplier interface {
	ApplyInTx(ctx context.Context, tx *gorm.DB, adj accounts.Adjustment) (*models.Transaction, error)
}

// Service computes and pays agent commission from qualifying transactions.
// Failures to pay commission never block the upstream money movement; they
// are logged and picked up by reconciliation.
type Service interface {
	OnBetPlaced(ctx context.Context, bet *models.Bet, stakeTransactionID uuid.UUID) error
	OnDeposit(ctx context.Context, deposit *models.Transaction) error
	Summary(ctx context.Context, agentID uuid.UUID) ([]TypeTotal, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.CommissionRecord, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	reader   accountReader
	balances balanceApplier
	logg     *logger.Logger
}

// NewService wires the commission engine.
func NewService(tx txRunner, repo Repository, reader accountReader, balances balanceApplier, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if reader == nil {
		return nil, fmt.Errorf("account reader required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance applier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{tx: tx, repo: repo, reader: reader, balances: balances, logg: logg}, nil
}

func (s *service) OnBetPlaced(ctx context.Context, bet *models.Bet, stakeTransactionID uuid.UUID) error {
	if bet == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "bet required")
	}
	if stakeTransactionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stake transaction id required")
	}
	return s.pay(ctx, bet.AccountID, stakeTransactionID, enums.CommissionTypeBet, bet.StakeAmount)
}

func (s *service) OnDeposit(ctx context.Context, deposit *models.Transaction) error {
	if deposit == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "deposit transaction required")
	}
	if deposit.Type != enums.TransactionTypeDeposit || deposit.Direction != enums.EntryDirectionCredit {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission applies to the deposit credit leg")
	}
	return s.pay(ctx, deposit.AccountID, deposit.ID, enums.CommissionTypeReferral, deposit.Amount)
}

// pay resolves the user's agent, computes amount x rate and credits the agent
// inside one atomic unit keyed on (source transaction, commission type).
func (s *service) pay(ctx context.Context, userAccountID, sourceTransactionID uuid.UUID, commissionType enums.CommissionType, base decimal.Decimal) error {
	if existing, err := s.repo.FindBySource(ctx, sourceTransactionID, commissionType); err != nil {
		return err
	} else if existing != nil {
		return nil
	}

	user, err := s.reader.GetByID(ctx, userAccountID)
	if err != nil {
		return err
	}
	if user.AgentID == nil {
		s.logg.Warn(s.logg.WithAccountID(ctx, userAccountID.String()), "account has no owning agent, skipping commission")
		return nil
	}
	agent, err := s.reader.GetByID(ctx, *user.AgentID)
	if err != nil {
		return err
	}

	rate, ok := agent.RateFor(commissionType)
	if !ok {
		fields := map[string]any{"agent_id": agent.ID.String(), "commission_type": string(commissionType)}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "no commission rate configured, skipping")
		return nil
	}

	amount := base.Mul(rate).Round(2)
	if !amount.IsPositive() {
		return nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		record := &models.CommissionRecord{
			ID:                  uuid.New(),
			AgentID:             agent.ID,
			CommissionType:      commissionType,
			Amount:              amount,
			SourceTransactionID: sourceTransactionID,
		}
		if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
			return err
		}
		_, err := s.balances.ApplyInTx(ctx, tx, accounts.Adjustment{
			AccountID: agent.ID,
			Type:      enums.TransactionTypeCommission,
			Direction: enums.EntryDirectionCredit,
			Amount:    amount,
			Reference: fmt.Sprintf("commission:%s:%s", sourceTransactionID, commissionType),
		})
		return err
	})
	if err != nil && db.IsUniqueViolation(err, "") {
		// A concurrent replay of the same upstream event won the insert race.
		return nil
	}
	return err
}

func (s *service) Summary(ctx context.Context, agentID uuid.UUID) ([]TypeTotal, error) {
	if err := s.requireAgent(ctx, agentID); err != nil {
		return nil, err
	}
	return s.repo.SummarizeByAgentID(ctx, agentID)
}

func (s *service) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]models.CommissionRecord, error) {
	if err := s.requireAgent(ctx, agentID); err != nil {
		return nil, err
	}
	return s.repo.ListByAgentID(ctx, agentID, limit)
}

func (s *service) requireAgent(ctx context.Context, agentID uuid.UUID) error {
	if agentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	agent, err := s.reader.GetByID(ctx, agentID)
	if err != nil {
		return err
	}
	if agent.Kind != enums.AccountKindAgent {
		return pkgerrors.New(pkgerrors.CodeValidation, "account is not an agent")
	}
	return nil
}
