package transfers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenlotto/lottery-backend/internal/accounts"
	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

type accountMover interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	Transfer(ctx context.Context, input accounts.TransferInput) (*accounts.TransferResult, error)
}

type commissionHook interface {
	OnDeposit(ctx context.Context, deposit *models.Transaction) error
}

// ExecuteInput is an agent/user money movement request. Reference is the
// client idempotency token; when empty a fresh one is generated, which makes
// the request non-replayable.
type ExecuteInput struct {
	AgentID   uuid.UUID
	UserID    uuid.UUID
	Direction enums.TransferDirection
	Amount    decimal.Decimal
	Reference string
}

// Result reports both legs and the resulting balances of a transfer.
type Result struct {
	Reference   string              `json:"reference"`
	Debit       *models.Transaction `json:"debit"`
	Credit      *models.Transaction `json:"credit"`
	FromBalance decimal.Decimal     `json:"from_balance"`
	ToBalance   decimal.Decimal     `json:"to_balance"`
}

// Service moves money between an agent and one of its users.
type Service interface {
	Execute(ctx context.Context, input ExecuteInput) (*Result, error)
}

type service struct {
	mover      accountMover
	commission commissionHook
	logg       *logger.Logger
}

// NewService wires the transfer service. The commission hook may be nil when
// deposits should not pay referral commission.
func NewService(mover accountMover, commission commissionHook, logg *logger.Logger) (Service, error) {
	if mover == nil {
		return nil, fmt.Errorf("account mover required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{mover: mover, commission: commission, logg: logg}, nil
}

func (s *service) Execute(ctx context.Context, input ExecuteInput) (*Result, error) {
	if input.AgentID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent and user account ids required")
	}
	if !input.Direction.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transfer direction %q", input.Direction))
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	agent, err := s.mover.GetByID(ctx, input.AgentID)
	if err != nil {
		return nil, err
	}
	user, err := s.mover.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if agent.Kind != enums.AccountKindAgent {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from/to agent account is not agent kind")
	}
	if user.Kind != enums.AccountKindUser {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from/to user account is not user kind")
	}
	if user.AgentID == nil || *user.AgentID != agent.ID {
		return nil, pkgerrors.New(pkgerrors.CodeAccountMismatch, "user does not belong to this agent")
	}

	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		reference = NewReference()
	}

	transfer := accounts.TransferInput{
		Amount:    input.Amount,
		Reference: reference,
	}
	switch input.Direction {
	case enums.TransferDirectionDeposit:
		transfer.FromAccountID = agent.ID
		transfer.ToAccountID = user.ID
		transfer.Type = enums.TransactionTypeDeposit
	case enums.TransferDirectionWithdraw:
		transfer.FromAccountID = user.ID
		transfer.ToAccountID = agent.ID
		transfer.Type = enums.TransactionTypeWithdraw
	}

	moved, err := s.mover.Transfer(ctx, transfer)
	if err != nil {
		return nil, err
	}

	if input.Direction == enums.TransferDirectionDeposit && s.commission != nil {
		// Commission must never fail the deposit itself; replays are caught
		// by the commission source uniqueness.
		if err := s.commission.OnDeposit(ctx, moved.Credit); err != nil {
			s.logg.Error(s.logg.WithAgentID(ctx, agent.ID.String()), "deposit commission failed", err)
		}
	}

	return &Result{
		Reference:   reference,
		Debit:       moved.Debit,
		Credit:      moved.Credit,
		FromBalance: moved.Debit.BalanceAfter,
		ToBalance:   moved.Credit.BalanceAfter,
	}, nil
}

// NewReference mints a client-style transfer reference.
func NewReference() string {
	return "TXN" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
