package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/goldenlotto/lottery-backend/internal/accounts"
	"github.com/goldenlotto/lottery-backend/internal/bets"
	"github.com/goldenlotto/lottery-backend/pkg/db"
	"github.com/goldenlotto/lottery-backend/pkg/db/models"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

const defaultPageSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type balanceApplier interface {
	ApplyInTx(ctx context.Context, tx *gorm.DB, adj accounts.Adjustment) (*models.Transaction, error)
}

// PublishInput is a draw outcome submitted for settlement.
type PublishInput struct {
	LotteryType   enums.LotteryType
	WinningNumber string
	DrawDate      time.Time
}

// Summary reports the outcome of settling one result.
type Summary struct {
	Result       *models.Result  `json:"result"`
	WinnersCount int             `json:"winners_count"`
	TotalPayout  decimal.Decimal `json:"total_payout"`
}

// Service publishes draw results and settles the bets they cover. Publishing
// is guarded by the unique (lottery_type, draw_date) constraint; each bet then
// settles in its own transaction so a crash mid-run never double-pays and a
// resume picks up exactly the bets still pending.
type Service interface {
	Publish(ctx context.Context, input PublishInput) (*Summary, error)
	Resume(ctx context.Context, lotteryType enums.LotteryType, drawDate time.Time) (*Summary, error)
	ResumeUnsettled(ctx context.Context, limit int) (int, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	betRepo  bets.Repository
	balances balanceApplier
	logg     *logger.Logger
	pageSize int
}

// NewService wires the settlement engine.
func NewService(tx txRunner, repo Repository, betRepo bets.Repository, balances balanceApplier, logg *logger.Logger, pageSize int) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("result repository required")
	}
	if betRepo == nil {
		return nil, fmt.Errorf("bet repository required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance applier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &service{tx: tx, repo: repo, betRepo: betRepo, balances: balances, logg: logg, pageSize: pageSize}, nil
}

func (s *service) Publish(ctx context.Context, input PublishInput) (*Summary, error) {
	if !input.LotteryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid lottery type %q", input.LotteryType))
	}
	if input.WinningNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "winning number required")
	}
	if input.DrawDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draw date required")
	}
	if input.LotteryType.PayoutMultiplier().IsZero() {
		// Valid enum value without a payout entry means the multiplier table
		// is out of sync with the enum.
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("no payout multiplier configured for %q", input.LotteryType))
	}

	result := &models.Result{
		ID:            uuid.New(),
		LotteryType:   input.LotteryType,
		WinningNumber: input.WinningNumber,
		DrawDate:      input.DrawDate,
	}
	if err := s.repo.Create(ctx, result); err != nil {
		if db.IsUniqueViolation(err, "idx_results_lottery_draw") {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateResult, "result already published for this draw")
		}
		return nil, err
	}

	ctx = s.logg.WithDraw(ctx, string(input.LotteryType), input.DrawDate.Format("2006-01-02"))
	s.logg.Info(ctx, "result published, settling bets")

	return s.settle(ctx, result)
}

func (s *service) Resume(ctx context.Context, lotteryType enums.LotteryType, drawDate time.Time) (*Summary, error) {
	if !lotteryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid lottery type %q", lotteryType))
	}
	result, err := s.repo.FindByDraw(ctx, lotteryType, drawDate)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no result published for this draw")
	}
	if result.Settled {
		return &Summary{Result: result, WinnersCount: result.WinnersCount, TotalPayout: result.TotalPayout}, nil
	}

	ctx = s.logg.WithDraw(ctx, string(lotteryType), drawDate.Format("2006-01-02"))
	s.logg.Info(ctx, "resuming interrupted settlement")

	return s.settle(ctx, result)
}

func (s *service) ResumeUnsettled(ctx context.Context, limit int) (int, error) {
	results, err := s.repo.ListUnsettled(ctx, limit)
	if err != nil {
		return 0, err
	}
	resumed := 0
	for i := range results {
		result := results[i]
		drawCtx := s.logg.WithDraw(ctx, string(result.LotteryType), result.DrawDate.Format("2006-01-02"))
		if _, err := s.settle(drawCtx, &result); err != nil {
			s.logg.Error(drawCtx, "settlement resume failed", err)
			continue
		}
		resumed++
	}
	return resumed, nil
}

// settle walks every still-pending bet covered by result. Each bet is its own
// atomic unit: the status flip and the payout credit commit together or not
// at all.
func (s *service) settle(ctx context.Context, result *models.Result) (*Summary, error) {
	multiplier := result.LotteryType.PayoutMultiplier()
	dayStart, dayEnd := drawWindow(result.DrawDate)

	var winners int
	totalPayout := decimal.Zero
	for {
		afterID := uuid.Nil
		for {
			page, err := s.betRepo.ListPendingPage(ctx, result.LotteryType, dayStart, dayEnd, afterID, s.pageSize)
			if err != nil {
				return nil, err
			}
			if len(page) == 0 {
				break
			}
			for i := range page {
				if err := s.settleBet(ctx, result, &page[i], multiplier); err != nil {
					return nil, err
				}
			}
			afterID = page[len(page)-1].ID
			if len(page) < s.pageSize {
				break
			}
		}

		// Marking settled shares a unit with a final pending re-check: a bet
		// committed while the walk ran re-opens the walk instead of being
		// stranded pending behind a settled result.
		reopened := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			betRepo := s.betRepo.WithTx(tx)
			remaining, err := betRepo.ListPendingPage(ctx, result.LotteryType, dayStart, dayEnd, uuid.Nil, 1)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				reopened = true
				return nil
			}
			winners, totalPayout, err = betRepo.AggregateWins(ctx, result.ID)
			if err != nil {
				return err
			}
			return s.repo.WithTx(tx).MarkSettled(ctx, result.ID, winners, totalPayout)
		})
		if err != nil {
			return nil, err
		}
		if !reopened {
			break
		}
	}
	result.Settled = true
	result.WinnersCount = winners
	result.TotalPayout = totalPayout

	ctx = s.logg.WithFields(ctx, map[string]any{"winners": winners, "total_payout": totalPayout.String()})
	s.logg.Info(ctx, "settlement complete")

	return &Summary{Result: result, WinnersCount: winners, TotalPayout: totalPayout}, nil
}

func (s *service) settleBet(ctx context.Context, result *models.Result, candidate *models.Bet, multiplier decimal.Decimal) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		betRepo := s.betRepo.WithTx(tx)

		bet, err := betRepo.FindByIDForUpdate(ctx, candidate.ID)
		if err != nil {
			return err
		}
		if bet == nil || bet.Status != enums.BetStatusPending {
			// Another settler got here first.
			return nil
		}

		if bet.NumberSelected != result.WinningNumber {
			return betRepo.Settle(ctx, bet.ID, enums.BetStatusLose, result.ID, nil)
		}

		payout := bet.StakeAmount.Mul(multiplier)
		if _, err := s.balances.ApplyInTx(ctx, tx, accounts.Adjustment{
			AccountID: bet.AccountID,
			Type:      enums.TransactionTypeWinning,
			Direction: enums.EntryDirectionCredit,
			Amount:    payout,
			Reference: fmt.Sprintf("winning:%s", bet.ID),
		}); err != nil {
			return err
		}
		return betRepo.Settle(ctx, bet.ID, enums.BetStatusWin, result.ID, &payout)
	})
	if err != nil && db.IsUniqueViolation(err, "idx_transactions_reference") {
		// The payout for this bet already committed in a concurrent run.
		return nil
	}
	return err
}

// drawWindow bounds the draw day as a half-open [start, end) interval. A
// result settles only bets placed on its own draw date; bets from other days
// wait for their own result.
func drawWindow(drawDate time.Time) (time.Time, time.Time) {
	start := time.Date(drawDate.Year(), drawDate.Month(), drawDate.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
