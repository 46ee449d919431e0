package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenlotto/lottery-backend/api/responses"
	"github.com/goldenlotto/lottery-backend/api/validators"
	"github.com/goldenlotto/lottery-backend/internal/bets"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

type betPlaceRequest struct {
	AccountID      string `json:"account_id" validate:"required,uuid"`
	LotteryType    string `json:"lottery_type" validate:"required"`
	NumberSelected string `json:"number_selected" validate:"required"`
	StakeAmount    string `json:"stake_amount" validate:"required"`
}

func (r betPlaceRequest) toInput() (bets.PlaceBetInput, error) {
	accountID, err := uuid.Parse(r.AccountID)
	if err != nil {
		return bets.PlaceBetInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id")
	}
	lotteryType, err := enums.ParseLotteryType(r.LotteryType)
	if err != nil {
		return bets.PlaceBetInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid lottery type")
	}
	stake, err := decimal.NewFromString(strings.TrimSpace(r.StakeAmount))
	if err != nil {
		return bets.PlaceBetInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stake amount")
	}
	return bets.PlaceBetInput{
		AccountID:      accountID,
		LotteryType:    lotteryType,
		NumberSelected: strings.TrimSpace(r.NumberSelected),
		StakeAmount:    stake,
		PlacedAt:       time.Now().UTC(),
	}, nil
}

// BetPlace records a wager and debits the stake in one transaction.
func BetPlace(svc bets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bet service unavailable"))
			return
		}

		var payload betPlaceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bet, err := svc.PlaceBet(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, bet)
	}
}

// BetDetail returns a single bet by ID.
func BetDetail(svc bets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bet service unavailable"))
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "betID"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "bet id is required"))
			return
		}
		betID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bet id"))
			return
		}

		bet, err := svc.GetByID(r.Context(), betID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, bet)
	}
}

// BetList returns an account's bets, newest first.
func BetList(svc bets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bet service unavailable"))
			return
		}

		accountID, err := accountIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByAccount(r.Context(), accountID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}
