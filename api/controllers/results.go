package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/goldenlotto/lottery-backend/api/responses"
	"github.com/goldenlotto/lottery-backend/api/validators"
	"github.com/goldenlotto/lottery-backend/internal/settlement"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

const drawDateLayout = "2006-01-02"

type resultPublishRequest struct {
	LotteryType   string `json:"lottery_type" validate:"required"`
	WinningNumber string `json:"winning_number" validate:"required"`
	DrawDate      string `json:"draw_date" validate:"required"`
}

func (r resultPublishRequest) toInput() (settlement.PublishInput, error) {
	lotteryType, err := enums.ParseLotteryType(r.LotteryType)
	if err != nil {
		return settlement.PublishInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid lottery type")
	}
	drawDate, err := time.ParseInLocation(drawDateLayout, strings.TrimSpace(r.DrawDate), time.UTC)
	if err != nil {
		return settlement.PublishInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "draw date must be YYYY-MM-DD")
	}
	return settlement.PublishInput{
		LotteryType:   lotteryType,
		WinningNumber: strings.TrimSpace(r.WinningNumber),
		DrawDate:      drawDate,
	}, nil
}

// ResultPublish records a draw outcome and settles every pending bet it covers.
func ResultPublish(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var payload resultPublishRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Publish(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, summary)
	}
}

type resultResumeRequest struct {
	LotteryType string `json:"lottery_type" validate:"required"`
	DrawDate    string `json:"draw_date" validate:"required"`
}

// ResultResume re-runs settlement for a published draw, picking up only the
// bets still pending.
func ResultResume(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		var payload resultResumeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lotteryType, err := enums.ParseLotteryType(payload.LotteryType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid lottery type"))
			return
		}
		drawDate, err := time.ParseInLocation(drawDateLayout, strings.TrimSpace(payload.DrawDate), time.UTC)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "draw date must be YYYY-MM-DD"))
			return
		}

		summary, err := svc.Resume(r.Context(), lotteryType, drawDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
