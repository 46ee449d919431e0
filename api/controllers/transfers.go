package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldenlotto/lottery-backend/api/responses"
	"github.com/goldenlotto/lottery-backend/api/validators"
	"github.com/goldenlotto/lottery-backend/internal/transfers"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

type transferRequest struct {
	AgentID   string `json:"agent_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required,uuid"`
	Amount    string `json:"amount" validate:"required"`
	Reference string `json:"reference,omitempty"`
}

func (r transferRequest) toInput(direction enums.TransferDirection) (transfers.ExecuteInput, error) {
	agentID, err := uuid.Parse(r.AgentID)
	if err != nil {
		return transfers.ExecuteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid agent id")
	}
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return transfers.ExecuteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return transfers.ExecuteInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}
	return transfers.ExecuteInput{
		AgentID:   agentID,
		UserID:    userID,
		Direction: direction,
		Amount:    amount,
		Reference: strings.TrimSpace(r.Reference),
	}, nil
}

// TransferDeposit moves funds from an agent to one of its users.
func TransferDeposit(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return executeTransfer(svc, logg, enums.TransferDirectionDeposit)
}

// TransferWithdraw moves funds from a user back to its agent.
func TransferWithdraw(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return executeTransfer(svc, logg, enums.TransferDirectionWithdraw)
}

func executeTransfer(svc transfers.Service, logg *logger.Logger, direction enums.TransferDirection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		var payload transferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(direction)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
