package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goldenlotto/lottery-backend/api/responses"
	"github.com/goldenlotto/lottery-backend/api/validators"
	"github.com/goldenlotto/lottery-backend/internal/accounts"
	"github.com/goldenlotto/lottery-backend/internal/ledger"
	"github.com/goldenlotto/lottery-backend/pkg/enums"
	pkgerrors "github.com/goldenlotto/lottery-backend/pkg/errors"
	"github.com/goldenlotto/lottery-backend/pkg/logger"
)

type accountCreateRequest struct {
	Kind            string          `json:"kind" validate:"required,oneof=user agent"`
	AgentID         *string         `json:"agent_id,omitempty" validate:"omitempty,uuid"`
	CommissionRates json.RawMessage `json:"commission_rates,omitempty"`
}

func (r accountCreateRequest) toInput() (accounts.CreateAccountInput, error) {
	kind, err := enums.ParseAccountKind(r.Kind)
	if err != nil {
		return accounts.CreateAccountInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account kind")
	}

	input := accounts.CreateAccountInput{
		Kind:            kind,
		CommissionRates: r.CommissionRates,
	}
	if r.AgentID != nil {
		agentID, parseErr := uuid.Parse(*r.AgentID)
		if parseErr != nil {
			return accounts.CreateAccountInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid agent id")
		}
		input.AgentID = &agentID
	}
	return input, nil
}

// AccountCreate opens a user or agent account.
func AccountCreate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		var payload accountCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}

// AccountDetail returns the account row.
func AccountDetail(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		accountID, err := accountIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetByID(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, account)
	}
}

// AccountBalance returns the account's current balance.
func AccountBalance(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		accountID, err := accountIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.GetBalance(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"account_id": accountID,
			"balance":    balance,
		})
	}
}

// AccountTransactions returns the account's ledger history, newest first.
func AccountTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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

		transactions, err := svc.ListByAccount(r.Context(), accountID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transactions)
	}
}

func accountIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "accountID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id")
	}
	return id, nil
}
