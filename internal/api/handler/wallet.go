package handler

import (
	"net/http"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/service"
)

type WalletHandler struct {
	wallet      WalletReader
	withdrawals Withdrawer
}

func NewWalletHandler(wallet WalletReader, withdrawals Withdrawer) *WalletHandler {
	return &WalletHandler{wallet: wallet, withdrawals: withdrawals}
}

func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	view, err := h.wallet.GetBalance(r.Context(), p.UserID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Balance retrieved", view)
}

func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	page, perPage := pagination(r)
	result, err := h.wallet.GetStatement(r.Context(), p.UserID, page, perPage)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Transactions retrieved", result)
}

func (h *WalletHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	txn, err := h.wallet.GetTransaction(r.Context(), p.UserID, id)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Transaction retrieved", txn)
}

type withdrawRequest struct {
	Service     string        `json:"service"`
	Amount      domain.Amount `json:"amount"`
	BankAccount string        `json:"bankAccount"`
	PIN         string        `json:"pin"`
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req withdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	serviceID, ok := parseUUID(w, r, req.Service, "service")
	if !ok {
		return
	}
	bankAccountID, ok := parseUUID(w, r, req.BankAccount, "bankAccount")
	if !ok {
		return
	}
	txn, err := h.withdrawals.RequestWithdrawal(r.Context(), service.WithdrawalRequest{
		UserID:        p.UserID,
		ServiceID:     serviceID,
		BankAccountID: bankAccountID,
		Amount:        req.Amount,
		PIN:           req.PIN,
		RequestKey:    requestKey(r),
	})
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusCreated, "Withdrawal request submitted", txn)
}
