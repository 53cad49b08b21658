package handler

import (
	"net/http"

	"github.com/bitway/bitway-api/internal/service"
)

type BankHandler struct {
	banks BankAccounts
}

func NewBankHandler(banks BankAccounts) *BankHandler {
	return &BankHandler{banks: banks}
}

type bankAccountRequest struct {
	BankName      string `json:"bankName"`
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
}

func (req bankAccountRequest) input() service.BankAccountInput {
	return service.BankAccountInput{
		BankName:      req.BankName,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
	}
}

func (h *BankHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	accounts, err := h.banks.ListAccounts(r.Context(), p.UserID)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Bank accounts retrieved", accounts)
}

func (h *BankHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestActor(w, r); !ok {
		return
	}
	var req bankAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name, err := h.banks.Resolve(r.Context(), req.AccountNumber, req.BankCode)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Account resolved", map[string]string{
		"accountNumber": req.AccountNumber,
		"accountName":   name,
	})
}

func (h *BankHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req bankAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := h.banks.CreateAccount(r.Context(), p.UserID, req.input())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusCreated, "Bank account added", account)
}

func (h *BankHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	account, err := h.banks.GetAccount(r.Context(), p.UserID, id)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Bank account retrieved", account)
}

func (h *BankHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req bankAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := h.banks.UpdateAccount(r.Context(), p.UserID, id, req.input())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Bank account updated", account)
}

func (h *BankHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.banks.DeleteAccount(r.Context(), p.UserID, id); err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Bank account removed", nil)
}

func (h *BankHandler) ListBanks(w http.ResponseWriter, r *http.Request) {
	banks, err := h.banks.ListBanks(r.Context())
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Banks retrieved", banks)
}
