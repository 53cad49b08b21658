package handler

import (
	"net/http"
	"strings"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/service"
	"github.com/google/uuid"
)

type AdminHandler struct {
	console AdminConsole
	settler Settler
}

func NewAdminHandler(console AdminConsole, settler Settler) *AdminHandler {
	return &AdminHandler{console: console, settler: settler}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := h.console.Dashboard(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Dashboard overview", overview)
}

type creditOrDebitRequest struct {
	Username  string        `json:"username"`
	Type      string        `json:"type"`
	Amount    domain.Amount `json:"amount"`
	Narration string        `json:"narration"`
}

func (h *AdminHandler) CreditOrDebit(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req creditOrDebitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	balance, err := h.console.CreditOrDebit(r.Context(), service.CreditOrDebitRequest{
		ActorID:   p.UserID,
		Username:  req.Username,
		Type:      req.Type,
		Amount:    req.Amount,
		Narration: req.Narration,
	})
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Customer wallet "+strings.ToLower(req.Type)+"ed successfully", balance)
}

type blockRequest struct {
	UserID  string `json:"userId"`
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason"`
}

func (h *AdminHandler) BlockCustomer(w http.ResponseWriter, r *http.Request) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req blockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID, ok := parseUUID(w, r, req.UserID, "userId")
	if !ok {
		return
	}
	user, err := h.console.SetBlocked(r.Context(), p.UserID, userID, req.Blocked, req.Reason)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	message := "Customer account enabled successfully"
	if user.Blocked {
		message = "Customer account disabled successfully"
	}
	RespondJSON(w, r, http.StatusOK, message, user)
}

func (h *AdminHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)
	result, err := h.console.ListCustomers(r.Context(), page, perPage, r.URL.Query().Get("q"))
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Customers retrieved", result)
}

func (h *AdminHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.console.Customer(r.Context(), id)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Customer retrieved", detail)
}

func transactionFilter(r *http.Request) service.TransactionFilter {
	page, perPage := pagination(r)
	q := r.URL.Query()
	return service.TransactionFilter{
		Page:    page,
		PerPage: perPage,
		Query:   q.Get("q"),
		Status:  q.Get("status"),
	}
}

func (h *AdminHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	result, err := h.console.ListTransactions(r.Context(), transactionFilter(r))
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Transactions retrieved", result)
}

func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	result, err := h.console.ListWithdrawals(r.Context(), transactionFilter(r))
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Withdrawals retrieved", result)
}

func (h *AdminHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.console.TransactionDetail(r.Context(), id)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Transaction retrieved", detail)
}

type statusUpdateRequest struct {
	ID      string         `json:"id"`
	UserID  string         `json:"userId"`
	Status  string         `json:"status"`
	Amount  *domain.Amount `json:"amount"`
	Service string         `json:"service"`
}

// UpdateTransactionStatus settles any pending transaction.
func (h *AdminHandler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, "")
}

// UpdateWithdrawal settles a pending withdrawal only.
func (h *AdminHandler) UpdateWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, domain.ServiceKindWithdrawal)
}

func (h *AdminHandler) settle(w http.ResponseWriter, r *http.Request, kind domain.ServiceKind) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req statusUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	transactionID, ok := parseUUID(w, r, req.ID, "id")
	if !ok {
		return
	}
	var userID *uuid.UUID
	if strings.TrimSpace(req.UserID) != "" {
		id, ok := parseUUID(w, r, req.UserID, "userId")
		if !ok {
			return
		}
		userID = &id
	}

	result, err := h.settler.UpdateTransactionStatus(r.Context(), service.UpdateStatusRequest{
		TransactionID: transactionID,
		UserID:        userID,
		Status:        req.Status,
		Amount:        req.Amount,
		ServiceName:   req.Service,
		ActorID:       &p.UserID,
		RequireKind:   kind,
	})
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	message := "Transaction updated successfully"
	if result.Replayed {
		message = "Transaction already " + result.Transaction.Status
	}
	RespondJSON(w, r, http.StatusOK, message, result)
}
