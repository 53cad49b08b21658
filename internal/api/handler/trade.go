package handler

import (
	"net/http"
	"strings"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/bitway/bitway-api/internal/service"
	"github.com/shopspring/decimal"
)

type TradeHandler struct {
	trades Trader
}

func NewTradeHandler(trades Trader) *TradeHandler {
	return &TradeHandler{trades: trades}
}

type tradeRequest struct {
	Service string          `json:"service"`
	Amount  decimal.Decimal `json:"amount"`
	Image   string          `json:"image"`
	// imageUrl is accepted for clients built against the older field name.
	ImageURL string `json:"imageUrl"`
}

func (h *TradeHandler) SellBitcoin(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, domain.AssetBitcoin)
}

func (h *TradeHandler) SellUSDT(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, domain.AssetUSDT)
}

func (h *TradeHandler) submit(w http.ResponseWriter, r *http.Request, asset string) {
	p, ok := requestActor(w, r)
	if !ok {
		return
	}
	var req tradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	serviceID, ok := parseUUID(w, r, req.Service, "service")
	if !ok {
		return
	}
	image := req.Image
	if strings.TrimSpace(image) == "" {
		image = req.ImageURL
	}
	txn, err := h.trades.SubmitTrade(r.Context(), service.TradeRequest{
		UserID:     p.UserID,
		ServiceID:  serviceID,
		Asset:      asset,
		USD:        req.Amount,
		Image:      image,
		RequestKey: requestKey(r),
	})
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusCreated, "Trade submitted successfully", txn)
}

// Quote prices a trade: GET /trade/quote?service=<id>&amount=<usd>.
func (h *TradeHandler) Quote(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := parseUUID(w, r, r.URL.Query().Get("service"), "service")
	if !ok {
		return
	}
	usd, err := decimal.NewFromString(strings.TrimSpace(r.URL.Query().Get("amount")))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "amount must be a decimal number")
		return
	}
	quote, err := h.trades.Quote(r.Context(), serviceID, usd)
	if err != nil {
		RespondServiceError(w, r, err)
		return
	}
	RespondJSON(w, r, http.StatusOK, "Quote retrieved", quote)
}
