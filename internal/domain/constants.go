package domain

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	TxTypeCredit = "credit"
	TxTypeDebit  = "debit"

	TxStatusPending = "pending"
	TxStatusSuccess = "success"
	TxStatusFailed  = "failed"

	// Balance row kinds.
	BalanceOpening = "opening"
	BalanceCredit  = "credit"
	BalanceDebit   = "debit"
	BalanceHold    = "hold"
	BalanceRelease = "release"
	BalanceSettle  = "settle"

	// Token purposes carried in the JWT "purpose" claim.
	PurposeAccess        = "access"
	PurposeEmailVerify   = "email_verify"
	PurposePasswordReset = "password_reset"

	AssetBitcoin = "bitcoin"
	AssetUSDT    = "usdt"

	NotifyChannelSMS   = "sms"
	NotifyChannelEmail = "email"
)

// ServiceKind classifies a catalog service by how settlement treats it.
type ServiceKind string

const (
	ServiceKindSellBitcoin ServiceKind = "sell_bitcoin"
	ServiceKindSellUSDT    ServiceKind = "sell_usdt"
	ServiceKindWithdrawal  ServiceKind = "withdrawal"
	ServiceKindOther       ServiceKind = "other"
)

// IsSell reports whether settling the service credits the customer wallet.
func (k ServiceKind) IsSell() bool {
	return k == ServiceKindSellBitcoin || k == ServiceKindSellUSDT
}

// Asset returns the crypto asset traded by a sell service.
func (k ServiceKind) Asset() string {
	switch k {
	case ServiceKindSellBitcoin:
		return AssetBitcoin
	case ServiceKindSellUSDT:
		return AssetUSDT
	default:
		return ""
	}
}
