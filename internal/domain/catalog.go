package domain

import (
	"strings"
	"unicode"
)

// ClassifyService maps a catalog service name onto its settlement kind.
func ClassifyService(name string) ServiceKind {
	switch Slugify(name) {
	case "sell-bitcoin", "sell-btc":
		return ServiceKindSellBitcoin
	case "sell-usdt":
		return ServiceKindSellUSDT
	case "withdrawal", "withdraw":
		return ServiceKindWithdrawal
	default:
		return ServiceKindOther
	}
}

// Slugify lowercases name and joins its alphanumeric runs with hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
