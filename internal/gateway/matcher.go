package gateway

import (
	"github.com/odhiambodaniel/pesaflow/internal/domain/gateway"
)

// MatchesCriteria reports whether a catalog descriptor satisfies the selection
// criteria. Pure function: all axes are optional, unset axes always pass.
//
// Rules:
//   - amount, if given, must lie within the descriptor's [min, max] bounds;
//     an unset bound leaves that side unbounded
//   - currency, if given, must be in the descriptor's supported set
//   - mobile_money restricts the descriptor type to the fixed mobile-money
//     allow-set; bank_transfer restricts to the bank_transfer type exactly
func MatchesCriteria(d *gateway.Descriptor, c gateway.SelectionCriteria) bool {
	if c.HasAmount() && !d.AllowsAmount(c.AmountCents) {
		return false
	}

	if c.HasCurrency() && !d.SupportsCurrency(c.Currency) {
		return false
	}

	if c.HasMethodClass() {
		switch c.MethodClass {
		case gateway.MethodMobileMoney:
			if !gateway.MobileMoneyTypes[d.Type] {
				return false
			}
		case gateway.MethodBankTransfer:
			if d.Type != gateway.TypeBankTransfer {
				return false
			}
		}
	}

	return true
}
