package services

import (
	"time"
)

// Default builds the stock service set for local development: the mobile-money
// rails plus bank transfer and card. Real deployments register concrete
// integrations instead.
func Default() map[string]PaymentService {
	return map[string]PaymentService{
		"mpesa": NewMockService("mpesa",
			WithCountries("KE"),
			WithCurrencies("KES"),
			WithMethods(MethodMobileMoney),
			WithLatency(200*time.Millisecond),
		),
		"mtn_momo": NewMockService("mtn_momo",
			WithCountries("UG", "GH", "RW", "KE"),
			WithCurrencies("UGX", "GHS", "RWF", "KES"),
			WithMethods(MethodMobileMoney),
			WithLatency(300*time.Millisecond),
		),
		"airtel_money": NewMockService("airtel_money",
			WithCountries("KE", "UG", "TZ", "ZM"),
			WithCurrencies("KES", "UGX", "TZS", "ZMW"),
			WithMethods(MethodMobileMoney),
			WithLatency(250*time.Millisecond),
		),
		"bank_transfer": NewMockService("bank_transfer",
			WithCountries("KE", "NG", "GH"),
			WithCurrencies("KES", "NGN", "GHS", "USD"),
			WithMethods(MethodBankTransfer),
			WithLatency(400*time.Millisecond),
		),
		"card": NewMockService("card",
			WithCurrencies("KES", "NGN", "GHS", "USD", "EUR"),
			WithMethods(MethodCard),
			WithLatency(150*time.Millisecond),
		),
	}
}
