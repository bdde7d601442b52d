package fees

import (
	"fmt"

	"github.com/odhiambodaniel/pesaflow/internal/gateway/services"
)

// Rate is one region/method payout fee line. Percent is expressed in basis
// points to keep the arithmetic integral.
type Rate struct {
	PercentBps int64
	FixedCents int64
	Currency   string
}

// Schedule is the pluggable fee-schedule input. Correctness of any specific
// country's schedule is the data source's concern, not this package's.
type Schedule interface {
	Lookup(country string, method services.PaymentMethod) (Rate, bool)
}

// Quote is the computed payout fee for an amount.
type Quote struct {
	AmountCents int64
	FeeCents    int64
	NetCents    int64
	Currency    string
}

// String renders the fee as a major-unit decimal, e.g. "12.50 KES".
func (q Quote) String() string {
	sign := ""
	cents := q.FeeCents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, q.Currency)
}

// Calculator computes region-specific payout fees from a schedule.
type Calculator struct {
	schedule Schedule
}

func NewCalculator(schedule Schedule) *Calculator {
	return &Calculator{schedule: schedule}
}

// QuoteFee computes the fee for a payout. An unknown (country, method) pair is
// a representable outcome, not an error: ok is false and the zero quote is
// returned.
func (c *Calculator) QuoteFee(amountCents int64, country string, method services.PaymentMethod) (Quote, bool) {
	rate, ok := c.schedule.Lookup(country, method)
	if !ok {
		return Quote{}, false
	}

	fee := amountCents*rate.PercentBps/10_000 + rate.FixedCents
	if fee > amountCents {
		fee = amountCents
	}
	return Quote{
		AmountCents: amountCents,
		FeeCents:    fee,
		NetCents:    amountCents - fee,
		Currency:    rate.Currency,
	}, true
}

// StaticSchedule is an in-memory Schedule keyed by country and method.
type StaticSchedule struct {
	rates map[string]Rate
}

func NewStaticSchedule() *StaticSchedule {
	return &StaticSchedule{rates: make(map[string]Rate)}
}

func (s *StaticSchedule) Add(country string, method services.PaymentMethod, rate Rate) *StaticSchedule {
	s.rates[scheduleKey(country, method)] = rate
	return s
}

func (s *StaticSchedule) Lookup(country string, method services.PaymentMethod) (Rate, bool) {
	rate, ok := s.rates[scheduleKey(country, method)]
	return rate, ok
}

func scheduleKey(country string, method services.PaymentMethod) string {
	return country + ":" + string(method)
}
