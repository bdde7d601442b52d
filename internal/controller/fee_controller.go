package controller

import (
	"net/http"

	domainErrors "github.com/odhiambodaniel/pesaflow/internal/domain/errors"
	domainRBAC "github.com/odhiambodaniel/pesaflow/internal/domain/rbac"
	"github.com/odhiambodaniel/pesaflow/internal/fees"
	"github.com/odhiambodaniel/pesaflow/internal/gateway/services"
	"github.com/odhiambodaniel/pesaflow/internal/rbac"
)

// FeeController handles payout fee quote requests.
type FeeController struct {
	calculator *fees.Calculator
	checker    *rbac.Checker
}

// NewFeeController creates a new FeeController.
func NewFeeController(calculator *fees.Calculator, checker *rbac.Checker) *FeeController {
	return &FeeController{calculator: calculator, checker: checker}
}

// Quote handles POST /api/v1/fees/quote
func (h *FeeController) Quote(w http.ResponseWriter, r *http.Request) {
	if !requirePermission(w, r, h.checker, domainRBAC.PermPayoutsRead) {
		return
	}

	var req FeeQuoteRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	quote, ok := h.calculator.QuoteFee(req.AmountCents, req.Country, services.PaymentMethod(req.Method))
	if !ok {
		writeError(w, domainErrors.ErrScheduleNotFound)
		return
	}

	writeJSON(w, http.StatusOK, FromQuote(quote))
}
