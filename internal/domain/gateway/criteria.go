package gateway

// SelectionCriteria constrains gateway selection. Every axis is optional:
// a zero value means no constraint on that axis.
type SelectionCriteria struct {
	AmountCents int64       // 0 = no amount constraint
	Currency    string      // "" = no currency constraint
	Country     string      // "" = no country constraint
	MethodClass MethodClass // "" = no method constraint
}

// HasAmount reports whether the criteria constrain the amount axis.
func (c SelectionCriteria) HasAmount() bool { return c.AmountCents > 0 }

// HasCurrency reports whether the criteria constrain the currency axis.
func (c SelectionCriteria) HasCurrency() bool { return c.Currency != "" }

// HasCountry reports whether the criteria constrain the country axis.
func (c SelectionCriteria) HasCountry() bool { return c.Country != "" }

// HasMethodClass reports whether the criteria constrain the method axis.
func (c SelectionCriteria) HasMethodClass() bool { return c.MethodClass != "" }
