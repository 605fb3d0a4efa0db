package compliance

import (
	"strconv"
	"strings"
)

// supportedCurrencies is the set of ISO currency codes upstream intake emits.
var supportedCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "CAD": true,
	"AUD": true, "JPY": true, "CHF": true,
}

// ValidateInvoice checks an intake payload before it enters the state
// machine. Malformed payloads are rejected with a ValidationError; they never
// produce an ERROR transaction.
func ValidateInvoice(inv *Invoice) error {
	if inv == nil {
		return NewValidationError("invoice", "invoice payload is required")
	}
	if strings.TrimSpace(inv.Vendor) == "" {
		return NewValidationError("vendor", "vendor is required")
	}
	if strings.TrimSpace(inv.Category) == "" {
		return NewValidationError("category", "category is required")
	}
	if inv.Amount <= 0 {
		return NewValidationError("amount", "amount must be positive")
	}
	if inv.Currency == "" {
		return NewValidationError("currency", "currency is required")
	}
	if !supportedCurrencies[strings.ToUpper(inv.Currency)] {
		return NewValidationError("currency", "unsupported currency code: "+inv.Currency)
	}
	if inv.VendorReputation != nil {
		if *inv.VendorReputation < 0 || *inv.VendorReputation > 100 {
			return NewValidationError("vendor_reputation", "reputation must be within 0-100")
		}
	}
	for i, item := range inv.LineItems {
		if item.Quantity < 0 {
			return NewValidationError("line_items", "negative quantity at line "+strconv.Itoa(i))
		}
		if item.UnitPrice < 0 {
			return NewValidationError("line_items", "negative unit price at line "+strconv.Itoa(i))
		}
	}
	return nil
}
