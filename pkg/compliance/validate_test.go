package compliance

import (
	"errors"
	"testing"
)

func validInvoice() *Invoice {
	rep := 80
	return &Invoice{
		Vendor:           "Acme Corp",
		Category:         "office_supplies",
		Amount:           199.99,
		Currency:         "USD",
		HasPO:            true,
		VendorReputation: &rep,
	}
}

func TestValidateInvoice_Valid(t *testing.T) {
	if err := ValidateInvoice(validInvoice()); err != nil {
		t.Fatalf("ValidateInvoice() failed for valid invoice: %v", err)
	}
}

func TestValidateInvoice_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Invoice)
		field  string
	}{
		{"missing vendor", func(inv *Invoice) { inv.Vendor = "  " }, "vendor"},
		{"missing category", func(inv *Invoice) { inv.Category = "" }, "category"},
		{"zero amount", func(inv *Invoice) { inv.Amount = 0 }, "amount"},
		{"negative amount", func(inv *Invoice) { inv.Amount = -10 }, "amount"},
		{"missing currency", func(inv *Invoice) { inv.Currency = "" }, "currency"},
		{"unknown currency", func(inv *Invoice) { inv.Currency = "XYZ" }, "currency"},
		{"reputation too high", func(inv *Invoice) { r := 101; inv.VendorReputation = &r }, "vendor_reputation"},
		{"reputation negative", func(inv *Invoice) { r := -1; inv.VendorReputation = &r }, "vendor_reputation"},
		{"negative quantity", func(inv *Invoice) {
			inv.LineItems = []LineItem{{Description: "widgets", Quantity: -1, UnitPrice: 5}}
		}, "line_items"},
		{"negative unit price", func(inv *Invoice) {
			inv.LineItems = []LineItem{{Description: "widgets", Quantity: 1, UnitPrice: -5}}
		}, "line_items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := validInvoice()
			tt.mutate(inv)

			err := ValidateInvoice(inv)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestValidateInvoice_NilInvoice(t *testing.T) {
	err := ValidateInvoice(nil)
	if err == nil {
		t.Fatal("expected error for nil invoice")
	}
}

func TestValidateInvoice_CurrencyCaseInsensitive(t *testing.T) {
	inv := validInvoice()
	inv.Currency = "eur"
	if err := ValidateInvoice(inv); err != nil {
		t.Fatalf("lowercase currency should validate: %v", err)
	}
}
