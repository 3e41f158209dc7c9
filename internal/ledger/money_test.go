package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1500", "1500", false},
		{"+10.50", "10.5", false},
		{" 0.01 ", "0.01", false},
		{"", "0", false},
		{"1.005", "", true},
		{"1.500,00", "", true},
		{"abc", "", true},
		{"999999999999999.99", "999999999999999.99", false},
		{"1000000000000000", "", true},
		{"-1000000000000000", "", true},
		{"184467440737095516.17", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAmount("amount", tt.in)
		if tt.wantErr {
			if FieldOf(err) != "amount" {
				t.Errorf("ParseAmount(%q) error = %v, want amount validation", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	for _, s := range []string{"0", "0.01", "150000", "99999.99"} {
		v := decimal.RequireFromString(s)
		if back := FromMinor(ToMinor(v)); !back.Equal(v) {
			t.Errorf("FromMinor(ToMinor(%s)) = %s", s, back)
		}
	}
	if got := ToMinor(decimal.RequireFromString("12.34")); got != 1234 {
		t.Errorf("ToMinor(12.34) = %d, want 1234", got)
	}
	if got := FormatAmount(FromMinor(5)); got != "0.05" {
		t.Errorf("FormatAmount = %q, want 0.05", got)
	}

	if got, err := MinorUnits("balance", decimal.RequireFromString("999999999999999.99")); err != nil || got != 99999999999999999 {
		t.Errorf("MinorUnits(max) = %d, %v", got, err)
	}
	for _, s := range []string{"1000000000000000", "92233720368547758.08", "0.001"} {
		if _, err := MinorUnits("balance", decimal.RequireFromString(s)); FieldOf(err) != "balance" {
			t.Errorf("MinorUnits(%s) error = %v, want balance validation", s, err)
		}
	}
}

// Amounts arrive from upstream as either JSON numbers or strings.
func TestAmountsDecodeFromNumberOrString(t *testing.T) {
	var req PostRequest
	if err := json.Unmarshal([]byte(`{"fund_id":1,"amount_in":"50000.10","concept":"x"}`), &req); err != nil {
		t.Fatalf("unmarshal string amount: %v", err)
	}
	if !req.AmountIn.Equal(decimal.RequireFromString("50000.10")) {
		t.Errorf("string amount = %s", req.AmountIn)
	}
	if err := json.Unmarshal([]byte(`{"fund_id":1,"amount_out":0.1,"concept":"x"}`), &req); err != nil {
		t.Fatalf("unmarshal number amount: %v", err)
	}
	if !req.AmountOut.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("number amount = %s", req.AmountOut)
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("approve: %w", Conflict("event %s is no longer submitted", "x"))
	if !errors.Is(wrapped, ErrConflict) || errors.Is(wrapped, ErrNotFound) {
		t.Error("wrapped conflict should match ErrConflict only")
	}
	if KindOf(wrapped) != KindConflict {
		t.Errorf("KindOf = %s, want conflict", KindOf(wrapped))
	}

	ife := &InsufficientFundsError{FundID: 3, Available: FromMinor(100), Requested: FromMinor(250)}
	if !errors.Is(ife, ErrInsufficientFunds) || KindOf(ife) != KindInsufficientFunds {
		t.Error("InsufficientFundsError should match ErrInsufficientFunds")
	}
	if got := ife.Error(); got != "insufficient funds in fund 3: available 1.00, requested 2.50" {
		t.Errorf("Error() = %q", got)
	}

	v := Validation("concept", "concept is required")
	if FieldOf(v) != "concept" || v.Error() != "concept: concept is required" {
		t.Errorf("validation error = %q field %q", v.Error(), FieldOf(v))
	}
	if KindOf(errors.New("boom")) != "" {
		t.Error("plain errors have no kind")
	}
}
