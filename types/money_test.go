package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(4900), 4900, "usd", "$49.00"},
		{"EUR", EUR(19900), 19900, "eur", "€199.00"},
		{"GBP", GBP(9900), 9900, "gbp", "£99.00"},
		{"JPY", JPY(100), 100, "jpy", "¥100"},
		{"CAD", CAD(2500), 2500, "cad", "C$25.00"},
		{"AUD", AUD(7550), 7550, "aud", "A$75.50"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
		{"Zero EUR", Zero("EUR"), 0, "eur", "€0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return EUR(100).Add(EUR(200)) }, EUR(300)},
		{"Subtract", func() Money { return EUR(500).Subtract(EUR(200)) }, EUR(300)},
		{"Multiply", func() Money { return EUR(100).Multiply(3) }, EUR(300)},
		{"Divide", func() Money { return EUR(900).Divide(3) }, EUR(300)},
		{"Negate", func() Money { return EUR(100).Negate() }, EUR(-100)},
		{"Abs positive", func() Money { return EUR(100).Abs() }, EUR(100)},
		{"Abs negative", func() Money { return EUR(-100).Abs() }, EUR(100)},
		{"Complex", func() Money {
			return EUR(1000).Add(EUR(500)).Multiply(2).Subtract(EUR(1000))
		}, EUR(2000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneySplit(t *testing.T) {
	tests := []struct {
		name      string
		total     Money
		ratioBps  int64
		share     Money
		remainder Money
	}{
		{"Standard care booking", EUR(10000), 3500, EUR(3500), EUR(6500)},
		{"Rounds half up", EUR(10), 3500, EUR(4), EUR(6)},       // 3.5 → 4
		{"Rounds down below half", EUR(101), 3500, EUR(35), EUR(66)}, // 35.35 → 35
		{"Rounds up above half", EUR(99), 3500, EUR(35), EUR(64)},    // 34.65 → 35
		{"Zero ratio", EUR(10000), 0, EUR(0), EUR(10000)},
		{"Full ratio", EUR(10000), 10000, EUR(10000), EUR(0)},
		{"Zero amount", EUR(0), 3500, EUR(0), EUR(0)},
		{"One cent", EUR(1), 3500, EUR(0), EUR(1)}, // 0.35 → 0
		{"Half ratio odd amount", EUR(101), 5000, EUR(51), EUR(50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			share, remainder := tt.total.Split(tt.ratioBps)
			if !share.Equal(tt.share) {
				t.Errorf("share: got %v, want %v", share, tt.share)
			}
			if !remainder.Equal(tt.remainder) {
				t.Errorf("remainder: got %v, want %v", remainder, tt.remainder)
			}
			if !share.Add(remainder).Equal(tt.total) {
				t.Errorf("share + remainder = %v, want %v", share.Add(remainder), tt.total)
			}
		})
	}
}

func TestMoneySplitConserves(t *testing.T) {
	// The two sides must always recombine to the original total, whatever
	// the rounding did.
	for amount := int64(0); amount < 500; amount++ {
		for _, bps := range []int64{0, 1, 3500, 5000, 9999, 10000} {
			share, remainder := EUR(amount).Split(bps)
			if share.Amount+remainder.Amount != amount {
				t.Fatalf("Split(%d) of %d: %d + %d != %d",
					bps, amount, share.Amount, remainder.Amount, amount)
			}
		}
	}
}

func TestMoneySplitOutOfRange(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for ratio out of range")
		}
	}()

	// This should panic
	_, _ = EUR(100).Split(10001)
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	// This should panic
	_ = USD(100).Add(EUR(100))
}

func TestMoneyDivisionByZero(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for division by zero")
		}
	}()

	// This should panic
	_ = USD(100).Divide(0)
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", EUR(100), EUR(100), false, false, true},
		{"Less", EUR(50), EUR(100), true, false, false},
		{"Greater", EUR(200), EUR(100), false, true, false},
		{"Zero equal", EUR(0), Zero("eur"), false, false, true},
		{"Negative less", EUR(-100), EUR(100), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyMinMax(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Money
		min, max Money
	}{
		{"First smaller", EUR(50), EUR(100), EUR(50), EUR(100)},
		{"Second smaller", EUR(100), EUR(50), EUR(50), EUR(100)},
		{"Equal", EUR(100), EUR(100), EUR(100), EUR(100)},
		{"Negative", EUR(-50), EUR(50), EUR(-50), EUR(50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if minVal := tt.a.Min(tt.b); !minVal.Equal(tt.min) {
				t.Errorf("Min: got %v, want %v", minVal, tt.min)
			}
			if maxVal := tt.a.Max(tt.b); !maxVal.Equal(tt.max) {
				t.Errorf("Max: got %v, want %v", maxVal, tt.max)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	tests := []struct {
		name       string
		money      Money
		isZero     bool
		isPositive bool
		isNegative bool
	}{
		{"Zero", EUR(0), true, false, false},
		{"Positive", EUR(100), false, true, false},
		{"Negative", EUR(-100), false, false, true},
		{"Large positive", EUR(999999999), false, true, false},
		{"Large negative", EUR(-999999999), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.money.IsPositive(); got != tt.isPositive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.isPositive)
			}
			if got := tt.money.IsNegative(); got != tt.isNegative {
				t.Errorf("IsNegative: got %v, want %v", got, tt.isNegative)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{USD(4900), "49.00"},
		{USD(100), "1.00"},
		{USD(1), "0.01"},
		{USD(0), "0.00"},
		{USD(-4900), "-49.00"},
		{USD(-1), "-0.01"},
		{EUR(9999), "99.99"},
		{JPY(100), "100"},     // No decimals
		{JPY(12345), "12345"}, // No decimals
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	m := EUR(10000)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	// Check JSON structure
	expected := `{"amount":10000,"currency":"eur","display":"€100.00"}`
	if string(data) != expected {
		t.Errorf("JSON: got %s, want %s", string(data), expected)
	}

	// Unmarshal and verify
	var result struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if result.Amount != 10000 || result.Currency != "eur" || result.Display != "€100.00" {
		t.Errorf("Unmarshaled data incorrect: %+v", result)
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Money
		expected Money
	}{
		{"Empty", []Money{}, Zero("eur")},
		{"Single", []Money{EUR(100)}, EUR(100)},
		{"Multiple", []Money{EUR(100), EUR(200), EUR(300)}, EUR(600)},
		{"With negatives", []Money{EUR(100), EUR(-50), EUR(200)}, EUR(250)},
		{"All zero", []Money{EUR(0), EUR(0), EUR(0)}, EUR(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Sum(tt.values...)
			if !result.Equal(tt.expected) {
				t.Errorf("Sum: got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCurrencySymbols(t *testing.T) {
	tests := []struct {
		currency string
		symbol   string
	}{
		{"usd", "$"},
		{"eur", "€"},
		{"gbp", "£"},
		{"jpy", "¥"},
		{"cad", "C$"},
		{"aud", "A$"},
		{"unknown", "UNKNOWN "},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			got := currencySymbol(tt.currency)
			if got != tt.symbol {
				t.Errorf("Symbol for %s: got %s, want %s", tt.currency, got, tt.symbol)
			}
		})
	}
}

func BenchmarkMoneyAdd(b *testing.B) {
	m1 := EUR(100)
	m2 := EUR(200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m1.Add(m2)
	}
}

func BenchmarkMoneySplit(b *testing.B) {
	m := EUR(10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Split(3500)
	}
}

func BenchmarkMoneyString(b *testing.B) {
	m := EUR(4900)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.String()
	}
}

func BenchmarkMoneyJSON(b *testing.B) {
	m := EUR(4900)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(m)
	}
}
