package backfolio

import (
	"encoding/json"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money represents an exact monetary value in a single currency.
// Arithmetic is decimal-exact; conversion to float64 is reserved for the
// reporting layer.
type Money struct {
	value decimal.Decimal // major units
	cur   string
}

// M builds a Money from any numeric value and a currency code.
func M[T float32 | float64 | int | int32 | int64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// currency resolves the full go-money currency for formatting. The Money
// constructor guarantees a non-nil currency even for unknown codes.
func (m Money) currency() money.Currency {
	return *money.New(0, m.cur).Currency()
}

// String renders the value with its currency symbol and minor-unit rounding.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

func (m Money) Currency() string             { return m.cur }
func (m Money) Equal(n Money) bool           { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                 { return m.value.IsZero() }
func (m Money) IsPositive() bool             { return m.value.IsPositive() }
func (m Money) IsNegative() bool             { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool        { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool     { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money                   { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Mul(q Quantity) Money         { return Money{value: m.value.Mul(q.value), cur: m.cur} }
func (m Money) Div(q Quantity) Money         { return Money{value: m.value.Div(q.value), cur: m.cur} }
func (m Money) DivPrice(price Money) Quantity {
	return Quantity{value: m.value.Div(price.value)}
}

// Decimal exposes the underlying exact value.
func (m Money) Decimal() decimal.Decimal { return m.value }

// AsFloat converts the exact value to float64 for statistics and display.
func (m Money) AsFloat() float64 { return m.value.InexactFloat64() }

func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: mergeCur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: mergeCur(m, n)} }

// moneyJSON is the persisted form, e.g. {"amount":1000,"currency":"CAD"}.
type moneyJSON struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.value, Currency: m.cur})
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	m.value, m.cur = v.Amount, v.Currency
	return nil
}

// mergeCur makes the "" currency weak: it adopts the other side's currency.
// Mixing two distinct explicit currencies is a programming error.
func mergeCur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + " != " + b.cur)
	}
	return a.cur
}
