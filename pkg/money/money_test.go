package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bct-trans/efactura-api/pkg/money"
)

// TestVATComputationExact is the canary for the whole invoicing chain: a net
// of 1000.00 RON at 19% VAT must give exactly 190.00 tax and 1190.00 payable,
// with no float drift anywhere.
func TestVATComputationExact(t *testing.T) {
	net := decimal.NewFromInt(1000)
	rate := decimal.NewFromInt(19)

	vat := money.Div(money.Mul(net, rate), decimal.NewFromInt(100))
	total := money.Add(net, vat)

	require.Equal(t, "190.00", money.FormatAmount(vat))
	require.Equal(t, "1190.00", money.FormatAmount(total))
	assert.True(t, vat.Equal(decimal.NewFromInt(190)))
	assert.True(t, total.Equal(decimal.NewFromInt(1190)))
}

func TestRoundSig(t *testing.T) {
	cases := []struct {
		in   string
		sig  int32
		want string
	}{
		{"123.456789123", 8, "123.45679"},
		{"0.000123456789", 8, "0.00012345679"},
		{"123456789", 8, "123456790"},
		{"1190", 8, "1190"},
		{"-123.456785", 8, "-123.45679"}, // half away from zero
		{"0", 8, "0"},
	}
	for _, c := range cases {
		d := decimal.RequireFromString(c.in)
		got := money.RoundSig(d, c.sig)
		assert.Equal(t, c.want, got.String(), "RoundSig(%s, %d)", c.in, c.sig)
	}
}

func TestDivKeepsPrecision(t *testing.T) {
	// 1/3 at 8 significant digits
	got := money.Div(decimal.NewFromInt(1), decimal.NewFromInt(3))
	assert.Equal(t, "0.33333333", got.String())

	// a chain that breaks under float64: 0.1 + 0.2
	sum := money.Add(decimal.RequireFromString("0.1"), decimal.RequireFromString("0.2"))
	assert.Equal(t, "0.30", money.FormatAmount(sum))
}

func TestFormatAmountNoGrouping(t *testing.T) {
	d := decimal.RequireFromString("1234567.891")
	// fixed-point, half-up to cents, no thousands separators
	assert.Equal(t, "1234567.89", money.FormatAmount(d))
	assert.Equal(t, "1000.00", money.FormatAmount(decimal.NewFromInt(1000)))
}

func TestFormatDisplayRomanianGrouping(t *testing.T) {
	d := decimal.RequireFromString("1234567.8")
	out := money.FormatDisplay(d, "RON")
	// ro-RO uses '.' for grouping and ',' for decimals
	assert.Equal(t, "1.234.567,80 RON", out)
}
