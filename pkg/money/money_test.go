package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinor(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{"whole roubles", "4990", 499000},
		{"kopecks", "1243.09", 124309},
		{"negative", "-202.85", -20285},
		{"half kopeck rounds away from zero", "0.005", 1},
		{"negative half kopeck", "-0.005", -1},
		{"zero", "0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Minor(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestFromMinor(t *testing.T) {
	assert.Equal(t, "1243.09", FromMinor(124309).StringFixed(2))
	assert.Equal(t, "-0.50", FromMinor(-50).StringFixed(2))
}

func TestMinorRoundTrip(t *testing.T) {
	gen := NewTestDataGeneratorWithSeed(7)
	for i := 0; i < 200; i++ {
		d := gen.Adjustment()
		require.True(t, FromMinor(Minor(d)).Equal(d), "round trip of %s", d)
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{499000, "4 990,00 ₽"},
		{-124309, "-1 243,09 ₽"},
		{50, "0,50 ₽"},
		{123456789, "1 234 567,89 ₽"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.minor).Display())
		})
	}
}

func TestAddSubtract(t *testing.T) {
	a := NewFromDecimal(decimal.RequireFromString("4569.35"))
	b := NewFromDecimal(decimal.RequireFromString("60"))

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "4629.35", sum.String())

	diff, err := sum.Subtract(a)
	require.NoError(t, err)
	assert.True(t, diff.Equals(b))

	var none *Money
	sum, err = none.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), sum.Amount())
}

func TestSum(t *testing.T) {
	total := Sum(
		decimal.RequireFromString("2520"),
		decimal.RequireFromString("-1243.09"),
		decimal.RequireFromString("0.01"),
	)
	assert.Equal(t, "1276.92", total.String())
}

func TestNilSafety(t *testing.T) {
	var m *Money

	assert.Equal(t, int64(0), m.Amount())
	assert.Equal(t, RUB, m.Currency())
	assert.True(t, m.IsZero())
	assert.False(t, m.IsNegative())
	assert.Equal(t, "0,00 ₽", m.Display())
	assert.Equal(t, "0.00", m.String())
	assert.True(t, m.ToDecimal().IsZero())
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(New(-20285))
	require.NoError(t, err)
	assert.JSONEq(t, `"-202.85"`, string(data))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`"1243.09"`), &m))
	assert.Equal(t, int64(124309), m.Amount())

	require.NoError(t, json.Unmarshal([]byte(`60`), &m))
	assert.Equal(t, int64(6000), m.Amount())

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &m))
}

func TestScanValue(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan(int64(124309)))
	assert.Equal(t, "1243.09", m.String())

	v, err := m.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(124309), v)

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())
	assert.Error(t, m.Scan("12.00"))
}

func TestTestDataGenerator(t *testing.T) {
	gen := NewTestDataGeneratorWithSeed(42)

	for i := 0; i < 50; i++ {
		a := gen.Amount(10, 20)
		assert.True(t, a.GreaterThanOrEqual(decimal.NewFromInt(10)), a.String())
		assert.True(t, a.LessThanOrEqual(decimal.NewFromInt(20)), a.String())
		assert.LessOrEqual(t, -a.Exponent(), int32(2))
	}
	assert.Regexp(t, `^\d{8}$`, gen.AccountNumber())
}

func BenchmarkDisplay(b *testing.B) {
	m := New(462935)
	for i := 0; i < b.N; i++ {
		_ = m.Display()
	}
}
