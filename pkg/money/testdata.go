package money

import (
	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates bill amounts for tests using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// Amount returns a random amount with two decimal places in [minRub, maxRub].
func (g *TestDataGenerator) Amount(minRub, maxRub int64) decimal.Decimal {
	if minRub > maxRub {
		minRub, maxRub = maxRub, minRub
	}
	offset := g.faker.Int64() % ((maxRub-minRub)*100 + 1)
	if offset < 0 {
		offset = -offset
	}
	return FromMinor(minRub*100 + offset)
}

// ServiceCharge returns a typical monthly charge for one service.
func (g *TestDataGenerator) ServiceCharge() decimal.Decimal {
	return g.Amount(0, 5000)
}

// Adjustment returns a signed recalculation amount.
func (g *TestDataGenerator) Adjustment() decimal.Decimal {
	a := g.Amount(0, 1500)
	if g.faker.Bool() {
		return a.Neg()
	}
	return a
}

// AccountNumber returns an 8-digit personal account number.
func (g *TestDataGenerator) AccountNumber() string {
	return g.faker.Numerify("########")
}
