package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchFixture represents test stock batch data
type BatchFixture struct {
	ID                string
	MedicationID      string
	BatchNumber       string
	QuantityOrdered   int
	QuantityDelivered int
	UnitPrice         decimal.Decimal
	Supplier          string
	DeliveryDate      time.Time
	ExpiryDate        time.Time
}

// ConsumptionFixture represents test weekly consumption data
type ConsumptionFixture struct {
	ID           string
	MedicationID string
	WeekNumber   int
	Year         int
	Quantity     int
	IsWeekClosed bool
}

// CountFixture represents test physical count data
type CountFixture struct {
	ID               string
	MedicationID     string
	Month            int
	Year             int
	TheoreticalStock int
	PhysicalStock    int
	CountedAt        time.Time
}

// DispensationFixture represents test dispensation data
type DispensationFixture struct {
	ID             string
	MedicationID   string
	Quantity       int
	IsAntibiotic   bool
	IsAntimalarial bool
	Service        string
	DispensedAt    time.Time
}

// PolicyFixture represents test project reorder policy data
type PolicyFixture struct {
	OrderFrequencyMonths int
	DeliveryDelayMonths  decimal.Decimal
	BufferStockMonths    decimal.Decimal
	LastOrderDate        *time.Time
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Batch creates a stock batch fixture: fully delivered, one year of shelf life
func (f *FixtureFactory) Batch(opts ...func(*BatchFixture)) BatchFixture {
	seq := f.nextSeq()
	now := time.Now().UTC()
	b := BatchFixture{
		ID:                uuid.New().String(),
		MedicationID:      uuid.New().String(),
		BatchNumber:       fmt.Sprintf("LOT-%04d", seq),
		QuantityOrdered:   100,
		QuantityDelivered: 100,
		UnitPrice:         decimal.NewFromFloat(2.50),
		Supplier:          "Central Medical Store",
		DeliveryDate:      now,
		ExpiryDate:        now.AddDate(1, 0, 0),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Consumption creates a closed weekly consumption fixture
func (f *FixtureFactory) Consumption(opts ...func(*ConsumptionFixture)) ConsumptionFixture {
	seq := f.nextSeq()
	c := ConsumptionFixture{
		ID:           uuid.New().String(),
		MedicationID: uuid.New().String(),
		WeekNumber:   (seq-1)%53 + 1,
		Year:         time.Now().Year(),
		Quantity:     25,
		IsWeekClosed: true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Count creates a physical count fixture
func (f *FixtureFactory) Count(opts ...func(*CountFixture)) CountFixture {
	seq := f.nextSeq()
	now := time.Now().UTC()
	c := CountFixture{
		ID:               uuid.New().String(),
		MedicationID:     uuid.New().String(),
		Month:            (seq-1)%12 + 1,
		Year:             now.Year(),
		TheoreticalStock: 120,
		PhysicalStock:    100,
		CountedAt:        now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Dispensation creates a dispensation fixture
func (f *FixtureFactory) Dispensation(opts ...func(*DispensationFixture)) DispensationFixture {
	d := DispensationFixture{
		ID:           uuid.New().String(),
		MedicationID: uuid.New().String(),
		Quantity:     10,
		Service:      "outpatient",
		DispensedAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Policy creates a reorder policy fixture: quarterly orders, two months of
// delivery delay, one month of buffer
func (f *FixtureFactory) Policy(opts ...func(*PolicyFixture)) PolicyFixture {
	p := PolicyFixture{
		OrderFrequencyMonths: 3,
		DeliveryDelayMonths:  decimal.NewFromInt(2),
		BufferStockMonths:    decimal.NewFromInt(1),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
