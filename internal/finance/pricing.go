package finance

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// ErrInvalidPeriod is returned when the charge date precedes the entry date.
var ErrInvalidPeriod = errors.New("charge date is before entry date")

// Period is a calendar duration split into whole years, months and days.
type Period struct {
	Years  int
	Months int
	Days   int
	// Partial is set when time remains beyond Days (less than one day).
	Partial bool
}

// ElapsedMonths rounds the period up to whole months.
func (p Period) ElapsedMonths() int {
	months := p.Years*12 + p.Months
	if p.Days > 0 || p.Partial {
		months++
	}
	return months
}

// ElapsedYears rounds the period up to whole years.
func (p Period) ElapsedYears() int {
	return (p.ElapsedMonths() + 11) / 12
}

// StoragePeriod measures the calendar period from entry to asOf.
func StoragePeriod(entry, asOf time.Time) (Period, error) {
	entry, asOf = entry.UTC(), asOf.UTC()
	if asOf.Before(entry) {
		return Period{}, ErrInvalidPeriod
	}

	months := (asOf.Year()-entry.Year())*12 + int(asOf.Month()-entry.Month())
	cursor := entry.AddDate(0, months, 0)
	for months > 0 && cursor.After(asOf) {
		months--
		cursor = entry.AddDate(0, months, 0)
	}

	rest := asOf.Sub(cursor)
	day := 24 * time.Hour
	return Period{
		Years:   months / 12,
		Months:  months % 12,
		Days:    int(rest / day),
		Partial: rest%day > 0,
	}, nil
}

// Charges is the storage bill for one lot of grain.
type Charges struct {
	Period        Period
	Quintals      decimal.Decimal
	ElapsedMonths int
	ElapsedYears  int
	Rent          decimal.Decimal
	Maintenance   decimal.Decimal
	Insurance     decimal.Decimal
	Total         decimal.Decimal
}

// Add sums two bills. Period and elapsed counts are taken from the longer one.
func (c Charges) Add(o Charges) Charges {
	out := Charges{
		Quintals:    c.Quintals.Add(o.Quintals),
		Rent:        c.Rent.Add(o.Rent),
		Maintenance: c.Maintenance.Add(o.Maintenance),
		Insurance:   c.Insurance.Add(o.Insurance),
		Total:       c.Total.Add(o.Total),
	}
	longer := c
	if o.ElapsedMonths > c.ElapsedMonths {
		longer = o
	}
	out.Period, out.ElapsedMonths, out.ElapsedYears = longer.Period, longer.ElapsedMonths, longer.ElapsedYears
	return out
}

// ZeroCharges is the identity for Charges.Add.
func ZeroCharges() Charges {
	return Charges{
		Quintals:    decimal.Zero,
		Rent:        decimal.Zero,
		Maintenance: decimal.Zero,
		Insurance:   decimal.Zero,
		Total:       decimal.Zero,
	}
}

// StorageCharges bills weightKg stored from entry until asOf. Rent scales
// with quintals and months, maintenance with months only, insurance with
// years. Any part of a month or year is billed as a whole one.
func StorageCharges(pricing domain.Pricing, weightKg decimal.Decimal, entry, asOf time.Time) (Charges, error) {
	period, err := StoragePeriod(entry, asOf)
	if err != nil {
		return Charges{}, err
	}

	months := period.ElapsedMonths()
	years := period.ElapsedYears()
	quintals := weightKg.Div(kgPerQuintal)

	rent := pricing.RentPerQuintalPerMonth.Mul(quintals).Mul(decimal.NewFromInt(int64(months)))
	maintenance := pricing.MaintenancePerMonth.Mul(decimal.NewFromInt(int64(months)))
	insurance := pricing.InsurancePerYear.Mul(decimal.NewFromInt(int64(years)))

	return Charges{
		Period:        period,
		Quintals:      quintals,
		ElapsedMonths: months,
		ElapsedYears:  years,
		Rent:          rent,
		Maintenance:   maintenance,
		Insurance:     insurance,
		Total:         rent.Add(maintenance).Add(insurance),
	}, nil
}
