package ebm

import "github.com/shopspring/decimal"

// Tax type codes carried on line items. B is the standard-rated (18%) bucket.
const (
	TaxTypeA = "A"
	TaxTypeB = "B"
	TaxTypeC = "C"
	TaxTypeD = "D"
)

var (
	decimalOneHundred = decimal.NewFromInt(100)
	standardTaxRate   = decimal.NewFromInt(18)
)

// TaxLine is one taxable line item feeding the aggregation.
type TaxLine struct {
	TaxTypeCode string
	// Amount is the line's taxable amount. For sales documents this is the
	// tax-inclusive line total.
	Amount decimal.Decimal
	// RatePercent is the line's own tax rate, e.g. 18 for tax type B.
	RatePercent decimal.Decimal
}

// TaxSummary holds per-category taxable and tax totals plus the rate shown
// for each category on the outbound document.
type TaxSummary struct {
	TaxableAmountA decimal.Decimal
	TaxableAmountB decimal.Decimal
	TaxableAmountC decimal.Decimal
	TaxableAmountD decimal.Decimal

	TaxAmountA decimal.Decimal
	TaxAmountB decimal.Decimal
	TaxAmountC decimal.Decimal
	TaxAmountD decimal.Decimal

	TaxRateA decimal.Decimal
	TaxRateB decimal.Decimal
	TaxRateC decimal.Decimal
	TaxRateD decimal.Decimal

	TotalTaxableAmount decimal.Decimal
	TotalTaxAmount     decimal.Decimal
}

// LineTaxAmount computes one line's tax amount, rounded to 2 decimals.
// Exclusive documents (stock, purchase): amount × rate/100.
// Inclusive documents (sales): total − total/(1 + rate/100); the taxable
// amount stays the inclusive total, matching the authority's convention.
func LineTaxAmount(amount decimal.Decimal, ratePercent decimal.Decimal, taxInclusive bool) decimal.Decimal {
	if taxInclusive {
		divisor := decimal.NewFromInt(1).Add(ratePercent.Div(decimalOneHundred))
		return amount.Sub(amount.DivRound(divisor, 8)).Round(2)
	}
	return amount.Mul(ratePercent).DivRound(decimalOneHundred, 8).Round(2)
}

// AggregateTaxes rolls up line items into the four fiscal categories.
//
// The displayed rate for every category is 18 whenever any line in the whole
// document carries tax type B, and 0 otherwise. The rate a category shows is
// therefore driven by the document as a whole, not by that category's own
// lines; this matches the fiscalization behavior observed in production and
// must not be changed without authority guidance.
func AggregateTaxes(lines []TaxLine, taxInclusive bool) TaxSummary {
	var summary TaxSummary

	hasStandardRated := false
	for _, line := range lines {
		if line.TaxTypeCode == TaxTypeB {
			hasStandardRated = true
			break
		}
	}

	for _, line := range lines {
		taxAmount := LineTaxAmount(line.Amount, line.RatePercent, taxInclusive)
		switch line.TaxTypeCode {
		case TaxTypeA:
			summary.TaxableAmountA = summary.TaxableAmountA.Add(line.Amount)
			summary.TaxAmountA = summary.TaxAmountA.Add(taxAmount)
		case TaxTypeB:
			summary.TaxableAmountB = summary.TaxableAmountB.Add(line.Amount)
			summary.TaxAmountB = summary.TaxAmountB.Add(taxAmount)
		case TaxTypeC:
			summary.TaxableAmountC = summary.TaxableAmountC.Add(line.Amount)
			summary.TaxAmountC = summary.TaxAmountC.Add(taxAmount)
		case TaxTypeD:
			summary.TaxableAmountD = summary.TaxableAmountD.Add(line.Amount)
			summary.TaxAmountD = summary.TaxAmountD.Add(taxAmount)
		}
		summary.TotalTaxableAmount = summary.TotalTaxableAmount.Add(line.Amount)
		summary.TotalTaxAmount = summary.TotalTaxAmount.Add(taxAmount)
	}

	rate := decimal.Zero
	if hasStandardRated {
		rate = standardTaxRate
	}
	summary.TaxRateA = rate
	summary.TaxRateB = rate
	summary.TaxRateC = rate
	summary.TaxRateD = rate

	return summary
}
