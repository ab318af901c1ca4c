package ebm

import (
	"strconv"
	"strings"
	"time"

	"bitbucket.org/medilink/pharmacy_backend/models"
	"github.com/shopspring/decimal"
)

const (
	// DefaultItemClassCode is the authority classification every item is
	// registered under until a dedicated mapping exists.
	DefaultItemClassCode = "5020230602"

	DefaultPackageUnitCode  = "NT"
	DefaultQuantityUnitCode = "U"
	DefaultTaxTypeCode      = TaxTypeA

	PaymentTypeCash  = "01"
	PaymentTypeOther = "02"

	authorityDateFormat = "20060102"

	receiptTopMessage    = "Murakaza neza"
	receiptBottomMessage = "Murakoze! Thank you for your purchase"
)

// timeNow is stubbed in tests; confirmation timestamps are wall-clock time
// of mapping.
var timeNow = time.Now

// MapperContext carries the company, acting user and resolved branch every
// payload needs.
type MapperContext struct {
	Company *models.Company
	Branch  *models.Branch
	User    models.User
}

func (mc MapperContext) tin() string {
	return FormatTin(mc.Company.Tin)
}

func (mc MapperContext) branchCode() string {
	return ResolveBranchCode(mc.Branch)
}

func (mc MapperContext) registrarName() string {
	return mc.User.DisplayName()
}

func (mc MapperContext) registrarId() string {
	if mc.User.Email != nil && strings.TrimSpace(*mc.User.Email) != "" {
		return strings.TrimSpace(*mc.User.Email)
	}
	return strconv.Itoa(mc.User.ID)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func orDefault(value string, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// BuildInitPayload maps a device registration.
func BuildInitPayload(mc MapperContext, deviceSerial string) InitRequest {
	return InitRequest{
		Tin:      mc.tin(),
		BhfId:    mc.branchCode(),
		DvcSrlNo: deviceSerial,
	}
}

// BuildItemPayload maps one item-master record for registration.
func BuildItemPayload(mc MapperContext, input ItemInput) ItemPayload {
	insurancePrice := decimal.Zero
	if input.InsurancePrice != nil {
		insurancePrice = *input.InsurancePrice
	}
	insuranceApplicable := "N"
	if insurancePrice.IsPositive() {
		insuranceApplicable = "Y"
	}

	var barcode *string
	if input.Barcode != nil {
		barcode = optionalString(*input.Barcode)
	}

	return ItemPayload{
		Tin:         mc.tin(),
		BhfId:       mc.branchCode(),
		ItemCd:      orDefault(input.Code, input.ItemId),
		ItemClsCd:   DefaultItemClassCode,
		ItemTyCd:    ClassifyItemType(input.Name),
		ItemNm:      input.Name,
		ItemStdNm:   input.Name,
		PkgUnitCd:   orDefault(input.PackageCode, DefaultPackageUnitCode),
		QtyUnitCd:   orDefault(input.UnitCode, DefaultQuantityUnitCode),
		TaxTyCd:     orDefault(input.TaxTypeCode, DefaultTaxTypeCode),
		Bcd:         barcode,
		DftPrc:      round2(insurancePrice),
		IsrcAplcbYn: insuranceApplicable,
		UseYn:       "Y",
		RegrNm:      mc.registrarName(),
		RegrId:      mc.registrarId(),
		ModrNm:      mc.registrarName(),
		ModrId:      mc.registrarId(),
	}
}

// BuildStockPayload maps a stock receipt as a single synthetic line. The
// derived reference is used for both sarNo and orgSarNo, marking the entry
// as original rather than a correction.
func BuildStockPayload(mc MapperContext, input StockReceiptInput) StockPayload {
	line := input.Item
	supplyAmount := line.Quantity.Mul(line.UnitPrice)
	taxAmount := LineTaxAmount(supplyAmount, line.TaxRatePercent, false)

	reference := GenerateReference(input.ReceiptId)

	entry := StockLineEntry{
		ItemSeq:   1,
		ItemCd:    line.ItemCode,
		ItemClsCd: orDefault(line.ItemClassCode, DefaultItemClassCode),
		ItemNm:    line.ItemName,
		PkgUnitCd: DefaultPackageUnitCode,
		Pkg:       1,
		QtyUnitCd: DefaultQuantityUnitCode,
		Qty:       line.Quantity.InexactFloat64(),
		Prc:       round2(line.UnitPrice),
		SplyAmt:   round2(supplyAmount),
		TotDcAmt:  0,
		TaxblAmt:  round2(supplyAmount),
		TaxTyCd:   orDefault(line.TaxTypeCode, DefaultTaxTypeCode),
		TaxAmt:    taxAmount.InexactFloat64(),
		TotAmt:    round2(supplyAmount.Add(taxAmount)),
	}

	return StockPayload{
		Tin:         mc.tin(),
		BhfId:       mc.branchCode(),
		SarNo:       reference,
		OrgSarNo:    reference,
		RegTyCd:     "A",
		SarTyCd:     "02",
		OcrnDt:      input.ReceivedDate.Format(authorityDateFormat),
		TotItemCnt:  1,
		TotTaxblAmt: entry.TaxblAmt,
		TotTaxAmt:   entry.TaxAmt,
		TotAmt:      entry.TotAmt,
		RegrNm:      mc.registrarName(),
		RegrId:      mc.registrarId(),
		ModrNm:      mc.registrarName(),
		ModrId:      mc.registrarId(),
		ItemList:    []StockLineEntry{entry},
	}
}

// BuildPurchasePayload maps a purchase order with one line per order item.
func BuildPurchasePayload(mc MapperContext, input PurchaseOrderInput) PurchasePayload {
	taxLines := make([]TaxLine, 0, len(input.Items))
	entries := make([]PurchaseLineEntry, 0, len(input.Items))

	for i, line := range input.Items {
		supplyAmount := line.Quantity.Mul(line.UnitPrice)
		taxType := orDefault(line.TaxTypeCode, DefaultTaxTypeCode)
		taxAmount := LineTaxAmount(supplyAmount, line.TaxRatePercent, false)

		taxLines = append(taxLines, TaxLine{
			TaxTypeCode: taxType,
			Amount:      supplyAmount,
			RatePercent: line.TaxRatePercent,
		})
		entries = append(entries, PurchaseLineEntry{
			ItemSeq:   i + 1,
			ItemCd:    line.ItemCode,
			ItemClsCd: orDefault(line.ItemClassCode, DefaultItemClassCode),
			ItemNm:    line.ItemName,
			PkgUnitCd: DefaultPackageUnitCode,
			Pkg:       1,
			QtyUnitCd: DefaultQuantityUnitCode,
			Qty:       line.Quantity.InexactFloat64(),
			Prc:       round2(line.UnitPrice),
			SplyAmt:   round2(supplyAmount),
			TaxblAmt:  round2(supplyAmount),
			TaxTyCd:   taxType,
			TaxAmt:    taxAmount.InexactFloat64(),
			TotAmt:    round2(supplyAmount.Add(taxAmount)),
		})
	}

	summary := AggregateTaxes(taxLines, false)
	reference := GenerateReference(input.OrderId)

	var supplierTin *string
	if strings.TrimSpace(input.SupplierTin) != "" {
		formatted := FormatTin(input.SupplierTin)
		supplierTin = &formatted
	}

	return PurchasePayload{
		Tin:         mc.tin(),
		BhfId:       mc.branchCode(),
		InvcNo:      reference,
		OrgInvcNo:   reference,
		SpplrTin:    supplierTin,
		SpplrNm:     input.SupplierName,
		SpplrInvcNo: optionalString(input.SupplierInvoiceNo),
		RegTyCd:     "A",
		PchsTyCd:    "N",
		RcptTyCd:    "P",
		PmtTyCd:     PaymentTypeCash,
		PchsSttsCd:  "02",
		CfmDt:       timeNow().Format(authorityDateTimeFormat),
		PchsDt:      input.CreatedAt.Format(authorityDateFormat),
		TotItemCnt:  len(entries),
		TaxblAmtA:   round2(summary.TaxableAmountA),
		TaxblAmtB:   round2(summary.TaxableAmountB),
		TaxblAmtC:   round2(summary.TaxableAmountC),
		TaxblAmtD:   round2(summary.TaxableAmountD),
		TaxRtA:      summary.TaxRateA.InexactFloat64(),
		TaxRtB:      summary.TaxRateB.InexactFloat64(),
		TaxRtC:      summary.TaxRateC.InexactFloat64(),
		TaxRtD:      summary.TaxRateD.InexactFloat64(),
		TaxAmtA:     round2(summary.TaxAmountA),
		TaxAmtB:     round2(summary.TaxAmountB),
		TaxAmtC:     round2(summary.TaxAmountC),
		TaxAmtD:     round2(summary.TaxAmountD),
		TotTaxblAmt: round2(summary.TotalTaxableAmount),
		TotTaxAmt:   round2(summary.TotalTaxAmount),
		TotAmt:      round2(summary.TotalTaxableAmount.Add(summary.TotalTaxAmount)),
		RegrNm:      mc.registrarName(),
		RegrId:      mc.registrarId(),
		ModrNm:      mc.registrarName(),
		ModrId:      mc.registrarId(),
		ItemList:    entries,
	}
}

// BuildSalesPayload maps a completed sale. Line totals are tax-inclusive;
// the taxable amount stays the inclusive total per the authority convention.
func BuildSalesPayload(mc MapperContext, input SaleInput) SalesPayload {
	taxLines := make([]TaxLine, 0, len(input.Items))
	entries := make([]SalesLineEntry, 0, len(input.Items))

	for i, line := range input.Items {
		taxType := orDefault(line.TaxTypeCode, DefaultTaxTypeCode)
		taxAmount := LineTaxAmount(line.LineTotal, line.TaxRatePercent, true)

		unitPrice := decimal.Zero
		if line.Quantity.IsPositive() {
			unitPrice = line.LineTotal.DivRound(line.Quantity, 4)
		}

		taxLines = append(taxLines, TaxLine{
			TaxTypeCode: taxType,
			Amount:      line.LineTotal,
			RatePercent: line.TaxRatePercent,
		})
		entries = append(entries, SalesLineEntry{
			ItemSeq:   i + 1,
			ItemCd:    line.ItemCode,
			ItemClsCd: orDefault(line.ItemClassCode, DefaultItemClassCode),
			ItemNm:    line.ItemName,
			PkgUnitCd: DefaultPackageUnitCode,
			Pkg:       1,
			QtyUnitCd: DefaultQuantityUnitCode,
			Qty:       line.Quantity.InexactFloat64(),
			Prc:       round2(unitPrice),
			SplyAmt:   round2(line.LineTotal),
			TaxblAmt:  round2(line.LineTotal),
			TaxTyCd:   taxType,
			TaxAmt:    taxAmount.InexactFloat64(),
			TotAmt:    round2(line.LineTotal),
		})
	}

	summary := AggregateTaxes(taxLines, true)
	reference := GenerateReference(input.SaleId)

	paymentType := PaymentTypeOther
	if strings.EqualFold(strings.TrimSpace(input.PaymentMethod), "cash") {
		paymentType = PaymentTypeCash
	}

	var customerTin *string
	if strings.TrimSpace(input.CustomerTin) != "" {
		formatted := FormatTin(input.CustomerTin)
		customerTin = &formatted
	}

	return SalesPayload{
		Tin:         mc.tin(),
		BhfId:       mc.branchCode(),
		InvcNo:      reference,
		OrgInvcNo:   reference,
		CustTin:     customerTin,
		CustNm:      input.CustomerName,
		SalesTyCd:   "N",
		RcptTyCd:    "S",
		PmtTyCd:     paymentType,
		SalesSttsCd: "02",
		CfmDt:       timeNow().Format(authorityDateTimeFormat),
		SalesDt:     input.SoldAt.Format(authorityDateFormat),
		TotItemCnt:  len(entries),
		TaxblAmtA:   round2(summary.TaxableAmountA),
		TaxblAmtB:   round2(summary.TaxableAmountB),
		TaxblAmtC:   round2(summary.TaxableAmountC),
		TaxblAmtD:   round2(summary.TaxableAmountD),
		TaxRtA:      summary.TaxRateA.InexactFloat64(),
		TaxRtB:      summary.TaxRateB.InexactFloat64(),
		TaxRtC:      summary.TaxRateC.InexactFloat64(),
		TaxRtD:      summary.TaxRateD.InexactFloat64(),
		TaxAmtA:     round2(summary.TaxAmountA),
		TaxAmtB:     round2(summary.TaxAmountB),
		TaxAmtC:     round2(summary.TaxAmountC),
		TaxAmtD:     round2(summary.TaxAmountD),
		TotTaxblAmt: round2(summary.TotalTaxableAmount),
		TotTaxAmt:   round2(summary.TotalTaxAmount),
		TotAmt:      round2(summary.TotalTaxableAmount),
		Receipt:     buildReceipt(mc, customerTin, input.CustomerPhone),
		ItemList:    entries,
		RegrNm:      mc.registrarName(),
		RegrId:      mc.registrarId(),
		ModrNm:      mc.registrarName(),
		ModrId:      mc.registrarId(),
	}
}

func buildReceipt(mc MapperContext, customerTin *string, customerPhone string) ReceiptPayload {
	return ReceiptPayload{
		CustTin:      customerTin,
		CustMblNo:    optionalString(customerPhone),
		TrdeNm:       mc.Company.Name,
		Adrs:         composeAddress(mc.Company.Sector, mc.Company.District),
		TopMsg:       receiptTopMessage,
		BtmMsg:       receiptBottomMessage,
		PrchrAcptcYn: "N",
	}
}

// composeAddress joins sector and district, skipping whichever is absent.
func composeAddress(parts ...string) string {
	present := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			present = append(present, trimmed)
		}
	}
	return strings.Join(present, ", ")
}
