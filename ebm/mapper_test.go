package ebm

import (
	"testing"
	"time"

	"bitbucket.org/medilink/pharmacy_backend/models"
)

func testMapperContext() MapperContext {
	email := "agnes@pharmacy.rw"
	return MapperContext{
		Company: &models.Company{
			Name:     "Kigali Pharmacy Ltd",
			Tin:      "123456789",
			Sector:   "Nyarugenge",
			District: "Kigali",
		},
		Branch: &models.Branch{Name: "Kigali 07"},
		User: models.User{
			ID:        42,
			FirstName: "Agnes",
			LastName:  "Uwase",
			Email:     &email,
		},
	}
}

func fixNow(t *testing.T, fixed time.Time) {
	t.Helper()
	prev := timeNow
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = prev })
}

func TestBuildItemPayloadEndToEnd(t *testing.T) {
	mc := testMapperContext()
	payload := BuildItemPayload(mc, ItemInput{
		ItemId:      "item-001",
		Name:        "Paracetamol",
		TaxTypeCode: "A",
	})

	if payload.Tin != "123456789" {
		t.Fatalf("tin = %q", payload.Tin)
	}
	if payload.BhfId != "07" {
		t.Fatalf("bhfId = %q", payload.BhfId)
	}
	if payload.ItemTyCd != ItemTypeGoods {
		t.Fatalf("itemTyCd = %q, want %q", payload.ItemTyCd, ItemTypeGoods)
	}
	if payload.TaxTyCd != "A" {
		t.Fatalf("taxTyCd = %q", payload.TaxTyCd)
	}
	if payload.ItemClsCd != DefaultItemClassCode {
		t.Fatalf("itemClsCd = %q", payload.ItemClsCd)
	}
	if payload.RegrNm != "Agnes Uwase" {
		t.Fatalf("regrNm = %q", payload.RegrNm)
	}
	if payload.RegrId != "agnes@pharmacy.rw" {
		t.Fatalf("regrId = %q", payload.RegrId)
	}
	if payload.DftPrc != 0 {
		t.Fatalf("dftPrc = %v, want 0 without insurance price", payload.DftPrc)
	}
	if payload.IsrcAplcbYn != "N" {
		t.Fatalf("isrcAplcbYn = %q, want N", payload.IsrcAplcbYn)
	}
	if payload.Bcd != nil {
		t.Fatalf("bcd should be null when no barcode is given")
	}
}

func TestBuildItemPayloadInsuranceAndDefaults(t *testing.T) {
	mc := testMapperContext()
	price := dec("1500")
	payload := BuildItemPayload(mc, ItemInput{
		ItemId:         "item-002",
		Name:           "Consultation Fee",
		InsurancePrice: &price,
	})

	if payload.ItemTyCd != ItemTypeService {
		t.Fatalf("itemTyCd = %q, want service", payload.ItemTyCd)
	}
	if payload.TaxTyCd != DefaultTaxTypeCode {
		t.Fatalf("taxTyCd = %q, want default %q", payload.TaxTyCd, DefaultTaxTypeCode)
	}
	if payload.DftPrc != 1500 {
		t.Fatalf("dftPrc = %v", payload.DftPrc)
	}
	if payload.IsrcAplcbYn != "Y" {
		t.Fatalf("isrcAplcbYn = %q, want Y for positive insurance price", payload.IsrcAplcbYn)
	}
	if payload.ItemCd != "item-002" {
		t.Fatalf("itemCd falls back to the item id, got %q", payload.ItemCd)
	}
}

func TestBuildStockPayload(t *testing.T) {
	mc := testMapperContext()
	payload := BuildStockPayload(mc, StockReceiptInput{
		ReceiptId:    "rcpt-00ff",
		ReceivedDate: time.Date(2026, 3, 15, 10, 30, 0, 0, time.Local),
		Item: StockLineInput{
			ItemCode:       "PARA500",
			ItemName:       "Paracetamol 500mg",
			Quantity:       dec("10"),
			UnitPrice:      dec("200"),
			TaxTypeCode:    TaxTypeB,
			TaxRatePercent: dec("18"),
		},
	})

	if payload.SarNo != payload.OrgSarNo {
		t.Fatalf("sarNo %d != orgSarNo %d; an original entry reuses its reference", payload.SarNo, payload.OrgSarNo)
	}
	if payload.SarNo != GenerateReference("rcpt-00ff") {
		t.Fatalf("sarNo = %d not derived from receipt id", payload.SarNo)
	}
	if payload.OcrnDt != "20260315" {
		t.Fatalf("ocrnDt = %q", payload.OcrnDt)
	}
	if payload.TotItemCnt != 1 || len(payload.ItemList) != 1 {
		t.Fatalf("stock payload must carry exactly one synthetic line")
	}
	line := payload.ItemList[0]
	if line.ItemSeq != 1 {
		t.Fatalf("itemSeq = %d, want 1", line.ItemSeq)
	}
	if line.SplyAmt != 2000 {
		t.Fatalf("splyAmt = %v, want 2000", line.SplyAmt)
	}
	if line.TaxAmt != 360 {
		t.Fatalf("taxAmt = %v, want 360 (exclusive 18%%)", line.TaxAmt)
	}
	if payload.TotAmt != 2360 {
		t.Fatalf("totAmt = %v, want 2360", payload.TotAmt)
	}
}

func TestBuildPurchasePayload(t *testing.T) {
	fixNow(t, time.Date(2026, 4, 1, 9, 0, 0, 0, time.Local))
	mc := testMapperContext()

	payload := BuildPurchasePayload(mc, PurchaseOrderInput{
		OrderId:      "po-1234abcd",
		CreatedAt:    time.Date(2026, 3, 28, 0, 0, 0, 0, time.Local),
		SupplierName: "Meds Wholesale",
		SupplierTin:  "555",
		Items: []PurchaseLineInput{
			{ItemCode: "A1", ItemName: "Gauze", Quantity: dec("5"), UnitPrice: dec("100"), TaxTypeCode: TaxTypeA},
			{ItemCode: "B1", ItemName: "Syrup", Quantity: dec("2"), UnitPrice: dec("250"), TaxTypeCode: TaxTypeB, TaxRatePercent: dec("18")},
		},
	})

	if payload.CfmDt != "20260401090000" {
		t.Fatalf("cfmDt = %q, want mapping wall-clock time", payload.CfmDt)
	}
	if payload.PchsDt != "20260328" {
		t.Fatalf("pchsDt = %q, want order creation date", payload.PchsDt)
	}
	if payload.SpplrTin == nil || *payload.SpplrTin != "000000555" {
		t.Fatalf("spplrTin = %v, want formatted 000000555", payload.SpplrTin)
	}
	if payload.TotItemCnt != 2 {
		t.Fatalf("totItemCnt = %d", payload.TotItemCnt)
	}
	if payload.ItemList[0].ItemSeq != 1 || payload.ItemList[1].ItemSeq != 2 {
		t.Fatalf("itemSeq must be the 1-based line position")
	}
	// B line present: every category displays 18.
	if payload.TaxRtA != 18 || payload.TaxRtC != 18 {
		t.Fatalf("taxRtA=%v taxRtC=%v, want 18 for all categories", payload.TaxRtA, payload.TaxRtC)
	}
	if payload.TaxblAmtA != 500 || payload.TaxblAmtB != 500 {
		t.Fatalf("taxblAmtA=%v taxblAmtB=%v", payload.TaxblAmtA, payload.TaxblAmtB)
	}
	if payload.TaxAmtB != 90 {
		t.Fatalf("taxAmtB = %v, want 90", payload.TaxAmtB)
	}
	if payload.TotAmt != 1090 {
		t.Fatalf("totAmt = %v, want 1090", payload.TotAmt)
	}
	if payload.InvcNo != payload.OrgInvcNo {
		t.Fatalf("invcNo %d != orgInvcNo %d", payload.InvcNo, payload.OrgInvcNo)
	}
}

func TestBuildSalesPayload(t *testing.T) {
	fixNow(t, time.Date(2026, 4, 2, 14, 5, 30, 0, time.Local))
	mc := testMapperContext()

	payload := BuildSalesPayload(mc, SaleInput{
		SaleId:        "sale-77aa",
		SoldAt:        time.Date(2026, 4, 2, 13, 50, 0, 0, time.Local),
		PaymentMethod: "CASH",
		CustomerName:  "Jean Bosco",
		CustomerPhone: "0788123456",
		Items: []SaleLineInput{
			{ItemCode: "PARA500", ItemName: "Paracetamol 500mg", Quantity: dec("2"), LineTotal: dec("118"), TaxTypeCode: TaxTypeB, TaxRatePercent: dec("18")},
		},
	})

	if payload.PmtTyCd != PaymentTypeCash {
		t.Fatalf("pmtTyCd = %q, want %q for cash", payload.PmtTyCd, PaymentTypeCash)
	}
	// Inclusive convention: taxable amount equals the inclusive total.
	if payload.TaxblAmtB != 118 {
		t.Fatalf("taxblAmtB = %v, want inclusive 118", payload.TaxblAmtB)
	}
	if payload.TaxAmtB != 18 {
		t.Fatalf("taxAmtB = %v, want 18", payload.TaxAmtB)
	}
	if payload.TotAmt != 118 {
		t.Fatalf("totAmt = %v, want inclusive 118", payload.TotAmt)
	}
	if payload.Receipt.TrdeNm != "Kigali Pharmacy Ltd" {
		t.Fatalf("receipt trdeNm = %q", payload.Receipt.TrdeNm)
	}
	if payload.Receipt.Adrs != "Nyarugenge, Kigali" {
		t.Fatalf("receipt adrs = %q", payload.Receipt.Adrs)
	}
	if payload.Receipt.CustMblNo == nil || *payload.Receipt.CustMblNo != "0788123456" {
		t.Fatalf("receipt custMblNo = %v", payload.Receipt.CustMblNo)
	}
	if payload.CustTin != nil {
		t.Fatalf("custTin should be null when customer has no TIN")
	}
	if payload.SalesDt != "20260402" {
		t.Fatalf("salesDt = %q", payload.SalesDt)
	}
}

func TestBuildSalesPayloadNonCashPayment(t *testing.T) {
	mc := testMapperContext()
	payload := BuildSalesPayload(mc, SaleInput{
		SaleId:        "sale-1",
		SoldAt:        time.Now(),
		PaymentMethod: "momo",
		Items: []SaleLineInput{
			{ItemCode: "X", ItemName: "X", Quantity: dec("1"), LineTotal: dec("100")},
		},
	})
	if payload.PmtTyCd != PaymentTypeOther {
		t.Fatalf("pmtTyCd = %q, want %q for non-cash", payload.PmtTyCd, PaymentTypeOther)
	}
}

func TestBuildSalesPayloadAddressOmitsMissingParts(t *testing.T) {
	mc := testMapperContext()
	mc.Company.District = ""
	payload := BuildSalesPayload(mc, SaleInput{
		SaleId: "sale-2",
		SoldAt: time.Now(),
		Items:  []SaleLineInput{{ItemCode: "X", ItemName: "X", Quantity: dec("1"), LineTotal: dec("10")}},
	})
	if payload.Receipt.Adrs != "Nyarugenge" {
		t.Fatalf("adrs = %q, want district omitted", payload.Receipt.Adrs)
	}
}

func TestBuildInitPayload(t *testing.T) {
	mc := testMapperContext()
	payload := BuildInitPayload(mc, "VSDC-001")
	if payload.Tin != "123456789" || payload.BhfId != "07" || payload.DvcSrlNo != "VSDC-001" {
		t.Fatalf("unexpected init payload %+v", payload)
	}
}

func TestRegistrarIdFallsBackToUserId(t *testing.T) {
	mc := testMapperContext()
	mc.User.Email = nil
	payload := BuildItemPayload(mc, ItemInput{ItemId: "i", Name: "Paracetamol"})
	if payload.RegrId != "42" {
		t.Fatalf("regrId = %q, want user id fallback", payload.RegrId)
	}
}
