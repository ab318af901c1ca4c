package ebm

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Response is the uniform envelope every authority endpoint answers with.
// Transport failures are normalized into it by the gateway (resultCd E999).
type Response struct {
	ResultCode    string          `json:"resultCd"`
	ResultMessage string          `json:"resultMsg"`
	ResultDate    string          `json:"resultDt"`
	Data          json.RawMessage `json:"data"`
}

const (
	ResultCodeSuccess        = "000"
	ResultCodeTransportError = "E999"
)

func (r Response) IsSuccess() bool {
	return r.ResultCode == ResultCodeSuccess
}

// IsEmpty reports a structurally empty envelope, distinct from a non-success
// result code.
func (r Response) IsEmpty() bool {
	return r.ResultCode == "" && r.ResultMessage == "" && len(r.Data) == 0
}

// HasData reports whether the envelope carries a usable data payload.
func (r Response) HasData() bool {
	if len(r.Data) == 0 {
		return false
	}
	return string(r.Data) != "null"
}

// SelectRequest is the common pull-request body for the code-catalog and
// notice endpoints.
type SelectRequest struct {
	Tin       string `json:"tin"`
	BhfId     string `json:"bhfId"`
	LastReqDt string `json:"lastReqDt"`
}

// InitRequest registers a fiscal device.
type InitRequest struct {
	Tin      string `json:"tin"`
	BhfId    string `json:"bhfId"`
	DvcSrlNo string `json:"dvcSrlNo"`
}

// ItemPayload registers or updates one item on the authority.
type ItemPayload struct {
	Tin         string  `json:"tin"`
	BhfId       string  `json:"bhfId"`
	ItemCd      string  `json:"itemCd"`
	ItemClsCd   string  `json:"itemClsCd"`
	ItemTyCd    string  `json:"itemTyCd"`
	ItemNm      string  `json:"itemNm"`
	ItemStdNm   string  `json:"itemStdNm"`
	PkgUnitCd   string  `json:"pkgUnitCd"`
	QtyUnitCd   string  `json:"qtyUnitCd"`
	TaxTyCd     string  `json:"taxTyCd"`
	Bcd         *string `json:"bcd"`
	DftPrc      float64 `json:"dftPrc"`
	IsrcAplcbYn string  `json:"isrcAplcbYn"`
	UseYn       string  `json:"useYn"`
	RegrNm      string  `json:"regrNm"`
	RegrId      string  `json:"regrId"`
	ModrNm      string  `json:"modrNm"`
	ModrId      string  `json:"modrId"`
}

// StockPayload reports a stock movement with its nested item lines.
type StockPayload struct {
	Tin        string           `json:"tin"`
	BhfId      string           `json:"bhfId"`
	SarNo      int64            `json:"sarNo"`
	OrgSarNo   int64            `json:"orgSarNo"`
	RegTyCd    string           `json:"regTyCd"`
	SarTyCd    string           `json:"sarTyCd"`
	OcrnDt     string           `json:"ocrnDt"`
	TotItemCnt int              `json:"totItemCnt"`
	TotTaxblAmt float64         `json:"totTaxblAmt"`
	TotTaxAmt  float64          `json:"totTaxAmt"`
	TotAmt     float64          `json:"totAmt"`
	RegrNm     string           `json:"regrNm"`
	RegrId     string           `json:"regrId"`
	ModrNm     string           `json:"modrNm"`
	ModrId     string           `json:"modrId"`
	ItemList   []StockLineEntry `json:"itemList"`
}

type StockLineEntry struct {
	ItemSeq   int     `json:"itemSeq"`
	ItemCd    string  `json:"itemCd"`
	ItemClsCd string  `json:"itemClsCd"`
	ItemNm    string  `json:"itemNm"`
	PkgUnitCd string  `json:"pkgUnitCd"`
	Pkg       float64 `json:"pkg"`
	QtyUnitCd string  `json:"qtyUnitCd"`
	Qty       float64 `json:"qty"`
	Prc       float64 `json:"prc"`
	SplyAmt   float64 `json:"splyAmt"`
	TotDcAmt  float64 `json:"totDcAmt"`
	TaxblAmt  float64 `json:"taxblAmt"`
	TaxTyCd   string  `json:"taxTyCd"`
	TaxAmt    float64 `json:"taxAmt"`
	TotAmt    float64 `json:"totAmt"`
}

// PurchasePayload registers a purchase with its nested item lines.
type PurchasePayload struct {
	Tin         string              `json:"tin"`
	BhfId       string              `json:"bhfId"`
	InvcNo      int64               `json:"invcNo"`
	OrgInvcNo   int64               `json:"orgInvcNo"`
	SpplrTin    *string             `json:"spplrTin"`
	SpplrNm     string              `json:"spplrNm"`
	SpplrInvcNo *string             `json:"spplrInvcNo"`
	RegTyCd     string              `json:"regTyCd"`
	PchsTyCd    string              `json:"pchsTyCd"`
	RcptTyCd    string              `json:"rcptTyCd"`
	PmtTyCd     string              `json:"pmtTyCd"`
	PchsSttsCd  string              `json:"pchsSttsCd"`
	CfmDt       string              `json:"cfmDt"`
	PchsDt      string              `json:"pchsDt"`
	TotItemCnt  int                 `json:"totItemCnt"`
	TaxblAmtA   float64             `json:"taxblAmtA"`
	TaxblAmtB   float64             `json:"taxblAmtB"`
	TaxblAmtC   float64             `json:"taxblAmtC"`
	TaxblAmtD   float64             `json:"taxblAmtD"`
	TaxRtA      float64             `json:"taxRtA"`
	TaxRtB      float64             `json:"taxRtB"`
	TaxRtC      float64             `json:"taxRtC"`
	TaxRtD      float64             `json:"taxRtD"`
	TaxAmtA     float64             `json:"taxAmtA"`
	TaxAmtB     float64             `json:"taxAmtB"`
	TaxAmtC     float64             `json:"taxAmtC"`
	TaxAmtD     float64             `json:"taxAmtD"`
	TotTaxblAmt float64             `json:"totTaxblAmt"`
	TotTaxAmt   float64             `json:"totTaxAmt"`
	TotAmt      float64             `json:"totAmt"`
	RegrNm      string              `json:"regrNm"`
	RegrId      string              `json:"regrId"`
	ModrNm      string              `json:"modrNm"`
	ModrId      string              `json:"modrId"`
	ItemList    []PurchaseLineEntry `json:"itemList"`
}

type PurchaseLineEntry struct {
	ItemSeq   int     `json:"itemSeq"`
	ItemCd    string  `json:"itemCd"`
	ItemClsCd string  `json:"itemClsCd"`
	ItemNm    string  `json:"itemNm"`
	PkgUnitCd string  `json:"pkgUnitCd"`
	Pkg       float64 `json:"pkg"`
	QtyUnitCd string  `json:"qtyUnitCd"`
	Qty       float64 `json:"qty"`
	Prc       float64 `json:"prc"`
	SplyAmt   float64 `json:"splyAmt"`
	DcRt      float64 `json:"dcRt"`
	DcAmt     float64 `json:"dcAmt"`
	TaxblAmt  float64 `json:"taxblAmt"`
	TaxTyCd   string  `json:"taxTyCd"`
	TaxAmt    float64 `json:"taxAmt"`
	TotAmt    float64 `json:"totAmt"`
}

// SalesPayload registers a sale with its nested item lines and receipt.
type SalesPayload struct {
	Tin         string           `json:"tin"`
	BhfId       string           `json:"bhfId"`
	InvcNo      int64            `json:"invcNo"`
	OrgInvcNo   int64            `json:"orgInvcNo"`
	CustTin     *string          `json:"custTin"`
	CustNm      string           `json:"custNm"`
	SalesTyCd   string           `json:"salesTyCd"`
	RcptTyCd    string           `json:"rcptTyCd"`
	PmtTyCd     string           `json:"pmtTyCd"`
	SalesSttsCd string           `json:"salesSttsCd"`
	CfmDt       string           `json:"cfmDt"`
	SalesDt     string           `json:"salesDt"`
	TotItemCnt  int              `json:"totItemCnt"`
	TaxblAmtA   float64          `json:"taxblAmtA"`
	TaxblAmtB   float64          `json:"taxblAmtB"`
	TaxblAmtC   float64          `json:"taxblAmtC"`
	TaxblAmtD   float64          `json:"taxblAmtD"`
	TaxRtA      float64          `json:"taxRtA"`
	TaxRtB      float64          `json:"taxRtB"`
	TaxRtC      float64          `json:"taxRtC"`
	TaxRtD      float64          `json:"taxRtD"`
	TaxAmtA     float64          `json:"taxAmtA"`
	TaxAmtB     float64          `json:"taxAmtB"`
	TaxAmtC     float64          `json:"taxAmtC"`
	TaxAmtD     float64          `json:"taxAmtD"`
	TotTaxblAmt float64          `json:"totTaxblAmt"`
	TotTaxAmt   float64          `json:"totTaxAmt"`
	TotAmt      float64          `json:"totAmt"`
	Receipt     ReceiptPayload   `json:"receipt"`
	ItemList    []SalesLineEntry `json:"itemList"`
	RegrNm      string           `json:"regrNm"`
	RegrId      string           `json:"regrId"`
	ModrNm      string           `json:"modrNm"`
	ModrId      string           `json:"modrId"`
}

// ReceiptPayload is the receipt sub-record embedded in a sales payload.
type ReceiptPayload struct {
	CustTin      *string `json:"custTin"`
	CustMblNo    *string `json:"custMblNo"`
	TrdeNm       string  `json:"trdeNm"`
	Adrs         string  `json:"adrs"`
	TopMsg       string  `json:"topMsg"`
	BtmMsg       string  `json:"btmMsg"`
	PrchrAcptcYn string  `json:"prchrAcptcYn"`
}

type SalesLineEntry struct {
	ItemSeq   int     `json:"itemSeq"`
	ItemCd    string  `json:"itemCd"`
	ItemClsCd string  `json:"itemClsCd"`
	ItemNm    string  `json:"itemNm"`
	PkgUnitCd string  `json:"pkgUnitCd"`
	Pkg       float64 `json:"pkg"`
	QtyUnitCd string  `json:"qtyUnitCd"`
	Qty       float64 `json:"qty"`
	Prc       float64 `json:"prc"`
	SplyAmt   float64 `json:"splyAmt"`
	DcRt      float64 `json:"dcRt"`
	DcAmt     float64 `json:"dcAmt"`
	TaxblAmt  float64 `json:"taxblAmt"`
	TaxTyCd   string  `json:"taxTyCd"`
	TaxAmt    float64 `json:"taxAmt"`
	TotAmt    float64 `json:"totAmt"`
}

// Code-catalog response shapes (/code/selectCodes data payload).
type codeCatalogData struct {
	ClsList []codeClassEntry `json:"clsList"`
}

type codeClassEntry struct {
	CdCls     string          `json:"cdCls"`
	CdClsNm   string          `json:"cdClsNm"`
	CdClsDesc string          `json:"cdClsDesc"`
	UseYn     string          `json:"useYn"`
	DtlList   []codeDtlEntry  `json:"dtlList"`
}

type codeDtlEntry struct {
	Cd     string `json:"cd"`
	CdNm   string `json:"cdNm"`
	CdDesc string `json:"cdDesc"`
	UseYn  string `json:"useYn"`
	SrtOrd int    `json:"srtOrd"`
}

// Notice response shapes (/notice/selectNotices data payload).
type noticeData struct {
	NoticeList []noticeEntry `json:"noticeList"`
}

type noticeEntry struct {
	NoticeNo int    `json:"noticeNo"`
	Title    string `json:"title"`
	Cont     string `json:"cont"`
	DtlUrl   string `json:"dtlUrl"`
	RegrNm   string `json:"regrNm"`
	RegDt    string `json:"regDt"`
}

// Mapper input records. These are the explicit per-payload boundary types;
// business services validate and hand them over instead of raw entities.

type ItemInput struct {
	ItemId         string           `json:"item_id" binding:"required"`
	Name           string           `json:"name" binding:"required"`
	Code           string           `json:"code"`
	Barcode        *string          `json:"barcode"`
	TaxTypeCode    string           `json:"tax_type_code"`
	UnitCode       string           `json:"unit_code"`
	PackageCode    string           `json:"package_code"`
	InsurancePrice *decimal.Decimal `json:"insurance_price"`
}

type StockLineInput struct {
	ItemCode       string          `json:"item_code" binding:"required"`
	ItemClassCode  string          `json:"item_class_code"`
	ItemName       string          `json:"item_name" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TaxTypeCode    string          `json:"tax_type_code"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
}

type StockReceiptInput struct {
	ReceiptId    string         `json:"receipt_id" binding:"required"`
	ReceivedDate time.Time      `json:"received_date" binding:"required"`
	Item         StockLineInput `json:"item" binding:"required"`
}

type PurchaseLineInput struct {
	ItemCode       string          `json:"item_code" binding:"required"`
	ItemClassCode  string          `json:"item_class_code"`
	ItemName       string          `json:"item_name" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TaxTypeCode    string          `json:"tax_type_code"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
}

type PurchaseOrderInput struct {
	OrderId           string              `json:"order_id" binding:"required"`
	CreatedAt         time.Time           `json:"created_at" binding:"required"`
	SupplierName      string              `json:"supplier_name"`
	SupplierTin       string              `json:"supplier_tin"`
	SupplierInvoiceNo string              `json:"supplier_invoice_no"`
	Items             []PurchaseLineInput `json:"items" binding:"required,min=1"`
}

type SaleLineInput struct {
	ItemCode       string          `json:"item_code" binding:"required"`
	ItemClassCode  string          `json:"item_class_code"`
	ItemName       string          `json:"item_name" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity" binding:"required"`
	// LineTotal is the tax-inclusive amount for the line.
	LineTotal      decimal.Decimal `json:"line_total" binding:"required"`
	TaxTypeCode    string          `json:"tax_type_code"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
}

type SaleInput struct {
	SaleId        string          `json:"sale_id" binding:"required"`
	SoldAt        time.Time       `json:"sold_at" binding:"required"`
	PaymentMethod string          `json:"payment_method"`
	CustomerName  string          `json:"customer_name"`
	CustomerTin   string          `json:"customer_tin"`
	CustomerPhone string          `json:"customer_phone"`
	Items         []SaleLineInput `json:"items" binding:"required,min=1"`
}
