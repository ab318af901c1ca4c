package models

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID             int              `gorm:"primary_key" json:"id"`
	CompanyId      string           `gorm:"index;not null" json:"company_id"`
	Name           string           `gorm:"index;size:255;not null" json:"name" binding:"required"`
	Code           string           `gorm:"size:100" json:"code"`
	Barcode        string           `gorm:"size:100" json:"barcode"`
	Description    string           `gorm:"type:text" json:"description"`
	TaxTypeCode    string           `gorm:"size:1" json:"tax_type_code"`
	UnitCode       string           `gorm:"size:10" json:"unit_code"`
	PackageCode    string           `gorm:"size:10" json:"package_code"`
	SellingPrice   decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"selling_price"`
	InsurancePrice *decimal.Decimal `gorm:"type:decimal(20,4)" json:"insurance_price"`
	IsActive       *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetProduct(ctx context.Context, db *gorm.DB, companyId string, productId int) (*Product, error) {
	var product Product
	err := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyId, productId).
		Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}
