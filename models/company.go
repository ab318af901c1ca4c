package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Company struct {
	ID        uuid.UUID `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Tin       string    `gorm:"size:20" json:"tin"`
	Email     string    `gorm:"size:255" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	Sector    string    `gorm:"size:100" json:"sector"`
	District  string    `gorm:"size:100" json:"district"`
	Country   string    `gorm:"size:100" json:"country"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func GetCompany(ctx context.Context, db *gorm.DB, companyId string) (*Company, error) {
	var company Company
	if err := db.WithContext(ctx).Where("id = ?", companyId).Take(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// ListActiveCompanies returns every active company, ordered by creation time
// so the scheduling loop visits companies in a stable order.
func ListActiveCompanies(ctx context.Context, db *gorm.DB) ([]Company, error) {
	var companies []Company
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&companies).Error
	if err != nil {
		return nil, err
	}
	return companies, nil
}
