package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	CompanyId string    `gorm:"index" json:"company_id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	FirstName string    `gorm:"size:100" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
	Email     *string   `gorm:"size:100;unique" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DisplayName is the "first last" form used on authority payloads.
func (u User) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// GetUser returns one user of the company, or nil when absent.
func GetUser(ctx context.Context, db *gorm.DB, companyId string, userId int) (*User, error) {
	var user User
	err := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyId, userId).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListActiveCompanyUsers returns the active users of a company in insertion
// order. Notification fan-out follows this order.
func ListActiveCompanyUsers(ctx context.Context, db *gorm.DB, companyId string) ([]User, error) {
	var users []User
	err := db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyId, true).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
