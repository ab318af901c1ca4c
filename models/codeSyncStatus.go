package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	CodeSyncStateSuccess = "SUCCESS"
	CodeSyncStateFailed  = "FAILED"
)

// CodeSyncStatus is the per-company reference-code sync state. Absence of a
// row means the company was never attempted; a SUCCESS row short-circuits
// future sync attempts until explicitly forced.
type CodeSyncStatus struct {
	ID               int       `gorm:"primary_key" json:"id"`
	CompanyId        string    `gorm:"uniqueIndex;not null" json:"company_id"`
	State            string    `gorm:"size:20;not null" json:"state"`
	LastSyncAt       time.Time `json:"last_sync_at"`
	TotalCodesSynced int       `gorm:"default:0" json:"total_codes_synced"`
	ErrorMessage     string    `gorm:"type:text" json:"error_message"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetCodeSyncStatus(ctx context.Context, db *gorm.DB, companyId string) (*CodeSyncStatus, error) {
	var status CodeSyncStatus
	err := db.WithContext(ctx).Where("company_id = ?", companyId).Take(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// UpsertCodeSyncStatus writes the status row keyed by company_id. The row is
// written outside the catalog transaction; a failed catalog transaction still
// gets its FAILED row recorded.
func UpsertCodeSyncStatus(ctx context.Context, db *gorm.DB, companyId string, state string, totalSynced int, errorMessage string) error {
	now := time.Now()

	existing, err := GetCodeSyncStatus(ctx, db, companyId)
	if err != nil {
		return err
	}
	if existing == nil {
		status := CodeSyncStatus{
			CompanyId:        companyId,
			State:            state,
			LastSyncAt:       now,
			TotalCodesSynced: totalSynced,
			ErrorMessage:     errorMessage,
		}
		return db.WithContext(ctx).Create(&status).Error
	}

	return db.WithContext(ctx).Model(existing).Updates(map[string]interface{}{
		"state":              state,
		"last_sync_at":       now,
		"total_codes_synced": totalSynced,
		"error_message":      errorMessage,
	}).Error
}
