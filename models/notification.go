package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	NotificationEntityEbmNotice = "EBM_NOTICE"

	NotificationSeverityInfo    = "info"
	NotificationSeverityWarning = "warning"
	NotificationSeverityError   = "error"
)

// Notification is a generic per-user notification. Authority notices use
// EntityType EBM_NOTICE with EntityId = notice number. The composite unique
// index makes duplicate distribution a no-op at the database rather than an
// existence-check convention.
type Notification struct {
	ID           int       `gorm:"primary_key" json:"id"`
	CompanyId    string    `gorm:"uniqueIndex:idx_notification_entity,priority:1;not null" json:"company_id"`
	UserId       int       `gorm:"uniqueIndex:idx_notification_entity,priority:2;not null" json:"user_id"`
	EntityType   string    `gorm:"uniqueIndex:idx_notification_entity,priority:3;size:50;not null" json:"entity_type"`
	EntityId     string    `gorm:"uniqueIndex:idx_notification_entity,priority:4;size:128;not null" json:"entity_id"`
	Severity     string    `gorm:"size:20;not null" json:"severity"`
	Title        string    `gorm:"size:255" json:"title"`
	Body         string    `gorm:"type:text" json:"body"`
	Link         string    `gorm:"size:512" json:"link"`
	MetadataJSON []byte    `gorm:"type:json" json:"metadata"`
	IsRead       *bool     `gorm:"not null;default:false" json:"is_read"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// NotificationExists reports whether any user of the company already received
// a notification for the given entity.
func NotificationExists(ctx context.Context, db *gorm.DB, companyId string, entityType string, entityId string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&Notification{}).
		Where("company_id = ? AND entity_type = ? AND entity_id = ?", companyId, entityType, entityId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// LatestNotificationByEntityType returns the most recently created
// notification of the given entity type for a company, or nil.
func LatestNotificationByEntityType(ctx context.Context, db *gorm.DB, companyId string, entityType string) (*Notification, error) {
	var notifications []Notification
	err := db.WithContext(ctx).
		Where("company_id = ? AND entity_type = ?", companyId, entityType).
		Order("created_at DESC").
		Limit(1).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	if len(notifications) == 0 {
		return nil, nil
	}
	return &notifications[0], nil
}
