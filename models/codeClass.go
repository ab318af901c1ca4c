package models

import "time"

// CodeClass is one fiscal reference category from the authority's code
// catalog. Rows are created and updated only by the reference-code sync.
type CodeClass struct {
	ID               int       `gorm:"primary_key" json:"id"`
	ClassCode        string    `gorm:"uniqueIndex;size:20;not null" json:"class_code"`
	ClassLabel       string    `gorm:"size:255" json:"class_label"`
	ClassDescription string    `gorm:"type:text" json:"class_description"`
	IsActive         *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CodeDetail is one code within a class. Owned by its class; upserted by the
// sync, never hard-deleted.
type CodeDetail struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ClassId     int       `gorm:"uniqueIndex:idx_code_detail_class_code,priority:1;not null" json:"class_id"`
	Code        string    `gorm:"uniqueIndex:idx_code_detail_class_code,priority:2;size:20;not null" json:"code"`
	Label       string    `gorm:"size:255" json:"label"`
	Description string    `gorm:"type:text" json:"description"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
