package ebm

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/medilink/pharmacy_backend/models"
	"gorm.io/gorm"
)

// CodeStore is the persistence surface of the reference-code sync.
type CodeStore interface {
	GetCompany(ctx context.Context, companyId string) (*models.Company, error)
	GetSyncStatus(ctx context.Context, companyId string) (*models.CodeSyncStatus, error)
	UpsertSyncStatus(ctx context.Context, companyId string, state string, totalSynced int, errorMessage string) error
	// SaveCatalog upserts the given classes and their detail codes in one
	// transaction and returns the number of detail codes written.
	SaveCatalog(ctx context.Context, classes []codeClassEntry) (int, error)
}

// NoticeStore is the persistence surface of the notice distribution engine.
type NoticeStore interface {
	GetCompany(ctx context.Context, companyId string) (*models.Company, error)
	LatestNoticeNotification(ctx context.Context, companyId string) (*models.Notification, error)
	NoticeProcessed(ctx context.Context, companyId string, noticeNo string) (bool, error)
	ListActiveUsers(ctx context.Context, companyId string) ([]models.User, error)
	CreateNotification(ctx context.Context, notification *models.Notification) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore wraps a GORM handle as both store interfaces.
func NewStore(db *gorm.DB) *gormStore {
	return &gormStore{db: db}
}

func (s *gormStore) GetCompany(ctx context.Context, companyId string) (*models.Company, error) {
	return models.GetCompany(ctx, s.db, companyId)
}

func (s *gormStore) GetSyncStatus(ctx context.Context, companyId string) (*models.CodeSyncStatus, error) {
	return models.GetCodeSyncStatus(ctx, s.db, companyId)
}

func (s *gormStore) UpsertSyncStatus(ctx context.Context, companyId string, state string, totalSynced int, errorMessage string) error {
	return models.UpsertCodeSyncStatus(ctx, s.db, companyId, state, totalSynced, errorMessage)
}

func (s *gormStore) SaveCatalog(ctx context.Context, classes []codeClassEntry) (int, error) {
	totalSynced := 0
	// One transaction for the whole catalog; a large class/detail set needs
	// more headroom than the default request deadline.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Minute)
	defer cancel()

	err := s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		for _, class := range classes {
			synced, upsertErr := upsertCodeClass(tx, class)
			if upsertErr != nil {
				return upsertErr
			}
			totalSynced += synced
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return totalSynced, nil
}

func upsertCodeClass(tx *gorm.DB, entry codeClassEntry) (int, error) {
	active := entry.UseYn != "N"

	var class models.CodeClass
	err := tx.Where("class_code = ?", entry.CdCls).Take(&class).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		class = models.CodeClass{
			ClassCode:        entry.CdCls,
			ClassLabel:       entry.CdClsNm,
			ClassDescription: entry.CdClsDesc,
			IsActive:         &active,
		}
		if err := tx.Create(&class).Error; err != nil {
			return 0, err
		}
	case err != nil:
		return 0, err
	default:
		if err := tx.Model(&class).Updates(map[string]interface{}{
			"class_label":       entry.CdClsNm,
			"class_description": entry.CdClsDesc,
			"is_active":         active,
		}).Error; err != nil {
			return 0, err
		}
	}

	synced := 0
	for _, dtl := range entry.DtlList {
		if err := upsertCodeDetail(tx, class.ID, dtl); err != nil {
			return 0, err
		}
		synced++
	}
	return synced, nil
}

func upsertCodeDetail(tx *gorm.DB, classId int, entry codeDtlEntry) error {
	active := entry.UseYn != "N"

	var detail models.CodeDetail
	err := tx.Where("class_id = ? AND code = ?", classId, entry.Cd).Take(&detail).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		detail = models.CodeDetail{
			ClassId:     classId,
			Code:        entry.Cd,
			Label:       entry.CdNm,
			Description: entry.CdDesc,
			SortOrder:   entry.SrtOrd,
			IsActive:    &active,
		}
		return tx.Create(&detail).Error
	case err != nil:
		return err
	default:
		return tx.Model(&detail).Updates(map[string]interface{}{
			"label":       entry.CdNm,
			"description": entry.CdDesc,
			"sort_order":  entry.SrtOrd,
			"is_active":   active,
		}).Error
	}
}

func (s *gormStore) LatestNoticeNotification(ctx context.Context, companyId string) (*models.Notification, error) {
	return models.LatestNotificationByEntityType(ctx, s.db, companyId, models.NotificationEntityEbmNotice)
}

func (s *gormStore) NoticeProcessed(ctx context.Context, companyId string, noticeNo string) (bool, error) {
	return models.NotificationExists(ctx, s.db, companyId, models.NotificationEntityEbmNotice, noticeNo)
}

func (s *gormStore) ListActiveUsers(ctx context.Context, companyId string) ([]models.User, error) {
	return models.ListActiveCompanyUsers(ctx, s.db, companyId)
}

func (s *gormStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return s.db.WithContext(ctx).Create(notification).Error
}
