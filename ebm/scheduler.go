package ebm

import (
	"context"

	"bitbucket.org/medilink/pharmacy_backend/config"
	"bitbucket.org/medilink/pharmacy_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SyncRunner drives the per-company sync and notice distribution when the
// external scheduler (cron hitting the trigger endpoint, or a Pub/Sub push)
// fires. Companies are processed sequentially; one company's failure never
// aborts the rest.
type SyncRunner struct {
	db      *gorm.DB
	codes   *CodeSyncService
	notices *NoticeService
	logger  *logrus.Logger
}

func NewSyncRunner(db *gorm.DB, codes *CodeSyncService, notices *NoticeService, logger *logrus.Logger) *SyncRunner {
	return &SyncRunner{
		db:      db,
		codes:   codes,
		notices: notices,
		logger:  logger,
	}
}

// RunOnce processes every active company.
func (r *SyncRunner) RunOnce(ctx context.Context) error {
	companies, err := models.ListActiveCompanies(ctx, r.db)
	if err != nil {
		return err
	}
	for _, company := range companies {
		r.RunCompany(ctx, company.ID.String())
	}
	return nil
}

// RunCompany syncs one company's code catalog and notices, capturing errors
// so callers can keep iterating.
func (r *SyncRunner) RunCompany(ctx context.Context, companyId string) {
	if err := r.codes.EnsureSynced(ctx, companyId); err != nil {
		config.LogError(r.logger, "ebm", "SyncRunner.RunCompany", "code sync for company "+companyId, nil, err)
	}
	if err := r.notices.SyncNotices(ctx, companyId); err != nil {
		config.LogError(r.logger, "ebm", "SyncRunner.RunCompany", "notice sync for company "+companyId, nil, err)
	}
}
