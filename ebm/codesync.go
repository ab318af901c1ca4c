package ebm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/medilink/pharmacy_backend/config"
	"bitbucket.org/medilink/pharmacy_backend/models"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

// codeSyncInitialWatermark is the fixed historical lastReqDt used on a
// company's first catalog fetch so the full catalog comes back.
const codeSyncInitialWatermark = "20180101000000"

const codeSyncLockTTL = 5 * time.Minute

// Catalog classes this system needs. Everything else the authority returns
// is dropped before persisting.
var requiredClassCodes = map[string]bool{
	"04": true, // taxation type
	"05": true, // country of origin
	"07": true, // payment type
	"09": true, // branch status
	"10": true, // quantity unit
	"11": true, // sale status
	"12": true, // stock in/out type
	"14": true, // transaction type
	"17": true, // packing unit
	"24": true, // item type
}

// Protocol validation failures; each case carries its own diagnostic so a
// FAILED status row says what actually went wrong.
var (
	ErrEmptyAuthorityResponse = errors.New("empty response from authority")
	ErrMissingDataPayload     = errors.New("authority response has no data payload")
	ErrMissingClassList       = errors.New("authority response has no code class list")
	ErrSyncInProgress         = errors.New("code sync already in progress for company")
)

// CodeSyncService keeps the local mirror of the authority's code catalog
// current, one idempotent state machine per company.
type CodeSyncService struct {
	store   CodeStore
	gateway Gateway
	logger  *logrus.Logger
	locker  *redislock.Client
}

func NewCodeSyncService(store CodeStore, gateway Gateway, logger *logrus.Logger, locker *redislock.Client) *CodeSyncService {
	return &CodeSyncService{
		store:   store,
		gateway: gateway,
		logger:  logger,
		locker:  locker,
	}
}

// EnsureSynced performs a sync unless the company already has a SUCCESS
// status row; in that case it returns without any network call.
func (s *CodeSyncService) EnsureSynced(ctx context.Context, companyId string) error {
	status, err := s.store.GetSyncStatus(ctx, companyId)
	if err != nil {
		return err
	}
	if status != nil && status.State == models.CodeSyncStateSuccess {
		return nil
	}
	return s.sync(ctx, companyId)
}

// ForceSync refreshes the catalog even for an already-synced company. The
// only supported way to re-fetch after a SUCCESS.
func (s *CodeSyncService) ForceSync(ctx context.Context, companyId string) error {
	return s.sync(ctx, companyId)
}

func (s *CodeSyncService) sync(ctx context.Context, companyId string) error {
	tracer := otel.Tracer("ebm")
	ctx, span := tracer.Start(ctx, "CodeSyncService.sync")
	defer span.End()

	// Serialize per company; concurrent triggers would otherwise race the
	// read-then-write status check.
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, "ebm:codesync:"+companyId, codeSyncLockTTL, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return ErrSyncInProgress
			}
			return err
		}
		defer lock.Release(ctx)
	}

	totalSynced, err := s.fetchAndPersist(ctx, companyId)
	if err != nil {
		config.LogError(s.logger, "ebm", "CodeSyncService.sync", "company "+companyId, nil, err)
		if statusErr := s.store.UpsertSyncStatus(ctx, companyId, models.CodeSyncStateFailed, 0, err.Error()); statusErr != nil {
			config.LogError(s.logger, "ebm", "CodeSyncService.sync", "record failed status for company "+companyId, nil, statusErr)
		}
		return err
	}

	if err := s.store.UpsertSyncStatus(ctx, companyId, models.CodeSyncStateSuccess, totalSynced, ""); err != nil {
		return err
	}
	config.LogInfo(s.logger, "ebm", "CodeSyncService.sync", "company "+companyId,
		fmt.Sprintf("code catalog synced (%d codes)", totalSynced))
	return nil
}

func (s *CodeSyncService) fetchAndPersist(ctx context.Context, companyId string) (int, error) {
	company, err := s.store.GetCompany(ctx, companyId)
	if err != nil {
		return 0, err
	}
	tin := strings.TrimSpace(company.Tin)
	if tin == "" {
		return 0, fmt.Errorf("company %s has no TIN configured", companyId)
	}

	resp := s.gateway.Send(ctx, EndpointSelectCodes, SelectRequest{
		Tin:       FormatTin(tin),
		BhfId:     DefaultBranchCode,
		LastReqDt: codeSyncInitialWatermark,
	})

	classes, err := validateCodeCatalogResponse(resp)
	if err != nil {
		return 0, err
	}

	required := make([]codeClassEntry, 0, len(classes))
	for _, class := range classes {
		if requiredClassCodes[class.CdCls] {
			required = append(required, class)
		}
	}

	return s.store.SaveCatalog(ctx, required)
}

func validateCodeCatalogResponse(resp Response) ([]codeClassEntry, error) {
	if resp.IsEmpty() {
		return nil, ErrEmptyAuthorityResponse
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("authority rejected code request (%s): %s", resp.ResultCode, resp.ResultMessage)
	}
	if !resp.HasData() {
		return nil, ErrMissingDataPayload
	}
	var data codeCatalogData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("decode code catalog: %w", err)
	}
	if data.ClsList == nil {
		return nil, ErrMissingClassList
	}
	return data.ClsList, nil
}
