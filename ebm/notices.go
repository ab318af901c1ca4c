package ebm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/medilink/pharmacy_backend/config"
	"bitbucket.org/medilink/pharmacy_backend/models"
	"bitbucket.org/medilink/pharmacy_backend/realtime"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

// noticeLookbackDays is the watermark fallback when a company has never
// received a notice notification.
const noticeLookbackDays = 30

// NoticeMetadata is stored on every notice notification; RegDt doubles as
// the watermark for the next poll.
type NoticeMetadata struct {
	NoticeNo    string `json:"noticeNo"`
	Author      string `json:"author"`
	RegDt       string `json:"regDt"`
	CompanyId   string `json:"companyId"`
	ProcessedAt string `json:"processedAt"`
}

// NoticeService relays authority notices to company users at most once each,
// pushing every stored notification onto the per-user real-time channel.
type NoticeService struct {
	store   NoticeStore
	gateway Gateway
	emitter realtime.Emitter
	logger  *logrus.Logger
}

func NewNoticeService(store NoticeStore, gateway Gateway, emitter realtime.Emitter, logger *logrus.Logger) *NoticeService {
	return &NoticeService{
		store:   store,
		gateway: gateway,
		emitter: emitter,
		logger:  logger,
	}
}

// SyncNotices fetches notices issued since the company's watermark and
// distributes the new ones. Configuration gaps (no TIN) and authority
// non-success responses are logged and skipped, not surfaced as errors.
func (s *NoticeService) SyncNotices(ctx context.Context, companyId string) error {
	tracer := otel.Tracer("ebm")
	ctx, span := tracer.Start(ctx, "NoticeService.SyncNotices")
	defer span.End()

	company, err := s.store.GetCompany(ctx, companyId)
	if err != nil {
		return err
	}
	tin := strings.TrimSpace(company.Tin)
	if tin == "" {
		config.LogInfo(s.logger, "ebm", "NoticeService.SyncNotices", "company "+companyId,
			"skipping notice sync: no TIN configured")
		return nil
	}

	watermark, err := s.noticeWatermark(ctx, companyId)
	if err != nil {
		return err
	}

	resp := s.gateway.Send(ctx, EndpointSelectNotices, SelectRequest{
		Tin:       FormatTin(tin),
		BhfId:     DefaultBranchCode,
		LastReqDt: watermark.Format(authorityDateTimeFormat),
	})
	if !resp.IsSuccess() {
		config.LogInfo(s.logger, "ebm", "NoticeService.SyncNotices", "company "+companyId,
			fmt.Sprintf("no notices fetched (%s): %s", resp.ResultCode, resp.ResultMessage))
		return nil
	}
	if !resp.HasData() {
		config.LogInfo(s.logger, "ebm", "NoticeService.SyncNotices", "company "+companyId,
			"notice response carries no data")
		return nil
	}

	var data noticeData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		config.LogError(s.logger, "ebm", "NoticeService.SyncNotices", "company "+companyId, nil, err)
		return nil
	}
	if len(data.NoticeList) == 0 {
		return nil
	}

	for _, notice := range data.NoticeList {
		noticeNo := strconv.Itoa(notice.NoticeNo)

		processed, err := s.store.NoticeProcessed(ctx, companyId, noticeNo)
		if err != nil {
			config.LogError(s.logger, "ebm", "NoticeService.SyncNotices", "notice "+noticeNo, nil, err)
			continue
		}
		if processed {
			continue
		}

		// A partially-failed distribution still moves on to the next notice.
		s.distribute(ctx, companyId, notice)
	}
	return nil
}

// noticeWatermark is the authority timestamp of the most recent notice
// notification, or now minus the lookback window when none exists.
func (s *NoticeService) noticeWatermark(ctx context.Context, companyId string) (time.Time, error) {
	latest, err := s.store.LatestNoticeNotification(ctx, companyId)
	if err != nil {
		return time.Time{}, err
	}
	if latest != nil && len(latest.MetadataJSON) > 0 {
		var meta NoticeMetadata
		if err := json.Unmarshal(latest.MetadataJSON, &meta); err == nil && meta.RegDt != "" {
			if parsed, parseErr := time.ParseInLocation(authorityDateTimeFormat, meta.RegDt, time.Local); parseErr == nil {
				return parsed, nil
			}
		}
	}
	return time.Now().AddDate(0, 0, -noticeLookbackDays), nil
}

// distribute fans one notice out to every active user of the company. A
// failure for one user is logged and does not stop the remaining users.
func (s *NoticeService) distribute(ctx context.Context, companyId string, notice noticeEntry) []realtime.DeliveryResult {
	noticeNo := strconv.Itoa(notice.NoticeNo)

	users, err := s.store.ListActiveUsers(ctx, companyId)
	if err != nil {
		config.LogError(s.logger, "ebm", "NoticeService.distribute", "notice "+noticeNo, nil, err)
		return nil
	}

	meta := NoticeMetadata{
		NoticeNo:    noticeNo,
		Author:      notice.RegrNm,
		RegDt:       notice.RegDt,
		CompanyId:   companyId,
		ProcessedAt: time.Now().Format(authorityDateTimeFormat),
	}
	metaJSON, _ := json.Marshal(meta)

	results := make([]realtime.DeliveryResult, 0, len(users))
	for _, user := range users {
		notification := models.Notification{
			CompanyId:    companyId,
			UserId:       user.ID,
			EntityType:   models.NotificationEntityEbmNotice,
			EntityId:     noticeNo,
			Severity:     models.NotificationSeverityWarning,
			Title:        notice.Title,
			Body:         notice.Cont,
			Link:         notice.DtlUrl,
			MetadataJSON: metaJSON,
		}
		if err := s.store.CreateNotification(ctx, &notification); err != nil {
			// The unique index absorbs duplicate triggers; anything else is a
			// real per-user failure.
			config.LogError(s.logger, "ebm", "NoticeService.distribute",
				fmt.Sprintf("notice %s user %d", noticeNo, user.ID), nil, err)
			results = append(results, realtime.DeliveryResult{UserId: user.ID, State: realtime.DeliveryStateFailed, Err: err})
			continue
		}

		if err := s.emitter.Emit(ctx, user.ID, realtime.EventNotification, notification); err != nil {
			config.LogError(s.logger, "ebm", "NoticeService.distribute",
				fmt.Sprintf("emit notice %s user %d", noticeNo, user.ID), nil, err)
			results = append(results, realtime.DeliveryResult{UserId: user.ID, State: realtime.DeliveryStateFailed, Err: err})
			continue
		}
		results = append(results, realtime.DeliveryResult{UserId: user.ID, State: realtime.DeliveryStateDelivered})
	}
	return results
}
