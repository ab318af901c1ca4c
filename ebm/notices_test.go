package ebm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bitbucket.org/medilink/pharmacy_backend/models"
	"bitbucket.org/medilink/pharmacy_backend/realtime"
)

type fakeNoticeStore struct {
	company   *models.Company
	latest    *models.Notification
	processed map[string]bool
	users     []models.User
	created   []models.Notification
	createErr map[int]error
}

func (s *fakeNoticeStore) GetCompany(ctx context.Context, companyId string) (*models.Company, error) {
	if s.company == nil {
		return nil, errors.New("company not found")
	}
	return s.company, nil
}

func (s *fakeNoticeStore) LatestNoticeNotification(ctx context.Context, companyId string) (*models.Notification, error) {
	return s.latest, nil
}

func (s *fakeNoticeStore) NoticeProcessed(ctx context.Context, companyId string, noticeNo string) (bool, error) {
	return s.processed[noticeNo], nil
}

func (s *fakeNoticeStore) ListActiveUsers(ctx context.Context, companyId string) ([]models.User, error) {
	return s.users, nil
}

func (s *fakeNoticeStore) CreateNotification(ctx context.Context, notification *models.Notification) error {
	if err := s.createErr[notification.UserId]; err != nil {
		return err
	}
	s.created = append(s.created, *notification)
	return nil
}

type emittedEvent struct {
	userId int
	event  string
}

type fakeEmitter struct {
	emitted []emittedEvent
	failFor map[int]error
}

func (e *fakeEmitter) Emit(ctx context.Context, userId int, event string, payload any) error {
	if err := e.failFor[userId]; err != nil {
		return err
	}
	e.emitted = append(e.emitted, emittedEvent{userId: userId, event: event})
	return nil
}

func noticeResponse(t *testing.T, notices []noticeEntry) Response {
	t.Helper()
	data, err := json.Marshal(noticeData{NoticeList: notices})
	if err != nil {
		t.Fatalf("marshal notices: %v", err)
	}
	return Response{ResultCode: ResultCodeSuccess, ResultMessage: "It is succeeded", Data: data}
}

func TestSyncNoticesDistributesToAllActiveUsers(t *testing.T) {
	gateway := &fakeGateway{response: noticeResponse(t, []noticeEntry{
		{NoticeNo: 17, Title: "Maintenance window", Cont: "System down Saturday", RegrNm: "RRA Admin", RegDt: "20260820100000"},
	})}
	store := &fakeNoticeStore{
		company:   &models.Company{Tin: "123456789"},
		processed: map[string]bool{},
		users:     []models.User{{ID: 1}, {ID: 2}},
	}
	emitter := &fakeEmitter{}
	svc := NewNoticeService(store, gateway, emitter, testLogger())

	if err := svc.SyncNotices(context.Background(), "c1"); err != nil {
		t.Fatalf("SyncNotices: %v", err)
	}
	if len(store.created) != 2 {
		t.Fatalf("created = %d notifications, want one per user", len(store.created))
	}
	if len(emitter.emitted) != 2 {
		t.Fatalf("emitted = %d events, want 2", len(emitter.emitted))
	}
	for _, ev := range emitter.emitted {
		if ev.event != realtime.EventNotification {
			t.Fatalf("event = %q", ev.event)
		}
	}
	first := store.created[0]
	if first.EntityType != models.NotificationEntityEbmNotice || first.EntityId != "17" {
		t.Fatalf("notification keyed %q/%q", first.EntityType, first.EntityId)
	}
	if first.Title != "Maintenance window" || first.Body != "System down Saturday" {
		t.Fatalf("notification content = %+v", first)
	}
	var meta NoticeMetadata
	if err := json.Unmarshal(first.MetadataJSON, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta.RegDt != "20260820100000" || meta.Author != "RRA Admin" {
		t.Fatalf("metadata = %+v", meta)
	}
}

func TestSyncNoticesSkipsProcessedNotice(t *testing.T) {
	gateway := &fakeGateway{response: noticeResponse(t, []noticeEntry{
		{NoticeNo: 17, Title: "Already seen"},
		{NoticeNo: 18, Title: "New one"},
	})}
	store := &fakeNoticeStore{
		company:   &models.Company{Tin: "123456789"},
		processed: map[string]bool{"17": true},
		users:     []models.User{{ID: 1}},
	}
	emitter := &fakeEmitter{}
	svc := NewNoticeService(store, gateway, emitter, testLogger())

	if err := svc.SyncNotices(context.Background(), "c1"); err != nil {
		t.Fatalf("SyncNotices: %v", err)
	}
	if len(store.created) != 1 || store.created[0].EntityId != "18" {
		t.Fatalf("created = %+v, want only notice 18", store.created)
	}
	if len(emitter.emitted) != 1 {
		t.Fatalf("emitted = %d, want 1", len(emitter.emitted))
	}
}

func TestSyncNoticesIsolatesPerUserFailures(t *testing.T) {
	gateway := &fakeGateway{response: noticeResponse(t, []noticeEntry{
		{NoticeNo: 20, Title: "Rate change"},
	})}
	store := &fakeNoticeStore{
		company:   &models.Company{Tin: "123456789"},
		processed: map[string]bool{},
		users:     []models.User{{ID: 1}, {ID: 2}, {ID: 3}},
		createErr: map[int]error{2: errors.New("duplicate entry")},
	}
	emitter := &fakeEmitter{failFor: map[int]error{3: errors.New("redis gone")}}
	svc := NewNoticeService(store, gateway, emitter, testLogger())

	if err := svc.SyncNotices(context.Background(), "c1"); err != nil {
		t.Fatalf("SyncNotices: %v", err)
	}
	// User 2's insert failed, users 1 and 3 were stored.
	if len(store.created) != 2 {
		t.Fatalf("created = %d, want 2", len(store.created))
	}
	// Only user 1's emit went through.
	if len(emitter.emitted) != 1 || emitter.emitted[0].userId != 1 {
		t.Fatalf("emitted = %+v, want only user 1", emitter.emitted)
	}
}

func TestSyncNoticesWatermarkFromLatestNotification(t *testing.T) {
	meta, _ := json.Marshal(NoticeMetadata{NoticeNo: "12", RegDt: "20260815093000"})
	gateway := &fakeGateway{response: noticeResponse(t, nil)}
	store := &fakeNoticeStore{
		company: &models.Company{Tin: "123456789"},
		latest:  &models.Notification{MetadataJSON: meta},
	}
	svc := NewNoticeService(store, gateway, &fakeEmitter{}, testLogger())

	if err := svc.SyncNotices(context.Background(), "c1"); err != nil {
		t.Fatalf("SyncNotices: %v", err)
	}
	req := gateway.sent[0].payload.(SelectRequest)
	if req.LastReqDt != "20260815093000" {
		t.Fatalf("lastReqDt = %q, want watermark from stored metadata", req.LastReqDt)
	}
}

func TestSyncNoticesWatermarkFallsBackToLookback(t *testing.T) {
	gateway := &fakeGateway{response: noticeResponse(t, nil)}
	store := &fakeNoticeStore{company: &models.Company{Tin: "123456789"}}
	svc := NewNoticeService(store, gateway, &fakeEmitter{}, testLogger())

	if err := svc.SyncNotices(context.Background(), "c1"); err != nil {
		t.Fatalf("SyncNotices: %v", err)
	}
	req := gateway.sent[0].payload.(SelectRequest)
	watermark, err := time.ParseInLocation(authorityDateTimeFormat, req.LastReqDt, time.Local)
	if err != nil {
		t.Fatalf("parse lastReqDt %q: %v", req.LastReqDt, err)
	}
	want := time.Now().AddDate(0, 0, -noticeLookbackDays)
	if diff := want.Sub(watermark); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("lastReqDt = %v, want about %v", watermark, want)
	}
}

func TestSyncNoticesSkipsCompanyWithoutTin(t *testing.T) {
	gateway := &fakeGateway{}
	store := &fakeNoticeStore{company: &models.Company{Tin: ""}}
	svc := NewNoticeService(store, gateway, &fakeEmitter{}, testLogger())

	if err := svc.SyncNotices(context.Background(), "c1"); err != nil {
		t.Fatalf("missing TIN is a configuration gap, not an error: %v", err)
	}
	if len(gateway.sent) != 0 {
		t.Fatalf("company without TIN must not poll the authority")
	}
}

func TestSyncNoticesToleratesAuthorityFailure(t *testing.T) {
	cases := []struct {
		name     string
		response Response
	}{
		{"non-success", Response{ResultCode: "894", ResultMessage: "invalid request"}},
		{"no data", Response{ResultCode: ResultCodeSuccess, Data: json.RawMessage("null")}},
		{"malformed data", Response{ResultCode: ResultCodeSuccess, Data: json.RawMessage(`"oops"`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := &fakeGateway{response: tc.response}
			store := &fakeNoticeStore{
				company: &models.Company{Tin: "123456789"},
				users:   []models.User{{ID: 1}},
			}
			svc := NewNoticeService(store, gateway, &fakeEmitter{}, testLogger())

			if err := svc.SyncNotices(context.Background(), "c1"); err != nil {
				t.Fatalf("notice poll failures are absorbed: %v", err)
			}
			if len(store.created) != 0 {
				t.Fatalf("nothing should be stored on %s", tc.name)
			}
		})
	}
}

func TestSyncNoticesEntityIdIsNoticeNumber(t *testing.T) {
	gateway := &fakeGateway{response: noticeResponse(t, []noticeEntry{{NoticeNo: 305}})}
	store := &fakeNoticeStore{
		company:   &models.Company{Tin: "123456789"},
		processed: map[string]bool{},
		users:     []models.User{{ID: 9}},
	}
	svc := NewNoticeService(store, gateway, &fakeEmitter{}, testLogger())

	if err := svc.SyncNotices(context.Background(), "c1"); err != nil {
		t.Fatalf("SyncNotices: %v", err)
	}
	if got := store.created[0].EntityId; got != "305" {
		t.Fatalf("entityId = %q", got)
	}
}
