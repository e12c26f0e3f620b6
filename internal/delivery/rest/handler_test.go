package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NasaVasa/aptwatch/internal/config"
	"github.com/NasaVasa/aptwatch/internal/domain"
	"github.com/NasaVasa/aptwatch/internal/infra/db"
	"github.com/NasaVasa/aptwatch/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubmitter struct {
	accept    int
	submitted []domain.PropertyTransaction
}

func (s *fakeSubmitter) Submit(_ context.Context, tx domain.PropertyTransaction) error {
	if len(s.submitted) >= s.accept {
		return usecase.ErrShardQueueFull
	}
	s.submitted = append(s.submitted, tx)
	return nil
}

type testServer struct {
	router        http.Handler
	submitter     *fakeSubmitter
	notifications *db.NotificationRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := db.Open(config.Config{DBDriver: "sqlite", DBPath: ":memory:"}, zap.NewNop())
	require.NoError(t, err)

	users := db.NewUserRepository(gormDB)
	notifications := db.NewNotificationRepository(gormDB)
	submitter := &fakeSubmitter{accept: 100}
	logger := zap.NewNop()

	h := NewHandler(HandlerDeps{
		Users:         usecase.NewUserUsecase(users),
		Alerts:        usecase.NewAlertUsecase(users, db.NewAlertRuleRepository(gormDB), nil, nil),
		Notifications: usecase.NewNotificationUsecase(notifications, db.NewNotificationSettingRepository(gormDB), nil),
		Sheets:        usecase.NewSheetUsecase(db.NewSheetRepository(gormDB), 3, nil, logger),
		Submitter:     submitter,
		Snapshots:     db.NewSnapshotRepository(gormDB),
		Logger:        logger,
	})
	return &testServer{router: NewRouter(h, nil, logger), submitter: submitter, notifications: notifications}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) registerUser(t *testing.T) uint {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/users", gin.H{"telegram_user_id": 1001, "username": "@kim"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[domain.User](t, rec)
	assert.Equal(t, "kim", user.Username)
	return user.ID
}

func TestAlertLifecycle(t *testing.T) {
	s := newTestServer(t)
	userID := s.registerUser(t)
	base := fmt.Sprintf("/api/users/%d/alerts", userID)

	rec := s.do(t, http.MethodPost, base, gin.H{
		"name":     "강남 급매",
		"criteria": gin.H{"region_codes": []string{"11680"}, "transaction_types": []string{"sale"}},
		"alert_conditions": gin.H{
			"price_threshold": gin.H{"operator": "below", "value": 1_500_000_000},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.PriceAlertCondition](t, rec)
	assert.True(t, created.IsActive)
	assert.Equal(t, uint64(1), created.Version)

	rec = s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Alerts []domain.PriceAlertCondition `json:"alerts"`
	}](t, rec)
	require.Len(t, list.Alerts, 1)

	alertPath := fmt.Sprintf("%s/%d", base, created.ID)
	rec = s.do(t, http.MethodPatch, alertPath, gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPatch, alertPath, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, alertPath, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, alertPath, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAlertRejectsInvalidConditions(t *testing.T) {
	s := newTestServer(t)
	userID := s.registerUser(t)

	rec := s.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/alerts", userID), gin.H{
		"name":             "empty",
		"alert_conditions": gin.H{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/users/999/alerts", gin.H{
		"alert_conditions": gin.H{"new_listing": true},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSheetStatisticsFollowMutations(t *testing.T) {
	s := newTestServer(t)
	userID := s.registerUser(t)

	rec := s.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/sheets", userID), gin.H{"name": "관심 단지"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sheet := decode[domain.UserSheet](t, rec)
	assert.Equal(t, 0, sheet.Statistics.TotalProperties)

	propertiesPath := fmt.Sprintf("/api/sheets/%d/properties", sheet.ID)
	rec = s.do(t, http.MethodPost, propertiesPath, gin.H{
		"complex_name": "래미안", "transaction_type": "sale", "price": 1_000_000_000, "exclusive_area": 84.9,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[propertyResponse](t, rec)
	require.NotNil(t, first.Property)
	assert.Equal(t, 1, first.Statistics.TotalProperties)

	rec = s.do(t, http.MethodPost, propertiesPath, gin.H{
		"complex_name": "자이", "transaction_type": "lease", "price": 600_000_000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	second := decode[propertyResponse](t, rec)
	assert.Equal(t, 2, second.Statistics.TotalProperties)
	assert.Equal(t, domain.PriceRange{Min: 600_000_000, Max: 1_000_000_000}, second.Statistics.PriceRange)
	assert.Equal(t, 800_000_000.0, second.Statistics.AveragePrice)
	assert.Equal(t, 1, second.Statistics.TransactionTypes[domain.TransactionLease])
	assert.Equal(t, 0, second.Statistics.TransactionTypes[domain.TransactionRent])

	rec = s.do(t, http.MethodPut, fmt.Sprintf("%s/%d", propertiesPath, first.Property.ID), gin.H{
		"complex_name": "래미안", "transaction_type": "sale", "price": 1_200_000_000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[propertyResponse](t, rec)
	assert.Equal(t, int64(1_200_000_000), updated.Statistics.PriceRange.Max)

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", propertiesPath, first.Property.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	removed := decode[propertyResponse](t, rec)
	assert.Equal(t, 1, removed.Statistics.TotalProperties)
	assert.Equal(t, 0, removed.Statistics.TransactionTypes[domain.TransactionSale])

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", propertiesPath, first.Property.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/sheets/%d", sheet.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[sheetResponse](t, rec)
	assert.Len(t, got.Properties, 1)
	assert.Equal(t, 1, got.Sheet.Statistics.TotalProperties)

	rec = s.do(t, http.MethodPost, "/api/sheets/999/properties", gin.H{"complex_name": "x", "transaction_type": "sale"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationReadAndArchive(t *testing.T) {
	s := newTestServer(t)
	userID := s.registerUser(t)

	now := time.Now().UTC()
	expires := now.Add(time.Hour)
	id := uuid.NewString()
	require.NoError(t, s.notifications.Create(context.Background(), domain.Notification{
		ID:        id,
		UserID:    userID,
		Type:      domain.NotificationPriceAlert,
		Priority:  domain.PriorityHigh,
		Status:    domain.StatusUnread,
		Title:     "가격 알림",
		Message:   "목표가 도달",
		Channels:  domain.NotificationChannels{InApp: domain.ChannelDelivery{Enabled: true, Sent: true, SentAt: &now}},
		ExpiresAt: &expires,
		CreatedAt: now,
		UpdatedAt: now,
	}))

	base := fmt.Sprintf("/api/users/%d/notifications", userID)
	rec := s.do(t, http.MethodGet, base+"?status=unread", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[domain.NotificationPage](t, rec)
	require.Len(t, page.Notifications, 1)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("%s/%s/read", base, id), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	read := decode[domain.Notification](t, rec)
	assert.Equal(t, domain.StatusRead, read.Status)
	assert.True(t, read.Channels.InApp.Engaged)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("%s/%s/archive", base, id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.Notification](t, rec).IsArchived)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("%s/%s/read", base, id), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("%s/%s/read", base, uuid.NewString()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, base+"?page_token=garbage", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, base+"?status=deleted", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/notifications/%s/channels/fax/sent", id), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)
	userID := s.registerUser(t)
	path := fmt.Sprintf("/api/users/%d/settings", userID)

	rec := s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.DefaultNotificationSetting(userID), decode[domain.NotificationSetting](t, rec))

	rec = s.do(t, http.MethodPut, path, gin.H{
		"push_enabled":    true,
		"price_alert":     gin.H{"enabled": true, "push": true, "frequency": "daily"},
		"new_transaction": gin.H{"enabled": false, "frequency": "weekly"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, path, nil)
	got := decode[domain.NotificationSetting](t, rec)
	assert.True(t, got.PushEnabled)
	assert.Equal(t, domain.FrequencyDaily, got.PriceAlert.Frequency)
	assert.False(t, got.NewTransaction.Enabled)

	rec = s.do(t, http.MethodPut, path, gin.H{
		"price_alert":     gin.H{"frequency": "hourly"},
		"new_transaction": gin.H{"frequency": "daily"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitTransactions(t *testing.T) {
	s := newTestServer(t)
	tx := gin.H{
		"id": "t1", "complex_id": 11680, "region_code": "11680", "exclusive_area": 84.9,
		"transaction_type": "sale", "price": 1_000_000_000, "transaction_date": "2026-10-01T00:00:00Z",
	}

	rec := s.do(t, http.MethodPost, "/api/transactions", gin.H{"transactions": []gin.H{tx}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, s.submitter.submitted, 1)
	assert.Equal(t, "11680", s.submitter.submitted[0].RegionCode)

	bad := gin.H{"id": "t2", "complex_id": 1, "transaction_type": "sale", "price": 1, "transaction_date": "2026-10-01T00:00:00Z"}
	rec = s.do(t, http.MethodPost, "/api/transactions", gin.H{"transactions": []gin.H{tx, bad}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, s.submitter.submitted, 1)

	s.submitter.accept = 2
	rec = s.do(t, http.MethodPost, "/api/transactions", gin.H{"transactions": []gin.H{tx, tx}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, float64(1), decode[map[string]any](t, rec)["accepted"])
}

func TestPutSnapshotIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	snapshot := gin.H{
		"complex_id": 11680, "area_bucket": 85, "snapshot_date": "2026-10-01T15:30:00Z",
		"avg_sale_price": 1_000_000_000, "avg_lease_price": 600_000_000, "transaction_count": 4,
	}

	rec := s.do(t, http.MethodPost, "/api/snapshots", snapshot)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/snapshots", snapshot)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/snapshots", gin.H{"area_bucket": 85})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
