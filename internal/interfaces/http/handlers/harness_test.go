package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/application/escalation"
	"github.com/saludplena/claims-engine/internal/application/internments"
	"github.com/saludplena/claims-engine/internal/application/medications"
	"github.com/saludplena/claims-engine/internal/domain/calendar"
	"github.com/saludplena/claims-engine/internal/infrastructure/auth/token"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/redis"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	apihttp "github.com/saludplena/claims-engine/internal/interfaces/http"
	"github.com/saludplena/claims-engine/internal/interfaces/http/handlers"
	"github.com/saludplena/claims-engine/internal/testutil"
)

const jobSecret = "test-job-secret"

// env bundles the in-memory backend a handler test talks to.
type env struct {
	router        http.Handler
	codec         *token.Codec
	internments   *testutil.MemInternmentRepo
	medications   *testutil.MemMedicationRepo
	notifications *testutil.MemNotificationRepo
}

// newEnv wires the full route tree against in-memory repositories, a
// weekend-only business calendar and a miniredis-backed lock factory.
func newEnv(t *testing.T) *env {
	t.Helper()

	internmentRepo := testutil.NewMemInternmentRepo()
	medicationRepo := testutil.NewMemMedicationRepo()
	notificationRepo := testutil.NewMemNotificationRepo()

	calc, err := calendar.NewCalculator(calendar.HolidaySourceFunc(
		func(ctx context.Context, year int) (calendar.DateSet, error) {
			return calendar.NewDateSet()
		}), true)
	require.NoError(t, err)

	internmentSvc, err := internments.NewService(internmentRepo, notificationRepo, calc, nil, nil, nil)
	require.NoError(t, err)

	medicationSvc, err := medications.NewService(medicationRepo, notificationRepo, calc, nil, nil, nil,
		medications.Config{PharmacyQuorum: 3, DeadlineBusinessHours: 48})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisClient, err := redis.NewClient(&redis.Config{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })
	locks := redis.NewLockFactory(redisClient, logging.NewNopLogger())

	escalationSvc, err := escalation.NewService(internmentRepo, medicationRepo, notificationRepo,
		calc, locks, nil, nil, nil,
		escalation.Config{InactivityThresholdHours: 48, PreDeadlineWindowHours: 24})
	require.NoError(t, err)

	codec, err := token.NewCodec("handler-test-secret", time.Hour)
	require.NoError(t, err)

	internmentHandler, err := handlers.NewInternmentHandler(internmentSvc)
	require.NoError(t, err)
	medicationHandler, err := handlers.NewMedicationHandler(medicationSvc)
	require.NoError(t, err)
	notificationHandler, err := handlers.NewNotificationHandler(notificationRepo)
	require.NoError(t, err)
	publicHandler, err := handlers.NewPublicQuotationHandler(medicationSvc)
	require.NoError(t, err)
	jobsHandler, err := handlers.NewJobsHandler(escalationSvc)
	require.NoError(t, err)

	healthHandler := handlers.NewHealthHandler("test", map[string]handlers.Pinger{
		"redis": handlers.PingFunc(redisClient.Ping),
	})

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Internments:      internmentHandler,
		Medications:      medicationHandler,
		Notifications:    notificationHandler,
		Public:           publicHandler,
		Jobs:             jobsHandler,
		Health:           healthHandler,
		TokenVerifier:    codec,
		JobTriggerSecret: jobSecret,
		Mode:             "test",
	})

	return &env{
		router:        router,
		codec:         codec,
		internments:   internmentRepo,
		medications:   medicationRepo,
		notifications: notificationRepo,
	}
}

// bearer issues a signed token for the given identity.
func (e *env) bearer(t *testing.T, userID, providerID string, role token.Role) string {
	t.Helper()
	raw, err := e.codec.Issue(userID, providerID, role)
	require.NoError(t, err)
	return "Bearer " + raw
}

// do performs a request against the in-process router.
func (e *env) do(t *testing.T, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
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
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decodeData unmarshals the "data" part of the success envelope into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected a success envelope, got %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

// errorCode extracts the error code from the error envelope.
func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}
