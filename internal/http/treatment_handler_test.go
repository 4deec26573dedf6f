package httpapi

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wisefido-therapy/internal/client"
	"wisefido-therapy/internal/models"
	"wisefido-therapy/internal/service"
	"wisefido-therapy/internal/store"

	"go.uber.org/zap"
)

type fakeFetcher struct {
	user    *models.Participant
	userErr error
	day     *models.TreatmentDay
	dayErr  error
	presc   *models.Prescription
}

func (f *fakeFetcher) FetchUser(ctx context.Context, userID string) (*models.Participant, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	if f.user == nil {
		return nil, errors.New("no user")
	}
	return f.user, nil
}

func (f *fakeFetcher) FetchDay(ctx context.Context, userID, date string) (*models.TreatmentDay, error) {
	if f.dayErr != nil {
		return nil, f.dayErr
	}
	if f.day == nil {
		return &models.TreatmentDay{Date: date}, nil
	}
	return f.day, nil
}

func (f *fakeFetcher) FetchSession(ctx context.Context, sessionID string) (*models.TreatmentSession, error) {
	return nil, errors.New("session not found")
}

func (f *fakeFetcher) FetchSet(ctx context.Context, setID string) (*models.TreatmentSet, error) {
	return nil, errors.New("set not found")
}

func (f *fakeFetcher) FetchPrescription(ctx context.Context, prescriptionID string) (*models.Prescription, error) {
	if f.presc == nil {
		return nil, errors.New("prescription not found")
	}
	return f.presc, nil
}

func newTestRouter(f *fakeFetcher) *Router {
	logger := zap.NewNop()
	svc := service.NewTreatmentService(f, store.NewMemoryKV(), logger, 2, time.Minute)
	router := NewRouter(logger)
	router.RegisterTreatmentRoutes(NewTreatmentHandler(svc, logger))
	return router
}

func floatBuf(values ...float32) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func testDay() *models.TreatmentDay {
	return &models.TreatmentDay{
		Date:          "2025-04-01",
		TotalSessions: 2,
		TotalSets:     3,
		TotalExhales:  25,
		Sessions: []models.TreatmentSession{
			{
				SessionID: "sess-1", PrescriptionID: "p1", StartTime: 1000,
				Sets: []models.TreatmentSet{
					{
						SetID: "set-1", SessionID: "sess-1", StartTime: 1000,
						Events: []models.BreathEvent{
							{EventID: "e1", Kind: models.EventExhale, Sequence: 1, StartTime: 1000, EndTime: 2000, DurationMs: 1000, Waveform: floatBuf(12, 14)},
						},
					},
				},
			},
		},
	}
}

func TestGetTimeline_WrapsResult(t *testing.T) {
	router := newTestRouter(&fakeFetcher{day: testDay()})

	req := httptest.NewRequest(http.MethodGet, "/therapy/api/v1/treatment/timeline?user_id=u1&date=2025-04-01&scope=day", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}
	body := w.Body.String()
	if !strings.Contains(body, `"code":2000`) {
		t.Fatalf("expected wrapper code=2000, got: %s", body)
	}
	if !strings.Contains(body, `"time_sec"`) || !strings.Contains(body, `"value"`) {
		t.Fatalf("expected pressure samples, got: %s", body)
	}
}

func TestGetTimeline_FetchFailureLooksLikeNoData(t *testing.T) {
	router := newTestRouter(&fakeFetcher{dayErr: errors.New("upstream 503")})

	req := httptest.NewRequest(http.MethodGet, "/therapy/api/v1/treatment/timeline?user_id=u1&date=2025-04-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// fetch failure and no-data both yield the same empty shape
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"result":[]`) {
		t.Fatalf("expected empty timeline, got: %s", w.Body.String())
	}
}

func TestGetTimeline_ReauthMapsToTokenExpired(t *testing.T) {
	router := newTestRouter(&fakeFetcher{dayErr: client.ErrReauthRequired})

	req := httptest.NewRequest(http.MethodGet, "/therapy/api/v1/treatment/timeline?user_id=u1&date=2025-04-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":60401`) {
		t.Fatalf("expected code=60401, got: %s", w.Body.String())
	}
}

func TestGetTimeline_ParamValidation(t *testing.T) {
	router := newTestRouter(&fakeFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/therapy/api/v1/treatment/timeline?user_id=u1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing date, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/therapy/api/v1/treatment/timeline?user_id=u1&date=2025-04-01&scope=week", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown scope, got %d", w.Code)
	}
}

func TestGetCompliance_TargetsFromPrescription(t *testing.T) {
	f := &fakeFetcher{
		user:  &models.Participant{Username: "alice"},
		day:   testDay(),
		presc: &models.Prescription{PrescriptionID: "p1", SessionsPerDay: 3, SetsPerSession: 2, BreathsPerSet: 10},
	}
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/therapy/api/v1/compliance?user_id=u1&from=2025-04-01&to=2025-04-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"targets":{"sessions":3,"sets":6,"breaths":60}`) {
		t.Fatalf("expected targets 3/6/60, got: %s", body)
	}
	if !strings.Contains(body, `"actual":{"sessions":2,"sets":3,"breaths":25}`) {
		t.Fatalf("expected actual 2/3/25, got: %s", body)
	}
}

func TestExportCompliance_ReturnsWorkbook(t *testing.T) {
	f := &fakeFetcher{
		user:  &models.Participant{Username: "alice"},
		day:   testDay(),
		presc: &models.Prescription{PrescriptionID: "p1", SessionsPerDay: 3, SetsPerSession: 2, BreathsPerSet: 10},
	}
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/therapy/api/v1/compliance/export?user_id=u1&from=2025-04-01&to=2025-04-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("expected xlsx content type, got %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Fatalf("expected non-empty workbook")
	}
}

func TestGetParticipant_FallbackShape(t *testing.T) {
	router := newTestRouter(&fakeFetcher{userErr: errors.New("network down")})

	req := httptest.NewRequest(http.MethodGet, "/therapy/api/v1/participant?user_id=u1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"username":"NaN"`) || !strings.Contains(body, `"trial_stage":"NaN"`) {
		t.Fatalf("expected NaN fallback participant, got: %s", body)
	}
}

func TestRouter_MethodGuard(t *testing.T) {
	router := newTestRouter(&fakeFetcher{})

	req := httptest.NewRequest(http.MethodPost, "/therapy/api/v1/treatment/timeline", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}
