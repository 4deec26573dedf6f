package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wisefido-therapy/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *ACTClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewACTClient(server.URL, "test-token", 5*time.Second, zap.NewNop())
}

func TestFetchDay_NormalizesTreeAndSequenceAliases(t *testing.T) {
	wave := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})
	body := fmt.Sprintf(`{
	  "date": "2025-04-01",
	  "totalSessions": 1, "totalSets": 1, "totalExhales": 2,
	  "treatmentSessions": [{
	    "uid": "sess-1", "prescriptionId": "p-1",
	    "startTime": 1000, "endTime": 9000, "duration": 8000,
	    "treatmentSets": [{
	      "uid": "set-1", "startTime": 1000, "endTime": 9000, "duration": 8000,
	      "totalExhales": 2,
	      "exhales": [
	        {"uid": "e1", "sequenceNumber": 1, "startTime": 1000, "endTime": 2000, "duration": 1000, "values": %q},
	        {"uid": "e2", "sequenceNumber": 3, "startTime": 3000, "endTime": 4000, "duration": 1000, "values": %q}
	      ],
	      "exhaleGaps": [
	        {"uid": "g1", "sequenceNum": 2, "startTime": 2000, "endTime": 3000, "duration": 1000}
	      ]
	    }]
	  }]
	}`, wave, wave)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/act/api/v1/users/u1/days/2025-04-01", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})

	day, err := c.FetchDay(context.Background(), "u1", "2025-04-01")
	require.NoError(t, err)
	require.Equal(t, "2025-04-01", day.Date)
	require.Len(t, day.Sessions, 1)
	require.Equal(t, "p-1", day.Sessions[0].PrescriptionID)

	events := day.Sessions[0].Sets[0].Events
	require.Len(t, events, 3)

	byID := map[string]models.BreathEvent{}
	for _, ev := range events {
		byID[ev.EventID] = ev
	}
	// gap's sequenceNum lands in the same normalized field as exhale's sequenceNumber
	require.Equal(t, 1, byID["e1"].Sequence)
	require.Equal(t, 2, byID["g1"].Sequence)
	require.Equal(t, 3, byID["e2"].Sequence)
	require.Equal(t, models.EventGap, byID["g1"].Kind)
	require.Equal(t, models.EventExhale, byID["e1"].Kind)

	// context fields attached during normalization
	require.Equal(t, "u1", byID["e1"].UserID)
	require.Equal(t, "sess-1", byID["g1"].SessionID)
	require.Equal(t, "set-1", byID["e2"].SetID)

	// base64 waveform decoded into raw bytes
	require.Equal(t, []byte{1, 2, 3, 4}, byID["e1"].Waveform)
	require.Empty(t, byID["g1"].Waveform)
}

func TestFetchPrescription_MapsVendorFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/act/api/v1/prescriptions/p-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
		  "uid": "p-1", "username": "alice",
		  "amountOfSets": 3, "setsPerACTSession": 2, "exhalesPerSet": 10,
		  "exhaleDuration": 2.5, "exhaleTargetPressure": 18, "exhaleTargetRange": 4
		}`))
	})

	p, err := c.FetchPrescription(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, "p-1", p.PrescriptionID)
	require.Equal(t, "alice", p.Username)
	require.Equal(t, 3, p.SessionsPerDay)
	require.Equal(t, 2, p.SetsPerSession)
	require.Equal(t, 10, p.BreathsPerSet)
	require.InDelta(t, 18.0, p.PressureTarget, 1e-9)
}

func TestGet_ReauthSignalPropagates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.FetchUser(context.Background(), "u1")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrReauthRequired))
}

func TestGet_ServerErrorIsNotReauth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.FetchDay(context.Background(), "u1", "2025-04-01")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrReauthRequired))
}
