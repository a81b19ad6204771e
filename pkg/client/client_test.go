package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "test-token",
		WithRetryWait(time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)
	return c, srv
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}, p *Pagination) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"data":       data,
		"pagination": p,
		"request_id": "req-1",
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("", "tok")
	require.Error(t, err)

	_, err = NewClient("ftp://example.com", "tok")
	require.Error(t, err)

	c, err := NewClient("http://example.com/", "tok")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", c.baseURL)
}

func TestClient_SendsAuthAndRequestHeaders(t *testing.T) {
	var gotAuth, gotRequestID, gotAgent string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotAgent = r.Header.Get("User-Agent")
		writeEnvelope(w, http.StatusOK, &Internment{ID: "int-1"}, nil)
	}))

	_, err := c.Internments().Get(context.Background(), "int-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Contains(t, gotAgent, "claims-go-sdk/")
}

func TestClient_UnwrapsEnvelope(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/internments/int-1", r.URL.Path)
		writeEnvelope(w, http.StatusOK, &Internment{
			ID:                   "int-1",
			Status:               "ACTIVA",
			ElapsedBusinessHours: 30,
		}, nil)
	}))

	in, err := c.Internments().Get(context.Background(), "int-1")
	require.NoError(t, err)
	assert.Equal(t, "ACTIVA", in.Status)
	assert.Equal(t, 30, in.ElapsedBusinessHours)
}

func TestClient_APIErrorMapping(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "INT_001", "internment not found")
	}))

	_, err := c.Internments().Get(context.Background(), "missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "INT_001", apiErr.Code)
	assert.Equal(t, "internment not found", apiErr.Message)
	assert.True(t, apiErr.IsNotFound())
	assert.False(t, apiErr.IsServerError())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeError(w, http.StatusInternalServerError, "COMMON_001", "boom")
			return
		}
		writeEnvelope(w, http.StatusOK, &Internment{ID: "int-1"}, nil)
	}))

	in, err := c.Internments().Get(context.Background(), "int-1")
	require.NoError(t, err)
	assert.Equal(t, "int-1", in.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusBadRequest, "COMMON_002", "bad input")
	}))

	_, err := c.Internments().Report(context.Background(), ReportInternmentRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeError(w, http.StatusServiceUnavailable, "COMMON_001", "down")
	}))

	_, err := c.Internments().Get(context.Background(), "int-1")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.True(t, apiErr.IsServerError())
	// initial attempt plus retryMax retries
	assert.Equal(t, int32(4), calls.Load())
}

func TestInternments_ListParsesPagination(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))
		writeEnvelope(w, http.StatusOK,
			[]*Internment{{ID: "a"}, {ID: "b"}},
			&Pagination{Page: 2, PageSize: 10, Total: 12})
	}))

	items, p, err := c.Internments().List(context.Background(), ListInternmentsOptions{Page: 2, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.NotNil(t, p)
	assert.Equal(t, int64(12), p.Total)
}

func TestMedications_PublicQuotationFlow(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/public/quotations/tok-123", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			writeEnvelope(w, http.StatusOK, &PublicQuotation{Token: "tok-123", Status: "PENDIENTE"}, nil)
		case http.MethodPost:
			var sub QuotationSubmission
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
			writeEnvelope(w, http.StatusOK, &PublicQuotation{
				Token:      "tok-123",
				Status:     "COTIZADA",
				UnitPrice:  sub.UnitPrice,
				TotalPrice: sub.TotalPrice,
			}, nil)
		}
	}))

	view, err := c.Medications().GetQuotation(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "PENDIENTE", view.Status)

	view, err = c.Medications().SubmitQuotation(context.Background(), "tok-123", QuotationSubmission{
		UnitPrice:  150.5,
		TotalPrice: 301.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "COTIZADA", view.Status)
	assert.Equal(t, 150.5, view.UnitPrice)
}

func TestNotifications_MarkRead(t *testing.T) {
	var path string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"id": "n-1", "is_read": true}, nil)
	}))

	require.NoError(t, c.Notifications().MarkRead(context.Background(), "n-1"))
	assert.Equal(t, "/api/v1/notifications/n-1/read", path)
}
