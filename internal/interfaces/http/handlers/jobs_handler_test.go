package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/domain/internment"
	"github.com/saludplena/claims-engine/internal/domain/medication"
)

func TestJobs_RequireSecret(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/jobs/internments/inactivate", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/jobs/internments/inactivate", "Bearer wrong-secret", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJobs_Inactivate_EmptyRun(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/jobs/internments/inactivate", "Bearer "+jobSecret, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary struct {
		Inactivated int `json:"inactivated"`
		Notified    int `json:"notified"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Zero(t, summary.Inactivated)
	assert.Zero(t, summary.Notified)
}

func TestJobs_Inactivate_RetiresStaleInternment(t *testing.T) {
	e := newEnv(t)

	// Admitted far enough back that any business-hour counting method
	// exceeds the 48 hour threshold.
	in, err := internment.NewInternment("prov-1", "pat-1", "J18.9",
		time.Now().UTC().Add(-21*24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, e.internments.Create(context.Background(), in))

	rec := e.do(t, http.MethodPost, "/jobs/internments/inactivate", "Bearer "+jobSecret, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary struct {
		Inactivated int `json:"inactivated"`
		Notified    int `json:"notified"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Inactivated)
	assert.Equal(t, 1, summary.Notified)

	stored, err := e.internments.GetByID(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, internment.StatusInactiva, stored.Status)
}

func TestJobs_ExpireQuotations(t *testing.T) {
	e := newEnv(t)

	items := []medication.ItemInput{{DrugName: "Rituximab 500mg", Quantity: 1}}
	req, err := medication.NewRequest("pat-1", "user-1", 3, 48, items)
	require.NoError(t, err)
	deadline := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, req.SendToQuotation([]string{"ph-1", "ph-2", "ph-3"}, deadline))
	require.NoError(t, e.medications.Create(context.Background(), req))

	rec := e.do(t, http.MethodPost, "/jobs/medications/expire-quotations", "Bearer "+jobSecret, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary struct {
		Expired  int `json:"expired"`
		Closed   int `json:"closed"`
		Notified int `json:"notified"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.Expired)
	assert.Zero(t, summary.Closed)
	assert.Equal(t, 1, summary.Notified)
}

func TestJobs_Finalize_EmptyRun(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/jobs/internments/finalize", "Bearer "+jobSecret, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary struct {
		Finalized int `json:"finalized"`
		Notified  int `json:"notified"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Zero(t, summary.Finalized)
}
