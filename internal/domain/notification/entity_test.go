package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/pkg/errors"
)

func TestNew(t *testing.T) {
	t.Parallel()

	n, err := New("prov-001", KindInternmentNearingDeadline, "deadline approaching")
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.IsRead)
	assert.Nil(t, n.ReadAt)
	assert.Equal(t, "prov-001", n.DedupTarget())
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		providerID string
		kind       Kind
		message    string
	}{
		{"empty provider", "", KindInternmentNearingDeadline, "msg"},
		{"empty kind", "prov-001", "", "msg"},
		{"empty message", "prov-001", KindInternmentNearingDeadline, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.providerID, tt.kind, tt.message)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeValidation, errors.GetCode(err))
		})
	}
}

func TestForInternment(t *testing.T) {
	t.Parallel()

	n, err := ForInternment("prov-001", "int-042", KindInternmentNearingDeadline, "deadline approaching")
	require.NoError(t, err)
	assert.Equal(t, "int-042", n.InternmentID)
	assert.Equal(t, "int-042", n.DedupTarget())

	_, err = ForInternment("prov-001", "", KindInternmentNearingDeadline, "deadline approaching")
	require.Error(t, err)
}

func TestForRequest(t *testing.T) {
	t.Parallel()

	n, err := ForRequest("prov-001", "med-007", KindQuotationRoundExpired, "round expired")
	require.NoError(t, err)
	assert.Equal(t, "med-007", n.RequestID)
	assert.Equal(t, "med-007", n.DedupTarget())
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	n, err := New("prov-001", KindInternmentInactivated, "inactivated")
	require.NoError(t, err)

	n.MarkRead()
	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)

	first := *n.ReadAt
	n.MarkRead()
	assert.Equal(t, first, *n.ReadAt, "second MarkRead is a no-op")
}
