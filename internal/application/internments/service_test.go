package internments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saludplena/claims-engine/internal/domain/calendar"
	"github.com/saludplena/claims-engine/internal/domain/internment"
	"github.com/saludplena/claims-engine/internal/domain/notification"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/pkg/errors"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────

type memInternmentRepo struct {
	items map[string]*internment.Internment
}

func newMemInternmentRepo() *memInternmentRepo {
	return &memInternmentRepo{items: map[string]*internment.Internment{}}
}

func (m *memInternmentRepo) Create(_ context.Context, in *internment.Internment) error {
	m.items[in.ID] = in
	return nil
}

func (m *memInternmentRepo) GetByID(_ context.Context, id string) (*internment.Internment, error) {
	in, ok := m.items[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeInternmentNotFound, "internment not found")
	}
	return in, nil
}

func (m *memInternmentRepo) ListByProvider(_ context.Context, providerID string, limit, offset int) ([]*internment.Internment, error) {
	var out []*internment.Internment
	for _, in := range m.items {
		if in.ProviderID == providerID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *memInternmentRepo) Mutate(ctx context.Context, id string, fn internment.MutateFunc) (*internment.Internment, error) {
	in, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(in); err != nil {
		return nil, err
	}
	return in, nil
}

func (m *memInternmentRepo) ListInactivationCandidates(_ context.Context, cutoff time.Time, limit int) ([]*internment.Internment, error) {
	return nil, nil
}

func (m *memInternmentRepo) ListFinalizationCandidates(_ context.Context, cutoff time.Time, limit int) ([]*internment.Internment, error) {
	return nil, nil
}

type memNotificationRepo struct {
	created []*notification.Notification
}

func (m *memNotificationRepo) CreateDeduplicated(_ context.Context, n *notification.Notification) (bool, error) {
	for _, existing := range m.created {
		if !existing.IsRead && existing.DedupTarget() == n.DedupTarget() && existing.Kind == n.Kind {
			return false, nil
		}
	}
	m.created = append(m.created, n)
	return true, nil
}

func (m *memNotificationRepo) GetByID(_ context.Context, id string) (*notification.Notification, error) {
	for _, n := range m.created {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
}

func (m *memNotificationRepo) ListUnreadByProvider(_ context.Context, providerID string, limit, offset int) ([]*notification.Notification, error) {
	var out []*notification.Notification
	for _, n := range m.created {
		if n.ProviderID == providerID && !n.IsRead {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotificationRepo) MarkRead(_ context.Context, id string) error {
	for _, n := range m.created {
		if n.ID == id {
			n.MarkRead()
			return nil
		}
	}
	return errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
}

type capturingPublisher struct {
	topics []string
	fail   bool
}

func (p *capturingPublisher) Publish(_ context.Context, msg *common.ProducerMessage) error {
	if p.fail {
		return assert.AnError
	}
	p.topics = append(p.topics, msg.Topic)
	return nil
}

// ─────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────

func noHolidayCalculator(t *testing.T) *calendar.Calculator {
	t.Helper()
	src := calendar.HolidaySourceFunc(func(context.Context, int) (calendar.DateSet, error) {
		return calendar.DateSet{}, nil
	})
	calc, err := calendar.NewCalculator(src, true)
	require.NoError(t, err)
	return calc
}

type fixture struct {
	svc           *Service
	repo          *memInternmentRepo
	notifications *memNotificationRepo
	publisher     *capturingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemInternmentRepo()
	notifications := &memNotificationRepo{}
	publisher := &capturingPublisher{}
	svc, err := NewService(repo, notifications, noHolidayCalculator(t), publisher, nil, logging.NewNopLogger())
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, notifications: notifications, publisher: publisher}
}

func (f *fixture) report(t *testing.T) *internment.Internment {
	t.Helper()
	in, err := f.svc.Report(context.Background(), ReportInput{
		ProviderID:    "prov-1",
		PatientID:     "pat-1",
		DiagnosisCode: "J18.9",
		AdmissionAt:   time.Now().UTC().Add(-2 * time.Hour),
	})
	require.NoError(t, err)
	return in
}

// ─────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────

func TestNewService_RequiresRepoAndCalendar(t *testing.T) {
	_, err := NewService(nil, nil, noHolidayCalculator(t), nil, nil, nil)
	assert.Error(t, err)

	_, err = NewService(newMemInternmentRepo(), nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestReport_CreatesIniciadaAndPublishes(t *testing.T) {
	f := newFixture(t)

	in := f.report(t)

	assert.Equal(t, internment.StatusIniciada, in.Status)
	assert.Len(t, in.Events, 1)
	require.Len(t, f.publisher.topics, 1)
	assert.Equal(t, "internment.reported", f.publisher.topics[0])
}

func TestReport_ValidationError(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Report(context.Background(), ReportInput{PatientID: "pat-1"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestReport_PublishFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture(t)
	f.publisher.fail = true

	in := f.report(t)
	assert.Equal(t, internment.StatusIniciada, in.Status)
}

func TestRequestExtension_ActivatesOnFirstRequest(t *testing.T) {
	f := newFixture(t)
	in := f.report(t)

	got, err := f.svc.RequestExtension(context.Background(), in.ID, ExtensionInput{
		RequestedDays: 3,
		Justification: "continued treatment",
	})
	require.NoError(t, err)

	assert.Equal(t, internment.StatusActiva, got.Status)
	require.Len(t, got.Extensions, 1)
	assert.Equal(t, internment.ExtensionPendienteAuditoria, got.Extensions[0].Status)
	assert.Contains(t, f.publisher.topics, "internment.extension_requested")
}

func TestRequestExtension_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RequestExtension(context.Background(), "missing", ExtensionInput{RequestedDays: 3})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInternmentNotFound))
}

func TestFinalize_OwnerClosesActiva(t *testing.T) {
	f := newFixture(t)
	in := f.report(t)
	_, err := f.svc.RequestExtension(context.Background(), in.ID, ExtensionInput{RequestedDays: 2})
	require.NoError(t, err)

	got, err := f.svc.Finalize(context.Background(), in.ID, FinalizeInput{
		ProviderID:   "prov-1",
		EgressDate:   time.Now().UTC(),
		EgressReason: "alta médica",
	})
	require.NoError(t, err)

	assert.Equal(t, internment.StatusFinalizada, got.Status)
	require.NotNil(t, got.EgressDate)
	assert.Contains(t, f.publisher.topics, "internment.finalized")
}

func TestFinalize_WrongProviderForbidden(t *testing.T) {
	f := newFixture(t)
	in := f.report(t)
	_, err := f.svc.RequestExtension(context.Background(), in.ID, ExtensionInput{RequestedDays: 2})
	require.NoError(t, err)

	_, err = f.svc.Finalize(context.Background(), in.ID, FinalizeInput{
		ProviderID:   "prov-2",
		EgressDate:   time.Now().UTC(),
		EgressReason: "alta médica",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestFinalize_WrongStateForbidden(t *testing.T) {
	f := newFixture(t)
	in := f.report(t) // still INICIADA

	_, err := f.svc.Finalize(context.Background(), in.ID, FinalizeInput{
		ProviderID:   "prov-1",
		EgressDate:   time.Now().UTC(),
		EgressReason: "alta médica",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeForbidden))
}

func TestSendToAudit_CreatesAuditRequest(t *testing.T) {
	f := newFixture(t)
	in := f.report(t)

	got, err := f.svc.SendToAudit(context.Background(), in.ID, "operator-7", "documentation mismatch")
	require.NoError(t, err)

	assert.Equal(t, internment.StatusEnAuditoria, got.Status)
	require.NotNil(t, got.AuditRequest)
	assert.Equal(t, "operator-7", got.AuditRequest.RequestedBy)
}

func TestSendToAudit_WrongStateConflicts(t *testing.T) {
	f := newFixture(t)
	in := f.report(t)
	_, err := f.svc.RequestExtension(context.Background(), in.ID, ExtensionInput{RequestedDays: 2})
	require.NoError(t, err)

	_, err = f.svc.SendToAudit(context.Background(), in.ID, "operator-7", "late")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidTransition))
}

func TestObserve_FlipsStatus(t *testing.T) {
	f := newFixture(t)
	in := f.report(t)

	got, err := f.svc.Observe(context.Background(), in.ID, "operator-7", "pending paperwork")
	require.NoError(t, err)
	assert.Equal(t, internment.StatusObservada, got.Status)
}

func TestResolveExtension_NotifiesProvider(t *testing.T) {
	f := newFixture(t)
	in := f.report(t)
	got, err := f.svc.RequestExtension(context.Background(), in.ID, ExtensionInput{RequestedDays: 3})
	require.NoError(t, err)
	extID := got.Extensions[0].ID

	resolved, err := f.svc.ResolveExtension(context.Background(), in.ID, extID, ResolveExtensionInput{
		AuditorID: "auditor-1",
		Approved:  true,
		Comment:   "clinically justified",
	})
	require.NoError(t, err)

	assert.Equal(t, internment.ExtensionAceptada, resolved.Extensions[0].Status)
	require.Len(t, f.notifications.created, 1)
	assert.Equal(t, notification.KindExtensionResolved, f.notifications.created[0].Kind)
	assert.Equal(t, "prov-1", f.notifications.created[0].ProviderID)
}

func TestResolveExtension_AlreadyResolvedConflicts(t *testing.T) {
	f := newFixture(t)
	in := f.report(t)
	got, err := f.svc.RequestExtension(context.Background(), in.ID, ExtensionInput{RequestedDays: 3})
	require.NoError(t, err)
	extID := got.Extensions[0].ID

	_, err = f.svc.ResolveExtension(context.Background(), in.ID, extID, ResolveExtensionInput{
		AuditorID: "auditor-1", Approved: false, Comment: "insufficient evidence",
	})
	require.NoError(t, err)

	_, err = f.svc.ResolveExtension(context.Background(), in.ID, extID, ResolveExtensionInput{
		AuditorID: "auditor-2", Approved: true,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExtensionNotPending))
}

func TestGet_IncludesElapsedBusinessTime(t *testing.T) {
	f := newFixture(t)
	// Admitted Friday at midnight, queried Monday noon: the weekend
	// contributes nothing, so 36 business hours have elapsed, but both the
	// Friday and the Monday count as business days.
	admission := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	}
	in, err := internment.NewInternment("prov-1", "pat-1", "J18.9", admission)
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(context.Background(), in))

	detail, err := f.svc.Get(context.Background(), in.ID)
	require.NoError(t, err)

	assert.Equal(t, 36, detail.ElapsedBusinessHours)
	assert.Equal(t, 2, detail.ElapsedBusinessDays)
}

func TestListByProvider_ValidatesPagination(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListByProvider(context.Background(), "prov-1", common.Pagination{Page: 0, PageSize: 50})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, err = f.svc.ListByProvider(context.Background(), "", common.Pagination{Page: 1, PageSize: 50})
	assert.Error(t, err)
}
