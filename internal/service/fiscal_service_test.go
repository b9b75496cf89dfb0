package service

import (
	"context"
	"testing"
	"time"

	"fiscalis/internal/fiscal"
	"fiscalis/internal/igs"
	"fiscalis/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- In-memory fakes ---

type fakeClientRepo struct {
	clients map[uuid.UUID]*model.Client
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: make(map[uuid.UUID]*model.Client)}
}

func (r *fakeClientRepo) Create(_ context.Context, c *model.Client) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.clients[c.ID] = c
	return nil
}

func (r *fakeClientRepo) Update(_ context.Context, c *model.Client) error {
	r.clients[c.ID] = c
	return nil
}

func (r *fakeClientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.clients, id)
	return nil
}

func (r *fakeClientRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeClientRepo) FindByNIU(_ context.Context, niu string) (*model.Client, error) {
	for _, c := range r.clients {
		if c.NIU == niu {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeClientRepo) List(_ context.Context, _, _ string, _, _ int) ([]model.Client, int64, error) {
	out := make([]model.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeClientRepo) CountActive(_ context.Context) (int64, error) {
	return int64(len(r.clients)), nil
}

type fakeFiscalRepo struct {
	profiles map[uuid.UUID]*model.ClientFiscalProfile
	getCalls int
}

func newFakeFiscalRepo() *fakeFiscalRepo {
	return &fakeFiscalRepo{profiles: make(map[uuid.UUID]*model.ClientFiscalProfile)}
}

func (r *fakeFiscalRepo) Get(_ context.Context, clientID uuid.UUID) (*model.ClientFiscalProfile, error) {
	r.getCalls++
	p, ok := r.profiles[clientID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeFiscalRepo) Save(_ context.Context, clientID uuid.UUID, data string) error {
	r.profiles[clientID] = &model.ClientFiscalProfile{ClientID: clientID, Data: data}
	return nil
}

func (r *fakeFiscalRepo) ListAll(_ context.Context) ([]model.ClientFiscalProfile, error) {
	out := make([]model.ClientFiscalProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, *p)
	}
	return out, nil
}

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, e *model.AuditLog) error {
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, _, _ int) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc        FiscalService
	clientRepo *fakeClientRepo
	fiscalRepo *fakeFiscalRepo
	auditRepo  *fakeAuditRepo
	clientID   string
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clientRepo: newFakeClientRepo(),
		fiscalRepo: newFakeFiscalRepo(),
		auditRepo:  &fakeAuditRepo{},
		now:        time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	cache := fiscal.NewTTLCache(30*time.Second, clock)
	f.svc = NewFiscalService(f.clientRepo, f.fiscalRepo, f.auditRepo, fakeTxManager{}, cache, nil, clock)

	client := &model.Client{
		Name:         "SARL Mbarga et Fils",
		NIU:          "M012345678901X",
		RegimeFiscal: model.RegimeIGS,
	}
	require.NoError(t, f.clientRepo.Create(context.Background(), client))
	f.clientID = client.ID.String()
	return f
}

// --- Tests ---

func TestFiscalLifecycleEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Revenue of 2.6M without CGA lands in class 6: 150000 due.
	profile, err := f.svc.SetAssessment(ctx, f.clientID, SetAssessmentRequest{AnnualRevenue: "2600000"}, "")
	require.NoError(t, err)
	status := igsOf(t, profile)
	assert.Equal(t, 6, status.Class)
	assert.Equal(t, "150000", status.BaseAmount)
	assert.Equal(t, "150000", status.FinalAmount)

	// Two quarterly payments of 50000 leave 50000 outstanding.
	_, err = f.svc.RecordPayment(ctx, f.clientID, RecordPaymentRequest{Quarter: "Q1", Amount: "50000", ReceiptReference: "QT-01"}, "")
	require.NoError(t, err)
	profile, err = f.svc.RecordPayment(ctx, f.clientID, RecordPaymentRequest{Quarter: "Q2", Amount: "50000", PaymentDate: "2025-04-10"}, "")
	require.NoError(t, err)
	status = igsOf(t, profile)
	assert.Equal(t, "100000", status.TotalPaid)
	assert.Equal(t, "50000", status.BalanceRemaining)

	// Registering CGA membership halves the due amount to 75000; the
	// 100000 already paid absorbs it and the balance floors at zero,
	// without re-entering any payment.
	profile, err = f.svc.SetAssessment(ctx, f.clientID, SetAssessmentRequest{AnnualRevenue: "2600000", CGAMember: true}, "")
	require.NoError(t, err)
	status = igsOf(t, profile)
	assert.Equal(t, "75000", status.FinalAmount)
	assert.Equal(t, "100000", status.TotalPaid)
	assert.Equal(t, "0", status.BalanceRemaining)

	// The client row mirrors the assessment inputs.
	stored, err := f.clientRepo.FindByID(ctx, uuid.MustParse(f.clientID))
	require.NoError(t, err)
	assert.True(t, stored.CGAMember)
	assert.True(t, stored.AnnualRevenue.Equal(decimal.NewFromInt(2600000)))
}

func TestRecordPaymentReplacesQuarter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAssessment(ctx, f.clientID, SetAssessmentRequest{AnnualRevenue: "2600000"}, "")
	require.NoError(t, err)

	_, err = f.svc.RecordPayment(ctx, f.clientID, RecordPaymentRequest{Quarter: "Q1", Amount: "1000"}, "")
	require.NoError(t, err)
	profile, err := f.svc.RecordPayment(ctx, f.clientID, RecordPaymentRequest{Quarter: "Q1", Amount: "2000"}, "")
	require.NoError(t, err)

	status := igsOf(t, profile)
	assert.Equal(t, "2000", status.TotalPaid, "re-entering a quarter replaces, never accumulates")
}

func TestRecordPaymentRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordPayment(ctx, f.clientID, RecordPaymentRequest{Quarter: "Q1", Amount: "-100"}, "")
	assert.ErrorIs(t, err, igs.ErrNegativeAmount)

	_, err = f.svc.RecordPayment(ctx, f.clientID, RecordPaymentRequest{Quarter: "Q7", Amount: "100"}, "")
	assert.ErrorIs(t, err, igs.ErrInvalidQuarter)

	_, err = f.svc.RecordPayment(ctx, f.clientID, RecordPaymentRequest{Quarter: "Q1", Amount: "100", PaymentDate: "10/04/2025"}, "")
	assert.Error(t, err, "payment dates are ISO YYYY-MM-DD")

	// Nothing was persisted for the rejected inputs.
	assert.Empty(t, f.fiscalRepo.profiles)
}

func TestSetAssessmentRejectsNegativeRevenue(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetAssessment(context.Background(), f.clientID, SetAssessmentRequest{AnnualRevenue: "-1"}, "")
	assert.ErrorIs(t, err, igs.ErrNegativeRevenue)
}

func TestSetObligationStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	applicable, settled := true, true

	// Settling a not-applicable obligation is rejected.
	_, err := f.svc.SetObligationStatus(ctx, f.clientID, fiscal.ObligationDSF, SetObligationStatusRequest{Settled: &settled}, "")
	assert.ErrorIs(t, err, fiscal.ErrNotApplicable)

	// Applicable then filed.
	_, err = f.svc.SetObligationStatus(ctx, f.clientID, fiscal.ObligationDSF, SetObligationStatusRequest{Applicable: &applicable}, "")
	require.NoError(t, err)
	profile, err := f.svc.SetObligationStatus(ctx, f.clientID, fiscal.ObligationDSF, SetObligationStatusRequest{Settled: &settled}, "")
	require.NoError(t, err)
	assert.True(t, obligationOf(t, profile, fiscal.ObligationDSF).Settled)

	// Toggling applicability off drops the filed flag.
	notApplicable := false
	profile, err = f.svc.SetObligationStatus(ctx, f.clientID, fiscal.ObligationDSF, SetObligationStatusRequest{Applicable: &notApplicable}, "")
	require.NoError(t, err)
	rec := obligationOf(t, profile, fiscal.ObligationDSF)
	assert.False(t, rec.Applicable)
	assert.False(t, rec.Settled)

	_, err = f.svc.SetObligationStatus(ctx, f.clientID, "licence", SetObligationStatusRequest{Applicable: &applicable}, "")
	assert.ErrorIs(t, err, fiscal.ErrUnknownObligation)
}

func TestGetProfileUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAssessment(ctx, f.clientID, SetAssessmentRequest{AnnualRevenue: "2600000"}, "")
	require.NoError(t, err)
	reads := f.fiscalRepo.getCalls

	_, err = f.svc.GetProfile(ctx, f.clientID)
	require.NoError(t, err)
	_, err = f.svc.GetProfile(ctx, f.clientID)
	require.NoError(t, err)
	assert.Equal(t, reads, f.fiscalRepo.getCalls, "reads inside the TTL must hit the cache")

	// Past the TTL the store is consulted again.
	f.now = f.now.Add(31 * time.Second)
	_, err = f.svc.GetProfile(ctx, f.clientID)
	require.NoError(t, err)
	assert.Equal(t, reads+1, f.fiscalRepo.getCalls)
}

func TestMutationRefreshesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetAssessment(ctx, f.clientID, SetAssessmentRequest{AnnualRevenue: "2600000"}, "")
	require.NoError(t, err)

	// Prime the cache, then mutate: the next read must see the new state
	// without waiting out the TTL.
	_, err = f.svc.GetProfile(ctx, f.clientID)
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, f.clientID, RecordPaymentRequest{Quarter: "Q1", Amount: "50000"}, "")
	require.NoError(t, err)

	profile, err := f.svc.GetProfile(ctx, f.clientID)
	require.NoError(t, err)
	assert.Equal(t, "50000", igsOf(t, profile).TotalPaid)
}

func TestGetProfileForUnknownClient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetProfile(context.Background(), uuid.NewString())
	assert.Error(t, err)

	_, err = f.svc.GetProfile(context.Background(), "not-a-uuid")
	assert.Error(t, err)
}

func TestAttestationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	profile, err := f.svc.SetAttestation(ctx, f.clientID, SetAttestationRequest{CreationDate: "01/01/2025", ShowInAlert: true}, "")
	require.NoError(t, err)
	require.NotNil(t, profile.Attestation)
	assert.Equal(t, "01/04/2025", profile.Attestation.ValidityEndDate)
	// Fixture clock is 15/03/2025: 17 days left, inside the badge window.
	assert.Equal(t, 17, profile.Attestation.DaysRemaining)
	assert.Equal(t, string(fiscal.StatusExpiringSoon), profile.Attestation.Status)

	expiring, err := f.svc.GetExpiringAttestations(ctx, f.now, fiscal.BadgeThresholdDays)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, f.clientID, expiring[0].ClientID)
	assert.Equal(t, 17, expiring[0].DaysRemaining)

	// The 5-day toast window does not include it.
	expiring, err = f.svc.GetExpiringAttestations(ctx, f.now, fiscal.ToastThresholdDays)
	require.NoError(t, err)
	assert.Empty(t, expiring)

	_, err = f.svc.SetAttestation(ctx, f.clientID, SetAttestationRequest{CreationDate: "2025-01-01"}, "")
	assert.Error(t, err, "attestation dates are DD/MM/YYYY")
}

func TestComplianceOverview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	applicable := true

	_, err := f.svc.SetObligationStatus(ctx, f.clientID, fiscal.ObligationIGS, SetObligationStatusRequest{Applicable: &applicable}, "")
	require.NoError(t, err)
	_, err = f.svc.SetObligationStatus(ctx, f.clientID, fiscal.ObligationPatente, SetObligationStatusRequest{Applicable: &applicable}, "")
	require.NoError(t, err)

	overview, err := f.svc.GetComplianceOverview(ctx)
	require.NoError(t, err)
	assert.Len(t, overview.UnpaidIGS, 1)
	assert.Len(t, overview.UnpaidPatente, 1)
	assert.Empty(t, overview.UnfiledDSF)
	assert.Equal(t, 1, overview.TrackedClientProfiles)

	// Paying the patente clears it from the list.
	settled := true
	_, err = f.svc.SetObligationStatus(ctx, f.clientID, fiscal.ObligationPatente, SetObligationStatusRequest{Settled: &settled}, "")
	require.NoError(t, err)
	overview, err = f.svc.GetComplianceOverview(ctx)
	require.NoError(t, err)
	assert.Empty(t, overview.UnpaidPatente)
}

func TestMutationsAreAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.NewString()

	_, err := f.svc.SetAssessment(ctx, f.clientID, SetAssessmentRequest{AnnualRevenue: "2600000"}, userID)
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, f.clientID, RecordPaymentRequest{Quarter: "Q1", Amount: "50000"}, userID)
	require.NoError(t, err)

	require.Len(t, f.auditRepo.entries, 2)
	assert.Equal(t, model.ActionSetAssessment, f.auditRepo.entries[0].Action)
	assert.Equal(t, model.ActionRecordPayment, f.auditRepo.entries[1].Action)
	require.NotNil(t, f.auditRepo.entries[0].UserID)
	assert.Equal(t, userID, f.auditRepo.entries[0].UserID.String())
}

// --- helpers ---

func igsOf(t *testing.T, profile FiscalProfileResponse) *IGSStatusResponse {
	t.Helper()
	rec := obligationOf(t, profile, fiscal.ObligationIGS)
	require.NotNil(t, rec.IGS)
	return rec.IGS
}

func obligationOf(t *testing.T, profile FiscalProfileResponse, typ string) ObligationResponse {
	t.Helper()
	for _, o := range profile.Obligations {
		if o.Type == typ {
			return o
		}
	}
	t.Fatalf("obligation %s not in profile", typ)
	return ObligationResponse{}
}
