package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"fiscalis/internal/fiscal"
	"fiscalis/internal/igs"
	"fiscalis/internal/model"
	"fiscalis/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type SetAssessmentRequest struct {
	AnnualRevenue string `json:"annual_revenue" binding:"required"` // Decimal string, FCFA
	CGAMember     bool   `json:"cga_member"`
}

type RecordPaymentRequest struct {
	Quarter          string `json:"quarter" binding:"required,oneof=Q1 Q2 Q3 Q4"`
	Amount           string `json:"amount" binding:"required"` // Decimal string, FCFA
	ReceiptReference string `json:"receipt_reference"`
	PaymentDate      string `json:"payment_date"` // YYYY-MM-DD, optional
}

type SetObligationStatusRequest struct {
	Applicable *bool `json:"applicable"`
	Settled    *bool `json:"settled"`
}

type SetAttestationRequest struct {
	CreationDate string `json:"creation_date" binding:"required"` // DD/MM/YYYY
	ShowInAlert  bool   `json:"show_in_alert"`
}

type QuarterlyPaymentResponse struct {
	Quarter          string  `json:"quarter"`
	Amount           string  `json:"amount"`
	ReceiptReference string  `json:"receipt_reference,omitempty"`
	PaymentDate      *string `json:"payment_date,omitempty"`
}

type IGSStatusResponse struct {
	AnnualRevenue    string                     `json:"annual_revenue"`
	CGAMember        bool                       `json:"cga_member"`
	Class            int                        `json:"class"`
	BaseAmount       string                     `json:"base_amount"`
	FinalAmount      string                     `json:"final_amount"`
	Payments         []QuarterlyPaymentResponse `json:"payments"`
	TotalPaid        string                     `json:"total_paid"`
	BalanceRemaining string                     `json:"balance_remaining"`
}

type ObligationResponse struct {
	Type       string             `json:"type"`
	Applicable bool               `json:"applicable"`
	Settled    bool               `json:"settled"`
	IGS        *IGSStatusResponse `json:"igs,omitempty"`
}

type AttestationResponse struct {
	CreationDate    string `json:"creation_date"`
	ValidityEndDate string `json:"validity_end_date"`
	ShowInAlert     bool   `json:"show_in_alert"`
	DaysRemaining   int    `json:"days_remaining"`
	Status          string `json:"status"`
}

type FiscalProfileResponse struct {
	ClientID    string               `json:"client_id"`
	Attestation *AttestationResponse `json:"attestation,omitempty"`
	Obligations []ObligationResponse `json:"obligations"`
}

type ExpiringAttestationResponse struct {
	ClientID      string `json:"client_id"`
	DisplayName   string `json:"display_name"`
	DaysRemaining int    `json:"days_remaining"`
	Status        string `json:"status"`
}

type ClientRef struct {
	ClientID    string `json:"client_id"`
	DisplayName string `json:"display_name"`
}

type ComplianceOverviewResponse struct {
	UnpaidIGS             []ClientRef `json:"unpaid_igs"`
	UnpaidPatente         []ClientRef `json:"unpaid_patente"`
	UnfiledDSF            []ClientRef `json:"unfiled_dsf"`
	ExpiringAttestations  int         `json:"expiring_attestations"`
	TrackedClientProfiles int         `json:"tracked_client_profiles"`
}

// --- Interface ---

type FiscalService interface {
	GetProfile(ctx context.Context, clientID string) (FiscalProfileResponse, error)
	SetAssessment(ctx context.Context, clientID string, req SetAssessmentRequest, userID string) (FiscalProfileResponse, error)
	RecordPayment(ctx context.Context, clientID string, req RecordPaymentRequest, userID string) (FiscalProfileResponse, error)
	SetObligationStatus(ctx context.Context, clientID, obligationType string, req SetObligationStatusRequest, userID string) (FiscalProfileResponse, error)
	SetAttestation(ctx context.Context, clientID string, req SetAttestationRequest, userID string) (FiscalProfileResponse, error)
	GetExpiringAttestations(ctx context.Context, asOf time.Time, thresholdDays int) ([]ExpiringAttestationResponse, error)
	GetComplianceOverview(ctx context.Context) (ComplianceOverviewResponse, error)
}

type fiscalService struct {
	clientRepo repository.ClientRepository
	fiscalRepo repository.FiscalRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	cache      fiscal.Cache
	hub        interface{ GetBroadcast() chan []byte } // optional websocket hub
	now        fiscal.Clock
}

// NewFiscalService wires the obligation store. hub may be nil (no realtime
// alerts); now may be nil (wall clock).
func NewFiscalService(
	clientRepo repository.ClientRepository,
	fiscalRepo repository.FiscalRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	cache fiscal.Cache,
	hub interface{ GetBroadcast() chan []byte },
	now fiscal.Clock,
) FiscalService {
	if now == nil {
		now = time.Now
	}
	return &fiscalService{
		clientRepo: clientRepo,
		fiscalRepo: fiscalRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		cache:      cache,
		hub:        hub,
		now:        now,
	}
}

// --- Implementation ---

func (s *fiscalService) GetProfile(ctx context.Context, clientID string) (FiscalProfileResponse, error) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return FiscalProfileResponse{}, fmt.Errorf("invalid client id: %w", err)
	}

	if d, ok := s.cache.Get(id.String()); ok {
		return s.toProfileResponse(id, d), nil
	}

	data, err := s.loadData(ctx, id)
	if err != nil {
		return FiscalProfileResponse{}, err
	}
	s.cache.Set(id.String(), data)

	return s.toProfileResponse(id, data), nil
}

func (s *fiscalService) SetAssessment(ctx context.Context, clientID string, req SetAssessmentRequest, userID string) (FiscalProfileResponse, error) {
	revenue, err := decimal.NewFromString(req.AnnualRevenue)
	if err != nil {
		return FiscalProfileResponse{}, fmt.Errorf("invalid annual_revenue: %w", err)
	}
	if revenue.IsNegative() {
		return FiscalProfileResponse{}, igs.ErrNegativeRevenue
	}

	var resp FiscalProfileResponse
	err = s.mutate(ctx, clientID, func(txCtx context.Context, client *model.Client, data *fiscal.Data) error {
		rec, err := data.Record(fiscal.ObligationIGS)
		if err != nil {
			return err
		}
		status := rec.EnsureIGS()
		status.AnnualRevenue = revenue
		status.CGAMember = req.CGAMember
		if err := status.Recompute(); err != nil {
			return err
		}

		// Keep the client row in sync; it is the display source for lists.
		client.AnnualRevenue = revenue
		client.CGAMember = req.CGAMember
		if err := s.clientRepo.Update(txCtx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}

		s.writeAuditLog(txCtx, userID, model.ActionSetAssessment, client.ID.String(), client.Name, req)
		return nil
	}, &resp)
	return resp, err
}

func (s *fiscalService) RecordPayment(ctx context.Context, clientID string, req RecordPaymentRequest, userID string) (FiscalProfileResponse, error) {
	quarter, err := igs.ParseQuarter(req.Quarter)
	if err != nil {
		return FiscalProfileResponse{}, err
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return FiscalProfileResponse{}, fmt.Errorf("invalid amount: %w", err)
	}

	var paymentDate *time.Time
	if req.PaymentDate != "" {
		t, err := time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			return FiscalProfileResponse{}, fmt.Errorf("invalid payment_date (expected YYYY-MM-DD): %w", err)
		}
		paymentDate = &t
	}

	var resp FiscalProfileResponse
	err = s.mutate(ctx, clientID, func(txCtx context.Context, client *model.Client, data *fiscal.Data) error {
		rec, err := data.Record(fiscal.ObligationIGS)
		if err != nil {
			return err
		}
		status := rec.EnsureIGS()
		if err := status.Ledger.Record(quarter, amount, req.ReceiptReference, paymentDate); err != nil {
			return err
		}
		if err := status.Recompute(); err != nil {
			return err
		}

		s.writeAuditLog(txCtx, userID, model.ActionRecordPayment, client.ID.String(), client.Name, req)
		return nil
	}, &resp)
	return resp, err
}

func (s *fiscalService) SetObligationStatus(ctx context.Context, clientID, obligationType string, req SetObligationStatusRequest, userID string) (FiscalProfileResponse, error) {
	if req.Applicable == nil && req.Settled == nil {
		return FiscalProfileResponse{}, errors.New("nothing to update: provide applicable and/or settled")
	}

	var resp FiscalProfileResponse
	err := s.mutate(ctx, clientID, func(txCtx context.Context, client *model.Client, data *fiscal.Data) error {
		rec, err := data.Record(obligationType)
		if err != nil {
			return err
		}
		if req.Applicable != nil {
			rec.SetApplicable(*req.Applicable)
		}
		if req.Settled != nil {
			if err := rec.SetSettled(*req.Settled); err != nil {
				return err
			}
		}

		s.writeAuditLog(txCtx, userID, model.ActionSetObligation, client.ID.String(), client.Name,
			map[string]interface{}{"obligation": obligationType, "request": req})
		return nil
	}, &resp)
	return resp, err
}

func (s *fiscalService) SetAttestation(ctx context.Context, clientID string, req SetAttestationRequest, userID string) (FiscalProfileResponse, error) {
	creation, err := fiscal.ParseDate(req.CreationDate)
	if err != nil {
		return FiscalProfileResponse{}, err
	}

	var resp FiscalProfileResponse
	err = s.mutate(ctx, clientID, func(txCtx context.Context, client *model.Client, data *fiscal.Data) error {
		att := fiscal.NewAttestation(creation, req.ShowInAlert)
		data.Attestation = &att

		s.writeAuditLog(txCtx, userID, model.ActionSetAttestation, client.ID.String(), client.Name, req)
		return nil
	}, &resp)
	return resp, err
}

func (s *fiscalService) GetExpiringAttestations(ctx context.Context, asOf time.Time, thresholdDays int) ([]ExpiringAttestationResponse, error) {
	profiles, err := s.fiscalRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list fiscal profiles: %w", err)
	}

	out := make([]ExpiringAttestationResponse, 0)
	for _, p := range profiles {
		data, err := fiscal.Decode([]byte(p.Data))
		if err != nil {
			// One corrupt profile must not break the whole dashboard.
			continue
		}
		if data.Attestation == nil {
			continue
		}
		days, err := data.Attestation.DaysRemaining(asOf)
		if err != nil {
			continue
		}
		status := fiscal.ClassifyExpiry(days, thresholdDays)
		if status == fiscal.StatusValid {
			continue
		}

		name := ""
		if p.Client != nil {
			name = p.Client.Name
		}
		out = append(out, ExpiringAttestationResponse{
			ClientID:      p.ClientID.String(),
			DisplayName:   name,
			DaysRemaining: days,
			Status:        string(status),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DaysRemaining < out[j].DaysRemaining })
	return out, nil
}

func (s *fiscalService) GetComplianceOverview(ctx context.Context) (ComplianceOverviewResponse, error) {
	profiles, err := s.fiscalRepo.ListAll(ctx)
	if err != nil {
		return ComplianceOverviewResponse{}, fmt.Errorf("failed to list fiscal profiles: %w", err)
	}

	overview := ComplianceOverviewResponse{
		UnpaidIGS:     []ClientRef{},
		UnpaidPatente: []ClientRef{},
		UnfiledDSF:    []ClientRef{},
	}
	asOf := s.now()

	for _, p := range profiles {
		data, err := fiscal.Decode([]byte(p.Data))
		if err != nil {
			continue
		}
		overview.TrackedClientProfiles++

		ref := ClientRef{ClientID: p.ClientID.String()}
		if p.Client != nil {
			ref.DisplayName = p.Client.Name
		}

		if unsettled(data, fiscal.ObligationIGS) {
			overview.UnpaidIGS = append(overview.UnpaidIGS, ref)
		}
		if unsettled(data, fiscal.ObligationPatente) {
			overview.UnpaidPatente = append(overview.UnpaidPatente, ref)
		}
		if unsettled(data, fiscal.ObligationDSF) {
			overview.UnfiledDSF = append(overview.UnfiledDSF, ref)
		}

		if data.Attestation != nil {
			if days, err := data.Attestation.DaysRemaining(asOf); err == nil {
				if fiscal.ClassifyExpiry(days, fiscal.BadgeThresholdDays) != fiscal.StatusValid {
					overview.ExpiringAttestations++
				}
				// The realtime toast uses its own, tighter window.
				if data.Attestation.ShowInAlert && days <= fiscal.ToastThresholdDays {
					s.broadcastExpiryAlert(ref, days)
				}
			}
		}
	}

	return overview, nil
}

// --- Helpers ---

func unsettled(data *fiscal.Data, obligationType string) bool {
	rec, ok := data.Obligations[obligationType]
	return ok && rec.Applicable && !rec.Settled
}

// loadData reads and decodes a client's fiscal profile, creating a fresh one
// for clients whose fiscal tab was never opened.
func (s *fiscalService) loadData(ctx context.Context, clientID uuid.UUID) (*fiscal.Data, error) {
	profile, err := s.fiscalRepo.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if _, err := s.clientRepo.FindByID(ctx, clientID); err != nil {
				return nil, fmt.Errorf("client not found")
			}
			return fiscal.NewData(), nil
		}
		return nil, fmt.Errorf("failed to load fiscal profile: %w", err)
	}
	data, err := fiscal.Decode([]byte(profile.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode fiscal profile: %w", err)
	}
	return data, nil
}

// mutate runs the read-modify-write cycle for one client's profile inside a
// transaction: load (bypassing the cache), apply fn, persist, invalidate the
// cache, then re-prime it with the fresh state. A failed fn leaves the stored
// profile and the cache untouched.
func (s *fiscalService) mutate(ctx context.Context, clientID string, fn func(ctx context.Context, client *model.Client, data *fiscal.Data) error, resp *FiscalProfileResponse) error {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return fmt.Errorf("invalid client id: %w", err)
	}

	var data *fiscal.Data
	var client *model.Client
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		client, err = s.clientRepo.FindByID(txCtx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("client not found")
			}
			return fmt.Errorf("failed to fetch client: %w", err)
		}

		data, err = s.loadData(txCtx, id)
		if err != nil {
			return err
		}

		if err := fn(txCtx, client, data); err != nil {
			return err
		}

		raw, err := data.Encode()
		if err != nil {
			return fmt.Errorf("failed to encode fiscal profile: %w", err)
		}
		return s.fiscalRepo.Save(txCtx, id, string(raw))
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(id.String())
	s.cache.Set(id.String(), data)

	*resp = s.toProfileResponse(id, data)
	return nil
}

func (s *fiscalService) toProfileResponse(clientID uuid.UUID, data *fiscal.Data) FiscalProfileResponse {
	resp := FiscalProfileResponse{
		ClientID:    clientID.String(),
		Obligations: make([]ObligationResponse, 0, len(fiscal.ObligationTypes)),
	}

	if data.Attestation != nil {
		att := AttestationResponse{
			CreationDate:    data.Attestation.CreationDate,
			ValidityEndDate: data.Attestation.ValidityEndDate,
			ShowInAlert:     data.Attestation.ShowInAlert,
		}
		if days, err := data.Attestation.DaysRemaining(s.now()); err == nil {
			att.DaysRemaining = days
			att.Status = string(fiscal.ClassifyExpiry(days, fiscal.BadgeThresholdDays))
		}
		resp.Attestation = &att
	}

	for _, typ := range fiscal.ObligationTypes {
		rec, ok := data.Obligations[typ]
		if !ok {
			continue
		}
		o := ObligationResponse{Type: typ, Applicable: rec.Applicable, Settled: rec.Settled}
		if rec.IGS != nil {
			o.IGS = toIGSResponse(rec.IGS)
		}
		resp.Obligations = append(resp.Obligations, o)
	}

	return resp
}

func toIGSResponse(status *fiscal.IGSStatus) *IGSStatusResponse {
	resp := &IGSStatusResponse{
		AnnualRevenue:    status.AnnualRevenue.StringFixed(0),
		CGAMember:        status.CGAMember,
		Class:            status.Assessment.Class,
		BaseAmount:       status.Assessment.BaseAmount.StringFixed(0),
		FinalAmount:      status.Assessment.FinalAmount.StringFixed(0),
		TotalPaid:        status.TotalPaid.StringFixed(0),
		BalanceRemaining: status.BalanceRemaining.StringFixed(0),
	}
	for i := igs.Q1; i <= igs.Q4; i++ {
		p := status.Ledger.Payment(i)
		qp := QuarterlyPaymentResponse{
			Quarter:          i.String(),
			Amount:           p.Amount.StringFixed(0),
			ReceiptReference: p.ReceiptReference,
		}
		if p.PaymentDate != nil {
			d := p.PaymentDate.Format("2006-01-02")
			qp.PaymentDate = &d
		}
		resp.Payments = append(resp.Payments, qp)
	}
	return resp
}

func (s *fiscalService) broadcastExpiryAlert(ref ClientRef, daysRemaining int) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event":          "attestation_expiring",
		"client_id":      ref.ClientID,
		"display_name":   ref.DisplayName,
		"days_remaining": daysRemaining,
	})
	if err != nil {
		return
	}
	select {
	case s.hub.GetBroadcast() <- payload:
	default:
		// No listeners; drop rather than block the request.
	}
}

func (s *fiscalService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	// Best-effort audit log — don't fail the operation if logging fails
	_ = s.auditRepo.Log(ctx, &entry)
}
