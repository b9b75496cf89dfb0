package service

import (
	"context"
	"fmt"
	"time"

	"fiscalis/internal/repository"
)

// DashboardResponse aggregates the landing-page numbers: client base, firm
// billing, and the fiscal compliance situation.
type DashboardResponse struct {
	ActiveClients        int64                      `json:"active_clients"`
	BilledPaidTotal      float64                    `json:"billed_paid_total"`
	Compliance           ComplianceOverviewResponse `json:"compliance"`
	ExpiringAttestations int                        `json:"expiring_attestations"`
	GeneratedAt          time.Time                  `json:"generated_at"`
}

type DashboardService interface {
	GetDashboard(ctx context.Context) (DashboardResponse, error)
}

type dashboardService struct {
	clientRepo  repository.ClientRepository
	invoiceRepo repository.InvoiceRepository
	fiscalSvc   FiscalService
}

func NewDashboardService(clientRepo repository.ClientRepository, invoiceRepo repository.InvoiceRepository, fiscalSvc FiscalService) DashboardService {
	return &dashboardService{clientRepo: clientRepo, invoiceRepo: invoiceRepo, fiscalSvc: fiscalSvc}
}

func (s *dashboardService) GetDashboard(ctx context.Context) (DashboardResponse, error) {
	activeClients, err := s.clientRepo.CountActive(ctx)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to count clients: %w", err)
	}

	paidTotal, err := s.invoiceRepo.SumPaid(ctx)
	if err != nil {
		return DashboardResponse{}, fmt.Errorf("failed to sum invoices: %w", err)
	}

	compliance, err := s.fiscalSvc.GetComplianceOverview(ctx)
	if err != nil {
		return DashboardResponse{}, err
	}

	return DashboardResponse{
		ActiveClients:        activeClients,
		BilledPaidTotal:      paidTotal,
		Compliance:           compliance,
		ExpiringAttestations: compliance.ExpiringAttestations,
		GeneratedAt:          time.Now(),
	}, nil
}
