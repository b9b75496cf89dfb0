package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fiscalis/internal/model"
	"fiscalis/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateInvoiceRequest struct {
	ClientID    string `json:"client_id" binding:"required"`
	Description string `json:"description"`
	Amount      string `json:"amount" binding:"required"` // Decimal string, FCFA
	IssueDate   string `json:"issue_date"`                // YYYY-MM-DD, defaults to today
	DueDate     string `json:"due_date"`                  // YYYY-MM-DD, optional
}

type InvoiceFilter struct {
	Status   string // DRAFT, SENT, PAID or empty for all
	ClientID string // optional client filter
	Page     int
	Limit    int
}

type InvoiceResponse struct {
	ID          string  `json:"id"`
	InvoiceNo   string  `json:"invoice_no"`
	ClientID    string  `json:"client_id"`
	ClientName  string  `json:"client_name"`
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	Status      string  `json:"status"`
	IssueDate   string  `json:"issue_date"`
	DueDate     *string `json:"due_date"`
	PaidAt      *string `json:"paid_at"`
	CreatedAt   string  `json:"created_at"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest, userID string) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	MarkSent(ctx context.Context, id string, userID string) (InvoiceResponse, error)
	MarkPaid(ctx context.Context, id string, userID string) (InvoiceResponse, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	clientRepo  repository.ClientRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// --- Implementation ---

func (s *invoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest, userID string) (InvoiceResponse, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid amount: %w", err)
	}
	if amount.IsNegative() {
		return InvoiceResponse{}, errors.New("amount must not be negative")
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid client_id: %w", err)
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, fmt.Errorf("client not found")
		}
		return InvoiceResponse{}, fmt.Errorf("failed to fetch client: %w", err)
	}

	issueDate := time.Now()
	if req.IssueDate != "" {
		issueDate, err = time.Parse("2006-01-02", req.IssueDate)
		if err != nil {
			return InvoiceResponse{}, fmt.Errorf("invalid issue_date (expected YYYY-MM-DD): %w", err)
		}
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		t, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return InvoiceResponse{}, fmt.Errorf("invalid due_date (expected YYYY-MM-DD): %w", err)
		}
		dueDate = &t
	}

	invoice := model.Invoice{
		ClientID:    clientID,
		Description: req.Description,
		Amount:      amount,
		Status:      model.InvoiceDraft,
		IssueDate:   issueDate,
		DueDate:     dueDate,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		no, err := s.nextInvoiceNo(txCtx, issueDate)
		if err != nil {
			return err
		}
		invoice.InvoiceNo = no

		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		s.writeAuditLog(txCtx, userID, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNo, req)
		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	invoice.Client = client
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	var clientID *uuid.UUID
	if filter.ClientID != "" {
		parsed, err := uuid.Parse(filter.ClientID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid client_id: %w", err)
		}
		clientID = &parsed
	}

	invoices, total, err := s.invoiceRepo.List(ctx, filter.Status, clientID, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}

	res := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		res = append(res, toInvoiceResponse(inv))
	}
	return res, total, nil
}

func (s *invoiceService) MarkSent(ctx context.Context, id string, userID string) (InvoiceResponse, error) {
	return s.transition(ctx, id, userID, model.InvoiceDraft, model.InvoiceSent)
}

func (s *invoiceService) MarkPaid(ctx context.Context, id string, userID string) (InvoiceResponse, error) {
	return s.transition(ctx, id, userID, model.InvoiceSent, model.InvoicePaid)
}

// --- Helpers ---

func (s *invoiceService) transition(ctx context.Context, id, userID, from, to string) (InvoiceResponse, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid invoice id: %w", err)
	}

	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceResponse{}, fmt.Errorf("invoice not found")
		}
		return InvoiceResponse{}, fmt.Errorf("failed to fetch invoice: %w", err)
	}

	if invoice.Status != from {
		return InvoiceResponse{}, fmt.Errorf("invoice %s is %s, expected %s", invoice.InvoiceNo, invoice.Status, from)
	}

	invoice.Status = to
	if to == model.InvoicePaid {
		now := time.Now()
		invoice.PaidAt = &now
	}

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to update invoice: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionUpdateInvoice, invoice.ID.String(), invoice.InvoiceNo,
		map[string]string{"from": from, "to": to})

	return toInvoiceResponse(*invoice), nil
}

// nextInvoiceNo issues sequential numbers per year: FAC-2025-0001.
func (s *invoiceService) nextInvoiceNo(ctx context.Context, issueDate time.Time) (string, error) {
	prefix := fmt.Sprintf("FAC-%d-", issueDate.Year())
	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to number invoice: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:          inv.ID.String(),
		InvoiceNo:   inv.InvoiceNo,
		ClientID:    inv.ClientID.String(),
		Description: inv.Description,
		Amount:      inv.Amount.StringFixed(0),
		Status:      inv.Status,
		IssueDate:   inv.IssueDate.Format("2006-01-02"),
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.Client != nil {
		resp.ClientName = inv.Client.Name
	}
	if inv.DueDate != nil {
		d := inv.DueDate.Format("2006-01-02")
		resp.DueDate = &d
	}
	if inv.PaidAt != nil {
		p := inv.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &p
	}
	return resp
}

func (s *invoiceService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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
