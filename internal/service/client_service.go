package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"fiscalis/internal/model"
	"fiscalis/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateClientRequest struct {
	Name          string `json:"name" binding:"required"`
	NIU           string `json:"niu" binding:"required"`
	RegimeFiscal  string `json:"regime_fiscal" binding:"required,oneof=IGS REEL"`
	CGAMember     bool   `json:"cga_member"`
	AnnualRevenue string `json:"annual_revenue"` // Decimal string, FCFA
	Activity      string `json:"activity"`
	Address       string `json:"address"`
	City          string `json:"city"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
}

type UpdateClientRequest struct {
	Name          *string `json:"name"`
	RegimeFiscal  *string `json:"regime_fiscal"`
	CGAMember     *bool   `json:"cga_member"`
	AnnualRevenue *string `json:"annual_revenue"`
	Activity      *string `json:"activity"`
	Address       *string `json:"address"`
	City          *string `json:"city"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	IsActive      *bool   `json:"is_active"`
}

type ClientResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	NIU           string    `json:"niu"`
	RegimeFiscal  string    `json:"regime_fiscal"`
	CGAMember     bool      `json:"cga_member"`
	AnnualRevenue string    `json:"annual_revenue"`
	Activity      string    `json:"activity"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// --- Interface ---

type ClientService interface {
	CreateClient(ctx context.Context, req CreateClientRequest, userID string) (ClientResponse, error)
	UpdateClient(ctx context.Context, id string, req UpdateClientRequest, userID string) (ClientResponse, error)
	DeleteClient(ctx context.Context, id string, userID string) error
	GetClient(ctx context.Context, id string) (ClientResponse, error)
	GetClients(ctx context.Context, regime, search string, page, limit int) ([]ClientResponse, int64, error)
}

type clientService struct {
	clientRepo repository.ClientRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewClientService(clientRepo repository.ClientRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) ClientService {
	return &clientService{clientRepo: clientRepo, auditRepo: auditRepo, txManager: txManager}
}

// --- Implementation ---

func (s *clientService) CreateClient(ctx context.Context, req CreateClientRequest, userID string) (ClientResponse, error) {
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return ClientResponse{}, fmt.Errorf("invalid email: %w", err)
		}
	}

	revenue := decimal.Zero
	if req.AnnualRevenue != "" {
		var err error
		revenue, err = decimal.NewFromString(req.AnnualRevenue)
		if err != nil {
			return ClientResponse{}, fmt.Errorf("invalid annual_revenue: %w", err)
		}
		if revenue.IsNegative() {
			return ClientResponse{}, errors.New("annual_revenue must not be negative")
		}
	}

	if _, err := s.clientRepo.FindByNIU(ctx, req.NIU); err == nil {
		return ClientResponse{}, fmt.Errorf("a client with NIU %q already exists", req.NIU)
	}

	client := model.Client{
		Name:          req.Name,
		NIU:           req.NIU,
		RegimeFiscal:  req.RegimeFiscal,
		CGAMember:     req.CGAMember,
		AnnualRevenue: revenue,
		Activity:      req.Activity,
		Address:       req.Address,
		City:          req.City,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		IsActive:      true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.clientRepo.Create(txCtx, &client); err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		s.writeAuditLog(txCtx, userID, model.ActionCreateClient, client.ID.String(), client.Name, req)
		return nil
	})
	if err != nil {
		return ClientResponse{}, err
	}

	return toClientResponse(client), nil
}

func (s *clientService) UpdateClient(ctx context.Context, id string, req UpdateClientRequest, userID string) (ClientResponse, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("invalid client id: %w", err)
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ClientResponse{}, fmt.Errorf("client not found")
		}
		return ClientResponse{}, fmt.Errorf("failed to fetch client: %w", err)
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.RegimeFiscal != nil {
		if *req.RegimeFiscal != model.RegimeIGS && *req.RegimeFiscal != model.RegimeReel {
			return ClientResponse{}, errors.New("regime_fiscal must be IGS or REEL")
		}
		client.RegimeFiscal = *req.RegimeFiscal
	}
	if req.CGAMember != nil {
		client.CGAMember = *req.CGAMember
	}
	if req.AnnualRevenue != nil {
		revenue, err := decimal.NewFromString(*req.AnnualRevenue)
		if err != nil {
			return ClientResponse{}, fmt.Errorf("invalid annual_revenue: %w", err)
		}
		if revenue.IsNegative() {
			return ClientResponse{}, errors.New("annual_revenue must not be negative")
		}
		client.AnnualRevenue = revenue
	}
	if req.Activity != nil {
		client.Activity = *req.Activity
	}
	if req.Address != nil {
		client.Address = *req.Address
	}
	if req.City != nil {
		client.City = *req.City
	}
	if req.ContactPerson != nil {
		client.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Email != nil {
		if *req.Email != "" {
			if _, err := mail.ParseAddress(*req.Email); err != nil {
				return ClientResponse{}, fmt.Errorf("invalid email: %w", err)
			}
		}
		client.Email = *req.Email
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.clientRepo.Update(txCtx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		s.writeAuditLog(txCtx, userID, model.ActionUpdateClient, client.ID.String(), client.Name, req)
		return nil
	})
	if err != nil {
		return ClientResponse{}, err
	}

	return toClientResponse(*client), nil
}

func (s *clientService) DeleteClient(ctx context.Context, id string, userID string) error {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid client id: %w", err)
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("client not found")
		}
		return fmt.Errorf("failed to fetch client: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.clientRepo.Delete(txCtx, clientID); err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		s.writeAuditLog(txCtx, userID, model.ActionDeleteClient, client.ID.String(), client.Name, map[string]string{"deleted_id": id})
		return nil
	})
}

func (s *clientService) GetClient(ctx context.Context, id string) (ClientResponse, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("invalid client id: %w", err)
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ClientResponse{}, fmt.Errorf("client not found")
		}
		return ClientResponse{}, fmt.Errorf("failed to fetch client: %w", err)
	}

	return toClientResponse(*client), nil
}

func (s *clientService) GetClients(ctx context.Context, regime, search string, page, limit int) ([]ClientResponse, int64, error) {
	clients, total, err := s.clientRepo.List(ctx, regime, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}

	res := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		res = append(res, toClientResponse(c))
	}
	return res, total, nil
}

// --- Helpers ---

func toClientResponse(c model.Client) ClientResponse {
	return ClientResponse{
		ID:            c.ID,
		Name:          c.Name,
		NIU:           c.NIU,
		RegimeFiscal:  c.RegimeFiscal,
		CGAMember:     c.CGAMember,
		AnnualRevenue: c.AnnualRevenue.StringFixed(0),
		Activity:      c.Activity,
		Address:       c.Address,
		City:          c.City,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (s *clientService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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
