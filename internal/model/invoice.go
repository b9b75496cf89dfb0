package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus enum constants
const (
	InvoiceDraft = "DRAFT"
	InvoiceSent  = "SENT"
	InvoicePaid  = "PAID"
)

// Invoice represents a fee note issued by the firm to one of its clients
// (bookkeeping, payroll, fiscal filings). Only PAID invoices count toward
// billing statistics.
type Invoice struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNo   string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_no"`
	ClientID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"client_id"`
	Client      *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Description string          `gorm:"type:text" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Status      string          `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"` // DRAFT, SENT, PAID
	IssueDate   time.Time       `gorm:"type:date;not null" json:"issue_date"`
	DueDate     *time.Time      `gorm:"type:date" json:"due_date"`
	PaidAt      *time.Time      `json:"paid_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
