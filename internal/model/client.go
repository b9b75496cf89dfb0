package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegimeFiscal enum constants
const (
	RegimeIGS  = "IGS"  // impôt général synthétique (revenue below the réel threshold)
	RegimeReel = "REEL" // régime du réel
)

// Client represents a company managed by the firm
type Client struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	NIU           string          `gorm:"type:varchar(50);uniqueIndex" json:"niu"` // numéro d'identifiant unique (tax id)
	RegimeFiscal  string          `gorm:"type:varchar(10);not null;default:'IGS';index" json:"regime_fiscal"`
	CGAMember     bool            `gorm:"default:false" json:"cga_member"` // centre de gestion agréé membership
	AnnualRevenue decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"annual_revenue"`
	Activity      string          `gorm:"type:varchar(255)" json:"activity"`
	Address       string          `gorm:"type:text" json:"address"`
	City          string          `gorm:"type:varchar(100)" json:"city"`
	ContactPerson string          `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string          `gorm:"type:varchar(50)" json:"phone"`
	Email         string          `gorm:"type:varchar(255)" json:"email"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ClientFiscalProfile holds a client's fiscal_data JSON blob: attestation and
// obligation records. One row per client; Data is the wire payload decoded by
// the fiscal package.
type ClientFiscalProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"client_id"`
	Client    *Client   `gorm:"foreignKey:ClientID;constraint:OnDelete:CASCADE" json:"client,omitempty"`
	Data      string    `gorm:"type:jsonb;not null;default:'{}'" json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
