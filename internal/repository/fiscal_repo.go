package repository

import (
	"context"

	"fiscalis/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FiscalRepository persists the per-client fiscal_data payload. The blob is
// opaque at this layer; decoding belongs to the fiscal package.
type FiscalRepository interface {
	Get(ctx context.Context, clientID uuid.UUID) (*model.ClientFiscalProfile, error)
	Save(ctx context.Context, clientID uuid.UUID, data string) error
	ListAll(ctx context.Context) ([]model.ClientFiscalProfile, error)
}

type fiscalRepository struct {
	db *gorm.DB
}

func NewFiscalRepository(db *gorm.DB) FiscalRepository {
	return &fiscalRepository{db: db}
}

func (r *fiscalRepository) Get(ctx context.Context, clientID uuid.UUID) (*model.ClientFiscalProfile, error) {
	var profile model.ClientFiscalProfile
	if err := GetDB(ctx, r.db).First(&profile, "client_id = ?", clientID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Save upserts the profile row keyed by client id.
func (r *fiscalRepository) Save(ctx context.Context, clientID uuid.UUID, data string) error {
	profile := model.ClientFiscalProfile{ClientID: clientID, Data: data}
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&profile).Error
}

func (r *fiscalRepository) ListAll(ctx context.Context) ([]model.ClientFiscalProfile, error) {
	var profiles []model.ClientFiscalProfile
	if err := GetDB(ctx, r.db).Preload("Client").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}
