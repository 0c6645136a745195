package repository

import (
	"dbaccountsync/config"
	"dbaccountsync/models"

	"gorm.io/gorm"
)

// TargetRepository provides data access operations for target system records.
type TargetRepository interface {
	GetByID(tx *gorm.DB, id uint) (*models.TargetSystem, error)
	GetAllEnabled(tx *gorm.DB) ([]models.TargetSystem, error)
	Count(tx *gorm.DB) (int64, error)
}

type targetRepository struct {
	db *gorm.DB
}

// NewTargetRepository creates a new target system repository instance.
func NewTargetRepository() TargetRepository {
	return &targetRepository{
		db: config.DB,
	}
}

func (r *targetRepository) GetByID(tx *gorm.DB, id uint) (*models.TargetSystem, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var target models.TargetSystem
	if err := db.First(&target, id).Error; err != nil {
		return nil, err
	}
	return &target, nil
}

func (r *targetRepository) GetAllEnabled(tx *gorm.DB) ([]models.TargetSystem, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var targets []models.TargetSystem
	if err := db.Model(models.TargetSystem{}).Where("status = ?", "enabled").Find(&targets).Error; err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *targetRepository) Count(tx *gorm.DB) (int64, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var count int64
	if err := db.Model(&models.TargetSystem{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
