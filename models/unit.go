package models

import (
	"context"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"gorm.io/gorm"
)

// Master data consumed read-only by the engine: organizational units and
// their departments/sections. Administration lives outside this service.

type Unit struct {
	ID        int       `gorm:"primary_key" json:"id"`
	UnitCode  string    `gorm:"size:50;not null;unique" json:"unit_code" binding:"required"`
	UnitName  string    `gorm:"size:255;not null" json:"unit_name" binding:"required"`
	Location  string    `gorm:"size:255" json:"location"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Department struct {
	ID             int       `gorm:"primary_key" json:"id"`
	UnitId         int       `gorm:"not null;index" json:"unit_id" binding:"required"`
	DepartmentName string    `gorm:"size:255;not null" json:"department_name" binding:"required"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Section struct {
	ID           int       `gorm:"primary_key" json:"id"`
	DepartmentId int       `gorm:"not null;index" json:"department_id" binding:"required"`
	SectionName  string    `gorm:"size:255;not null" json:"section_name" binding:"required"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetUnit(ctx context.Context, id int) (*Unit, error) {
	db := config.GetDB()
	var unit Unit
	if err := db.WithContext(ctx).Where("id = ?", id).First(&unit).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &unit, nil
}

func GetDepartment(ctx context.Context, id int) (*Department, error) {
	db := config.GetDB()
	var dept Department
	if err := db.WithContext(ctx).Where("id = ?", id).First(&dept).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &dept, nil
}

func GetSection(ctx context.Context, id int) (*Section, error) {
	db := config.GetDB()
	var section Section
	if err := db.WithContext(ctx).Where("id = ?", id).First(&section).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &section, nil
}
