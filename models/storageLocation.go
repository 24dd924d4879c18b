package models

import (
	"context"
	"fmt"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"gorm.io/gorm"
)

// StorageLocation is one coordinate in a unit's physical hierarchy:
// room -> rack -> compartment -> shelf. Units are either 3-level (no shelf
// on any row) or 4-level (shelf on every row), never mixed. The catalog is
// master data; this engine only resolves against it and never deletes rows.
type StorageLocation struct {
	ID              int       `gorm:"primary_key" json:"id"`
	UnitId          int       `gorm:"not null;uniqueIndex:idx_location_coord" json:"unit_id" binding:"required"`
	RoomName        string    `gorm:"size:100;not null;uniqueIndex:idx_location_coord" json:"room_name" binding:"required"`
	RackName        string    `gorm:"size:100;not null;uniqueIndex:idx_location_coord" json:"rack_name" binding:"required"`
	CompartmentName string    `gorm:"size:100;not null;uniqueIndex:idx_location_coord" json:"compartment_name" binding:"required"`
	ShelfName       *string   `gorm:"size:100;uniqueIndex:idx_location_coord" json:"shelf_name"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// LocationInput is the caller-supplied coordinate for resolution.
type LocationInput struct {
	UnitId          int    `json:"unit_id" binding:"required"`
	RoomName        string `json:"room_name" binding:"required"`
	RackName        string `json:"rack_name" binding:"required"`
	CompartmentName string `json:"compartment_name" binding:"required"`
	ShelfName       string `json:"shelf_name"`
}

// FullLocation returns the compact display path, e.g. "MFG01-R1-1A" for a
// 3-level coordinate or "MFG01-R1-1A2" with a shelf.
func (s *StorageLocation) FullLocation(unitCode string) string {
	if s.ShelfName != nil && *s.ShelfName != "" {
		return fmt.Sprintf("%s-%s-%s%s%s", unitCode, s.RoomName, s.RackName, s.CompartmentName, *s.ShelfName)
	}
	return fmt.Sprintf("%s-%s-%s%s", unitCode, s.RoomName, s.RackName, s.CompartmentName)
}

// UnitHasShelves inspects the unit's existing catalog rows to decide whether
// it is 4-level. A unit with no rows at all counts as 3-level; resolution
// will fail on the coordinate lookup anyway.
func UnitHasShelves(ctx context.Context, unitId int) (bool, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&StorageLocation{}).
		Where("unit_id = ? AND shelf_name IS NOT NULL AND shelf_name != ''", unitId).
		Limit(1).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CheckShelfLevel is the pure part of the resolver: given whether the unit is
// 4-level and the supplied shelf, it decides if the input is acceptable.
func CheckShelfLevel(unitHasShelves bool, shelf string) error {
	if unitHasShelves && shelf == "" {
		return ErrShelfRequired
	}
	return nil
}

// ResolveLocation maps a coordinate to a concrete catalog row. Read-only.
func ResolveLocation(ctx context.Context, input LocationInput) (*StorageLocation, error) {
	hasShelves, err := UnitHasShelves(ctx, input.UnitId)
	if err != nil {
		return nil, err
	}
	if err := CheckShelfLevel(hasShelves, input.ShelfName); err != nil {
		return nil, err
	}

	db := config.GetDB()
	q := db.WithContext(ctx).
		Where("unit_id = ? AND room_name = ? AND rack_name = ? AND compartment_name = ?",
			input.UnitId, input.RoomName, input.RackName, input.CompartmentName)
	if hasShelves {
		q = q.Where("shelf_name = ?", input.ShelfName)
	} else {
		q = q.Where("shelf_name IS NULL OR shelf_name = ''")
	}

	var location StorageLocation
	if err := q.First(&location).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	return &location, nil
}

func GetStorageLocation(ctx context.Context, id int) (*StorageLocation, error) {
	db := config.GetDB()
	var location StorageLocation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&location).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	return &location, nil
}

// CreateStorageLocation registers a new coordinate. The first location of a
// unit fixes that unit's shelf depth; later rows must match it, so a unit
// never mixes 3- and 4-level coordinates.
func CreateStorageLocation(ctx context.Context, input LocationInput) (*StorageLocation, error) {
	db := config.GetDB()

	if err := utils.ValidateResourceId[Unit](ctx, input.UnitId); err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&StorageLocation{}).
		Where("unit_id = ?", input.UnitId).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		hasShelves, err := UnitHasShelves(ctx, input.UnitId)
		if err != nil {
			return nil, err
		}
		if err := CheckShelfLevel(hasShelves, input.ShelfName); err != nil {
			return nil, err
		}
		if !hasShelves && input.ShelfName != "" {
			return nil, fmt.Errorf("%w: this unit does not use shelves", ErrValidation)
		}
	}

	location := StorageLocation{
		UnitId:          input.UnitId,
		RoomName:        input.RoomName,
		RackName:        input.RackName,
		CompartmentName: input.CompartmentName,
	}
	location.ShelfName = utils.NilIfEmpty(input.ShelfName)
	if err := db.WithContext(ctx).Create(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func ListStorageLocations(ctx context.Context, unitId int) ([]*StorageLocation, error) {
	db := config.GetDB()
	var locations []*StorageLocation
	q := db.WithContext(ctx).Model(&StorageLocation{})
	if unitId > 0 {
		q = q.Where("unit_id = ?", unitId)
	}
	if err := q.Order("unit_id, room_name, rack_name, compartment_name, shelf_name").
		Find(&locations).Error; err != nil {
		return nil, err
	}
	return locations, nil
}
