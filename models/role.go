package models

import (
	"context"
	"fmt"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
)

// Privilege codenames recognized by the transition authorization table.
const (
	PrivilegeCreateRequest   = "create_request"
	PrivilegeApproveRequest  = "approve_request"
	PrivilegeAllocateStorage = "allocate_storage"
	PrivilegeViewReports     = "view_reports"
	PrivilegeManageUsers     = "manage_users"
)

type Role struct {
	ID          int          `gorm:"primary_key" json:"id"`
	RoleName    string       `gorm:"size:100;not null;unique" json:"role_name" binding:"required"`
	Description string       `gorm:"type:text" json:"description"`
	IsCoreRole  bool         `gorm:"not null;default:false" json:"is_core_role"`
	IsActive    bool         `gorm:"not null;default:true" json:"is_active"`
	Privileges  []*Privilege `gorm:"many2many:role_privileges" json:"privileges"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type Privilege struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Codename    string    `gorm:"size:100;not null;unique" json:"codename" binding:"required"`
	Name        string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"size:50;default:system" json:"category"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

/*
cache

	RolePrivileges:$roleId
*/

// GetPrivilegeCodenames returns the active privilege codenames of a role,
// redis-cached (invalidated on role changes by the admin surface).
func GetPrivilegeCodenames(ctx context.Context, roleId int) (map[string]bool, error) {
	cacheKey := "RolePrivileges:" + fmt.Sprint(roleId)

	var codenames []string
	found, err := config.GetRedisObject(cacheKey, &codenames)
	if err != nil {
		return nil, err
	}

	if !found {
		db := config.GetDB()
		var role Role
		if err := db.WithContext(ctx).Preload("Privileges").
			Where("id = ?", roleId).First(&role).Error; err != nil {
			return nil, err
		}
		for _, p := range role.Privileges {
			if p.IsActive {
				codenames = append(codenames, p.Codename)
			}
		}
		if err := config.SetRedisObject(cacheKey, codenames, time.Hour); err != nil {
			return nil, err
		}
	}

	allowed := make(map[string]bool, len(codenames))
	for _, c := range codenames {
		allowed[c] = true
	}
	return allowed, nil
}

// InvalidateRoleCache drops the cached codenames after role changes.
func InvalidateRoleCache(roleId int) error {
	return config.RemoveRedisKey("RolePrivileges:" + fmt.Sprint(roleId))
}
