package models

import (
	"context"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"gorm.io/gorm"
)

const maxFailedLoginAttempts = 5

type User struct {
	ID                  int        `gorm:"primary_key" json:"id"`
	Username            string     `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	FullName            string     `gorm:"size:255;not null" json:"full_name" binding:"required"`
	Email               *string    `gorm:"size:100;unique" json:"email"`
	Password            string     `gorm:"size:255;not null" json:"-"`
	Status              UserStatus `gorm:"type:enum('Active','Inactive','Suspended','Locked');default:Active" json:"status"`
	RoleId              int        `gorm:"not null;index" json:"role_id" binding:"required"`
	Role                Role       `json:"role"`
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"failed_login_attempts"`
	LockedUntil         *time.Time `json:"locked_until"`
	LastLoginIP         string     `gorm:"size:45" json:"last_login_ip"`
	Units               []*Unit    `gorm:"many2many:user_units" json:"units"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username string  `json:"username" binding:"required"`
	FullName string  `json:"full_name" binding:"required"`
	Email    *string `json:"email"`
	Password string  `json:"password" binding:"required,min=8"`
	RoleId   int     `json:"role_id" binding:"required"`
	UnitIds  []int   `json:"unit_ids"`
}

// IsUsable reports whether the account may act at all. A Locked account with
// an expired LockedUntil stays locked until an administrator clears it.
func (u *User) IsUsable() bool {
	return u.Status == UserStatusActive
}

func GetUserByUsername(ctx context.Context, username string) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Preload("Role").Preload("Units").
		Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	if err := db.WithContext(ctx).Preload("Role").Preload("Units").
		Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// RecordFailedLogin bumps the failure counter and locks the account once the
// threshold is reached.
func RecordFailedLogin(ctx context.Context, userId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Where("id = ?", userId).First(&user).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"failed_login_attempts": gorm.Expr("failed_login_attempts + 1"),
		}
		if user.FailedLoginAttempts+1 >= maxFailedLoginAttempts {
			updates["status"] = UserStatusLocked
			now := time.Now().UTC()
			updates["locked_until"] = &now
		}
		return tx.Model(&User{}).Where("id = ?", userId).Updates(updates).Error
	})
}

func ResetFailedLogins(ctx context.Context, userId int, loginIP string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&User{}).Where("id = ?", userId).
		Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"last_login_ip":         loginIP,
		}).Error
}

// UserBelongsToUnit reports whether the user may act on records of the unit.
// System Admins pass implicitly (checked by the caller via context).
func UserBelongsToUnit(user *User, unitId int) bool {
	for _, u := range user.Units {
		if u.ID == unitId {
			return true
		}
	}
	return false
}
