package main

import (
	"log"
	"os"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
)

// Seeds the privilege catalog, the core roles, and an initial administrator.
// Idempotent: existing rows are left alone, so it is safe to run on every
// deploy.
func main() {
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	db := config.GetDB()

	privileges := map[string]string{
		models.PrivilegeCreateRequest:   "Submit storage, withdrawal and destruction requests",
		models.PrivilegeApproveRequest:  "Approve, reject or send back requests",
		models.PrivilegeAllocateStorage: "Allocate storage, issue and return documents, execute destruction",
		models.PrivilegeViewReports:     "View summary and destruction-due reports",
		models.PrivilegeManageUsers:     "Manage users, roles and ops tooling",
	}
	byCodename := map[string]*models.Privilege{}
	for codename, description := range privileges {
		p := models.Privilege{Codename: codename, Name: codename, Description: description, IsActive: true}
		if err := db.Where("codename = ?", codename).FirstOrCreate(&p).Error; err != nil {
			log.Fatal(err)
		}
		byCodename[codename] = &p
	}

	roles := map[string][]string{
		"System Admin": {
			models.PrivilegeCreateRequest,
			models.PrivilegeApproveRequest,
			models.PrivilegeAllocateStorage,
			models.PrivilegeViewReports,
			models.PrivilegeManageUsers,
		},
		"Approver": {
			models.PrivilegeApproveRequest,
			models.PrivilegeViewReports,
		},
		"Requester": {
			models.PrivilegeCreateRequest,
		},
		"Store Custodian": {
			models.PrivilegeAllocateStorage,
			models.PrivilegeViewReports,
		},
	}
	var adminRole models.Role
	for roleName, codenames := range roles {
		role := models.Role{RoleName: roleName, IsCoreRole: true, IsActive: true}
		if err := db.Where("role_name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
			log.Fatal(err)
		}
		var rolePrivileges []*models.Privilege
		for _, codename := range codenames {
			rolePrivileges = append(rolePrivileges, byCodename[codename])
		}
		if err := db.Model(&role).Association("Privileges").Replace(rolePrivileges); err != nil {
			log.Fatal(err)
		}
		if err := models.InvalidateRoleCache(role.ID); err != nil {
			log.Printf("could not invalidate role cache for %q: %v", roleName, err)
		}
		if roleName == "System Admin" {
			adminRole = role
		}
	}

	username := os.Getenv("SEED_ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is required")
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		log.Fatal(err)
	}
	if count > 0 {
		log.Printf("user %q already exists; nothing to do", username)
		return
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		log.Fatal(err)
	}
	admin := models.User{
		Username: username,
		FullName: "System Administrator",
		Password: string(hashed),
		Status:   models.UserStatusActive,
		RoleId:   adminRole.ID,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Fatal(err)
	}
	log.Printf("created administrator %q with role %q", username, adminRole.RoleName)
}
