package main

import (
	"errors"
	"net/http"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"github.com/gin-gonic/gin"
)

type loginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// loginHandler authenticates by username/password and issues a JWT. Failed
// attempts count toward lockout; a locked account refuses even a correct
// password until an administrator clears it.
func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		var input loginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}

		ctx := c.Request.Context()
		user, err := models.GetUserByUsername(ctx, input.Username)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			respondError(c, err)
			return
		}

		if !user.IsUsable() {
			recordLoginAudit(c, user, models.AuditActionLoginFail, "account not active")
			c.JSON(http.StatusForbidden, gin.H{"error": "account is locked or inactive"})
			return
		}

		if err := utils.ComparePassword(user.Password, input.Password); err != nil {
			if err := models.RecordFailedLogin(ctx, user.ID); err != nil {
				config.LogError(logger, "auth.go", "loginHandler", "RecordFailedLogin", user.ID, err)
			}
			recordLoginAudit(c, user, models.AuditActionLoginFail, "bad password")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		if err := models.ResetFailedLogins(ctx, user.ID, c.ClientIP()); err != nil {
			config.LogError(logger, "auth.go", "loginHandler", "ResetFailedLogins", user.ID, err)
		}

		token, err := utils.JwtGenerate(user.ID, user.Username, user.FullName, user.RoleId, user.Role.RoleName)
		if err != nil {
			respondError(c, err)
			return
		}

		recordLoginAudit(c, user, models.AuditActionLogin, "")
		c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
	}
}

// recordLoginAudit writes a login audit row under the target user's own
// identity, since no token context exists yet at login time.
func recordLoginAudit(c *gin.Context, user *models.User, action models.AuditAction, reason string) {
	ctx := utils.SetUserIdInContext(c.Request.Context(), user.ID)
	ctx = utils.SetUsernameInContext(ctx, user.Username)

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := models.EmitAuditTx(tx, action, user.ID, "users", nil, nil, "Login attempt", reason); err != nil {
		config.LogError(config.GetLogger(), "auth.go", "recordLoginAudit", "EmitAuditTx", user.ID, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(config.GetLogger(), "auth.go", "recordLoginAudit", "Commit", user.ID, err)
	}
}
