package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models/reports"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"github.com/gin-gonic/gin"
)

func reportAccess(c *gin.Context) bool {
	ctx := c.Request.Context()
	roleId, ok := utils.GetRoleIdFromContext(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	privileges, err := models.GetPrivilegeCodenames(ctx, roleId)
	if err != nil {
		respondError(c, err)
		return false
	}
	if !privileges[models.PrivilegeViewReports] {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}

func summaryReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !reportAccess(c) {
			return
		}
		var unitId *int
		if v, err := strconv.Atoi(c.Query("unit_id")); err == nil && v > 0 {
			unitId = &v
		}
		summary, err := reports.GetSummaryReport(c.Request.Context(), unitId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// destructionDueReportHandler lists crates due for destruction within the
// current month. format=xlsx streams a workbook instead of JSON.
func destructionDueReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !reportAccess(c) {
			return
		}
		var unitId *int
		if v, err := strconv.Atoi(c.Query("unit_id")); err == nil && v > 0 {
			unitId = &v
		}
		data, err := reports.GetDestructionDueReport(c.Request.Context(), unitId, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}

		if c.Query("format") == "xlsx" {
			c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			c.Header("Content-Disposition", "attachment; filename=destruction-due.xlsx")
			if err := reports.ExportDestructionDueExcel(c.Writer, data); err != nil {
				respondError(c, err)
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"crates": data})
	}
}
