package main

import (
	"net/http"
	"strconv"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/workflow"
	"github.com/gin-gonic/gin"
)

func getCrateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		crate, err := models.GetCrate(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, crate)
	}
}

func listCratesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.CrateFilter{
			Status:  models.CrateStatus(c.Query("status")),
			Barcode: c.Query("barcode"),
		}
		filter.UnitId, _ = strconv.Atoi(c.Query("unit_id"))
		filter.Limit, _ = strconv.Atoi(c.Query("limit"))
		filter.Offset, _ = strconv.Atoi(c.Query("offset"))

		crates, total, err := models.ListCrates(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"crates": crates, "total": total})
	}
}

// listCrateDocumentsHandler returns the crate's documents. Documents out on
// an issued withdrawal are hidden unless include_withdrawn=true.
func listCrateDocumentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		excludeWithdrawn := c.Query("include_withdrawn") != "true"
		docs, err := models.ListCrateDocuments(c.Request.Context(), id, excludeWithdrawn)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs})
	}
}

func relocateCrateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var input allocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		crate, err := workflow.RelocateCrate(c.Request.Context(), id, input.Location, input.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, crate)
	}
}

func listAuditTrailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.AuditFilter{
			Action:        models.AuditAction(c.Query("action")),
			ReferenceType: c.Query("reference_type"),
		}
		filter.ReferenceId, _ = strconv.Atoi(c.Query("reference_id"))
		filter.UserId, _ = strconv.Atoi(c.Query("user_id"))
		filter.Limit, _ = strconv.Atoi(c.Query("limit"))
		filter.Offset, _ = strconv.Atoi(c.Query("offset"))

		rows, total, err := models.ListAuditTrail(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"audit": rows, "total": total})
	}
}
