package main

import (
	"net/http"
	"strconv"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/models"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"github.com/gin-gonic/gin"
)

func createStorageLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		roleId, ok := utils.GetRoleIdFromContext(ctx)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		privileges, err := models.GetPrivilegeCodenames(ctx, roleId)
		if err != nil {
			respondError(c, err)
			return
		}
		if !privileges[models.PrivilegeAllocateStorage] {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		var input models.LocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		location, err := models.CreateStorageLocation(ctx, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, location)
	}
}

func getStorageLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		location, err := models.GetStorageLocation(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

func listStorageLocationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		unitId, _ := strconv.Atoi(c.Query("unit_id"))
		locations, err := models.ListStorageLocations(c.Request.Context(), unitId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"locations": locations})
	}
}

// resolveLocationHandler is a dry-run lookup so an allocator can verify a
// coordinate (including shelf depth) before committing a signed allocation.
func resolveLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.LocationInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ProcessValidationErrors(err)})
			return
		}
		location, err := models.ResolveLocation(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}
