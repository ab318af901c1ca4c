package ebm

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"bitbucket.org/medilink/pharmacy_backend/config"
	"bitbucket.org/medilink/pharmacy_backend/models"
	"bitbucket.org/medilink/pharmacy_backend/utils"
	"github.com/gin-gonic/gin"
)

func resolveCompanyID(c *gin.Context) (string, error) {
	if companyId, ok := utils.GetCompanyIdFromContext(c.Request.Context()); ok && companyId != "" {
		return companyId, nil
	}
	if companyId := strings.TrimSpace(c.Query("company_id")); companyId != "" {
		return companyId, nil
	}
	return "", errors.New("unauthorized")
}

// SyncStatusHandler returns the company's reference-code sync state. A
// missing row reads as UNSYNCED.
func SyncStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, err := resolveCompanyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetCompanyIdInContext(c.Request.Context(), companyId)

		status, err := models.GetCodeSyncStatus(ctx, config.GetDB(), companyId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if status == nil {
			c.JSON(http.StatusOK, gin.H{"state": "UNSYNCED"})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// ForceSyncHandler re-fetches the code catalog for the company, bypassing
// the SUCCESS short-circuit.
func ForceSyncHandler(codes *CodeSyncService) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, err := resolveCompanyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetCompanyIdInContext(c.Request.Context(), companyId)

		if err := codes.ForceSync(ctx, companyId); err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// TriggerSyncHandler queues an asynchronous sync for the company via
// Pub/Sub instead of running it on the request.
func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, err := resolveCompanyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			Force bool `json:"force"`
		}
		_ = c.ShouldBindJSON(&req)

		if err := PublishSyncRequest(c.Request.Context(), companyId, req.Force); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
	}
}

// SyncNoticesHandler fetches and distributes new authority notices for the
// company on the request.
func SyncNoticesHandler(notices *NoticeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, err := resolveCompanyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ctx := utils.SetCompanyIdInContext(c.Request.Context(), companyId)

		if err := notices.SyncNotices(ctx, companyId); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

const deviceSerialCacheTTL = 24 * time.Hour

func deviceSerialCacheKey(companyId string) string {
	return "ebm:device-serial:" + companyId
}

// resolveDeviceSerial prefers the request value, then the cached serial for
// the company, then the EBM_DEVICE_SERIAL fallback.
func resolveDeviceSerial(companyId string, requested string) string {
	if serial := strings.TrimSpace(requested); serial != "" {
		return serial
	}
	var cached string
	if found, err := config.GetRedisObject(deviceSerialCacheKey(companyId), &cached); err == nil && found && cached != "" {
		return cached
	}
	return strings.TrimSpace(os.Getenv("EBM_DEVICE_SERIAL"))
}

// InitializeDeviceHandler registers a fiscal device serial for the company's
// branch and relays the authority's response envelope as-is. A successful
// registration caches the serial so later calls can omit it.
func InitializeDeviceHandler(gateway Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId, err := resolveCompanyID(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req struct {
			BranchId     int    `json:"branch_id"`
			DeviceSerial string `json:"device_serial"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		serial := resolveDeviceSerial(companyId, req.DeviceSerial)
		if serial == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "device_serial is required"})
			return
		}

		ctx := utils.SetCompanyIdInContext(c.Request.Context(), companyId)
		db := config.GetDB()

		company, err := models.GetCompany(ctx, db, companyId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var branch *models.Branch
		if req.BranchId > 0 {
			branch, err = models.GetBranch(ctx, db, companyId, req.BranchId)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		mc := MapperContext{Company: company, Branch: branch}
		resp := gateway.Send(ctx, EndpointInitInfo, BuildInitPayload(mc, serial))
		if resp.IsSuccess() {
			if err := config.SetRedisObject(deviceSerialCacheKey(companyId), serial, deviceSerialCacheTTL); err != nil {
				config.LogError(config.GetLogger(), "ebm", "InitializeDeviceHandler", "cache device serial for company "+companyId, nil, err)
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
