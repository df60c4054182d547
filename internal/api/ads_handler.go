package api

import (
	"errors"
	"net/http"

	"github.com/fouadsmari/DIA360-sub000/internal/model"
	"github.com/fouadsmari/DIA360-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdsHandler Facebook Ads sync, cached data and credential endpoints
type AdsHandler struct {
	sync        *service.SyncService
	aggregation *service.AggregationService
	credentials *service.CredentialService
	scheduler   *service.Scheduler
	logger      *logrus.Logger
}

// NewAdsHandler scheduler may be nil, the sweep endpoint then answers 503.
func NewAdsHandler(syncSvc *service.SyncService, aggregation *service.AggregationService, credentials *service.CredentialService, scheduler *service.Scheduler, logger *logrus.Logger) *AdsHandler {
	return &AdsHandler{
		sync:        syncSvc,
		aggregation: aggregation,
		credentials: credentials,
		scheduler:   scheduler,
		logger:      logger,
	}
}

type rangeRequest struct {
	AccountID string `json:"account_id" form:"account_id" binding:"required"`
	DateFrom  string `json:"date_from" form:"date_from" binding:"required"`
	DateTo    string `json:"date_to" form:"date_to" binding:"required"`
}

// SmartSync POST /api/facebook/smart-sync
func (h *AdsHandler) SmartSync(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	result, err := h.sync.SmartSync(c.Request.Context(), req.AccountID, req.DateFrom, req.DateTo)
	if err != nil {
		respondError(c, h.logger, "smart_sync", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Availability GET /api/facebook/availability?account_id=&date_from=&date_to=
func (h *AdsHandler) Availability(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	avail, err := h.sync.Availability(c.Request.Context(), req.AccountID, req.DateFrom, req.DateTo)
	if err != nil {
		respondError(c, h.logger, "availability", err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

// Sync POST /api/facebook/sync, blocks until the run ends.
// A failed run is still a 200: the failure is on the run record.
func (h *AdsHandler) Sync(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	run, err := h.sync.Run(c.Request.Context(), req.AccountID, req.DateFrom, req.DateTo)
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "run": run})
	case err != nil && run == nil:
		respondError(c, h.logger, "sync", err)
	default:
		c.JSON(http.StatusOK, run)
	}
}

// GetRun GET /api/facebook/sync/:run_id
func (h *AdsHandler) GetRun(c *gin.Context) {
	run, err := h.sync.GetRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		respondError(c, h.logger, "get_run", err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// LatestRun GET /api/facebook/sync/latest?account_id=&date_from=&date_to=
func (h *AdsHandler) LatestRun(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	run, err := h.sync.LatestRun(c.Request.Context(), req.AccountID, req.DateFrom, req.DateTo)
	if err != nil {
		respondError(c, h.logger, "latest_run", err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// ListAds GET /api/facebook/data/ads?account_id=&date_from=&date_to=&level=&campaign_id=&ad_id=&page=&page_size=
func (h *AdsHandler) ListAds(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	page, pageSize := paging(c)
	rows, total, err := h.aggregation.ListRows(c.Request.Context(), model.MetricFilter{
		AccountID:  req.AccountID,
		DateFrom:   req.DateFrom,
		DateTo:     req.DateTo,
		Level:      model.InsightsLevel(c.Query("level")),
		CampaignID: c.Query("campaign_id"),
		AdID:       c.Query("ad_id"),
	}, page, pageSize)
	if err != nil {
		respondError(c, h.logger, "list_ads", err)
		return
	}
	c.JSON(http.StatusOK, PageResult[*model.AdsMetric]{Items: rows, Total: total, Page: page, PageSize: pageSize})
}

// AccountSummary GET /api/facebook/data/account?account_id=&date_from=&date_to=[&compare_from=&compare_to=|&compare=previous]
func (h *AdsHandler) AccountSummary(c *gin.Context) {
	var req rangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	out, err := h.aggregation.AccountSummary(c.Request.Context(), service.SummaryRequest{
		AccountID:       req.AccountID,
		DateFrom:        req.DateFrom,
		DateTo:          req.DateTo,
		CompareFrom:     c.Query("compare_from"),
		CompareTo:       c.Query("compare_to"),
		ComparePrevious: c.Query("compare") == "previous",
	})
	if err != nil {
		respondError(c, h.logger, "account_summary", err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// Purge DELETE /api/facebook/data?account_id=[&date_from=&date_to=]
func (h *AdsHandler) Purge(c *gin.Context) {
	n, err := h.sync.Purge(c.Request.Context(), c.Query("account_id"), c.Query("date_from"), c.Query("date_to"))
	if err != nil {
		respondError(c, h.logger, "purge", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// Sweep POST /api/facebook/sweep runs the scheduled lookback sync now.
func (h *AdsHandler) Sweep(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduled sync is not configured"})
		return
	}
	res, err := h.scheduler.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "sweep", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListCredentials GET /api/facebook/credentials
func (h *AdsHandler) ListCredentials(c *gin.Context) {
	list, err := h.credentials.ListCredentials(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list_credentials", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": list})
}

// CreateCredential POST /api/facebook/credentials
func (h *AdsHandler) CreateCredential(c *gin.Context) {
	var in service.CredentialInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	cred, err := h.credentials.CreateCredential(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, "create_credential", err)
		return
	}
	c.JSON(http.StatusCreated, cred)
}

// DeleteCredential DELETE /api/facebook/credentials/:id
func (h *AdsHandler) DeleteCredential(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.credentials.DeleteCredential(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "delete_credential", err)
		return
	}
	c.Status(http.StatusNoContent)
}
