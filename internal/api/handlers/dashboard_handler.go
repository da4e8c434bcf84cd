package handlers

import (
	"net/http"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/service"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the read-only analytics endpoints.
type DashboardHandler struct {
	analytics *service.AnalyticsService
}

func NewDashboardHandler(analytics *service.AnalyticsService) *DashboardHandler {
	return &DashboardHandler{analytics: analytics}
}

// respond runs fetch with the parsed filter and writes its result.
func respond[T any](c *gin.Context, what string, fetch func(domain.DashboardFilter) (T, error)) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := fetch(filter)
	if err != nil {
		writeError(c, err, "failed to fetch "+what)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *DashboardHandler) ARSnapshots(c *gin.Context) {
	snapshots, err := h.analytics.ARSnapshots(c.Request.Context())
	if err != nil {
		writeError(c, err, "failed to fetch ar snapshots")
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

func (h *DashboardHandler) ARSummary(c *gin.Context) {
	snapshot, err := parseDate(c, "snapshot_date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	summary, err := h.analytics.ARSummary(c.Request.Context(), snapshot)
	if err != nil {
		writeError(c, err, "failed to fetch ar summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *DashboardHandler) SalesSummary(c *gin.Context) {
	respond(c, "sales summary", func(f domain.DashboardFilter) (*domain.SalesSummary, error) {
		return h.analytics.SalesSummary(c.Request.Context(), f)
	})
}

func (h *DashboardHandler) SalesByDivision(c *gin.Context) {
	respond(c, "sales by division", func(f domain.DashboardFilter) ([]domain.SalesByDivision, error) {
		return h.analytics.SalesByDivision(c.Request.Context(), f)
	})
}

func (h *DashboardHandler) YieldSummary(c *gin.Context) {
	completed := domain.CompletedPredicate{Statuses: parseList(c, "completed_statuses")}
	respond(c, "yield summary", func(f domain.DashboardFilter) (*domain.YieldSummary, error) {
		return h.analytics.YieldSummary(c.Request.Context(), f, completed)
	})
}

func (h *DashboardHandler) InventorySummary(c *gin.Context) {
	respond(c, "inventory summary", func(f domain.DashboardFilter) ([]domain.InventorySummary, error) {
		return h.analytics.InventoryByPlant(c.Request.Context(), f)
	})
}

func (h *DashboardHandler) InventoryStock(c *gin.Context) {
	respond(c, "current stock", func(f domain.DashboardFilter) ([]domain.StockItem, error) {
		return h.analytics.CurrentStock(c.Request.Context(), f)
	})
}

func (h *DashboardHandler) MTOSummary(c *gin.Context) {
	respond(c, "mto summary", func(f domain.DashboardFilter) (*domain.MTOSummary, error) {
		return h.analytics.MTOSummary(c.Request.Context(), f)
	})
}

func (h *DashboardHandler) MTOOrders(c *gin.Context) {
	respond(c, "mto orders", func(f domain.DashboardFilter) ([]domain.LeadTime, error) {
		return h.analytics.MTOOrders(c.Request.Context(), f)
	})
}

func (h *DashboardHandler) LeadTimeSummary(c *gin.Context) {
	respond(c, "lead time summary", func(f domain.DashboardFilter) ([]domain.LeadTimeSummary, error) {
		return h.analytics.LeadTimeSummary(c.Request.Context(), f)
	})
}

func (h *DashboardHandler) LeadTimeOrders(c *gin.Context) {
	respond(c, "lead time orders", func(f domain.DashboardFilter) ([]domain.LeadTime, error) {
		return h.analytics.LeadTimeOrders(c.Request.Context(), f)
	})
}

func (h *DashboardHandler) AlertSummary(c *gin.Context) {
	respond(c, "alert summary", func(f domain.DashboardFilter) ([]domain.AlertSummary, error) {
		return h.analytics.AlertSummary(c.Request.Context(), f)
	})
}

func (h *DashboardHandler) Alerts(c *gin.Context) {
	respond(c, "alerts", func(f domain.DashboardFilter) ([]domain.Alert, error) {
		return h.analytics.Alerts(c.Request.Context(), f)
	})
}
