package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardFilter narrows dashboard queries. Zero fields do not filter.
type DashboardFilter struct {
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	SnapshotDate *time.Time `json:"snapshot_date,omitempty"`
	Status       string     `json:"status,omitempty"`
	Type         string     `json:"type,omitempty"`
	Category     Category   `json:"category,omitempty"`
	Limit        int        `json:"limit,omitempty"`
}

// CompletedPredicate decides which production orders count as completed. An
// order is completed when its system status carries any of Statuses as a
// token (SAP statuses are space separated, e.g. "REL DLV TECO").
type CompletedPredicate struct {
	Statuses []string `json:"statuses"`
}

func (p CompletedPredicate) Empty() bool { return len(p.Statuses) == 0 }

// ARSnapshot is one loaded AR aging snapshot.
type ARSnapshot struct {
	SnapshotDate time.Time `json:"snapshot_date" db:"snapshot_date"`
	RowCount     int       `json:"row_count" db:"row_count"`
}

// ARDivisionSummary is the collection position of one division.
type ARDivisionSummary struct {
	Division         string          `json:"division" db:"division"`
	Customers        int             `json:"customers" db:"customers"`
	TotalTarget      decimal.Decimal `json:"total_target" db:"total_target"`
	TotalRealization decimal.Decimal `json:"total_realization" db:"total_realization"`
	// CollectionPct is realization over target, rounded to whole percent.
	CollectionPct    decimal.Decimal `json:"collection_pct" db:"-"`
}

type ARSummary struct {
	SnapshotDate *time.Time          `json:"snapshot_date"`
	Divisions    []ARDivisionSummary `json:"divisions"`
	Total        ARDivisionSummary   `json:"total"`
}

type SalesSummary struct {
	Documents      int             `json:"documents" db:"documents"`
	Customers      int             `json:"customers" db:"customers"`
	BillingQty     decimal.Decimal `json:"billing_qty" db:"billing_qty"`
	NetWeightKg    decimal.Decimal `json:"net_weight_kg" db:"net_weight_kg"`
	NetValue       decimal.Decimal `json:"net_value" db:"net_value"`
	Tax            decimal.Decimal `json:"tax" db:"tax"`
	Total          decimal.Decimal `json:"total" db:"total"`
	TargetAmount   decimal.Decimal `json:"target_amount" db:"target_amount"`
	// AchievementPct is net value against the salesmen targets of the
	// semesters the range touches; zero without targets.
	AchievementPct decimal.Decimal `json:"achievement_pct" db:"-"`
}

type SalesByDivision struct {
	Division string          `json:"division" db:"division"`
	NetValue decimal.Decimal `json:"net_value" db:"net_value"`
	Total    decimal.Decimal `json:"total" db:"total"`
	SharePct decimal.Decimal `json:"share_pct" db:"-"`
}

type YieldSummary struct {
	Orders       int             `json:"orders" db:"orders"`
	Completed    int             `json:"completed" db:"completed"`
	OrderQty     decimal.Decimal `json:"order_qty" db:"order_qty"`
	DeliveredQty decimal.Decimal `json:"delivered_qty" db:"delivered_qty"`
	YieldPct     decimal.Decimal `json:"yield_pct" db:"-"`
	LowYield     int             `json:"low_yield" db:"low_yield"`
}

type InventorySummary struct {
	PlantCode int64           `json:"plant_code" db:"plant_code"`
	PlantName string          `json:"plant_name" db:"plant_name"`
	Materials int             `json:"materials" db:"materials"`
	Batches   int             `json:"batches" db:"batches"`
	OnHand    decimal.Decimal `json:"on_hand" db:"on_hand"`
}

// StockItem is one row of the current stock view.
type StockItem struct {
	MaterialCode     string          `json:"material_code" db:"material_code"`
	MaterialDesc     string          `json:"material_desc" db:"material_desc"`
	PlantCode        int64           `json:"plant_code" db:"plant_code"`
	PlantName        string          `json:"plant_name" db:"plant_name"`
	Batch            string          `json:"batch" db:"batch"`
	UoM              string          `json:"uom" db:"uom"`
	OnHand           decimal.Decimal `json:"on_hand" db:"on_hand"`
	LastMovementDate time.Time       `json:"last_movement_date" db:"last_movement_date"`
}

// LeadTimeSummary aggregates batch timelines of one category.
type LeadTimeSummary struct {
	Category     Category            `json:"category" db:"category"`
	Orders       int                 `json:"orders" db:"orders"`
	OnTime       int                 `json:"on_time" db:"on_time"`
	Delayed      int                 `json:"delayed" db:"delayed"`
	Critical     int                 `json:"critical" db:"critical"`
	Unknown      int                 `json:"unknown" db:"unknown"`
	AvgTotalDays decimal.NullDecimal `json:"avg_total_days" db:"avg_total_days"`
	TargetDays   int                 `json:"target_days" db:"target_days"`
}

// MTOSummary describes make-to-order batches and their purchase orders.
type MTOSummary struct {
	LeadTimeSummary
	PurchaseOrders int             `json:"purchase_orders" db:"purchase_orders"`
	QtyOrder       decimal.Decimal `json:"qty_order" db:"qty_order"`
	QtyReceipt     decimal.Decimal `json:"qty_receipt" db:"qty_receipt"`
}

type AlertSummary struct {
	Severity Severity `json:"severity" db:"severity"`
	Count    int      `json:"count" db:"count"`
}
