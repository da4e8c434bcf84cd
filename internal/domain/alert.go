package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AlertType string

const (
	AlertStuckInTransit AlertType = "stuck_in_transit"
	AlertLowYield       AlertType = "low_yield"
)

type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// Alert is unique per (batch, alert type); re-detection updates the row.
type Alert struct {
	ID           int64               `db:"id" json:"id"`
	Batch        string              `db:"batch" json:"batch"`
	AlertType    AlertType           `db:"alert_type" json:"alert_type"`
	Severity     Severity            `db:"severity" json:"severity"`
	Status       AlertStatus         `db:"status" json:"status"`
	MaterialCode string              `db:"material_code" json:"material_code"`
	PlantCode    int64               `db:"plant_code" json:"plant_code"`
	OrderNumber  string              `db:"order_number" json:"order_number"`
	ReceiptAt    *time.Time          `db:"receipt_at" json:"receipt_at"`
	StuckHours   decimal.NullDecimal `db:"stuck_hours" json:"stuck_hours"`
	YieldPct     decimal.NullDecimal `db:"yield_pct" json:"yield_pct"`
	Message      string              `db:"message" json:"message"`
	DetectedAt   time.Time           `db:"detected_at" json:"detected_at"`
	ResolvedAt   *time.Time          `db:"resolved_at" json:"resolved_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}
