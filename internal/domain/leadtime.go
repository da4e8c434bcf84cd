package domain

import "time"

type Category string

const (
	CategoryMTS Category = "MTS"
	CategoryMTO Category = "MTO"
)

type LeadTimeStatus string

const (
	StatusOnTime   LeadTimeStatus = "on_time"
	StatusDelayed  LeadTimeStatus = "delayed"
	StatusCritical LeadTimeStatus = "critical"
	StatusUnknown  LeadTimeStatus = "unknown"
)

// LeadTime is the stage breakdown of one production batch from release (or
// purchase order for MTO) until it leaves the distribution centre.
type LeadTime struct {
	OrderNumber     string         `db:"order_number" json:"order_number"`
	Batch           string         `db:"batch" json:"batch"`
	MaterialCode    string         `db:"material_code" json:"material_code"`
	PlantCode       int64          `db:"plant_code" json:"plant_code"`
	Category        Category       `db:"category" json:"category"`
	PONumber        string         `db:"po_number" json:"po_number,omitempty"`
	PODate          *time.Time     `db:"po_date" json:"po_date"`
	ReleaseDate     *time.Time     `db:"release_date" json:"release_date"`
	FinishDate      *time.Time     `db:"finish_date" json:"finish_date"`
	ReceiptAt       *time.Time     `db:"receipt_at" json:"receipt_at"`
	IssueAt         *time.Time     `db:"issue_at" json:"issue_at"`
	DeliveryNumber  string         `db:"delivery_number" json:"delivery_number,omitempty"`
	DeliveryGIDate  *time.Time     `db:"delivery_gi_date" json:"delivery_gi_date"`
	PreparationDays *int           `db:"preparation_days" json:"preparation_days"`
	ProductionDays  *int           `db:"production_days" json:"production_days"`
	TransitDays     *int           `db:"transit_days" json:"transit_days"`
	StorageDays     *int           `db:"storage_days" json:"storage_days"`
	DeliveryDays    *int           `db:"delivery_days" json:"delivery_days"`
	TotalDays       *int           `db:"total_days" json:"total_days"`
	TargetDays      int            `db:"target_days" json:"target_days"`
	Status          LeadTimeStatus `db:"status" json:"status"`
	RowHash         string         `db:"row_hash" json:"-"`
}
