package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type FactBilling struct {
	BillingDocument string              `db:"billing_document" json:"billing_document"`
	BillingItem     int64               `db:"billing_item" json:"billing_item"`
	BillingDate     time.Time           `db:"billing_date" json:"billing_date"`
	Semester        int                 `db:"semester" json:"semester"`
	Year            int                 `db:"year" json:"year"`
	DistChannel     string              `db:"dist_channel" json:"dist_channel"`
	Division        string              `db:"division" json:"division"`
	SalesOffice     string              `db:"sales_office" json:"sales_office"`
	CustomerName    string              `db:"customer_name" json:"customer_name"`
	CustGroup       string              `db:"cust_group" json:"cust_group"`
	SalesmanName    string              `db:"salesman_name" json:"salesman_name"`
	MaterialCode    string              `db:"material_code" json:"material_code"`
	MaterialDesc    string              `db:"material_desc" json:"material_desc"`
	ProdHierarchy   string              `db:"prod_hierarchy" json:"prod_hierarchy"`
	BillingQty      decimal.NullDecimal `db:"billing_qty" json:"billing_qty"`
	SalesUnit       string              `db:"sales_unit" json:"sales_unit"`
	Currency        string              `db:"currency" json:"currency"`
	NetValue        decimal.NullDecimal `db:"net_value" json:"net_value"`
	Tax             decimal.NullDecimal `db:"tax" json:"tax"`
	Total           decimal.NullDecimal `db:"total" json:"total"`
	NetWeight       decimal.NullDecimal `db:"net_weight" json:"net_weight"`
	SONumber        string              `db:"so_number" json:"so_number"`
	SODate          *time.Time          `db:"so_date" json:"so_date"`
	DeliveryRef     string              `db:"doc_reference_od" json:"doc_reference_od"`
	RowHash         string              `db:"row_hash" json:"-"`
}

type FactProduction struct {
	OrderNumber   string              `db:"order_number" json:"order_number"`
	Batch         string              `db:"batch" json:"batch"`
	PlantCode     int64               `db:"plant_code" json:"plant_code"`
	SalesOrder    string              `db:"sales_order" json:"sales_order"`
	OrderType     string              `db:"order_type" json:"order_type"`
	MaterialCode  string              `db:"material_code" json:"material_code"`
	MaterialDesc  string              `db:"material_desc" json:"material_desc"`
	ReleaseDate   *time.Time          `db:"release_date" json:"release_date"`
	FinishDate    *time.Time          `db:"finish_date" json:"finish_date"`
	SystemStatus  string              `db:"system_status" json:"system_status"`
	MRPController string              `db:"mrp_controller" json:"mrp_controller"`
	OrderQty      decimal.NullDecimal `db:"order_qty" json:"order_qty"`
	DeliveredQty  decimal.NullDecimal `db:"delivered_qty" json:"delivered_qty"`
	UoM           string              `db:"uom" json:"uom"`
	RowHash       string              `db:"row_hash" json:"-"`
}

type FactDelivery struct {
	Delivery          string              `db:"delivery" json:"delivery"`
	LineItem          int64               `db:"line_item" json:"line_item"`
	DeliveryDate      *time.Time          `db:"delivery_date" json:"delivery_date"`
	ActualGIDate      *time.Time          `db:"actual_gi_date" json:"actual_gi_date"`
	SOReference       string              `db:"so_reference" json:"so_reference"`
	DeliveryType      string              `db:"delivery_type" json:"delivery_type"`
	ShippingPoint     string              `db:"shipping_point" json:"shipping_point"`
	DistChannel       string              `db:"dist_channel" json:"dist_channel"`
	SoldToParty       string              `db:"sold_to_party" json:"sold_to_party"`
	ShipToName        string              `db:"ship_to_name" json:"ship_to_name"`
	SalesmanName      string              `db:"salesman_name" json:"salesman_name"`
	MaterialCode      string              `db:"material_code" json:"material_code"`
	MaterialDesc      string              `db:"material_desc" json:"material_desc"`
	DeliveryQty       decimal.NullDecimal `db:"delivery_qty" json:"delivery_qty"`
	ActualDeliveryQty decimal.NullDecimal `db:"actual_delivery_qty" json:"actual_delivery_qty"`
	SalesUnit         string              `db:"sales_unit" json:"sales_unit"`
	NetWeight         decimal.NullDecimal `db:"net_weight" json:"net_weight"`
	MovementStatus    string              `db:"movement_status" json:"movement_status"`
	RowHash           string              `db:"row_hash" json:"-"`
}

type FactARAging struct {
	SnapshotDate        time.Time           `db:"snapshot_date" json:"snapshot_date"`
	CustomerCode        string              `db:"customer_code" json:"customer_code"`
	DocumentNumber      string              `db:"document_number" json:"document_number"`
	CustomerName        string              `db:"customer_name" json:"customer_name"`
	ProfitCenter        string              `db:"profit_center" json:"profit_center"`
	DistChannel         string              `db:"dist_channel" json:"dist_channel"`
	Division            string              `db:"division" json:"division"`
	CustomerGroup       string              `db:"customer_group" json:"customer_group"`
	SalesmanName        string              `db:"salesman_name" json:"salesman_name"`
	Currency            string              `db:"currency" json:"currency"`
	Target1To30         decimal.NullDecimal `db:"target_1_30" json:"target_1_30"`
	Target31To60        decimal.NullDecimal `db:"target_31_60" json:"target_31_60"`
	Target61To90        decimal.NullDecimal `db:"target_61_90" json:"target_61_90"`
	Target91To120       decimal.NullDecimal `db:"target_91_120" json:"target_91_120"`
	Target121To180      decimal.NullDecimal `db:"target_121_180" json:"target_121_180"`
	TargetOver180       decimal.NullDecimal `db:"target_over_180" json:"target_over_180"`
	TotalTarget         decimal.NullDecimal `db:"total_target" json:"total_target"`
	RealizationNotDue   decimal.NullDecimal `db:"realization_not_due" json:"realization_not_due"`
	Realization1To30    decimal.NullDecimal `db:"realization_1_30" json:"realization_1_30"`
	Realization31To60   decimal.NullDecimal `db:"realization_31_60" json:"realization_31_60"`
	Realization61To90   decimal.NullDecimal `db:"realization_61_90" json:"realization_61_90"`
	Realization91To120  decimal.NullDecimal `db:"realization_91_120" json:"realization_91_120"`
	Realization121To180 decimal.NullDecimal `db:"realization_121_180" json:"realization_121_180"`
	RealizationOver180  decimal.NullDecimal `db:"realization_over_180" json:"realization_over_180"`
	TotalRealization    decimal.NullDecimal `db:"total_realization" json:"total_realization"`
	RowHash             string              `db:"row_hash" json:"-"`
}

// FactPurchaseOrder aggregates every item of a purchase order per material.
type FactPurchaseOrder struct {
	PONumber       string          `db:"po_number" json:"po_number"`
	MaterialCode   string          `db:"material_code" json:"material_code"`
	PODate         *time.Time      `db:"po_date" json:"po_date"`
	SupplyingPlant *int64          `db:"supplying_plant" json:"supplying_plant"`
	DestPlant      *int64          `db:"dest_plant" json:"dest_plant"`
	MaterialDesc   string          `db:"material_desc" json:"material_desc"`
	ItemCount      int             `db:"item_count" json:"item_count"`
	QtyOrder       decimal.Decimal `db:"qty_order" json:"qty_order"`
	TonnageOrder   decimal.Decimal `db:"tonnage_order" json:"tonnage_order"`
	QtyGI          decimal.Decimal `db:"qty_gi" json:"qty_gi"`
	QtyReceipt     decimal.Decimal `db:"qty_receipt" json:"qty_receipt"`
	DeliveryDate   *time.Time      `db:"delivery_date" json:"delivery_date"`
	IsSalesPO      bool            `db:"is_sales_po" json:"is_sales_po"`
	RowHash        string          `db:"row_hash" json:"-"`
}

type FactTarget struct {
	SalesmanName string              `db:"salesman_name" json:"salesman_name"`
	Semester     int64               `db:"semester" json:"semester"`
	Year         int64               `db:"year" json:"year"`
	TargetAmount decimal.NullDecimal `db:"target_amount" json:"target_amount"`
	RowHash      string              `db:"row_hash" json:"-"`
}

// DimMaterial is the sales hierarchy projection of a material.
type DimMaterial struct {
	MaterialCode string `db:"material_code" json:"material_code"`
	MaterialDesc string `db:"material_desc" json:"material_desc"`
	DistChannel  string `db:"dist_channel" json:"dist_channel"`
	UoM          string `db:"uom" json:"uom"`
	PH1          string `db:"ph1" json:"ph1"`
	PH2          string `db:"ph2" json:"ph2"`
	PH3          string `db:"ph3" json:"ph3"`
	PH4          string `db:"ph4" json:"ph4"`
	PH5          string `db:"ph5" json:"ph5"`
	PH6          string `db:"ph6" json:"ph6"`
	PH7          string `db:"ph7" json:"ph7"`
	RowHash      string `db:"row_hash" json:"-"`
}

type ProductHierarchyNode struct {
	Level       int    `db:"level" json:"level"`
	Code        string `db:"code" json:"code"`
	Description string `db:"description" json:"description"`
}
