package transform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/repository/postgres"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// rawMeta is common to every raw row. Rows are read in id order, which is
// load order.
type rawMeta struct {
	ID       int64 `db:"id"`
	UploadID int64 `db:"upload_id"`
}

type rawBilling struct {
	rawMeta
	BillingDate     time.Time           `db:"billing_date"`
	BillingDocument string              `db:"billing_document"`
	BillingItem     int64               `db:"billing_item"`
	SalesOffice     string              `db:"sales_office"`
	DistChannel     string              `db:"dist_channel"`
	CustomerName    string              `db:"customer_name"`
	CustGroup       string              `db:"cust_group"`
	SalesmanName    string              `db:"salesman_name"`
	Material        string              `db:"material"`
	MaterialDesc    string              `db:"material_desc"`
	ProdHierarchy   string              `db:"prod_hierarchy"`
	BillingQty      decimal.NullDecimal `db:"billing_qty"`
	SalesUnit       string              `db:"sales_unit"`
	Currency        string              `db:"currency"`
	NetValue        decimal.NullDecimal `db:"net_value"`
	Tax             decimal.NullDecimal `db:"tax"`
	Total           decimal.NullDecimal `db:"total"`
	NetWeight       decimal.NullDecimal `db:"net_weight"`
	SONumber        string              `db:"so_number"`
	SODate          *time.Time          `db:"so_date"`
	DocReferenceOD  string              `db:"doc_reference_od"`
}

type rawProduction struct {
	rawMeta
	Plant         int64               `db:"plant"`
	SalesOrder    string              `db:"sales_order"`
	OrderNumber   string              `db:"order_number"`
	OrderType     string              `db:"order_type"`
	MaterialCode  string              `db:"material_code"`
	ReleaseDate   *time.Time          `db:"release_date"`
	FinishDate    *time.Time          `db:"finish_date"`
	MaterialDesc  string              `db:"material_desc"`
	Batch         string              `db:"batch"`
	SystemStatus  string              `db:"system_status"`
	MRPController string              `db:"mrp_controller"`
	OrderQty      decimal.NullDecimal `db:"order_qty"`
	DeliveredQty  decimal.NullDecimal `db:"delivered_qty"`
	UoM           string              `db:"uom"`
}

type rawDelivery struct {
	rawMeta
	DeliveryDate      *time.Time          `db:"delivery_date"`
	ActualGIDate      *time.Time          `db:"actual_gi_date"`
	Delivery          string              `db:"delivery"`
	SOReference       string              `db:"so_reference"`
	DeliveryType      string              `db:"delivery_type"`
	ShippingPoint     string              `db:"shipping_point"`
	DistChannel       string              `db:"dist_channel"`
	SoldToParty       string              `db:"sold_to_party"`
	ShipToName        string              `db:"ship_to_name"`
	SalesmanName      string              `db:"salesman_name"`
	Material          string              `db:"material"`
	MaterialDesc      string              `db:"material_desc"`
	DeliveryQty       decimal.NullDecimal `db:"delivery_qty"`
	ActualDeliveryQty decimal.NullDecimal `db:"actual_delivery_qty"`
	SalesUnit         string              `db:"sales_unit"`
	NetWeight         decimal.NullDecimal `db:"net_weight"`
	LineItem          int64               `db:"line_item"`
	MovementStatus    string              `db:"movement_status"`
}

type rawPurchaseOrder struct {
	rawMeta
	PONumber       string              `db:"po_number"`
	Item           int64               `db:"item"`
	PODate         *time.Time          `db:"po_date"`
	SupplyingPlant *int64              `db:"supplying_plant"`
	DestPlant      *int64              `db:"dest_plant"`
	Material       string              `db:"material"`
	MaterialDesc   string              `db:"material_desc"`
	QtyOrder       decimal.NullDecimal `db:"qty_order"`
	TonnageOrder   decimal.NullDecimal `db:"tonnage_order"`
	QtyGI          decimal.NullDecimal `db:"qty_gi"`
	QtyReceipt     decimal.NullDecimal `db:"qty_receipt"`
	DeliveryDate   *time.Time          `db:"delivery_date"`
}

type rawSalesHierarchy struct {
	rawMeta
	MaterialCode string `db:"material_code"`
	MaterialDesc string `db:"material_desc"`
	DistChannel  string `db:"dist_channel"`
	UoM          string `db:"uom"`
	PH1          string `db:"ph1"`
	PH1Desc      string `db:"ph1_desc"`
	PH2          string `db:"ph2"`
	PH2Desc      string `db:"ph2_desc"`
	PH3          string `db:"ph3"`
	PH3Desc      string `db:"ph3_desc"`
	PH4          string `db:"ph4"`
	PH4Desc      string `db:"ph4_desc"`
	PH5          string `db:"ph5"`
	PH5Desc      string `db:"ph5_desc"`
	PH6          string `db:"ph6"`
	PH6Desc      string `db:"ph6_desc"`
	PH7          string `db:"ph7"`
	PH7Desc      string `db:"ph7_desc"`
}

type rawARAging struct {
	rawMeta
	SnapshotDate        time.Time           `db:"snapshot_date"`
	CustomerCode        string              `db:"customer_code"`
	CustomerName        string              `db:"customer_name"`
	ProfitCenter        string              `db:"profit_center"`
	DocumentNumber      string              `db:"document_number"`
	DistChannel         string              `db:"dist_channel"`
	CustomerGroup       string              `db:"customer_group"`
	SalesmanName        string              `db:"salesman_name"`
	Currency            string              `db:"currency"`
	Target1To30         decimal.NullDecimal `db:"target_1_30"`
	Target31To60        decimal.NullDecimal `db:"target_31_60"`
	Target61To90        decimal.NullDecimal `db:"target_61_90"`
	Target91To120       decimal.NullDecimal `db:"target_91_120"`
	Target121To180      decimal.NullDecimal `db:"target_121_180"`
	TargetOver180       decimal.NullDecimal `db:"target_over_180"`
	TotalTarget         decimal.NullDecimal `db:"total_target"`
	RealizationNotDue   decimal.NullDecimal `db:"realization_not_due"`
	Realization1To30    decimal.NullDecimal `db:"realization_1_30"`
	Realization31To60   decimal.NullDecimal `db:"realization_31_60"`
	Realization61To90   decimal.NullDecimal `db:"realization_61_90"`
	Realization91To120  decimal.NullDecimal `db:"realization_91_120"`
	Realization121To180 decimal.NullDecimal `db:"realization_121_180"`
	RealizationOver180  decimal.NullDecimal `db:"realization_over_180"`
	TotalRealization    decimal.NullDecimal `db:"total_realization"`
}

type rawTarget struct {
	rawMeta
	SalesmanName string              `db:"salesman_name"`
	Semester     int64               `db:"semester"`
	Year         int64               `db:"year"`
	TargetAmount decimal.NullDecimal `db:"target_amount"`
}

// rawSelectSQL selects a family's raw table with text columns coalesced to ''.
func rawSelectSQL(def schema.Definition, where string) string {
	cols := []string{"id", "upload_id"}
	if def.Periodic {
		cols = append(cols, "snapshot_date")
	}
	for _, c := range def.Columns {
		if c.Type == schema.Text {
			cols = append(cols, fmt.Sprintf("COALESCE(%s, '') AS %s", c.DB, c.DB))
			continue
		}
		cols = append(cols, c.DB)
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), def.RawTable)
	if where != "" {
		q += " WHERE " + where
	}
	return q + " ORDER BY id"
}

// selectRaw loads raw rows into dest. The destination structs only declare the
// columns they project, so the scan runs unsafe.
func selectRaw(ctx context.Context, tx *sqlx.Tx, dest any, def schema.Definition, where string, args ...any) error {
	if err := tx.Unsafe().SelectContext(ctx, dest, rawSelectSQL(def, where), args...); err != nil {
		return postgres.WrapErr("select "+def.RawTable, err)
	}
	return nil
}
