package schema

import "github.com/andresuchdata/erpflow/internal/domain"

func col(header, db string, t ColumnType) Column { return Column{Header: header, DB: db, Type: t} }

func req(header, db string, t ColumnType) Column {
	return Column{Header: header, DB: db, Type: t, Required: true}
}

var registry = []Definition{
	{
		Family:    domain.FamilyBilling,
		Code:      "ZRSD002",
		Label:     "Billing",
		RawTable:  "raw_billing",
		Signature: []string{"Billing Document", "Billing Date", "Net Value", "Material"},
		Columns: []Column{
			req("Billing Date", "billing_date", Date),
			req("Billing Document", "billing_document", Text),
			req("Billing Item", "billing_item", Int),
			col("Sloc", "sloc", Text),
			col("Sales Office", "sales_office", Text),
			col("Dist Channel", "dist_channel", Text),
			col("Name of Bill to", "customer_name", Text),
			col("Cust. Group", "cust_group", Text),
			col("Salesman Name", "salesman_name", Text),
			col("Material", "material", Text),
			col("Description", "material_desc", Text),
			col("Prod. Hierarchy", "prod_hierarchy", Text),
			col("Billing Qty", "billing_qty", Decimal),
			col("Sales Unit", "sales_unit", Text),
			col("Curr", "currency", Text),
			col("Exchange Rate", "exchange_rate", Decimal),
			col("Price", "price", Decimal),
			col("Total Price", "total_price", Decimal),
			col("Discount Item", "discount_item", Decimal),
			col("Net Value", "net_value", Decimal),
			col("Tax", "tax", Decimal),
			col("Total", "total", Decimal),
			col("Net Weight", "net_weight", Decimal),
			col("Weight Unit", "weight_unit", Text),
			col("Volum", "volume", Decimal),
			col("Volum Unit", "volume_unit", Text),
			col("SO No.", "so_number", Text),
			col("SO Date.", "so_date", Date),
			col("Doc Reference (OD)", "doc_reference_od", Text),
		},
	},
	{
		Family:     domain.FamilyDelivery,
		Code:       "ZRSD004",
		Label:      "Delivery",
		RawTable:   "raw_delivery",
		Signature:  []string{"Delivery Date", "Actual GI Date", "Delivery", "SO Reference"},
		Positional: true,
		Columns: []Column{
			col("Delivery Date", "delivery_date", Date),
			col("Actual GI Date", "actual_gi_date", Date),
			req("Delivery", "delivery", Text),
			col("SO Reference", "so_reference", Text),
			col("Req. Type", "req_type", Text),
			col("Delivery Type", "delivery_type", Text),
			col("Shipping Point", "shipping_point", Text),
			col("Sloc", "sloc", Text),
			col("Sales Office", "sales_office", Text),
			col("Dist. Channel", "dist_channel", Text),
			col("Cust. Group", "cust_group", Text),
			col("Sold-to Party", "sold_to_party", Text),
			col("Ship-to Party", "ship_to_party", Text),
			col("Name of Ship-to", "ship_to_name", Text),
			col("City of Ship-to", "ship_to_city", Text),
			col("Regional Stru. Grp.", "regional_group", Text),
			col("Transportation Zone", "transportation_zone", Text),
			col("Salesman ID", "salesman_id", Text),
			col("Salesman Name", "salesman_name", Text),
			col("Material", "material", Text),
			col("Description", "material_desc", Text),
			col("Delivery Qty", "delivery_qty", Decimal),
			col("Tonase", "tonase", Decimal),
			col("Tonase Unit", "tonase_unit", Text),
			col("Actual Delivery Qty", "actual_delivery_qty", Decimal),
			col("Sales Unit", "sales_unit", Text),
			col("Net Weight", "net_weight", Decimal),
			col("Weight Unit", "weight_unit", Text),
			col("Volume", "volume", Decimal),
			col("Volume Unit", "volume_unit", Text),
			col("Created By", "created_by", Text),
			col("Product Hierarchy", "product_hierarchy", Text),
			req("Line Item", "line_item", Int),
			col("Total Movement Goods Stat", "movement_status", Text),
		},
	},
	{
		Family:    domain.FamilyProduction,
		Code:      "COOISPI",
		Label:     "Production Orders",
		RawTable:  "raw_production",
		Signature: []string{"Order", "Batch", "Material Number"},
		Columns: []Column{
			req("Plant", "plant", Int),
			col("Sales Order", "sales_order", Text),
			req("Order", "order_number", Text),
			col("Order Type", "order_type", Text),
			col("Material Number", "material_code", Text),
			col("Release date (actual)", "release_date", Date),
			col("Actual finish date", "finish_date", Date),
			col("Material description", "material_desc", Text),
			col("BOM alternative", "bom_alternative", Int),
			col("Batch", "batch", Text),
			col("System Status", "system_status", Text),
			col("MRP controller", "mrp_controller", Text),
			col("Order quantity (GMEIN)", "order_qty", Decimal),
			col("Delivered quantity (GMEIN)", "delivered_qty", Decimal),
			col("Unit of measure", "uom", Text),
		},
	},
	{
		Family:     domain.FamilyMovements,
		Code:       "MB51",
		Label:      "Material Movements",
		RawTable:   "raw_movements",
		Signature:  []string{"Posting Date", "Movement Type", "Material Document", "Storage Location"},
		Positional: true,
		Columns: []Column{
			req("Posting Date", "posting_at", DateTime),
			req("Movement Type", "movement_type", Int),
			req("Plant", "plant", Int),
			col("Storage Location", "sloc", Text),
			col("Material", "material", Text),
			col("Material Description", "material_desc", Text),
			col("Batch", "batch", Text),
			col("Qty in Un. of Entry", "qty", Decimal),
			col("Unit of Entry", "unit", Text),
			col("Cost Center", "cost_center", Text),
			col("G/L Account", "gl_account", Text),
			col("Material Document", "material_document", Text),
			col("Text", "text", Text),
			col("Reference", "reference", Text),
			col("Reason for Movement", "reason", Text),
			col("Purchase Order", "purchase_order", Text),
		},
	},
	{
		Family:     domain.FamilyPurchaseOrders,
		Code:       "ZRMM024",
		Label:      "Purchase Orders",
		RawTable:   "raw_purchase_orders",
		Signature:  []string{"Purch. Order", "Item", "Purch. Date"},
		HeaderSkip: 1,
		Columns: []Column{
			req("Purch. Order", "po_number", Text),
			req("Item", "item", Int),
			col("Purch. Date", "po_date", Date),
			col("Suppl. Plant", "supplying_plant", Int),
			col("Dest. Plant", "dest_plant", Int),
			col("Material", "material", Text),
			col("Material Description", "material_desc", Text),
			col("Qty Order", "qty_order", Decimal),
			col("Gross Weight", "gross_weight", Decimal),
			col("Tonnage Order", "tonnage_order", Decimal),
			col("Qty Order Tol", "qty_order_tol", Decimal),
			col("Delivery Date", "delivery_date", Date),
			col("Qty GI", "qty_gi", Decimal),
			col("Tonnage GI", "tonnage_gi", Decimal),
			col("Qty Receipt", "qty_receipt", Decimal),
		},
	},
	{
		Family:    domain.FamilySalesHierarchy,
		Code:      "ZRSD006",
		Label:     "Sales Hierarchy",
		RawTable:  "raw_sales_hierarchy",
		Signature: []string{"Material Code", "PH 1", "PH 2", "PH 3"},
		Columns: []Column{
			req("Material Code", "material_code", Text),
			col("Mat. Description", "material_desc", Text),
			col("Distribution Channel", "dist_channel", Text),
			col("UOM", "uom", Text),
			col("PH 1", "ph1", Text),
			col("Division", "ph1_desc", Text),
			col("PH 2", "ph2", Text),
			col("Business", "ph2_desc", Text),
			col("PH 3", "ph3", Text),
			col("Sub Business", "ph3_desc", Text),
			col("PH 4", "ph4", Text),
			col("Product Group", "ph4_desc", Text),
			col("PH 5", "ph5", Text),
			col("Product Group 1", "ph5_desc", Text),
			col("PH 6", "ph6", Text),
			col("Product Group 2", "ph6_desc", Text),
			col("PH 7", "ph7", Text),
			col("Series", "ph7_desc", Text),
		},
	},
	{
		Family:    domain.FamilyARAging,
		Code:      "ZRFI005",
		Label:     "AR Aging",
		RawTable:  "raw_ar_aging",
		Signature: []string{"Customer Code", "Profit Center", "Target 1-30 Days"},
		Periodic:  true,
		Columns: []Column{
			req("Customer Code", "customer_code", Text),
			col("Customer Name", "customer_name", Text),
			col("Profit Center", "profit_center", Text),
			col("Document Number", "document_number", Text),
			col("Distribution Channel", "dist_channel", Text),
			col("Customer Group", "customer_group", Text),
			col("Salesman Name", "salesman_name", Text),
			col("Currency", "currency", Text),
			col("Target 1-30 Days", "target_1_30", Decimal),
			col("Target 31-60 Days", "target_31_60", Decimal),
			col("Target 61 - 90 Days", "target_61_90", Decimal),
			col("Target 91 - 120 Days", "target_91_120", Decimal),
			col("Target 121 - 180 Days", "target_121_180", Decimal),
			col("Target > 180 Days", "target_over_180", Decimal),
			col("Total Target", "total_target", Decimal),
			col("Realization Not Due", "realization_not_due", Decimal),
			col("Realization 1 - 30 Days", "realization_1_30", Decimal),
			col("Realization 31 - 60 Days", "realization_31_60", Decimal),
			col("Realization 61 - 90 Days", "realization_61_90", Decimal),
			col("Realization 91 - 120 Days", "realization_91_120", Decimal),
			col("Realization 121 - 180 Days", "realization_121_180", Decimal),
			col("Realization > 180 Days", "realization_over_180", Decimal),
			col("Total Realization", "total_realization", Decimal),
		},
	},
	{
		Family:    domain.FamilyTargets,
		Code:      "TARGET",
		Label:     "Sales Targets",
		RawTable:  "raw_targets",
		Signature: []string{"Salesman Name", "Semester", "Year", "Target"},
		Columns: []Column{
			req("Salesman Name", "salesman_name", Text),
			req("Semester", "semester", Int),
			req("Year", "year", Int),
			col("Target", "target_amount", Decimal),
		},
	},
}
