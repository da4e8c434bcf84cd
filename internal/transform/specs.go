package transform

import "github.com/andresuchdata/erpflow/internal/repository/postgres"

var (
	billingSpec = postgres.FactSpec{
		Table: "fact_billing",
		Key:   []string{"billing_document", "billing_item"},
		Columns: []string{
			"billing_date", "semester", "year", "dist_channel", "division", "sales_office",
			"customer_name", "cust_group", "salesman_name", "material_code", "material_desc",
			"prod_hierarchy", "billing_qty", "sales_unit", "currency", "net_value", "tax", "total",
			"net_weight", "so_number", "so_date", "doc_reference_od",
		},
	}
	productionSpec = postgres.FactSpec{
		Table: "fact_production",
		Key:   []string{"order_number", "batch"},
		Columns: []string{
			"plant_code", "sales_order", "order_type", "material_code", "material_desc",
			"release_date", "finish_date", "system_status", "mrp_controller", "order_qty",
			"delivered_qty", "uom",
		},
	}
	deliverySpec = postgres.FactSpec{
		Table: "fact_delivery",
		Key:   []string{"delivery", "line_item"},
		Columns: []string{
			"delivery_date", "actual_gi_date", "so_reference", "delivery_type", "shipping_point",
			"dist_channel", "sold_to_party", "ship_to_name", "salesman_name", "material_code",
			"material_desc", "delivery_qty", "actual_delivery_qty", "sales_unit", "net_weight",
			"movement_status",
		},
	}
	arAgingSpec = postgres.FactSpec{
		Table: "fact_ar_aging",
		Key:   []string{"snapshot_date", "customer_code", "document_number"},
		Columns: []string{
			"customer_name", "profit_center", "dist_channel", "division", "customer_group",
			"salesman_name", "currency", "target_1_30", "target_31_60", "target_61_90",
			"target_91_120", "target_121_180", "target_over_180", "total_target",
			"realization_not_due", "realization_1_30", "realization_31_60", "realization_61_90",
			"realization_91_120", "realization_121_180", "realization_over_180", "total_realization",
		},
	}
	purchaseOrderSpec = postgres.FactSpec{
		Table: "fact_purchase_order",
		Key:   []string{"po_number", "material_code"},
		Columns: []string{
			"po_date", "supplying_plant", "dest_plant", "material_desc", "item_count", "qty_order",
			"tonnage_order", "qty_gi", "qty_receipt", "delivery_date", "is_sales_po",
		},
	}
	targetSpec = postgres.FactSpec{
		Table:   "fact_target",
		Key:     []string{"salesman_name", "semester", "year"},
		Columns: []string{"target_amount"},
	}
	materialSpec = postgres.FactSpec{
		Table:   "dim_material",
		Key:     []string{"material_code"},
		Columns: []string{"material_desc", "dist_channel", "uom", "ph1", "ph2", "ph3", "ph4", "ph5", "ph6", "ph7"},
	}
)
