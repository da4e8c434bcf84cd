package domain

// Family identifies one recognised spreadsheet category.
type Family string

const (
	FamilyBilling        Family = "billing"
	FamilyDelivery       Family = "delivery"
	FamilyProduction     Family = "production"
	FamilyMovements      Family = "movements"
	FamilyPurchaseOrders Family = "purchase_orders"
	FamilySalesHierarchy Family = "sales_hierarchy"
	FamilyARAging        Family = "ar_aging"
	FamilyTargets        Family = "targets"
	FamilyUnknown        Family = ""
)

func (f Family) String() string {
	if f == FamilyUnknown {
		return "unknown"
	}
	return string(f)
}

// TriggersLeadTime reports whether a load of f can change any batch timeline.
func (f Family) TriggersLeadTime() bool {
	switch f {
	case FamilyProduction, FamilyDelivery, FamilyMovements, FamilyPurchaseOrders:
		return true
	}
	return false
}

// TriggersAlerts reports whether a load of f can raise or resolve alerts.
func (f Family) TriggersAlerts() bool {
	return f == FamilyMovements || f == FamilyProduction
}
