package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/erpflow/internal/domain"
	"github.com/andresuchdata/erpflow/internal/schema"
	"github.com/shopspring/decimal"
)

type emptyKeyError struct {
	rawID     int64
	component string
}

func (e emptyKeyError) Error() string {
	return fmt.Sprintf("raw row %d: empty business key component %q", e.rawID, e.component)
}

// Semester is 1 for January to June, else 2.
func Semester(t time.Time) int {
	if t.Month() <= time.June {
		return 1
	}
	return 2
}

func projectBilling(r rawBilling) (candidate[domain.FactBilling], error) {
	doc := strings.TrimSpace(r.BillingDocument)
	if doc == "" {
		return candidate[domain.FactBilling]{}, emptyKeyError{r.ID, "billing_document"}
	}
	f := domain.FactBilling{
		BillingDocument: doc,
		BillingItem:     r.BillingItem,
		BillingDate:     r.BillingDate,
		Semester:        Semester(r.BillingDate),
		Year:            r.BillingDate.Year(),
		DistChannel:     r.DistChannel,
		Division:        schema.DivisionFor(r.DistChannel),
		SalesOffice:     r.SalesOffice,
		CustomerName:    r.CustomerName,
		CustGroup:       r.CustGroup,
		SalesmanName:    r.SalesmanName,
		MaterialCode:    r.Material,
		MaterialDesc:    r.MaterialDesc,
		ProdHierarchy:   r.ProdHierarchy,
		BillingQty:      r.BillingQty,
		SalesUnit:       r.SalesUnit,
		Currency:        r.Currency,
		NetValue:        r.NetValue,
		Tax:             r.Tax,
		Total:           r.Total,
		NetWeight:       r.NetWeight,
		SONumber:        r.SONumber,
		SODate:          r.SODate,
		DeliveryRef:     r.DocReferenceOD,
	}
	f.RowHash = hashOf(f.BillingDate, f.DistChannel, f.SalesOffice, f.CustomerName, f.CustGroup,
		f.SalesmanName, f.MaterialCode, f.MaterialDesc, f.ProdHierarchy, f.BillingQty, f.SalesUnit,
		f.Currency, f.NetValue, f.Tax, f.Total, f.NetWeight, f.SONumber, f.SODate, f.DeliveryRef)
	return candidate[domain.FactBilling]{
		key: keyOf(doc, text(f.BillingItem)), rawID: r.ID, uploadID: r.UploadID, hash: f.RowHash, fact: f,
	}, nil
}

func projectProduction(r rawProduction) (candidate[domain.FactProduction], error) {
	order := strings.TrimSpace(r.OrderNumber)
	if order == "" {
		return candidate[domain.FactProduction]{}, emptyKeyError{r.ID, "order_number"}
	}
	f := domain.FactProduction{
		OrderNumber:   order,
		Batch:         strings.TrimSpace(r.Batch),
		PlantCode:     r.Plant,
		SalesOrder:    r.SalesOrder,
		OrderType:     r.OrderType,
		MaterialCode:  r.MaterialCode,
		MaterialDesc:  r.MaterialDesc,
		ReleaseDate:   r.ReleaseDate,
		FinishDate:    r.FinishDate,
		SystemStatus:  r.SystemStatus,
		MRPController: r.MRPController,
		OrderQty:      r.OrderQty,
		DeliveredQty:  r.DeliveredQty,
		UoM:           r.UoM,
	}
	f.RowHash = hashOf(f.PlantCode, f.SalesOrder, f.OrderType, f.MaterialCode, f.MaterialDesc,
		f.ReleaseDate, f.FinishDate, f.SystemStatus, f.MRPController, f.OrderQty, f.DeliveredQty, f.UoM)
	return candidate[domain.FactProduction]{
		key: keyOf(order, f.Batch), rawID: r.ID, uploadID: r.UploadID, hash: f.RowHash, fact: f,
	}, nil
}

func projectDelivery(r rawDelivery) (candidate[domain.FactDelivery], error) {
	delivery := strings.TrimSpace(r.Delivery)
	if delivery == "" {
		return candidate[domain.FactDelivery]{}, emptyKeyError{r.ID, "delivery"}
	}
	f := domain.FactDelivery{
		Delivery:          delivery,
		LineItem:          r.LineItem,
		DeliveryDate:      r.DeliveryDate,
		ActualGIDate:      r.ActualGIDate,
		SOReference:       r.SOReference,
		DeliveryType:      r.DeliveryType,
		ShippingPoint:     r.ShippingPoint,
		DistChannel:       r.DistChannel,
		SoldToParty:       r.SoldToParty,
		ShipToName:        r.ShipToName,
		SalesmanName:      r.SalesmanName,
		MaterialCode:      r.Material,
		MaterialDesc:      r.MaterialDesc,
		DeliveryQty:       r.DeliveryQty,
		ActualDeliveryQty: r.ActualDeliveryQty,
		SalesUnit:         r.SalesUnit,
		NetWeight:         r.NetWeight,
		MovementStatus:    r.MovementStatus,
	}
	f.RowHash = hashOf(f.DeliveryDate, f.ActualGIDate, f.SOReference, f.DeliveryType, f.ShippingPoint,
		f.DistChannel, f.SoldToParty, f.ShipToName, f.SalesmanName, f.MaterialCode, f.MaterialDesc,
		f.DeliveryQty, f.ActualDeliveryQty, f.SalesUnit, f.NetWeight, f.MovementStatus)
	return candidate[domain.FactDelivery]{
		key: keyOf(delivery, text(f.LineItem)), rawID: r.ID, uploadID: r.UploadID, hash: f.RowHash, fact: f,
	}, nil
}

func projectARAging(r rawARAging) (candidate[domain.FactARAging], error) {
	customer := strings.TrimSpace(r.CustomerCode)
	if customer == "" {
		return candidate[domain.FactARAging]{}, emptyKeyError{r.ID, "customer_code"}
	}
	f := domain.FactARAging{
		SnapshotDate:        r.SnapshotDate,
		CustomerCode:        customer,
		DocumentNumber:      strings.TrimSpace(r.DocumentNumber),
		CustomerName:        r.CustomerName,
		ProfitCenter:        r.ProfitCenter,
		DistChannel:         r.DistChannel,
		Division:            schema.DivisionFor(r.DistChannel),
		CustomerGroup:       r.CustomerGroup,
		SalesmanName:        r.SalesmanName,
		Currency:            r.Currency,
		Target1To30:         r.Target1To30,
		Target31To60:        r.Target31To60,
		Target61To90:        r.Target61To90,
		Target91To120:       r.Target91To120,
		Target121To180:      r.Target121To180,
		TargetOver180:       r.TargetOver180,
		TotalTarget:         r.TotalTarget,
		RealizationNotDue:   r.RealizationNotDue,
		Realization1To30:    r.Realization1To30,
		Realization31To60:   r.Realization31To60,
		Realization61To90:   r.Realization61To90,
		Realization91To120:  r.Realization91To120,
		Realization121To180: r.Realization121To180,
		RealizationOver180:  r.RealizationOver180,
		TotalRealization:    r.TotalRealization,
	}
	f.RowHash = hashOf(f.CustomerName, f.ProfitCenter, f.DistChannel, f.CustomerGroup, f.SalesmanName,
		f.Currency, f.Target1To30, f.Target31To60, f.Target61To90, f.Target91To120, f.Target121To180,
		f.TargetOver180, f.TotalTarget, f.RealizationNotDue, f.Realization1To30, f.Realization31To60,
		f.Realization61To90, f.Realization91To120, f.Realization121To180, f.RealizationOver180,
		f.TotalRealization)
	return candidate[domain.FactARAging]{
		key:   keyOf(r.SnapshotDate.Format("2006-01-02"), customer, f.DocumentNumber),
		rawID: r.ID, uploadID: r.UploadID, hash: f.RowHash, fact: f,
	}, nil
}

func projectTarget(r rawTarget) (candidate[domain.FactTarget], error) {
	name := strings.TrimSpace(r.SalesmanName)
	if name == "" {
		return candidate[domain.FactTarget]{}, emptyKeyError{r.ID, "salesman_name"}
	}
	f := domain.FactTarget{SalesmanName: name, Semester: r.Semester, Year: r.Year, TargetAmount: r.TargetAmount}
	f.RowHash = hashOf(f.TargetAmount)
	return candidate[domain.FactTarget]{
		key: keyOf(name, text(f.Semester), text(f.Year)), rawID: r.ID, uploadID: r.UploadID, hash: f.RowHash, fact: f,
	}, nil
}

func projectMaterial(r rawSalesHierarchy) (candidate[domain.DimMaterial], error) {
	code := strings.TrimSpace(r.MaterialCode)
	if code == "" {
		return candidate[domain.DimMaterial]{}, emptyKeyError{r.ID, "material_code"}
	}
	f := domain.DimMaterial{
		MaterialCode: code,
		MaterialDesc: r.MaterialDesc,
		DistChannel:  r.DistChannel,
		UoM:          r.UoM,
		PH1:          r.PH1,
		PH2:          r.PH2,
		PH3:          r.PH3,
		PH4:          r.PH4,
		PH5:          r.PH5,
		PH6:          r.PH6,
		PH7:          r.PH7,
	}
	f.RowHash = hashOf(f.MaterialDesc, f.DistChannel, f.UoM, f.PH1, f.PH2, f.PH3, f.PH4, f.PH5, f.PH6, f.PH7)
	return candidate[domain.DimMaterial]{key: code, rawID: r.ID, uploadID: r.UploadID, hash: f.RowHash, fact: f}, nil
}

// hierarchyNodes flattens the seven (code, description) levels; later rows
// override earlier descriptions.
func hierarchyNodes(rows []rawSalesHierarchy) []domain.ProductHierarchyNode {
	type nodeKey struct {
		level int
		code  string
	}
	index := map[nodeKey]int{}
	var out []domain.ProductHierarchyNode
	for _, r := range rows {
		levels := [7][2]string{
			{r.PH1, r.PH1Desc}, {r.PH2, r.PH2Desc}, {r.PH3, r.PH3Desc}, {r.PH4, r.PH4Desc},
			{r.PH5, r.PH5Desc}, {r.PH6, r.PH6Desc}, {r.PH7, r.PH7Desc},
		}
		for i, l := range levels {
			code := strings.TrimSpace(l[0])
			if code == "" {
				continue
			}
			k := nodeKey{i + 1, code}
			n := domain.ProductHierarchyNode{Level: i + 1, Code: code, Description: strings.TrimSpace(l[1])}
			if at, ok := index[k]; ok {
				if n.Description != "" {
					out[at] = n
				}
				continue
			}
			index[k] = len(out)
			out = append(out, n)
		}
	}
	return out
}

// aggregatePurchaseOrders folds PO items into one fact per (po, material).
// Aggregation never conflicts, so it has no duplicate-key failure.
func aggregatePurchaseOrders(rows []rawPurchaseOrder, mtoPrefix string) ([]domain.FactPurchaseOrder, []error) {
	type acc struct {
		fact  domain.FactPurchaseOrder
		items map[int64]rawPurchaseOrder
	}
	index := map[string]*acc{}
	var order []string
	var errs []error
	for _, r := range rows {
		po := strings.TrimSpace(r.PONumber)
		material := strings.TrimSpace(r.Material)
		if po == "" {
			errs = append(errs, emptyKeyError{r.ID, "po_number"})
			continue
		}
		if material == "" {
			errs = append(errs, emptyKeyError{r.ID, "material_code"})
			continue
		}
		k := keyOf(po, material)
		a, ok := index[k]
		if !ok {
			a = &acc{
				fact: domain.FactPurchaseOrder{
					PONumber:     po,
					MaterialCode: material,
					IsSalesPO:    mtoPrefix != "" && strings.HasPrefix(po, mtoPrefix),
				},
				items: map[int64]rawPurchaseOrder{},
			}
			index[k] = a
			order = append(order, k)
		}
		// a re-exported item replaces its earlier version
		a.items[r.Item] = r
	}

	out := make([]domain.FactPurchaseOrder, 0, len(order))
	for _, k := range order {
		a := index[k]
		f := a.fact
		for _, item := range sortedItems(a.items) {
			f.ItemCount++
			f.QtyOrder = f.QtyOrder.Add(orZero(item.QtyOrder))
			f.TonnageOrder = f.TonnageOrder.Add(orZero(item.TonnageOrder))
			f.QtyGI = f.QtyGI.Add(orZero(item.QtyGI))
			f.QtyReceipt = f.QtyReceipt.Add(orZero(item.QtyReceipt))
			f.PODate = minDate(f.PODate, item.PODate)
			f.DeliveryDate = maxDate(f.DeliveryDate, item.DeliveryDate)
			if item.SupplyingPlant != nil {
				f.SupplyingPlant = item.SupplyingPlant
			}
			if item.DestPlant != nil {
				f.DestPlant = item.DestPlant
			}
			if item.MaterialDesc != "" {
				f.MaterialDesc = item.MaterialDesc
			}
		}
		f.RowHash = hashOf(f.PODate, f.SupplyingPlant, f.DestPlant, f.MaterialDesc, f.ItemCount,
			f.QtyOrder, f.TonnageOrder, f.QtyGI, f.QtyReceipt, f.DeliveryDate, f.IsSalesPO)
		out = append(out, f)
	}
	return out, errs
}

func sortedItems(items map[int64]rawPurchaseOrder) []rawPurchaseOrder {
	out := make([]rawPurchaseOrder, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

func minDate(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.Before(*b) {
		return a
	}
	return b
}

func maxDate(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil || a.After(*b) {
		return a
	}
	return b
}
