package schema

import "strings"

// Movement types the lead-time, yield and alert steps care about.
const (
	MvtGoodsReceipt         = 101
	MvtGoodsReceiptReversal = 102
	MvtConsumption          = 261
	MvtConsumptionReversal  = 262
	MvtGoodsIssue           = 601
	MvtGoodsIssueReversal   = 602
)

type Plant struct {
	Code int
	Name string
	Role string
}

type MovementType struct {
	Code        int
	Description string
	Category    string
	// ReversalOf is the forward code this type cancels, 0 for forward types.
	ReversalOf  int
	StockImpact int
}

type DistChannel struct {
	Code     string
	Division string
}

var Plants = []Plant{
	{Code: 1201, Name: "Factory", Role: "FACTORY"},
	{Code: 1401, Name: "Distribution Center", Role: "DC"},
	{Code: 1203, Name: "Other", Role: "OTHER"},
}

var MovementTypes = []MovementType{
	{101, "GR goods receipt", "receipt", 0, 1},
	{102, "GR reversal", "receipt", 101, -1},
	{201, "GI to cost center", "issue", 0, -1},
	{202, "GI to cost center reversal", "issue", 201, 1},
	{261, "GI for order", "issue", 0, -1},
	{262, "GI for order reversal", "issue", 261, 1},
	{301, "Transfer plant to plant", "transfer", 0, 0},
	{302, "Transfer plant to plant reversal", "transfer", 301, 0},
	{311, "Transfer sloc to sloc", "transfer", 0, 0},
	{312, "Transfer sloc to sloc reversal", "transfer", 311, 0},
	{351, "Stock transport order GI", "transfer", 0, 0},
	{352, "Stock transport order GI reversal", "transfer", 351, 0},
	{601, "GI for delivery", "issue", 0, -1},
	{602, "GI for delivery reversal", "issue", 601, 1},
}

var DistChannels = []DistChannel{
	{Code: "11", Division: "Industry"},
	{Code: "13", Division: "Retails"},
	{Code: "15", Division: "Project"},
}

const DivisionOther = "Other"

// DivisionFor maps a distribution channel code to its reporting division.
func DivisionFor(channel string) string {
	channel = strings.TrimSpace(channel)
	for _, c := range DistChannels {
		if c.Code == channel {
			return c.Division
		}
	}
	return DivisionOther
}

// StockImpact returns the sign a movement type applies to on-hand stock.
func StockImpact(code int) int {
	for _, m := range MovementTypes {
		if m.Code == code {
			return m.StockImpact
		}
	}
	return 0
}
