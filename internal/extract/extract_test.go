package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePage mirrors the line order pdf text extraction produces for a
// Tally-printed tax invoice first page.
var samplePage = []string{
	"TAX INVOICE",
	"IRN : 64bc2a7e9f013d5a8c11",
	"Ack No. 172315588812345",
	"Ack Date : 5-Apr-25",
	"Invoice No. SC12345-03-04",
	"Consignee (Ship to)",
	"Acme Industries Pvt Ltd",
	"Plot 12, MIDC Industrial Area",
	"Pune",
	"GSTIN/UIN : 27AAACA1234F1Z5",
	"State Name : Maharashtra, Code : 27",
	"Buyer (Bill to)",
	"Globex Traders",
	"44 Market Road",
	"Nagpur",
	"GSTIN/UIN : 27AABCG9876K1Z2",
	"State Name : Maharashtra, Code : 27",
	"Dispatched through",
	"By Road",
	"Destination",
	"Nagpur",
	"Motor Vehicle No.",
	"MH12AB1234",
	"Bill of Lading/LR-RR No.",
	"Dated",
	"5-Apr-25",
	"e-Way Bill No. 341234567890",
	"Place of Supply : Maharashtra",
}

func TestHeaderFullInvoice(t *testing.T) {
	h := Header(samplePage)
	require.NotNil(t, h)

	assert.Equal(t, "SC12345-03-04", h.InvoiceNumber)
	assert.Equal(t, "5-Apr-25", h.InvoiceDate)
	assert.Equal(t, "64bc2a7e9f013d5a8c11", h.IRN)
	assert.Equal(t, "172315588812345", h.AckNo)
	assert.Equal(t, "5-Apr-25", h.AckDate)
	assert.Equal(t, "341234567890", h.EWayBillNo)
	assert.Equal(t, "By Road", h.DispatchMode)
	assert.Equal(t, "MH12AB1234", h.MotorVehicleNo)
	assert.Equal(t, "Nagpur", h.Destination)

	assert.Equal(t, "Acme Industries Pvt Ltd", h.ConsigneeName)
	assert.Equal(t, "Plot 12, MIDC Industrial Area, Pune", h.ConsigneeAddress)
	assert.Equal(t, "27AAACA1234F1Z5", h.ConsigneeGSTIN)
	assert.Equal(t, "Maharashtra", h.ConsigneeStateName)
	assert.Equal(t, "27", h.ConsigneeStateCode)

	assert.Equal(t, "Globex Traders", h.BuyerName)
	assert.Equal(t, "44 Market Road, Nagpur", h.BuyerAddress)
	assert.Equal(t, "27AABCG9876K1Z2", h.BuyerGSTIN)
	assert.Equal(t, "Maharashtra", h.BuyerStateName)
	assert.Equal(t, "27", h.BuyerStateCode)

	assert.Equal(t, "Maharashtra", h.PlaceOfSupply)
}

func TestHeaderFallbackDate(t *testing.T) {
	lines := []string{
		"TAX INVOICE",
		"Invoice No. SC54321-01-01",
		"Some terms of delivery text",
		"Payment due 12-Dec-24 net 30",
	}
	h := Header(lines)
	assert.Equal(t, "SC54321-01-01", h.InvoiceNumber)
	assert.Equal(t, "12-Dec-24", h.InvoiceDate)
}

func TestHeaderMissingDate(t *testing.T) {
	h := Header([]string{"TAX INVOICE", "Invoice No. SC00001-01-01"})
	assert.Equal(t, "", h.InvoiceDate)
}

func TestHeaderScrubsMergedLabels(t *testing.T) {
	// Merged columns leave neighbouring labels inside the value row.
	lines := []string{
		"TAX INVOICE",
		"Dispatched through",
		"By Road Dispatch Doc No.",
	}
	h := Header(lines)
	assert.Equal(t, "By Road", h.DispatchMode)

	// The Destination column sits right of Dispatched through and merges
	// the same way.
	h = Header([]string{"TAX INVOICE", "Dispatched through", "By Road Destination"})
	assert.Equal(t, "By Road", h.DispatchMode)
}

func TestHeaderIgnoresBlankLines(t *testing.T) {
	lines := []string{
		"  ",
		"Consignee (Ship to)",
		"  Acme Industries Pvt Ltd  ",
		"",
		"GSTIN/UIN : 27AAACA1234F1Z5",
	}
	h := Header(lines)
	assert.Equal(t, "Acme Industries Pvt Ltd", h.ConsigneeName)
	assert.Equal(t, "27AAACA1234F1Z5", h.ConsigneeGSTIN)
}

func TestAddressBlockCapped(t *testing.T) {
	lines := []string{"Consignee (Ship to)", "Name Ltd"}
	for i := 0; i < 12; i++ {
		lines = append(lines, "addr line")
	}
	h := Header(lines)
	// Address capture stops after the cap even without a GSTIN row.
	assert.Equal(t, "Name Ltd", h.ConsigneeName)
	assert.Len(t, strings.Split(h.ConsigneeAddress, ", "), maxAddressLines)
}
