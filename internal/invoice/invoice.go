// Package invoice defines the invoice header record extracted from GST
// tax-invoice PDFs, along with the date and file-naming conventions the
// rest of the pipeline agrees on.
package invoice

import (
	"fmt"
	"time"
)

// Header holds the fields lifted from the header block of a tax invoice.
// Field order here matches the CSV column order exactly.
type Header struct {
	InvoiceNumber    string
	InvoiceDate      string
	IRN              string
	AckNo            string
	AckDate          string
	EWayBillNo       string
	DispatchMode     string
	MotorVehicleNo   string
	Destination      string
	DeliveryNoteDate string
	BuyersOrderNo    string

	ConsigneeName      string
	ConsigneeAddress   string
	ConsigneeGSTIN     string
	ConsigneeStateName string
	ConsigneeStateCode string

	BuyerName      string
	BuyerAddress   string
	BuyerGSTIN     string
	BuyerStateName string
	BuyerStateCode string

	PlaceOfSupply string
}

// Date layouts used by Tally-style invoices, e.g. "5-Apr-25" or "5-Apr-2025".
var dateLayouts = []string{"2-Jan-06", "2-Jan-2006"}

// ParseDate parses an invoice date string such as "5-Apr-25".
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid invoice date format: %q", s)
}

// Date parses the header's invoice date.
func (h *Header) Date() (time.Time, error) {
	return ParseDate(h.InvoiceDate)
}

// MonthlyFileName returns the per-month CSV file name for an invoice
// date, e.g. "Apr25Invoices.csv". All invoices dated within the same
// month land in the same file.
func MonthlyFileName(date time.Time) string {
	return date.Format("Jan06") + "Invoices.csv"
}

// CSVHeader returns the CSV header row for invoice records.
func CSVHeader() []string {
	return []string{
		"Invoice Number", "Invoice Date", "IRN", "Ack No", "Ack Date", "e-Way Bill No",
		"Dispatch Mode", "Motor Vehicle No", "Destination", "Delivery Note Date", "Buyer's Order No",
		"Consignee Name", "Consignee Address", "Consignee GSTIN", "Consignee State Name", "Consignee State Code",
		"Buyer Name", "Buyer Address", "Buyer GSTIN", "Buyer State Name", "Buyer State Code", "Place of Supply",
	}
}

// Record returns the header as a CSV row, aligned with CSVHeader.
func (h *Header) Record() []string {
	return []string{
		h.InvoiceNumber, h.InvoiceDate, h.IRN, h.AckNo, h.AckDate, h.EWayBillNo,
		h.DispatchMode, h.MotorVehicleNo, h.Destination, h.DeliveryNoteDate, h.BuyersOrderNo,
		h.ConsigneeName, h.ConsigneeAddress, h.ConsigneeGSTIN, h.ConsigneeStateName, h.ConsigneeStateCode,
		h.BuyerName, h.BuyerAddress, h.BuyerGSTIN, h.BuyerStateName, h.BuyerStateCode, h.PlaceOfSupply,
	}
}
