// Package extract parses the header block of a GST tax invoice from the
// text lines of its PDF page. The layout is the Tally print format:
// label lines followed by value lines, party blocks introduced by
// "Consignee (Ship to)" / "Buyer (Bill to)", and key-value pairs such as
// "GSTIN/UIN : ..." and "State Name : ..., Code : ...".
package extract

import (
	"regexp"
	"strings"

	"invextract/internal/invoice"
)

var (
	invoiceNumberRe = regexp.MustCompile(`SC\d{5}-\d{2}-\d{2}`)
	dateRe          = regexp.MustCompile(`\b\d{1,2}-[A-Za-z]{3}-\d{2,4}\b`)
	gstinRe         = regexp.MustCompile(`GSTIN/UIN\s*:\s*(\S+)`)
	stateRe         = regexp.MustCompile(`State Name\s*:\s*(.+?),\s*Code\s*:\s*(\d+)`)
	ewayBillRe      = regexp.MustCompile(`e-Way Bill No\.\s+(\d+)`)
	irnRe           = regexp.MustCompile(`IRN\s*:\s*(\S+)`)
	ackNoRe         = regexp.MustCompile(`Ack No\.\s*(\d+)`)
	ackDateRe       = regexp.MustCompile(`Ack Date\s*:\s*(.+)`)
	multiSpaceRe    = regexp.MustCompile(`\s+`)
)

// Column labels that bleed into extracted values when the PDF layout
// merges adjacent cells into one text row.
var mergedLabels = []string{
	"Dispatch Doc No.",
	"Delivery Note Date",
	"Dispatched through",
	"Destination",
	"Bill of Lading/LR-RR No.",
	"Motor Vehicle No.",
}

// Maximum lines scanned past a party heading for the address block.
const maxAddressLines = 8

// Header parses invoice header fields from page lines. Lines are
// trimmed and blanks dropped before matching. Missing fields stay
// empty; callers decide which ones are mandatory.
func Header(rawLines []string) *invoice.Header {
	lines := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}

	h := &invoice.Header{}

	for i, line := range lines {
		// General info. At most one of these applies per line, so the
		// chain mirrors the label precedence of the printed form.
		switch {
		case irnRe.MatchString(line) && h.IRN == "":
			h.IRN = irnRe.FindStringSubmatch(line)[1]
		case ackNoRe.MatchString(line) && h.AckNo == "":
			h.AckNo = ackNoRe.FindStringSubmatch(line)[1]
		case ackDateRe.MatchString(line) && h.AckDate == "":
			h.AckDate = strings.TrimSpace(ackDateRe.FindStringSubmatch(line)[1])
		case strings.Contains(line, "Invoice No.") && h.InvoiceNumber == "":
			if m := invoiceNumberRe.FindString(line); m != "" {
				h.InvoiceNumber = m
			}
		case ewayBillRe.MatchString(line) && h.EWayBillNo == "":
			h.EWayBillNo = ewayBillRe.FindStringSubmatch(line)[1]
		case strings.Contains(line, "Dispatched through") && i+1 < len(lines):
			h.DispatchMode = lines[i+1]
		case strings.Contains(line, "Motor Vehicle No.") && i+1 < len(lines):
			h.MotorVehicleNo = lines[i+1]
		case strings.Contains(line, "Destination") && i+1 < len(lines):
			h.Destination = lines[i+1]
		case strings.Contains(line, "Delivery Note Date") && i+1 < len(lines):
			h.DeliveryNoteDate = lines[i+1]
		case strings.Contains(line, "Bill of Lading") && i+2 < len(lines):
			if strings.Contains(lines[i+1], "Dated") {
				if m := dateRe.FindString(lines[i+2]); m != "" {
					h.InvoiceDate = m
				}
			}
		case h.PlaceOfSupply == "" && strings.Contains(line, "Place of Supply"):
			if _, after, ok := strings.Cut(line, ":"); ok {
				h.PlaceOfSupply = strings.TrimSpace(after)
			}
		}

		// Party blocks: name on the next line, address until the tax
		// identifiers start.
		if strings.Contains(line, "Consignee (Ship to)") && i+1 < len(lines) {
			h.ConsigneeName = lines[i+1]
			h.ConsigneeAddress = addressBlock(lines, i+2)
		} else if strings.Contains(line, "Buyer (Bill to)") && i+1 < len(lines) {
			h.BuyerName = lines[i+1]
			h.BuyerAddress = addressBlock(lines, i+2)
		}

		// GSTIN and state rows appear twice, consignee block first.
		if h.ConsigneeGSTIN == "" && strings.Contains(line, "GSTIN/UIN") {
			if m := gstinRe.FindStringSubmatch(line); m != nil {
				h.ConsigneeGSTIN = m[1]
			}
		} else if h.BuyerGSTIN == "" && strings.Contains(line, "GSTIN/UIN") && h.ConsigneeGSTIN != "" {
			if m := gstinRe.FindStringSubmatch(line); m != nil {
				h.BuyerGSTIN = m[1]
			}
		}

		if h.ConsigneeStateName == "" && strings.Contains(line, "State Name") {
			if m := stateRe.FindStringSubmatch(line); m != nil {
				h.ConsigneeStateName = strings.TrimSpace(m[1])
				h.ConsigneeStateCode = strings.TrimSpace(m[2])
			}
		} else if h.BuyerStateName == "" && strings.Contains(line, "State Name") && h.ConsigneeStateName != "" {
			if m := stateRe.FindStringSubmatch(line); m != nil {
				h.BuyerStateName = strings.TrimSpace(m[1])
				h.BuyerStateCode = strings.TrimSpace(m[2])
			}
		}
	}

	// Fallback: first date-looking token anywhere on the page.
	if h.InvoiceDate == "" {
		for _, line := range lines {
			if m := dateRe.FindString(line); m != "" {
				h.InvoiceDate = m
				break
			}
		}
	}

	scrub(h)
	return h
}

// addressBlock joins lines starting at from until a GSTIN or State Name
// row, capped at maxAddressLines.
func addressBlock(lines []string, from int) string {
	var parts []string
	for j := from; j < from+maxAddressLines && j < len(lines); j++ {
		if strings.Contains(lines[j], "GSTIN") || strings.Contains(lines[j], "State Name") {
			break
		}
		parts = append(parts, lines[j])
	}
	return strings.Join(parts, ", ")
}

// scrub removes column labels that merged into values and collapses
// runs of whitespace.
func scrub(h *invoice.Header) {
	for _, f := range []*string{
		&h.InvoiceNumber, &h.InvoiceDate, &h.IRN, &h.AckNo, &h.AckDate, &h.EWayBillNo,
		&h.DispatchMode, &h.MotorVehicleNo, &h.Destination, &h.DeliveryNoteDate, &h.BuyersOrderNo,
		&h.ConsigneeName, &h.ConsigneeAddress, &h.ConsigneeGSTIN, &h.ConsigneeStateName, &h.ConsigneeStateCode,
		&h.BuyerName, &h.BuyerAddress, &h.BuyerGSTIN, &h.BuyerStateName, &h.BuyerStateCode, &h.PlaceOfSupply,
	} {
		v := *f
		for _, label := range mergedLabels {
			v = strings.ReplaceAll(v, label, "")
		}
		*f = strings.TrimSpace(multiSpaceRe.ReplaceAllString(v, " "))
	}
}
