package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"mttsite/internal/dto"
	"mttsite/internal/model"
)

var csvHeader = []string{
	"Name", "Email", "Phone", "College", "Department", "Year",
	"Membership Type", "IEEE Membership ID", "Registration Date",
	"Status", "Payment Status", "Amount (₹)",
}

// ExportRegistrationsCSV writes the filtered registrations as a spreadsheet-ready CSV.
func (s *service) ExportRegistrationsCSV(ctx context.Context, w io.Writer, f dto.RegistrationFilter) error {
	regs, err := s.ListRegistrations(ctx, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range regs {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r model.Registration) []string {
	membership := "Non-IEEE Member"
	if r.MembershipType == model.MembershipIEEE {
		membership = "IEEE Member"
	}
	membershipID := r.MembershipID
	if membershipID == "" {
		membershipID = "N/A"
	}
	date := r.RegistrationDate
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		date = t.Format("2006-01-02 15:04")
	}
	return []string{
		r.Name, r.Email, r.Phone, r.College, r.Department, r.Year,
		membership, membershipID, date,
		r.Status, r.PaymentStatus, strconv.FormatFloat(r.Amount, 'f', -1, 64),
	}
}
