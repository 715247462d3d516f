package claims

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tichealth/tic-app/tic/models"
)

// Normalize converts one raw source row into a typed claim record. Every
// textual field is trimmed; numeric fields tolerate thousands separators and
// default to NaN when unparseable, so a bad amount fails validation instead
// of silently becoming 0. rowIndex is 1-based.
func Normalize(row map[string]string, rowIndex int) models.Claim {
	get := func(col string) string { return strings.TrimSpace(row[col]) }

	c := models.Claim{
		ClaimID:        get(colClaimID),
		SubscriberID:   get(colSubscriberID),
		MemberSequence: parseNumber(get(colMemberSequence)),

		ClaimStatus:       get(colClaimStatus),
		PaymentStatus:     get(colPaymentStatus),
		PaymentStatusDate: get(colPaymentStatusDate),

		ServiceDate:   get(colServiceDate),
		ReceivedDate:  get(colReceivedDate),
		EntryDate:     get(colEntryDate),
		ProcessedDate: get(colProcessedDate),
		PaidDate:      get(colPaidDate),

		BilledAmount:  models.Money(parseNumber(get(colBilledAmount))),
		AllowedAmount: models.Money(parseNumber(get(colAllowedAmount))),
		PaidAmount:    models.Money(parseNumber(get(colPaidAmount))),

		GroupID:      get(colGroupID),
		GroupName:    get(colGroupName),
		DivisionID:   get(colDivisionID),
		DivisionName: get(colDivisionName),
		PlanID:       get(colPlanID),
		PlanName:     get(colPlanName),

		PlaceOfService: get(colPlaceOfService),
		ClaimType:      get(colClaimType),
		ProcedureCode:  get(colProcedureCode),
		MemberGender:   get(colMemberGender),

		ProviderID:   get(colProviderID),
		ProviderName: get(colProviderName),

		RowIndex: rowIndex,
	}

	c.RowID = c.ClaimID
	if c.RowID == "" {
		c.RowID = fmt.Sprintf("row-%d", rowIndex)
	}

	return c
}

// parseNumber parses a numeric cell, tolerating thousands separators.
// Unparseable input (including empty) yields NaN.
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// NormalizeToken lower-cases a value and collapses interior whitespace so
// comparisons like claim type and denied status checks are case and
// whitespace insensitive.
func NormalizeToken(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
