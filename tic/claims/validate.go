package claims

import (
	"fmt"
	"math"
	"regexp"

	"github.com/tichealth/tic-app/tic/constants"
	"github.com/tichealth/tic-app/tic/models"
)

var (
	dateExp       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	providerIDExp = regexp.MustCompile(`^\d{10}$`)
)

type fieldRule struct {
	field string
	check func(c *models.Claim) string
}

func nonEmpty(field string, value func(c *models.Claim) string) fieldRule {
	return fieldRule{field, func(c *models.Claim) string {
		if value(c) == "" {
			return fmt.Sprintf("%s is required", field)
		}
		return ""
	}}
}

func dateField(field string, value func(c *models.Claim) string) fieldRule {
	return fieldRule{field, func(c *models.Claim) string {
		if !dateExp.MatchString(value(c)) {
			return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
		}
		return ""
	}}
}

func moneyField(field string, value func(c *models.Claim) models.Money) fieldRule {
	return fieldRule{field, func(c *models.Claim) string {
		f := value(c).Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return fmt.Sprintf("%s must be a non-negative number", field)
		}
		return ""
	}}
}

// schema lists every field rule in declaration order. Issue order is stable
// and matches this order, with the group id/name cross-field rule last.
var schema = []fieldRule{
	nonEmpty(colClaimID, func(c *models.Claim) string { return c.ClaimID }),
	nonEmpty(colSubscriberID, func(c *models.Claim) string { return c.SubscriberID }),
	{colMemberSequence, func(c *models.Claim) string {
		ms := c.MemberSequence
		if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 || ms != math.Trunc(ms) {
			return fmt.Sprintf("%s must be a non-negative whole number", colMemberSequence)
		}
		return ""
	}},
	nonEmpty(colClaimStatus, func(c *models.Claim) string { return c.ClaimStatus }),
	nonEmpty(colPaymentStatus, func(c *models.Claim) string { return c.PaymentStatus }),
	dateField(colPaymentStatusDate, func(c *models.Claim) string { return c.PaymentStatusDate }),
	dateField(colServiceDate, func(c *models.Claim) string { return c.ServiceDate }),
	dateField(colReceivedDate, func(c *models.Claim) string { return c.ReceivedDate }),
	dateField(colEntryDate, func(c *models.Claim) string { return c.EntryDate }),
	dateField(colProcessedDate, func(c *models.Claim) string { return c.ProcessedDate }),
	dateField(colPaidDate, func(c *models.Claim) string { return c.PaidDate }),
	moneyField(colBilledAmount, func(c *models.Claim) models.Money { return c.BilledAmount }),
	moneyField(colAllowedAmount, func(c *models.Claim) models.Money { return c.AllowedAmount }),
	moneyField(colPaidAmount, func(c *models.Claim) models.Money { return c.PaidAmount }),
	nonEmpty(colDivisionID, func(c *models.Claim) string { return c.DivisionID }),
	nonEmpty(colDivisionName, func(c *models.Claim) string { return c.DivisionName }),
	nonEmpty(colPlanID, func(c *models.Claim) string { return c.PlanID }),
	nonEmpty(colPlanName, func(c *models.Claim) string { return c.PlanName }),
	nonEmpty(colPlaceOfService, func(c *models.Claim) string { return c.PlaceOfService }),
	{colClaimType, func(c *models.Claim) string {
		switch NormalizeToken(c.ClaimType) {
		case constants.BillingClassProfessional, constants.BillingClassInstitutional:
			return ""
		}
		return fmt.Sprintf("%s must be professional or institutional", colClaimType)
	}},
	nonEmpty(colProcedureCode, func(c *models.Claim) string { return c.ProcedureCode }),
	nonEmpty(colMemberGender, func(c *models.Claim) string { return c.MemberGender }),
	{colProviderID, func(c *models.Claim) string {
		if !providerIDExp.MatchString(c.ProviderID) {
			return fmt.Sprintf("%s must be exactly 10 digits", colProviderID)
		}
		return ""
	}},
	nonEmpty(colProviderName, func(c *models.Claim) string { return c.ProviderName }),
	// Cross-field rule: customer identity cannot be wholly absent. Reported
	// against the group id field.
	{colGroupID, func(c *models.Claim) string {
		if c.GroupID == "" && c.GroupName == "" {
			return fmt.Sprintf("%s or %s is required", colGroupID, colGroupName)
		}
		return ""
	}},
}

// Validate runs every schema rule against the claim, records the issues on
// the record, and sets the validity flag. A claim is valid exactly when zero
// issues are produced. Running it twice on the same data yields the same
// issue set.
func Validate(c *models.Claim) []models.Issue {
	var issues []models.Issue
	for _, rule := range schema {
		if msg := rule.check(c); msg != "" {
			issues = append(issues, models.Issue{Row: c.RowIndex, Field: rule.field, Message: msg})
		}
	}

	c.Issues = issues
	c.Valid = len(issues) == 0
	return issues
}
