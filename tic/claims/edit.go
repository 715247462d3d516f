package claims

import (
	"fmt"
	"strings"

	"github.com/tichealth/tic-app/tic/models"
)

func trim(s string) string { return strings.TrimSpace(s) }

// SetField applies one raw field edit to a claim, normalizing the value the
// same way the original ingest did. The row identifier is assigned at
// normalization and stays stable across edits; callers revalidate after
// applying their edits.
func SetField(c *models.Claim, field, value string) error {
	switch field {
	case colClaimID:
		c.ClaimID = trim(value)
	case colSubscriberID:
		c.SubscriberID = trim(value)
	case colMemberSequence:
		c.MemberSequence = parseNumber(trim(value))
	case colClaimStatus:
		c.ClaimStatus = trim(value)
	case colPaymentStatus:
		c.PaymentStatus = trim(value)
	case colPaymentStatusDate:
		c.PaymentStatusDate = trim(value)
	case colServiceDate:
		c.ServiceDate = trim(value)
	case colReceivedDate:
		c.ReceivedDate = trim(value)
	case colEntryDate:
		c.EntryDate = trim(value)
	case colProcessedDate:
		c.ProcessedDate = trim(value)
	case colPaidDate:
		c.PaidDate = trim(value)
	case colBilledAmount:
		c.BilledAmount = models.Money(parseNumber(trim(value)))
	case colAllowedAmount:
		c.AllowedAmount = models.Money(parseNumber(trim(value)))
	case colPaidAmount:
		c.PaidAmount = models.Money(parseNumber(trim(value)))
	case colGroupID:
		c.GroupID = trim(value)
	case colGroupName:
		c.GroupName = trim(value)
	case colDivisionID:
		c.DivisionID = trim(value)
	case colDivisionName:
		c.DivisionName = trim(value)
	case colPlanID:
		c.PlanID = trim(value)
	case colPlanName:
		c.PlanName = trim(value)
	case colPlaceOfService:
		c.PlaceOfService = trim(value)
	case colClaimType:
		c.ClaimType = trim(value)
	case colProcedureCode:
		c.ProcedureCode = trim(value)
	case colMemberGender:
		c.MemberGender = trim(value)
	case colProviderID:
		c.ProviderID = trim(value)
	case colProviderName:
		c.ProviderName = trim(value)
	default:
		return fmt.Errorf("unknown claim field %q", field)
	}
	return nil
}
