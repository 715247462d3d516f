package grouping

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/tichealth/tic-app/tic/claims"
	"github.com/tichealth/tic-app/tic/constants"
	"github.com/tichealth/tic-app/tic/models"
)

// Method selects which key function partitions the claim set into pricing
// groups. Switching methods never mutates claims; it only changes the
// partition and forces a full recompute of groups and derived approvals.
type Method string

const (
	MethodMRF               Method = "mrf"
	MethodProviderProcedure Method = "providerProcedure"
	MethodProvider          Method = "provider"
	MethodProcedure         Method = "procedure"
	MethodPlanProcedure     Method = "planProcedure"
)

// DefaultMethod is the partition claims land in before a reviewer picks one.
const DefaultMethod = MethodMRF

// keyDelimiter joins normalized key parts. Pipe is not expected in the data.
const keyDelimiter = "|"

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodMRF, MethodProviderProcedure, MethodProvider, MethodProcedure, MethodPlanProcedure:
		return Method(s), nil
	}
	return "", errInvalidMethod(Method(s))
}

func errInvalidMethod(m Method) error {
	return errors.Errorf("%s: %q", constants.ErrInvalidMethod, string(m))
}

// BillingClass derives professional vs. institutional from the claim type.
// Anything that does not normalize to "professional" is institutional.
func BillingClass(c *models.Claim) string {
	if claims.NormalizeToken(c.ClaimType) == constants.BillingClassProfessional {
		return constants.BillingClassProfessional
	}
	return constants.BillingClassInstitutional
}

// serviceCodeTable maps normalized place-of-service text to the fixed
// place-of-service code set used in MRF reporting.
var serviceCodeTable = map[string]string{
	"inpatient hospital":        "21",
	"outpatient hospital":       "22",
	"emergency room - hospital": "23",
	"emergency room-hospital":   "23",
	"ambulatory surgical center": "24",
	"urgent care":               "20",
	"office":                    "11",
}

// ServiceCode derives the place-of-service code for professional claims;
// unmapped values get the "99" sentinel. Institutional claims carry no
// service code and yield "".
func ServiceCode(c *models.Claim) string {
	if BillingClass(c) != constants.BillingClassProfessional {
		return ""
	}
	if code, ok := serviceCodeTable[claims.NormalizeToken(c.PlaceOfService)]; ok {
		return code
	}
	return constants.ServiceCodeOther
}

// CustomerID resolves the customer identity: group id, else group name, else
// the "unknown" literal. This value keys both pricing groups and generated
// documents.
func CustomerID(c *models.Claim) string {
	if id := strings.TrimSpace(c.GroupID); id != "" {
		return id
	}
	if name := strings.TrimSpace(c.GroupName); name != "" {
		return name
	}
	return constants.UnknownCustomer
}

func planKey(c *models.Claim) string {
	if id := strings.TrimSpace(c.PlanID); id != "" {
		return id
	}
	if name := strings.TrimSpace(c.PlanName); name != "" {
		return name
	}
	return constants.UnknownCustomer
}

func orUnknown(s string) string {
	if s == "" {
		return constants.UnknownCustomer
	}
	return s
}

// keyField is one component of a grouping key: the normalized key part drawn
// from a claim, and the display-oriented accessor used when sorting the
// resulting group list.
type keyField struct {
	name string
	part func(c *models.Claim) string
	sort func(g *accumulator) []string
}

var (
	fieldCustomer = keyField{
		name: "customer",
		part: CustomerID,
		sort: func(g *accumulator) []string { return []string{g.customerName, g.customerID} },
	}
	fieldProvider = keyField{
		name: "provider",
		part: func(c *models.Claim) string { return orUnknown(c.ProviderID) },
		// Provider sorts by name then id.
		sort: func(g *accumulator) []string { return []string{g.providerNames.First(), g.providerIDs.First()} },
	}
	fieldProcedure = keyField{
		name: "procedure",
		part: func(c *models.Claim) string { return orUnknown(c.ProcedureCode) },
		sort: func(g *accumulator) []string { return []string{g.procedureCodes.First()} },
	}
	fieldBillingClass = keyField{
		name: "billing-class",
		part: BillingClass,
		sort: func(g *accumulator) []string { return []string{g.billingClasses.First()} },
	}
	fieldServiceCode = keyField{
		name: "service-code",
		part: func(c *models.Claim) string {
			// Empty maps to "none" rather than "unknown": institutional
			// claims legitimately have no service code.
			if code := ServiceCode(c); code != "" {
				return code
			}
			return "none"
		},
		sort: func(g *accumulator) []string { return []string{g.serviceCodes.First()} },
	}
	fieldPlan = keyField{
		name: "plan",
		part: planKey,
		sort: func(g *accumulator) []string { return []string{g.planNames.First(), g.planIDs.First()} },
	}
)

// methodFields lists each methodology's key fields in fixed order.
var methodFields = map[Method][]keyField{
	MethodMRF:               {fieldCustomer, fieldProvider, fieldProcedure, fieldBillingClass, fieldServiceCode},
	MethodProviderProcedure: {fieldCustomer, fieldProvider, fieldProcedure, fieldBillingClass},
	MethodProvider:          {fieldCustomer, fieldProvider, fieldBillingClass},
	MethodProcedure:         {fieldCustomer, fieldProcedure, fieldBillingClass},
	MethodPlanProcedure:     {fieldCustomer, fieldPlan, fieldProcedure, fieldBillingClass},
}

// GroupKey computes the deterministic grouping key for a claim under the
// given methodology.
func GroupKey(c *models.Claim, method Method) (string, error) {
	fields, ok := methodFields[method]
	if !ok {
		return "", errInvalidMethod(method)
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.part(c))
	}
	return strings.Join(parts, keyDelimiter), nil
}
