package mrf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tichealth/tic-app/tic/constants"
	"github.com/tichealth/tic-app/tic/grouping"
	"github.com/tichealth/tic-app/tic/models"
)

// bucket accumulates one (provider, billing class, service code) combination
// within a procedure group. One provider per bucket by construction.
type bucket struct {
	npi          int64
	providerID   string
	billingClass string
	serviceCode  string

	count      int
	sumAllowed float64
	sumBilled  float64
}

type procedureGroup struct {
	code    string
	order   []string
	buckets map[string]*bucket
}

type customerGroup struct {
	id          string
	displayName string
	order       []string
	procedures  map[string]*procedureGroup
	claimCount  int
}

// Generate builds one MRF document per distinct customer identity in the
// input. Claims without a procedure code or without a numeric provider id
// are skipped, not defaulted; a customer whose subset yields zero
// out-of-network entries produces no document at all.
func Generate(claimSet []models.Claim, now time.Time) []models.GeneratedMRF {
	var order []string
	customers := make(map[string]*customerGroup)

	for i := range claimSet {
		c := &claimSet[i]

		id := grouping.CustomerID(c)
		cust, ok := customers[id]
		if !ok {
			cust = &customerGroup{id: id, procedures: make(map[string]*procedureGroup)}
			customers[id] = cust
			order = append(order, id)
		}
		if cust.displayName == "" {
			cust.displayName = strings.TrimSpace(c.GroupName)
		}

		code := strings.TrimSpace(c.ProcedureCode)
		if code == "" {
			continue
		}

		npi, err := strconv.ParseInt(strings.TrimSpace(c.ProviderID), 10, 64)
		if err != nil {
			continue
		}

		proc, ok := cust.procedures[code]
		if !ok {
			proc = &procedureGroup{code: code, buckets: make(map[string]*bucket)}
			cust.procedures[code] = proc
			cust.order = append(cust.order, code)
		}

		billingClass := grouping.BillingClass(c)
		serviceCode := grouping.ServiceCode(c)
		bucketKey := fmt.Sprintf("%d|%s|%s", npi, billingClass, serviceCodeOrNone(serviceCode))

		b, ok := proc.buckets[bucketKey]
		if !ok {
			b = &bucket{
				npi:          npi,
				providerID:   strings.TrimSpace(c.ProviderID),
				billingClass: billingClass,
				serviceCode:  serviceCode,
			}
			proc.buckets[bucketKey] = b
			proc.order = append(proc.order, bucketKey)
		}

		b.count++
		b.sumAllowed += c.AllowedAmount.Float()
		b.sumBilled += c.BilledAmount.Float()
		cust.claimCount++
	}

	var documents []models.GeneratedMRF
	for _, id := range order {
		cust := customers[id]
		doc := cust.document(now)
		if len(doc.OutOfNetwork) == 0 {
			continue
		}
		documents = append(documents, doc)
	}
	return documents
}

func serviceCodeOrNone(code string) string {
	if code == "" {
		return "none"
	}
	return code
}

func (cust *customerGroup) document(now time.Time) models.GeneratedMRF {
	displayName := cust.displayName
	if displayName == "" {
		displayName = cust.id
	}

	var entries []models.OutOfNetwork
	for _, code := range cust.order {
		proc := cust.procedures[code]
		entries = append(entries, proc.entry())
	}

	return models.GeneratedMRF{
		ReportingEntityName: displayName,
		ReportingEntityType: constants.ReportingEntityType,
		LastUpdatedOn:       now.Format("2006-01-02"),
		Version:             constants.MRFVersion,
		OutOfNetwork:        entries,

		CustomerID:   cust.id,
		CustomerKey:  Slugify(displayName),
		CustomerName: displayName,
		FileName:     FileName(displayName, cust.id, now),
		ClaimCount:   cust.claimCount,
	}
}

func (proc *procedureGroup) entry() models.OutOfNetwork {
	var amounts []models.AllowedAmount
	for _, key := range proc.order {
		b := proc.buckets[key]

		amount := models.AllowedAmount{
			TIN:          models.TIN{Type: constants.TINTypeNPI, Value: b.providerID},
			BillingClass: b.billingClass,
			Payments: []models.Payment{{
				AllowedAmount: models.Round2(b.sumAllowed / float64(b.count)),
				Providers: []models.PaymentProvider{{
					BilledCharge: models.Round2(b.sumBilled / float64(b.count)),
					NPI:          []int64{b.npi},
				}},
			}},
		}
		// Service codes apply only to professional buckets with a resolved
		// code; institutional buckets carry none.
		if b.billingClass == constants.BillingClassProfessional && b.serviceCode != "" {
			amount.ServiceCode = []string{b.serviceCode}
		}

		amounts = append(amounts, amount)
	}

	return models.OutOfNetwork{
		Name:                   proc.code,
		BillingCodeType:        billingCodeType(proc.code),
		BillingCodeTypeVersion: constants.BillingCodeTypeVersion,
		BillingCode:            proc.code,
		Description:            fmt.Sprintf("Out-of-network allowed amounts for procedure code %s", proc.code),
		AllowedAmounts:         amounts,
	}
}

// billingCodeType classifies the procedure code: HCPCS when the code carries
// any letter, CPT otherwise.
func billingCodeType(code string) string {
	for _, r := range code {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return "HCPCS"
		}
	}
	return "CPT"
}
