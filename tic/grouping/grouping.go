package grouping

import (
	"math"
	"sort"
	"strings"

	"github.com/tichealth/tic-app/tic/claims"
	"github.com/tichealth/tic-app/tic/models"
)

// deniedStatuses are the claim statuses that exclude a claim from pricing,
// compared case and whitespace insensitively.
var deniedStatuses = map[string]struct{}{
	"denied":   {},
	"reject":   {},
	"rejected": {},
}

// IsDenied reports whether the claim status marks the claim denied.
func IsDenied(c *models.Claim) bool {
	_, ok := deniedStatuses[claims.NormalizeToken(c.ClaimStatus)]
	return ok
}

// IsEligible reports whether a claim counts toward pricing: structurally
// valid and not denied.
func IsEligible(c *models.Claim) bool {
	return c.Valid && !IsDenied(c)
}

// accumulator is the running state for one pricing group during the
// aggregation pass.
type accumulator struct {
	key          string
	customerID   string
	customerName string

	providerIDs     *valueSet
	providerNames   *valueSet
	procedureCodes  *valueSet
	placesOfService *valueSet
	billingClasses  *valueSet
	claimTypes      *valueSet
	planIDs         *valueSet
	planNames       *valueSet
	serviceCodes    *valueSet

	claimCount    int
	eligibleCount int
	invalidCount  int
	deniedCount   int

	sumAllowed float64
	sumBilled  float64
	sumPaid    float64

	// Indexes into the aggregated claim slice, in input order.
	memberIdx   []int
	eligibleIdx []int
}

func newAccumulator(key string) *accumulator {
	return &accumulator{
		key:             key,
		providerIDs:     newValueSet(),
		providerNames:   newValueSet(),
		procedureCodes:  newValueSet(),
		placesOfService: newValueSet(),
		billingClasses:  newValueSet(),
		claimTypes:      newValueSet(),
		planIDs:         newValueSet(),
		planNames:       newValueSet(),
		serviceCodes:    newValueSet(),
	}
}

// Grouped is the result of one aggregation pass: the sorted group summaries
// plus the group-to-claim membership needed by the approval ledger. Both are
// derived values; callers must not treat them as a source of truth.
type Grouped struct {
	Summaries []*models.GroupSummary
	// Members maps a group key to claim indexes (input order) in the
	// aggregated slice. EligibleMembers is the subset that counts toward
	// pricing and approval.
	Members         map[string][]int
	EligibleMembers map[string][]int
}

// Aggregate partitions claims under the given methodology in a single pass
// and derives each group's summary. approvals is the claim-level approval
// map keyed by row id; a group reports approved only when it is eligible and
// every eligible claim in it is individually approved. Aggregating the same
// input twice produces identical output.
func Aggregate(claimSet []models.Claim, method Method, approvals map[string]bool) (*Grouped, error) {
	if _, ok := methodFields[method]; !ok {
		return nil, errInvalidMethod(method)
	}

	order := make([]string, 0)
	groups := make(map[string]*accumulator)

	for i := range claimSet {
		c := &claimSet[i]

		key, err := GroupKey(c, method)
		if err != nil {
			return nil, err
		}

		g, ok := groups[key]
		if !ok {
			g = newAccumulator(key)
			g.customerID = CustomerID(c)
			groups[key] = g
			order = append(order, key)
		}

		// First non-empty group name for the key wins, in input order.
		if g.customerName == "" {
			g.customerName = strings.TrimSpace(c.GroupName)
		}

		g.providerIDs.Add(c.ProviderID)
		g.providerNames.Add(c.ProviderName)
		g.procedureCodes.Add(c.ProcedureCode)
		g.placesOfService.Add(c.PlaceOfService)
		g.billingClasses.Add(BillingClass(c))
		g.claimTypes.Add(c.ClaimType)
		g.planIDs.Add(c.PlanID)
		g.planNames.Add(c.PlanName)
		g.serviceCodes.Add(ServiceCode(c))

		g.claimCount++
		g.memberIdx = append(g.memberIdx, i)

		if !c.Valid {
			g.invalidCount++
		}
		if IsDenied(c) {
			g.deniedCount++
		}

		// Sums run only over claims that are both valid and not denied.
		if IsEligible(c) {
			g.eligibleCount++
			g.eligibleIdx = append(g.eligibleIdx, i)
			g.sumAllowed += c.AllowedAmount.Float()
			g.sumBilled += c.BilledAmount.Float()
			g.sumPaid += c.PaidAmount.Float()
		}
	}

	result := &Grouped{
		Summaries:       make([]*models.GroupSummary, 0, len(order)),
		Members:         make(map[string][]int, len(order)),
		EligibleMembers: make(map[string][]int, len(order)),
	}

	for _, key := range order {
		g := groups[key]
		result.Members[key] = g.memberIdx
		result.EligibleMembers[key] = g.eligibleIdx
		result.Summaries = append(result.Summaries, g.summarize(method, claimSet, approvals))
	}

	sortSummaries(result.Summaries)

	return result, nil
}

func (g *accumulator) summarize(method Method, claimSet []models.Claim, approvals map[string]bool) *models.GroupSummary {
	s := &models.GroupSummary{
		Key:          g.key,
		CustomerID:   g.customerID,
		CustomerName: g.customerName,

		Provider:       g.providerNames.Display(),
		Procedure:      g.procedureCodes.Display(),
		PlaceOfService: g.placesOfService.Display(),
		BillingClass:   g.billingClasses.Display(),
		ClaimType:      g.claimTypes.Display(),
		Plan:           g.planNames.Display(),
		ServiceCode:    g.serviceCodes.Display(),

		ClaimCount:         g.claimCount,
		EligibleClaimCount: g.eligibleCount,
		InvalidClaimCount:  g.invalidCount,
		DeniedClaimCount:   g.deniedCount,
	}

	if s.CustomerName == "" {
		s.CustomerName = g.customerID
	}

	// A group is eligible for approval only when nothing in it poisons the
	// price: at least one eligible claim, zero invalid, zero denied.
	s.Eligible = g.eligibleCount > 0 && g.invalidCount == 0 && g.deniedCount == 0

	if g.eligibleCount > 0 {
		n := float64(g.eligibleCount)
		s.AverageAllowed = models.Money(g.sumAllowed / n)
		s.AverageBilled = models.Money(g.sumBilled / n)
		s.AveragePaid = models.Money(g.sumPaid / n)
	} else {
		// Explicit no-data signal, never coerced to 0.
		s.AverageAllowed = models.Money(math.NaN())
		s.AverageBilled = models.Money(math.NaN())
		s.AveragePaid = models.Money(math.NaN())
	}

	s.Approved = s.Eligible
	for _, idx := range g.eligibleIdx {
		if !approvals[claimSet[idx].RowID] {
			s.Approved = false
			break
		}
	}

	s.SearchText = g.searchText()

	for _, f := range methodFields[method] {
		for _, v := range f.sort(g) {
			s.SortKeys = append(s.SortKeys, strings.ToLower(v))
		}
	}

	return s
}

func (g *accumulator) searchText() string {
	parts := []string{g.customerID, g.customerName}
	for _, set := range []*valueSet{
		g.providerIDs, g.providerNames, g.procedureCodes, g.placesOfService,
		g.billingClasses, g.claimTypes, g.planIDs, g.planNames, g.serviceCodes,
	} {
		parts = append(parts, set.Values()...)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// sortSummaries orders groups lexicographically by the methodology's sort
// accessors with the raw group key as the final tie-break, so the listing is
// fully deterministic.
func sortSummaries(summaries []*models.GroupSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		for k := 0; k < len(a.SortKeys) && k < len(b.SortKeys); k++ {
			if a.SortKeys[k] != b.SortKeys[k] {
				return a.SortKeys[k] < b.SortKeys[k]
			}
		}
		return a.Key < b.Key
	})
}
