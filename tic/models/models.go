package models

import (
	"math"
	"strconv"
	"time"
)

// Money is a non-negative currency amount parsed from tabular input. A NaN
// value means the source text did not parse; that is distinct from 0 and
// fails validation instead of silently zeroing. At the JSON display boundary
// non-finite values render as null and finite values render rounded to two
// decimal places, half away from zero.
type Money float64

func (m Money) Float() float64 { return float64(m) }

// Round2 rounds half away from zero to 2 decimal places. Non-finite inputs
// round to 0.
func Round2(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*100) / 100
}

func (m Money) MarshalJSON() ([]byte, error) {
	f := float64(m)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(Round2(f), 'f', 2, 64)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*m = Money(math.NaN())
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*m = Money(math.NaN())
		return nil
	}
	*m = Money(f)
	return nil
}

// Issue is one structural validation finding, attached to the offending
// 1-based source row and field.
type Issue struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Claim is one billing event as normalized from a single source row. There is
// no per-claim persistence; claims live only in a session working set.
type Claim struct {
	ClaimID      string `json:"claim_id"`
	SubscriberID string `json:"subscriber_id"`
	// MemberSequence is numeric input; NaN flags an unparseable value.
	MemberSequence float64 `json:"-"`

	ClaimStatus       string `json:"claim_status"`
	PaymentStatus     string `json:"payment_status"`
	PaymentStatusDate string `json:"payment_status_date"`

	ServiceDate   string `json:"service_date"`
	ReceivedDate  string `json:"received_date"`
	EntryDate     string `json:"entry_date"`
	ProcessedDate string `json:"processed_date"`
	PaidDate      string `json:"paid_date"`

	BilledAmount  Money `json:"billed_amount"`
	AllowedAmount Money `json:"allowed_amount"`
	PaidAmount    Money `json:"paid_amount"`

	GroupID      string `json:"group_id"`
	GroupName    string `json:"group_name"`
	DivisionID   string `json:"division_id"`
	DivisionName string `json:"division_name"`
	PlanID       string `json:"plan_id"`
	PlanName     string `json:"plan_name"`

	PlaceOfService string `json:"place_of_service"`
	ClaimType      string `json:"claim_type"`
	ProcedureCode  string `json:"procedure_code"`
	MemberGender   string `json:"member_gender"`

	ProviderID   string `json:"provider_id"`
	ProviderName string `json:"provider_name"`

	// RowID is the stable row identifier: the claim id, or a positional
	// fallback when the source row had none.
	RowID string `json:"row_id"`
	// RowIndex is the 1-based source row, carried for error reporting.
	RowIndex int     `json:"row_index"`
	Valid    bool    `json:"valid"`
	Issues   []Issue `json:"issues,omitempty"`
}

// GroupSummary is a derived, read-only aggregate over the claims sharing one
// grouping key. Summaries are recomputed on every read; they are never a
// source of truth.
type GroupSummary struct {
	Key          string `json:"key"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`

	// Display values per key field: the sole distinct value, "Multiple (N)"
	// when the group spans more than one, or "-" when none.
	Provider       string `json:"provider"`
	Procedure      string `json:"procedure"`
	PlaceOfService string `json:"place_of_service"`
	BillingClass   string `json:"billing_class"`
	ClaimType      string `json:"claim_type"`
	Plan           string `json:"plan"`
	ServiceCode    string `json:"service_code"`

	ClaimCount         int `json:"claim_count"`
	EligibleClaimCount int `json:"eligible_claim_count"`
	InvalidClaimCount  int `json:"invalid_claim_count"`
	DeniedClaimCount   int `json:"denied_claim_count"`

	// Averages are over eligible claims only; NaN (null on the wire) when the
	// group has none.
	AverageAllowed Money `json:"average_allowed"`
	AverageBilled  Money `json:"average_billed"`
	AveragePaid    Money `json:"average_paid"`

	Approved bool `json:"approved"`
	Eligible bool `json:"eligible"`

	SearchText string `json:"search_text"`

	// SortKeys are the active methodology's display-oriented sort accessors,
	// in key-field order, used for the deterministic group ordering.
	SortKeys []string `json:"-"`
}

// TIN identifies the taxpayer for an allowed-amount bucket. Claim input only
// carries NPIs, so the type is always "npi".
type TIN struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type PaymentProvider struct {
	BilledCharge float64 `json:"billed_charge"`
	NPI          []int64 `json:"npi"`
}

type Payment struct {
	AllowedAmount float64           `json:"allowed_amount"`
	Providers     []PaymentProvider `json:"providers"`
}

type AllowedAmount struct {
	TIN          TIN       `json:"tin"`
	BillingClass string    `json:"billing_class"`
	ServiceCode  []string  `json:"service_code,omitempty"`
	Payments     []Payment `json:"payments"`
}

type OutOfNetwork struct {
	Name                   string          `json:"name"`
	BillingCodeType        string          `json:"billing_code_type"`
	BillingCodeTypeVersion string          `json:"billing_code_type_version"`
	BillingCode            string          `json:"billing_code"`
	Description            string          `json:"description"`
	AllowedAmounts         []AllowedAmount `json:"allowed_amounts"`
}

// GeneratedMRF is one machine-readable file for one customer. The document is
// immutable once constructed and persisted verbatim; the untagged metadata
// fields travel with it to storage but never reach the wire.
type GeneratedMRF struct {
	ReportingEntityName string         `json:"reporting_entity_name"`
	ReportingEntityType string         `json:"reporting_entity_type"`
	LastUpdatedOn       string         `json:"last_updated_on"`
	Version             string         `json:"version"`
	OutOfNetwork        []OutOfNetwork `json:"out_of_network"`

	CustomerID   string `json:"-"`
	CustomerKey  string `json:"-"`
	CustomerName string `json:"-"`
	FileName     string `json:"-"`
	ClaimCount   int    `json:"-"`
}

// FileRecord captures one persisted MRF document in the manifest.
type FileRecord struct {
	CustomerID   string    `json:"customerId"`
	CustomerKey  string    `json:"customerKey"`
	CustomerName string    `json:"customerName"`
	FileName     string    `json:"fileName"`
	CreatedAt    time.Time `json:"createdAt"`
	ClaimCount   int       `json:"claimCount"`
	Size         int64     `json:"size"`
}

// CustomerRecord aggregates all file records for one customer, most recent
// first.
type CustomerRecord struct {
	ID    string       `json:"id"`
	Key   string       `json:"key"`
	Name  string       `json:"name"`
	Files []FileRecord `json:"files"`
}

// Index is the durable manifest mapping customer id to its record. It is the
// single document read and rewritten on every save and list query.
type Index map[string]*CustomerRecord
