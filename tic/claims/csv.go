package claims

import (
	"fmt"
	"io"
	"os"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"

	"github.com/tichealth/tic-app/tic/models"
)

// Canonical claim upload columns. Header names must match exactly.
const (
	colClaimID           = "claim_id"
	colSubscriberID      = "subscriber_id"
	colMemberSequence    = "member_sequence"
	colClaimStatus       = "claim_status"
	colPaymentStatus     = "payment_status"
	colPaymentStatusDate = "payment_status_date"
	colServiceDate       = "service_date"
	colReceivedDate      = "received_date"
	colEntryDate         = "entry_date"
	colProcessedDate     = "processed_date"
	colPaidDate          = "paid_date"
	colBilledAmount      = "billed_amount"
	colAllowedAmount     = "allowed_amount"
	colPaidAmount        = "paid_amount"
	colGroupID           = "group_id"
	colGroupName         = "group_name"
	colDivisionID        = "division_id"
	colDivisionName      = "division_name"
	colPlanID            = "plan_id"
	colPlanName          = "plan_name"
	colPlaceOfService    = "place_of_service"
	colClaimType         = "claim_type"
	colProcedureCode     = "procedure_code"
	colMemberGender      = "member_gender"
	colProviderID        = "provider_id"
	colProviderName      = "provider_name"
)

// Columns that must be present in a claim upload
var requiredColumns = []string{
	colClaimID, colSubscriberID, colMemberSequence,
	colClaimStatus, colPaymentStatus, colPaymentStatusDate,
	colServiceDate, colReceivedDate, colEntryDate, colProcessedDate, colPaidDate,
	colBilledAmount, colAllowedAmount, colPaidAmount,
	colGroupID, colGroupName,
	colDivisionID, colDivisionName,
	colPlanID, colPlanName,
	colPlaceOfService, colClaimType, colProcedureCode, colMemberGender,
	colProviderID, colProviderName,
}

// ReadClaims reads a claim CSV upload and normalizes every row into a claim
// record with its validation state populated. Structural issues never abort
// the batch; only an unreadable file or a missing required column does.
func ReadClaims(r io.Reader) ([]models.Claim, error) {
	df, err := toDataFrame(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataframe: %w", err)
	}
	if err := validateColumns(df); err != nil {
		return nil, err
	}

	records := df.Records()
	return toClaims(records[0], records[1:]), nil
}

// ReadClaimsFile is the file-path convenience used by the CLI.
func ReadClaimsFile(name string) ([]models.Claim, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open claim file: %w", err)
	}
	defer f.Close()

	return ReadClaims(f)
}

func toDataFrame(r io.Reader) (dataframe.DataFrame, error) {
	// Trim the Byte Order Marker if it's present
	// See: https://github.com/golang/go/issues/33887
	reader := utfbom.SkipOnly(r)

	df := dataframe.ReadCSV(reader, dataframe.HasHeader(true), dataframe.DetectTypes(false))
	// Any error from this read operation is written to the Err field

	return df, df.Err
}

func validateColumns(df dataframe.DataFrame) error {
	fields := df.Names()
	m := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		m[field] = struct{}{}
	}

	for _, required := range requiredColumns {
		if _, ok := m[required]; !ok {
			return fmt.Errorf("required column '%s' not found", required)
		}
	}

	return nil
}

func toClaims(headers []string, rows [][]string) []models.Claim {
	result := make([]models.Claim, 0, len(rows))
	for idx, row := range rows {
		raw := make(map[string]string, len(row))
		for col, val := range row {
			if col < len(headers) {
				raw[headers[col]] = val
			}
		}
		c := Normalize(raw, idx+1)
		Validate(&c)
		result = append(result, c)
	}
	return result
}
