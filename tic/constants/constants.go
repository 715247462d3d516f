package constants

// This is set during compilation. See build_and_package.sh in the ops repo.
var Version = "latest"

// MRF document constants. The schema version is pinned for every generated
// file; compliance consumers key off these values.
const (
	MRFVersion             = "1.0.0"
	BillingCodeTypeVersion = "2024"
	ReportingEntityType    = "group"
	TINTypeNPI             = "npi"
)

const (
	BillingClassProfessional  = "professional"
	BillingClassInstitutional = "institutional"
)

// ServiceCodeOther is the sentinel place-of-service code for professional
// claims whose place of service has no table entry.
const ServiceCodeOther = "99"

// UnknownCustomer is the customer identity used when a claim carries neither
// a group id nor a group name.
const UnknownCustomer = "unknown"

// Manifest file name within the MRF storage root.
const IndexFileName = "index.json"
