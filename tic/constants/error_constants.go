package constants

// User-visible submission failure messages. Edit them here to prevent
// breaking tests.
const (
	ErrNoClaims          = "no claims provided"
	ErrNoEligibleClaims  = "no eligible/approved claims to submit"
	ErrNoDocuments       = "no documents could be generated from the approved set"
	ErrInvalidMethod     = "unknown grouping method"
	ErrClaimNotFound     = "claim not found"
	ErrInvalidCredential = "invalid username or password"
)
