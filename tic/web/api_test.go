package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/tichealth/tic-app/conf"
	"github.com/tichealth/tic-app/tic/auth"
	"github.com/tichealth/tic-app/tic/models"
	"github.com/tichealth/tic-app/tic/storage"
)

var csvColumns = []string{
	"claim_id", "subscriber_id", "member_sequence",
	"claim_status", "payment_status", "payment_status_date",
	"service_date", "received_date", "entry_date", "processed_date", "paid_date",
	"billed_amount", "allowed_amount", "paid_amount",
	"group_id", "group_name",
	"division_id", "division_name",
	"plan_id", "plan_name",
	"place_of_service", "claim_type", "procedure_code", "member_gender",
	"provider_id", "provider_name",
}

func claimRow(id string) map[string]string {
	return map[string]string{
		"claim_id":            id,
		"subscriber_id":       "SUB-1",
		"member_sequence":     "0",
		"claim_status":        "Paid",
		"payment_status":      "Issued",
		"payment_status_date": "2024-02-01",
		"service_date":        "2024-01-10",
		"received_date":       "2024-01-12",
		"entry_date":          "2024-01-12",
		"processed_date":      "2024-01-20",
		"paid_date":           "2024-02-01",
		"billed_amount":       "150.00",
		"allowed_amount":      "100.00",
		"paid_amount":         "80.00",
		"group_id":            "GRP-1",
		"group_name":          "Acme Health",
		"division_id":         "DIV-1",
		"division_name":       "Division One",
		"plan_id":             "PLN-1",
		"plan_name":           "Gold Plan",
		"place_of_service":    "Office",
		"claim_type":          "Professional",
		"procedure_code":      "99213",
		"member_gender":       "F",
		"provider_id":         "1234567890",
		"provider_name":       "Dr. Example",
	}
}

func buildCSV(rows ...map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(csvColumns, ","))
	b.WriteString("\n")
	for _, row := range rows {
		values := make([]string, len(csvColumns))
		for i, col := range csvColumns {
			values[i] = row[col]
		}
		b.WriteString(strings.Join(values, ","))
		b.WriteString("\n")
	}
	return b.String()
}

type APITestSuite struct {
	suite.Suite
	registry *auth.Registry
	files    *storage.FileStore
	router   http.Handler
	data     http.Handler
	token    string
}

func (s *APITestSuite) SetupTest() {
	assert.NoError(s.T(), conf.SetEnv(s.T(), "TIC_DEMO_USERNAME", "demo"))
	assert.NoError(s.T(), conf.SetEnv(s.T(), "TIC_DEMO_PASSWORD", "s3cret"))

	s.registry = auth.NewRegistry()
	s.files = storage.NewFileStore(s.T().TempDir())
	s.router = NewAPIRouter(s.registry, s.files)
	s.data = NewDataRouter(s.registry, s.files)

	session, err := s.registry.Login("demo", "s3cret")
	assert.NoError(s.T(), err)
	s.token = session.Token
}

func (s *APITestSuite) request(handler http.Handler, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		r.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func (s *APITestSuite) uploadClaims(rows ...map[string]string) uploadResponse {
	w := s.request(s.router, "POST", "/api/v1/claims", "text/csv", []byte(buildCSV(rows...)))
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var resp uploadResponse
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *APITestSuite) TestLogin() {
	body := []byte(`{"username": "demo", "password": "s3cret"}`)
	w := s.request(s.router, "POST", "/api/v1/login", "application/json", body)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var resp loginResponse
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(s.T(), resp.Token)
}

func (s *APITestSuite) TestLoginBadCredential() {
	body := []byte(`{"username": "demo", "password": "wrong"}`)
	w := s.request(s.router, "POST", "/api/v1/login", "application/json", body)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestUnauthorizedWithoutToken() {
	s.token = ""
	w := s.request(s.router, "GET", "/api/v1/claims", "", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestUploadAndListClaims() {
	bad := claimRow("CLM-2")
	bad["provider_id"] = "123"
	resp := s.uploadClaims(claimRow("CLM-1"), bad)

	assert.Equal(s.T(), 2, resp.ClaimCount)
	assert.Equal(s.T(), 1, resp.ValidCount)
	assert.Equal(s.T(), 1, resp.InvalidCount)

	w := s.request(s.router, "GET", "/api/v1/claims", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var claimSet []models.Claim
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &claimSet))
	assert.Len(s.T(), claimSet, 2)
	assert.True(s.T(), claimSet[0].Valid)
	assert.False(s.T(), claimSet[1].Valid)
}

func (s *APITestSuite) TestUploadMissingColumn() {
	w := s.request(s.router, "POST", "/api/v1/claims", "text/csv", []byte("claim_id\nCLM-1\n"))
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), w.Body.String(), "required column")
}

func (s *APITestSuite) TestListGroupsSwitchesMethod() {
	s.uploadClaims(claimRow("CLM-1"))

	w := s.request(s.router, "GET", "/api/v1/groups?method=provider", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var resp groupsResponse
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "provider", resp.Method)
	assert.Len(s.T(), resp.Groups, 1)
	assert.Equal(s.T(), "GRP-1|1234567890|professional", resp.Groups[0].Key)
	assert.True(s.T(), resp.Groups[0].Eligible)
	assert.False(s.T(), resp.Groups[0].Approved)
}

func (s *APITestSuite) TestListGroupsUnknownMethod() {
	s.uploadClaims(claimRow("CLM-1"))

	w := s.request(s.router, "GET", "/api/v1/groups?method=bogus", "", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), w.Body.String(), "unknown grouping method")
}

func (s *APITestSuite) TestApproveAllAndClear() {
	s.uploadClaims(claimRow("CLM-1"), claimRow("CLM-2"))

	w := s.request(s.router, "POST", "/api/v1/groups/approve-all", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var resp groupsResponse
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(s.T(), resp.Groups, 1)
	assert.True(s.T(), resp.Groups[0].Approved)

	w = s.request(s.router, "DELETE", "/api/v1/groups/approvals", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(s.T(), resp.Groups[0].Approved)
}

func (s *APITestSuite) TestSetGroupApproval() {
	s.uploadClaims(claimRow("CLM-1"))

	groups := s.currentGroups()
	body, _ := json.Marshal(groupApprovalRequest{Key: groups[0].Key, Approved: true})
	w := s.request(s.router, "POST", "/api/v1/groups/approval", "application/json", body)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var resp groupsResponse
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(s.T(), resp.Groups[0].Approved)
}

func (s *APITestSuite) TestEditClaimNotFound() {
	s.uploadClaims(claimRow("CLM-1"))

	w := s.request(s.router, "PUT", "/api/v1/claims/nope", "application/json", []byte(`{"claim_status": "Denied"}`))
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestEditClaim() {
	s.uploadClaims(claimRow("CLM-1"))

	w := s.request(s.router, "PUT", "/api/v1/claims/CLM-1", "application/json", []byte(`{"claim_status": "Denied"}`))
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var claim models.Claim
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &claim))
	assert.Equal(s.T(), "Denied", claim.ClaimStatus)
}

func (s *APITestSuite) TestDeleteClaim() {
	s.uploadClaims(claimRow("CLM-1"), claimRow("CLM-2"))

	w := s.request(s.router, "DELETE", "/api/v1/claims/CLM-1", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = s.request(s.router, "GET", "/api/v1/claims", "", nil)
	var claimSet []models.Claim
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &claimSet))
	assert.Len(s.T(), claimSet, 1)
	assert.Equal(s.T(), "CLM-2", claimSet[0].ClaimID)
}

func (s *APITestSuite) TestSubmitWithoutClaims() {
	w := s.request(s.router, "POST", "/api/v1/submit", "", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), w.Body.String(), "no claims provided")
}

func (s *APITestSuite) TestSubmitWithoutApprovals() {
	s.uploadClaims(claimRow("CLM-1"))

	w := s.request(s.router, "POST", "/api/v1/submit", "", nil)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	assert.Contains(s.T(), w.Body.String(), "no eligible/approved claims")
}

func (s *APITestSuite) TestSubmitAndDownload() {
	s.uploadClaims(claimRow("CLM-1"), claimRow("CLM-2"))

	w := s.request(s.router, "POST", "/api/v1/groups/approve-all", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = s.request(s.router, "POST", "/api/v1/submit", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var resp submitResponse
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(s.T(), resp.Files, 1)
	assert.Equal(s.T(), "GRP-1", resp.Files[0].CustomerID)
	assert.Equal(s.T(), 2, resp.Files[0].ClaimCount)

	// Listed in the manifest.
	w = s.request(s.router, "GET", "/api/v1/files?customer=GRP-1", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var records []models.CustomerRecord
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(s.T(), records, 1)
	assert.Len(s.T(), records[0].Files, 1)

	// Downloadable from the data router.
	target := fmt.Sprintf("/data/%s/%s", resp.Files[0].CustomerID, resp.Files[0].FileName)
	w = s.request(s.data, "GET", target, "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "application/json", w.Header().Get("Content-Type"))
	assert.Contains(s.T(), w.Body.String(), "out_of_network")
}

func (s *APITestSuite) TestDownloadUnknownFile() {
	w := s.request(s.data, "GET", "/data/GRP-1/missing.json", "", nil)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestHealthAndVersion() {
	s.token = ""
	w := s.request(s.router, "GET", "/_health", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	w = s.request(s.router, "GET", "/_version", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), "version")
}

func (s *APITestSuite) currentGroups() []*models.GroupSummary {
	w := s.request(s.router, "GET", "/api/v1/groups", "", nil)
	assert.Equal(s.T(), http.StatusOK, w.Code)

	var resp groupsResponse
	assert.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Groups
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
