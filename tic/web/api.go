package web

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"github.com/tichealth/tic-app/log"
	"github.com/tichealth/tic-app/tic/auth"
	"github.com/tichealth/tic-app/tic/claims"
	"github.com/tichealth/tic-app/tic/constants"
	"github.com/tichealth/tic-app/tic/grouping"
	"github.com/tichealth/tic-app/tic/models"
	"github.com/tichealth/tic-app/tic/mrf"
	"github.com/tichealth/tic-app/tic/responseutils"
	"github.com/tichealth/tic-app/tic/storage"
)

type api struct {
	registry *auth.Registry
	files    *storage.FileStore
	rw       responseutils.ResponseWriter
}

func newAPI(rg *auth.Registry, files *storage.FileStore) *api {
	return &api{registry: rg, files: files, rw: responseutils.NewResponseWriter()}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.rw.Exception(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.registry.Login(req.Username, req.Password)
	if err != nil {
		h.rw.Exception(w, r, http.StatusUnauthorized, err.Error())
		return
	}

	h.rw.JSON(w, r, http.StatusOK, loginResponse{Token: session.Token})
}

type uploadResponse struct {
	ClaimCount   int `json:"claim_count"`
	ValidCount   int `json:"valid_count"`
	InvalidCount int `json:"invalid_count"`
}

// uploadClaims replaces the session's working set with the uploaded CSV.
// Rows with structural issues are kept, flagged invalid; only an unreadable
// file or a missing required column rejects the batch.
func (h *api) uploadClaims(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			h.rw.Exception(w, r, http.StatusBadRequest, "missing form file 'file'")
			return
		}
		defer file.Close()
		src = file
	}

	claimSet, err := claims.ReadClaims(src)
	if err != nil {
		h.rw.Exception(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(claimSet) == 0 {
		h.rw.Exception(w, r, http.StatusBadRequest, constants.ErrNoClaims)
		return
	}

	session.Store.SetClaims(claimSet)

	resp := uploadResponse{ClaimCount: len(claimSet)}
	for i := range claimSet {
		if claimSet[i].Valid {
			resp.ValidCount++
		} else {
			resp.InvalidCount++
		}
	}

	log.Upload.WithField("session_user", session.Username).
		Infof("claim upload accepted: %d rows, %d invalid", resp.ClaimCount, resp.InvalidCount)

	h.rw.JSON(w, r, http.StatusOK, resp)
}

func (h *api) listClaims(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	h.rw.JSON(w, r, http.StatusOK, session.Store.Claims())
}

// editClaim applies field edits to one claim, revalidates it, and drops its
// approval when the edit makes it ineligible.
func (h *api) editClaim(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	rowID := chi.URLParam(r, "rowID")

	var fields map[string]string
	if err := render.DecodeJSON(r.Body, &fields); err != nil {
		h.rw.Exception(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(fields) == 0 {
		h.rw.Exception(w, r, http.StatusBadRequest, "no fields to edit")
		return
	}

	claim, err := session.Store.EditClaim(rowID, fields)
	if err != nil {
		if err.Error() == constants.ErrClaimNotFound {
			h.rw.NotFound(w, r, err.Error())
		} else {
			h.rw.Exception(w, r, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.rw.JSON(w, r, http.StatusOK, claim)
}

func (h *api) deleteClaim(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	rowID := chi.URLParam(r, "rowID")

	if err := session.Store.RemoveClaim(rowID); err != nil {
		h.rw.NotFound(w, r, err.Error())
		return
	}

	h.rw.JSON(w, r, http.StatusOK, map[string]string{"removed": rowID})
}

type groupsResponse struct {
	Method string                 `json:"method"`
	Groups []*models.GroupSummary `json:"groups"`
}

// listGroups returns the summaries for the active methodology. A method
// query parameter switches the methodology first; approvals survive the
// switch because they live on claims, not groups.
func (h *api) listGroups(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	if methodParam := r.URL.Query().Get("method"); methodParam != "" {
		method, err := grouping.ParseMethod(methodParam)
		if err != nil {
			h.rw.Exception(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := session.Store.SetMethod(method); err != nil {
			h.rw.Exception(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}

	groups, err := session.Store.Groups()
	if err != nil {
		h.rw.Exception(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	h.rw.JSON(w, r, http.StatusOK, groupsResponse{
		Method: string(session.Store.Method()),
		Groups: groups,
	})
}

type groupApprovalRequest struct {
	Key      string `json:"key"`
	Approved bool   `json:"approved"`
}

func (h *api) setGroupApproval(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	var req groupApprovalRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.rw.Exception(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		h.rw.Exception(w, r, http.StatusBadRequest, "group key is required")
		return
	}

	// Unknown or ineligible groups are a quiet no-op, matching the ledger.
	if err := session.Store.SetGroupApproval(req.Key, req.Approved); err != nil {
		h.rw.Exception(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	h.groupsSnapshot(w, r, session)
}

func (h *api) approveAllGroups(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	if err := session.Store.ApproveAllEligibleGroups(); err != nil {
		h.rw.Exception(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	h.groupsSnapshot(w, r, session)
}

func (h *api) clearApprovals(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	session.Store.ClearApprovals()
	h.groupsSnapshot(w, r, session)
}

func (h *api) groupsSnapshot(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	groups, err := session.Store.Groups()
	if err != nil {
		h.rw.Exception(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	h.rw.JSON(w, r, http.StatusOK, groupsResponse{
		Method: string(session.Store.Method()),
		Groups: groups,
	})
}

type submitResponse struct {
	Files []models.FileRecord `json:"files"`
}

// submit builds MRF documents from the approved set and persists them.
// Validation is all-or-nothing: every precondition is checked before the
// first byte is written, so a rejected submission leaves storage untouched.
func (h *api) submit(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())

	if len(session.Store.Claims()) == 0 {
		h.rw.Exception(w, r, http.StatusBadRequest, constants.ErrNoClaims)
		return
	}

	approved, err := session.Store.ApprovedEligibleClaims()
	if err != nil {
		h.rw.Exception(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if len(approved) == 0 {
		h.rw.Exception(w, r, http.StatusBadRequest, constants.ErrNoEligibleClaims)
		return
	}

	documents := mrf.Generate(approved, time.Now().UTC())
	if len(documents) == 0 {
		h.rw.Exception(w, r, http.StatusBadRequest, constants.ErrNoDocuments)
		return
	}

	records := make([]models.FileRecord, 0, len(documents))
	for _, doc := range documents {
		record, err := h.files.Save(doc)
		if err != nil {
			log.API.Error(errors.Wrap(err, "failed to persist MRF document"))
			h.rw.Exception(w, r, http.StatusInternalServerError, "failed to persist MRF document")
			return
		}
		records = append(records, record)
	}

	h.rw.JSON(w, r, http.StatusOK, submitResponse{Files: records})
}

func (h *api) listFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.files.List(r.URL.Query().Get("customer"))
	if err != nil {
		h.rw.Exception(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	h.rw.JSON(w, r, http.StatusOK, records)
}

// serveData streams a previously generated MRF document verbatim.
func (h *api) serveData(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	fileName := chi.URLParam(r, "fileName")

	data, err := h.files.ReadFile(customerID, fileName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.rw.NotFound(w, r, "file not found")
			return
		}
		h.rw.Exception(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		log.API.Error(errors.Wrap(err, "failed to write MRF document response"))
	}
}

func (h *api) getVersion(w http.ResponseWriter, r *http.Request) {
	h.rw.JSON(w, r, http.StatusOK, map[string]string{"version": constants.Version})
}

func (h *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	h.rw.JSON(w, r, http.StatusOK, map[string]string{"api": "ok"})
}
