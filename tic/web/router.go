package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tichealth/tic-app/tic/auth"
	"github.com/tichealth/tic-app/tic/logging"
	"github.com/tichealth/tic-app/tic/storage"
)

// NewAPIRouter serves the claims workflow: login, claim upload and editing,
// grouping, approvals, and MRF submission.
func NewAPIRouter(rg *auth.Registry, files *storage.FileStore) http.Handler {
	h := newAPI(rg, files)
	r := chi.NewRouter()
	r.Use(rg.ParseToken, logging.NewStructuredLogger(), SecurityHeader, ConnectionClose)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Group(func(r chi.Router) {
			r.Use(rg.RequireTokenAuth)
			r.Post("/claims", h.uploadClaims)
			r.Get("/claims", h.listClaims)
			r.Put("/claims/{rowID}", h.editClaim)
			r.Delete("/claims/{rowID}", h.deleteClaim)
			r.Get("/groups", h.listGroups)
			r.Post("/groups/approval", h.setGroupApproval)
			r.Post("/groups/approve-all", h.approveAllGroups)
			r.Delete("/groups/approvals", h.clearApprovals)
			r.Post("/submit", h.submit)
			r.Get("/files", h.listFiles)
		})
	})
	r.Get("/_version", h.getVersion)
	r.Get("/_health", h.healthCheck)
	return r
}

// NewDataRouter serves generated MRF documents. It runs on its own server
// behind the service mux so download traffic gets its own timeouts.
func NewDataRouter(rg *auth.Registry, files *storage.FileStore) http.Handler {
	h := newAPI(rg, files)
	r := chi.NewRouter()
	r.Use(rg.ParseToken, logging.NewStructuredLogger(), SecurityHeader, ConnectionClose)
	r.With(rg.RequireTokenAuth).Get("/data/{customerID}/{fileName}", h.serveData)
	return r
}

// NewHTTPRouter accepts plain HTTP requests and redirects them to HTTPS.
func NewHTTPRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(ConnectionClose)
	r.With(logging.NewStructuredLogger()).Get("/*", func(w http.ResponseWriter, req *http.Request) {
		url := "https://" + req.Host + req.URL.String()
		http.Redirect(w, req, url, http.StatusMovedPermanently)
	})
	return r
}
