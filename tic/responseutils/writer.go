package responseutils

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrorResponse is the uniform error body for every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type ResponseWriter struct{}

func NewResponseWriter() ResponseWriter {
	return ResponseWriter{}
}

// Exception writes an error body with the given status code.
func (rw ResponseWriter) Exception(w http.ResponseWriter, r *http.Request, statusCode int, errMsg string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{Error: errMsg})
}

// NotFound writes a 404 error body.
func (rw ResponseWriter) NotFound(w http.ResponseWriter, r *http.Request, errMsg string) {
	rw.Exception(w, r, http.StatusNotFound, errMsg)
}

// JSON writes a success payload with the given status code.
func (rw ResponseWriter) JSON(w http.ResponseWriter, r *http.Request, statusCode int, payload interface{}) {
	render.Status(r, statusCode)
	render.JSON(w, r, payload)
}
