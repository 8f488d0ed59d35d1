// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/storefront/internal/app/system/apperr"
	"github.com/dalemusser/storefront/internal/app/system/inputval"
	"github.com/dalemusser/storefront/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Body is the JSON shape of every error response.
type Body struct {
	Message string                `json:"message"`
	Error   string                `json:"error"`
	Errors  []inputval.FieldError `json:"errors,omitempty"`
	Item    *StockItem            `json:"item,omitempty"`
}

// StockItem names the order line that could not be fulfilled.
type StockItem struct {
	Product   string `json:"product"`
	Name      string `json:"name,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// Error codes carried in Body.Error.
const (
	CodeNotFound          = "not_found"
	CodeConflict          = "conflict"
	CodeInvalid           = "invalid"
	CodeInsufficientStock = "insufficient_stock"
	CodeForbidden         = "forbidden"
	CodeUnauthorized      = "unauthorized"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal"
)

// Status maps an error to its HTTP status and code.
func Status(err error) (int, string) {
	switch apperr.Kind(err) {
	case apperr.ErrInsufficientStock:
		return http.StatusBadRequest, CodeInsufficientStock
	case apperr.ErrNotFound:
		return http.StatusNotFound, CodeNotFound
	case apperr.ErrConflict:
		return http.StatusConflict, CodeConflict
	case apperr.ErrInvalid:
		return http.StatusBadRequest, CodeInvalid
	case apperr.ErrForbidden:
		return http.StatusForbidden, CodeForbidden
	case apperr.ErrUnauthorized:
		return http.StatusUnauthorized, CodeUnauthorized
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// ErrorLogger writes error responses and logs the ones that are the
// server's fault.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger returns an ErrorLogger writing to logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// Write maps err to a status and writes the JSON body. 5xx responses hide
// the underlying error from the client and log it with the request id.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error, fields ...zap.Field) {
	status, code := Status(err)
	body := Body{Message: err.Error(), Error: code}

	var se *apperr.StockError
	if stderrors.As(err, &se) {
		body.Item = &StockItem{
			Product:   se.ProductID.Hex(),
			Name:      se.Name,
			Requested: se.Requested,
			Available: se.Available,
		}
	}

	if status >= http.StatusInternalServerError {
		e.log.Error("request failed",
			append(fields,
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Error(err))...)
		body.Message = "Server error"
	}
	JSON(w, status, body)
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes a bare error body.
func Message(w http.ResponseWriter, status int, code, msg string) {
	JSON(w, status, Body{Message: msg, Error: code})
}

// ReadJSON decodes the request body into v. On failure it writes a 400 and
// returns false.
func ReadJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	if err := dec.Decode(v); err != nil {
		BadJSON(w)
		return false
	}
	return true
}

// PathID parses the chi URL parameter param as an ObjectID. On failure it
// writes a 400 naming what and returns false.
func PathID(w http.ResponseWriter, r *http.Request, param, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		Message(w, http.StatusBadRequest, CodeInvalid, "Invalid "+what+" id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// BadJSON reports an undecodable request body.
func BadJSON(w http.ResponseWriter) {
	Message(w, http.StatusBadRequest, CodeInvalid, "Invalid JSON body")
}

// Validation writes a 400 listing every failed field.
func Validation(w http.ResponseWriter, res *inputval.Result) {
	JSON(w, http.StatusBadRequest, Body{
		Message: res.First(),
		Error:   CodeInvalid,
		Errors:  res.Errors,
	})
}

// NotFound is the router's fallback for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	Message(w, http.StatusNotFound, CodeNotFound, "Route "+r.URL.Path+" not found")
}

// MethodNotAllowed is the router's fallback for a known path with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Message(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method "+r.Method+" not allowed on "+r.URL.Path)
}
