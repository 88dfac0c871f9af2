package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"

	"bustracker.transport.org/internal/eta"
	"bustracker.transport.org/internal/middleware"
	"bustracker.transport.org/internal/report"
	"bustracker.transport.org/internal/store"
)

var validate = validator.New()

type envelope map[string]any

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Type   string `json:"type,omitempty"`
}

func (app *Application) writeJSON(w http.ResponseWriter, status int, data any) {
	js, err := json.Marshal(data)
	if err != nil {
		app.Logger.Error("failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(js, '\n'))
}

func (app *Application) errorResponse(w http.ResponseWriter, status int, detail, kind string) {
	app.writeJSON(w, status, ErrorResponse{Detail: detail, Type: kind})
}

func (app *Application) badRequest(w http.ResponseWriter, detail string) {
	app.errorResponse(w, http.StatusBadRequest, detail, "ValidationError")
}

func (app *Application) notFound(w http.ResponseWriter, detail string) {
	app.errorResponse(w, http.StatusNotFound, detail, "NotFound")
}

// serverError logs and reports err, then answers 500 without leaking it.
func (app *Application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.RequestIDFromContext(r.Context())
	app.Logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", requestID,
		"error", err)

	opts := report.SentryReportOptions{
		Tags:  report.Tags("path", r.URL.Path),
		Level: sentry.LevelError,
	}
	if bus := readBusNumber(r); bus != "" {
		opts.Bus = &report.BusContext{Number: bus}
		if id, err := strconv.ParseInt(r.URL.Query().Get("route_id"), 10, 64); err == nil {
			opts.Bus.RouteID = id
		}
	}
	report.ReportRequestError(r.Context(), err, opts)
	app.errorResponse(w, http.StatusInternalServerError, "An internal server error occurred", "InternalServerError")
}

// lookupError maps store and ETA errors onto HTTP answers.
func (app *Application) lookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		app.notFound(w, "Bus not found")
	case errors.Is(err, eta.ErrStopNotFound):
		app.notFound(w, "Stop not found on route")
	case errors.Is(err, eta.ErrNoRouteContext):
		app.errorResponse(w, http.StatusConflict, "No current route assigned to bus", "NoRouteContext")
	case errors.Is(err, eta.ErrNoStopsOnRoute):
		app.errorResponse(w, http.StatusConflict, "Route has no stops", "NoStopsOnRoute")
	default:
		app.serverError(w, r, err)
	}
}

// etaParams are the optional query parameters of the ETA endpoints.
type etaParams struct {
	RouteID   *int64 `validate:"omitempty,gte=1"`
	StopOrder *int   `validate:"omitempty,gte=0"`
}

type historyParams struct {
	Limit int `validate:"gte=1,lte=500"`
}

func readOptionalInt64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &v, nil
}

func readOptionalInt(r *http.Request, name string) (*int, error) {
	v, err := readOptionalInt64(r, name)
	if err != nil || v == nil {
		return nil, err
	}
	n := int(*v)
	return &n, nil
}

func readETAParams(r *http.Request, withStop bool) (etaParams, error) {
	var p etaParams
	var err error
	if p.RouteID, err = readOptionalInt64(r, "route_id"); err != nil {
		return p, err
	}
	if withStop {
		if p.StopOrder, err = readOptionalInt(r, "stop_order"); err != nil {
			return p, err
		}
	}
	if err := validate.Struct(p); err != nil {
		return p, validationMessage(err)
	}
	return p, nil
}

func readHistoryParams(r *http.Request) (historyParams, error) {
	p := historyParams{Limit: 50}
	limit, err := readOptionalInt(r, "limit")
	if err != nil {
		return p, err
	}
	if limit != nil {
		p.Limit = *limit
	}
	if err := validate.Struct(p); err != nil {
		return p, validationMessage(err)
	}
	return p, nil
}

var paramNames = map[string]string{
	"RouteID":   "route_id",
	"StopOrder": "stop_order",
	"Limit":     "limit",
}

func validationMessage(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	name := paramNames[fe.Field()]
	switch fe.Tag() {
	case "gte":
		return fmt.Errorf("%s must be greater than or equal to %s", name, fe.Param())
	case "lte":
		return fmt.Errorf("%s must be less than or equal to %s", name, fe.Param())
	default:
		return fmt.Errorf("%s is invalid", name)
	}
}

// readBusID parses the :bus parameter of endpoints keyed by numeric bus id.
func readBusID(r *http.Request) (int64, error) {
	raw := httprouter.ParamsFromContext(r.Context()).ByName("bus")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("bus id must be a positive integer")
	}
	return id, nil
}

func readBusNumber(r *http.Request) string {
	return httprouter.ParamsFromContext(r.Context()).ByName("bus")
}
