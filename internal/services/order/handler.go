package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pizza-api/internal/logger"
	"pizza-api/internal/metrics"
	"pizza-api/internal/models"
	"pizza-api/internal/storage"
)

const apiPrefix = "/api/pizza/v1"

type contextKey string

const requestIDKey contextKey = "request_id"

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests for the pizza API
type Handler struct {
	service *Service
	logger  *logger.Logger
	checks  []HealthChecker
}

// NewHandler creates a new handler. The health checkers are probed by the
// health endpoint.
func NewHandler(service *Service, log *logger.Logger, checks ...HealthChecker) *Handler {
	return &Handler{
		service: service,
		logger:  log,
		checks:  checks,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST "+apiPrefix+"/order", h.withLogging(h.CreateOrder))
	mux.HandleFunc("GET "+apiPrefix+"/order", h.withLogging(h.ListOrders))
	mux.HandleFunc("GET "+apiPrefix+"/order/{id}", h.withLogging(h.GetOrder))
	mux.HandleFunc("PATCH "+apiPrefix+"/order/{id}", h.withLogging(h.UpdateOrder))
	mux.HandleFunc("DELETE "+apiPrefix+"/order/{id}", h.withLogging(h.DeleteOrder))

	mux.HandleFunc("POST "+apiPrefix+"/payment/{businessKey}", h.withLogging(h.AttachPayment))
	mux.HandleFunc("GET "+apiPrefix+"/payment/{id}", h.withLogging(h.GetPayment))
	mux.HandleFunc("PATCH "+apiPrefix+"/payment/{id}", h.withLogging(h.UpdatePayment))
	mux.HandleFunc("DELETE "+apiPrefix+"/payment/{id}", h.withLogging(h.DeletePayment))

	mux.HandleFunc("GET /health", h.withLogging(h.HealthCheck))
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// CreateOrder handles POST /api/pizza/v1/order
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	if r.Header.Get("Content-Type") != "application/json" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", requestID)
		return
	}

	var req models.OrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse order request", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	created, err := h.service.CreateOrder(ctx, &req, requestID)
	if err != nil {
		if errors.Is(err, ErrDuplicateBusinessKey) {
			h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
			return
		}
		h.logger.Error("order_creation_failed", "Failed to create order", requestID, err, map[string]interface{}{
			"business_key": req.BusinessKey,
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/order/%d", apiPrefix, created.ID))
	h.writeJSONResponse(w, http.StatusCreated, models.CreateResponse{ID: created.ID})
}

// ListOrders handles GET /api/pizza/v1/order with optional unpaidOnly and
// customerEmail query filters
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	unpaidOnly := false
	if raw := r.URL.Query().Get("unpaidOnly"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, "unpaidOnly must be a boolean", requestID)
			return
		}
		unpaidOnly = parsed
	}
	email := r.URL.Query().Get("customerEmail")

	orders, err := h.service.ListOrders(r.Context(), email, unpaidOnly)
	if err != nil {
		h.logger.Error("order_query_failed", "Failed to list orders", requestID, err, map[string]interface{}{
			"customer_email": email,
			"unpaid_only":    unpaidOnly,
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, orders)
}

// GetOrder handles GET /api/pizza/v1/order/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, ok := h.pathID(w, r, requestID)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "order", id, requestID, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, order)
}

// UpdateOrder handles PATCH /api/pizza/v1/order/{id}. The payload is the
// complete order state; omitted fields are overwritten with zero values.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, ok := h.pathID(w, r, requestID)
	if !ok {
		return
	}

	var req models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	if _, err := h.service.UpdateOrder(r.Context(), id, &req, requestID); err != nil {
		if errors.Is(err, ErrDuplicateBusinessKey) {
			h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
			return
		}
		h.writeLookupError(w, "order", id, requestID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteOrder handles DELETE /api/pizza/v1/order/{id}
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, ok := h.pathID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		h.writeLookupError(w, "order", id, requestID, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// AttachPayment handles POST /api/pizza/v1/payment/{businessKey}
func (h *Handler) AttachPayment(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	if r.Header.Get("Content-Type") != "application/json" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", requestID)
		return
	}

	businessKey := r.PathValue("businessKey")

	var req models.PaymentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse payment request", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	payment, err := h.service.AttachPayment(ctx, &req, businessKey, requestID)
	if err != nil {
		h.logger.Error("payment_attach_failed", "Failed to attach payment", requestID, err, map[string]interface{}{
			"business_key": businessKey,
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("%s/payment/%d", apiPrefix, payment.ID))
	h.writeJSONResponse(w, http.StatusCreated, models.CreateResponse{ID: payment.ID})
}

// GetPayment handles GET /api/pizza/v1/payment/{id}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, ok := h.pathID(w, r, requestID)
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "payment", id, requestID, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, payment)
}

// UpdatePayment handles PATCH /api/pizza/v1/payment/{id}
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, ok := h.pathID(w, r, requestID)
	if !ok {
		return
	}

	var req models.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	if _, err := h.service.UpdatePayment(r.Context(), id, &req); err != nil {
		h.writeLookupError(w, "payment", id, requestID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeletePayment handles DELETE /api/pizza/v1/payment/{id}
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, ok := h.pathID(w, r, requestID)
	if !ok {
		return
	}

	if err := h.service.DeletePayment(r.Context(), id); err != nil {
		h.writeLookupError(w, "payment", id, requestID, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := true
	for _, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			healthy = false
			break
		}
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pizza-api",
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
	}

	h.writeJSONResponse(w, status, response)
}

// pathID parses the {id} path segment, writing a 400 response on failure
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, requestID string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid id", requestID)
		return 0, false
	}
	return id, true
}

// writeLookupError maps storage errors from by-id operations onto HTTP
// status codes
func (h *Handler) writeLookupError(w http.ResponseWriter, entity string, id int64, requestID string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		h.writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("%s %d not found", entity, id), requestID)
		return
	}
	h.logger.Error("storage_failed", fmt.Sprintf("Failed to access %s", entity), requestID, err, map[string]interface{}{
		"id": id,
	})
	h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
}

// writeJSONResponse writes a JSON response with the given status
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", "", err, nil)
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	h.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

// requestIDFrom returns the request id placed in the context by withLogging
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// withLogging adds request logging and latency metrics middleware
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(
			r.Method, r.Pattern, strconv.Itoa(rw.statusCode),
		).Observe(duration.Seconds())

		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
