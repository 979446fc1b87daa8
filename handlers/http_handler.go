// Package handlers provides HTTP request handlers for the TB dose API endpoints.
// This file implements the HTTPHandler interface with dependency injection.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/tbdose-api/calculator"
	"github.com/giygas/tbdose-api/drugtable/entities"
	"github.com/giygas/tbdose-api/interfaces"
	"github.com/giygas/tbdose-api/logging"
	"github.com/giygas/tbdose-api/metrics"
	"github.com/go-chi/chi/v5"
)

const metricsSource = "http"

// Compile-time check to ensure HTTPHandlerImpl implements HTTPHandler interface
var _ interfaces.HTTPHandler = (*HTTPHandlerImpl)(nil)

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.InputValidator
	healthChecker interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.InputValidator, healthChecker interfaces.HealthChecker) interfaces.HTTPHandler {
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
	}
}

// DosesResponse is the body of GET /v1/doses.
// WeightBand is null when the weight falls outside every band.
type DosesResponse struct {
	WeightKg   float64                 `json:"weight_kg"`
	WeightBand *entities.WeightBand    `json:"weight_band"`
	Category   entities.Category       `json:"category,omitempty"`
	Results    []calculator.DoseResult `json:"results"`
	FirstLine  []calculator.DoseResult `json:"first_line"`
	SecondLine []calculator.DoseResult `json:"second_line"`
}

// DrugDoseResponse is the body of GET /v1/doses/{id}
type DrugDoseResponse struct {
	WeightKg   float64               `json:"weight_kg"`
	WeightBand *entities.WeightBand  `json:"weight_band"`
	Result     calculator.DoseResult `json:"result"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime,omitempty"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", h.dataStore.GetLoadedAt().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// weightBandPtr returns nil for weights outside every band
func weightBandPtr(weightKg float64) *entities.WeightBand {
	band, ok := calculator.ResolveWeightBand(weightKg)
	if !ok {
		return nil
	}
	return &band
}

// parseWeightParam reads and validates the weight query parameter,
// writing a 400 response on failure.
func (h *HTTPHandlerImpl) parseWeightParam(w http.ResponseWriter, r *http.Request) (float64, bool) {
	raw := r.URL.Query().Get("weight")
	if raw == "" {
		metrics.RecordCalculation(metricsSource, metrics.OutcomeInvalidWeight, "")
		h.RespondWithError(w, http.StatusBadRequest, "The weight query parameter is required, in kilograms")
		return 0, false
	}

	weight, err := h.validator.ParseWeight(raw)
	if err != nil {
		logging.Warn("Rejected weight", "weight", raw, "error", err)
		metrics.RecordCalculation(metricsSource, metrics.OutcomeInvalidWeight, "")
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}

	return weight, true
}

// parseCategoryParam reads the optional category filter, writing a 400 response on failure
func (h *HTTPHandlerImpl) parseCategoryParam(w http.ResponseWriter, r *http.Request) (entities.Category, bool) {
	category, err := h.validator.ValidateCategory(r.URL.Query().Get("category"))
	if err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return category, true
}

// ServeDrugs returns the drug table, optionally filtered by category
func (h *HTTPHandlerImpl) ServeDrugs(w http.ResponseWriter, r *http.Request) {
	category, ok := h.parseCategoryParam(w, r)
	if !ok {
		return
	}

	drugs := h.dataStore.GetDrugs()
	if category != "" {
		filtered := make([]entities.DrugDefinition, 0, len(drugs))
		for _, d := range drugs {
			if d.Category == category {
				filtered = append(filtered, d)
			}
		}
		drugs = filtered
	}

	h.RespondWithJSON(w, http.StatusOK, drugs)
}

// FindDrug returns one drug definition by id
func (h *HTTPHandlerImpl) FindDrug(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateDrugID(id); err != nil {
		logging.Warn("Unusual user input", "id", id)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	drug, found := h.dataStore.GetDrug(id)
	if !found {
		h.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Drug %s not found", id))
		return
	}

	h.RespondWithJSON(w, http.StatusOK, drug)
}

// CalculateDoses returns the dose of every drug for the weight query parameter
func (h *HTTPHandlerImpl) CalculateDoses(w http.ResponseWriter, r *http.Request) {
	weight, ok := h.parseWeightParam(w, r)
	if !ok {
		return
	}

	category, ok := h.parseCategoryParam(w, r)
	if !ok {
		return
	}

	session := calculator.NewSession(h.dataStore.GetDrugs())
	if !session.Calculate(weight) {
		metrics.RecordCalculation(metricsSource, metrics.OutcomeInvalidWeight, "")
		h.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid weight: %v", weight))
		return
	}

	results := session.Results()
	if category != "" {
		results = calculator.FilterByCategory(results, category)
	}

	band := weightBandPtr(weight)
	metrics.RecordCalculation(metricsSource, metrics.OutcomeSuccess, bandLabel(band))

	h.RespondWithJSON(w, http.StatusOK, DosesResponse{
		WeightKg:   session.Weight(),
		WeightBand: band,
		Category:   category,
		Results:    results,
		FirstLine:  calculator.FilterByCategory(results, entities.CategoryFirstLine),
		SecondLine: calculator.FilterByCategory(results, entities.CategorySecondLine),
	})
}

// CalculateDrugDose returns the dose of one drug for the weight query parameter
func (h *HTTPHandlerImpl) CalculateDrugDose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateDrugID(id); err != nil {
		logging.Warn("Unusual user input", "id", id)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	drug, found := h.dataStore.GetDrug(id)
	if !found {
		metrics.RecordCalculation(metricsSource, metrics.OutcomeUnknownDrug, "")
		h.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("Drug %s not found", id))
		return
	}

	weight, ok := h.parseWeightParam(w, r)
	if !ok {
		return
	}

	result, err := calculator.CalculateDrug(weight, drug)
	if err != nil {
		metrics.RecordCalculation(metricsSource, metrics.OutcomeInvalidWeight, "")
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	band := weightBandPtr(weight)
	metrics.RecordCalculation(metricsSource, metrics.OutcomeSuccess, bandLabel(band))

	h.RespondWithJSON(w, http.StatusOK, DrugDoseResponse{
		WeightKg:   weight,
		WeightBand: band,
		Result:     result,
	})
}

func bandLabel(band *entities.WeightBand) string {
	if band == nil {
		return ""
	}
	return string(*band)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.healthChecker.HealthCheck()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status: status,
		Data:   data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	}

	if start := h.dataStore.GetServerStartTime(); !start.IsZero() {
		uptime := time.Since(start)
		response.Uptime = formatUptimeHuman(uptime)
		response.UptimeSeconds = uptime.Seconds()
	}

	h.RespondWithJSON(w, httpStatus, response)
}
