package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"radiology-routing/internal/models"
	"radiology-routing/internal/routing"
)

type router interface {
	Assign(ctx context.Context, ref models.WorkItemRef) (*models.RoutingResult, error)
	AutoRoutePending(ctx context.Context) ([]routing.ItemOutcome, error)
	RouteTimeSensitive(ctx context.Context) ([]routing.ItemOutcome, error)
}

type combiner interface {
	FindCombinable(ctx context.Context) ([]*models.CombinableGroup, error)
	Combine(ctx context.Context, orderIDs []int64, date, timeOfDay string) (*models.CombinedVisit, error)
}

type optimizer interface {
	Optimize(ctx context.Context, start, end time.Time) (*models.OptimizationResult, error)
}

type intakeStore interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	CreateRequisition(ctx context.Context, r *models.Requisition) error
	ListRoutingDecisions(ctx context.Context, ref models.WorkItemRef) ([]*models.RoutingDecision, error)
}

type requisitionNotifier interface {
	RequisitionReceived(ctx context.Context, r *models.Requisition) error
}

type server struct {
	router    router
	combiner  combiner
	optimizer optimizer
	store     intakeStore
	notifier  requisitionNotifier
	log       *zap.Logger
}

func newServer(router router, combiner combiner, optimizer optimizer, store intakeStore, notifier requisitionNotifier, log *zap.Logger) *server {
	if log == nil {
		log = zap.NewNop()
	}
	return &server{router: router, combiner: combiner, optimizer: optimizer, store: store, notifier: notifier, log: log}
}

func (s *server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)

	r.Post("/api/orders", s.handleCreateOrder)
	r.Post("/api/orders/{id}/assign", s.handleAssign(models.KindOrder))
	r.Get("/api/orders/{id}/routing-history", s.handleRoutingHistory(models.KindOrder))

	r.Post("/api/requisitions", s.handleCreateRequisition)
	r.Post("/api/requisitions/{id}/assign", s.handleAssign(models.KindRequisition))
	r.Get("/api/requisitions/{id}/routing-history", s.handleRoutingHistory(models.KindRequisition))

	r.Post("/api/routing/auto", s.handleAutoRoute)
	r.Post("/api/routing/time-sensitive", s.handleTimeSensitive)

	r.Get("/api/combinations", s.handleFindCombinable)
	r.Post("/api/combinations", s.handleCombine)

	r.Get("/api/optimization", s.handleOptimize)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, routing.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, routing.ErrNoCandidates):
		status = http.StatusConflict
	case errors.Is(err, routing.ErrInvalidCombination):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %w", routing.ErrNotFound)
	}
	return id, nil
}

func (s *server) handleAssign(kind models.WorkItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		result, err := s.router.Assign(r.Context(), models.WorkItemRef{Kind: kind, ID: id})
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *server) handleRoutingHistory(kind models.WorkItemKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		decisions, err := s.store.ListRoutingDecisions(r.Context(), models.WorkItemRef{Kind: kind, ID: id})
		if err != nil {
			s.writeError(w, err)
			return
		}
		if decisions == nil {
			decisions = []*models.RoutingDecision{}
		}
		writeJSON(w, http.StatusOK, decisions)
	}
}

func (s *server) handleAutoRoute(w http.ResponseWriter, r *http.Request) {
	outcomes, err := s.router.AutoRoutePending(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func (s *server) handleTimeSensitive(w http.ResponseWriter, r *http.Request) {
	outcomes, err := s.router.RouteTimeSensitive(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

type createOrderRequest struct {
	PatientID         string           `json:"patient_id"`
	PatientName       string           `json:"patient_name"`
	SiteID            *int64           `json:"site_id"`
	OrderType         string           `json:"order_type"`
	BodyPart          string           `json:"body_part"`
	Priority          models.Priority  `json:"priority"`
	IsTimeSensitive   bool             `json:"is_time_sensitive"`
	Deadline          *time.Time       `json:"time_sensitive_deadline"`
	SpecialtyRequired string           `json:"specialty_required"`
	OrderingPhysician string           `json:"ordering_physician"`
}

func (req *createOrderRequest) validate() error {
	if req.PatientID == "" {
		return errors.New("patient_id is required")
	}
	if !models.ValidModality(req.OrderType) {
		return fmt.Errorf("unknown order_type %q", req.OrderType)
	}
	if req.Priority != "" && !models.ValidPriority(req.Priority) {
		return fmt.Errorf("unknown priority %q", req.Priority)
	}
	return nil
}

func (s *server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := req.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityRoutine
	}
	order := &models.Order{
		PatientID:         req.PatientID,
		PatientName:       req.PatientName,
		SiteID:            req.SiteID,
		OrderType:         req.OrderType,
		BodyPart:          req.BodyPart,
		Priority:          req.Priority,
		IsTimeSensitive:   req.IsTimeSensitive,
		Deadline:          req.Deadline,
		SpecialtyRequired: req.SpecialtyRequired,
		OrderingPhysician: req.OrderingPhysician,
	}
	if err := s.store.CreateOrder(r.Context(), order); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

type createRequisitionRequest struct {
	PatientID          string          `json:"patient_id"`
	PatientName        string          `json:"patient_name"`
	PatientEmail       string          `json:"patient_email"`
	OrderType          string          `json:"order_type"`
	BodyPart           string          `json:"body_part"`
	ClinicalIndication string          `json:"clinical_indication"`
	Priority           models.Priority `json:"priority"`
	IsTimeSensitive    bool            `json:"is_time_sensitive"`
	Deadline           *time.Time      `json:"time_sensitive_deadline"`
	ReferringPhysician string          `json:"referring_physician"`
}

func (s *server) handleCreateRequisition(w http.ResponseWriter, r *http.Request) {
	var req createRequisitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.PatientID == "" || !models.ValidModality(req.OrderType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patient_id and a known order_type are required"})
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityRoutine
	}
	requisition := &models.Requisition{
		RequisitionNumber:  "REQ-" + uuid.NewString(),
		PatientID:          req.PatientID,
		PatientName:        req.PatientName,
		PatientEmail:       req.PatientEmail,
		OrderType:          req.OrderType,
		BodyPart:           req.BodyPart,
		ClinicalIndication: req.ClinicalIndication,
		Priority:           req.Priority,
		IsTimeSensitive:    req.IsTimeSensitive,
		Deadline:           req.Deadline,
		ReferringPhysician: req.ReferringPhysician,
	}
	if err := s.store.CreateRequisition(r.Context(), requisition); err != nil {
		s.writeError(w, err)
		return
	}
	if s.notifier != nil {
		if err := s.notifier.RequisitionReceived(r.Context(), requisition); err != nil {
			s.log.Warn("requisition confirmation failed", zap.String("requisition", requisition.RequisitionNumber), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, requisition)
}

func (s *server) handleFindCombinable(w http.ResponseWriter, r *http.Request) {
	groups, err := s.combiner.FindCombinable(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if groups == nil {
		groups = []*models.CombinableGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

type combineRequest struct {
	OrderIDs []int64 `json:"order_ids"`
	Date     string  `json:"combined_date"`
	Time     string  `json:"combined_time"`
}

func (s *server) handleCombine(w http.ResponseWriter, r *http.Request) {
	var req combineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	visit, err := s.combiner.Combine(r.Context(), req.OrderIDs, req.Date, req.Time)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

func (s *server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	end := start.AddDate(0, 0, 7)
	if v := r.URL.Query().Get("start"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start must be YYYY-MM-DD"})
			return
		}
		start = parsed
		end = start.AddDate(0, 0, 7)
	}
	if v := r.URL.Query().Get("end"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end must be YYYY-MM-DD"})
			return
		}
		end = parsed
	}
	result, err := s.optimizer.Optimize(r.Context(), start, end)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
