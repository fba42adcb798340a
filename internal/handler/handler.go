package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/payoff-planner/internal/apperrors"
	"github.com/Dan9191/payoff-planner/internal/middleware"
	"github.com/Dan9191/payoff-planner/internal/models"
	"github.com/Dan9191/payoff-planner/internal/money"
	"github.com/Dan9191/payoff-planner/internal/planner"
	"github.com/Dan9191/payoff-planner/internal/recurrence"
	"github.com/Dan9191/payoff-planner/internal/repository"
	"github.com/Dan9191/payoff-planner/internal/service"
)

type Handler struct {
	svc      *service.Service
	validate *validator.Validate
	log      *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), log: log}
}

// Routes registers public and JWT-protected routes on r
func (h *Handler) Routes(r *mux.Router, auth mux.MiddlewareFunc) {
	r.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/key-rate", h.KeyRate).Methods(http.MethodGet)

	protected := r.PathPrefix("/").Subrouter()
	protected.Use(auth)
	protected.HandleFunc("/accounts", h.CreateAccount).Methods(http.MethodPost)
	protected.HandleFunc("/recurring-items", h.CreateRecurringItem).Methods(http.MethodPost)
	protected.HandleFunc("/transactions", h.CreateTransaction).Methods(http.MethodPost)
	protected.HandleFunc("/budgets", h.SetBudget).Methods(http.MethodPut)
	protected.HandleFunc("/simulations", h.Simulate).Methods(http.MethodPost)
	protected.HandleFunc("/simulations/compare", h.Compare).Methods(http.MethodPost)
	protected.HandleFunc("/debts/estimate", h.EstimateDebt).Methods(http.MethodGet)
	protected.HandleFunc("/goals", h.CreateGoal).Methods(http.MethodPost)
	protected.HandleFunc("/goals", h.ListGoals).Methods(http.MethodGet)
	protected.HandleFunc("/goals/{id}/status", h.SetGoalStatus).Methods(http.MethodPut)
	protected.HandleFunc("/goals/{id}/preview", h.PreviewGoal).Methods(http.MethodGet)
	protected.HandleFunc("/planner/run", h.RunPlanner).Methods(http.MethodPost)
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	token, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// KeyRate returns the reference key rate
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.svc.KeyRate(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key_rate": rate.String()})
}

type accountRequest struct {
	Currency string      `json:"currency" validate:"required,len=3"`
	Opening  money.Cents `json:"opening_balance_cents" validate:"gte=0"`
}

// CreateAccount handles account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !h.decode(w, r, &req) {
		return
	}
	account, err := h.svc.CreateAccount(r.Context(), middleware.UserID(r.Context()), req.Currency, req.Opening)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// CreateRecurringItem stores an income, bill or subscription definition
func (h *Handler) CreateRecurringItem(w http.ResponseWriter, r *http.Request) {
	var def recurrence.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	out, err := h.svc.CreateRecurringItem(r.Context(), middleware.UserID(r.Context()), def)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// CreateTransaction posts a debit or credit on one of the caller's accounts
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.svc.RecordTransaction(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var req models.BudgetRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.svc.SetBudget(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Simulate runs the payoff engine
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req models.SimulationRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Simulate(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Compare runs the payoff engine once per strategy
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Compare(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// EstimateDebt answers how long a single debt takes at a fixed payment
func (h *Handler) EstimateDebt(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var req models.EstimateRequest
	var err error
	parse := func(key string) int64 {
		if err != nil || q.Get(key) == "" {
			return 0
		}
		var v int64
		v, err = strconv.ParseInt(q.Get(key), 10, 64)
		return v
	}
	req.Balance = money.Cents(parse("balance"))
	req.APRBps = int(parse("apr_bps"))
	req.Payment = money.Cents(parse("payment"))
	req.Months = int(parse("months"))
	req.TargetMonths = int(parse("target_months"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "query parameters must be integers")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.EstimateDebt(req))
}

// CreateGoal adds a purchase goal
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req models.GoalRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.MaxContribution > 0 && req.MinContribution > req.MaxContribution {
		writeError(w, http.StatusBadRequest, "min_contribution_cents exceeds max_contribution_cents")
		return
	}
	g, err := h.svc.CreateGoal(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// ListGoals lists the caller's goals
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.svc.ListGoals(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	if goals == nil {
		goals = []planner.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

// SetGoalStatus pauses, resumes or cancels a goal
func (h *Handler) SetGoalStatus(w http.ResponseWriter, r *http.Request) {
	var req models.GoalStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	g, err := h.svc.SetGoalStatus(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"], planner.GoalStatus(req.Status))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// PreviewGoal projects a goal over future periods
func (h *Handler) PreviewGoal(w http.ResponseWriter, r *http.Request) {
	periods := 8
	if v := r.URL.Query().Get("periods"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 104 {
			writeError(w, http.StatusBadRequest, "periods must be between 1 and 104")
			return
		}
		periods = n
	}
	p, err := h.svc.PreviewGoal(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"], periods)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RunPlanner triggers the goal planner for the caller
func (h *Handler) RunPlanner(w http.ResponseWriter, r *http.Request) {
	var req models.PlannerRunRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.RunPlanner(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, verrs[0].Field()+" failed "+verrs[0].Tag()+" validation")
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsConfig(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, planner.ErrGoalNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
