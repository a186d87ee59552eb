package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/service"
	"github.com/dayoonc/finbook/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finbook_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finbook_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	accounts     *service.Accounts
	transactions *service.Transactions
	ingestor     *service.Ingestor
	scheduler    *service.Scheduler
	billing      *service.Billing
	log          zerolog.Logger
}

func NewHandler(accounts *service.Accounts, transactions *service.Transactions, ingestor *service.Ingestor, scheduler *service.Scheduler, billing *service.Billing, log zerolog.Logger) *Handler {
	return &Handler{
		accounts:     accounts,
		transactions: transactions,
		ingestor:     ingestor,
		scheduler:    scheduler,
		billing:      billing,
		log:          log,
	}
}

// Routes registers the v1 surface on a subrouter.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	r.HandleFunc("/accounts/{id}", h.GetAccount).Methods("GET")

	r.HandleFunc("/transactions", h.CreateTransaction).Methods("POST")
	r.HandleFunc("/transactions/bulk", h.BulkIngest).Methods("POST")
	r.HandleFunc("/transactions/{id}", h.UpdateTransaction).Methods("PUT")
	r.HandleFunc("/transactions/{id}", h.DeleteTransaction).Methods("DELETE")

	r.HandleFunc("/recurring-rules", h.CreateRule).Methods("POST")
	r.HandleFunc("/recurring-rules/{id}/generate", h.GenerateOccurrences).Methods("POST")
	r.HandleFunc("/recurring-rules/{id}/pending", h.PendingOccurrences).Methods("GET")
	r.HandleFunc("/recurring-rules/{id}/confirm", h.ConfirmOccurrence).Methods("POST")
	r.HandleFunc("/recurring-rules/{id}/confirm-bulk", h.ConfirmBulk).Methods("POST")
	r.HandleFunc("/recurring-rules/{id}/skip", h.SkipOccurrence).Methods("POST")
	r.HandleFunc("/recurring-rules/{id}/skip/{date}", h.UnskipOccurrence).Methods("DELETE")
	r.HandleFunc("/recurring-rules/{id}/drafts", h.SetDraft).Methods("PUT")
	r.HandleFunc("/recurring-rules/{id}/drafts/{date}", h.DeleteDraft).Methods("DELETE")

	r.HandleFunc("/statements/{id}", h.GetStatement).Methods("GET")
	r.HandleFunc("/statements/{id}/settle", h.SettleStatement).Methods("POST")
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	defer h.track("POST", "/accounts")()
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/accounts", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	acc, err := req.toDomain()
	if err != nil {
		h.respondError(w, "POST", "/accounts", http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := h.accounts.Create(r.Context(), acc)
	if err != nil {
		h.respondServiceError(w, "POST", "/accounts", err)
		return
	}
	h.respond(w, "POST", "/accounts", http.StatusCreated, accountResponse(created))
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	defer h.track("GET", "/accounts/{id}")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	acc, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "GET", "/accounts/{id}", err)
		return
	}
	h.respond(w, "GET", "/accounts/{id}", http.StatusOK, accountResponse(acc))
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	defer h.track("POST", "/transactions")()
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/transactions", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	c, err := req.toCandidate()
	if err != nil {
		h.respondError(w, "POST", "/transactions", http.StatusUnprocessableEntity, err.Error())
		return
	}
	row, err := h.transactions.Create(r.Context(), c)
	if err != nil {
		h.respondServiceError(w, "POST", "/transactions", err)
		return
	}
	h.respond(w, "POST", "/transactions", http.StatusCreated, transactionResponse(row))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	defer h.track("PUT", "/transactions/{id}")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "PUT", "/transactions/{id}", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	c, err := req.toCandidate()
	if err != nil {
		h.respondError(w, "PUT", "/transactions/{id}", http.StatusUnprocessableEntity, err.Error())
		return
	}
	row, err := h.transactions.Update(r.Context(), id, c)
	if err != nil {
		h.respondServiceError(w, "PUT", "/transactions/{id}", err)
		return
	}
	h.respond(w, "PUT", "/transactions/{id}", http.StatusOK, transactionResponse(row))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	defer h.track("DELETE", "/transactions/{id}")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.transactions.Delete(r.Context(), id); err != nil {
		h.respondServiceError(w, "DELETE", "/transactions/{id}", err)
		return
	}
	h.respond(w, "DELETE", "/transactions/{id}", http.StatusNoContent, nil)
}

func (h *Handler) BulkIngest(w http.ResponseWriter, r *http.Request) {
	defer h.track("POST", "/transactions/bulk")()
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/transactions/bulk", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	cands := make([]*domain.Candidate, 0, len(req.Transactions))
	for i := range req.Transactions {
		c, err := req.Transactions[i].toCandidate()
		if err != nil {
			h.respondError(w, "POST", "/transactions/bulk", http.StatusUnprocessableEntity, err.Error())
			return
		}
		cands = append(cands, c)
	}
	result, err := h.ingestor.BulkIngest(r.Context(), req.OwnerID, cands, req.Override)
	if err != nil {
		h.respondServiceError(w, "POST", "/transactions/bulk", err)
		return
	}
	h.respond(w, "POST", "/transactions/bulk", http.StatusOK, map[string]any{
		"transactions": transactionResponses(result.Transactions),
		"counts":       result.Counts,
	})
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	defer h.track("POST", "/recurring-rules")()
	var req RuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/recurring-rules", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	rule, err := req.toDomain()
	if err != nil {
		h.respondError(w, "POST", "/recurring-rules", http.StatusUnprocessableEntity, err.Error())
		return
	}
	created, err := h.scheduler.CreateRule(r.Context(), rule)
	if err != nil {
		h.respondServiceError(w, "POST", "/recurring-rules", err)
		return
	}
	h.respond(w, "POST", "/recurring-rules", http.StatusCreated, ruleResponse(created))
}

func (h *Handler) GenerateOccurrences(w http.ResponseWriter, r *http.Request) {
	defer h.track("POST", "/recurring-rules/{id}/generate")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	start, err := date.Parse(r.URL.Query().Get("start"))
	if err != nil {
		h.respondError(w, "POST", "/recurring-rules/{id}/generate", http.StatusUnprocessableEntity, "invalid start date")
		return
	}
	end, err := date.Parse(r.URL.Query().Get("end"))
	if err != nil {
		h.respondError(w, "POST", "/recurring-rules/{id}/generate", http.StatusUnprocessableEntity, "invalid end date")
		return
	}
	rows, err := h.scheduler.Generate(r.Context(), id, start, end)
	if err != nil {
		h.respondServiceError(w, "POST", "/recurring-rules/{id}/generate", err)
		return
	}
	h.respond(w, "POST", "/recurring-rules/{id}/generate", http.StatusOK, transactionResponses(rows))
}

func (h *Handler) PendingOccurrences(w http.ResponseWriter, r *http.Request) {
	defer h.track("GET", "/recurring-rules/{id}/pending")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	asOf := date.Today()
	if s := r.URL.Query().Get("as_of"); s != "" {
		parsed, err := date.Parse(s)
		if err != nil {
			h.respondError(w, "GET", "/recurring-rules/{id}/pending", http.StatusUnprocessableEntity, "invalid as_of date")
			return
		}
		asOf = parsed
	}
	pending, err := h.scheduler.PendingOccurrences(r.Context(), id, asOf)
	if err != nil {
		h.respondServiceError(w, "GET", "/recurring-rules/{id}/pending", err)
		return
	}
	h.respond(w, "GET", "/recurring-rules/{id}/pending", http.StatusOK, map[string]any{"pending": pending})
}

func (h *Handler) ConfirmOccurrence(w http.ResponseWriter, r *http.Request) {
	defer h.track("POST", "/recurring-rules/{id}/confirm")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/recurring-rules/{id}/confirm", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	on, amount, err := h.confirmArgs(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "POST", "/recurring-rules/{id}/confirm", http.StatusUnprocessableEntity, err.Error())
		return
	}
	row, err := h.scheduler.Confirm(r.Context(), id, on, amount, req.Memo)
	if err != nil {
		h.respondServiceError(w, "POST", "/recurring-rules/{id}/confirm", err)
		return
	}
	h.respond(w, "POST", "/recurring-rules/{id}/confirm", http.StatusCreated, transactionResponse(row))
}

func (h *Handler) ConfirmBulk(w http.ResponseWriter, r *http.Request) {
	defer h.track("POST", "/recurring-rules/{id}/confirm-bulk")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ConfirmBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/recurring-rules/{id}/confirm-bulk", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	items := make([]service.ConfirmItem, 0, len(req.Items))
	for _, it := range req.Items {
		on, amount, err := h.confirmArgs(r.Context(), id, it)
		if err != nil {
			h.respondError(w, "POST", "/recurring-rules/{id}/confirm-bulk", http.StatusUnprocessableEntity, err.Error())
			return
		}
		items = append(items, service.ConfirmItem{Date: on, Amount: amount, Memo: it.Memo})
	}
	result := h.scheduler.ConfirmBulk(r.Context(), id, items)
	h.respond(w, "POST", "/recurring-rules/{id}/confirm-bulk", http.StatusOK, map[string]any{
		"confirmed": transactionResponses(result.Confirmed),
		"failures":  result.Failures,
	})
}

func (h *Handler) SkipOccurrence(w http.ResponseWriter, r *http.Request) {
	defer h.track("POST", "/recurring-rules/{id}/skip")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req SkipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/recurring-rules/{id}/skip", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	on, err := date.Parse(req.Date)
	if err != nil {
		h.respondError(w, "POST", "/recurring-rules/{id}/skip", http.StatusUnprocessableEntity, "invalid date")
		return
	}
	if err := h.scheduler.Skip(r.Context(), id, on, req.Reason); err != nil {
		h.respondServiceError(w, "POST", "/recurring-rules/{id}/skip", err)
		return
	}
	h.respond(w, "POST", "/recurring-rules/{id}/skip", http.StatusNoContent, nil)
}

func (h *Handler) UnskipOccurrence(w http.ResponseWriter, r *http.Request) {
	defer h.track("DELETE", "/recurring-rules/{id}/skip/{date}")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	on, err := date.Parse(mux.Vars(r)["date"])
	if err != nil {
		h.respondError(w, "DELETE", "/recurring-rules/{id}/skip/{date}", http.StatusUnprocessableEntity, "invalid date")
		return
	}
	if err := h.scheduler.Unskip(r.Context(), id, on); err != nil {
		h.respondServiceError(w, "DELETE", "/recurring-rules/{id}/skip/{date}", err)
		return
	}
	h.respond(w, "DELETE", "/recurring-rules/{id}/skip/{date}", http.StatusNoContent, nil)
}

func (h *Handler) SetDraft(w http.ResponseWriter, r *http.Request) {
	defer h.track("PUT", "/recurring-rules/{id}/drafts")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "PUT", "/recurring-rules/{id}/drafts", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	on, err := date.Parse(req.Date)
	if err != nil {
		h.respondError(w, "PUT", "/recurring-rules/{id}/drafts", http.StatusUnprocessableEntity, "invalid date")
		return
	}
	currency, err := h.ruleCurrency(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "PUT", "/recurring-rules/{id}/drafts", err)
		return
	}
	var amount *int64
	if req.Amount != "" {
		v, err := domain.ParseAmount(req.Amount, currency)
		if err != nil {
			h.respondError(w, "PUT", "/recurring-rules/{id}/drafts", http.StatusUnprocessableEntity, err.Error())
			return
		}
		amount = &v
	}
	draft, err := h.scheduler.SetDraft(r.Context(), id, on, amount, req.Memo)
	if err != nil {
		h.respondServiceError(w, "PUT", "/recurring-rules/{id}/drafts", err)
		return
	}
	h.respond(w, "PUT", "/recurring-rules/{id}/drafts", http.StatusOK, draftResponse(draft, currency))
}

func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	defer h.track("DELETE", "/recurring-rules/{id}/drafts/{date}")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	on, err := date.Parse(mux.Vars(r)["date"])
	if err != nil {
		h.respondError(w, "DELETE", "/recurring-rules/{id}/drafts/{date}", http.StatusUnprocessableEntity, "invalid date")
		return
	}
	if err := h.scheduler.DeleteDraft(r.Context(), id, on); err != nil {
		h.respondServiceError(w, "DELETE", "/recurring-rules/{id}/drafts/{date}", err)
		return
	}
	h.respond(w, "DELETE", "/recurring-rules/{id}/drafts/{date}", http.StatusNoContent, nil)
}

func (h *Handler) GetStatement(w http.ResponseWriter, r *http.Request) {
	defer h.track("GET", "/statements/{id}")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stmt, err := h.billing.GetStatement(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "GET", "/statements/{id}", err)
		return
	}
	card, err := h.accounts.Get(r.Context(), stmt.AccountID)
	if err != nil {
		h.respondServiceError(w, "GET", "/statements/{id}", err)
		return
	}
	h.respond(w, "GET", "/statements/{id}", http.StatusOK, statementResponse(stmt, card.Currency))
}

func (h *Handler) SettleStatement(w http.ResponseWriter, r *http.Request) {
	defer h.track("POST", "/statements/{id}/settle")()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "POST", "/statements/{id}/settle", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	opts := service.SettleOptions{Memo: req.Memo, CreateCardEntry: req.CreateCardEntry}
	if req.Date != "" {
		on, err := date.Parse(req.Date)
		if err != nil {
			h.respondError(w, "POST", "/statements/{id}/settle", http.StatusUnprocessableEntity, "invalid date")
			return
		}
		opts.Date = on
	}
	stmt, err := h.billing.Settle(r.Context(), id, opts)
	if err != nil {
		h.respondServiceError(w, "POST", "/statements/{id}/settle", err)
		return
	}
	card, err := h.accounts.Get(r.Context(), stmt.AccountID)
	if err != nil {
		h.respondServiceError(w, "POST", "/statements/{id}/settle", err)
		return
	}
	h.respond(w, "POST", "/statements/{id}/settle", http.StatusOK, statementResponse(stmt, card.Currency))
}

// confirmArgs parses one confirmation request, resolving the amount against
// the rule's currency.
func (h *Handler) confirmArgs(ctx context.Context, ruleID int64, req ConfirmRequest) (date.Date, *int64, error) {
	on, err := date.Parse(req.Date)
	if err != nil {
		return date.Date{}, nil, err
	}
	var amount *int64
	if req.Amount != "" {
		currency, err := h.ruleCurrency(ctx, ruleID)
		if err != nil {
			return date.Date{}, nil, err
		}
		v, err := domain.ParseAmount(req.Amount, currency)
		if err != nil {
			return date.Date{}, nil, err
		}
		amount = &v
	}
	return on, amount, nil
}

func (h *Handler) ruleCurrency(ctx context.Context, ruleID int64) (string, error) {
	rule, err := h.scheduler.GetRule(ctx, ruleID)
	if err != nil {
		return "", err
	}
	return rule.Currency, nil
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// track starts the latency timer for one endpoint.
func (h *Handler) track(method, endpoint string) func() {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(method, endpoint))
	return func() { timer.ObserveDuration() }
}

func (h *Handler) respond(w http.ResponseWriter, method, endpoint string, code int, payload any) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, payload)
}

func (h *Handler) respondError(w http.ResponseWriter, method, endpoint string, code int, message string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	respondWithError(w, code, message)
}

// respondServiceError maps the engine's error taxonomy onto status codes:
// missing entities to 404, conflicts to 409, rejected input to 422.
func (h *Handler) respondServiceError(w http.ResponseWriter, method, endpoint string, err error) {
	var code int
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrStatementSettled),
		errors.Is(err, service.ErrOccurrenceTaken),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, store.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInactiveRule),
		errors.Is(err, service.ErrVariableRule),
		errors.Is(err, service.ErrNotVariableRule),
		errors.Is(err, service.ErrScheduleMismatch),
		errors.Is(err, service.ErrNoOutstanding),
		errors.Is(err, service.ErrCurrencyMismatch):
		code = http.StatusUnprocessableEntity
	default:
		code = http.StatusInternalServerError
		h.log.Error().Err(err).Str("endpoint", endpoint).Msg("request failed")
	}
	h.respondError(w, method, endpoint, code, err.Error())
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
