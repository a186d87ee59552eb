package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dayoonc/finbook/internal/service"
	"github.com/dayoonc/finbook/internal/store"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	st := store.NewMemory()
	log := zerolog.Nop()
	billing := service.NewBilling(st, log)
	writer := service.NewTxWriter(billing)
	h := NewHandler(
		service.NewAccounts(st, log),
		service.NewTransactions(st, writer, log),
		service.NewIngestor(st, writer, log),
		service.NewScheduler(st, writer, log),
		billing,
		log,
	)
	r := mux.NewRouter()
	h.Routes(r)
	return r
}

func do(t *testing.T, r *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonID(id int64) string { return strconv.FormatInt(id, 10) }

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
}

func TestCreateAndGetAccount(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, "POST", "/accounts", map[string]any{
		"owner_id": 1,
		"name":     "checking",
		"kind":     "DEPOSIT",
		"currency": "KRW",
		"balance":  "10000",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created AccountResponse
	decode(t, rec, &created)
	require.Equal(t, "checking", created.Name)
	require.Equal(t, "10000", created.Balance)

	rec = do(t, r, "GET", "/accounts/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, "GET", "/accounts/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAccountRejectsBadInput(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, "POST", "/accounts", map[string]any{
		"owner_id": 1,
		"kind":     "DEPOSIT",
		"currency": "KRW",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// KRW carries no fraction digits.
	rec = do(t, r, "POST", "/accounts", map[string]any{
		"owner_id": 1,
		"name":     "checking",
		"kind":     "DEPOSIT",
		"currency": "KRW",
		"balance":  "100.50",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest("POST", "/accounts", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTransactionOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, "POST", "/transactions", map[string]any{
		"owner_id":     1,
		"date":         "2025-06-02",
		"kind":         "EXPENSE",
		"account_name": "checking",
		"amount":       "-4500",
		"currency":     "KRW",
		"memo":         "lunch",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var row TransactionResponse
	decode(t, rec, &row)
	require.Equal(t, "-4500", row.Amount)
	require.Equal(t, "lunch", row.Memo)

	rec = do(t, r, "DELETE", "/transactions/"+jsonID(row.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, r, "DELETE", "/transactions/"+jsonID(row.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTransactionOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, "POST", "/transactions", map[string]any{
		"owner_id":     1,
		"date":         "2025-06-02",
		"kind":         "EXPENSE",
		"account_name": "checking",
		"amount":       "-4500",
		"currency":     "KRW",
		"memo":         "lunch",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var row TransactionResponse
	decode(t, rec, &row)

	rec = do(t, r, "PUT", "/transactions/"+jsonID(row.ID), map[string]any{
		"owner_id": 1,
		"date":     "2025-06-03",
		"kind":     "EXPENSE",
		"amount":   "-6000",
		"currency": "KRW",
		"memo":     "dinner",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated TransactionResponse
	decode(t, rec, &updated)
	require.Equal(t, row.ID, updated.ID)
	require.Equal(t, "-6000", updated.Amount)
	require.Equal(t, "dinner", updated.Memo)

	rec = do(t, r, "PUT", "/transactions/999", map[string]any{
		"owner_id": 1, "date": "2025-06-03", "kind": "EXPENSE", "amount": "-6000", "currency": "KRW",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBulkIngestOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	body := map[string]any{
		"owner_id": 1,
		"transactions": []map[string]any{
			{"date": "2025-06-02", "kind": "TRANSFER", "account_name": "checking", "amount": "-10000", "currency": "KRW", "external_key": "s1"},
			{"date": "2025-06-02", "kind": "TRANSFER", "account_name": "savings", "amount": "10000", "currency": "KRW"},
		},
	}

	rec := do(t, r, "POST", "/transactions/bulk", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var first struct {
		Transactions []TransactionResponse `json:"transactions"`
		Counts       service.StageCounts   `json:"counts"`
	}
	decode(t, rec, &first)
	require.Equal(t, 1, first.Counts.Paired)
	require.Len(t, first.Transactions, 1)
	require.True(t, first.Transactions[0].AutoTransferMatch)

	// Resubmitting the same file creates nothing new.
	rec = do(t, r, "POST", "/transactions/bulk", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var second struct {
		Transactions []TransactionResponse `json:"transactions"`
		Counts       service.StageCounts   `json:"counts"`
	}
	decode(t, rec, &second)
	require.Equal(t, 1, second.Counts.Existing)
	require.Len(t, second.Transactions, 1)
	require.Equal(t, first.Transactions[0].ID, second.Transactions[0].ID)
}

func TestRecurringRuleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, "POST", "/accounts", map[string]any{
		"owner_id": 1, "name": "checking", "kind": "DEPOSIT", "currency": "KRW",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, "POST", "/recurring-rules", map[string]any{
		"owner_id":     1,
		"name":         "rent",
		"kind":         "EXPENSE",
		"frequency":    "MONTHLY",
		"day_of_month": 1,
		"amount":       "500000",
		"currency":     "KRW",
		"account_id":   1,
		"start_date":   "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var rule RuleResponse
	decode(t, rec, &rule)
	require.True(t, rule.Active)

	rec = do(t, r, "POST", "/recurring-rules/"+jsonID(rule.ID)+"/generate?start=2025-01-01&end=2025-03-31", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []TransactionResponse
	decode(t, rec, &rows)
	require.Len(t, rows, 3)

	// Variable-only surface on a fixed rule is rejected.
	rec = do(t, r, "GET", "/recurring-rules/"+jsonID(rule.ID)+"/pending?as_of=2025-06-15", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSettleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, "POST", "/accounts", map[string]any{
		"owner_id": 1, "name": "checking", "kind": "DEPOSIT", "currency": "KRW", "balance": "100000",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, r, "POST", "/accounts", map[string]any{
		"owner_id": 1, "name": "card", "kind": "CREDIT_CARD", "currency": "KRW",
		"linked_account_id": 1, "billing_cutoff_day": 20, "payment_day": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, "POST", "/transactions", map[string]any{
		"owner_id": 1, "date": "2025-03-21", "kind": "EXPENSE", "account_id": 2,
		"amount": "-50000", "currency": "KRW",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var charge TransactionResponse
	decode(t, rec, &charge)
	require.NotNil(t, charge.BillingCycleID)

	stmtPath := "/statements/" + jsonID(*charge.BillingCycleID)
	rec = do(t, r, "GET", stmtPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stmt StatementResponse
	decode(t, rec, &stmt)
	require.Equal(t, "50000", stmt.TotalAmount)

	rec = do(t, r, "POST", stmtPath+"/settle", map[string]any{"date": "2025-05-05"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stmt)
	require.Equal(t, "paid", stmt.Status)
	require.Equal(t, "0", stmt.TotalAmount)

	rec = do(t, r, "POST", stmtPath+"/settle", map[string]any{})
	require.Equal(t, http.StatusConflict, rec.Code)
}
