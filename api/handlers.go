/*
handlers.go - HTTP API handlers for the wallet ledger

PURPOSE:
  Exposes the finance service via REST API. Handlers parse the request,
  check formats, call exactly one service operation, and serialize the
  result. No handler touches a balance or a store directly.

ENDPOINTS:
  Wallets:
    GET    /api/wallets                      List live wallets
    POST   /api/wallets                      Create wallet (optional opening balance)
    GET    /api/wallets/{id}                 Get wallet
    PUT    /api/wallets/{id}                 Rename / recategorize
    DELETE /api/wallets/{id}                 Soft delete (balance must be 0)
    GET    /api/wallets/{id}/mutations       Mutation history
    GET    /api/wallets/{id}/verify          Replay trail against balance

  Records:
    /api/incomes[/{id}]                      CRUD, delete reverses the credit
    /api/transactions[/{id}]                 CRUD, delete unwinds split bills
    GET /api/transactions/{id}/debt          Split-bill debt of an expense
    /api/transfers[/{id}]                    Create / read only
    /api/debts[/{id}]                        CRUD, delete reverses payments
    GET|POST /api/debts/targets/{id}/payments
    GET /api/mutations?origin_kind=&origin_id=

  Other:
    GET  /api/summary
    GET  /api/scenarios, POST /api/scenarios/load

IDENTITY:
  Every /api route requires the X-Owner-ID header (see server.go). The
  owner is passed explicitly into every service call.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, invalid amount, insufficient balance,
         payment exceeds remaining, invalid transfer
  - 401: Missing owner
  - 404: Record not found (or owned by someone else)
  - 409: Wallet still has a balance
  - 500: Persistence failures (logged)

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/wallet-ledger/finance"
	"github.com/warp/wallet-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *finance.Service

	now func() time.Time
}

// NewHandler creates a new handler over the given service.
func NewHandler(svc *finance.Service) *Handler {
	return &Handler{
		Service: svc,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// publishedAt defaults a missing date to now.
func (h *Handler) publishedAt(t *time.Time) time.Time {
	if t == nil {
		return h.now()
	}
	return t.UTC()
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.Service.ListWallets(r.Context(), ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dtos := make([]WalletDTO, 0, len(wallets))
	for _, wl := range wallets {
		dtos = append(dtos, toWalletDTO(wl))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	wl, err := h.Service.CreateWallet(r.Context(), ownerFrom(r), finance.CreateWalletInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Balance:    req.Balance,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWalletDTO(*wl))
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wl, err := h.Service.GetWallet(r.Context(), ownerFrom(r), walletParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wl))
}

func (h *Handler) UpdateWallet(w http.ResponseWriter, r *http.Request) {
	var req UpdateWalletRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	wl, err := h.Service.UpdateWallet(r.Context(), ownerFrom(r), walletParam(r), finance.UpdateWalletInput{
		Name:       req.Name,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWalletDTO(*wl))
}

func (h *Handler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteWallet(r.Context(), ownerFrom(r), walletParam(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) WalletMutations(w http.ResponseWriter, r *http.Request) {
	ms, err := h.Service.WalletMutations(r.Context(), ownerFrom(r), walletParam(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMutations(w, ms)
}

// VerifyWallet reports drift in the body rather than as an error status:
// the request itself succeeded.
func (h *Handler) VerifyWallet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.VerifyWallet(r.Context(), ownerFrom(r), walletParam(r))
	var drift *ledger.DriftError
	if err != nil && !errors.As(err, &drift) {
		writeServiceError(w, r, err)
		return
	}
	dto := toReconciliationDTO(rec)
	if drift != nil {
		dto.Balanced = false
		dto.Drift = drift.Error()
	}
	writeJSON(w, http.StatusOK, dto)
}

// OriginMutations lists what one record did to the ledger.
func (h *Handler) OriginMutations(w http.ResponseWriter, r *http.Request) {
	kind, err := ledger.ParseOriginKind(r.URL.Query().Get("origin_kind"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id := r.URL.Query().Get("origin_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "origin_id is required", nil)
		return
	}
	ms, err := h.Service.OriginMutations(r.Context(), ownerFrom(r), kind, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeMutations(w, ms)
}

func writeMutations(w http.ResponseWriter, ms []ledger.Mutation) {
	dtos := make([]MutationDTO, 0, len(ms))
	for _, m := range ms {
		dtos = append(dtos, toMutationDTO(m))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INCOME HANDLERS
// =============================================================================

func (h *Handler) ListIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := h.Service.ListIncomes(r.Context(), ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dtos := make([]IncomeDTO, 0, len(incomes))
	for _, in := range incomes {
		dtos = append(dtos, toIncomeDTO(in))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateIncome(w http.ResponseWriter, r *http.Request) {
	var req CreateIncomeRequest
	if !decode(w, r, &req) {
		return
	}
	if !required(w, "wallet_id", req.WalletID, "title", req.Title) {
		return
	}

	in, err := h.Service.CreateIncome(r.Context(), ownerFrom(r), finance.CreateIncomeInput{
		WalletID:    ledger.WalletID(req.WalletID),
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Amount:      req.Amount,
		Description: req.Description,
		PublishedAt: h.publishedAt(req.PublishedAt),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toIncomeDTO(*in))
}

func (h *Handler) GetIncome(w http.ResponseWriter, r *http.Request) {
	in, err := h.Service.GetIncome(r.Context(), ownerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIncomeDTO(*in))
}

func (h *Handler) UpdateIncome(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecordRequest
	if !decode(w, r, &req) {
		return
	}
	if !required(w, "title", req.Title) {
		return
	}

	in, err := h.Service.UpdateIncome(r.Context(), ownerFrom(r), chi.URLParam(r, "id"), finance.UpdateIncomeInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		PublishedAt: h.publishedAt(req.PublishedAt),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIncomeDTO(*in))
}

func (h *Handler) DeleteIncome(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteIncome(r.Context(), ownerFrom(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Service.ListTransactions(r.Context(), ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	if !required(w, "wallet_id", req.WalletID, "title", req.Title) {
		return
	}
	if req.IsDebt && len(req.Targets) == 0 {
		writeError(w, http.StatusBadRequest, "a split bill needs at least one target", nil)
		return
	}

	tx, err := h.Service.CreateTransaction(r.Context(), ownerFrom(r), finance.CreateTransactionInput{
		WalletID:    ledger.WalletID(req.WalletID),
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Amount:      req.Amount,
		Fee:         req.Fee,
		Description: req.Description,
		PublishedAt: h.publishedAt(req.PublishedAt),
		IsDebt:      req.IsDebt,
		Targets:     toTargetInputs(req.Targets),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Service.GetTransaction(r.Context(), ownerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateRecordRequest
	if !decode(w, r, &req) {
		return
	}
	if !required(w, "title", req.Title) {
		return
	}

	tx, err := h.Service.UpdateTransaction(r.Context(), ownerFrom(r), chi.URLParam(r, "id"), finance.UpdateTransactionInput{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		PublishedAt: h.publishedAt(req.PublishedAt),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteTransaction(r.Context(), ownerFrom(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TransactionDebt(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.TransactionDebt(r.Context(), ownerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtDTO(*d))
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Service.ListTransfers(r.Context(), ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dtos := make([]TransferDTO, 0, len(ts))
	for _, t := range ts {
		dtos = append(dtos, toTransferDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if !decode(w, r, &req) {
		return
	}
	if !required(w, "from_wallet_id", req.FromWalletID, "to_wallet_id", req.ToWalletID) {
		return
	}

	t, err := h.Service.CreateTransfer(r.Context(), ownerFrom(r), finance.CreateTransferInput{
		FromWalletID: ledger.WalletID(req.FromWalletID),
		ToWalletID:   ledger.WalletID(req.ToWalletID),
		Amount:       req.Amount,
		Fee:          req.Fee,
		Description:  req.Description,
		PublishedAt:  h.publishedAt(req.PublishedAt),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferDTO(*t))
}

func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.GetTransfer(r.Context(), ownerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTO(*t))
}

// =============================================================================
// DEBT HANDLERS
// =============================================================================

func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	ds, err := h.Service.ListDebts(r.Context(), ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dtos := make([]DebtDTO, 0, len(ds))
	for _, d := range ds {
		dtos = append(dtos, toDebtDTO(d))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req CreateDebtRequest
	if !decode(w, r, &req) {
		return
	}
	if !required(w, "wallet_id", req.WalletID, "title", req.Title, "target.name", req.Target.Name) {
		return
	}

	in := finance.CreateDebtInput{
		WalletID:    ledger.WalletID(req.WalletID),
		Title:       req.Title,
		Amount:      req.Amount,
		Fee:         req.Fee,
		Description: req.Description,
		PublishedAt: h.publishedAt(req.PublishedAt),
		Target:      toTargetInput(req.Target),
	}

	var (
		d   *finance.Debt
		err error
	)
	switch finance.DebtType(strings.ToUpper(req.Type)) {
	case "", finance.DebtReceivable:
		d, err = h.Service.CreateDebtReceivable(r.Context(), ownerFrom(r), in)
	case finance.DebtPayable:
		d, err = h.Service.CreateDebtPayable(r.Context(), ownerFrom(r), in)
	default:
		writeError(w, http.StatusBadRequest, "type must be CREDIT or DEBIT", nil)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDebtDTO(*d))
}

func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.GetDebt(r.Context(), ownerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtDTO(*d))
}

func (h *Handler) UpdateDebt(w http.ResponseWriter, r *http.Request) {
	var req UpdateDebtRequest
	if !decode(w, r, &req) {
		return
	}
	if !required(w, "title", req.Title) {
		return
	}

	d, err := h.Service.UpdateDebtReceivable(r.Context(), ownerFrom(r), chi.URLParam(r, "id"), finance.UpdateDebtInput{
		Title:       req.Title,
		Description: req.Description,
		PublishedAt: h.publishedAt(req.PublishedAt),
		TargetName:  req.TargetName,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDebtDTO(*d))
}

func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDebtReceivable(r.Context(), ownerFrom(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Service.DebtPayments(r.Context(), ownerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dtos := make([]DebtPaymentDTO, 0, len(ps))
	for _, p := range ps {
		dtos = append(dtos, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !decode(w, r, &req) {
		return
	}
	if !required(w, "wallet_id", req.WalletID) {
		return
	}

	p, err := h.Service.RecordDebtPayment(r.Context(), ownerFrom(r), finance.RecordPaymentInput{
		TargetID: chi.URLParam(r, "id"),
		WalletID: ledger.WalletID(req.WalletID),
		Amount:   req.Amount,
		Note:     req.Note,
		PaidAt:   h.publishedAt(req.PaidAt),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentDTO(*p))
}

// =============================================================================
// SUMMARY
// =============================================================================

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Service.Summary(r.Context(), ownerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		Wallets:      s.Wallets,
		TotalBalance: s.TotalBalance,
		Receivable:   s.Receivable,
		Payable:      s.Payable,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func walletParam(r *http.Request) ledger.WalletID {
	return ledger.WalletID(chi.URLParam(r, "id"))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// required takes name/value pairs and writes a 400 naming the first
// empty field.
func required(w http.ResponseWriter, pairs ...string) bool {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			writeError(w, http.StatusBadRequest, pairs[i]+" is required", nil)
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Code = ledger.Kind(err)
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps ledger error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrWalletHasBalance):
		return http.StatusConflict
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[api] %s %s request_id=%s: %v",
			r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
		writeError(w, status, "Internal error", err)
		return
	}
	writeError(w, status, http.StatusText(status), err)
}
