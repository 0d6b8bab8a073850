package rpc

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"bondcurve/crypto"
	"bondcurve/native/bonding"
	"bondcurve/native/common"
	"bondcurve/storage/audit"
)

const maxSettlementLimit = 500

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, category, message string) {
	writeJSON(w, status, errorResponse{Error: message, Category: category})
}

// writeEngineError maps an engine error onto an HTTP status by category.
func writeEngineError(w http.ResponseWriter, err error) {
	category := bonding.Classify(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, bonding.ErrNotInstantiated):
		status = http.StatusNotFound
	case category == bonding.CategoryValidation, category == bonding.CategoryPayment,
		category == bonding.CategoryArithmetic, category == bonding.CategoryMarket:
		status = http.StatusBadRequest
	case category == bonding.CategoryAuthorization, category == bonding.CategoryPolicy:
		status = http.StatusForbidden
	case category == bonding.CategoryLedger:
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, string(category), err.Error())
}

func amount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

type curveResponse struct {
	Reserve      string `json:"reserve"`
	Supply       string `json:"supply"`
	SpotPrice    string `json:"spot_price"`
	ReserveDenom string `json:"reserve_denom"`
	TaxCollected string `json:"tax_collected"`
}

type tokenResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"total_supply"`
	Minter      string `json:"minter,omitempty"`
}

type quoteResponse struct {
	Payment string `json:"payment"`
	Minted  string `json:"minted"`
	Supply  string `json:"supply"`
	Cached  bool   `json:"cached"`
}

type settlementResponse struct {
	ID         string      `json:"id"`
	Action     string      `json:"action"`
	Sender     string      `json:"sender"`
	Minted     string      `json:"minted,omitempty"`
	Burned     string      `json:"burned,omitempty"`
	Reserve    string      `json:"reserve,omitempty"`
	Supply     string      `json:"supply,omitempty"`
	Attributes [][2]string `json:"attributes"`
	CreatedAt  string      `json:"created_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	info, err := s.query.CurveInfo(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, curveResponse{
		Reserve:      amount(info.Reserve),
		Supply:       amount(info.Supply),
		SpotPrice:    amount(info.SpotPrice),
		ReserveDenom: info.ReserveDenom,
		TaxCollected: amount(info.TaxCollected),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var (
		payload interface{}
		err     error
	)
	switch chi.URLParam(r, "record") {
	case "param":
		payload, err = s.query.ParamConfig(r.Context())
	case "acct":
		payload, err = s.query.AcctConfig(r.Context())
	case "dexfer":
		payload, err = s.query.DexferConfig(r.Context())
	case "safety":
		payload, err = s.query.SafetyConfig(r.Context())
	default:
		writeError(w, http.StatusNotFound, string(bonding.CategoryValidation), "unknown config record")
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleQuote estimates a curve-mode buy. Results are cached per supply so
// any settlement that moves the curve misses the cache.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	payment, err := common.ParseAmount(r.URL.Query().Get("payment"))
	if err != nil {
		writeError(w, http.StatusBadRequest, string(bonding.CategoryValidation), "payment must be a positive integer amount")
		return
	}
	if payment.IsZero() {
		writeError(w, http.StatusBadRequest, string(bonding.CategoryPayment), "payment must be positive")
		return
	}
	info, err := s.query.CurveInfo(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	supply := amount(info.Supply)
	key := supply + "/" + payment.Dec()
	if minted, ok := s.quotes.Get(key); ok {
		writeJSON(w, http.StatusOK, quoteResponse{Payment: payment.Dec(), Minted: minted, Supply: supply, Cached: true})
		return
	}
	minted, err := s.query.Quote(r.Context(), payment)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.quotes.Add(key, amount(minted))
	writeJSON(w, http.StatusOK, quoteResponse{Payment: payment.Dec(), Minted: amount(minted), Supply: supply})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	info, err := s.query.TokenInfo(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Name:        info.Name,
		Symbol:      info.Symbol,
		Decimals:    info.Decimals,
		TotalSupply: amount(info.TotalSupply),
		Minter:      info.Minter,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	if err := crypto.ValidateAddress(addr); err != nil {
		writeError(w, http.StatusBadRequest, string(bonding.CategoryValidation), err.Error())
		return
	}
	bal, err := s.query.Balance(r.Context(), addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": addr, "balance": amount(bal)})
}

func (s *Server) handleAllowance(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	spender := chi.URLParam(r, "spender")
	for _, addr := range []string{owner, spender} {
		if err := crypto.ValidateAddress(addr); err != nil {
			writeError(w, http.StatusBadRequest, string(bonding.CategoryValidation), err.Error())
			return
		}
	}
	allowed, err := s.query.Allowance(r.Context(), owner, spender)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": owner, "spender": spender, "allowance": amount(allowed)})
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, string(bonding.CategoryInternal), "audit trail disabled")
		return
	}
	query := r.URL.Query()
	filter := audit.Filter{
		Action: strings.TrimSpace(query.Get("action")),
		Sender: strings.TrimSpace(query.Get("sender")),
		Limit:  100,
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, string(bonding.CategoryValidation), "limit must be a positive integer")
			return
		}
		if limit > maxSettlementLimit {
			limit = maxSettlementLimit
		}
		filter.Limit = limit
	}
	records, err := s.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, string(bonding.CategoryInternal), err.Error())
		return
	}
	out := make([]settlementResponse, 0, len(records))
	for _, rec := range records {
		var attrs [][2]string
		if rec.Attributes != "" {
			if err := json.Unmarshal([]byte(rec.Attributes), &attrs); err != nil {
				writeError(w, http.StatusInternalServerError, string(bonding.CategoryInternal), "corrupt audit attributes")
				return
			}
		}
		out = append(out, settlementResponse{
			ID:         rec.ID.String(),
			Action:     rec.Action,
			Sender:     rec.Sender,
			Minted:     rec.Minted,
			Burned:     rec.Burned,
			Reserve:    rec.Reserve,
			Supply:     rec.Supply,
			Attributes: attrs,
			CreatedAt:  rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settlements": out})
}
