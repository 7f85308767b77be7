package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/pkg/errors"
	"github.com/transx/mining-ledger/business/domain/mining"
	"github.com/transx/mining-ledger/entities"
)

type Handler struct {
	core Core
}

// Core is the processing surface the HTTP layer delegates to.
type Core interface {
	Submit(ctx context.Context, participant string, sub entities.MiningSubmission) (*entities.SubmissionRecord, error)
	ApplyVerification(ctx context.Context, tx string, origin entities.OriginTag, outcome mining.VerifyOutcome) (*entities.SubmissionRecord, error)
	Record(tx string, origin entities.OriginTag) (*entities.SubmissionRecord, error)
	Status() mining.Status
}

func NewHandler(core Core) *Handler {
	return &Handler{core: core}
}

type SubmissionRequest struct {
	Participant string `json:"participant"`
	TxID        string `json:"txId"`
	Origin      string `json:"origin"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Symbol      string `json:"symbol"`
	Amount      string `json:"amount"`
	Protocol    string `json:"protocol,omitempty"`
	Decimals    uint32 `json:"decimals"`
	UsdValue    uint64 `json:"usdValue"`
	Chain       string `json:"chain,omitempty"`
	Memo        string `json:"memo,omitempty"`
}

type SubmissionResponse struct {
	TxID        string `json:"txId"`
	Origin      string `json:"origin"`
	AmountScore uint64 `json:"amountScore"`
	CountScore  uint64 `json:"countScore"`
	Reward      uint64 `json:"reward"`
	MineCount   uint16 `json:"mineCount"`
}

type VerificationRequest struct {
	TxID    string `json:"txId"`
	Origin  string `json:"origin"`
	Outcome string `json:"outcome"`
}

type VerificationResponse struct {
	TxID         string `json:"txId"`
	Origin       string `json:"origin"`
	VerifyStatus uint64 `json:"verifyStatus"`
}

type RecordResponse struct {
	Record *entities.SubmissionRecord `json:"record"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) PostSubmission(w http.ResponseWriter, r *http.Request) {
	var req SubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error decoding request body", http.StatusBadRequest)
		return
	}

	origin, err := entities.ParseOriginTag(req.Origin)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.core.Submit(r.Context(), req.Participant, entities.MiningSubmission{
		TxID:        req.TxID,
		Origin:      origin,
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		Symbol:      req.Symbol,
		Amount:      req.Amount,
		Protocol:    req.Protocol,
		Decimals:    req.Decimals,
		UsdValue:    req.UsdValue,
		Chain:       req.Chain,
		Memo:        req.Memo,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, SubmissionResponse{
		TxID:        record.TxID,
		Origin:      record.Origin.String(),
		AmountScore: record.AmountScore,
		CountScore:  record.CountScore,
		Reward:      record.TotalReward(),
		MineCount:   record.MineCount,
	})
}

func (h *Handler) PostVerification(w http.ResponseWriter, r *http.Request) {
	var req VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error decoding request body", http.StatusBadRequest)
		return
	}

	origin, err := entities.ParseOriginTag(req.Origin)
	if err != nil {
		writeError(w, err)
		return
	}
	outcome, err := mining.ParseVerifyOutcome(req.Outcome)
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.core.ApplyVerification(r.Context(), req.TxID, origin, outcome)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, VerificationResponse{
		TxID:         record.TxID,
		Origin:       record.Origin.String(),
		VerifyStatus: record.VerifyStatus,
	})
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	tx := r.URL.Query().Get("txId")
	origin, err := entities.ParseOriginTag(r.URL.Query().Get("origin"))
	if err != nil {
		writeError(w, err)
		return
	}

	record, err := h.core.Record(tx, origin)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, RecordResponse{Record: record})
}

func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.core.Status())
}

func (h *Handler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, HealthResponse{Status: "UP"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
		http.Error(w, "Error encoding response", 500)
	}
}

// writeError maps the error taxonomy onto HTTP statuses: preconditions are
// client errors, caps are rate rejections, arithmetic failures are reported
// as unprocessable rather than server faults.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entities.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entities.ErrDuplicateSubmission):
		status = http.StatusConflict
	case errors.Is(err, entities.ErrCapExceeded):
		status = http.StatusTooManyRequests
	case errors.Is(err, entities.ErrArithmetic):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrPrecondition):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
