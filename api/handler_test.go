package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transx/mining-ledger/business/domain/mining"
	"github.com/transx/mining-ledger/entities"
)

type fakeCore struct {
	submitErr error
	verifyErr error
	recordErr error
	record    *entities.SubmissionRecord
}

func (f *fakeCore) Submit(_ context.Context, _ string, _ entities.MiningSubmission) (*entities.SubmissionRecord, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.record, nil
}

func (f *fakeCore) ApplyVerification(_ context.Context, _ string, _ entities.OriginTag, _ mining.VerifyOutcome) (*entities.SubmissionRecord, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.record, nil
}

func (f *fakeCore) Record(_ string, _ entities.OriginTag) (*entities.SubmissionRecord, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return f.record, nil
}

func (f *fakeCore) Status() mining.Status {
	return mining.Status{Height: 28_801, Epoch: 3}
}

func acceptedRecord() *entities.SubmissionRecord {
	return &entities.SubmissionRecord{
		TxID:              "tx-1",
		Origin:            entities.OriginClient,
		AmountScore:       7_700_000,
		CountScore:        7_700,
		ParticipantReward: 458,
		UplineReward:      228,
		MineCount:         1,
		VerifyStatus:      1_000,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandler_PostSubmission(t *testing.T) {
	h := NewHandler(&fakeCore{record: acceptedRecord()})

	rec := postJSON(t, h.PostSubmission, SubmissionRequest{
		Participant: "miner-1",
		TxID:        "tx-1",
		Origin:      "CLIENT",
		Symbol:      "BTC",
		Amount:      "150000000",
		UsdValue:    1_000,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SubmissionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tx-1", resp.TxID)
	assert.Equal(t, uint64(7_700_000), resp.AmountScore)
	assert.Equal(t, uint64(686), resp.Reward)
}

func TestHandler_PostSubmission_BadOrigin(t *testing.T) {
	h := NewHandler(&fakeCore{record: acceptedRecord()})

	rec := postJSON(t, h.PostSubmission, SubmissionRequest{Origin: "SIDEWAYS"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ErrorMapping(t *testing.T) {
	testData := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "duplicate", err: entities.ErrDuplicateSubmission, expected: http.StatusConflict},
		{name: "cap", err: entities.ErrAssetDailyCap, expected: http.StatusTooManyRequests},
		{name: "arithmetic", err: entities.ErrScoreTooLarge, expected: http.StatusUnprocessableEntity},
		{name: "precondition", err: entities.ErrNotRegistered, expected: http.StatusBadRequest},
		{name: "not found", err: entities.ErrRecordNotFound, expected: http.StatusNotFound},
	}

	for _, testRun := range testData {
		t.Run(testRun.name, func(t *testing.T) {
			h := NewHandler(&fakeCore{submitErr: testRun.err})

			rec := postJSON(t, h.PostSubmission, SubmissionRequest{Origin: "CLIENT", Symbol: "BTC"})
			assert.Equal(t, testRun.expected, rec.Code)
		})
	}
}

func TestHandler_PostVerification(t *testing.T) {
	record := acceptedRecord()
	record.VerifyStatus = 1_100
	h := NewHandler(&fakeCore{record: record})

	rec := postJSON(t, h.PostVerification, VerificationRequest{
		TxID:    "tx-1",
		Origin:  "CLIENT",
		Outcome: "PASS",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp VerificationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, uint64(1_100), resp.VerifyStatus)
}

func TestHandler_PostVerification_BadOutcome(t *testing.T) {
	h := NewHandler(&fakeCore{record: acceptedRecord()})

	rec := postJSON(t, h.PostVerification, VerificationRequest{Origin: "CLIENT", Outcome: "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetRecord(t *testing.T) {
	h := NewHandler(&fakeCore{record: acceptedRecord()})

	req := httptest.NewRequest(http.MethodGet, "/v1/records?txId=tx-1&origin=CLIENT", nil)
	rec := httptest.NewRecorder()
	h.GetRecord(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecordResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tx-1", resp.Record.TxID)
}

func TestHandler_GetRecord_NotFound(t *testing.T) {
	h := NewHandler(&fakeCore{recordErr: entities.ErrRecordNotFound})

	req := httptest.NewRequest(http.MethodGet, "/v1/records?txId=tx-x&origin=CLIENT", nil)
	rec := httptest.NewRecorder()
	h.GetRecord(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_GetStatus(t *testing.T) {
	h := NewHandler(&fakeCore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	rec := httptest.NewRecorder()
	h.GetStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp mining.Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, uint64(28_801), resp.Height)
	assert.Equal(t, uint64(3), resp.Epoch)
}

func TestHandler_GetHealth(t *testing.T) {
	h := NewHandler(&fakeCore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	h.GetHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "UP", resp.Status)
}
