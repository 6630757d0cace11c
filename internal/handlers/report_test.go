package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"disaster-alerts/internal/classifier"
	"disaster-alerts/internal/model"
	"disaster-alerts/internal/pipeline"
	"disaster-alerts/internal/store"
)

type stubClassifier struct {
	result model.MLResult
	err    error
}

func (s *stubClassifier) Predict(_ context.Context, _ model.ReportInput) (*model.MLResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := s.result
	return &out, nil
}

type reportFixture struct {
	router *gin.Engine
	dedup  *store.MemoryDedup
}

func newReportFixture(cls pipeline.Classifier) *reportFixture {
	gin.SetMode(gin.TestMode)
	dedup := store.NewMemoryDedup()
	pipe := pipeline.New(pipeline.Options{
		Classifier:   cls,
		Dedup:        dedup,
		Alerts:       store.NewMemoryLog(),
		SyncLog:      store.NewMemoryLog(),
		Broadcast:    store.NewMemoryLog(),
		WaitBudget:   150 * time.Millisecond,
		PollInterval: 25 * time.Millisecond,
	})
	router := gin.New()
	api := router.Group("/api")
	RegisterReportRoutes(api, pipe)
	RegisterAckRoutes(api, pipeline.NewAckRecorder(store.NewMemoryLog()))
	return &reportFixture{router: router, dedup: dedup}
}

func (f *reportFixture) post(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestReportEndpointSuccess(t *testing.T) {
	f := newReportFixture(&stubClassifier{result: model.MLResult{IsHighRisk: true}})

	rec := f.post("/api/report", `{"lik_codes":["L01"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.True(t, resp.ShouldDistribute)
	require.NotEmpty(t, resp.ReportID)
	require.NotNil(t, resp.AlertEvent)
	require.False(t, resp.Deduped)
}

func TestReportEndpointInvalidJSON(t *testing.T) {
	f := newReportFixture(&stubClassifier{})
	rec := f.post("/api/report", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportEndpointValidationFailure(t *testing.T) {
	f := newReportFixture(&stubClassifier{})
	rec := f.post("/api/report", `{"lik_codes":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "lik_codes required")
}

func TestReportEndpointConflict(t *testing.T) {
	f := newReportFixture(&stubClassifier{})
	token := uuid.NewString()
	acquired, err := f.dedup.TryLock(context.Background(), token, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	rec := f.post("/api/report", `{"lik_codes":["L01"],"clientReportId":"`+token+`"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestReportEndpointUpstreamFailure(t *testing.T) {
	f := newReportFixture(&stubClassifier{err: &classifier.UpstreamError{Status: 500, Detail: "boom"}})
	rec := f.post("/api/report", `{"lik_codes":["L01"]}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, float64(500), body["status"])
	require.Equal(t, "boom", body["detail"])
}

func TestReportEndpointDedupedReplay(t *testing.T) {
	f := newReportFixture(&stubClassifier{result: model.MLResult{IsHighRisk: true}})
	token := uuid.NewString()
	body := `{"lik_codes":["L01"],"clientReportId":"` + token + `"}`

	first := f.post("/api/report", body)
	require.Equal(t, http.StatusOK, first.Code)
	second := f.post("/api/report", body)
	require.Equal(t, http.StatusOK, second.Code)

	var resp model.ReportResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	require.True(t, resp.Deduped)
}

func TestAckEndpoint(t *testing.T) {
	f := newReportFixture(&stubClassifier{})

	rec := f.post("/api/ack", `{"alertId":"a1","transport":"SSE","receivedAtClient":1250,"serverTimestamp":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = f.post("/api/ack", `{"alertId":"a1","transport":"SMOKE_SIGNAL","receivedAtClient":1250,"serverTimestamp":1000}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.post("/api/ack", `{"alertId":"a1","transport":"SSE"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
