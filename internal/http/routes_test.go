package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/profilegate/screener/internal/domain/model"
	"github.com/profilegate/screener/internal/mocks"
	"github.com/profilegate/screener/internal/service"
	"github.com/profilegate/screener/internal/testutil"
)

type apiFixture struct {
	server   *httptest.Server
	repo     *testutil.MemoryJobRepo
	jobs     *service.JobService
	provider *mocks.MockProfileProvider
	llm      *mocks.MockLLMClient
}

func newAPIFixture(t *testing.T, ctrl *gomock.Controller) *apiFixture {
	t.Helper()

	provider := mocks.NewMockProfileProvider(ctrl)
	llmClient := mocks.NewMockLLMClient(ctrl)

	prober, err := service.NewProber(service.ProberOptions{Provider: provider})
	require.NoError(t, err)
	classifier, err := service.NewClassifier(service.ClassifierOptions{LLM: llmClient})
	require.NoError(t, err)

	repo := testutil.NewMemoryJobRepo(3, 0)
	jobs, err := service.NewJobService(service.JobServiceOptions{Repo: repo, DefaultLease: time.Minute})
	require.NoError(t, err)

	gate, err := service.NewGate(service.GateOptions{
		Sanitizer:  service.NewSanitizer(),
		Prober:     prober,
		Classifier: classifier,
		JobService: jobs,
	})
	require.NoError(t, err)

	server := httptest.NewServer(NewRouter(RouterOptions{Gate: gate, Jobs: jobs}))
	t.Cleanup(server.Close)

	return &apiFixture{server: server, repo: repo, jobs: jobs, provider: provider, llm: llmClient}
}

func (f *apiFixture) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f *apiFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)
	resp := f.get(t, "/health")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestIngest_Accepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)
	f.provider.EXPECT().
		FetchRecord(gomock.Any(), gomock.Any()).
		Return(testutil.NewRecordSummary("rec-1"), nil).
		Times(1)
	f.llm.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(`{"score": 0.8, "reasoning": "fits"}`, nil).
		Times(1)

	resp := f.postJSON(t, "/api/ingest", IngestRequest{
		Identifier: "https://example.com/in/jane-doe?utm_source=x",
		SubjectID:  uuid.NewString(),
		Category:   model.CategoryEngineering,
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[service.IngestResult](t, resp)
	assert.True(t, body.Accepted)
	assert.NotEmpty(t, body.JobID)
	assert.Equal(t, "https://www.example.com/in/jane-doe/", body.Normalized)
	assert.Len(t, body.StageResults, 3)
}

func TestIngest_RejectionIsNotAnHTTPError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)

	resp := f.postJSON(t, "/api/ingest", IngestRequest{
		Identifier: "https://example.com/company/acme",
		SubjectID:  uuid.NewString(),
		Category:   model.CategoryEngineering,
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[service.IngestResult](t, resp)
	assert.False(t, body.Accepted)
	assert.Empty(t, body.JobID)
	assert.Len(t, body.StageResults, 1)
}

func TestIngest_DuplicateSubjectConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)
	f.provider.EXPECT().
		FetchRecord(gomock.Any(), gomock.Any()).
		Return(testutil.NewRecordSummary("rec-1"), nil).
		Times(2)
	f.llm.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(`{"score": 0.8, "reasoning": "fits"}`, nil).
		Times(2)

	req := IngestRequest{
		Identifier: "https://example.com/in/jane-doe",
		SubjectID:  uuid.NewString(),
		Category:   model.CategoryEngineering,
	}

	first := f.postJSON(t, "/api/ingest", req)
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second := f.postJSON(t, "/api/ingest", req)
	assert.Equal(t, http.StatusConflict, second.StatusCode)
	body := decodeBody[map[string]string](t, second)
	assert.Equal(t, "duplicate_job", body["error"])
}

func TestIngest_MalformedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)

	resp, err := http.Post(f.server.URL+"/api/ingest", "application/json",
		bytes.NewReader([]byte(`{"identifier": `)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "invalid_json", body["error"])
}

func TestGetJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)

	created, err := f.jobs.Create(context.Background(), testutil.NewJobRequest().Build())
	require.NoError(t, err)

	resp := f.get(t, "/api/jobs/"+created.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[model.ScoringJob](t, resp)
	assert.Equal(t, created.ID, body.ID)
	assert.Equal(t, model.JobStatusPending, body.Status)
}

func TestGetJob_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)

	resp := f.get(t, "/api/jobs/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "not_found", body["error"])
}

func TestListJobs_StatusFilter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)

	_, err := f.jobs.Create(context.Background(), testutil.NewJobRequest().Build())
	require.NoError(t, err)

	resp := f.get(t, "/api/jobs?status=pending&limit=10")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string][]model.ScoringJob](t, resp)
	assert.Len(t, body["jobs"], 1)

	empty := f.get(t, "/api/jobs?status=completed")
	assert.Equal(t, http.StatusOK, empty.StatusCode)
	emptyBody := decodeBody[map[string][]model.ScoringJob](t, empty)
	assert.Empty(t, emptyBody["jobs"])
}

func TestListJobs_InvalidStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)

	resp := f.get(t, "/api/jobs?status=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "invalid_status", body["error"])
}

func TestJobStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newAPIFixture(t, ctrl)

	_, err := f.jobs.Create(context.Background(), testutil.NewJobRequest().Build())
	require.NoError(t, err)

	resp := f.get(t, "/api/jobs/stats")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[model.JobStats](t, resp)
	assert.Equal(t, 1, body.Pending)
	assert.Zero(t, body.Running)
}
