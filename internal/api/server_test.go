package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sabaqhq/sabaq/internal/cache"
	"github.com/sabaqhq/sabaq/internal/chat"
	"github.com/sabaqhq/sabaq/internal/content"
	"github.com/sabaqhq/sabaq/internal/llm"
	"github.com/sabaqhq/sabaq/internal/log"
	"github.com/sabaqhq/sabaq/internal/study"
	"github.com/sabaqhq/sabaq/internal/transform"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakePipeline returns canned results keyed by content ID.
type fakePipeline struct {
	lastReq transform.Request
	result  transform.Result
	err     error
}

func (f *fakePipeline) Run(_ context.Context, req transform.Request) (transform.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return transform.Result{}, f.err
	}
	res := f.result
	res.ContentID = req.ContentID
	res.Kind = req.Kind
	if req.Kind == transform.KindPersonalization {
		res.VariantID = req.ContentID + "-v1-deadbeef"
	}
	return res, nil
}

type fakeChat struct {
	answer chat.Answer
	err    error
}

func (f *fakeChat) Ask(_ context.Context, q chat.Question) (chat.Answer, error) {
	if strings.TrimSpace(q.Text) == "" {
		return chat.Answer{}, chat.ErrEmptyQuestion
	}
	return f.answer, f.err
}

// fakeStudy returns canned study aids and records the last request of
// each kind.
type fakeStudy struct {
	summary     study.Summary
	quiz        study.Quiz
	explanation study.Explanation
	err         error

	lastSummary study.SummaryRequest
	lastQuiz    study.QuizRequest
	lastExplain study.ExplainRequest
}

func (f *fakeStudy) Summarize(_ context.Context, req study.SummaryRequest) (study.Summary, error) {
	f.lastSummary = req
	return f.summary, f.err
}

func (f *fakeStudy) GenerateQuiz(_ context.Context, req study.QuizRequest) (study.Quiz, error) {
	f.lastQuiz = req
	return f.quiz, f.err
}

func (f *fakeStudy) ExplainCode(_ context.Context, req study.ExplainRequest) (study.Explanation, error) {
	f.lastExplain = req
	return f.explanation, f.err
}

type fakeCacheAdmin struct {
	stats       cache.Stats
	invalidated int64
	err         error
}

func (f *fakeCacheAdmin) Stats(context.Context) (cache.Stats, error) {
	return f.stats, f.err
}

func (f *fakeCacheAdmin) Invalidate(_ context.Context, _ string) (int64, error) {
	return f.invalidated, f.err
}

func newTestServer(t *testing.T, p pipelineRunner, c askService, s studyService, ca cacheAdmin) *httptest.Server {
	t.Helper()
	if p == nil {
		p = &fakePipeline{}
	}
	if c == nil {
		c = &fakeChat{}
	}
	if s == nil {
		s = &fakeStudy{}
	}
	if ca == nil {
		ca = &fakeCacheAdmin{}
	}

	srv, err := NewServer(ServerConfig{
		Logger:       log.NewNop(),
		Pipeline:     p,
		ChatService:  c,
		StudyService: s,
		CacheStore:   ca,
		JWTSecret:    testSecret,
		IsDev:        true,
		RateBurst:    1000,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestNewServerValidation(t *testing.T) {
	base := ServerConfig{
		Pipeline:     &fakePipeline{},
		ChatService:  &fakeChat{},
		StudyService: &fakeStudy{},
		CacheStore:   &fakeCacheAdmin{},
		JWTSecret:    testSecret,
	}

	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"missing pipeline", func(c *ServerConfig) { c.Pipeline = nil }},
		{"missing chat", func(c *ServerConfig) { c.ChatService = nil }},
		{"missing study", func(c *ServerConfig) { c.StudyService = nil }},
		{"missing cache", func(c *ServerConfig) { c.CacheStore = nil }},
		{"short secret", func(c *ServerConfig) { c.JWTSecret = []byte("short") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := NewServer(cfg)
			assert.Error(t, err)
		})
	}

	_, err := NewServer(base)
	assert.NoError(t, err)
}

func TestHealthEndpointsSkipAuth(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}

func TestAPIRequiresToken(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/translate", "",
		map[string]string{"content_id": "chapter-01", "target_language": "urdu"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/translate", "not-a-jwt",
		map[string]string{"content_id": "chapter-01", "target_language": "urdu"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTranslate(t *testing.T) {
	pipeline := &fakePipeline{result: transform.Result{
		Content: "ترجمہ شدہ متن",
		Cached:  true,
		Metadata: transform.Metadata{
			Provider:           "googleai/gemini-2.5-flash",
			ValidationWarnings: []string{},
		},
	}}
	ts := newTestServer(t, pipeline, nil, nil, nil)
	token := signToken(t, &Claims{})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/translate", token,
		map[string]string{"content_id": "chapter-01", "target_language": "Urdu"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body translateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "chapter-01", body.ContentID)
	assert.Equal(t, "urdu", body.TargetLanguage)
	assert.Equal(t, "ترجمہ شدہ متن", body.TransformedContent)
	assert.True(t, body.Cached)

	// Handler lowercases the language before the pipeline sees it.
	assert.Equal(t, "urdu", pipeline.lastReq.TargetLanguage)
	assert.Equal(t, transform.KindTranslation, pipeline.lastReq.Kind)
}

func TestTranslateErrors(t *testing.T) {
	token := signToken(t, &Claims{})

	tests := []struct {
		name       string
		pipelineFn *fakePipeline
		body       any
		wantStatus int
	}{
		{
			name:       "unknown content",
			pipelineFn: &fakePipeline{err: content.ErrNotFound},
			body:       map[string]string{"content_id": "nope", "target_language": "urdu"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "oversized content",
			pipelineFn: &fakePipeline{err: transform.ErrContentTooLarge},
			body:       map[string]string{"content_id": "big", "target_language": "urdu"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "missing fields",
			pipelineFn: &fakePipeline{},
			body:       map[string]string{"content_id": "chapter-01"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unexpected failure",
			pipelineFn: &fakePipeline{err: errors.New("boom")},
			body:       map[string]string{"content_id": "chapter-01", "target_language": "urdu"},
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.pipelineFn, nil, nil, nil)
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/translate", token, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestTranslateMalformedBody(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)
	token := signToken(t, &Claims{})

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/translate",
		strings.NewReader("{not json"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPersonalizeUsesTokenProfile(t *testing.T) {
	pipeline := &fakePipeline{result: transform.Result{Content: "adapted"}}
	ts := newTestServer(t, pipeline, nil, nil, nil)

	token := signToken(t, &Claims{
		ProgrammingExperience: transform.ExperienceBeginner,
		HardwareAvailability:  transform.HardwareJetsonKit,
	})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/personalize", token,
		map[string]string{"content_id": "chapter-01"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body personalizeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "chapter-01", body.ContentID)
	assert.NotEmpty(t, body.VariantID)

	require.NotNil(t, pipeline.lastReq.Profile)
	assert.Equal(t, transform.ExperienceBeginner, pipeline.lastReq.Profile.ProgrammingExperience)
	assert.Equal(t, transform.HardwareJetsonKit, pipeline.lastReq.Profile.HardwareAvailability)
}

func TestChat(t *testing.T) {
	service := &fakeChat{answer: chat.Answer{
		Text:     "LiDAR uses light.",
		Sources:  []chat.Source{{ContentID: "chapter-02", Similarity: 0.9}},
		Provider: "googleai/gemini-2.5-flash",
	}}
	ts := newTestServer(t, nil, service, nil, nil)
	token := signToken(t, &Claims{})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/chat", token,
		map[string]string{"question": "how does lidar work?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer chat.Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, "LiDAR uses light.", answer.Text)
	assert.Len(t, answer.Sources, 1)

	// Blank question maps to 400.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/chat", token,
		map[string]string{"question": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStudyEndpoints(t *testing.T) {
	service := &fakeStudy{
		summary: study.Summary{Summary: "FK maps joints to pose.", KeyPoints: []string{"one"}},
		quiz: study.Quiz{
			Questions:      []study.Question{{ID: 1, Question: "What is FK?"}},
			TotalQuestions: 1,
		},
		explanation: study.Explanation{Overview: "Publishes velocity commands."},
	}
	ts := newTestServer(t, nil, nil, service, nil)
	token := signToken(t, &Claims{})

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/study/summarize", token,
		map[string]string{"text": "Forward kinematics...", "summary_type": "concise"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum study.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, "FK maps joints to pose.", sum.Summary)
	assert.Equal(t, "concise", service.lastSummary.Type)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/study/quiz", token,
		map[string]any{"content": "ROS is a framework...", "question_count": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var quiz study.Quiz
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&quiz))
	assert.Equal(t, 1, quiz.TotalQuestions)
	assert.Equal(t, 3, service.lastQuiz.QuestionCount)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/study/explain-code", token,
		map[string]string{"code": "import rospy", "language": "python"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exp study.Explanation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&exp))
	assert.Equal(t, "Publishes velocity commands.", exp.Overview)
	assert.Equal(t, "python", service.lastExplain.Language)
}

func TestStudyErrors(t *testing.T) {
	token := signToken(t, &Claims{})

	tests := []struct {
		name       string
		service    *fakeStudy
		wantStatus int
	}{
		{"blank text", &fakeStudy{err: study.ErrEmptyText}, http.StatusBadRequest},
		{"bad count", &fakeStudy{err: study.ErrInvalidQuestionCount}, http.StatusBadRequest},
		{"gateway down", &fakeStudy{err: llm.ErrUnavailable}, http.StatusServiceUnavailable},
		{"unexpected", &fakeStudy{err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil, nil, tt.service, nil)
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/study/summarize", token,
				map[string]string{"text": "x"})
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestCacheEndpoints(t *testing.T) {
	admin := &fakeCacheAdmin{
		stats:       cache.Stats{Count: 7, DistinctContentIDs: 3},
		invalidated: 4,
	}
	ts := newTestServer(t, nil, nil, nil, admin)
	token := signToken(t, &Claims{})

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/cache/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats cache.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(7), stats.Count)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/cache/chapter-01", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inv invalidateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&inv))
	assert.Equal(t, "chapter-01", inv.ContentID)
	assert.Equal(t, int64(4), inv.Invalidated)
}

func TestCacheUnavailable(t *testing.T) {
	admin := &fakeCacheAdmin{err: cache.ErrUnavailable}
	ts := newTestServer(t, nil, nil, nil, admin)
	token := signToken(t, &Claims{})

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/cache/stats", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/cache/chapter-01", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil, nil)
	token := signToken(t, &Claims{})

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/cache/stats", token, nil)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
