package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-learning/pkg/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) (*Client, *Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m := NewMetrics(prometheus.NewRegistry())
	c := NewClient(config.CompletionConfig{
		APIKey:      "sk-test",
		Model:       "gpt-3.5-turbo",
		BaseURL:     srv.URL + "/v1",
		Timeout:     timeout,
		Temperature: 0.7,
		MaxTokens:   2000,
	}, m, zap.NewNop().Sugar())
	return c, m
}

func reply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
		ID:     "chatcmpl-1",
		Object: "chat.completion",
		Model:  "gpt-3.5-turbo",
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
	})
}

func TestGenerateNotConfigured(t *testing.T) {
	c := NewClient(config.CompletionConfig{Model: "gpt-3.5-turbo", Timeout: time.Second}, nil, zap.NewNop().Sugar())

	_, err := c.Generate(context.Background(), Request{Prompt: "Explain closures in Go"})

	assert.Same(t, ErrNotConfigured, err)
	assert.Equal(t, apperr.KindServiceUnavailable, apperr.KindOf(err))
	assert.False(t, c.Info().Available)
}

func TestGenerateSuccess(t *testing.T) {
	var got openai.ChatCompletionRequest
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		reply(w, "# Closures\nA closure captures variables.")
	}, time.Second)

	res, err := c.Generate(context.Background(), Request{Prompt: "Explain closures in Go", Category: "Technology"})

	require.NoError(t, err)
	assert.Equal(t, "# Closures\nA closure captures variables.", res.Text)
	assert.Equal(t, "gpt-3.5-turbo", res.Model)
	assert.GreaterOrEqual(t, res.LatencyMs, int64(0))

	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, systemInstruction, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "Category: Technology")
	assert.Equal(t, 2000, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues(outcomeSuccess)))
}

func TestGenerateEmpty(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, "   ")
	}, time.Second)

	_, err := c.Generate(context.Background(), Request{Prompt: "Explain closures in Go"})

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ReasonEmpty, cerr.Reason)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Equal(t, "AI service returned empty response", cerr.PublicMessage())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues(string(ReasonEmpty))))
}

func TestGenerateQuota(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}, time.Second)

	_, err := c.Generate(context.Background(), Request{Prompt: "Explain closures in Go"})

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ReasonQuota, cerr.Reason)
	assert.Equal(t, "AI service quota exceeded. Please try again later.", cerr.PublicMessage())
	assert.Equal(t, 1, calls)
}

func TestGenerateUpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"The server had an error","type":"server_error"}}`))
	}, time.Second)

	_, err := c.Generate(context.Background(), Request{Prompt: "Explain closures in Go"})

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ReasonUpstream, cerr.Reason)
	assert.Equal(t, "AI service is temporarily unavailable", cerr.PublicMessage())
}

func TestGenerateTimeout(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, 50*time.Millisecond)

	_, err := c.Generate(context.Background(), Request{Prompt: "Explain closures in Go"})

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ReasonTimeout, cerr.Reason)
	assert.Less(t, cerr.LatencyMs, int64(2000))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Reason
	}{
		{"deadline", context.DeadlineExceeded, ReasonTimeout},
		{"rate limit code", &openai.APIError{Code: "rate_limit_exceeded", HTTPStatusCode: 400}, ReasonQuota},
		{"bad request", &openai.APIError{Message: "invalid model", HTTPStatusCode: 400}, ReasonUpstream},
		{"raw 429", &openai.RequestError{HTTPStatusCode: 429, Err: errors.New("slow down")}, ReasonQuota},
		{"raw 502", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, ReasonUpstream},
		{"refused", errors.New("dial tcp: connection refused"), ReasonTransport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.err))
		})
	}
}

func TestBuildPromptOrder(t *testing.T) {
	p := BuildPrompt(Request{
		Prompt:      "Teach me recursion",
		Category:    "Technology",
		SubCategory: "Programming",
		UserContext: "User: Ada",
	})

	lines := strings.Split(p, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, lessonIntro, lines[0])
	assert.Equal(t, "Category: Technology", lines[1])
	assert.Equal(t, "Subcategory: Programming", lines[2])
	assert.Equal(t, "Learning Context: User: Ada", lines[3])
	assert.Equal(t, "User Request: Teach me recursion", lines[4])
	assert.True(t, strings.HasSuffix(p, lessonClosing))
}

func TestBuildPromptOmitsEmptyParts(t *testing.T) {
	p := BuildPrompt(Request{Prompt: "Teach me recursion"})

	assert.NotContains(t, p, "Category:")
	assert.NotContains(t, p, "Subcategory:")
	assert.NotContains(t, p, "Learning Context:")
	assert.Equal(t, "User Request: Teach me recursion", strings.Split(p, "\n")[1])
}
