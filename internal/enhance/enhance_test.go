// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/policy-feed/pkg/types"
)

type funcEnhancer func(ctx context.Context, title, content string) (Enhancement, error)

func (f funcEnhancer) Enhance(ctx context.Context, title, content string) (Enhancement, error) {
	return f(ctx, title, content)
}

func baseRecord() types.CanonicalRecord {
	return types.CanonicalRecord{
		Title:      "청년 월세 지원",
		Content:    "무주택 청년에게 월세를 지원합니다.",
		Summary:    "local summary",
		Keywords:   []string{"local"},
		SourceType: types.SourceYouth,
	}
}

// --- Safe ---

func TestSafe_AppliesEnhancement(t *testing.T) {
	s := NewSafe(funcEnhancer(func(context.Context, string, string) (Enhancement, error) {
		return Enhancement{
			Summary:           "AI summary",
			Keywords:          []string{"월세", " ", "청년", "월세"},
			Category:          "housing",
			Target:            "만 19~34세 무주택 청년",
			ApplicationMethod: "복지로 온라인 신청",
		}, nil
	}), time.Second, nil)

	rec := baseRecord()
	assert.True(t, s.Apply(context.Background(), &rec))
	assert.Equal(t, "AI summary", rec.Summary)
	assert.Equal(t, []string{"월세", "청년"}, rec.Keywords)
	assert.Equal(t, "만 19~34세 무주택 청년", rec.OriginalData[KeyTarget])
	assert.Equal(t, "복지로 온라인 신청", rec.OriginalData[KeyApplicationMethod])
	assert.Equal(t, "housing", rec.OriginalData[KeySuggestedCategory])
	assert.Empty(t, rec.Category, "classifier stays authoritative")
}

func TestSafe_EmptyFieldsKeepLocalValues(t *testing.T) {
	s := NewSafe(funcEnhancer(func(context.Context, string, string) (Enhancement, error) {
		return Enhancement{Summary: "  "}, nil
	}), time.Second, nil)

	rec := baseRecord()
	assert.False(t, s.Apply(context.Background(), &rec))
	assert.Equal(t, "local summary", rec.Summary)
	assert.Equal(t, []string{"local"}, rec.Keywords)
}

func TestSafe_SwallowsFailures(t *testing.T) {
	tests := []struct {
		name string
		fn   funcEnhancer
	}{
		{"error", func(context.Context, string, string) (Enhancement, error) {
			return Enhancement{}, errors.New("malformed response")
		}},
		{"panic", func(context.Context, string, string) (Enhancement, error) {
			panic("boom")
		}},
		{"timeout", func(ctx context.Context, _, _ string) (Enhancement, error) {
			<-ctx.Done()
			return Enhancement{Summary: "late"}, ctx.Err()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSafe(tt.fn, 10*time.Millisecond, nil)
			rec := baseRecord()
			assert.False(t, s.Apply(context.Background(), &rec))
			assert.Equal(t, baseRecord(), rec)
		})
	}
}

func TestSafe_NilInnerIsNoop(t *testing.T) {
	rec := baseRecord()
	assert.False(t, NewSafe(nil, 0, nil).Apply(context.Background(), &rec))

	var s *Safe
	assert.False(t, s.Apply(context.Background(), &rec))
}

// --- ClaudeEnhancer ---

func withClaudeServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	old := claudeAPIURL
	claudeAPIURL = ts.URL
	t.Cleanup(func() { claudeAPIURL = old })
}

func TestClaudeEnhancer_ParsesFencedJSON(t *testing.T) {
	withClaudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Contains(t, req.Messages[0].Content, "청년 월세 지원")

		json.NewEncoder(w).Encode(claudeResponse{Content: []claudeContent{{
			Type: "text",
			Text: "```json\n{\"summary\":\"요약\",\"keywords\":[\"월세\"],\"category\":\"housing\",\"target\":\"청년\",\"applicationMethod\":\"온라인\"}\n```",
		}}})
	})

	e, err := (&ClaudeEnhancer{APIKey: "test-key", Model: "test-model"}).Enhance(context.Background(), "청년 월세 지원", "내용")
	require.NoError(t, err)
	assert.Equal(t, Enhancement{Summary: "요약", Keywords: []string{"월세"}, Category: "housing", Target: "청년", ApplicationMethod: "온라인"}, e)
}

func TestClaudeEnhancer_Errors(t *testing.T) {
	_, err := (&ClaudeEnhancer{}).Enhance(context.Background(), "t", "c")
	assert.Error(t, err, "missing key")

	withClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate_limited"}`))
	})
	_, err = (&ClaudeEnhancer{APIKey: "k"}).Enhance(context.Background(), "t", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClaudeEnhancer_MalformedAnswer(t *testing.T) {
	withClaudeServer(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(claudeResponse{Content: []claudeContent{{Type: "text", Text: "not json"}}})
	})
	_, err := (&ClaudeEnhancer{APIKey: "k"}).Enhance(context.Background(), "t", "c")
	assert.Error(t, err)
}
