package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func TestParseFeedbackResponseClampsScore(t *testing.T) {
	draft, err := parseFeedbackResponse(`{"score": 140, "feedback": "  solid work "}`, 100)
	require.NoError(t, err)
	require.Equal(t, 100.0, draft.Score)
	require.Equal(t, "solid work", draft.Feedback)

	draft, err = parseFeedbackResponse(`{"score": -3, "feedback": "x"}`, 10)
	require.NoError(t, err)
	require.Equal(t, 0.0, draft.Score)

	_, err = parseFeedbackResponse("not json", 10)
	require.Error(t, err)
}

func TestBuildUserPromptIncludesAttachments(t *testing.T) {
	prompt := buildUserPrompt(FeedbackInput{
		AssignmentTitle: "Essay",
		MaxScore:        50,
		SubmissionText:  "my essay",
		Links:           []string{"https://example.com/repo"},
		FileNames:       []string{"essay.pdf"},
	})

	require.Contains(t, prompt, "# Assignment\nEssay")
	require.Contains(t, prompt, "## Maximum Score\n50")
	require.Contains(t, prompt, "- https://example.com/repo")
	require.Contains(t, prompt, "- essay.pdf")
	require.NotContains(t, prompt, "Previous Feedback")
}

func TestNewOpenAIDrafterRequiresKey(t *testing.T) {
	_, err := NewOpenAIDrafter(OpenAIConfig{})
	require.Error(t, err)
}

func TestOpenAIDrafterDraftFeedback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: `{"score": 42, "feedback": "Clear argument."}`,
				},
			}},
			Usage: openai.Usage{TotalTokens: 12},
		})
	}))
	defer server.Close()

	drafter, err := NewOpenAIDrafter(OpenAIConfig{
		APIKey:  "test",
		BaseURL: server.URL + "/v1",
		Model:   "test-model",
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	require.Equal(t, "openai", drafter.Provider())
	require.Equal(t, "test-model", drafter.Model())

	draft, err := drafter.DraftFeedback(context.Background(), FeedbackInput{AssignmentTitle: "Essay", MaxScore: 50})
	require.NoError(t, err)
	require.Equal(t, 42.0, draft.Score)
	require.Equal(t, "Clear argument.", draft.Feedback)
}
