package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"

	"wfengine/internal/taskcontext"
)

type fakeLLM struct {
	content string
	err     error
}

func (f *fakeLLM) Chat(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func (f *fakeLLM) SimpleTextQuery(ctx context.Context, systemPrompt, userInput string) (string, error) {
	return f.content, f.err
}

func TestReviewerNodeAutoApprovesHighScore(t *testing.T) {
	tc := taskcontext.New()
	if err := tc.UpdateNode("diff", "--- a/x.go\n+++ b/x.go\n"); err != nil {
		t.Fatal(err)
	}

	node := &ReviewerNode{
		LLM:               &fakeLLM{content: `{"summary":"looks fine","score":95,"comments":[]}`},
		ApprovalThreshold: 80,
	}

	out, err := node.Process(context.Background(), tc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	decision, ok := out.RouterDecision()
	if !ok || decision != "auto_approve" {
		t.Errorf("expected auto_approve decision, got %q (ok=%v)", decision, ok)
	}

	result, ok, err := taskcontext.GetNodeData[ReviewResult](out, "review")
	if err != nil || !ok {
		t.Fatalf("expected review node data, ok=%v err=%v", ok, err)
	}
	if result.Score != 95 {
		t.Errorf("expected score 95, got %d", result.Score)
	}
}

func TestReviewerNodeRequestsChangesOnLowScore(t *testing.T) {
	tc := taskcontext.New()
	if err := tc.UpdateNode("diff", "diff content"); err != nil {
		t.Fatal(err)
	}

	node := &ReviewerNode{
		LLM:               &fakeLLM{content: `{"summary":"needs work","score":40,"comments":[{"path":"x.go","line":1,"message":"fix this","severity":"WARNING"}]}`},
		ApprovalThreshold: 80,
	}

	out, err := node.Process(context.Background(), tc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	decision, _ := out.RouterDecision()
	if decision != "request_changes" {
		t.Errorf("expected request_changes decision, got %q", decision)
	}
}

func TestReviewerNodeRejectsMissingDiff(t *testing.T) {
	tc := taskcontext.New()
	node := &ReviewerNode{LLM: &fakeLLM{content: "{}"}, ApprovalThreshold: 50}

	if _, err := node.Process(context.Background(), tc); err == nil {
		t.Fatal("expected error for missing diff")
	}
}

func TestReviewerNodeFailsOnLLMErrorWithoutFallback(t *testing.T) {
	tc := taskcontext.New()
	if err := tc.UpdateNode("diff", "diff content"); err != nil {
		t.Fatal(err)
	}

	node := &ReviewerNode{LLM: &fakeLLM{err: errors.New("api unavailable")}, ApprovalThreshold: 80}

	if _, err := node.Process(context.Background(), tc); err == nil {
		t.Fatal("expected error when the LLM call fails and fallback is disabled")
	}
}

func TestReviewerNodeDegradesToManualReviewOnFallback(t *testing.T) {
	tc := taskcontext.New()
	if err := tc.UpdateNode("diff", "diff content"); err != nil {
		t.Fatal(err)
	}

	node := &ReviewerNode{
		LLM:                &fakeLLM{err: errors.New("api unavailable")},
		ApprovalThreshold:  80,
		FallbackOnLLMError: true,
	}

	out, err := node.Process(context.Background(), tc)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	decision, ok := out.RouterDecision()
	if !ok || decision != "request_changes" {
		t.Errorf("expected request_changes decision on degraded path, got %q (ok=%v)", decision, ok)
	}

	result, ok, err := taskcontext.GetNodeData[ReviewResult](out, "review")
	if err != nil || !ok {
		t.Fatalf("expected review node data, ok=%v err=%v", ok, err)
	}
	if result.Score != 0 {
		t.Errorf("expected degraded score 0, got %d", result.Score)
	}
}
