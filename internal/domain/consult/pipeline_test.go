package consult

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medlink/medlink/internal/platform/genai"
)

// fakeClient answers each generation call with a canned response keyed by a
// substring of the prompt, and records every call it sees.
type fakeClient struct {
	responses map[string]string
	err       error
	calls     []genai.Options
	prompts   []string
}

func (f *fakeClient) Generate(_ context.Context, prompt string, opts genai.Options) (string, error) {
	f.calls = append(f.calls, opts)
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	for key, resp := range f.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return "generic answer", nil
}

func newTestPipeline(client genai.Client) *Pipeline {
	return NewPipeline(client, DefaultConfig(), zerolog.Nop())
}

func TestWantsReport(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"Can you send a report to my doctor?", true},
		{"Please create report for me", true},
		{"generate report now", true},
		{"send the report please", true},
		{"REPORT this to my DOCTOR", true},
		{"I have a headache", false},
		{"my doctor said to rest", false},
		{"what does the lab report mean", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := wantsReport(tc.msg); got != tc.want {
			t.Errorf("wantsReport(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestRun_ConsultantReply(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"FIRST MESSAGE": "## Assessment\n\nLikely tension headache.",
	}}
	p := newTestPipeline(client)

	got := p.Run(context.Background(), []Message{
		{Role: RoleUser, Content: "I have a headache"},
	}, "")

	if got != "## Assessment\n\nLikely tension headache." {
		t.Errorf("unexpected reply: %q", got)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(client.calls))
	}
	if client.calls[0].Temperature != 0.3 {
		t.Errorf("consultant temperature = %v, want 0.3", client.calls[0].Temperature)
	}
	if client.calls[0].MaxOutputTokens != 2048 {
		t.Errorf("max tokens = %d, want 2048", client.calls[0].MaxOutputTokens)
	}
	if !strings.Contains(client.prompts[0], "IMPORTANT: Only if the user has shared medical symptoms") {
		t.Error("consultant prompt missing the report-offer guardrail")
	}
}

func TestRun_FollowUpIncludesHistory(t *testing.T) {
	client := &fakeClient{responses: map[string]string{}}
	p := newTestPipeline(client)

	p.Run(context.Background(), []Message{
		{Role: RoleUser, Content: "I have a headache"},
		{Role: RoleAssistant, Content: "How long has it lasted?"},
		{Role: RoleUser, Content: "About three days"},
	}, "age 34")

	if len(client.prompts) != 1 {
		t.Fatalf("expected 1 call, got %d", len(client.prompts))
	}
	prompt := client.prompts[0]
	if !strings.Contains(prompt, "CONVERSATION HISTORY") {
		t.Error("follow-up prompt missing conversation history section")
	}
	if !strings.Contains(prompt, "User: I have a headache") {
		t.Error("history missing prior user turn")
	}
	if !strings.Contains(prompt, "Assistant: How long has it lasted?") {
		t.Error("history missing prior assistant turn")
	}
	if !strings.Contains(prompt, "USER'S LATEST MESSAGE: About three days") {
		t.Error("prompt missing latest message")
	}
	if !strings.Contains(prompt, "age 34") {
		t.Error("prompt missing patient context")
	}
}

func TestRun_ReportFlow(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"CONVERSATION HISTORY": "## Medical Report\n\n### Chief Complaint\nHeadache. Would you like anything else?",
		"MEDICAL REPORT TO CLEAN": "## Medical Report\n\n### Chief Complaint\nHeadache.",
	}}
	p := newTestPipeline(client)

	got := p.Run(context.Background(), []Message{
		{Role: RoleUser, Content: "I have a headache"},
		{Role: RoleAssistant, Content: "Tell me more"},
		{Role: RoleUser, Content: "please send a report to my doctor"},
	}, "")

	if !strings.Contains(got, "## Medical Report") {
		t.Errorf("final response missing report body: %q", got)
	}
	if !strings.HasPrefix(got, "I've prepared a medical report based on our conversation:") {
		t.Errorf("final response missing delivery wrapper: %q", got)
	}
	if !strings.Contains(got, `"Send to Doctor"`) {
		t.Errorf("final response missing send instruction: %q", got)
	}

	// Trigger skips the consultant generation: generator + cleaner only.
	if len(client.calls) != 2 {
		t.Fatalf("expected 2 generation calls, got %d", len(client.calls))
	}
	if client.calls[0].Temperature != 0.2 {
		t.Errorf("generator temperature = %v, want 0.2", client.calls[0].Temperature)
	}
	if client.calls[1].Temperature != 0.1 {
		t.Errorf("cleaner temperature = %v, want 0.1", client.calls[1].Temperature)
	}
}

func TestRun_CleanedBodyHasNoWrapperPhrase(t *testing.T) {
	client := &fakeClient{responses: map[string]string{
		"CONVERSATION HISTORY":    "report text",
		"MEDICAL REPORT TO CLEAN": "## Medical Report\n\nClean body.",
	}}
	p := newTestPipeline(client)

	got := p.Run(context.Background(), []Message{
		{Role: RoleUser, Content: "create report and send to doctor"},
	}, "")

	body := strings.TrimPrefix(got, "I've prepared a medical report based on our conversation:")
	if strings.Contains(body, "I've prepared") {
		t.Errorf("cleaned body still contains wrapper phrase: %q", body)
	}
}

func TestRun_GenerationFailureFallsBack(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("upstream unavailable")}
	p := newTestPipeline(client)

	got := p.Run(context.Background(), []Message{
		{Role: RoleUser, Content: "I feel dizzy"},
	}, "")

	if got != generationFallback {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestRun_ReportGenerationFailureFallsBack(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("upstream unavailable")}
	p := newTestPipeline(client)

	got := p.Run(context.Background(), []Message{
		{Role: RoleUser, Content: "send a report to my doctor"},
	}, "")

	if got != generationFallback {
		t.Errorf("got %q, want fallback", got)
	}
}

func TestRunCleaner_MissingReportApology(t *testing.T) {
	client := &fakeClient{}
	p := newTestPipeline(client)

	st := &State{Stage: StageReportCleaner}
	p.runCleaner(context.Background(), st)

	if st.FinalResponse != missingReportApology {
		t.Errorf("got %q, want apology", st.FinalResponse)
	}
	if st.Stage != StageConsultant {
		t.Errorf("stage = %v, want consultant", st.Stage)
	}
	if len(client.calls) != 0 {
		t.Errorf("cleaner called the model with no report to clean")
	}
}

func TestRun_AlwaysTerminates(t *testing.T) {
	// A client that never errors but also never matches a terminal pattern
	// still cannot loop: the stage budget bounds the run.
	client := &fakeClient{responses: map[string]string{}}
	p := newTestPipeline(client)

	got := p.Run(context.Background(), []Message{
		{Role: RoleUser, Content: "hello"},
	}, "")
	if got == "" {
		t.Error("pipeline returned empty response")
	}
	if len(client.calls) > maxStageRuns {
		t.Errorf("stage budget exceeded: %d calls", len(client.calls))
	}
}
