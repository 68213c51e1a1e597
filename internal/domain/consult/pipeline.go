package consult

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medlink/medlink/internal/platform/genai"
)

// Config carries the generation knobs for each stage.
type Config struct {
	MaxOutputTokens int
	TempConsultant  float32
	TempGenerator   float32
	TempCleaner     float32
}

// DefaultConfig matches the tuning the stages were written against.
func DefaultConfig() Config {
	return Config{
		MaxOutputTokens: 2048,
		TempConsultant:  0.3,
		TempGenerator:   0.2,
		TempCleaner:     0.1,
	}
}

// Pipeline runs the three-stage consultation state machine: the consultant
// answers medical questions, and when the patient asks for a report the
// generator and cleaner stages produce the structured document.
type Pipeline struct {
	client genai.Client
	cfg    Config
	log    zerolog.Logger
}

func NewPipeline(client genai.Client, cfg Config, log zerolog.Logger) *Pipeline {
	if cfg.MaxOutputTokens <= 0 {
		cfg = DefaultConfig()
	}
	return &Pipeline{client: client, cfg: cfg, log: log}
}

// maxStageRuns bounds the state machine: the longest legal path is
// consultant -> generator -> cleaner -> consultant (exit).
const maxStageRuns = 4

// Run drives the state machine until a final response is produced. It always
// returns a user-facing string; generation failures degrade to a fixed
// fallback rather than an error.
func (p *Pipeline) Run(ctx context.Context, messages []Message, patientContext string) string {
	st := &State{
		Messages:       messages,
		PatientContext: patientContext,
		Stage:          StageConsultant,
	}

	for i := 0; i < maxStageRuns; i++ {
		switch st.Stage {
		case StageConsultant:
			p.runConsultant(ctx, st)
		case StageReportGenerator:
			p.runGenerator(ctx, st)
		case StageReportCleaner:
			p.runCleaner(ctx, st)
		}

		if st.FinalResponse != "" && st.Stage == StageConsultant {
			return st.FinalResponse
		}
	}

	// Stage budget exhausted without reaching a terminal state.
	p.log.Error().Str("stage", st.Stage.String()).Msg("consult pipeline exceeded stage budget")
	return generationFallback
}

// wantsReport is the report trigger heuristic applied to the latest user
// message.
func wantsReport(msg string) bool {
	m := strings.ToLower(msg)
	if !strings.Contains(m, "report") {
		return false
	}
	return strings.Contains(m, "doctor") ||
		strings.Contains(m, "send") ||
		strings.Contains(m, "create report") ||
		strings.Contains(m, "generate report")
}

func (p *Pipeline) runConsultant(ctx context.Context, st *State) {
	// Already committed to a report: hand straight to the generator.
	if st.RequestReport {
		st.Stage = StageReportGenerator
		return
	}

	if wantsReport(st.lastUserMessage()) {
		st.RequestReport = true
		st.Stage = StageReportGenerator
		return
	}

	reply, err := p.generate(ctx, consultantPrompt(st), p.cfg.TempConsultant)
	if err != nil {
		p.log.Error().Err(err).Msg("consultant generation failed")
		st.FinalResponse = generationFallback
		return
	}

	st.FinalResponse = reply
}

func (p *Pipeline) runGenerator(ctx context.Context, st *State) {
	report, err := p.generate(ctx, generatorPrompt(st), p.cfg.TempGenerator)
	if err != nil {
		p.log.Error().Err(err).Msg("report generation failed")
		st.FinalResponse = generationFallback
		st.Stage = StageConsultant
		return
	}

	st.GeneratedReport = report
	st.Stage = StageReportCleaner
}

func (p *Pipeline) runCleaner(ctx context.Context, st *State) {
	st.Stage = StageConsultant

	if st.GeneratedReport == "" {
		st.FinalResponse = missingReportApology
		return
	}

	cleaned, err := p.generate(ctx, cleanerPromptFor(st.GeneratedReport), p.cfg.TempCleaner)
	if err != nil {
		p.log.Error().Err(err).Msg("report cleaning failed")
		st.FinalResponse = generationFallback
		return
	}

	st.FinalResponse = fmt.Sprintf(reportDeliveryTemplate, strings.TrimSpace(cleaned))
}

func (p *Pipeline) generate(ctx context.Context, prompt string, temp float32) (string, error) {
	return p.client.Generate(ctx, prompt, genai.Options{
		Temperature:     temp,
		MaxOutputTokens: p.cfg.MaxOutputTokens,
	})
}
