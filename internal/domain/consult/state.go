package consult

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the patient's AI conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Stage identifies the agent currently driving the pipeline.
type Stage int

const (
	StageConsultant Stage = iota
	StageReportGenerator
	StageReportCleaner
)

func (s Stage) String() string {
	switch s {
	case StageConsultant:
		return "consultant"
	case StageReportGenerator:
		return "report_generator"
	case StageReportCleaner:
		return "report_cleaner"
	default:
		return "unknown"
	}
}

// State is the per-invocation pipeline state. It is discarded after Run
// returns; the pipeline never touches the datastore.
type State struct {
	Messages        []Message
	PatientContext  string
	Stage           Stage
	RequestReport   bool
	GeneratedReport string
	FinalResponse   string
}

// lastUserMessage returns the content of the newest message. The chat service
// always appends the user's turn last before invoking the pipeline.
func (s *State) lastUserMessage() string {
	if len(s.Messages) == 0 {
		return ""
	}
	return s.Messages[len(s.Messages)-1].Content
}

// isFirstMessage reports whether this is the opening turn of a conversation.
func (s *State) isFirstMessage() bool {
	return len(s.Messages) == 1 && s.Messages[0].Role == RoleUser
}
