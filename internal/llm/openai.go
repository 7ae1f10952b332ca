package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"prediagnosis/internal/core"
	"prediagnosis/pkg"
)

// chatAPI is the slice of the OpenAI client the collaborators need; tests
// substitute a stub.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client implements every interview collaborator on top of the OpenAI
// chat-completion API. One instance is shared by all sessions; it holds no
// per-session state.
type Client struct {
	api         chatAPI
	model       string
	temperature float32
	log         *zap.Logger
}

// NewClient constructs an OpenAI-backed collaborator client. An empty model
// falls back to a small default.
func NewClient(apiKey, model string, log *zap.Logger) *Client {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		api:         openai.NewClient(apiKey),
		model:       model,
		temperature: 0.2,
		log:         log,
	}
}

// Assess implements core.CompletionAssessor.
func (c *Client) Assess(ctx context.Context, tail []pkg.ConversationTurn, phase pkg.Phase, pending []core.Task) (core.Assessment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Interview phase: %s\n\nPending tasks:\n", phase)
	for i, t := range pending {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, t.Name, t.Description)
	}
	b.WriteString("\nLatest exchange:\n")
	b.WriteString(formatTranscript(tail))

	var out core.Assessment
	if err := c.complete(ctx, assessorPrompt, b.String(), &out); err != nil {
		return core.Assessment{}, err
	}
	if out.TaskName == "" {
		return core.Assessment{}, errors.New("assessor returned no task name")
	}
	return out, nil
}

// Update implements core.SummaryUpdater.
func (c *Client) Update(ctx context.Context, transcript []pkg.ConversationTurn, prior pkg.ClinicalSummary) (pkg.ClinicalSummary, error) {
	var b strings.Builder
	b.WriteString("Previous summary:\n")
	fmt.Fprintf(&b, "Chief complaint: %s\nPresent illness: %s\nPast history: %s\n",
		orNone(prior.ChiefComplaint), orNone(prior.PresentIllness), orNone(prior.PastHistory))
	b.WriteString("\nFull transcript:\n")
	b.WriteString(formatTranscript(transcript))

	var out pkg.ClinicalSummary
	if err := c.complete(ctx, summaryPrompt, b.String(), &out); err != nil {
		return pkg.ClinicalSummary{}, err
	}
	return out, nil
}

// Generate implements core.QuestionGenerator.
func (c *Client) Generate(ctx context.Context, task core.Task, guidance string, summary pkg.ClinicalSummary) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Current objective: %s - %s\n", task.Name, task.Description)
	if guidance != "" {
		fmt.Fprintf(&b, "\nInquiry guidance:\n%s\n", guidance)
	}
	b.WriteString("\nKnown so far:\n")
	fmt.Fprintf(&b, "Chief complaint: %s\nPresent illness: %s\nPast history: %s\n",
		orNone(summary.ChiefComplaint), orNone(summary.PresentIllness), orNone(summary.PastHistory))

	var out struct {
		Question string `json:"question"`
	}
	if err := c.complete(ctx, questionPrompt, b.String(), &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Question) == "" {
		return "", errors.New("question generator returned empty question")
	}
	return out.Question, nil
}

// Guidance implements core.GuidanceGenerator.
func (c *Client) Guidance(ctx context.Context, task core.Task, summary pkg.ClinicalSummary) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Current objective: %s - %s\n\nKnown so far:\n", task.Name, task.Description)
	fmt.Fprintf(&b, "Chief complaint: %s\nPresent illness: %s\nPast history: %s\n",
		orNone(summary.ChiefComplaint), orNone(summary.PresentIllness), orNone(summary.PastHistory))

	var out struct {
		Guidance string `json:"guidance"`
	}
	if err := c.complete(ctx, guidancePrompt, b.String(), &out); err != nil {
		return "", err
	}
	return out.Guidance, nil
}

// Triage implements core.Triager.
func (c *Client) Triage(ctx context.Context, transcript []pkg.ConversationTurn, summary pkg.ClinicalSummary) (pkg.TriageResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Clinical summary:\nChief complaint: %s\nPresent illness: %s\nPast history: %s\n",
		orNone(summary.ChiefComplaint), orNone(summary.PresentIllness), orNone(summary.PastHistory))
	b.WriteString("\nTranscript:\n")
	b.WriteString(formatTranscript(transcript))

	var out pkg.TriageResult
	if err := c.complete(ctx, triagePrompt, b.String(), &out); err != nil {
		return pkg.TriageResult{}, err
	}
	if out.PrimaryDept == "" {
		return pkg.TriageResult{}, errors.New("triager returned no primary department")
	}
	return out, nil
}

// PatientReply answers a question as the simulated patient described by the
// case record.
func (c *Client) PatientReply(ctx context.Context, question string, firstTurn bool, patientCase pkg.PatientCase) (string, error) {
	var b strings.Builder
	b.WriteString("Case record:\n")
	fmt.Fprintf(&b, "Basic info: %s\nChief complaint: %s\nPresent illness: %s\nPast history: %s\n",
		orNone(patientCase.BasicInfo), orNone(patientCase.ChiefComplaint),
		orNone(patientCase.PresentIllness), orNone(patientCase.PastHistory))
	if firstTurn {
		b.WriteString("\nThis is the opening question of the visit; describe the main complaint briefly.\n")
	}
	fmt.Fprintf(&b, "\nClinician's question: %s\n", question)

	var out struct {
		Reply string `json:"reply"`
	}
	if err := c.complete(ctx, patientPrompt, b.String(), &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Reply) == "" {
		return "", errors.New("patient simulator returned empty reply")
	}
	return out.Reply, nil
}

// CasePatient binds a case record to the client so it can stand in as a
// simulated patient answering questions one at a time.
type CasePatient struct {
	client      *Client
	patientCase pkg.PatientCase
}

// Patient returns a simulated patient for the case.
func (c *Client) Patient(patientCase pkg.PatientCase) *CasePatient {
	return &CasePatient{client: c, patientCase: patientCase}
}

// Reply answers the next interview question from the bound case record.
func (p *CasePatient) Reply(ctx context.Context, question string, firstTurn bool) (string, error) {
	return p.client.PatientReply(ctx, question, firstTurn, p.patientCase)
}

// complete runs one chat completion and decodes the JSON body of the reply
// into out.
func (c *Client) complete(ctx context.Context, system, user string, out any) error {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return errors.New("chat completion returned no choices")
	}
	content := resp.Choices[0].Message.Content
	body := extractJSON(content)
	if body == "" {
		return fmt.Errorf("no JSON object in completion: %.80q", content)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	return nil
}

// extractJSON pulls the outermost JSON object out of a completion, tolerating
// markdown code fences and surrounding prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func formatTranscript(turns []pkg.ConversationTurn) string {
	if len(turns) == 0 {
		return "(no conversation yet)"
	}
	var b strings.Builder
	for _, t := range turns {
		speaker := "Patient"
		if t.Role == pkg.RoleSystem {
			speaker = "Doctor"
		}
		fmt.Fprintf(&b, "[%d] %s: %s\n", t.TurnID, speaker, t.Text)
	}
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none yet)"
	}
	return s
}
