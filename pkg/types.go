package pkg

import "time"

// Phase is a stage of the pre-diagnosis interview. Phases are visited in
// order and never revisited; Done is terminal.
type Phase string

const (
	PhaseTriage         Phase = "triage"
	PhasePresentIllness Phase = "present_illness"
	PhasePastHistory    Phase = "past_history"
	PhaseDone           Phase = "done"
)

// TurnRole describes who authored a conversation turn. The system asks the
// questions; the patient answers.
type TurnRole string

const (
	RoleSystem  TurnRole = "system"
	RolePatient TurnRole = "patient"
)

// ConversationTurn is one utterance in a session transcript. Turns are
// append-only and numbered monotonically per session; TurnID doubles as the
// log correlation key.
type ConversationTurn struct {
	TurnID    int       `json:"turn_id"`
	Role      TurnRole  `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ClinicalSummary is the evolving extract of the interview so far. Each field
// is replaced wholesale after every turn by the summary updater.
type ClinicalSummary struct {
	ChiefComplaint string `json:"chief_complaint"`
	PresentIllness string `json:"present_illness"`
	PastHistory    string `json:"past_history"`
}

// TriageResult is the department classification produced once the triage
// phase completes. The candidate fields record the closest competing
// departments and feed comparison guidance; they may be empty.
type TriageResult struct {
	Reasoning          string `json:"triage_reasoning"`
	PrimaryDept        string `json:"primary_department"`
	SecondaryDept      string `json:"secondary_department"`
	CandidatePrimary   string `json:"candidate_primary_department,omitempty"`
	CandidateSecondary string `json:"candidate_secondary_department,omitempty"`
}

// TerminationReason distinguishes how a session ended. Budget exhaustion is a
// normal termination, not an error.
type TerminationReason string

const (
	TerminationNone            TerminationReason = ""
	TerminationCompleted       TerminationReason = "completed"
	TerminationBudgetExhausted TerminationReason = "budget_exhausted"
	TerminationSessionFault    TerminationReason = "session_fault"
)

// DialogueRecord is one persisted request/response pair, keyed by
// (session_id, turn_id).
type DialogueRecord struct {
	SessionID      string    `json:"session_id"`
	TurnID         int       `json:"turn_id"`
	PatientContent string    `json:"patient_content"`
	DoctorContent  string    `json:"doctor_content"`
	CreatedAt      time.Time `json:"created_at"`
}

// RespondRequest is the body of POST /dialogue/respond.
type RespondRequest struct {
	SessionID      string `json:"session_id"`
	PatientContent string `json:"patient_content"`
}

// RespondResponse carries the next system question (or the closing message)
// back to the caller.
type RespondResponse struct {
	SessionID     string `json:"session_id"`
	DoctorContent string `json:"doctor_content"`
	IsEnd         bool   `json:"is_end"`
}

// SessionStatus is the read-only view of a session exposed to the host.
type SessionStatus struct {
	SessionID  string                       `json:"session_id"`
	Phase      Phase                        `json:"phase"`
	Step       int                          `json:"step"`
	Terminated bool                         `json:"terminated"`
	Reason     TerminationReason            `json:"termination_reason,omitempty"`
	Scores     map[Phase]map[string]float64 `json:"scores"`
	Summary    ClinicalSummary              `json:"summary"`
	Triage     *TriageResult                `json:"triage,omitempty"`
}

// PatientCase is one simulated-patient case from a research dataset. The
// reference fields bound what the virtual patient is allowed to reveal.
type PatientCase struct {
	CaseID         string `json:"case_id"`
	BasicInfo      string `json:"basic_info"`
	ChiefComplaint string `json:"chief_complaint"`
	PresentIllness string `json:"present_illness"`
	PastHistory    string `json:"past_history"`
	Department     string `json:"department,omitempty"`
}
