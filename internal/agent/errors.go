package agent

import (
	"errors"
	"fmt"

	"github.com/raphaelgruber/docforge/internal/conversation"
	"github.com/raphaelgruber/docforge/internal/extract"
)

// Kind classifies every failure an agent or the orchestrator can return.
type Kind int

const (
	KindUnknown Kind = iota
	KindReadinessGateFailed
	KindEmptyConversation
	KindNoValidStructuredOutput
	KindSchemaViolation
	KindModelCallFailed
	KindEmptyInstruction
	KindNoHistory
	KindDuplicateAgentName
	KindAgentNotFound
	KindAgentBusy
)

var kindNames = map[Kind]string{
	KindUnknown:                 "Unknown",
	KindReadinessGateFailed:     "ReadinessGateFailed",
	KindEmptyConversation:       "EmptyConversation",
	KindNoValidStructuredOutput: "NoValidStructuredOutput",
	KindSchemaViolation:         "SchemaViolation",
	KindModelCallFailed:         "ModelCallFailed",
	KindEmptyInstruction:        "EmptyInstruction",
	KindNoHistory:               "NoHistory",
	KindDuplicateAgentName:      "DuplicateAgentName",
	KindAgentNotFound:           "AgentNotFound",
	KindAgentBusy:               "AgentBusy",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsUsage reports whether the kind is a caller error (bad input or
// incomplete project) rather than a model or transport failure.
func (k Kind) IsUsage() bool {
	switch k {
	case KindReadinessGateFailed, KindEmptyConversation, KindEmptyInstruction, KindNoHistory,
		KindDuplicateAgentName, KindAgentNotFound, KindAgentBusy:
		return true
	}
	return false
}

// Sentinel errors. Extraction and conversation failures keep the sentinels of
// their own packages.
var (
	ErrReadinessGate      = errors.New("project context is not ready")
	ErrModelCall          = errors.New("model call failed")
	ErrEmptyInstruction   = errors.New("edit instruction is empty")
	ErrNoHistory          = errors.New("agent has no conversation history")
	ErrDuplicateAgentName = errors.New("agent name already registered")
	ErrAgentNotFound      = errors.New("agent not found")
	ErrAgentBusy          = errors.New("agent is busy")
)

// Error is the boundary error of agent and orchestrator operations.
type Error struct {
	Kind  Kind
	Agent string
	Op    string
	// Raw is the model text that failed extraction, if any.
	Raw string
	Err error
}

func (e *Error) Error() string {
	if e.Agent == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Agent, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with its kind. A nil err yields nil.
func NewError(op, agentName string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	raw, _ := extract.RawText(err)
	return &Error{Kind: classify(err), Agent: agentName, Op: op, Raw: raw, Err: err}
}

// KindOf returns the kind of any error produced by this package or the
// packages it calls. Nil maps to KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, ErrReadinessGate):
		return KindReadinessGateFailed
	case errors.Is(err, conversation.ErrEmptyConversation):
		return KindEmptyConversation
	case errors.Is(err, extract.ErrSchemaViolation):
		return KindSchemaViolation
	case errors.Is(err, extract.ErrNoValidStructuredOutput):
		return KindNoValidStructuredOutput
	case errors.Is(err, ErrEmptyInstruction):
		return KindEmptyInstruction
	case errors.Is(err, ErrNoHistory):
		return KindNoHistory
	case errors.Is(err, ErrDuplicateAgentName):
		return KindDuplicateAgentName
	case errors.Is(err, ErrAgentNotFound):
		return KindAgentNotFound
	case errors.Is(err, ErrAgentBusy):
		return KindAgentBusy
	case errors.Is(err, ErrModelCall):
		return KindModelCallFailed
	}
	return KindUnknown
}
