package ipc

import "github.com/nstehr/skirmish/model"

// Message types. Requests are hello, decide and resolve; the rest are
// replies.
const (
	TypeHello      = "hello"
	TypeAck        = "ack"
	TypeDecide     = "decide"
	TypeDecision   = "decision"
	TypeResolve    = "resolve"
	TypeResolution = "resolution"
	TypeError      = "error"
)

type HelloMessage struct {
	Host     string `json:"host"`
	Strategy string `json:"strategy,omitempty"` // session default, overrides the configured one
}

type AckMessage struct {
	Status     string   `json:"status"`
	Strategies []string `json:"strategies,omitempty"`
	Encounters []string `json:"encounters,omitempty"`
}

// Situation is the combat state a request is asked about. When
// State.Grid is absent the catalog terrain named by Terrain is used.
type Situation struct {
	State   model.Snapshot `json:"state"`
	Terrain string         `json:"terrain,omitempty"`
}

// DecideMessage asks for a whole turn for Actor, or for the active
// combatant when Actor is empty.
type DecideMessage struct {
	RequestID string `json:"requestId,omitempty"`
	Situation
	Actor       string `json:"actor,omitempty"`
	Strategy    string `json:"strategy,omitempty"`
	TimeLimitMs int    `json:"timeLimitMs,omitempty"`
	MaxNodes    int    `json:"maxNodes,omitempty"`
}

// StepMessage is one turn segment: move along Path, then use Action.
type StepMessage struct {
	Pass        bool          `json:"pass,omitempty"`
	Destination model.Point   `json:"destination"`
	Path        []model.Point `json:"path,omitempty"`
	Mode        string        `json:"mode,omitempty"`
	Action      string        `json:"action,omitempty"`
	Targets     []string      `json:"targets,omitempty"`
	Point       *model.Point  `json:"point,omitempty"`
	Score       float64       `json:"score"`
	Depth       int           `json:"depth"`
	Nodes       int           `json:"nodes"`
}

type DecisionMessage struct {
	RequestID string        `json:"requestId,omitempty"`
	Actor     string        `json:"actor"`
	Strategy  string        `json:"strategy"`
	Steps     []StepMessage `json:"steps"`
	ElapsedMs int64         `json:"elapsedMs"`
}

// ResolveMessage asks what Action would do from the actor's current
// position, without changing anything.
type ResolveMessage struct {
	RequestID string `json:"requestId,omitempty"`
	Situation
	Actor   string       `json:"actor"`
	Action  string       `json:"action"`
	Targets []string     `json:"targets,omitempty"`
	Point   *model.Point `json:"point,omitempty"`
}

type ConditionMessage struct {
	Name        string  `json:"name"`
	Remove      bool    `json:"remove,omitempty"`
	Probability float64 `json:"probability"`
}

// OutcomeMessage carries the HP change distribution as probabilities of
// HPMin, HPMin+1 and so on.
type OutcomeMessage struct {
	Target     string             `json:"target"`
	Fail       float64            `json:"fail"`
	Success    float64            `json:"success"`
	Crit       float64            `json:"crit"`
	Expected   float64            `json:"expected"`
	HPMin      int                `json:"hpMin"`
	HP         []float64          `json:"hp"`
	Conditions []ConditionMessage `json:"conditions,omitempty"`
}

type ZoneMessage struct {
	Zone        model.Zone `json:"zone"`
	Probability float64    `json:"probability"`
}

type ResolutionMessage struct {
	RequestID string           `json:"requestId,omitempty"`
	Actor     string           `json:"actor"`
	Action    string           `json:"action"`
	Targets   []OutcomeMessage `json:"targets"`
	Zones     []ZoneMessage    `json:"zones,omitempty"`
}

type ErrorMessage struct {
	RequestID string `json:"requestId,omitempty"`
	Type      string `json:"type"` // the request that failed
	Error     string `json:"error"`
}
