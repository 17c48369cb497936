// Package agent answers a host's decision requests over an ipc connection
// and keeps the shared catalog current while sessions run.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nstehr/skirmish/ipc"
	"github.com/nstehr/skirmish/model"
	"github.com/nstehr/skirmish/resolve"
	"github.com/nstehr/skirmish/search"
)

var tracer = otel.Tracer("github.com/nstehr/skirmish/agent")

// Agent owns one host session.
type Agent struct {
	Conn     *ipc.Connection
	Host     string
	Strategy string

	ctx context.Context
	rt  *Runtime
}

// New wires the agent's handlers into conn. Requests run under ctx.
func New(ctx context.Context, conn *ipc.Connection, rt *Runtime) *Agent {
	a := &Agent{Conn: conn, ctx: ctx, rt: rt}
	conn.RegisterHandler(ipc.TypeHello, a.HandleHello)
	conn.RegisterHandler(ipc.TypeDecide, a.HandleDecide)
	conn.RegisterHandler(ipc.TypeResolve, a.HandleResolve)
	return a
}

// HandleHello completes the handshake and tells the host what it can ask
// for.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := env.Decode(&hello); err != nil {
		return nil, err
	}
	if hello.Strategy != "" && !a.rt.Registry.Has(hello.Strategy) {
		return nil, fmt.Errorf("hello: %w: %s", search.ErrUnknownStrategy, hello.Strategy)
	}
	a.Host = hello.Host
	a.Conn.Host = hello.Host
	a.Strategy = hello.Strategy
	slog.Info("host identified", "host", a.Host, "strategy", a.strategy(""))

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{
		Status:     "ok",
		Strategies: a.rt.Registry.Names(),
		Encounters: a.rt.Catalog().Encounters(),
	})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// HandleDecide plans a whole turn on a copy of the host's state and
// replies with every segment in order.
func (a *Agent) HandleDecide(env ipc.Envelope) (resp *ipc.Envelope, err error) {
	var msg ipc.DecideMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	start := time.Now()
	strategy := a.strategy(msg.Strategy)
	ctx, span := tracer.Start(a.ctx, "agent.decide", trace.WithAttributes(
		attribute.String("host", a.Host),
		attribute.String("strategy", strategy),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	defer recoverData(&err)

	cat := a.rt.Catalog()
	s, err := cat.Restore(msg.State, msg.Terrain, model.NewArchetypeCache(cat))
	if err != nil {
		return nil, fmt.Errorf("decide: %w", err)
	}
	actor := msg.Actor
	if actor == "" {
		actor = s.ActiveID()
	}
	span.SetAttributes(attribute.String("actor", actor))

	ev := a.rt.evaluator(cat)
	sel, err := a.rt.Registry.New(strategy, ev)
	if err != nil {
		return nil, fmt.Errorf("decide: %w", err)
	}
	cfg := a.rt.Search
	if msg.TimeLimitMs > 0 {
		cfg.TimeLimit = time.Duration(msg.TimeLimitMs) * time.Millisecond
	}
	if msg.MaxNodes > 0 {
		cfg.MaxNodes = msg.MaxNodes
	}
	decs, err := search.Plan(ctx, ev, sel, s, actor, cfg)
	if err != nil {
		return nil, fmt.Errorf("decide %s: %w", actor, err)
	}

	out := ipc.DecisionMessage{
		RequestID: msg.RequestID,
		Actor:     actor,
		Strategy:  strategy,
		Steps:     steps(decs),
		ElapsedMs: time.Since(start).Milliseconds(),
	}
	nodes := 0
	for _, st := range out.Steps {
		nodes += st.Nodes
	}
	span.SetAttributes(attribute.Int("steps", len(decs)), attribute.Int("nodes", nodes))
	slog.Info("turn decided",
		"host", a.Host,
		"actor", actor,
		"strategy", strategy,
		"steps", len(decs),
		"nodes", nodes,
		"elapsed", time.Since(start))

	reply, err := ipc.NewEnvelope(ipc.TypeDecision, out)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func steps(decs []search.Decision) []ipc.StepMessage {
	if len(decs) == 0 {
		return []ipc.StepMessage{{Pass: true}}
	}
	out := make([]ipc.StepMessage, 0, len(decs))
	for _, d := range decs {
		c := d.Candidate
		st := ipc.StepMessage{
			Destination: c.Destination,
			Path:        c.Path,
			Action:      c.ActionID,
			Targets:     c.Targets,
			Point:       c.Point,
			Score:       d.Score,
			Depth:       d.Depth,
			Nodes:       d.Nodes,
		}
		if c.Moves() {
			st.Mode = c.Mode.String()
		}
		out = append(out, st)
	}
	return out
}

// HandleResolve reports the outcome distribution of one action without
// changing the host's state.
func (a *Agent) HandleResolve(env ipc.Envelope) (resp *ipc.Envelope, err error) {
	var msg ipc.ResolveMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	defer recoverData(&err)

	cat := a.rt.Catalog()
	act, ok := cat.Action(msg.Action)
	if !ok {
		return nil, fmt.Errorf("resolve: unknown action %q", msg.Action)
	}
	s, err := cat.Restore(msg.State, msg.Terrain, model.NewArchetypeCache(cat))
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	if _, ok := s.Get(msg.Actor); !ok {
		return nil, fmt.Errorf("resolve %s: %w", msg.Actor, model.ErrUnknownCombatant)
	}
	ev := a.rt.evaluator(cat)
	res, err := ev.Final.Resolve(s, msg.Actor, act, resolve.Intent{Targets: msg.Targets, Point: msg.Point})
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", msg.Action, err)
	}

	out := ipc.ResolutionMessage{RequestID: msg.RequestID, Actor: msg.Actor, Action: msg.Action}
	for _, t := range res.Targets {
		om := ipc.OutcomeMessage{
			Target:   t.TargetID,
			Fail:     t.Chance.Fail,
			Success:  t.Chance.Success,
			Crit:     t.Chance.Crit,
			Expected: t.Expected,
			HPMin:    t.HP.Min(),
		}
		for v := t.HP.Min(); v <= t.HP.Max(); v++ {
			om.HP = append(om.HP, t.HP.Prob(v))
		}
		for _, c := range t.Conditions {
			om.Conditions = append(om.Conditions, ipc.ConditionMessage{Name: c.Name, Remove: c.Remove, Probability: c.Probability})
		}
		out.Targets = append(out.Targets, om)
	}
	for _, z := range res.Zones {
		out.Zones = append(out.Zones, ipc.ZoneMessage{Zone: z.Zone, Probability: z.Probability})
	}
	slog.Debug("action resolved", "host", a.Host, "actor", msg.Actor, "action", msg.Action, "targets", len(out.Targets))

	reply, err := ipc.NewEnvelope(ipc.TypeResolution, out)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func (a *Agent) strategy(requested string) string {
	switch {
	case requested != "":
		return requested
	case a.Strategy != "":
		return a.Strategy
	}
	return a.rt.Strategy
}

// recoverData turns a malformed-content panic into the request's error so
// one bad definition cannot take the sidecar down.
func recoverData(err *error) {
	r := recover()
	if r == nil {
		return
	}
	de, ok := r.(*resolve.DataError)
	if !ok {
		panic(r)
	}
	*err = de
}
