// Package runner implements the autonomous per-agent loop: draining the
// agent's mailbox, running timed decision cycles against a pluggable
// decision provider, executing chosen actions and probabilistically
// initiating interactions with other agents.
package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/citymesh/bus"
	"github.com/hupe1980/citymesh/core"
	"github.com/hupe1980/citymesh/interaction"
	"github.com/hupe1980/citymesh/logging"
)

// ActionCallback observes every executed action.
type ActionCallback func(c *core.Citizen, a core.Action, result core.ActionResult)

// InteractionCallback observes every initiated interaction.
type InteractionCallback func(c *core.Citizen, itx *interaction.Interaction)

// Statistics is a point-in-time view of one runner's activity.
type Statistics struct {
	AgentID               string `json:"agent_id"`
	Name                  string `json:"name"`
	State                 string `json:"state"`
	ActionsTaken          int64  `json:"actions_taken"`
	MessagesProcessed     int64  `json:"messages_processed"`
	InteractionsInitiated int64  `json:"interactions_initiated"`
	FallbackDecisions     int64  `json:"fallback_decisions"`
}

// Options holds dependency overrides passed to New().
type Options struct {
	// Logger receives the runner's traces.
	Logger logging.Logger
	// OnAction is invoked after every executed action. Panics are contained.
	OnAction ActionCallback
	// OnInteraction is invoked when the runner initiates an interaction.
	// Panics are contained.
	OnInteraction InteractionCallback
}

// handlerFunc processes one inbound message kind. A nil handler means the
// kind is deliberately ignored on receive (the agent only ever sends it).
type handlerFunc func(r *Runner, msg bus.Message)

// Runner drives one citizen autonomously on its own goroutine. The loop
// blocks on a select over {inbox, poll timer, stop}: inbound messages are
// handled as they arrive and fully drained, a decision cycle runs once the
// think interval has elapsed, and an idle agent may roll to initiate an
// interaction. Every cycle returns the agent to Idle on the happy path.
type Runner struct {
	ctx           *Context
	logger        logging.Logger
	onAction      ActionCallback
	onInteraction InteractionCallback

	handlers map[bus.Kind]handlerFunc

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	stopped chan struct{}
	inbox   <-chan bus.Message

	state atomic.Int32

	// Loop-goroutine-only fields: never touched from outside the loop.
	loopCtx      context.Context
	lastDecision time.Time
	lastAction   time.Time
	currentItx   *interaction.Interaction

	actionsTaken          atomic.Int64
	messagesProcessed     atomic.Int64
	interactionsInitiated atomic.Int64
	fallbackDecisions     atomic.Int64
}

// New constructs a runner for the given context. It panics if the handler
// table misses a message kind, so adding a kind to bus forces a decision
// here.
func New(agentCtx *Context, optFns ...func(o *Options)) *Runner {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	agentCtx.applyDefaults()

	r := &Runner{
		ctx:           agentCtx,
		logger:        opts.Logger,
		onAction:      opts.OnAction,
		onInteraction: opts.OnInteraction,
	}
	r.handlers = buildHandlerTable()
	r.state.Store(int32(StateIdle))
	return r
}

// buildHandlerTable maps every message kind to its handler. The table is
// exhaustive over bus.Kinds(): kinds an agent only sends, or ignores on
// receive, are named with a nil handler rather than omitted.
func buildHandlerTable() map[bus.Kind]handlerFunc {
	table := map[bus.Kind]handlerFunc{
		bus.KindGreet:       (*Runner).handleGreet,
		bus.KindChat:        (*Runner).handleChat,
		bus.KindInvite:      (*Runner).handleInvite,
		bus.KindTradeOffer:  (*Runner).handleTradeOffer,
		bus.KindMeetRequest: (*Runner).handleMeetRequest,

		// Kinds with no inbound behavior: replies, notifications and the
		// economic requests agents only send.
		bus.KindAccept:         nil,
		bus.KindDecline:        nil,
		bus.KindTradeAccept:    nil,
		bus.KindTradeReject:    nil,
		bus.KindHireOffer:      nil,
		bus.KindServiceRequest: nil,
		bus.KindShareInfo:      nil,
		bus.KindAskInfo:        nil,
		bus.KindGossip:         nil,
		bus.KindLocationUpdate: nil,
		bus.KindAck:            nil,
	}
	for _, k := range bus.Kinds() {
		if _, ok := table[k]; !ok {
			panic(fmt.Sprintf("runner: no handler entry for message kind %s", k))
		}
	}
	return table
}

// Citizen returns the citizen this runner controls.
func (r *Runner) Citizen() *core.Citizen { return r.ctx.Citizen }

// AgentID returns the controlled citizen's id.
func (r *Runner) AgentID() string { return r.ctx.Citizen.ID }

// State returns the agent's current activity state.
func (r *Runner) State() State { return State(r.state.Load()) }

func (r *Runner) setState(s State) { r.state.Store(int32(s)) }

// Start registers the agent with the bus and spawns the loop goroutine.
// Starting an already running runner is a no-op.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	r.inbox = r.ctx.Bus.Register(r.AgentID())

	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.stopped = make(chan struct{})
	r.running = true

	now := time.Now()
	r.lastDecision = now
	r.lastAction = now

	go r.loop(loopCtx)

	r.logger.Info("agent started", "agent_id", r.AgentID(), "name", r.ctx.Citizen.Name)
	return nil
}

// Stop cancels the loop, waits for it to settle and unregisters the agent
// from the bus so no further messages route to it. Stopping a runner that
// never started is a no-op.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	cancel := r.cancel
	stopped := r.stopped
	r.mu.Unlock()

	cancel()
	<-stopped

	r.ctx.Bus.Unregister(r.AgentID())
	r.logger.Info("agent stopped", "agent_id", r.AgentID(), "name", r.ctx.Citizen.Name)
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.stopped)

	r.loopCtx = ctx

	poll := time.NewTicker(r.ctx.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-r.inbox:
			if !ok {
				return
			}
			r.handleMessage(msg)
			r.drainInbox()

		case <-poll.C:
			r.drainInbox()

			if s := r.State(); s == StateIdle || s == StateWaiting {
				if time.Since(r.lastDecision) >= r.ctx.ThinkInterval {
					r.decisionCycle(ctx)
				}
			}
			if r.State() == StateIdle {
				r.maybeInteract(ctx)
			}
		}
	}
}

// drainInbox empties the mailbox without blocking.
func (r *Runner) drainInbox() {
	for {
		select {
		case msg, ok := <-r.inbox:
			if !ok {
				return
			}
			r.handleMessage(msg)
		default:
			return
		}
	}
}

func (r *Runner) handleMessage(msg bus.Message) {
	if msg.Expired() {
		return
	}

	r.messagesProcessed.Add(1)
	r.logger.Debug("message received", "agent_id", r.AgentID(), "kind", msg.Kind.String(), "sender", msg.SenderID)

	handler, ok := r.handlers[msg.Kind]
	if !ok || handler == nil {
		return
	}
	handler(r, msg)
}

// handleGreet responds to a greeting based on personality: more extraverted
// agents respond warmly more often.
func (r *Runner) handleGreet(msg bus.Message) {
	warmth := r.ctx.Citizen.Traits.Extraversion*0.5 + 0.5
	if r.ctx.randFloat() >= warmth {
		return
	}
	reply := bus.New(r.AgentID(), msg.SenderID, bus.KindGreet, map[string]any{
		"response": "hello",
		"mood":     r.ctx.Citizen.Needs.OverallSatisfaction(),
	})
	r.ctx.Bus.Send(reply)
}

// handleChat decides whether to continue the conversation based on social
// need and agreeableness, and if so initiates a conversation interaction
// with the sender.
func (r *Runner) handleChat(msg bus.Message) {
	willingness := r.ctx.Citizen.Needs.Social*0.5 + r.ctx.Citizen.Traits.Agreeableness*0.3
	if r.ctx.randFloat() >= willingness {
		return
	}
	r.startConversation(msg.SenderID)
}

// handleInvite accepts or declines based on social need and openness.
func (r *Runner) handleInvite(msg bus.Message) {
	acceptChance := r.ctx.Citizen.Needs.Social*0.4 + r.ctx.Citizen.Traits.Openness*0.3 + 0.2

	kind := bus.KindDecline
	if r.ctx.randFloat() < acceptChance {
		kind = bus.KindAccept
	}
	reply := bus.New(r.AgentID(), msg.SenderID, kind, map[string]any{
		"invite_id": msg.Content["invite_id"],
	})
	r.ctx.Bus.Send(reply)
}

// handleTradeOffer accepts when the offered value beats the cost, and flips
// a coin on a break-even offer.
func (r *Runner) handleTradeOffer(msg bus.Message) {
	benefit := contentFloat(msg.Content, "value_to_receiver") - contentFloat(msg.Content, "cost_to_receiver")

	kind := bus.KindTradeReject
	if benefit > 0 || (benefit == 0 && r.ctx.randFloat() < 0.5) {
		kind = bus.KindTradeAccept
	}
	reply := bus.New(r.AgentID(), msg.SenderID, kind, map[string]any{
		"trade_id": msg.Content["trade_id"],
	})
	r.ctx.Bus.Send(reply)
}

// handleMeetRequest declines when busy, otherwise blends the relationship
// score with the social need.
func (r *Runner) handleMeetRequest(msg bus.Message) {
	kind := bus.KindDecline
	if r.State() == StateIdle {
		relationship := r.ctx.Interactions.RelationshipScore(r.AgentID(), msg.SenderID)
		acceptChance := 0.3 + relationship*0.4 + r.ctx.Citizen.Needs.Social*0.3
		if r.ctx.randFloat() < acceptChance {
			kind = bus.KindAccept
		}
	}
	reply := bus.New(r.AgentID(), msg.SenderID, kind, map[string]any{
		"request_id": msg.Content["request_id"],
	})
	r.ctx.Bus.Send(reply)
}

func contentFloat(content map[string]any, key string) float64 {
	switch v := content[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// decisionCycle runs one perceive-decide-act pass. Provider failures
// fall back to the deterministic provider; action failures are logged and
// leave the cycle a no-op. Either way the agent returns to Idle.
func (r *Runner) decisionCycle(ctx context.Context) {
	r.setState(StateThinking)
	defer r.setState(StateIdle)

	r.lastDecision = time.Now()

	state := r.localState()
	candidates := r.legalActions(state)
	if len(candidates) == 0 {
		return
	}

	chosen := r.selectAction(ctx, state, candidates)
	if chosen == nil {
		return
	}

	if time.Since(r.lastAction) < r.ctx.ActionInterval {
		return
	}
	r.execute(chosen, state)
}

// selectAction delegates to the configured provider, falling back to the
// deterministic provider on error or absence. A second failure in the
// fallback turns the cycle into a no-op.
func (r *Runner) selectAction(ctx context.Context, state core.LocalState, candidates []core.Action) core.Action {
	if r.ctx.Provider != nil {
		chosen, err := r.ctx.Provider.SelectAction(ctx, r.ctx.Citizen, state, candidates)
		if err == nil {
			return chosen
		}
		r.fallbackDecisions.Add(1)
		r.logger.Warn("decision provider failed, using fallback", "agent_id", r.AgentID(), "provider", r.ctx.Provider.Name(), "error", err.Error())
	}

	if r.ctx.Fallback == nil {
		return nil
	}
	chosen, err := r.ctx.Fallback.SelectAction(ctx, r.ctx.Citizen, state, candidates)
	if err != nil {
		r.logger.Error("fallback provider failed", "agent_id", r.AgentID(), "error", err.Error())
		return nil
	}
	return chosen
}

func (r *Runner) execute(a core.Action, state core.LocalState) {
	r.setState(StateActing)
	defer r.setState(StateIdle)

	result, err := a.Execute(r.ctx.Citizen, state)
	if err != nil {
		r.logger.Error("action execution failed", "agent_id", r.AgentID(), "action", a.Kind().String(), "error", err.Error())
		return
	}

	r.actionsTaken.Add(1)
	r.lastAction = time.Now()
	r.emitAction(a, result)

	r.logger.Debug("action executed", "agent_id", r.AgentID(), "action", a.Kind().String(), "success", result.Success)
}

// localState snapshots what the agent can currently see. Every registered
// agent counts as nearby; location-based filtering is available through
// Bus.SendToNearby but the perception model does not apply it yet.
func (r *Runner) localState() core.LocalState {
	var tick int64
	if r.ctx.CurrentTick != nil {
		tick = r.ctx.CurrentTick()
	}
	return core.LocalState{
		Tick:         tick,
		Time:         time.Now(),
		Location:     r.ctx.Citizen.Location,
		NearbyAgents: r.nearbyAgents(),
	}
}

func (r *Runner) nearbyAgents() []string {
	registered := r.ctx.Bus.RegisteredAgents()
	nearby := make([]string, 0, len(registered))
	for _, id := range registered {
		if id != r.AgentID() {
			nearby = append(nearby, id)
		}
	}
	return nearby
}

func (r *Runner) legalActions(state core.LocalState) []core.Action {
	var out []core.Action
	for _, a := range r.ctx.Actions {
		if a.CheckPrerequisites(r.ctx.Citizen, state) {
			out = append(out, a)
		}
	}
	return out
}

// maybeInteract rolls for a spontaneous social interaction: the chance
// scales with the unmet social need and extraversion.
func (r *Runner) maybeInteract(ctx context.Context) {
	urgency := 1 - r.ctx.Citizen.Needs.Social
	chance := r.ctx.SocialProbability*urgency*0.5 + r.ctx.Citizen.Traits.Extraversion*0.3
	if r.ctx.randFloat() > chance {
		return
	}

	nearby := r.nearbyAgents()
	if len(nearby) == 0 {
		return
	}
	target := nearby[r.ctx.randIntn(len(nearby))]

	r.startConversationWith(ctx, target)
}

// startConversation is the message-handler entry point; it uses the loop
// context so a Stop during the settle delay still interrupts promptly.
func (r *Runner) startConversation(otherID string) {
	ctx := r.loopCtx
	if ctx == nil {
		ctx = context.Background()
	}
	r.startConversationWith(ctx, otherID)
}

// startConversationWith atomically claims both participants, sends the
// initiating greeting and, after the settle delay, completes the
// interaction with a small social boost.
func (r *Runner) startConversationWith(ctx context.Context, otherID string) {
	itx, ok := r.ctx.Interactions.TryStart(
		interaction.KindConversation,
		r.AgentID(),
		[]string{r.AgentID(), otherID},
		map[string]any{
			"initiator_mood": r.ctx.Citizen.Needs.OverallSatisfaction(),
		},
		r.ctx.InteractionCooldown,
	)
	if !ok {
		return
	}

	r.setState(StateInteracting)
	r.currentItx = itx
	defer func() {
		r.currentItx = nil
		r.setState(StateIdle)
	}()

	r.interactionsInitiated.Add(1)

	greeting := bus.New(r.AgentID(), otherID, bus.KindGreet, map[string]any{
		"interaction_id": itx.ID,
		"greeting_type":  "casual",
	})
	greeting.RequiresResponse = true
	r.ctx.Bus.Send(greeting)

	r.emitInteraction(itx)

	// Settle, then complete unconditionally: the counterpart's reply is not
	// awaited even though RequiresResponse is set.
	// TODO: drive completion from the partner's reply instead of the timer.
	select {
	case <-ctx.Done():
	case <-time.After(r.ctx.SettleDelay):
	}

	r.ctx.Interactions.Complete(itx.ID, interaction.OutcomeCompleted, map[string]any{
		"social_boost": 0.05,
	})
	r.ctx.Citizen.Needs.SatisfySocial(0.05)
}

// emitAction invokes the action callback, containing panics so a faulty
// observer cannot take the loop down.
func (r *Runner) emitAction(a core.Action, result core.ActionResult) {
	if r.onAction == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("action callback panicked", "agent_id", r.AgentID(), "panic", fmt.Sprintf("%v", rec))
		}
	}()
	r.onAction(r.ctx.Citizen, a, result)
}

func (r *Runner) emitInteraction(itx *interaction.Interaction) {
	if r.onInteraction == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("interaction callback panicked", "agent_id", r.AgentID(), "panic", fmt.Sprintf("%v", rec))
		}
	}()
	r.onInteraction(r.ctx.Citizen, itx)
}

// Statistics returns the runner's counters and current state.
func (r *Runner) Statistics() Statistics {
	return Statistics{
		AgentID:               r.AgentID(),
		Name:                  r.ctx.Citizen.Name,
		State:                 r.State().String(),
		ActionsTaken:          r.actionsTaken.Load(),
		MessagesProcessed:     r.messagesProcessed.Load(),
		InteractionsInitiated: r.interactionsInitiated.Load(),
		FallbackDecisions:     r.fallbackDecisions.Load(),
	}
}
