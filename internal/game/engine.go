package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cupidlabs/cupid-backend/internal/agents"
	"github.com/cupidlabs/cupid-backend/internal/chatstore"
	"github.com/cupidlabs/cupid-backend/internal/game/data"
	"github.com/cupidlabs/cupid-backend/internal/logger"
	"github.com/cupidlabs/cupid-backend/internal/matchsession"
	"github.com/cupidlabs/cupid-backend/internal/types"
)

// Event stream types delivered to the transport layer.
const (
	EventItemDone = "thread.item.done"
	EventProgress = "progress.update"
)

// Event is one server-sent chunk of a turn: either a completed thread item
// or a free-text progress delta.
type Event struct {
	Type string            `json:"type"`
	Item *types.ThreadItem `json:"item,omitempty"`
	Text string            `json:"text,omitempty"`
}

// EmitFunc receives events as the turn produces them. Each Respond call
// owns its emit callback; the engine shares no streaming state between
// turns.
type EmitFunc func(Event)

// Engine drives the chapter state machine. One Respond call is one player
// turn; turns on the same thread serialize on a per-thread mutex.
type Engine struct {
	store    chatstore.Store
	sessions matchsession.Store
	runner   agents.Runner
	registry *agents.Registry
	// maxScenes forces the story loop into evaluation when positive.
	// Zero means unbounded.
	maxScenes int
	log       *logger.Logger

	mu      sync.Mutex
	threads map[string]*sync.Mutex
}

func NewEngine(store chatstore.Store, sessions matchsession.Store, runner agents.Runner, registry *agents.Registry, maxScenes int, log *logger.Logger) *Engine {
	return &Engine{
		store:     store,
		sessions:  sessions,
		runner:    runner,
		registry:  registry,
		maxScenes: maxScenes,
		log:       log.With("service", "GameEngine"),
		threads:   make(map[string]*sync.Mutex),
	}
}

// threadLock returns the mutex serializing turns on one thread. Entries are
// never evicted; they share the lifetime of the in-memory thread store.
// TODO: evict on thread deletion if the store grows a durable backend.
func (e *Engine) threadLock(threadID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.threads[threadID]
	if !ok {
		lock = &sync.Mutex{}
		e.threads[threadID] = lock
	}
	return lock
}

// Respond runs one player turn: normalize the input into thread items, run
// the current chapter's agents, stream events through emit and persist the
// advanced state. Agent failure propagates without a partial advance.
func (e *Engine) Respond(ctx context.Context, threadID, matchSessionID string, action Action, emit EmitFunc) error {
	if action.NoOp {
		return nil
	}

	lock := e.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	thread, err := e.store.GetThread(ctx, threadID)
	if err != nil {
		return err
	}

	state, ok := types.GameStateFromMetadata(thread.Metadata)
	if !ok {
		state, err = e.initState(ctx, matchSessionID)
		if err != nil {
			return err
		}
		if err := e.persist(ctx, thread, state); err != nil {
			return err
		}
	}

	if action.UserText != "" {
		userItem := &types.ThreadItem{Kind: types.ItemKindUserMessage, Text: action.UserText}
		if err := e.store.AddItem(ctx, threadID, userItem); err != nil {
			return err
		}
		emit(Event{Type: EventItemDone, Item: userItem})
	}
	if action.HiddenContext != "" {
		// Stored for the agents, never streamed to the client.
		hidden := &types.ThreadItem{Kind: types.ItemKindHiddenContext, Text: action.HiddenContext}
		if err := e.store.AddItem(ctx, threadID, hidden); err != nil {
			return err
		}
	}

	transcript, err := e.transcript(ctx, threadID)
	if err != nil {
		return err
	}

	switch {
	case state.Chapter == types.ChapterIntroduction:
		return e.runIntroduction(ctx, thread, state, transcript, emit)
	case state.Chapter == types.ChapterMortal:
		return e.runMortal(ctx, thread, state, transcript, emit)
	case state.Chapter == types.ChapterMatch:
		return e.runMatch(ctx, thread, state, transcript, emit)
	case state.Chapter == types.ChapterCompatibility:
		return e.runCompatibility(ctx, thread, state, transcript, emit)
	case state.Chapter == types.ChapterStory:
		return e.runStory(ctx, thread, state, transcript, emit)
	case state.Chapter == types.ChapterEvaluation:
		return e.runEvaluation(ctx, thread, state, transcript, emit)
	default:
		return e.runEnd(ctx, thread, state, transcript, emit)
	}
}

// initState builds the initial game state, consuming the handoff session
// when one is presented. A missing or already-consumed session id falls
// back to the built-in data set; it never fails the turn.
func (e *Engine) initState(ctx context.Context, matchSessionID string) (*types.GameState, error) {
	var selection *types.MatchSelection
	if matchSessionID != "" {
		var err error
		selection, err = e.sessions.Consume(ctx, matchSessionID)
		if err != nil && !errors.Is(err, matchsession.ErrNotFound) {
			e.log.Warn("match session lookup failed, using defaults", "session_id", matchSessionID, "error", err)
		}
	}
	if selection == nil {
		today, err := data.Load()
		if err != nil {
			return nil, fmt.Errorf("load default data: %w", err)
		}
		if len(today.Matches) == 0 {
			return nil, errors.New("no default matches available")
		}
		match := today.Matches[0]
		selection = &types.MatchSelection{
			MortalData:        today.Mortal,
			MatchData:         match.Data,
			CompatibilityData: today.Compatibility[match.ID],
			SelectedMatchID:   match.ID,
		}
	}

	compat := 69
	if v, ok := selection.CompatibilityData["overall_compatibility"]; ok {
		switch n := v.(type) {
		case int:
			compat = n
		case float64:
			compat = int(n)
		}
	}

	return &types.GameState{
		Version:              types.GameStateVersion,
		Chapter:              types.ChapterIntroduction,
		MortalData:           selection.MortalData,
		MatchData:            selection.MatchData,
		CompatibilityData:    selection.CompatibilityData,
		CurrentCompatibility: compat,
		SceneNumber:          1,
	}, nil
}

func (e *Engine) transcript(ctx context.Context, threadID string) ([]agents.Message, error) {
	items, _, err := e.store.ListItems(ctx, threadID, "", 0)
	if err != nil {
		return nil, err
	}
	// ListItems is newest-first; the runner wants chronological order.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return Convert(items), nil
}

// persist writes the state into thread metadata and saves the thread as one
// unit. Every chapter transition goes through here before it counts.
func (e *Engine) persist(ctx context.Context, thread *types.Thread, state *types.GameState) error {
	if thread.Metadata == nil {
		thread.Metadata = map[string]any{}
	}
	if err := state.WriteMetadata(thread.Metadata); err != nil {
		return err
	}
	return e.store.SaveThread(ctx, thread)
}

func stateVars(s *types.GameState) map[string]string {
	return map[string]string{
		"state.mortal":                data.YAMLString(s.MortalData),
		"state.match":                 data.YAMLString(s.MatchData),
		"state.compatibility":         data.YAMLString(s.CompatibilityData),
		"state.current_compatibility": strconv.Itoa(s.CurrentCompatibility),
		"state.scene_number":          strconv.Itoa(s.SceneNumber),
	}
}

// streamNarrative runs a streamed agent over the transcript, emitting
// progress deltas, then records the full text as an assistant item.
func (e *Engine) streamNarrative(ctx context.Context, agent *agents.Agent, vars map[string]string, transcript []agents.Message, threadID string, emit EmitFunc) (string, error) {
	completion, err := e.runner.RunStreamed(ctx, agents.Call{Agent: agent, Vars: vars, Input: transcript}, func(delta string) {
		emit(Event{Type: EventProgress, Text: delta})
	})
	if err != nil {
		return "", err
	}
	item := &types.ThreadItem{Kind: types.ItemKindAssistantMessage, Text: completion.Text}
	if err := e.store.AddItem(ctx, threadID, item); err != nil {
		return "", err
	}
	emit(Event{Type: EventItemDone, Item: item})
	return completion.Text, nil
}

// runStructured runs a schema agent and decodes its payload into out.
func (e *Engine) runStructured(ctx context.Context, agent *agents.Agent, vars map[string]string, out any) error {
	completion, err := e.runner.Run(ctx, agents.Call{Agent: agent, Vars: vars})
	if err != nil {
		return err
	}
	return completion.Decode(out)
}

func (e *Engine) addWidget(ctx context.Context, threadID string, item *types.ThreadItem, emit EmitFunc) error {
	if err := e.store.AddItem(ctx, threadID, item); err != nil {
		return err
	}
	emit(Event{Type: EventItemDone, Item: item})
	return nil
}

func (e *Engine) runIntroduction(ctx context.Context, thread *types.Thread, state *types.GameState, transcript []agents.Message, emit EmitFunc) error {
	vars := stateVars(state)
	if _, err := e.streamNarrative(ctx, e.registry.Introduction, vars, transcript, thread.ID, emit); err != nil {
		return err
	}

	var card agents.ProfileCardOutput
	if err := e.runStructured(ctx, e.registry.DisplayMortal, vars, &card); err != nil {
		return err
	}
	if err := e.addWidget(ctx, thread.ID, profileCardItem(card), emit); err != nil {
		return err
	}

	state.Chapter = types.ChapterMortal
	return e.persist(ctx, thread, state)
}

func (e *Engine) runMortal(ctx context.Context, thread *types.Thread, state *types.GameState, transcript []agents.Message, emit EmitFunc) error {
	vars := stateVars(state)
	if _, err := e.streamNarrative(ctx, e.registry.Mortal, vars, transcript, thread.ID, emit); err != nil {
		return err
	}

	var card agents.ProfileCardOutput
	if err := e.runStructured(ctx, e.registry.DisplayMatch, vars, &card); err != nil {
		return err
	}
	if err := e.addWidget(ctx, thread.ID, profileCardItem(card), emit); err != nil {
		return err
	}

	state.Chapter = types.ChapterMatch
	return e.persist(ctx, thread, state)
}

func (e *Engine) runMatch(ctx context.Context, thread *types.Thread, state *types.GameState, transcript []agents.Message, emit EmitFunc) error {
	vars := stateVars(state)
	narration, err := e.streamNarrative(ctx, e.registry.Match, vars, transcript, thread.ID, emit)
	if err != nil {
		return err
	}

	var card agents.ContinueCardOutput
	if err := e.runStructured(ctx, e.registry.DisplayContinue, map[string]string{"context": narration}, &card); err != nil {
		return err
	}
	if err := e.addWidget(ctx, thread.ID, continueCardItem(card), emit); err != nil {
		return err
	}

	state.Chapter = types.ChapterCompatibility
	return e.persist(ctx, thread, state)
}

func (e *Engine) runCompatibility(ctx context.Context, thread *types.Thread, state *types.GameState, transcript []agents.Message, emit EmitFunc) error {
	vars := stateVars(state)

	var card agents.CompatibilityCardOutput
	if err := e.runStructured(ctx, e.registry.DisplayCompat, vars, &card); err != nil {
		return err
	}
	if err := e.addWidget(ctx, thread.ID, compatibilityCardItem(card), emit); err != nil {
		return err
	}

	narration, err := e.streamNarrative(ctx, e.registry.StartCupidGame, vars, transcript, thread.ID, emit)
	if err != nil {
		return err
	}

	var choices agents.ChoicesOutput
	if err := e.runStructured(ctx, e.registry.DisplayChoices, map[string]string{"scene": narration}, &choices); err != nil {
		return err
	}
	if err := e.addWidget(ctx, thread.ID, choiceListItem(choices), emit); err != nil {
		return err
	}

	state.Chapter = types.ChapterStory
	return e.persist(ctx, thread, state)
}

func (e *Engine) runStory(ctx context.Context, thread *types.Thread, state *types.GameState, transcript []agents.Message, emit EmitFunc) error {
	vars := stateVars(state)
	recent := recentContext(transcript, 4)

	var score agents.SceneScoreOutput
	if err := e.runStructured(ctx, e.registry.EvaluateScene, mergeVars(vars, map[string]string{"scene": recent}), &score); err != nil {
		return err
	}
	delta := parseScoreDelta(score.Score)
	state.AdjustCompatibility(delta)
	vars = stateVars(state)

	var snapshot agents.GameDashboardOutput
	snapVars := mergeVars(vars, map[string]string{
		"scene": recent,
		"delta": strconv.Itoa(delta),
	})
	if err := e.runStructured(ctx, e.registry.GameDashboard, snapVars, &snapshot); err != nil {
		return err
	}
	if err := e.addWidget(ctx, thread.ID, compatibilitySnapshotItem(snapshot), emit); err != nil {
		return err
	}

	narration, err := e.streamNarrative(ctx, e.registry.CupidGame, vars, transcript, thread.ID, emit)
	if err != nil {
		return err
	}

	var ended agents.HasEndedOutput
	if err := e.runStructured(ctx, e.registry.HasEnded, map[string]string{"scene": narration}, &ended); err != nil {
		return err
	}
	if e.maxScenes > 0 && state.SceneNumber >= e.maxScenes {
		ended.HasEnded = true
	}

	if ended.HasEnded {
		state.Chapter = types.ChapterEvaluation
		return e.persist(ctx, thread, state)
	}

	var choices agents.ChoicesOutput
	if err := e.runStructured(ctx, e.registry.DisplayChoices, map[string]string{"scene": narration}, &choices); err != nil {
		return err
	}
	if err := e.addWidget(ctx, thread.ID, choiceListItem(choices), emit); err != nil {
		return err
	}

	state.SceneNumber++
	return e.persist(ctx, thread, state)
}

func (e *Engine) runEvaluation(ctx context.Context, thread *types.Thread, state *types.GameState, transcript []agents.Message, emit EmitFunc) error {
	if _, err := e.streamNarrative(ctx, e.registry.CupidEvaluation, stateVars(state), transcript, thread.ID, emit); err != nil {
		return err
	}
	state.Chapter = types.ChapterEnd
	return e.persist(ctx, thread, state)
}

func (e *Engine) runEnd(ctx context.Context, thread *types.Thread, state *types.GameState, transcript []agents.Message, emit EmitFunc) error {
	_, err := e.streamNarrative(ctx, e.registry.End, stateVars(state), transcript, thread.ID, emit)
	return err
}

// parseScoreDelta reads a signed score like "+4" or "-7", clamped to
// [-10, 10]. Garbage scores count as zero.
func parseScoreDelta(score string) int {
	score = strings.TrimSpace(score)
	score = strings.TrimPrefix(score, "+")
	n, err := strconv.Atoi(score)
	if err != nil {
		return 0
	}
	if n > 10 {
		n = 10
	}
	if n < -10 {
		n = -10
	}
	return n
}

// recentContext renders the last n transcript messages for the utility
// agents that judge a single scene.
func recentContext(transcript []agents.Message, n int) string {
	start := len(transcript) - n
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, msg := range transcript[start:] {
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

func mergeVars(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
