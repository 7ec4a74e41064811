package client

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/tastegate/internal/model"
)

// State is the lifecycle of the displayed recommendation snapshot.
type State string

const (
	// StateIdle — nothing fetched yet.
	StateIdle State = "idle"
	// StateLoading — a fetch is in flight and no earlier snapshot exists
	// (or the mode changed, invalidating the one on screen).
	StateLoading State = "loading"
	// StateReady — the snapshot reflects the most recent committed fetch.
	StateReady State = "ready"
	// StateError — the most recent fetch failed; Err() has the cause.
	StateError State = "error"
)

// AIState tracks the AI enhancement independently of the base snapshot: the
// standard list can be ready while the enhancement is still loading, failed,
// or simply off.
type AIState string

const (
	AIOff     AIState = "off"
	AILoading AIState = "loading"
	AIReady   AIState = "ready"
	AIError   AIState = "error"
)

// View holds one coherent recommendation snapshot on behalf of a consumer
// (a TUI, a bot, a test harness) and reconciles it against concurrent
// fetches, AI-mode toggles, and feedback submissions.
//
// RECONCILIATION RULES:
//
//  1. Last toggle wins. Every state-changing fetch carries a generation
//     number taken when it starts; committing requires the generation to
//     still be current. A toggle bumps the generation and cancels the
//     in-flight fetch, so a slow response from a superseded mode can never
//     overwrite the newer one — no flicker to stale data, ever.
//
//  2. Dislikes accumulate locally as an exclusion hint. Every subsequent
//     fetch sends the full disliked-ID set as the feedback parameter. This
//     is only a hint for the window before the server context catches up;
//     the server remains authoritative.
//
//  3. Feedback adopts the embedded snapshot when the gateway returns one
//     (with_recommendations), skipping a second round trip. If AI mode is
//     active but the adopted snapshot carries no AI enhancement, a
//     supplementary AI fetch fills the gap rather than silently degrading
//     the view to standard mode.
type View struct {
	api    API
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	aiState   AIState
	aiEnabled bool
	snapshot  *model.Recommendations
	err       error
	disliked  map[string]struct{}
	gen       uint64
	cancel    context.CancelFunc
}

// NewView creates an empty View in StateIdle.
func NewView(api API, logger *slog.Logger) *View {
	return &View{
		api:      api,
		logger:   logger,
		state:    StateIdle,
		aiState:  AIOff,
		disliked: make(map[string]struct{}),
	}
}

// State returns the snapshot lifecycle state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// AIStatus returns the AI-enhancement sub-state.
func (v *View) AIStatus() AIState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.aiState
}

// Snapshot returns the current snapshot, or nil before the first commit.
func (v *View) Snapshot() *model.Recommendations {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot
}

// Err returns the cause of StateError, nil otherwise.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateError {
		return nil
	}
	return v.err
}

// Excluded returns the accumulated disliked-ID hint, sorted for stable
// request encoding.
func (v *View) Excluded() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.excludedLocked()
}

func (v *View) excludedLocked() []string {
	if len(v.disliked) == 0 {
		return nil
	}
	out := make([]string, 0, len(v.disliked))
	for id := range v.disliked {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Refresh fetches a fresh snapshot in the current mode.
func (v *View) Refresh(ctx context.Context) {
	v.mu.Lock()
	gen, fetchCtx := v.beginLocked(ctx, false)
	ai := v.aiEnabled
	opts := FetchOptions{ExcludedItems: v.excludedLocked(), Refresh: true}
	v.mu.Unlock()

	v.fetch(fetchCtx, gen, ai, opts)
}

// SetAIMode switches between the standard and AI-enhanced pipelines and
// fetches the snapshot for the new mode. Toggling to the already-active
// mode is a no-op.
func (v *View) SetAIMode(ctx context.Context, enabled bool) {
	v.mu.Lock()
	if v.aiEnabled == enabled {
		v.mu.Unlock()
		return
	}
	v.aiEnabled = enabled
	if enabled {
		v.aiState = AILoading
	} else {
		v.aiState = AIOff
	}
	gen, fetchCtx := v.beginLocked(ctx, true)
	opts := FetchOptions{ExcludedItems: v.excludedLocked()}
	v.mu.Unlock()

	v.fetch(fetchCtx, gen, enabled, opts)
}

// Like submits a like. The view does not change: liking reshapes future
// recommendations server-side but removes nothing from the current list.
func (v *View) Like(ctx context.Context, itemID, itemType string) error {
	_, err := v.api.SubmitFeedback(ctx, Feedback{
		ItemID:          itemID,
		ItemType:        itemType,
		InteractionType: "like",
	})
	return err
}

// Dislike submits a dislike, adds the item to the local exclusion hint, and
// reconciles the view with the gateway's embedded refreshed snapshot.
func (v *View) Dislike(ctx context.Context, itemID, itemType string) error {
	v.mu.Lock()
	v.disliked[itemID] = struct{}{}
	ai := v.aiEnabled
	excluded := v.excludedLocked()
	v.mu.Unlock()

	ack, err := v.api.SubmitFeedback(ctx, Feedback{
		ItemID:              itemID,
		ItemType:            itemType,
		InteractionType:     "dislike",
		WithRecommendations: true,
		UseAI:               ai,
		ExcludedItems:       excluded,
	})
	if err != nil {
		return err
	}

	if ack.UpdatedRecommendations == nil {
		// Gateway degraded to a plain ack (its refresh fetch failed); fetch
		// our own snapshot instead.
		v.Refresh(ctx)
		return nil
	}

	v.adopt(ctx, ack.UpdatedRecommendations)
	return nil
}

// adopt installs an embedded snapshot as if it were a committed fetch, then
// closes the AI gap if the snapshot lacks the enhancement the current mode
// promises.
func (v *View) adopt(ctx context.Context, recs *model.Recommendations) {
	v.mu.Lock()
	gen, fetchCtx := v.beginLocked(ctx, false)
	ai := v.aiEnabled
	needSupplement := ai && len(recs.EnhancedDishes) == 0
	opts := FetchOptions{ExcludedItems: v.excludedLocked()}
	if !needSupplement {
		v.commitLocked(gen, ai, recs, nil)
		v.mu.Unlock()
		return
	}
	// Show the standard snapshot immediately; the enhancement loads behind
	// it rather than blanking the view.
	v.snapshot = recs
	v.state = StateReady
	v.aiState = AILoading
	v.mu.Unlock()

	v.fetch(fetchCtx, gen, true, opts)
}

// beginLocked starts a new fetch generation: the previous in-flight fetch
// (if any) is cancelled and can no longer commit. invalidate marks the
// current snapshot as superseded (a mode change) — the state drops to
// loading even though a snapshot is installed, so readers don't present the
// old mode's content as current. Caller holds v.mu.
func (v *View) beginLocked(ctx context.Context, invalidate bool) (uint64, context.Context) {
	if v.cancel != nil {
		v.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.gen++
	if v.snapshot == nil || invalidate {
		v.state = StateLoading
	}
	return v.gen, fetchCtx
}

// fetch performs the exchange and commits the outcome if still current.
func (v *View) fetch(ctx context.Context, gen uint64, ai bool, opts FetchOptions) {
	var (
		recs *model.Recommendations
		err  error
	)
	if ai {
		recs, err = v.api.AIRecommendations(ctx, opts)
	} else {
		recs, err = v.api.Recommendations(ctx, opts)
	}

	v.mu.Lock()
	v.commitLocked(gen, ai, recs, err)
	v.mu.Unlock()
}

// commitLocked applies a fetch outcome. Stale generations are dropped
// silently: their toggle or refresh has been superseded and the newer fetch
// owns the view. Caller holds v.mu.
func (v *View) commitLocked(gen uint64, ai bool, recs *model.Recommendations, err error) {
	if gen != v.gen {
		v.logger.Debug("discarding stale fetch result",
			slog.Uint64("gen", gen),
			slog.Uint64("current", v.gen),
		)
		return
	}
	if err != nil {
		v.state = StateError
		v.err = err
		if ai {
			v.aiState = AIError
		}
		return
	}
	v.snapshot = recs
	v.state = StateReady
	v.err = nil
	if v.aiEnabled {
		// Terminal even without enhanced dishes: upstream may legitimately
		// answer the AI route with a plain snapshot, and no further event
		// would ever move the sub-state off loading.
		v.aiState = AIReady
	} else {
		v.aiState = AIOff
	}
}
