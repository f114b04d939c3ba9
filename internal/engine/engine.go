// Package engine orchestrates namespace migrations: it plans phases, applies
// reconciliation decisions, wraps every write in the connection guard, and
// records each attempt in a durable session.
//
// Execution is sequential by design. Phases run strictly in order and
// entities one at a time, because later phases depend on side effects of
// earlier ones. Resumption works by reopening a session and skipping
// operations its ledger already records as completed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/relo/internal/guard"
	"github.com/desertthunder/relo/internal/matcher"
	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/planner"
	"github.com/desertthunder/relo/internal/services"
	"github.com/desertthunder/relo/internal/sessions"
	"github.com/desertthunder/relo/internal/shared"
	"golang.org/x/time/rate"
)

// Action classifies the outcome of one entity's migration step.
type Action string

const (
	ActionCopied     Action = "copied"     // direct copy, container names matched
	ActionReassigned Action = "reassigned" // copied under a reconciled container
	ActionSkipped    Action = "skipped"    // left untouched, reason recorded
	ActionFailed     Action = "failed"     // attempted and failed
)

// Outcome is the per-entity result of a run.
type Outcome struct {
	Entity        string              `json:"entity"`
	FromContainer string              `json:"from_container"`
	ToContainer   string              `json:"to_container,omitempty"`
	Phase         int                 `json:"phase"`
	Action        Action              `json:"action"`
	Reason        string              `json:"reason,omitempty"`
	Match         *models.MatchResult `json:"match,omitempty"`
}

// PhaseSummary aggregates outcomes for one phase.
type PhaseSummary struct {
	Phase      int `json:"phase"`
	Copied     int `json:"copied"`
	Reassigned int `json:"reassigned"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Result is the structured summary of a run. Presentation is the CLI's job.
type Result struct {
	SessionID  string         `json:"session_id"`
	DryRun     bool           `json:"dry_run"`
	Sources    []string       `json:"sources"`
	Target     string         `json:"target"`
	Plan       *planner.Plan  `json:"plan"`
	Outcomes   []Outcome      `json:"outcomes"`
	Copied     int            `json:"copied"`
	Reassigned int            `json:"reassigned"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	PerPhase   []PhaseSummary `json:"per_phase"`
}

// Options configures a run.
type Options struct {
	Sources     []string          // source namespace names
	Target      string            // target namespace name
	Containers  []string          // optional container filter within sources
	Apply       bool              // issue writes; false is dry-run
	SessionName string            // human-readable session name
	Manifest    *models.Namespace // optional target manifest; nil derives it from the store
}

// Deps are the collaborators an Engine composes.
type Deps struct {
	Store     services.Store
	Sessions  sessions.Store
	Matcher   *matcher.Matcher
	Logger    *log.Logger
	RateLimit float64 // write operations per second; <=0 disables throttling
}

// Engine implements the migration orchestrator.
type Engine struct {
	store     services.Store
	sessions  sessions.Store
	matcher   *matcher.Matcher
	guard     *guard.Guard
	logger    *log.Logger
	rateLimit float64
}

// New creates an Engine from its dependencies.
func New(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	m := deps.Matcher
	if m == nil {
		m = matcher.New(matcher.DefaultThreshold, nil)
	}
	return &Engine{
		store:     deps.Store,
		sessions:  deps.Sessions,
		matcher:   m,
		guard:     guard.New(deps.Store, logger),
		logger:    logger,
		rateLimit: deps.RateLimit,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so progress reporting never stalls execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Plan collects the migration's entity selection and builds its phase plan
// without recording a session or issuing any writes. The same plan a Run
// would execute.
func (e *Engine) Plan(ctx context.Context, progress chan<- ProgressUpdate, opts Options) (*planner.Plan, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: record store not initialized", shared.ErrStoreUnavailable)
	}
	if len(opts.Sources) == 0 {
		return nil, fmt.Errorf("%w: at least one source namespace", shared.ErrMissingArgument)
	}
	if opts.Target == "" {
		return nil, fmt.Errorf("%w: target namespace", shared.ErrMissingArgument)
	}

	selected, _, err := e.collect(ctx, progress, opts)
	if err != nil {
		return nil, err
	}

	plan, err := planner.Build(ctx, selected, opts.Target, e.store)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrPlanningFailed, err)
	}
	e.sendProgress(progress, planBuiltUpdate(plan))
	return plan, nil
}

// Run plans and executes a migration. In dry-run mode (Apply false) the plan
// and every match decision are identical to apply mode; only the store
// writes are withheld.
func (e *Engine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts Options) (*Result, error) {
	if err := e.validate(opts); err != nil {
		return nil, err
	}

	name := opts.SessionName
	if name == "" {
		name = fmt.Sprintf("migrate-%s", opts.Target)
	}

	tracker, err := sessions.NewTracker(e.sessions, name, strings.Join(opts.Sources, ","), opts.Target)
	if err != nil {
		return nil, err
	}

	return e.run(ctx, progress, opts, tracker, nil)
}

// Resume reopens a session and continues its migration, skipping every
// operation the ledger already records as completed. The entity selection is
// recomputed from the current store snapshot; entities migrated by the
// earlier run converge via the check-before-write path even if the ledger
// write was lost.
func (e *Engine) Resume(ctx context.Context, progress chan<- ProgressUpdate, sessionID string, opts Options) (*Result, error) {
	tracker, err := sessions.Resume(e.sessions, sessionID)
	if err != nil {
		return nil, err
	}

	session := tracker.Session()
	if session.Status() != models.SessionActive {
		return nil, fmt.Errorf("%w: session %s is %s", shared.ErrSessionClosed, sessionID, session.Status())
	}

	if len(opts.Sources) == 0 && session.Source() != "" {
		opts.Sources = strings.Split(session.Source(), ",")
	}
	if opts.Target == "" {
		opts.Target = session.Target()
	}
	if err := e.validate(opts); err != nil {
		return nil, err
	}

	return e.run(ctx, progress, opts, tracker, tracker.CompletedOperations())
}

func (e *Engine) validate(opts Options) error {
	if e.store == nil {
		return fmt.Errorf("%w: record store not initialized", shared.ErrStoreUnavailable)
	}
	if e.sessions == nil {
		return fmt.Errorf("%w: session store not initialized", shared.ErrStoreUnavailable)
	}
	if len(opts.Sources) == 0 {
		return fmt.Errorf("%w: at least one source namespace", shared.ErrMissingArgument)
	}
	if opts.Target == "" {
		return fmt.Errorf("%w: target namespace", shared.ErrMissingArgument)
	}
	for _, src := range opts.Sources {
		if src == opts.Target {
			return fmt.Errorf("%w: source and target namespace are both %q", shared.ErrInvalidArgument, src)
		}
	}
	return nil
}

func (e *Engine) run(ctx context.Context, progress chan<- ProgressUpdate, opts Options, tracker *sessions.Tracker, done map[string]bool) (*Result, error) {
	result := &Result{
		SessionID: tracker.ID(),
		DryRun:    !opts.Apply,
		Sources:   opts.Sources,
		Target:    opts.Target,
	}

	selected, bySource, err := e.collect(ctx, progress, opts)
	if err != nil {
		tracker.Fail(err.Error())
		return nil, err
	}

	// Planning errors are fatal for the whole run; no partial plan executes.
	plan, err := planner.Build(ctx, selected, opts.Target, e.store)
	if err != nil {
		tracker.Fail(err.Error())
		return nil, fmt.Errorf("%w: %v", shared.ErrPlanningFailed, err)
	}
	result.Plan = plan
	e.sendProgress(progress, planBuiltUpdate(plan))

	if err := e.seedSession(tracker, selected, plan); err != nil {
		return nil, err
	}

	stats, err := e.store.ContainerStats(ctx, opts.Target)
	if err != nil {
		tracker.Fail(err.Error())
		return nil, err
	}
	targetCounts := make(map[string]int, len(stats))
	for _, st := range stats {
		targetCounts[st.Name] = st.EntityCount
	}

	declared := func(container string) bool {
		if opts.Manifest != nil {
			return opts.Manifest.Declares(container)
		}
		_, ok := targetCounts[container]
		return ok
	}

	byName := make(map[string]models.Entity, len(selected))
	for _, entity := range selected {
		byName[entity.Name] = entity
	}

	var limiter *rate.Limiter
	if opts.Apply && e.rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(e.rateLimit), 1)
	}

	total := plan.TotalEntities()
	step := 0

	for _, phase := range plan.Phases {
		e.sendProgress(progress, phaseUpdate(phase.Number, len(plan.Phases)))
		if err := tracker.SetPhase(fmt.Sprintf("phase_%d", phase.Number)); err != nil {
			return nil, err
		}

		for _, entityName := range phase.Entities {
			step++
			entity := byName[entityName]
			op := operationKey(opts.Apply, entityName)

			if done[op] {
				e.record(result, Outcome{
					Entity:        entityName,
					FromContainer: entity.Container,
					Phase:         phase.Number,
					Action:        ActionSkipped,
					Reason:        "completed in earlier run",
				})
				continue
			}

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					tracker.Fail(err.Error())
					return result, err
				}
			}

			e.sendProgress(progress, copyUpdate(step, total, entityName, entity.Container))
			outcome := e.migrateEntity(ctx, progress, tracker, opts, entity, phase.Number, targetCounts, declared, bySource)
			e.record(result, outcome)
		}
	}

	e.summarize(result, plan)

	if opts.Apply {
		for source, names := range bySource {
			if e.allMigrated(result, names) {
				tracker.MarkContainerMigrated(source)
			}
		}
	}

	if err := tracker.Complete(); err != nil {
		return result, err
	}

	e.sendProgress(progress, finalizeUpdate(result))
	return result, nil
}

// collect gathers the custom entities to migrate from every source
// namespace, grouped by their source container.
func (e *Engine) collect(ctx context.Context, progress chan<- ProgressUpdate, opts Options) ([]models.Entity, map[string][]string, error) {
	wanted := map[string]bool{}
	for _, c := range opts.Containers {
		wanted[c] = true
	}

	var selected []models.Entity
	bySource := map[string][]string{}

	for _, source := range opts.Sources {
		e.sendProgress(progress, collectingUpdate(source))

		entities, err := e.store.ListEntities(ctx, source, "")
		if err != nil {
			return nil, nil, err
		}
		if len(entities) == 0 {
			return nil, nil, fmt.Errorf("%w: %s has no entities", shared.ErrNamespaceUnknown, source)
		}

		for _, entity := range entities {
			if len(wanted) > 0 && !wanted[entity.Container] {
				continue
			}
			// Platform-owned records stay where they are.
			if !entity.Custom {
				continue
			}
			selected = append(selected, entity)
			bySource[entity.Container] = append(bySource[entity.Container], entity.Name)
		}
	}

	if len(selected) == 0 {
		return nil, nil, fmt.Errorf("%w: nothing to migrate", shared.ErrInvalidInput)
	}

	return selected, bySource, nil
}

func (e *Engine) seedSession(tracker *sessions.Tracker, selected []models.Entity, plan *planner.Plan) error {
	containers := map[string]bool{}
	var containerNames, entityNames []string
	for _, entity := range selected {
		if !containers[entity.Container] {
			containers[entity.Container] = true
			containerNames = append(containerNames, entity.Container)
		}
		entityNames = append(entityNames, entity.Name)
	}

	if err := tracker.SetPending(containerNames, entityNames); err != nil {
		return err
	}

	detail := fmt.Sprintf("%d entities, %d phases, estimate %s", plan.TotalEntities(), len(plan.Phases), plan.Estimate.Bucket)
	for _, warning := range plan.Warnings {
		e.logger.Warn("plan warning", "warning", warning)
	}
	return tracker.Record("plan", models.StepCompleted, detail)
}

// migrateEntity decides and (in apply mode) executes the copy for one
// entity. Decisions are identical in dry-run and apply mode.
func (e *Engine) migrateEntity(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	tracker *sessions.Tracker,
	opts Options,
	entity models.Entity,
	phase int,
	targetCounts map[string]int,
	declared func(string) bool,
	bySource map[string][]string,
) Outcome {
	op := operationKey(opts.Apply, entity.Name)
	outcome := Outcome{
		Entity:        entity.Name,
		FromContainer: entity.Container,
		Phase:         phase,
	}

	if err := tracker.Record(op, models.StepStarted, ""); err != nil {
		outcome.Action = ActionFailed
		outcome.Reason = err.Error()
		return outcome
	}

	// Reserved containers are hard-rejected before any write.
	if e.matcher.Reserved(entity.Container) {
		outcome.Action = ActionSkipped
		outcome.Reason = fmt.Sprintf("%v: %s", shared.ErrReservedContainer, entity.Container)
		tracker.Record(op, models.StepCompleted, "skipped: "+outcome.Reason)
		return outcome
	}

	destination := entity.Container
	count, present := targetCounts[entity.Container]
	suspect := present && count <= models.OrphanSuspectMax

	if !present || !declared(entity.Container) || suspect {
		match, err := e.match(entity, targetCounts, bySource)
		switch {
		case err == nil:
			destination = match.Container
			outcome.Match = match
			outcome.Action = ActionReassigned
			e.sendProgress(progress, matchUpdate(entity.Name, entity.Container, match.Container, match.Confidence))
		case errors.Is(err, shared.ErrAmbiguousMatch), errors.Is(err, shared.ErrPlatformOwned):
			outcome.Action = ActionSkipped
			outcome.Reason = err.Error()
			tracker.Record(op, models.StepCompleted, "skipped: "+outcome.Reason)
			return outcome
		default:
			outcome.Action = ActionFailed
			outcome.Reason = err.Error()
			tracker.Record(op, models.StepFailed, outcome.Reason)
			return outcome
		}
	} else {
		outcome.Action = ActionCopied
	}
	outcome.ToContainer = destination

	if !opts.Apply {
		tracker.Record(op, models.StepCompleted, fmt.Sprintf("would copy to %s", destination))
		return outcome
	}

	err := e.guard.Run(ctx, func(ctx context.Context) error {
		return e.applyCopy(ctx, opts.Target, entity, destination, outcome.Action == ActionReassigned)
	})
	if err != nil {
		outcome.Action = ActionFailed
		outcome.Reason = err.Error()
		outcome.Match = nil
		tracker.Record(op, models.StepFailed, outcome.Reason)
		return outcome
	}

	targetCounts[destination]++
	tracker.Record(op, models.StepCompleted, fmt.Sprintf("copied to %s", destination))
	tracker.MarkEntityMigrated(entity.Name)
	return outcome
}

// match runs the reconciliation matcher for an entity, handing it the names
// of the entities sharing the suspect source container.
func (e *Engine) match(entity models.Entity, targetCounts map[string]int, bySource map[string][]string) (*models.MatchResult, error) {
	stats := make([]models.ContainerStat, 0, len(targetCounts))
	for name, count := range targetCounts {
		stats = append(stats, models.ContainerStat{Name: name, EntityCount: count})
	}
	sortStats(stats)

	var siblings []string
	for _, name := range bySource[entity.Container] {
		if name != entity.Name {
			siblings = append(siblings, name)
		}
	}

	return e.matcher.Match(entity, stats, siblings)
}

// applyCopy performs the idempotent write for one entity: if the entity
// already exists in the target it is treated as done, so the guard's retry
// of a half-applied copy converges instead of duplicating.
func (e *Engine) applyCopy(ctx context.Context, target string, entity models.Entity, destination string, reassigned bool) error {
	if existing, err := e.store.GetEntity(ctx, target, entity.Name); err == nil {
		if existing.Container != destination {
			return e.store.SetEntityContainer(ctx, target, entity.Name, destination)
		}
		return nil
	} else if !errors.Is(err, shared.ErrEntityNotFound) {
		return err
	}

	containers, err := e.store.ListContainers(ctx, target)
	if err != nil {
		return err
	}
	exists := false
	for _, c := range containers {
		if c.Name == destination {
			exists = true
			break
		}
	}

	if !exists {
		if reassigned {
			// The matched container vanished between analysis and apply.
			return fmt.Errorf("%w: %s missing at apply time", shared.ErrDuplicateTarget, destination)
		}
		if err := e.store.CreateContainer(ctx, models.Container{Namespace: target, Name: destination, Custom: true}); err != nil {
			return err
		}
	}

	copied := entity
	copied.Namespace = target
	copied.Container = destination
	return e.store.CreateEntity(ctx, copied)
}

func (e *Engine) record(result *Result, outcome Outcome) {
	result.Outcomes = append(result.Outcomes, outcome)
	switch outcome.Action {
	case ActionCopied:
		result.Copied++
	case ActionReassigned:
		result.Reassigned++
	case ActionSkipped:
		result.Skipped++
	case ActionFailed:
		result.Failed++
		e.logger.Error("entity migration failed", "entity", outcome.Entity, "reason", outcome.Reason)
	}
}

func (e *Engine) summarize(result *Result, plan *planner.Plan) {
	byPhase := map[int]*PhaseSummary{}
	for _, phase := range plan.Phases {
		byPhase[phase.Number] = &PhaseSummary{Phase: phase.Number}
	}
	for _, outcome := range result.Outcomes {
		summary, ok := byPhase[outcome.Phase]
		if !ok {
			continue
		}
		switch outcome.Action {
		case ActionCopied:
			summary.Copied++
		case ActionReassigned:
			summary.Reassigned++
		case ActionSkipped:
			summary.Skipped++
		case ActionFailed:
			summary.Failed++
		}
	}
	for _, phase := range plan.Phases {
		result.PerPhase = append(result.PerPhase, *byPhase[phase.Number])
	}
}

func (e *Engine) allMigrated(result *Result, names []string) bool {
	status := map[string]Action{}
	for _, outcome := range result.Outcomes {
		status[outcome.Entity] = outcome.Action
	}
	for _, name := range names {
		switch status[name] {
		case ActionCopied, ActionReassigned:
		default:
			return false
		}
	}
	return true
}

// operationKey names a ledger operation for one entity. Dry-run decisions
// are keyed apart from applied copies so a later apply never mistakes a
// preview for completed work.
func operationKey(apply bool, entity string) string {
	if apply {
		return "copy:" + entity
	}
	return "preview:" + entity
}

func sortStats(stats []models.ContainerStat) {
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
}
