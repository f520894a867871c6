package updater

import (
	"context"
	"fmt"
	"strings"

	"modsecsync/rulestore"
	"modsecsync/secrule"

	"github.com/rs/zerolog"
)

// State is the stage a synchronization pass is in. Passes run one stage at a
// time and return to StateIdle whether they succeed or fail.
type State int

// Synchronization pass states.
const (
	StateIdle State = iota
	StateLoading
	StateFiltering
	StateDiffing
	StateAppending
	StateTriggering
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateFiltering:
		return "Filtering"
	case StateDiffing:
		return "Diffing"
	case StateAppending:
		return "Appending"
	case StateTriggering:
		return "Triggering"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Candidate names a rule the telemetry collaborator saw firing, with its
// aggregated trigger count. The id may arrive in either original or
// namespaced form.
type Candidate struct {
	RuleID       string
	TriggerCount int
}

// PassResult is the outcome of one synchronization pass. Partial failures
// are reported here rather than raised: records already appended stay
// committed even when a later stage fails.
type PassResult struct {
	Appended  []secrule.RuleRecord
	TriggerOK bool
	Errors    []error
}

// AppendedCount returns how many rules the pass added to the store.
func (r PassResult) AppendedCount() int {
	return len(r.Appended)
}

// DeploymentTrigger pushes the updated store to the live enforcement point.
type DeploymentTrigger interface {
	Deploy(ctx context.Context, ruleIDs []string) error
}

// ResultsLogger is where the sync engine writes high level operator facing
// results.
type ResultsLogger interface {
	RuleAppended(record secrule.RuleRecord)
	RuleSkipped(record secrule.RuleRecord, reason string)
	PassCompleted(result PassResult)
}

// SyncEngine runs synchronization passes. A pass loads and filters the
// vendor rule source, diffs the namespaced candidates against the store,
// appends what is missing and triggers a redeployment. Passes must not run
// concurrently against the same store file; the caller serializes runs.
type SyncEngine interface {
	// Run executes one pass. candidates orders and restricts the pass to
	// rules the telemetry collaborator saw firing; a nil slice processes
	// every eligible rule in source file order.
	Run(ctx context.Context, candidates []Candidate) PassResult
}

type syncEngineImpl struct {
	logger        zerolog.Logger
	loader        secrule.RuleLoader
	namespacer    secrule.Namespacer
	store         rulestore.Store
	trigger       DeploymentTrigger
	resultsLogger ResultsLogger
	sourcePath    string
	state         State
}

// NewSyncEngine creates a SyncEngine reading vendor rules from sourcePath.
func NewSyncEngine(logger zerolog.Logger, loader secrule.RuleLoader, namespacer secrule.Namespacer, store rulestore.Store, trigger DeploymentTrigger, resultsLogger ResultsLogger, sourcePath string) SyncEngine {
	return &syncEngineImpl{
		logger:        logger,
		loader:        loader,
		namespacer:    namespacer,
		store:         store,
		trigger:       trigger,
		resultsLogger: resultsLogger,
		sourcePath:    sourcePath,
		state:         StateIdle,
	}
}

func (e *syncEngineImpl) Run(ctx context.Context, candidates []Candidate) (result PassResult) {
	defer func() {
		e.setState(StateIdle)
		e.resultsLogger.PassCompleted(result)
	}()

	e.setState(StateLoading)
	records, err := e.loader.Load(e.sourcePath)
	if err != nil {
		result.Errors = append(result.Errors, err)
		return
	}

	if err := e.store.Load(); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}

	if conflicts := e.store.Conflicts(); len(conflicts) > 0 {
		result.Errors = append(result.Errors, fmt.Errorf("custom rule store has rules deployed under both original and namespaced ids: %s", strings.Join(conflicts, ", ")))
		return
	}

	e.setState(StateFiltering)
	for i := range records {
		records[i] = e.namespacer.Apply(records[i])
	}

	e.setState(StateDiffing)
	eligible := e.diff(records, candidates)

	e.setState(StateAppending)
	for _, record := range eligible {
		if err := e.store.Append(record); err != nil {
			result.Errors = append(result.Errors, err)
			return
		}

		result.Appended = append(result.Appended, record)
		e.resultsLogger.RuleAppended(record)
	}

	if len(result.Appended) == 0 {
		e.logger.Info().Msg("No new eligible rules found to add")
		result.TriggerOK = true
		return
	}

	if err := e.store.Finalize(); err != nil {
		result.Errors = append(result.Errors, err)
		return
	}

	e.setState(StateTriggering)
	if err := e.trigger.Deploy(ctx, e.store.DeclaredIDs()); err != nil {
		// The store mutation stays committed; the enforcement point catches
		// up on the next successful trigger.
		result.Errors = append(result.Errors, err)
		return
	}

	result.TriggerOK = true
	return
}

// diff selects the records to append: candidate order when telemetry is
// supplied, source file order otherwise. A record survives only if its
// original id came out of the filtered source set and neither id form is
// already deployed or selected earlier in this pass.
func (e *syncEngineImpl) diff(records []secrule.RuleRecord, candidates []Candidate) (eligible []secrule.RuleRecord) {
	ordered := records
	if candidates != nil {
		bySourceID := make(map[string]secrule.RuleRecord, len(records))
		for _, r := range records {
			bySourceID[r.OriginalID] = r
		}

		ordered = nil
		for _, c := range candidates {
			r, ok := bySourceID[e.namespacer.OriginalID(c.RuleID)]
			if !ok {
				e.logger.Debug().Str("ruleID", c.RuleID).Msg("Telemetry candidate is not in the filtered source set, skipping")
				continue
			}

			r.TriggerCount = c.TriggerCount
			ordered = append(ordered, r)
		}
	}

	selected := make(map[string]bool, len(ordered))
	for _, r := range ordered {
		if e.store.Contains(r.OriginalID) || e.store.Contains(r.CustomID) || selected[r.CustomID] {
			e.resultsLogger.RuleSkipped(r, "already deployed")
			continue
		}

		selected[r.CustomID] = true
		eligible = append(eligible, r)
	}

	return
}

func (e *syncEngineImpl) setState(s State) {
	if e.state == s {
		return
	}

	e.logger.Debug().Stringer("from", e.state).Stringer("to", s).Msg("Synchronization pass state change")
	e.state = s
}
