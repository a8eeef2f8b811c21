// Package pipeline assembles the comparison research flow: the seven agent
// steps, the routes between them, and the two loop-back edges that make the
// workflow re-entrant.
//
// Graph shape:
//
//	query_analyzer → research_coordinator → web_researcher → data_analyst → validator
//	validator → web_researcher          (findings incomplete, narrowed re-research)
//	validator → quality_controller      (findings complete, or loop budget spent)
//	quality_controller → validator      (confidence below threshold)
//	quality_controller → report_generator
//	report_generator → Completed
package pipeline

import (
	"fmt"

	"github.com/rivalscan/rivalscan/agents"
	"github.com/rivalscan/rivalscan/flow"
	"github.com/rivalscan/rivalscan/provider"
)

// Config tunes the pipeline's routing and research behavior.
type Config struct {
	// DefaultEntities are compared when the query names no products.
	DefaultEntities []string

	// DefaultFocusAreas are used when the query names no dimensions.
	DefaultFocusAreas []string

	// ConfidenceThreshold is the minimum quality score that proceeds to
	// report generation without a re-validation loop. Default: 0.7
	ConfidenceThreshold float64

	// MaxResearchLoops bounds validator→researcher loop-backs. Default: 2
	MaxResearchLoops int

	// MaxQualityLoops bounds quality→validator loop-backs. Default: 1
	MaxQualityLoops int

	// SearchLimit bounds hits per search query. Default: 5
	SearchLimit int
}

// DefaultConfig returns the stock pipeline configuration, mirroring the
// canonical CRM comparison setup.
func DefaultConfig() Config {
	return Config{
		DefaultEntities:     []string{"HubSpot", "Zoho", "Salesforce"},
		DefaultFocusAreas:   []string{"pricing", "features", "integrations", "limitations"},
		ConfidenceThreshold: 0.7,
		MaxResearchLoops:    2,
		MaxQualityLoops:     1,
		SearchLimit:         5,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if len(c.DefaultEntities) == 0 {
		c.DefaultEntities = d.DefaultEntities
	}
	if len(c.DefaultFocusAreas) == 0 {
		c.DefaultFocusAreas = d.DefaultFocusAreas
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if c.MaxResearchLoops <= 0 {
		c.MaxResearchLoops = d.MaxResearchLoops
	}
	if c.MaxQualityLoops <= 0 {
		c.MaxQualityLoops = d.MaxQualityLoops
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = d.SearchLimit
	}
}

// New builds the engine for one comparison pipeline over the given
// providers. Engine options (logger, sink, caps, checkpointer) pass through.
func New(llm provider.Completer, search provider.Searcher, cfg Config, opts ...flow.EngineOption) (*flow.Engine, error) {
	if llm == nil {
		return nil, fmt.Errorf("pipeline requires a completion provider")
	}
	if search == nil {
		return nil, fmt.Errorf("pipeline requires a search provider")
	}
	cfg.applyDefaults()

	steps := []flow.Step{
		agents.NewQueryAnalyzer(llm, cfg.DefaultEntities, cfg.DefaultFocusAreas),
		agents.NewResearchCoordinator(),
		agents.NewWebResearcher(search, cfg.SearchLimit),
		agents.NewDataAnalyst(llm),
		agents.NewValidator(llm),
		agents.NewQualityController(llm),
		agents.NewReportGenerator(llm),
	}

	return flow.NewEngine(steps, Routes(cfg), agents.StepAnalyzer, opts...)
}

// Routes declares the pipeline's edges for the given config. Exposed so the
// routing table can be exercised independently of live steps.
func Routes(cfg Config) *flow.Router {
	cfg.applyDefaults()

	router := flow.NewRouter()
	router.Default(agents.StepAnalyzer, agents.StepCoordinator)
	router.Default(agents.StepCoordinator, agents.StepResearcher)
	router.Default(agents.StepResearcher, agents.StepAnalyst)
	router.Default(agents.StepAnalyst, agents.StepValidator)

	// Loop-back (a): incomplete findings trigger narrowed re-research until
	// the loop budget is spent, then the run proceeds with available data.
	router.Add(agents.StepValidator, agents.StepResearcher, needsResearch(cfg.MaxResearchLoops))
	router.Default(agents.StepValidator, agents.StepQuality)

	// Loop-back (b): low confidence re-validates, bounded the same way. A
	// score exactly at the threshold proceeds.
	router.Add(agents.StepQuality, agents.StepValidator, needsRevalidation(cfg.ConfidenceThreshold, cfg.MaxQualityLoops))
	router.Default(agents.StepQuality, agents.StepReporter)

	router.Default(agents.StepReporter, flow.Completed)
	return router
}

// needsResearch matches when validation found gaps and the research loop
// budget is not yet spent.
func needsResearch(maxLoops int) flow.Predicate {
	return func(state *flow.State) bool {
		if state.GetBool(agents.FieldValidationDone) {
			return false
		}
		loops, _ := state.GetFloat(agents.FieldRevalidations)
		return int(loops) <= maxLoops
	}
}

// needsRevalidation matches when confidence is strictly below the threshold
// and the quality loop budget is not yet spent.
func needsRevalidation(threshold float64, maxLoops int) flow.Predicate {
	return func(state *flow.State) bool {
		confidence, ok := state.GetFloat(agents.FieldConfidence)
		if !ok || confidence >= threshold {
			return false
		}
		checks, _ := state.GetFloat(agents.FieldQualityRechecks)
		return int(checks) <= maxLoops
	}
}
