package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/typetour/internal/logger"
)

// costLimit bounds the work a single expression may do
const costLimit = 1_000_000

// program is the compiled form of a rule
type program struct {
	condition cel.Program
	message   cel.Program
}

// Engine compiles portion rules and evaluates them against order facts.
// Safe for concurrent use.
type Engine struct {
	env      *cel.Env
	store    RuleStore
	cache    RulesCache
	programs map[string]program // ruleID -> compiled rule
	mu       sync.RWMutex
	writeMu  sync.Mutex // serializes AddRule, UpdateRule and DeleteRule
}

// NewEnv declares the order variable as a map of dynamic values
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(OrderVar, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// NewEngine creates an engine over store and compiles its active rules
func NewEngine(store RuleStore) (*Engine, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}
	return NewEngineWithEnv(env, store)
}

// NewEngineWithEnv creates an engine with a custom CEL environment
func NewEngineWithEnv(env *cel.Env, store RuleStore) (*Engine, error) {
	en := &Engine{
		env:      env,
		store:    store,
		cache:    NewInMemoryRulesCache(DefaultCacheConfig()),
		programs: make(map[string]program),
	}

	if err := en.CompileAllRules(); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	return en, nil
}

// compile type-checks one expression. The output must be want or dyn.
func (en *Engine) compile(expr string, want *cel.Type) (cel.Program, error) {
	ast, issues := en.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	out := ast.OutputType()
	if !out.IsExactType(want) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression %q has type %s, want %s", expr, out, want)
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// CompileRule compiles a rule's condition and message and caches the result
func (en *Engine) CompileRule(r *Rule) error {
	cond, err := en.compile(r.Condition, cel.BoolType)
	if err != nil {
		return fmt.Errorf("condition: %w", err)
	}
	msg, err := en.compile(r.Message, cel.StringType)
	if err != nil {
		return fmt.Errorf("message: %w", err)
	}

	en.mu.Lock()
	en.programs[r.ID] = program{condition: cond, message: msg}
	en.mu.Unlock()

	return nil
}

// CompileAllRules compiles the store's active rules and primes the cache
func (en *Engine) CompileAllRules() error {
	active, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, r := range active {
		if err := en.CompileRule(r); err != nil {
			return fmt.Errorf("failed to compile rule %s: %w", r.ID, err)
		}
	}

	en.cache.Set(active)
	return nil
}

// eval runs a compiled rule. A non-bool condition counts as no match.
func (en *Engine) eval(r *Rule, facts map[string]any) *EvaluationResult {
	result := &EvaluationResult{RuleID: r.ID, RuleName: r.Name}

	en.mu.RLock()
	prog, exists := en.programs[r.ID]
	en.mu.RUnlock()

	if !exists {
		result.Error = fmt.Errorf("rule %s is not compiled", r.ID)
		return result
	}

	out, details, err := prog.condition.Eval(facts)
	if err != nil {
		result.Error = err
		return result
	}
	if details != nil {
		result.Trace = details.State()
	}

	matched, _ := out.Value().(bool)
	if !matched {
		return result
	}

	msgOut, _, err := prog.message.Eval(facts)
	if err != nil {
		result.Error = fmt.Errorf("message: %w", err)
		return result
	}
	text, ok := msgOut.Value().(string)
	if !ok {
		result.Error = fmt.Errorf("message of rule %s evaluated to %T, want string", r.ID, msgOut.Value())
		return result
	}

	result.Matched = true
	result.Message = text
	return result
}

// Evaluate evaluates a single rule against facts
func (en *Engine) Evaluate(ruleID string, facts map[string]any) (*EvaluationResult, error) {
	r, err := en.store.Get(ruleID)
	if err != nil {
		return nil, err
	}

	result := en.eval(r, facts)
	return result, result.Error
}

// activeRules serves the active list from cache, refilling it on a miss
func (en *Engine) activeRules() ([]*Rule, error) {
	if cached := en.cache.Get(); cached != nil {
		return cached, nil
	}

	active, err := en.store.ListActive()
	if err != nil {
		return nil, err
	}
	en.cache.Set(active)
	return active, nil
}

// EvaluateAll evaluates every active rule in order.
// A failing rule is reported in its result and does not stop the rest.
func (en *Engine) EvaluateAll(facts map[string]any) ([]*EvaluationResult, error) {
	active, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	results := make([]*EvaluationResult, 0, len(active))
	for _, r := range active {
		results = append(results, en.eval(r, facts))
	}
	return results, nil
}

// FirstMatch returns the first active rule that matches, or nil.
// Rules that fail are logged and skipped.
func (en *Engine) FirstMatch(facts map[string]any) (*EvaluationResult, error) {
	active, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	for _, r := range active {
		result := en.eval(r, facts)
		if result.Error != nil {
			logger.WarnRuleFailure(r.ID, result.Error)
			continue
		}
		if result.Matched {
			return result, nil
		}
	}
	return nil, nil
}

// AddRule validates and compiles a rule, then stores it.
// The compiled program is dropped again if the store rejects the rule.
func (en *Engine) AddRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}

	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	if _, err := en.store.Get(r.ID); err == nil {
		return fmt.Errorf("rule %s: %w", r.ID, ErrRuleExists)
	}

	en.mu.RLock()
	previous, hadPrevious := en.programs[r.ID]
	en.mu.RUnlock()

	if err := en.CompileRule(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	if err := en.store.Add(r); err != nil {
		en.restoreProgram(r.ID, previous, hadPrevious)
		return err
	}

	en.cache.Invalidate()
	return nil
}

// UpdateRule validates and recompiles a rule, then stores it.
// The previous program is restored if the store rejects the update.
func (en *Engine) UpdateRule(r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return err
	}

	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	en.mu.RLock()
	previous, hadPrevious := en.programs[r.ID]
	en.mu.RUnlock()

	if err := en.CompileRule(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	if err := en.store.Update(r); err != nil {
		en.restoreProgram(r.ID, previous, hadPrevious)
		return err
	}

	en.cache.Invalidate()
	return nil
}

// restoreProgram puts back the program a failed write replaced
func (en *Engine) restoreProgram(ruleID string, previous program, hadPrevious bool) {
	en.mu.Lock()
	defer en.mu.Unlock()
	if hadPrevious {
		en.programs[ruleID] = previous
	} else {
		delete(en.programs, ruleID)
	}
}

// DeleteRule removes a rule from the store and drops its program
func (en *Engine) DeleteRule(ruleID string) error {
	en.writeMu.Lock()
	defer en.writeMu.Unlock()

	if err := en.store.Delete(ruleID); err != nil {
		return err
	}

	en.mu.Lock()
	delete(en.programs, ruleID)
	en.mu.Unlock()

	en.cache.Invalidate()
	return nil
}

// GetRule returns a stored rule
func (en *Engine) GetRule(ruleID string) (*Rule, error) {
	return en.store.Get(ruleID)
}

// ListRules returns every stored rule in evaluation order
func (en *Engine) ListRules() ([]*Rule, error) {
	return en.store.List()
}
