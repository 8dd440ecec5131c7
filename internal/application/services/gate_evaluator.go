package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/adcatlas/curation-backend/internal/domain/entities"
)

// GateInput is everything a rule may look at
type GateInput struct {
	Record   *entities.CurationRecord
	Evidence []*entities.EvidenceItem
}

// GateCheckFunc is a pure predicate over a record and its linked evidence
type GateCheckFunc func(in GateInput) bool

// SubCheck is a named part of a composite rule
type SubCheck struct {
	Name  string
	Check GateCheckFunc
}

// GateRule is one named readiness criterion. A rule with sub-checks and no
// Check passes when every sub-check passes.
type GateRule struct {
	Name        string
	Description string
	Required    bool
	Check       GateCheckFunc
	SubChecks   []SubCheck
}

func (r GateRule) evaluate(in GateInput) (bool, map[string]bool) {
	if len(r.SubChecks) == 0 {
		return r.Check != nil && r.Check(in), nil
	}
	subs := make(map[string]bool, len(r.SubChecks))
	passed := true
	for _, sc := range r.SubChecks {
		ok := sc.Check != nil && sc.Check(in)
		subs[sc.Name] = ok
		passed = passed && ok
	}
	if r.Check != nil {
		passed = passed && r.Check(in)
	}
	return passed, subs
}

// GateEvaluator holds rule profiles keyed by record kind
type GateEvaluator struct {
	mu             sync.RWMutex
	profiles       map[string][]GateRule
	defaultProfile string
}

// NewGateEvaluator creates an evaluator with no rules. Most callers want NewDefaultGateEvaluator.
func NewGateEvaluator(defaultProfile string) *GateEvaluator {
	return &GateEvaluator{
		profiles:       make(map[string][]GateRule),
		defaultProfile: defaultProfile,
	}
}

// Register adds a rule to a profile. Rule names are unique per profile.
func (g *GateEvaluator) Register(profile string, rule GateRule) error {
	if profile == "" || rule.Name == "" {
		return fmt.Errorf("profile and rule name are required")
	}
	if rule.Check == nil && len(rule.SubChecks) == 0 {
		return fmt.Errorf("rule %s has no check", rule.Name)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.profiles[profile] {
		if existing.Name == rule.Name {
			return fmt.Errorf("rule %s already registered in profile %s", rule.Name, profile)
		}
	}
	g.profiles[profile] = append(g.profiles[profile], rule)
	return nil
}

// Profiles returns the registered profile names, sorted
func (g *GateEvaluator) Profiles() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.profiles))
	for name := range g.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileFor returns the profile used for a record kind, falling back to the default profile
func (g *GateEvaluator) ProfileFor(kind string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.profiles[kind]; ok {
		return kind
	}
	return g.defaultProfile
}

// Evaluate runs the profile matching the record's kind
func (g *GateEvaluator) Evaluate(in GateInput) entities.GateCheckResult {
	kind := ""
	if in.Record != nil {
		kind = in.Record.Kind
	}
	return g.EvaluateProfile(g.ProfileFor(kind), in)
}

// EvaluateProfile runs every rule of the named profile. Score counts required
// rules only and the result passes iff every required rule passes.
func (g *GateEvaluator) EvaluateProfile(profile string, in GateInput) entities.GateCheckResult {
	g.mu.RLock()
	rules := g.profiles[profile]
	g.mu.RUnlock()

	result := entities.GateCheckResult{
		Profile:  profile,
		Passed:   true,
		Checks:   make(map[string]bool),
		Optional: make(map[string]bool),
		Order:    make([]string, 0, len(rules)),
	}
	if in.Record != nil {
		result.RecordID = in.Record.ID
		result.Version = in.Record.Version
	}

	for _, rule := range rules {
		ok, subs := rule.evaluate(in)
		result.Order = append(result.Order, rule.Name)
		if subs != nil {
			if result.SubChecks == nil {
				result.SubChecks = make(map[string]map[string]bool)
			}
			result.SubChecks[rule.Name] = subs
		}
		if !rule.Required {
			result.Optional[rule.Name] = ok
			continue
		}
		result.Checks[rule.Name] = ok
		result.MaxScore++
		if ok {
			result.Score++
		} else {
			result.Passed = false
		}
	}
	return result
}
