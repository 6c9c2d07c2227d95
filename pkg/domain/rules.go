package domain

import (
	"context"
	"fmt"
)

// Action indicates the type of modification performed.
type Action string

// Change actions recorded by transactions.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	// ActionDelete indicates an entity was deleted.
	ActionDelete Action = "delete"
	// ActionReplace indicates the whole dataset was replaced by an import.
	ActionReplace Action = "replace"
)

// Change captures a single mutation within a transaction.
type Change struct {
	Entity EntityType
	Action Action
	ID     string
	Before any
	After  any
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but allows commit.
	SeverityWarn Severity = "warn"
)

// Violation describes a single rule finding.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by %s: %s", v.Rule, v.Message)
		}
	}
	return "transaction blocked by rules"
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view TransactionView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// NewDefaultRulesEngine returns an engine with the referential integrity rule registered.
func NewDefaultRulesEngine() *RulesEngine {
	e := NewRulesEngine()
	e.Register(NewReferentialIntegrityRule())
	return e
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view TransactionView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}

// NewReferentialIntegrityRule blocks commits whose regular changes would
// leave a brand without its profile or a size without its brand. Replace
// changes from an import are exempt; import does not validate references.
func NewReferentialIntegrityRule() Rule {
	return referentialIntegrityRule{}
}

type referentialIntegrityRule struct{}

const referentialIntegrityRuleName = "referential_integrity"

func (referentialIntegrityRule) Name() string { return referentialIntegrityRuleName }

func (referentialIntegrityRule) Evaluate(_ context.Context, view TransactionView, changes []Change) (Result, error) {
	var res Result
	block := func(entity EntityType, id, msg string) {
		res.Violations = append(res.Violations, Violation{
			Rule:     referentialIntegrityRuleName,
			Severity: SeverityBlock,
			Message:  msg,
			Entity:   entity,
			EntityID: id,
		})
	}
	for _, change := range changes {
		switch change.Action {
		case ActionCreate, ActionUpdate:
			switch change.Entity {
			case EntityBrand:
				brand, ok := view.FindBrand(change.ID)
				if !ok {
					continue
				}
				if _, ok := view.FindProfile(brand.ProfileID); !ok {
					block(EntityBrand, brand.ID, fmt.Sprintf("brand %s references missing profile %s", brand.ID, brand.ProfileID))
				}
			case EntitySize:
				size, ok := view.FindSize(change.ID)
				if !ok {
					continue
				}
				if _, ok := view.FindBrand(size.BrandID); !ok {
					block(EntitySize, size.ID, fmt.Sprintf("size %s references missing brand %s", size.ID, size.BrandID))
				}
			}
		case ActionDelete:
			switch change.Entity {
			case EntityProfile:
				if n := len(view.ListBrandsByProfile(change.ID)); n > 0 {
					block(EntityProfile, change.ID, fmt.Sprintf("profile %s deleted with %d brands remaining", change.ID, n))
				}
			case EntityBrand:
				if n := len(view.ListSizesByBrand(change.ID)); n > 0 {
					block(EntityBrand, change.ID, fmt.Sprintf("brand %s deleted with %d sizes remaining", change.ID, n))
				}
			}
		}
	}
	return res, nil
}
