// Package trigger evaluates rules on snapshot transitions.
package trigger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/mpapenbr/f1-race-engineer/log"
	"github.com/mpapenbr/f1-race-engineer/pkg/model"
)

var (
	ErrDuplicateRule = errors.New("duplicate rule id")
	ErrInvalidRule   = errors.New("rule needs either a predicate or levels")
)

type cooldownKey struct {
	rule   model.RuleID
	driver string
}

// Engine emits at most one event per evaluated transition.
// It is not safe for concurrent use.
type Engine struct {
	log       *log.Logger
	rules     []Rule
	cooldowns map[cooldownKey]*Cooldown
	// level keys already reported, per level rule and driver
	reported map[cooldownKey]map[string]bool
	newID    func() uuid.UUID
}

type Option func(e *Engine)

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithRules replaces the built-in rules
func WithRules(rules ...Rule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		log:       log.Default().Named("trigger"),
		rules:     BuiltinRules(),
		cooldowns: make(map[cooldownKey]*Cooldown),
		reported:  make(map[cooldownKey]map[string]bool),
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	seen := make(map[model.RuleID]bool, len(e.rules))
	for i := range e.rules {
		if seen[e.rules[i].ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, e.rules[i].ID)
		}
		seen[e.rules[i].ID] = true
		if (e.rules[i].Predicate == nil) == (e.rules[i].Levels == nil) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRule, e.rules[i].ID)
		}
	}
	return e, nil
}

func (e *Engine) Rules() []Rule {
	return e.rules
}

// Reset re-arms all rules for all drivers
func (e *Engine) Reset() {
	e.cooldowns = make(map[cooldownKey]*Cooldown)
	e.reported = make(map[cooldownKey]map[string]bool)
}

// CooldownOf returns the current cooldown state of a rule for a driver
func (e *Engine) CooldownOf(rule model.RuleID, driverID string) Cooldown {
	if c, ok := e.cooldowns[cooldownKey{rule, driverID}]; ok {
		return *c
	}
	return Cooldown{}
}

func (e *Engine) cooldown(rule model.RuleID, driverID string) *Cooldown {
	k := cooldownKey{rule, driverID}
	c, ok := e.cooldowns[k]
	if !ok {
		c = &Cooldown{}
		e.cooldowns[k] = c
	}
	return c
}

// candidate returns the first level of cur not reported yet. Reported levels
// which no longer hold are forgotten, so they are reported again once they
// return. Nothing is pruned while the rule can't judge cur.
func (e *Engine) candidate(r *Rule, driverID string, cur *model.DriverSnapshot, th *Thresholds) (
	lvl Level, ok bool,
) {
	levels, known := r.Levels(cur, th)
	if !known {
		return Level{}, false
	}
	k := cooldownKey{r.ID, driverID}
	done := e.reported[k]
	for key := range done {
		if !lo.ContainsBy(levels, func(l Level) bool { return l.Key == key }) {
			delete(done, key)
		}
	}
	return lo.Find(levels, func(l Level) bool { return !done[l.Key] })
}

func (e *Engine) markReported(r *Rule, driverID, key string) {
	k := cooldownKey{r.ID, driverID}
	if e.reported[k] == nil {
		e.reported[k] = make(map[string]bool)
	}
	e.reported[k][key] = true
}

// Evaluate checks all rules allowed in the session kind of cur against the
// transition prev -> cur. The highest priority rule whose predicate holds and
// which is armed for driverID wins. Only the winner goes into cooldown.
// A level that loses or is cooling down stays pending for later updates.
//
//nolint:whitespace // can't make both editor and linter happy
func (e *Engine) Evaluate(
	now time.Time,
	driverID string,
	prev, cur *model.DriverSnapshot,
	th *Thresholds,
) []model.Event {
	if prev.RaceFinished {
		return nil
	}
	kind := cur.Session.Kind
	if kind == model.KindUnknown {
		kind = model.KindPractice
	}

	var (
		winner   *Rule
		payload  model.Payload
		levelKey string
	)
	for i := range e.rules {
		r := &e.rules[i]
		if !r.Kinds.Has(kind) {
			continue
		}
		var (
			p   model.Payload
			key string
			ok  bool
		)
		if r.Levels != nil {
			// evaluated on every update to forget levels which ended
			var lvl Level
			lvl, ok = e.candidate(r, driverID, cur, th)
			p, key = lvl.Payload, lvl.Key
		}
		if winner != nil && r.Priority <= winner.Priority {
			continue
		}
		if r.Predicate != nil {
			p, ok = r.Predicate(prev, cur, th)
		}
		if !ok {
			continue
		}
		if !e.cooldown(r.ID, driverID).Ready(now) {
			e.log.Debug("rule cooling down",
				log.String("rule", string(r.ID)),
				log.String("driver", driverID))
			continue
		}
		winner, payload, levelKey = r, p, key
	}
	if winner == nil {
		return nil
	}
	e.cooldown(winner.ID, driverID).Fire(now, winner.Cooldown)
	if winner.Levels != nil {
		e.markReported(winner, driverID, levelKey)
	}

	ev := model.Event{
		ID:         e.newID(),
		Rule:       winner.ID,
		DriverID:   driverID,
		Priority:   winner.Priority,
		SessionUID: cur.Session.UID,
		Lap:        cur.Lap.LapNumber,
		Timestamp:  now,
		Payload:    payload,
	}
	e.log.Debug("event emitted",
		log.String("rule", string(ev.Rule)),
		log.String("driver", driverID),
		log.Int("priority", ev.Priority))
	return []model.Event{ev}
}
