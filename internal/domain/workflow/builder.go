package workflow

import "fmt"

// GuardFunc evaluates whether a transition admits the given facts
type GuardFunc func(facts Facts) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns the configuration for the given status
	Configure(status Status) StateConfiguration

	// Build creates a new state machine positioned at the given status
	Build(initial Status) StateMachine
}

// StateConfiguration configures transitions leaving one status
type StateConfiguration interface {
	// Permit allows an action to move to the target status
	Permit(action Action, to Status) StateConfiguration

	// PermitIf allows an action to move to the target status when the guard passes
	PermitIf(action Action, to Status, guard GuardFunc) StateConfiguration
}

type transition struct {
	to    Status
	guard GuardFunc
}

type stateConfig struct {
	from        Status
	transitions map[Action][]transition
}

type stateMachineBuilder struct {
	configurations map[Status]*stateConfig
}

type stateMachine struct {
	current        Status
	configurations map[Status]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[Status]*stateConfig),
	}
}

// Configure returns the configuration for the given status
func (b *stateMachineBuilder) Configure(status Status) StateConfiguration {
	if !status.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", status))
	}

	config, exists := b.configurations[status]
	if !exists {
		config = &stateConfig{
			from:        status,
			transitions: make(map[Action][]transition),
		}
		b.configurations[status] = config
	}

	return config
}

// Build creates a new state machine positioned at the given status
func (b *stateMachineBuilder) Build(initial Status) StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial status: %s", initial))
	}

	// Copy so later Configure calls do not leak into built machines
	configsCopy := make(map[Status]*stateConfig, len(b.configurations))
	for status, config := range b.configurations {
		transitionsCopy := make(map[Action][]transition, len(config.transitions))
		for action, transitions := range config.transitions {
			transitionsCopy[action] = append([]transition{}, transitions...)
		}
		configsCopy[status] = &stateConfig{
			from:        status,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		current:        initial,
		configurations: configsCopy,
	}
}

// Permit allows an action to move to the target status
func (c *stateConfig) Permit(action Action, to Status) StateConfiguration {
	return c.PermitIf(action, to, nil)
}

// PermitIf allows an action to move to the target status when the guard passes
func (c *stateConfig) PermitIf(action Action, to Status, guard GuardFunc) StateConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}
	if c.from.IsTerminal() {
		panic(fmt.Sprintf("terminal status %s cannot have outgoing transitions", c.from))
	}

	c.transitions[action] = append(c.transitions[action], transition{
		to:    to,
		guard: guard,
	})

	return c
}

// Status returns the current status
func (m *stateMachine) Status() Status {
	return m.current
}

// CanFire returns true if the action is configured from the current status.
// Guards are not evaluated.
func (m *stateMachine) CanFire(action Action) bool {
	config, exists := m.configurations[m.current]
	if !exists {
		return false
	}
	return len(config.transitions[action]) > 0
}

// Fire attempts the action; the first transition whose guard passes wins
func (m *stateMachine) Fire(facts Facts, action Action) error {
	config, exists := m.configurations[m.current]
	if !exists {
		return fmt.Errorf("%w: cannot fire %s from %s (no configuration)", ErrInvalidTransition, action, m.current)
	}

	transitions := config.transitions[action]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, action, m.current)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(facts) {
			m.current = t.to
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s by %s", ErrGuardFailed, action, m.current, facts.Role)
}
