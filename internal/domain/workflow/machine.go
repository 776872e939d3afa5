package workflow

import (
	"fmt"
	"sort"

	"github.com/garyjia/content-workflow/internal/domain/entity"
)

// Definition is a snapshot of the configured states and transitions of one workflow type
type Definition struct {
	Type        entity.WorkflowType
	States      []*entity.State
	Transitions []*entity.Transition
}

// Machine is a read-only state machine for entities of kind K.
// It decides; it never mutates entities or storage.
type Machine[K Kind] struct {
	states      map[int64]*entity.State
	byName      map[string]*entity.State
	transitions map[int64]*entity.Transition
	outgoing    map[int64][]*entity.Transition
	initial     *entity.State
}

// NewMachine builds a machine from a definition of K's workflow type
func NewMachine[K Kind](def Definition) (*Machine[K], error) {
	want := TypeOf[K]()
	if def.Type != want {
		return nil, fmt.Errorf("%w: definition type %s does not match %s", ErrInvalidDefinition, def.Type, want)
	}

	m := &Machine[K]{
		states:      make(map[int64]*entity.State, len(def.States)),
		byName:      make(map[string]*entity.State, len(def.States)),
		transitions: make(map[int64]*entity.Transition, len(def.Transitions)),
		outgoing:    make(map[int64][]*entity.Transition),
	}

	for _, s := range def.States {
		if s.WorkflowType != want {
			return nil, fmt.Errorf("%w: state %s belongs to %s", ErrInvalidDefinition, s.Name, s.WorkflowType)
		}
		if s.IsInitial {
			if m.initial != nil {
				return nil, fmt.Errorf("%w: %s has more than one initial state", ErrInvalidDefinition, want)
			}
			m.initial = s
		}
		m.states[s.ID] = s
		m.byName[s.Name] = s
	}

	for _, t := range def.Transitions {
		from, ok := m.states[t.FromStateID]
		if !ok {
			return nil, fmt.Errorf("%w: transition %s references unknown state %d", ErrInvalidDefinition, t.Name, t.FromStateID)
		}
		to, ok := m.states[t.ToStateID]
		if !ok {
			return nil, fmt.Errorf("%w: transition %s references unknown state %d", ErrInvalidDefinition, t.Name, t.ToStateID)
		}
		if !t.IsActive {
			continue
		}

		// Copy so cached definitions shared between machines stay untouched
		resolved := *t
		resolved.FromState = from
		resolved.ToState = to

		m.transitions[resolved.ID] = &resolved
		m.outgoing[from.ID] = append(m.outgoing[from.ID], &resolved)
	}

	for _, edges := range m.outgoing {
		sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	}

	return m, nil
}

// Type returns the workflow type the machine governs
func (m *Machine[K]) Type() entity.WorkflowType {
	return TypeOf[K]()
}

// Initial returns the initial state
func (m *Machine[K]) Initial() (*entity.State, error) {
	if m.initial == nil {
		return nil, fmt.Errorf("%w: no initial state for %s", ErrNotFound, m.Type())
	}
	return m.initial, nil
}

// State returns a state by id
func (m *Machine[K]) State(id int64) (*entity.State, error) {
	s, ok := m.states[id]
	if !ok {
		return nil, fmt.Errorf("%w: state %d", ErrNotFound, id)
	}
	return s, nil
}

// StateByName returns a state by name
func (m *Machine[K]) StateByName(name string) (*entity.State, error) {
	s, ok := m.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: state %q", ErrNotFound, name)
	}
	return s, nil
}

// Transition returns an active transition by id
func (m *Machine[K]) Transition(id int64) (*entity.Transition, error) {
	t, ok := m.transitions[id]
	if !ok {
		return nil, fmt.Errorf("%w: transition %d", ErrNotFound, id)
	}
	return t, nil
}

// Available returns the active transitions leaving a state that the principal may fire, ordered by id
func (m *Machine[K]) Available(stateID int64, p entity.Principal) []*entity.Transition {
	var out []*entity.Transition
	for _, t := range m.outgoing[stateID] {
		if Permits(t.RequiredRoles, p) {
			out = append(out, t)
		}
	}
	return out
}

// Authorize fails with ErrPermissionDenied if the principal may not fire t
func (m *Machine[K]) Authorize(t *entity.Transition, p entity.Principal) error {
	if !Permits(t.RequiredRoles, p) {
		return fmt.Errorf("%w: role %q cannot fire %s", ErrPermissionDenied, p.Role, t.Name)
	}
	return nil
}

// CheckSource fails with ErrInvalidState unless the entity sits in t's source state
func (m *Machine[K]) CheckSource(currentStateID int64, t *entity.Transition) error {
	if currentStateID == t.FromStateID {
		return nil
	}

	current := fmt.Sprintf("#%d", currentStateID)
	if s, ok := m.states[currentStateID]; ok {
		current = s.Name
	}
	expected := fmt.Sprintf("#%d", t.FromStateID)
	if t.FromState != nil {
		expected = t.FromState.Name
	}

	return fmt.Errorf("%w: entity is in %s, %s expects %s", ErrInvalidState, current, t.Name, expected)
}

// Permits reports whether a principal satisfies a role requirement.
// An empty requirement admits any authenticated principal.
func Permits(requiredRoles []string, p entity.Principal) bool {
	if len(requiredRoles) == 0 || p.IsSuperadmin() {
		return true
	}
	for _, role := range requiredRoles {
		if role == p.Role {
			return true
		}
	}
	return false
}
