package randomization

// SchemeStatus is the lifecycle state of a scheme. Transitions are one-way
// except that editing a generated scheme discards its list and returns it to draft.
type SchemeStatus string

const (
	StatusDraft     SchemeStatus = "draft"
	StatusGenerated SchemeStatus = "generated"
	StatusActive    SchemeStatus = "active"
)

type SchemeEvent string

const (
	EventEdit     SchemeEvent = "edit"
	EventGenerate SchemeEvent = "generate"
	EventActivate SchemeEvent = "activate"
)

var schemeTransitions = map[SchemeStatus]map[SchemeEvent]SchemeStatus{
	StatusDraft: {
		EventEdit:     StatusDraft,
		EventGenerate: StatusGenerated,
	},
	StatusGenerated: {
		EventEdit:     StatusDraft,
		EventGenerate: StatusGenerated,
		EventActivate: StatusActive,
	},
	StatusActive: {},
}

// Next returns the state reached by applying ev, or the coded error that
// rejects it. Every event on an active scheme is LockedError.
func (s *Scheme) Next(op string, ev SchemeEvent) (SchemeStatus, error) {
	if s.Status == StatusActive {
		return s.Status, LockedError(op, s.ID)
	}
	next, ok := schemeTransitions[s.Status][ev]
	if !ok {
		if ev == EventActivate {
			return s.Status, NoListError(op, s.ID)
		}
		return s.Status, NewError(CodeInternal, op, "unknown scheme status "+string(s.Status), nil)
	}
	return next, nil
}

func (s *Scheme) IsActive() bool { return s.Status == StatusActive }

// IsLocked is true once activated; activation is irreversible.
func (s *Scheme) IsLocked() bool { return s.Status == StatusActive }
