package dynamo

// Status is the lifecycle state of a constraint.
type Status int

const (
	StatusActive Status = iota
	StatusDisabled
	StatusDisposed
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDisabled:
		return "disabled"
	case StatusDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

type Constraint interface {
	// Validate disposes the constraint when a body it references is disposed.
	Validate()
	Enabled() bool
	SetEnabled(enabled bool)
	IsDisposed() bool
	Dispose()
	Status() Status
	Breakpoint() float64
	OnBreak() BreakFunc
	SetOnBreak(fn BreakFunc)
	// Error is the scalar error computed during the last step.
	Error() float64
}

type Joint interface {
	Constraint
	PreStep(inverseDt float64) error
	Update()
}

type Controller interface {
	Constraint
	Update(dt float64)
}

// BreakFunc is called synchronously when a constraint exceeds its
// breakpoint and becomes disabled.
type BreakFunc func(c Constraint)

// Lifecycle carries the enabled/disposed state and the break observer common
// to every constraint. Implementations embed it.
type Lifecycle struct {
	enabled  bool
	disposed bool
	onBreak  BreakFunc
}

func NewLifecycle(onBreak BreakFunc) Lifecycle {
	return Lifecycle{enabled: true, onBreak: onBreak}
}

func (l *Lifecycle) Enabled() bool    { return l.enabled }
func (l *Lifecycle) IsDisposed() bool { return l.disposed }
func (l *Lifecycle) Dispose()         { l.disposed = true }

func (l *Lifecycle) Status() Status {
	switch {
	case l.disposed:
		return StatusDisposed
	case !l.enabled:
		return StatusDisabled
	default:
		return StatusActive
	}
}

func (l *Lifecycle) SetEnabled(enabled bool) { l.enabled = enabled }

func (l *Lifecycle) OnBreak() BreakFunc      { return l.onBreak }
func (l *Lifecycle) SetOnBreak(fn BreakFunc) { l.onBreak = fn }

// Break disables the constraint and notifies the observer with c, the
// constraint embedding this lifecycle. It is a no-op when already disabled.
func (l *Lifecycle) Break(c Constraint) {
	if !l.enabled {
		return
	}
	l.enabled = false
	if l.onBreak != nil {
		l.onBreak(c)
	}
}
