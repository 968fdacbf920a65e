package module

type Status int

const (
	StatusEnabled Status = iota
	StatusDisabled
	StatusMissing
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusEnabled:
		return "enabled"
	case StatusDisabled:
		return "disabled"
	case StatusMissing:
		return "missing"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Availability is the outcome of building a root module.
type Availability struct {
	Status Status
	Reason string
}

func Available() Availability {
	return Availability{Status: StatusEnabled}
}

func Disabled(reason string) Availability {
	return Availability{Status: StatusDisabled, Reason: reason}
}

func Missing(reason string) Availability {
	return Availability{Status: StatusMissing, Reason: reason}
}

func Invalid(err error) Availability {
	return Availability{Status: StatusInvalid, Reason: err.Error()}
}

func (a Availability) Enabled() bool {
	return a.Status == StatusEnabled
}
