package enums

import "fmt"

// StateTransition labels an enrollment audit row with the state change it
// documents. The wording matches the platform's historical audit values so
// existing compliance tooling keeps working.
type StateTransition string

const (
	TransitionUnenrolledToAllowed    StateTransition = "from unenrolled to allowed to enroll"
	TransitionAllowedToEnrolled      StateTransition = "from allowed to enroll to enrolled"
	TransitionEnrolledToEnrolled     StateTransition = "from enrolled to enrolled"
	TransitionEnrolledToUnenrolled   StateTransition = "from enrolled to unenrolled"
	TransitionUnenrolledToEnrolled   StateTransition = "from unenrolled to enrolled"
	TransitionAllowedToUnenrolled    StateTransition = "from allowed to enroll to unenrolled"
	TransitionUnenrolledToUnenrolled StateTransition = "from unenrolled to unenrolled"
	TransitionDefault                StateTransition = "N/A"
)

var validStateTransitions = []StateTransition{
	TransitionUnenrolledToAllowed,
	TransitionAllowedToEnrolled,
	TransitionEnrolledToEnrolled,
	TransitionEnrolledToUnenrolled,
	TransitionUnenrolledToEnrolled,
	TransitionAllowedToUnenrolled,
	TransitionUnenrolledToUnenrolled,
	TransitionDefault,
}

// String implements fmt.Stringer.
func (s StateTransition) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known StateTransition.
func (s StateTransition) IsValid() bool {
	for _, candidate := range validStateTransitions {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStateTransition converts raw input into a StateTransition.
func ParseStateTransition(value string) (StateTransition, error) {
	for _, candidate := range validStateTransitions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid state transition %q", value)
}
