package enums

import "fmt"

// EnrollmentMode is the course enrollment track used by the host platform.
type EnrollmentMode string

const (
	ModeAudit            EnrollmentMode = "audit"
	ModeVerified         EnrollmentMode = "verified"
	ModeProfessional     EnrollmentMode = "professional"
	ModeNoIDProfessional EnrollmentMode = "no-id-professional"
	ModeCredit           EnrollmentMode = "credit"
	ModeHonor            EnrollmentMode = "honor"
)

var validEnrollmentModes = []EnrollmentMode{
	ModeAudit,
	ModeVerified,
	ModeProfessional,
	ModeNoIDProfessional,
	ModeCredit,
	ModeHonor,
}

// String implements fmt.Stringer.
func (m EnrollmentMode) String() string {
	return string(m)
}

// IsValid reports whether the value matches a known EnrollmentMode.
func (m EnrollmentMode) IsValid() bool {
	for _, candidate := range validEnrollmentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseEnrollmentMode converts raw input into an EnrollmentMode.
func ParseEnrollmentMode(value string) (EnrollmentMode, error) {
	for _, candidate := range validEnrollmentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid enrollment mode %q", value)
}
