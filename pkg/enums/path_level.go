package enums

// PathLevel is the difficulty label attached to a learning path.
type PathLevel string

const (
	LevelBeginner     PathLevel = "beginner"
	LevelIntermediate PathLevel = "intermediate"
	LevelAdvanced     PathLevel = "advanced"
)

// String implements fmt.Stringer.
func (p PathLevel) String() string {
	return string(p)
}

// IsValid reports whether the value matches a known PathLevel.
func (p PathLevel) IsValid() bool {
	switch p {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}
