package keys

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	PathKeyNamespace   = "path-v1"
	CourseKeyNamespace = "course-v1"
)

var (
	pathKeyPattern   = regexp.MustCompile(`^([^+]+)\+([^+]+)\+([^+]+)\+([^+]+)$`)
	courseKeyPattern = regexp.MustCompile(`^([^+]+)\+([^+]+)\+([^+]+)$`)
)

// PathKey identifies a learning path: path-v1:{org}+{number}+{run}+{group}.
type PathKey struct {
	Org    string
	Number string
	Run    string
	Group  string
}

// ParsePathKey parses the serialized form of a learning path key.
func ParsePathKey(serialized string) (PathKey, error) {
	rest, ok := strings.CutPrefix(serialized, PathKeyNamespace+":")
	if !ok {
		return PathKey{}, fmt.Errorf("invalid learning path key %q: expected %s namespace", serialized, PathKeyNamespace)
	}
	match := pathKeyPattern.FindStringSubmatch(rest)
	if match == nil {
		return PathKey{}, fmt.Errorf("invalid learning path key %q: use %s:{org}+{number}+{run}+{group}", serialized, PathKeyNamespace)
	}
	return PathKey{Org: match[1], Number: match[2], Run: match[3], Group: match[4]}, nil
}

// String implements fmt.Stringer.
func (k PathKey) String() string {
	return PathKeyNamespace + ":" + strings.Join([]string{k.Org, k.Number, k.Run, k.Group}, "+")
}

// IsZero reports whether the key has no fields set.
func (k PathKey) IsZero() bool {
	return k == PathKey{}
}

// CourseKey identifies a course run: course-v1:{org}+{course}+{run}.
type CourseKey struct {
	Org    string
	Course string
	Run    string
}

// ParseCourseKey parses the serialized form of a course key.
func ParseCourseKey(serialized string) (CourseKey, error) {
	rest, ok := strings.CutPrefix(serialized, CourseKeyNamespace+":")
	if !ok {
		return CourseKey{}, fmt.Errorf("invalid course key %q: expected %s namespace", serialized, CourseKeyNamespace)
	}
	match := courseKeyPattern.FindStringSubmatch(rest)
	if match == nil {
		return CourseKey{}, fmt.Errorf("invalid course key %q: use %s:{org}+{course}+{run}", serialized, CourseKeyNamespace)
	}
	return CourseKey{Org: match[1], Course: match[2], Run: match[3]}, nil
}

// String implements fmt.Stringer.
func (k CourseKey) String() string {
	return CourseKeyNamespace + ":" + strings.Join([]string{k.Org, k.Course, k.Run}, "+")
}

// IsZero reports whether the key has no fields set.
func (k CourseKey) IsZero() bool {
	return k == CourseKey{}
}
