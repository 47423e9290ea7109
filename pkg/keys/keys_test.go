package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePathKeyRoundTrip(t *testing.T) {
	key, err := ParsePathKey("path-v1:AcmeU+LP100+2026+cohort-a")
	require.NoError(t, err)
	assert.Equal(t, "AcmeU", key.Org)
	assert.Equal(t, "LP100", key.Number)
	assert.Equal(t, "2026", key.Run)
	assert.Equal(t, "cohort-a", key.Group)
	assert.Equal(t, "path-v1:AcmeU+LP100+2026+cohort-a", key.String())
}

func TestParsePathKeyRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"AcmeU+LP100+2026+cohort-a",
		"course-v1:AcmeU+LP100+2026",
		"path-v1:AcmeU+LP100+2026",
		"path-v1:AcmeU+LP100+2026+a+b",
	}
	for _, raw := range cases {
		_, err := ParsePathKey(raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestParseCourseKeyRoundTrip(t *testing.T) {
	key, err := ParseCourseKey("course-v1:AcmeU+CS101+2026")
	require.NoError(t, err)
	assert.Equal(t, "CS101", key.Course)
	assert.Equal(t, "course-v1:AcmeU+CS101+2026", key.String())
}

func TestParseCourseKeyRejectsPathNamespace(t *testing.T) {
	_, err := ParseCourseKey("path-v1:AcmeU+CS101+2026")
	assert.Error(t, err)
}
