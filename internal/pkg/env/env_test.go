package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	Env = map[string]string{"ODDS_TEST_KEY": "from-file"}
	t.Cleanup(func() { Env = nil })
	t.Setenv("ODDS_TEST_KEY", "from-os")

	assert.Equal(t, "from-file", GetEnv("ODDS_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("ODDS_TEST_MISSING", "def"))
}

func TestTypedHelpers(t *testing.T) {
	Env = map[string]string{
		"INT_OK":   "42",
		"INT_BAD":  "forty",
		"BOOL_OK":  "true",
		"DUR_OK":   "90s",
		"DUR_BAD":  "soon",
		"LIST_VAL": " 39, 140,,61 ",
	}
	t.Cleanup(func() { Env = nil })

	assert.Equal(t, 42, GetEnvInt("INT_OK", 1))
	assert.Equal(t, 1, GetEnvInt("INT_BAD", 1))
	assert.True(t, GetEnvBool("BOOL_OK", false))
	assert.False(t, GetEnvBool("BOOL_MISSING", false))
	assert.Equal(t, 90*time.Second, GetEnvDuration("DUR_OK", time.Second))
	assert.Equal(t, time.Second, GetEnvDuration("DUR_BAD", time.Second))
	assert.Equal(t, []string{"39", "140", "61"}, GetEnvList("LIST_VAL"))
	assert.Nil(t, GetEnvList("LIST_MISSING"))
}
