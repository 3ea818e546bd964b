package console

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLevelFromEnv(t *testing.T) {
	prev, had := os.LookupEnv("LOG")
	defer func() {
		if had {
			os.Setenv("LOG", prev)
		} else {
			os.Unsetenv("LOG")
		}
	}()

	cases := map[string]zerolog.Level{
		"error": zerolog.ErrorLevel,
		"warn":  zerolog.WarnLevel,
		"info":  zerolog.InfoLevel,
		"debug": zerolog.DebugLevel,
		"trace": zerolog.TraceLevel,
		"":      zerolog.Disabled,
		"bogus": zerolog.Disabled,
	}
	for env, want := range cases {
		os.Setenv("LOG", env)
		assert.Equal(t, want, levelFromEnv(), "LOG=%q", env)
	}
}

func TestSetContextFuncInstallsTheCurrentCallback(t *testing.T) {
	prev := current
	defer func() { current = prev }()

	SetContextFunc(func() Ctx { return Ctx{Hart: 2, Pid: 7, Tid: 9} })
	assert.Equal(t, Ctx{Hart: 2, Pid: 7, Tid: 9}, current())
}

func TestDefaultContextIsZeroValue(t *testing.T) {
	assert.Equal(t, Ctx{}, current())
}

func TestFileLineFormatsAsBaseNameColonLine(t *testing.T) {
	loc := fileLine(1)
	assert.Contains(t, loc, "console_test.go:")
}
