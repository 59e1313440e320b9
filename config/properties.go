package config

import (
	"github.com/antithesishq/antithesis-sdk-go/assert"
)

var antithesisEnabled bool

// SetAntithesisMode turns deployment property assertions on or off.
func SetAntithesisMode(enabled bool) {
	antithesisEnabled = enabled
}

func IsAntithesisEnabled() bool {
	return antithesisEnabled
}

func AssertAlways(condition bool, message string, details map[string]interface{}) {
	if antithesisEnabled {
		assert.Always(condition, message, details)
	}
}

func AssertSometimes(condition bool, message string, details map[string]interface{}) {
	if antithesisEnabled {
		assert.Sometimes(condition, message, details)
	}
}

// AssertUnreachable flags a code path that a correct plan never reaches.
func AssertUnreachable(message string, details map[string]interface{}) {
	if antithesisEnabled {
		assert.Unreachable(message, details)
	}
}
