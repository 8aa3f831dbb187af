package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBugPanicsWithFormattedMessageAndLocation(t *testing.T) {
	defer func() {
		r := recover()
		if assert.NotNil(t, r) {
			msg, ok := r.(string)
			assert.True(t, ok)
			assert.Contains(t, msg, "widget 3 is broken")
			assert.Contains(t, msg, "diag_test.go")
		}
	}()

	Bug("widget %d is broken", 3)
}
