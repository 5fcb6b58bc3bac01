package assert

import (
	"fmt"
	"log"
	"testing"
)

var logger *log.Logger = log.Default()

// In some cases it is better to stop the World.
//
// Examples:
//
//   - Init functions haven't been called.
//   - Configuration values are invalid.
//   - `nil` values where they should never happen. For example injected functions.
func Assert(condition bool, message ...any) {
	if !condition {
		for _, msg := range message {
			logger.Println("ASSERTION FAILED: ", tryStringify(msg))
		}
		panic("ASSERTION FAILED")
	}
}

// Test variant of Assert. Fails the test instead of stopping the World.
func AssertT(t *testing.T, condition bool, message ...any) {
	t.Helper()
	if !condition {
		for _, msg := range message {
			t.Log("ASSERTION FAILED: ", tryStringify(msg))
		}
		t.FailNow()
	}
}

func tryStringify(data any) any {
	err, ok := data.(error)
	if ok {
		return err
	}
	stringer, ok := data.(fmt.Stringer)
	if ok {
		return stringer.String()
	}
	return data
}
