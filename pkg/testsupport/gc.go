package testsupport

import (
	"runtime"
	"testing"
	"time"
)

// DefaultReclaimTimeout bounds how long Reclaimed keeps collecting.
const DefaultReclaimTimeout = 5 * time.Second

// Eventually polls cond every interval until it holds or timeout elapses, in
// which case the test fails with msg.
func Eventually(t testing.TB, timeout, interval time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v: %s", timeout, msg)
		}
		time.Sleep(interval)
	}
}

// Reclaimed forces collections until cond holds. Cleanups run on their own
// goroutine after a cycle, so a single runtime.GC is not enough.
func Reclaimed(t testing.TB, cond func() bool, msg string) {
	t.Helper()

	Eventually(t, DefaultReclaimTimeout, 10*time.Millisecond, func() bool {
		runtime.GC()
		return cond()
	}, msg)
}
