package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck returns a CheckFunc that fails once the number of live
// goroutines exceeds threshold, which usually indicates a leak.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if count := runtime.NumGoroutine(); count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}
