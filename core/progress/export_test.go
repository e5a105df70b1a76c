package progress

import "time"

// SetNowFunc swaps the clock for tests and returns the restore func.
func SetNowFunc(fn func() time.Time) func() {
	nowFunc = fn
	return func() { nowFunc = time.Now }
}
