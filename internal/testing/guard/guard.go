// Package guard forces test mode for any package that imports it, keeping
// main() no-op when tests link the binaries.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CARTAGE_TEST_MODE") == "" {
			_ = os.Setenv("CARTAGE_TEST_MODE", "1")
		}
	})
}
