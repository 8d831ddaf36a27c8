package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("VICOPS_TEST_MODE") == "" {
			_ = os.Setenv("VICOPS_TEST_MODE", "1")
		}
	})
}
