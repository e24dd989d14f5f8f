package exceptional_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ashleyglee/exceptional/pkg/exceptional"
	"github.com/stretchr/testify/assert"
)

func TestFilterRegistry_Replacements(t *testing.T) {
	reg := exceptional.NewFilterRegistry()
	reg.SetFormFilter("password", "[redacted]")
	reg.SetFormFilter("token", "")
	reg.SetCookieFilter("session", "***")

	r, ok := reg.FormReplacement("password")
	assert.True(t, ok)
	assert.Equal(t, "[redacted]", r)

	r, ok = reg.FormReplacement("token")
	assert.True(t, ok)
	assert.Equal(t, "", r)

	_, ok = reg.FormReplacement("user")
	assert.False(t, ok)

	r, ok = reg.CookieReplacement("session")
	assert.True(t, ok)
	assert.Equal(t, "***", r)

	_, ok = reg.CookieReplacement("password")
	assert.False(t, ok, "form filters must not leak into the cookie domain")
}

// Extraction reads the registry from every concurrently-failing request;
// run with -race.
func TestFilterRegistry_ConcurrentReaders(t *testing.T) {
	reg := exceptional.NewFilterRegistry()
	for i := 0; i < 10; i++ {
		reg.SetFormFilter(fmt.Sprintf("field%d", i), "x")
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				r, ok := reg.FormReplacement(fmt.Sprintf("field%d", i%10))
				if !ok || r != "x" {
					t.Errorf("unexpected replacement %q %v", r, ok)
					return
				}
			}
		}()
	}
	wg.Wait()
}
