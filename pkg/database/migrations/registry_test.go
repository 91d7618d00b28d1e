package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestRegister_KeepsOrderAndIgnoresDuplicates(t *testing.T) {
	registryMu.Lock()
	saved := registry
	registry = nil
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})

	noop := func(*gorm.DB) error { return nil }
	Register("b_index", noop)
	Register("a_index", noop)
	Register("b_index", noop)

	assert.Equal(t, []string{"b_index", "a_index"}, Names())
}
