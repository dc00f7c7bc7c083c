package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcessWatch_CachesLookup(t *testing.T) {
	calls := 0
	running := true
	w := &processWatch{
		name: "X-Plane",
		ttl:  time.Hour,
		lookup: func(name string) bool {
			calls++
			assert.Equal(t, "X-Plane", name)
			return running
		},
	}

	assert.True(t, w.Running())
	running = false
	assert.True(t, w.Running(), "cached result within ttl")
	assert.Equal(t, 1, calls)

	w.checked = time.Time{}
	assert.False(t, w.Running())
	assert.Equal(t, 2, calls)
}
