package common

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
)

func TestNewResultID(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	a := NewResultID(at)
	b := NewResultID(at)

	assert.True(t, strings.HasPrefix(a, "2025-03-01T12:00:00Z-"))
	assert.NotEqual(t, a, b, "same timestamp must still produce distinct IDs")
}

func TestNewRuleID(t *testing.T) {
	id := NewRuleID(time.UnixMilli(1700000000000))
	assert.True(t, strings.HasPrefix(id, "rule_1700000000000_"))
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	var ran atomic.Bool
	done := make(chan struct{})

	SafeGo(arbor.NewLogger().WithWriters([]writers.IWriter{}), "panicking", func() {
		defer close(done)
		ran.Store(true)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("goroutine did not run")
	}
	assert.True(t, ran.Load())
}
