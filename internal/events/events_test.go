package events

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit(t *testing.T) {
	t.Run("nil sink is ignored", func(t *testing.T) {
		assert.NotPanics(t, func() { Emit(nil, CacheHit, "hit") })
	})

	t.Run("fields are retrievable", func(t *testing.T) {
		var got Event
		Emit(SinkFunc(func(e Event) { got = e }), RecordDropped, "no id", "index", 3)

		assert.Equal(t, RecordDropped, got.Kind)
		assert.False(t, got.Time.IsZero())
		v, ok := got.Field("index")
		require.True(t, ok)
		assert.Equal(t, 3, v)
		_, ok = got.Field("missing")
		assert.False(t, ok)
		assert.Equal(t, "record_dropped: no id", got.String())
	})

	t.Run("OrNop", func(t *testing.T) {
		nop := OrNop(nil)
		require.NotNil(t, nop)
		assert.NotPanics(t, func() { Emit(nop, CacheHit, "hit") })

		ch := NewChannel(1)
		assert.Same(t, ch, OrNop(ch))
	})
}

func TestFanout(t *testing.T) {
	var a, b int
	f := Fanout{SinkFunc(func(Event) { a++ }), nil, SinkFunc(func(Event) { b++ })}
	Emit(f, ModeChanged, "")
	Emit(f, ModeChanged, "")
	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf)
	l.SetLevel(log.DebugLevel)
	s := NewLogSink(l)

	Emit(s, QuotaExhausted, "every key spent", "key", "videos")
	Emit(s, CacheHit, "", "key", "videos")

	out := buf.String()
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "every key spent")
	assert.Contains(t, out, "event=quota_exhausted")
	assert.Contains(t, out, "DEBU")
	assert.True(t, strings.Contains(out, "cache_hit"))
}

func TestChannel(t *testing.T) {
	t.Run("drops when full", func(t *testing.T) {
		c := NewChannel(1)
		Emit(c, CacheHit, "first")
		Emit(c, CacheHit, "second")

		e := <-c.C()
		assert.Equal(t, "first", e.Message)
		select {
		case e := <-c.C():
			assert.Failf(t, "unexpected buffered event", "%v", e)
		default:
		}
	})

	t.Run("emit after close is safe", func(t *testing.T) {
		c := NewChannel(4)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				Emit(c, CacheMiss, "")
			}()
		}
		wg.Wait()
		c.Close()
		c.Close()
		assert.NotPanics(t, func() { Emit(c, CacheMiss, "late") })
	})
}
