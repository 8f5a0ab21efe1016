package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := New()
	var got []interface{}
	b.Subscribe("broadcast", func(p interface{}) { got = append(got, p) })
	b.Subscribe("broadcast", func(p interface{}) { got = append(got, p) })

	b.Publish("broadcast", "hello")

	assert.Equal(t, []interface{}{"hello", "hello"}, got)
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	b := New()
	called := false
	b.Subscribe("a", func(interface{}) { called = true })

	b.Publish("b", 1)

	assert.False(t, called)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	calls := 0
	unsub := b.Subscribe("t", func(interface{}) { calls++ })

	b.Publish("t", nil)
	unsub()
	b.Publish("t", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Subscribers("t"))
}
