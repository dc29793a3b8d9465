package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotTryPostSerializes(t *testing.T) {
	var s Slot
	p1 := NewPost(NewFrame, func(int) {})
	p2 := NewPost(NewFrame, func(int) {})

	assert.True(t, s.TryPost(p1))
	assert.False(t, s.TryPost(p2))
	assert.Same(t, p1, s.Current())

	s.Clear()
	assert.Nil(t, s.Current())
	assert.True(t, s.TryPost(p2))
}

func TestClaimRunnerIsExclusive(t *testing.T) {
	p := NewPost(NewFrame, func(int) {})

	assert.True(t, p.ClaimRunner(0))
	assert.False(t, p.ClaimRunner(1))
}

func TestClearOnceRunsExactlyOnce(t *testing.T) {
	p := NewPost(Together, func(int) {})

	calls := 0
	for i := 0; i < 3; i++ {
		p.ClearOnce(func() { calls++ })
	}

	assert.Equal(t, 1, calls)
}

func TestDoneChannelSignalsFinish(t *testing.T) {
	p := NewPost(NewFrame, func(int) {})

	select {
	case <-p.Done():
		t.Fatal("Done closed before Finish")
	default:
	}

	p.Finish()

	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed after Finish")
	}
}
