package gls

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindLookupUnbind(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := Lookup()
		assert.False(t, ok)

		Bind("hello")
		v, ok := Lookup()
		assert.True(t, ok)
		assert.Equal(t, "hello", v)

		Unbind()
		_, ok = Lookup()
		assert.False(t, ok)
	}()
	<-done
}

func TestBindingsAreGoroutineLocal(t *testing.T) {
	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			Bind(i)
			defer Unbind()
			v, ok := Lookup()
			assert.True(t, ok)
			assert.Equal(t, i, v)
		}()
	}
	wg.Wait()
}
