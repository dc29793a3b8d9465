package backoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactoryCreatesDistinctPolicies(t *testing.T) {
	f := NewFactory()

	exp := f.Create(Exponential)
	assert.Equal(t, "exponential", exp.Name())

	yld := f.Create(Yield)
	assert.Equal(t, "yield", yld.Name())
}

func TestExponentialPolicyDoesNotPanic(t *testing.T) {
	p := NewFactory().Create(Exponential)
	for attempt := 1; attempt <= 20; attempt++ {
		assert.NotPanics(t, func() { p.Backoff(attempt) })
	}
	p.Reset()
}

func TestYieldPolicyDoesNotPanic(t *testing.T) {
	p := NewFactory().Create(Yield)
	for attempt := 1; attempt <= 5; attempt++ {
		assert.NotPanics(t, func() { p.Backoff(attempt) })
	}
}
