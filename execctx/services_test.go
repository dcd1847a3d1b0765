package execctx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct{ name string }

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) Verify() error { return f.err }

func TestGetReturnsFalseWhenUnregistered(t *testing.T) {
	s := NewServices()
	_, ok := Get[*fakeStorage](s)
	assert.False(t, ok)
}

func TestRegisterAndGetRoundTrip(t *testing.T) {
	s := NewServices()
	want := &fakeStorage{name: "primary"}
	Register(s, want)

	got, ok := Get[*fakeStorage](s)
	require.True(t, ok)
	assert.Same(t, want, got)
}

func TestRegisterSameTypeTwiceReplaces(t *testing.T) {
	s := NewServices()
	Register(s, &fakeStorage{name: "first"})
	Register(s, &fakeStorage{name: "second"})

	got, ok := Get[*fakeStorage](s)
	require.True(t, ok)
	assert.Equal(t, "second", got.name)
}

func TestGetRequiredPanicsWhenMissing(t *testing.T) {
	s := NewServices()
	assert.Panics(t, func() {
		GetRequired[*fakeStorage](s)
	})
}

func TestGetRequiredReturnsRegisteredValue(t *testing.T) {
	s := NewServices()
	want := &fakeStorage{name: "x"}
	Register(s, want)
	assert.Same(t, want, GetRequired[*fakeStorage](s))
}

func TestVerifyPassesWhenNoServiceFails(t *testing.T) {
	s := NewServices()
	Register[VerifyService](s, &fakeVerifier{})
	Register(s, &fakeStorage{})
	assert.NoError(t, s.Verify())
}

func TestVerifyAggregatesEveryFailure(t *testing.T) {
	s := NewServices()
	errA := errors.New("service a missing dependency")
	errB := errors.New("service b missing dependency")

	Register[VerifyService](s, &fakeVerifier{err: errA})

	// Register a second, distinctly-typed verifier so both failures are
	// aggregated rather than one replacing the other under the same key.
	type namedVerifier struct{ *fakeVerifier }
	Register(s, namedVerifier{&fakeVerifier{err: errB}})

	err := s.Verify()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service a missing dependency")
	assert.Contains(t, err.Error(), "service b missing dependency")
}
