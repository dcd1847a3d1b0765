package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
)

func TestBuilderRegisterAndLookup(t *testing.T) {
	actions := JobActions{
		Run: func(context.Context, domain.SerializedImpl, *execctx.Context) (domain.Report, error) {
			return domain.NewReport(), nil
		},
	}

	reg := NewBuilder().Register("noop", actions).Build()

	got, ok := reg.Lookup("noop")
	require.True(t, ok)
	assert.NotNil(t, got.Run)
}

func TestLookupUnknownNameFails(t *testing.T) {
	reg := NewBuilder().Build()

	_, ok := reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegisterSameNameTwiceOverwrites(t *testing.T) {
	first := JobActions{Run: func(context.Context, domain.SerializedImpl, *execctx.Context) (domain.Report, error) {
		return domain.Report{Data: map[string]any{"which": "first"}}, nil
	}}
	second := JobActions{Run: func(context.Context, domain.SerializedImpl, *execctx.Context) (domain.Report, error) {
		return domain.Report{Data: map[string]any{"which": "second"}}, nil
	}}

	reg := NewBuilder().Register("dup", first).Register("dup", second).Build()

	got, ok := reg.Lookup("dup")
	require.True(t, ok)
	report, err := got.Run(context.Background(), domain.SerializedImpl{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "second", report.Data["which"])
}

func TestBuildFreezesIndependentlyOfLaterBuilderMutation(t *testing.T) {
	builder := NewBuilder().Register("a", JobActions{})
	frozen := builder.Build()

	builder.Register("b", JobActions{})

	_, ok := frozen.Lookup("b")
	assert.False(t, ok, "mutating the builder after Build must not affect the frozen registry")
}
