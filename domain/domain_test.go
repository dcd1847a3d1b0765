package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobIdRoundTrip(t *testing.T) {
	id, err := NewJobId()
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	parsed, err := JobIdFromString(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestJobIdJSONRoundTrip(t *testing.T) {
	id, err := NewJobId()
	require.NoError(t, err)

	b, err := json.Marshal(id)
	require.NoError(t, err)

	var out JobId
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, id, out)
}

func TestRunIdUnique(t *testing.T) {
	a, err := NewRunId()
	require.NoError(t, err)
	b, err := NewRunId()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPoliciesCloneIsIndependent(t *testing.T) {
	p := NewPolicies("retry", "timeout")
	p.Data["tries"] = 1

	clone := p.Clone()
	clone.Data["tries"] = 2
	clone.Names[0] = "mutated"

	assert.Equal(t, 1, p.Data["tries"])
	assert.Equal(t, PolicyName("retry"), p.Names[0])
}

func TestJobRoundTripSerialization(t *testing.T) {
	id, err := NewJobId()
	require.NoError(t, err)

	impl := SerializedImpl{Name: "example", Value: json.RawMessage(`{"n":1}`)}
	job := NewJob(id, time.Now().UTC().Truncate(time.Millisecond), impl, NewPolicies("jobfire::timeout"))

	b, err := json.Marshal(job)
	require.NoError(t, err)

	var out Job
	require.NoError(t, json.Unmarshal(b, &out))

	assert.Equal(t, job.Id, out.Id)
	assert.True(t, job.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, job.Impl.Name, out.Impl.Name)
	assert.JSONEq(t, string(job.Impl.Value), string(out.Impl.Value))
	assert.Equal(t, job.Policies.Names, out.Policies.Names)
}

func TestStorageErrorUnwrapsToSentinel(t *testing.T) {
	err := NewNotFoundError(nil)
	assert.ErrorIs(t, err, ErrNotFound)

	err = NewAlreadyExistsError(nil)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestServiceMissingErrorMessage(t *testing.T) {
	err := &ServiceMissingError{Name: "Storage"}
	assert.Contains(t, err.Error(), "Storage")
	assert.ErrorIs(t, err, ErrServiceMissing)
}
