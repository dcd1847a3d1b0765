// Package domain holds the persisted entities and error taxonomy shared by
// every other jobfire package: jobs, their queue/running/terminal records,
// and identifiers.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// JobId identifies a Job definition. Stable across the job's entire
// lifetime, from scheduling through every run it may ever have.
type JobId struct {
	value uuid.UUID
}

// NewJobId generates a fresh JobId from a UUIDv7, so that job IDs sort
// roughly by creation time.
func NewJobId() (JobId, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return JobId{}, fmt.Errorf("domain: generate job id: %w", err)
	}
	return JobId{value: id}, nil
}

// JobIdFromString parses the hex-with-dashes form produced by String.
func JobIdFromString(s string) (JobId, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return JobId{}, fmt.Errorf("domain: parse job id %q: %w", s, err)
	}
	return JobId{value: id}, nil
}

func (id JobId) String() string { return id.value.String() }

// IsZero reports whether this is the zero-value JobId (never issued by
// NewJobId, used as a sentinel for "no id yet").
func (id JobId) IsZero() bool { return id.value == uuid.Nil }

func (id JobId) MarshalJSON() ([]byte, error) { return marshalUUID(id.value) }

func (id *JobId) UnmarshalJSON(b []byte) error {
	v, err := unmarshalUUID(b)
	if err != nil {
		return err
	}
	id.value = v
	return nil
}

// RunId identifies a single execution attempt of a Job. Because it is a
// UUIDv7, RunIds for the same job sort in the order the attempts were made —
// a convenience, not a guarantee any caller should depend on for
// correctness.
type RunId struct {
	value uuid.UUID
}

// NewRunId generates a fresh RunId.
func NewRunId() (RunId, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return RunId{}, fmt.Errorf("domain: generate run id: %w", err)
	}
	return RunId{value: id}, nil
}

// RunIdFromString parses the hex-with-dashes form produced by String.
func RunIdFromString(s string) (RunId, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return RunId{}, fmt.Errorf("domain: parse run id %q: %w", s, err)
	}
	return RunId{value: id}, nil
}

func (id RunId) String() string { return id.value.String() }

func (id RunId) MarshalJSON() ([]byte, error) { return marshalUUID(id.value) }

func (id *RunId) UnmarshalJSON(b []byte) error {
	v, err := unmarshalUUID(b)
	if err != nil {
		return err
	}
	id.value = v
	return nil
}

func marshalUUID(v uuid.UUID) ([]byte, error) {
	return []byte(`"` + v.String() + `"`), nil
}

func unmarshalUUID(b []byte) (uuid.UUID, error) {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return uuid.Parse(s)
}
