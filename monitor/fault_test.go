package monitor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryOrDiePolicyEscalatesAfterMaxAttempts(t *testing.T) {
	p := NewRetryOrDiePolicy(2)
	task := NewTask("t1", p)
	err := errors.New("transient")

	assert.Nil(t, p.ResumeOrDie(task, err))
	assert.Nil(t, p.ResumeOrDie(task, err))

	fault := p.ResumeOrDie(task, err)
	require.NotNil(t, fault)
	assert.Equal(t, "t1", fault.TaskID)
}

func TestRetryOrDiePolicyFinalizeResetsAttempts(t *testing.T) {
	p := NewRetryOrDiePolicy(1)
	task := NewTask("t2", p)
	err := errors.New("transient")

	assert.Nil(t, p.ResumeOrDie(task, err))
	assert.Nil(t, p.FinalizeTask(task))

	// Attempts reset by FinalizeTask, so a fresh run of the same task ID
	// gets a full budget again.
	assert.Nil(t, p.ResumeOrDie(task, err))
}

func TestNoopFaultPolicyNeverEscalates(t *testing.T) {
	p := NoopFaultPolicy{}
	task := NewTask("t3", p)
	assert.Nil(t, p.ResumeOrDie(task, errors.New("anything")))
	assert.Nil(t, p.FinalizeTask(task))
}
