package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatusRecord(t *testing.T) {
	tests := []struct {
		name           string
		appendStatus   string
		appendStatuses []string
		wantStatuses   []string
	}{
		{
			"single status record appended",
			"works",
			nil,
			[]string{"works"},
		},
		{
			"multiple status record appended",
			"",
			[]string{"a", "b", "c"},
			[]string{"a", "b", "c"},
		},
		{
			"dup status excluded",
			"",
			[]string{"a", "a", "b", "c"},
			[]string{"a", "b", "c"},
		},
		{
			"empty status excluded",
			"",
			[]string{"a", "", "", "c"},
			[]string{"a", "c"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sr := NewTaskStatusRecord("")

			if tc.appendStatus != "" {
				sr.Append(tc.appendStatus)

				assert.Equal(t, tc.appendStatus, sr.StatusMsgs[0].Msg)
				assert.False(t, sr.StatusMsgs[0].Timestamp.IsZero())
			}

			if tc.appendStatuses != nil {
				for _, s := range tc.appendStatuses {
					sr.Append(s)
				}

				assert.Equal(t, len(tc.wantStatuses), len(sr.StatusMsgs))
				for idx, w := range tc.wantStatuses {
					assert.Equal(t, w, sr.StatusMsgs[idx].Msg)
					assert.False(t, sr.StatusMsgs[idx].Timestamp.IsZero())
				}
			}
		})
	}
}

func TestTaskSetState(t *testing.T) {
	task := NewTask(ServerTarget{Identifier: "FCH37527777"}, "Power On")

	assert.Equal(t, StatePending, task.State())
	assert.False(t, task.Completed())
	assert.Equal(t, FormFactorBlade, task.Target.FormFactor)
	assert.Equal(t, "initialized task", task.Status.Last())

	assert.Nil(t, task.SetState(StateActive))
	assert.Equal(t, StateActive, task.State())
	assert.True(t, task.CompletedAt.IsZero())

	assert.Nil(t, task.SetState(StateFailed))
	assert.True(t, task.Completed())
	assert.False(t, task.CompletedAt.IsZero())
}
