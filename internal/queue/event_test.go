package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskEventLine(t *testing.T) {
	at := time.Date(2024, 4, 5, 6, 7, 8, 0, time.UTC)

	ev := TaskEvent{Type: EventTaskWithdrawn, TaskID: 3, ActorID: 20, Reason: "sick", OccurredAt: at}
	assert.Equal(t, `[2024-04-05T06:07:08Z] task.withdrawn | task_id=3 | actor_id=20 | reason="sick"`, ev.Line())

	ev = TaskEvent{Type: EventRatingSubmitted, TaskID: 3, ActorID: 10, SubjectID: 20, RatingType: "ACCEPTING", Value: 4, OccurredAt: at}
	assert.Equal(t, "[2024-04-05T06:07:08Z] rating.submitted | task_id=3 | actor_id=10 | subject_id=20 | rating=ACCEPTING:4", ev.Line())

	ev = TaskEvent{Type: EventTasksExpired, Count: 2, OccurredAt: at}
	assert.Equal(t, "[2024-04-05T06:07:08Z] tasks.expired | count=2", ev.Line())
}

func TestHandleMessageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "activity.log")
	at := time.Date(2024, 4, 5, 6, 7, 8, 0, time.UTC)

	for _, ev := range []TaskEvent{
		{ID: "a", Type: EventTaskAccepted, TaskID: 1, ActorID: 10, SubjectID: 20, OccurredAt: at},
		{ID: "b", Type: EventTaskCompleted, TaskID: 1, ActorID: 10, SubjectID: 20, OccurredAt: at},
	} {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, handleMessage(body, path))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "task.accepted")
	assert.Contains(t, lines[1], "task.completed")
}

func TestHandleMessageRejectsBadBodies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	assert.Error(t, handleMessage([]byte("not json"), path))
	assert.Error(t, handleMessage([]byte(`{"task_id":1}`), path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
