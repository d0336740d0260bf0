package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fairwaylive/draw-backend/internal/store"
)

func TestWriteAssignments(t *testing.T) {
	recs := []store.AssignmentRecord{
		{SessionID: "s1", CandidateID: "c1", Nickname: "eagle", GroupNo: 1, Position: 1, ConfirmedAt: time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)},
		{SessionID: "s1", CandidateID: "c2", Nickname: "birdie", GroupNo: 2, Position: 1, ConfirmedAt: time.Date(2026, 5, 10, 9, 31, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAssignments(&buf, recs))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Assignments")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Group", "Position", "Nickname", "Candidate ID", "Confirmed At"}, rows[0])
	assert.Equal(t, "eagle", rows[1][2])
	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "birdie", rows[2][2])
}

func TestWriteAssignments_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAssignments(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Assignments")
	require.NoError(t, err)
	require.Len(t, rows, 1) // header only
}
