package land

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landregistry/pkg/domain"
	dErrors "landregistry/pkg/domain-errors"
)

func TestNewRecord(t *testing.T) {
	now := time.Now()

	t.Run("requires owner name, national id, title number", func(t *testing.T) {
		_, err := NewRecord(1, "0xaaa", "", "ID-1", "TN-1", "Nairobi", 500, "residential", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingRequiredField))

		_, err = NewRecord(1, "0xaaa", "Asha", "", "TN-1", "Nairobi", 500, "residential", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingRequiredField))

		_, err = NewRecord(1, "0xaaa", "Asha", "ID-1", "", "Nairobi", 500, "residential", now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingRequiredField))
	})

	t.Run("starts pending and owned by the requester", func(t *testing.T) {
		rec, err := NewRecord(1, "0xaaa", "Asha", "ID-1", "TN-1", "Nairobi", 500, "residential", now)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, rec.Status())
		assert.Equal(t, domain.Credential("0xaaa"), rec.CurrentOwner)
		assert.Nil(t, rec.DecidedAt)
	})
}

func TestDecisionFinality(t *testing.T) {
	now := time.Now()
	rec, err := NewRecord(1, "0xaaa", "Asha", "ID-1", "TN-1", "Nairobi", 500, "residential", now)
	require.NoError(t, err)

	require.NoError(t, rec.CanDecide())
	rec.ApplyApproval(now)
	assert.Equal(t, StatusRegistered, rec.Status())

	// Approval is final: no second decision of either kind.
	err = rec.CanDecide()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyDecided))
}

func TestRejectionFinality(t *testing.T) {
	now := time.Now()
	rec, err := NewRecord(2, "0xaaa", "Asha", "ID-1", "TN-1", "Nairobi", 500, "residential", now)
	require.NoError(t, err)

	rec.ApplyRejection("survey mismatch", now)
	assert.Equal(t, StatusRejected, rec.Status())
	assert.Equal(t, "survey mismatch", rec.RejectReason)

	err = rec.CanDecide()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyDecided))
}
