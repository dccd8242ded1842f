package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveIDRoundTrip(t *testing.T) {
	at := time.Date(2024, 6, 1, 13, 4, 5, 0, time.Local)
	id := NewArchiveID(at)

	assert.Equal(t, "2024-06-01_13:04:05", id)
	parsed, ok := ArchiveTime(id)
	require.True(t, ok)
	assert.True(t, parsed.Equal(at))
}

func TestArchiveTimeUnparsableIsEpoch(t *testing.T) {
	for _, id := range []string{"", "latest", "2024-13-01_00:00:00", "garbage_name"} {
		parsed, ok := ArchiveTime(id)
		assert.False(t, ok, "id %q", id)
		assert.Equal(t, int64(0), parsed.Unix(), "id %q", id)
	}
}

func TestPolicyBuilder(t *testing.T) {
	t.Run("defaults to interactive", func(t *testing.T) {
		var b PolicyBuilder
		assert.Equal(t, RetentionPolicy{Mode: RetentionInteractive}, b.Build())
	})

	t.Run("keeps the single mode", func(t *testing.T) {
		var b PolicyBuilder
		require.NoError(t, b.Set(RetentionOlder, 30))
		assert.Equal(t, RetentionPolicy{Mode: RetentionOlder, Param: 30}, b.Build())
	})

	t.Run("second mode is a configuration error", func(t *testing.T) {
		var b PolicyBuilder
		require.NoError(t, b.Set(RetentionLast, 2))
		err := b.Set(RetentionAll, 0)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.Equal(t, RetentionPolicy{Mode: RetentionLast, Param: 2}, b.Build())
	})

	t.Run("negative parameter rejected", func(t *testing.T) {
		var b PolicyBuilder
		assert.ErrorIs(t, b.Set(RetentionFirst, -1), ErrConfiguration)
	})

	t.Run("unknown mode rejected", func(t *testing.T) {
		var b PolicyBuilder
		assert.ErrorIs(t, b.Set("weekly", 1), ErrConfiguration)
	})
}

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"y", true},
		{"Y", true},
		{"yes", true},
		{"YeS", true},
		{"  yes\n", true},
		{"", false},
		{"n", false},
		{"no", false},
		{"yess", false},
		{"ye", false},
		{"sure", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAffirmative(tt.answer), "answer %q", tt.answer)
	}
}

func TestTransferErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("exit status 2")
	err := NewTransferError("create", &Repository{Root: "/repo"}, "2024-01-01_00:00:00", cause)

	assert.ErrorIs(t, err, ErrTransfer)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "create 2024-01-01_00:00:00 in /repo: exit status 2", err.Error())
}

func TestNewChainLink(t *testing.T) {
	repo := &Repository{Root: "/repo"}

	full := NewChainLink(repo, "2024-01-02_00:00:00", "", false)
	assert.Equal(t, BackupTypeFull, full.Type)
	assert.Nil(t, full.FromArchive)

	incr := NewChainLink(repo, "2024-01-02_00:00:00", "2024-01-01_00:00:00", true)
	assert.Equal(t, BackupTypeIncremental, incr.Type)
	require.NotNil(t, incr.FromArchive)
	assert.Equal(t, "2024-01-01_00:00:00", *incr.FromArchive)
	assert.True(t, incr.DryRun)
}

func TestRunLifecycle(t *testing.T) {
	repo := &Repository{Root: "/repo"}
	run := NewBackupRun(repo, NewChainLink(repo, "2024-01-02_00:00:00", "2024-01-01_00:00:00", false))

	assert.Equal(t, RunStatusRunning, run.Status)
	assert.False(t, run.IsComplete())
	require.NotNil(t, run.BackupType)
	assert.Equal(t, "incremental", *run.BackupType)

	run.Fail(errors.New("boom"))
	assert.True(t, run.IsComplete())
	assert.Equal(t, RunStatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, "boom", *run.Error)
}
