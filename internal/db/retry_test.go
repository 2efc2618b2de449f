package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"yuva/server/internal/utils"
)

func duplicateKeyError(key string) error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: fmt.Sprintf("E11000 duplicate key error collection: test.hayvanlar index: _id_ dup key: { _id: \"%s\" }", key),
	}}}
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetries(func() error { calls++; return nil }, 3, IsMongoDuplicateKeyError)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("connection refused")
	err := WithRetries(func() error { calls++; return boom }, 3, IsMongoDuplicateKeyError)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	calls := 0
	err := WithRetries(func() error {
		calls++
		return duplicateKeyError("0000000001")
	}, 2, IsMongoDuplicateKeyError)

	require.Error(t, err)
	assert.True(t, IsMongoDuplicateKeyError(err))
	assert.Equal(t, 3, calls)
}

func TestTry_CollisionResolvesWithFreshID(t *testing.T) {
	original := utils.NewSixIDHook
	defer func() { utils.NewSixIDHook = original }()

	taken := utils.SixID{1, 2, 3, 4, 5, 1}
	free := utils.SixID{1, 2, 3, 4, 5, 2}
	queue := []utils.SixID{taken, taken, free}
	utils.NewSixIDHook = func() (utils.SixID, bool) {
		if len(queue) == 0 {
			return utils.SixID{}, false
		}
		id := queue[0]
		queue = queue[1:]
		return id, true
	}

	inserted := map[utils.SixID]bool{taken: true}
	calls := 0
	err := Try(func() error {
		calls++
		id := utils.NewSixID()
		if inserted[id] {
			return duplicateKeyError(id.String())
		}
		inserted[id] = true
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, inserted[free])
	assert.Empty(t, queue)
}

func TestIsMongoDuplicateKeyError(t *testing.T) {
	assert.False(t, IsMongoDuplicateKeyError(nil))
	assert.False(t, IsMongoDuplicateKeyError(errors.New("E11000 lookalike")))
	assert.True(t, IsMongoDuplicateKeyError(fmt.Errorf("insert: %w", duplicateKeyError("x"))))
}
