package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionIsCurrentlyActive(t *testing.T) {
	now := time.Now()

	sub := Subscription{Status: SubscriptionStatusActive, EndsAt: now.AddDate(0, 1, 0)}
	assert.True(t, sub.IsCurrentlyActive(now))

	sub.Status = SubscriptionStatusPending
	assert.False(t, sub.IsCurrentlyActive(now), "pending never grants access")

	sub.Status = SubscriptionStatusCancelled
	assert.False(t, sub.IsCurrentlyActive(now))

	// Active status with a past window still denies.
	sub = Subscription{Status: SubscriptionStatusActive, EndsAt: now.Add(-time.Minute)}
	assert.False(t, sub.IsCurrentlyActive(now))
}

func TestSubscriptionIsExpired(t *testing.T) {
	now := time.Now()

	sub := Subscription{EndsAt: now.Add(time.Hour)}
	assert.False(t, sub.IsExpired(now))

	sub.EndsAt = now.Add(-time.Second)
	assert.True(t, sub.IsExpired(now))

	sub.EndsAt = now
	assert.True(t, sub.IsExpired(now), "the boundary instant counts as expired")
}
