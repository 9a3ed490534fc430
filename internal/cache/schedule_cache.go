// Package cache provides an optional Redis-backed cache for per-participant
// lesson lists. The scheduling service works identically without it; when
// enabled it short-circuits the hot "my schedule" reads and is invalidated
// on every lesson mutation touching the participant.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/harmonyhq/lesson-scheduler/internal/model"
)

// ErrMiss is returned when the requested key is not cached.
var ErrMiss = errors.New("cache: key not found")

const DefaultTTL = 5 * time.Minute

type ScheduleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewScheduleCache wraps an existing Redis client. A non-positive ttl falls
// back to DefaultTTL.
func NewScheduleCache(client *redis.Client, ttl time.Duration) *ScheduleCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ScheduleCache{client: client, ttl: ttl}
}

func teacherKey(id uuid.UUID) string { return "schedule:teacher:" + id.String() }
func studentKey(id uuid.UUID) string { return "schedule:student:" + id.String() }

// GetTeacherSchedule returns the cached lesson list for a teacher, or
// ErrMiss if absent.
func (c *ScheduleCache) GetTeacherSchedule(ctx context.Context, teacherID uuid.UUID) ([]model.Lesson, error) {
	return c.get(ctx, teacherKey(teacherID))
}

// SetTeacherSchedule stores the lesson list for a teacher with the cache TTL.
func (c *ScheduleCache) SetTeacherSchedule(ctx context.Context, teacherID uuid.UUID, lessons []model.Lesson) error {
	return c.set(ctx, teacherKey(teacherID), lessons)
}

// GetStudentSchedule returns the cached lesson list for a student, or
// ErrMiss if absent.
func (c *ScheduleCache) GetStudentSchedule(ctx context.Context, studentID uuid.UUID) ([]model.Lesson, error) {
	return c.get(ctx, studentKey(studentID))
}

// SetStudentSchedule stores the lesson list for a student with the cache TTL.
func (c *ScheduleCache) SetStudentSchedule(ctx context.Context, studentID uuid.UUID, lessons []model.Lesson) error {
	return c.set(ctx, studentKey(studentID), lessons)
}

// Invalidate drops the cached schedules of both lesson participants. Called
// after every mutation so readers never see a stale booking.
func (c *ScheduleCache) Invalidate(ctx context.Context, teacherID, studentID uuid.UUID) error {
	if err := c.client.Del(ctx, teacherKey(teacherID), studentKey(studentID)).Err(); err != nil {
		return fmt.Errorf("invalidate schedules: %w", err)
	}
	return nil
}

func (c *ScheduleCache) get(ctx context.Context, key string) ([]model.Lesson, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	var lessons []model.Lesson
	if err := json.Unmarshal(data, &lessons); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}

	return lessons, nil
}

func (c *ScheduleCache) set(ctx context.Context, key string, lessons []model.Lesson) error {
	data, err := json.Marshal(lessons)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}
