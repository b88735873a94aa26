// Package reminders schedules and delivers pre-appointment reminder emails.
// Due times live in a Redis sorted set scored by unix time; a polling worker
// drains whatever has come due and flips the per-appointment sent flags so a
// reminder is delivered at most once per offset.
package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const dueSetKey = "reminders:due"

// Offsets are the lead times before the appointment at which reminders fire,
// largest first.
var Offsets = []Offset{
	{Name: "24h", Before: 24 * time.Hour},
	{Name: "2h", Before: 2 * time.Hour},
	{Name: "15m", Before: 15 * time.Minute},
}

// Offset is one reminder lead time.
type Offset struct {
	Name   string
	Before time.Duration
}

// Entry is one due reminder pulled from the schedule.
type Entry struct {
	AppointmentID string
	Offset        string
	DueAt         time.Time
}

func member(appointmentID, offset string) string {
	return appointmentID + ":" + offset
}

func parseMember(m string) (appointmentID, offset string, ok bool) {
	i := strings.LastIndex(m, ":")
	if i <= 0 || i == len(m)-1 {
		return "", "", false
	}
	return m[:i], m[i+1:], true
}

// Schedule keeps the reminder due-times for appointments in Redis.
type Schedule struct {
	redis *redis.Client
}

// NewSchedule creates a Redis-backed reminder schedule.
func NewSchedule(redisClient *redis.Client) *Schedule {
	if redisClient == nil {
		panic("reminders: redis client required")
	}
	return &Schedule{redis: redisClient}
}

// Set registers reminders for an appointment at every offset still in the
// future. Calling Set again for the same appointment replaces its schedule,
// which is what a reschedule needs.
func (s *Schedule) Set(ctx context.Context, appointmentID string, scheduledAt time.Time) error {
	if err := s.Cancel(ctx, appointmentID); err != nil {
		return err
	}

	now := time.Now()
	var zs []redis.Z
	for _, off := range Offsets {
		due := scheduledAt.Add(-off.Before)
		if due.Before(now) {
			continue
		}
		zs = append(zs, redis.Z{Score: float64(due.Unix()), Member: member(appointmentID, off.Name)})
	}
	if len(zs) == 0 {
		return nil
	}
	if err := s.redis.ZAdd(ctx, dueSetKey, zs...).Err(); err != nil {
		return fmt.Errorf("reminders: schedule: %w", err)
	}
	return nil
}

// Cancel drops every pending reminder for an appointment.
func (s *Schedule) Cancel(ctx context.Context, appointmentID string) error {
	members := make([]interface{}, 0, len(Offsets))
	for _, off := range Offsets {
		members = append(members, member(appointmentID, off.Name))
	}
	if err := s.redis.ZRem(ctx, dueSetKey, members...).Err(); err != nil {
		return fmt.Errorf("reminders: cancel: %w", err)
	}
	return nil
}

// Due returns up to limit reminders whose due time has passed, oldest first.
func (s *Schedule) Due(ctx context.Context, now time.Time, limit int64) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	zs, err := s.redis.ZRangeByScoreWithScores(ctx, dueSetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reminders: list due: %w", err)
	}

	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		m, _ := z.Member.(string)
		apptID, offset, ok := parseMember(m)
		if !ok {
			continue
		}
		out = append(out, Entry{
			AppointmentID: apptID,
			Offset:        offset,
			DueAt:         time.Unix(int64(z.Score), 0),
		})
	}
	return out, nil
}

// Remove drops a single delivered (or abandoned) reminder.
func (s *Schedule) Remove(ctx context.Context, e Entry) error {
	if err := s.redis.ZRem(ctx, dueSetKey, member(e.AppointmentID, e.Offset)).Err(); err != nil {
		return fmt.Errorf("reminders: remove: %w", err)
	}
	return nil
}
