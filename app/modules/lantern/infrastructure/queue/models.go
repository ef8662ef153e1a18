package lanternqueue

import "time"

// RoundExpireJobKind is the river kind of RoundExpireJob.
const RoundExpireJobKind = "lantern_round_expire"

// QueueName is the river queue lantern jobs run on.
const QueueName = "lantern"

// RoundExpireJob closes the round at EndTime. EndTime makes the job unique per round window.
type RoundExpireJob struct {
	EndTime time.Time `json:"end_time"`
}

// Kind returns the job type identifier for River
func (RoundExpireJob) Kind() string { return RoundExpireJobKind }

// JobInfo describes a pending expiry job.
type JobInfo struct {
	ID          int64     `json:"id"`
	State       string    `json:"state"`
	EndTime     time.Time `json:"end_time"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Attempt     int       `json:"attempt"`
}
