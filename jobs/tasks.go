package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRemoteSync pushes the authoritative whitelist to the game server.
	TaskRemoteSync = "whitelist:remote_sync"
	// TaskCacheWarm refreshes the per-role cache from the backing store.
	TaskCacheWarm = "whitelist:cache_warm"
)

// RemoteSyncPayload carries scheduling metadata for a sync run.
type RemoteSyncPayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRemoteSyncTask constructs an Asynq task for a remote whitelist sync.
func NewRemoteSyncTask(reason string) (*asynq.Task, error) {
	payload := RemoteSyncPayload{Reason: reason, RequestedAt: time.Now().UTC()}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRemoteSync, body, asynq.Queue(QueueDefault)), nil
}

// CacheWarmPayload carries scheduling metadata for a cache warm run.
type CacheWarmPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewCacheWarmTask constructs an Asynq task for warming the role caches.
func NewCacheWarmTask() (*asynq.Task, error) {
	payload := CacheWarmPayload{RequestedAt: time.Now().UTC()}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarm, body, asynq.Queue(QueueDefault)), nil
}
