package membership

import (
	"encoding/json"
	"os"
	"sync"
)

// Bucket classifies why an entry was parked.
type Bucket string

const (
	BucketRetryLimitExceeded Bucket = "retry_limit_exceeded"
	BucketCapacityEvicted    Bucket = "capacity_evicted"
)

// DeadLetterEntry is one failed operation parked for replay.
type DeadLetterEntry struct {
	ID               string
	Bucket           Bucket
	Payload          []byte
	Attempts         int
	ConsecutiveFails int
}

// ReplayScheduleState is the persisted cursor of the fair selector, so
// starvation symmetry between the two buckets survives restarts.
type ReplayScheduleState struct {
	PreferCapacityEvicted bool `json:"prefer_capacity_evicted"`
	Streak                int  `json:"streak"`
}

// DeadLetterQueue parks failed operations in two buckets
// (retry-limit-exceeded and capacity-evicted) and selects entries for
// replay fairly between them: it keeps drawing from the preferred
// bucket until a configurable streak cap is hit, then alternates, so
// neither bucket can starve the other.
type DeadLetterQueue struct {
	mu        sync.Mutex
	order     map[Bucket][]string
	entries   map[string]*DeadLetterEntry
	streakCap int
	state     ReplayScheduleState
}

func NewDeadLetterQueue(streakCap int) *DeadLetterQueue {
	return &DeadLetterQueue{
		order:     map[Bucket][]string{BucketRetryLimitExceeded: nil, BucketCapacityEvicted: nil},
		entries:   make(map[string]*DeadLetterEntry),
		streakCap: streakCap,
	}
}

// Push parks an entry in the retry-limit-exceeded bucket, or resets an
// existing entry's payload if re-pushed under the same id.
func (q *DeadLetterQueue) Push(id string, payload []byte) {
	q.push(id, payload, BucketRetryLimitExceeded)
}

// PushEvicted parks an entry in the capacity-evicted bucket.
func (q *DeadLetterQueue) PushEvicted(id string, payload []byte) {
	q.push(id, payload, BucketCapacityEvicted)
}

func (q *DeadLetterQueue) push(id string, payload []byte, bucket Bucket) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if existing, ok := q.entries[id]; ok {
		existing.Payload = payload
		return
	}
	q.order[bucket] = append(q.order[bucket], id)
	q.entries[id] = &DeadLetterEntry{ID: id, Bucket: bucket, Payload: payload}
}

// Next returns the next entry to replay under the fair two-bucket
// policy, rotating the chosen entry to the back of its bucket. Returns
// false when every remaining entry has exceeded the streak cap.
func (q *DeadLetterQueue) Next() (*DeadLetterEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	first, second := BucketRetryLimitExceeded, BucketCapacityEvicted
	if q.state.PreferCapacityEvicted {
		first, second = second, first
	}

	if q.streakCap > 0 && q.state.Streak >= q.streakCap {
		q.state.PreferCapacityEvicted = !q.state.PreferCapacityEvicted
		q.state.Streak = 0
		first, second = second, first
	}

	if e, ok := q.nextFromBucket(first); ok {
		q.state.Streak++
		return e, true
	}
	if e, ok := q.nextFromBucket(second); ok {
		q.state.PreferCapacityEvicted = second == BucketCapacityEvicted
		q.state.Streak = 1
		return e, true
	}
	return nil, false
}

// nextFromBucket returns the oldest entry in bucket whose
// consecutive-failure streak is still under the cap, rotating it to
// the back.
func (q *DeadLetterQueue) nextFromBucket(bucket Bucket) (*DeadLetterEntry, bool) {
	order := q.order[bucket]
	for i := 0; i < len(order); i++ {
		id := order[0]
		order = append(order[1:], id)
		q.order[bucket] = order
		e, ok := q.entries[id]
		if !ok {
			continue
		}
		if q.streakCap <= 0 || e.ConsecutiveFails < q.streakCap {
			return e, true
		}
	}
	return nil, false
}

// RecordSuccess removes a successfully replayed entry.
func (q *DeadLetterQueue) RecordSuccess(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return
	}
	delete(q.entries, id)
	order := q.order[e.Bucket]
	for i, o := range order {
		if o == id {
			q.order[e.Bucket] = append(order[:i], order[i+1:]...)
			break
		}
	}
}

// RecordFailure increments an entry's attempt and streak counters.
func (q *DeadLetterQueue) RecordFailure(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e, ok := q.entries[id]; ok {
		e.Attempts++
		e.ConsecutiveFails++
	}
}

// Len reports how many entries remain parked across both buckets.
func (q *DeadLetterQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// State returns the selector's persisted cursor.
func (q *DeadLetterQueue) State() ReplayScheduleState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// RestoreState reinstates a previously persisted cursor.
func (q *DeadLetterQueue) RestoreState(s ReplayScheduleState) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.state = s
}

// SaveReplayScheduleState / LoadReplayScheduleState persist the fair
// selector's cursor as a small JSON file next to the other per-node
// membership state files.
func SaveReplayScheduleState(path string, s ReplayScheduleState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func LoadReplayScheduleState(path string) (ReplayScheduleState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ReplayScheduleState{}, err
	}
	var s ReplayScheduleState
	if err := json.Unmarshal(data, &s); err != nil {
		return ReplayScheduleState{}, err
	}
	return s, nil
}
