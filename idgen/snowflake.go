package idgen

import (
	"sync"
	"time"

	"github.com/forbearing/quickdb/quickdberr"
)

const (
	snowflakeEpochMs      = int64(1704067200000) // 2024-01-01T00:00:00Z, arbitrary fixed epoch
	snowflakeTimestampBits = 41
	snowflakeDatacenterBits = 5
	snowflakeMachineBits    = 5
	snowflakeSequenceBits   = 12

	snowflakeMaxDatacenter = 1<<snowflakeDatacenterBits - 1
	snowflakeMaxMachine    = 1<<snowflakeMachineBits - 1
	snowflakeMaxSequence   = 1<<snowflakeSequenceBits - 1

	snowflakeMachineShift    = snowflakeSequenceBits
	snowflakeDatacenterShift = snowflakeSequenceBits + snowflakeMachineBits
	snowflakeTimestampShift  = snowflakeSequenceBits + snowflakeMachineBits + snowflakeDatacenterBits
)

// Snowflake generates 64-bit, time-sortable, globally unique (within the
// configured datacenter/machine pair) ids: a 41-bit millisecond
// timestamp, a 5-bit datacenter id, a 5-bit machine id, and a 12-bit
// per-millisecond sequence.
type Snowflake struct {
	mu           sync.Mutex
	datacenterID int64
	machineID    int64
	lastMs       int64
	sequence     int64

	// nowMs is overridable in tests to simulate clock regression.
	nowMs func() int64
}

// NewSnowflake builds a Snowflake generator for the given datacenter and
// machine id, each required to be in [0,31].
func NewSnowflake(datacenterID, machineID int64) (*Snowflake, error) {
	if datacenterID < 0 || datacenterID > snowflakeMaxDatacenter {
		return nil, quickdberr.Config("snowflake datacenter_id must be in [0,31], got %d", datacenterID)
	}
	if machineID < 0 || machineID > snowflakeMaxMachine {
		return nil, quickdberr.Config("snowflake machine_id must be in [0,31], got %d", machineID)
	}
	return &Snowflake{
		datacenterID: datacenterID,
		machineID:    machineID,
		lastMs:       -1,
		nowMs:        func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// Next allocates the next id. The sequence increments within the same
// millisecond and resets on tick; on clock regression it busy-waits until
// time advances past the last observed millisecond.
func (s *Snowflake) Next() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowMs()
	if now < s.lastMs {
		for now < s.lastMs {
			time.Sleep(time.Millisecond)
			now = s.nowMs()
		}
	}

	if now == s.lastMs {
		s.sequence = (s.sequence + 1) & snowflakeMaxSequence
		if s.sequence == 0 {
			// Sequence exhausted this millisecond; spin to the next tick.
			for now <= s.lastMs {
				now = s.nowMs()
			}
		}
	} else {
		s.sequence = 0
	}
	s.lastMs = now

	id := ((now - snowflakeEpochMs) << snowflakeTimestampShift) |
		(s.datacenterID << snowflakeDatacenterShift) |
		(s.machineID << snowflakeMachineShift) |
		s.sequence
	return id, nil
}
