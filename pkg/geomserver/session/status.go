/*
Copyright 2024 The Nuclio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package session

import (
	"fmt"
	"sync/atomic"
)

// Status is the phase of a session
type Status int32

const (
	NoModel Status = iota
	Iterating
	Exhausted
	Terminated
)

func (s Status) String() string {
	switch s {
	case NoModel:
		return "noModel"
	case Iterating:
		return "iterating"
	case Exhausted:
		return "exhausted"
	case Terminated:
		return "terminated"
	}

	return fmt.Sprintf("Unknown status - %d", s)
}

// Statistics counts what a session did. Counters are updated atomically so that they can be
// read while the session runs
type Statistics struct {
	MessagesReceivedTotal uint64
	ModelsLoadedTotal     uint64
	EntitiesSentTotal     uint64
	ElementsSkippedTotal  uint64
	FaultsTotal           uint64
}

func (s *Statistics) DiffFrom(prev *Statistics) Statistics {
	return Statistics{
		MessagesReceivedTotal: atomic.LoadUint64(&s.MessagesReceivedTotal) - atomic.LoadUint64(&prev.MessagesReceivedTotal),
		ModelsLoadedTotal:     atomic.LoadUint64(&s.ModelsLoadedTotal) - atomic.LoadUint64(&prev.ModelsLoadedTotal),
		EntitiesSentTotal:     atomic.LoadUint64(&s.EntitiesSentTotal) - atomic.LoadUint64(&prev.EntitiesSentTotal),
		ElementsSkippedTotal:  atomic.LoadUint64(&s.ElementsSkippedTotal) - atomic.LoadUint64(&prev.ElementsSkippedTotal),
		FaultsTotal:           atomic.LoadUint64(&s.FaultsTotal) - atomic.LoadUint64(&prev.FaultsTotal),
	}
}

// Snapshot returns a copy of the counters
func (s *Statistics) Snapshot() Statistics {
	return s.DiffFrom(&Statistics{})
}
