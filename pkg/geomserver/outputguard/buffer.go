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

package outputguard

import (
	"bytes"
	"sync"
)

// captureBuffer keeps the most recent maxBytes written to it. maxBytes of 0 means no limit
type captureBuffer struct {
	lock     sync.Mutex
	buffer   bytes.Buffer
	maxBytes int
}

func newCaptureBuffer(maxBytes int) *captureBuffer {
	return &captureBuffer{
		maxBytes: maxBytes,
	}
}

func (cb *captureBuffer) Write(contents []byte) (int, error) {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	cb.buffer.Write(contents) // nolint: errcheck

	// drop the oldest bytes
	if cb.maxBytes > 0 && cb.buffer.Len() > cb.maxBytes {
		cb.buffer.Next(cb.buffer.Len() - cb.maxBytes)
	}

	return len(contents), nil
}

func (cb *captureBuffer) String() string {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	return cb.buffer.String()
}

func (cb *captureBuffer) Reset() {
	cb.lock.Lock()
	defer cb.lock.Unlock()

	cb.buffer.Reset()
}
