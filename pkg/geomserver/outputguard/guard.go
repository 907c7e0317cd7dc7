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
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/nuclio/geomserver/pkg/geomserver/message"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// Guard owns the protocol output stream. While a capture is active, anything written to
// os.Stdout lands in a bounded buffer instead of the protocol stream
type Guard struct {
	logger         logger.Logger
	protocolOutput *bufio.Writer
	writeLock      sync.Mutex
	captured       *captureBuffer
	captureLock    sync.Mutex
	activePipe     *capturePipe
	previousStdout *os.File
}

type capturePipe struct {
	reader  *os.File
	writer  *os.File
	drained chan struct{}
}

// NewGuard creates a guard writing frames to protocolOutput, which is normally the
// process's original stdout
func NewGuard(parentLogger logger.Logger, protocolOutput io.Writer, maxCapturedBytes int) *Guard {
	return &Guard{
		logger:         parentLogger.GetChild("guard"),
		protocolOutput: bufio.NewWriter(protocolOutput),
		captured:       newCaptureBuffer(maxCapturedBytes),
	}
}

// Capture points os.Stdout at the capture buffer. The returned function restores the previous
// os.Stdout, waits for the captured text to be drained and must be called on every path
func (g *Guard) Capture() (func(), error) {
	g.captureLock.Lock()
	defer g.captureLock.Unlock()

	if g.activePipe != nil {
		return nil, errors.New("Output is already being captured")
	}

	activePipe, err := g.openPipe()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create capture pipe")
	}

	g.previousStdout = os.Stdout
	g.activePipe = activePipe
	os.Stdout = activePipe.writer

	var releaseOnce sync.Once

	return func() {
		releaseOnce.Do(func() {
			g.captureLock.Lock()
			defer g.captureLock.Unlock()

			os.Stdout = g.previousStdout
			g.closePipe(g.activePipe)
			g.activePipe = nil
		})
	}, nil
}

// WriteMessage writes one frame to the protocol stream and flushes it
func (g *Guard) WriteMessage(outgoingMessage message.Message) error {
	g.writeLock.Lock()
	defer g.writeLock.Unlock()

	return message.Write(g.protocolOutput, outgoingMessage)
}

// Captured returns the text captured so far. While capturing, os.Stdout is moved to a fresh
// pipe and the previous one is drained first, so everything written before the call is included
func (g *Guard) Captured() string {
	g.captureLock.Lock()
	defer g.captureLock.Unlock()

	if g.activePipe != nil {
		if err := g.rotatePipe(); err != nil {
			g.logger.WarnWith("Failed to rotate capture pipe", "err", errors.Cause(err))
		}
	}

	return g.captured.String()
}

// ResetCaptured drops the text captured so far
func (g *Guard) ResetCaptured() {
	g.captured.Reset()
}

func (g *Guard) openPipe() (*capturePipe, error) {
	pipeReader, pipeWriter, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	newPipe := &capturePipe{
		reader:  pipeReader,
		writer:  pipeWriter,
		drained: make(chan struct{}),
	}

	go g.drain(pipeReader, newPipe.drained)

	return newPipe, nil
}

// closePipe returns once everything written to the pipe is in the capture buffer
func (g *Guard) closePipe(pipe *capturePipe) {
	pipe.writer.Close() // nolint: errcheck
	<-pipe.drained
	pipe.reader.Close() // nolint: errcheck
}

// must be called with captureLock held
func (g *Guard) rotatePipe() error {
	nextPipe, err := g.openPipe()
	if err != nil {
		return errors.Wrap(err, "Failed to create capture pipe")
	}

	os.Stdout = nextPipe.writer
	g.closePipe(g.activePipe)
	g.activePipe = nextPipe

	return nil
}

func (g *Guard) drain(pipeReader io.Reader, drained chan struct{}) {
	defer close(drained)

	chunk := make([]byte, 4096)
	for {
		readBytes, err := pipeReader.Read(chunk)
		if readBytes > 0 {
			g.captured.Write(chunk[:readBytes]) // nolint: errcheck

			g.logger.DebugWith("Captured output", "bytes", readBytes)
		}

		if err != nil {
			return
		}
	}
}
