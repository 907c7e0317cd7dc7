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
	"bufio"
	"context"
	"io"
	"sync/atomic"

	"github.com/nuclio/geomserver/pkg/geomserver"
	"github.com/nuclio/geomserver/pkg/geomserver/iterator"
	"github.com/nuclio/geomserver/pkg/geomserver/message"
	"github.com/nuclio/geomserver/pkg/geomserver/outputguard"
	"github.com/nuclio/geomserver/pkg/geomserver/serializer"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/rs/xid"
)

var (

	// ErrProtocolFault is the cause of errors raised by messages that are not valid in the
	// session's current phase
	ErrProtocolFault = errors.New("Protocol fault")

	// ErrFraming is the cause of errors raised when the input stream ends
	ErrFraming = errors.New("Framing fault")
)

type Configuration struct {

	// identifies the session in logs and metrics, generated when empty
	ID string

	// metadata extension attached to every entity
	Extension serializer.ExtensionKind

	// whether GetLog reports captured output
	ReportLog bool
}

// Session runs the protocol over one input stream until the client says bye or a fault occurs
type Session struct {
	logger        logger.Logger
	configuration Configuration
	input         *bufio.Reader
	guard         *outputguard.Guard
	factory       geomserver.ModelFactory
	catalog       geomserver.Catalog
	extension     serializer.Extension
	status        int32
	statistics    Statistics

	// pending until the next model is loaded
	deflection float64
	settings   []geomserver.Setting

	model           geomserver.Model
	kernel          geomserver.Kernel
	iterator        *iterator.Iterator
	hasMore         bool
	reportedSkipped int
}

func NewSession(parentLogger logger.Logger,
	input io.Reader,
	guard *outputguard.Guard,
	factory geomserver.ModelFactory,
	catalog geomserver.Catalog,
	configuration *Configuration) (*Session, error) {
	newSession := &Session{
		configuration: *configuration,
		input:         bufio.NewReader(input),
		guard:         guard,
		factory:       factory,
		catalog:       catalog,
		status:        int32(NoModel),
	}

	if newSession.configuration.ID == "" {
		newSession.configuration.ID = xid.New().String()
	}

	newSession.logger = parentLogger.GetChild(newSession.configuration.ID)

	extension, err := serializer.NewExtension(newSession.configuration.Extension)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create metadata extension")
	}

	newSession.extension = extension

	return newSession, nil
}

// Run greets the client and serves messages until Bye, which returns nil. Any fault ends the
// session with an error
func (s *Session) Run(ctx context.Context) error {
	s.logger.DebugWith("Starting session", "id", s.configuration.ID)

	if err := s.guard.WriteMessage(&message.Hello{Version: message.HelloVersion}); err != nil {
		return s.fail(errors.Wrap(err, "Failed to greet client"))
	}

	for {
		if err := ctx.Err(); err != nil {
			return s.fail(errors.Wrap(err, "Session aborted"))
		}

		incomingMessage, err := message.Read(s.input)
		if err != nil {
			if err == io.EOF {
				return s.fail(errors.Wrap(ErrFraming, "Input closed before bye"))
			}

			return s.fail(errors.Wrap(err, "Failed to read message"))
		}

		atomic.AddUint64(&s.statistics.MessagesReceivedTotal, 1)

		s.logger.DebugWith("Got message", "type", incomingMessage.Type(), "status", s.GetStatus())

		terminated, err := s.handle(incomingMessage)
		if err != nil {
			return s.fail(errors.Wrapf(err, "Failed to handle %s", incomingMessage.Type()))
		}

		if terminated {
			s.setStatus(Terminated)
			s.logger.DebugWith("Session ended", "statistics", s.statistics.Snapshot())

			return nil
		}
	}
}

// ID returns the session's identifier
func (s *Session) ID() string {
	return s.configuration.ID
}

// GetStatus returns the session's phase
func (s *Session) GetStatus() Status {
	return Status(atomic.LoadInt32(&s.status))
}

// GetStatistics returns the session's live counters
func (s *Session) GetStatistics() *Statistics {
	return &s.statistics
}

func (s *Session) handle(incomingMessage message.Message) (bool, error) {
	switch typedMessage := incomingMessage.(type) {
	case *message.IfcModel:
		return false, s.loadModel(typedMessage.Content)

	case *message.Get:
		return false, s.get()

	case *message.Next:
		return false, s.next()

	case *message.Deflection:
		if s.model != nil {
			return false, errors.Wrap(ErrProtocolFault, "Deflection must be set before the model is loaded")
		}

		s.deflection = typedMessage.Deflection

		return false, nil

	case *message.Setting:
		if s.model != nil {
			return false, errors.Wrap(ErrProtocolFault, "Settings must be set before the model is loaded")
		}

		s.settings = append(s.settings, geomserver.Setting{
			Key:   typedMessage.Key,
			Value: typedMessage.Value,
		})

		return false, nil

	case *message.GetLog:
		return false, s.getLog()

	case *message.Bye:
		return true, s.guard.WriteMessage(&message.Bye{})
	}

	return false, errors.Wrapf(ErrProtocolFault, "Clients may not send %s", incomingMessage.Type())
}

func (s *Session) loadModel(content []byte) error {

	// the previous model, if any, is replaced even if the new one fails to load
	s.model = nil
	s.kernel = nil
	s.iterator = nil
	s.hasMore = false
	s.reportedSkipped = 0

	model, kernel, err := s.factory.Create(geomserver.BufferSupplier(content), &geomserver.ModelOptions{
		Deflection: s.deflection,
		Settings:   s.settings,
	})

	if err != nil {
		return errors.Wrapf(ErrProtocolFault, "Failed to load model: %s", errors.Cause(err))
	}

	atomic.AddUint64(&s.statistics.ModelsLoadedTotal, 1)

	s.model = model
	s.kernel = kernel
	s.iterator = iterator.NewIterator(s.logger, model, s.catalog, kernel)
	s.hasMore = s.iteratorHasMore()

	s.logger.DebugWith("Loaded model",
		"bytes", len(content),
		"candidates", s.iterator.Candidates(),
		"hasMore", s.hasMore)

	return s.sendMore()
}

func (s *Session) get() error {
	if s.model == nil {
		return errors.Wrap(ErrProtocolFault, "No model is loaded")
	}

	if !s.hasMore || s.iterator == nil {
		return errors.Wrap(ErrProtocolFault, "No element is available")
	}

	element, err := s.iterator.Next()
	s.reportSkipped()

	if err != nil {
		return errors.Wrap(ErrProtocolFault, "No element is available")
	}

	entity, err := serializer.NewSerializer(s.logger, s.model, s.kernel, s.extension).Serialize(element)
	if err != nil {
		return errors.Wrapf(err, "Failed to serialize element #%d", element.ExpressID)
	}

	if err := s.guard.WriteMessage(entity); err != nil {
		return errors.Wrap(err, "Failed to send entity")
	}

	atomic.AddUint64(&s.statistics.EntitiesSentTotal, 1)

	return nil
}

func (s *Session) next() error {
	if s.model == nil {
		return errors.Wrap(ErrProtocolFault, "No model is loaded")
	}

	if s.iterator != nil {
		s.hasMore = s.iteratorHasMore()

		if !s.hasMore {
			s.logger.DebugWith("Iteration done", "skipped", s.iterator.Skipped())
			s.iterator = nil
		}
	} else {
		s.hasMore = false
	}

	return s.sendMore()
}

func (s *Session) getLog() error {
	text := ""

	if s.configuration.ReportLog {
		text = s.guard.Captured()
		s.guard.ResetCaptured()
	}

	return s.guard.WriteMessage(&message.Log{Text: text})
}

func (s *Session) sendMore() error {
	if s.hasMore {
		s.setStatus(Iterating)
	} else {
		s.setStatus(Exhausted)
	}

	return s.guard.WriteMessage(&message.More{More: s.hasMore})
}

func (s *Session) iteratorHasMore() bool {
	hasMore := s.iterator.HasMore()
	s.reportSkipped()

	return hasMore
}

func (s *Session) reportSkipped() {
	skipped := s.iterator.Skipped()

	atomic.AddUint64(&s.statistics.ElementsSkippedTotal, uint64(skipped-s.reportedSkipped))
	s.reportedSkipped = skipped
}

func (s *Session) setStatus(status Status) {
	atomic.StoreInt32(&s.status, int32(status))
}

func (s *Session) fail(err error) error {
	atomic.AddUint64(&s.statistics.FaultsTotal, 1)
	s.setStatus(Terminated)

	s.logger.WarnWith("Session failed", "err", errors.GetErrorStackString(err, 10))

	return err
}

// ExitCode returns the process exit code for the result of Run
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	return 1
}
