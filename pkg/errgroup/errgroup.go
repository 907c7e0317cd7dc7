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

// Package errgroup runs the long lived parts of a process together and recovers their panics
package errgroup

import (
	"context"
	"runtime/debug"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"golang.org/x/sync/errgroup"
)

type Group struct {
	*errgroup.Group
	logger logger.Logger
}

func WithContext(ctx context.Context, loggerInstance logger.Logger) (*Group, context.Context) {
	newBaseErrgroup, errgroupCtx := errgroup.WithContext(ctx)

	return &Group{
		Group:  newBaseErrgroup,
		logger: loggerInstance,
	}, errgroupCtx
}

// Go runs f in a goroutine. A panic in f is logged with its call stack and returned as an error
func (g *Group) Go(actionName string, f func() error) {
	wrapper := func() (err error) {
		defer func() {
			if recoveredErr := recover(); recoveredErr != nil {
				g.logger.ErrorWith("Panic recovered",
					"action", actionName,
					"err", recoveredErr,
					"stack", string(debug.Stack()))

				err = errorFromRecoveredError(actionName, recoveredErr)
			}
		}()
		err = f()
		return
	}
	g.Group.Go(wrapper)
}

func errorFromRecoveredError(actionName string, recoveredErr interface{}) error {
	if typedErr, isError := recoveredErr.(error); isError {
		return errors.Wrapf(typedErr, "Panic in %s", actionName)
	}

	return errors.Errorf("Panic in %s: %v", actionName, recoveredErr)
}
