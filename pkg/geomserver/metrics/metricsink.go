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

package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultGatherInterval = 5 * time.Second
	shutdownTimeout       = 5 * time.Second
)

type Configuration struct {
	InstanceName   string
	ListenAddress  string
	GatherInterval time.Duration
}

// MetricSink serves session metrics over http for prometheus to pull
type MetricSink struct {
	logger         logger.Logger
	configuration  Configuration
	metricRegistry *prometheus.Registry
	gatherers      []*SessionGatherer
	gatherLock     sync.Mutex
}

func NewMetricSink(parentLogger logger.Logger,
	configuration *Configuration,
	providers ...StatisticsProvider) (*MetricSink, error) {

	newMetricSink := &MetricSink{
		logger:         parentLogger.GetChild("metrics"),
		configuration:  *configuration,
		metricRegistry: prometheus.NewRegistry(),
	}

	if newMetricSink.configuration.GatherInterval == 0 {
		newMetricSink.configuration.GatherInterval = DefaultGatherInterval
	}

	for _, provider := range providers {
		sessionGatherer, err := NewSessionGatherer(newMetricSink.configuration.InstanceName,
			provider,
			newMetricSink.metricRegistry)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to create session gatherer")
		}

		newMetricSink.gatherers = append(newMetricSink.gatherers, sessionGatherer)
	}

	newMetricSink.logger.DebugWith("Created",
		"instanceName", newMetricSink.configuration.InstanceName,
		"listenAddress", newMetricSink.configuration.ListenAddress)

	return newMetricSink, nil
}

// Start serves the router until ctx is done, gathering statistics periodically
func (ms *MetricSink) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              ms.configuration.ListenAddress,
		Handler:           ms.Router(),
		ReadHeaderTimeout: shutdownTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	ms.logger.DebugWith("Listening", "listenAddress", ms.configuration.ListenAddress)

	ticker := time.NewTicker(ms.configuration.GatherInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := ms.Gather(); err != nil {
				ms.logger.WarnWith("Failed to gather metrics", "err", err.Error())
			}

		case err := <-serverErr:
			return errors.Wrapf(err, "Failed to listen on %s", ms.configuration.ListenAddress)

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "Failed to shut down metrics server")
			}

			ms.logger.DebugWith("Stopped")

			return nil
		}
	}
}

// Router serves /metrics for prometheus and /statistics as JSON, keyed by session id
func (ms *MetricSink) Router() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)

	router.Handle("/metrics", ms.Handler())
	router.Get("/statistics", ms.serveStatistics)

	return router
}

// Handler returns an http handler exposing the registry, gathering first
func (ms *MetricSink) Handler() http.Handler {
	registryHandler := promhttp.HandlerFor(ms.metricRegistry, promhttp.HandlerOpts{})

	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if err := ms.Gather(); err != nil {
			ms.logger.WarnWith("Failed to gather metrics", "err", err.Error())
		}

		registryHandler.ServeHTTP(responseWriter, request)
	})
}

func (ms *MetricSink) Gather() error {
	ms.gatherLock.Lock()
	defer ms.gatherLock.Unlock()

	for _, gatherer := range ms.gatherers {
		if err := gatherer.Gather(); err != nil {
			return err
		}
	}

	return nil
}

func (ms *MetricSink) serveStatistics(responseWriter http.ResponseWriter, request *http.Request) {
	statistics := map[string]interface{}{}
	for _, gatherer := range ms.gatherers {
		statistics[gatherer.provider.ID()] = gatherer.provider.GetStatistics().Snapshot()
	}

	responseWriter.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(responseWriter).Encode(statistics); err != nil {
		ms.logger.WarnWith("Failed to write statistics", "err", err.Error())
	}
}
