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

// Package metrics exports session statistics to prometheus
package metrics

import (
	"github.com/nuclio/geomserver/pkg/geomserver/session"

	"github.com/nuclio/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// StatisticsProvider is implemented by session.Session
type StatisticsProvider interface {
	ID() string
	GetStatistics() *session.Statistics
}

type SessionGatherer struct {
	provider              StatisticsProvider
	messagesReceivedTotal prometheus.Counter
	modelsLoadedTotal     prometheus.Counter
	elementsTotal         *prometheus.CounterVec
	faultsTotal           prometheus.Counter
	prevStatistics        session.Statistics
}

func NewSessionGatherer(instanceName string,
	provider StatisticsProvider,
	metricRegistry *prometheus.Registry) (*SessionGatherer, error) {

	newSessionGatherer := &SessionGatherer{
		provider: provider,
	}

	labels := prometheus.Labels{
		"instance":   instanceName,
		"session_id": provider.ID(),
	}

	newSessionGatherer.messagesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "geomserver_messages_received_total",
		Help:        "Total number of messages received from the client",
		ConstLabels: labels,
	})

	newSessionGatherer.modelsLoadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "geomserver_models_loaded_total",
		Help:        "Total number of models loaded",
		ConstLabels: labels,
	})

	newSessionGatherer.elementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "geomserver_elements_total",
		Help:        "Total number of elements iterated",
		ConstLabels: labels,
	}, []string{"result"})

	newSessionGatherer.faultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "geomserver_faults_total",
		Help:        "Total number of session faults",
		ConstLabels: labels,
	})

	for _, collector := range []prometheus.Collector{
		newSessionGatherer.messagesReceivedTotal,
		newSessionGatherer.modelsLoadedTotal,
		newSessionGatherer.elementsTotal,
		newSessionGatherer.faultsTotal,
	} {
		if err := metricRegistry.Register(collector); err != nil {
			return nil, errors.Wrap(err, "Failed to register session metric")
		}
	}

	return newSessionGatherer, nil
}

func (sg *SessionGatherer) Gather() error {

	// read current stats
	currentStatistics := sg.provider.GetStatistics().Snapshot()

	// diff from previous to get this period
	diffStatistics := currentStatistics.DiffFrom(&sg.prevStatistics)

	sg.messagesReceivedTotal.Add(float64(diffStatistics.MessagesReceivedTotal))
	sg.modelsLoadedTotal.Add(float64(diffStatistics.ModelsLoadedTotal))
	sg.faultsTotal.Add(float64(diffStatistics.FaultsTotal))

	sg.elementsTotal.With(prometheus.Labels{
		"result": "sent",
	}).Add(float64(diffStatistics.EntitiesSentTotal))

	sg.elementsTotal.With(prometheus.Labels{
		"result": "skipped",
	}).Add(float64(diffStatistics.ElementsSkippedTotal))

	sg.prevStatistics = currentStatistics

	return nil
}
