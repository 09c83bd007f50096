// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes factorization progress as Prometheus metrics.
//
// Metrics implements state.Observer, so it can be attached to a controller
// directly. Each instance owns its registry; the command writes it out with
// WriteTextfile for the node exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sirseerhq/sirseer-gnfs/internal/state"
)

const namespace = "gnfs"

// Metrics holds the collectors of one session.
type Metrics struct {
	registry *prometheus.Registry

	pairsScanned      prometheus.Counter
	relations         *prometheus.CounterVec
	dependenciesTried prometheus.Counter
	transitions       *prometheus.CounterVec
	phase             *prometheus.GaugeVec
}

var _ state.Observer = (*Metrics)(nil)

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pairsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_scanned_total",
			Help:      "Coprime (a, b) pairs trial-divided by the sieve.",
		}),
		relations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_total",
			Help:      "Relations found, by kind.",
		}, []string{"kind"}),
		dependenciesTried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependencies_tried_total",
			Help:      "Null space vectors handed to the square root step.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Phase transitions, by target phase.",
		}, []string{"phase"}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase",
			Help:      "1 for the current phase of the session, 0 otherwise.",
		}, []string{"phase"}),
	}

	m.registry.MustRegister(m.pairsScanned, m.relations, m.dependenciesTried, m.transitions, m.phase)
	for _, p := range state.Phases {
		m.phase.WithLabelValues(string(p)).Set(0)
	}
	m.phase.WithLabelValues(string(state.PhaseInit)).Set(1)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// PhaseChanged moves the phase gauge and counts the transition.
func (m *Metrics) PhaseChanged(from, to state.Phase) {
	m.phase.WithLabelValues(string(from)).Set(0)
	m.phase.WithLabelValues(string(to)).Set(1)
	m.transitions.WithLabelValues(string(to)).Inc()
}

// RelationsFound adds count relations of kind.
func (m *Metrics) RelationsFound(kind state.RelationKind, count int) {
	m.relations.WithLabelValues(string(kind)).Add(float64(count))
}

// PairsScanned adds count examined pairs.
func (m *Metrics) PairsScanned(count int64) {
	m.pairsScanned.Add(float64(count))
}

// DependenciesTried adds count dependencies.
func (m *Metrics) DependenciesTried(count int) {
	m.dependenciesTried.Add(float64(count))
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
