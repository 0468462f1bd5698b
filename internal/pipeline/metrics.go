// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the ingestion metrics named in SPEC_FULL.md's domain-stack
// table: files processed, objects extracted, resolution rate, and a
// histogram of per-file parse latency. Each Pipeline owns its own
// prometheus.Registry rather than registering on prometheus.DefaultRegisterer,
// so that running several Pipelines in one process never hits a
// duplicate-registration panic. cmd/plsqlg serve reuses one Pipeline, so its
// counters accumulate across reindex cycles.
type Metrics struct {
	Registry *prometheus.Registry

	filesProcessed   prometheus.Counter
	filesFailed      prometheus.Counter
	objectsExtracted prometheus.Counter
	resolutionRate   prometheus.Gauge
	parseLatency     prometheus.Histogram
}

// NewMetrics builds and registers a fresh metric set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		filesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plsqlg",
			Subsystem: "pipeline",
			Name:      "files_processed_total",
			Help:      "Source files successfully parsed and stored.",
		}),
		filesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plsqlg",
			Subsystem: "pipeline",
			Name:      "files_failed_total",
			Help:      "Source files that failed C1-C4 parsing.",
		}),
		objectsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plsqlg",
			Subsystem: "pipeline",
			Name:      "objects_extracted_total",
			Help:      "Code objects written to the store across all runs.",
		}),
		resolutionRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "plsqlg",
			Subsystem: "graph",
			Name:      "resolution_rate",
			Help:      "Fraction of call sites resolved to an edge in the most recent run (edges / (edges + out_of_scope)).",
		}),
		parseLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "plsqlg",
			Subsystem: "pipeline",
			Name:      "parse_duration_seconds",
			Help:      "Per-file C1-C4 parse duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.filesProcessed, m.filesFailed, m.objectsExtracted, m.resolutionRate, m.parseLatency)
	return m
}

func (m *Metrics) observeFile(d float64, objectCount int, failed bool) {
	m.parseLatency.Observe(d)
	if failed {
		m.filesFailed.Inc()
		return
	}
	m.filesProcessed.Inc()
	m.objectsExtracted.Add(float64(objectCount))
}

func (m *Metrics) setResolutionRate(edges, outOfScope int) {
	denom := edges + outOfScope
	if denom == 0 {
		m.resolutionRate.Set(0)
		return
	}
	m.resolutionRate.Set(float64(edges) / float64(denom))
}
