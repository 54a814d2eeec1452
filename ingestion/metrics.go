// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters a Builder updates while indexing.
type Metrics struct {
	RecordsRead    prometheus.Counter
	RecordsIndexed prometheus.Counter
	RecordsSkipped prometheus.Counter
	ChunksIndexed  prometheus.Counter
	MalformedLines prometheus.Counter
	Failures       *prometheus.CounterVec
	RecordDuration prometheus.Histogram
}

// NewMetrics creates the indexing metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vidindex",
			Name:      "records_read_total",
			Help:      "Transcript records read from the source.",
		}),
		RecordsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vidindex",
			Name:      "records_indexed_total",
			Help:      "Transcript records whose vectors and chunks were written.",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vidindex",
			Name:      "records_skipped_total",
			Help:      "Transcript records skipped because the transcript was blank.",
		}),
		ChunksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vidindex",
			Name:      "chunks_indexed_total",
			Help:      "Chunks saved to the chunk store.",
		}),
		MalformedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vidindex",
			Name:      "malformed_lines_total",
			Help:      "Source lines skipped because they could not be parsed.",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vidindex",
			Name:      "index_failures_total",
			Help:      "Records that failed to index, by stage.",
		}, []string{"stage"}),
		RecordDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vidindex",
			Name:      "record_index_seconds",
			Help:      "Time spent indexing a single record.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsRead,
		m.RecordsIndexed,
		m.RecordsSkipped,
		m.ChunksIndexed,
		m.MalformedLines,
		m.Failures,
		m.RecordDuration,
	}
}
