package stream

import (
	"fmt"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const metricPrefix = "grocerychat_stream_"

// Stats are the manager's lifetime counters.
type Stats struct {
	Dials     uint64
	Opens     uint64
	Closes    uint64
	Errors    uint64
	Retries   uint64
	Frames    uint64
	Dropped   uint64
	Delivered uint64
	Stale     uint64
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// MetricFamilies returns the counters and a per-status gauge as Prometheus
// metric families, sorted by name.
func (m *Manager) MetricFamilies() []*dto.MetricFamily {
	m.mu.Lock()
	st, status := m.stats, m.status
	m.mu.Unlock()

	counters := []struct {
		name, help string
		v          uint64
	}{
		{"delivered_total", "Messages handed to the sink.", st.Delivered},
		{"dials_total", "Transport dial attempts.", st.Dials},
		{"closes_total", "Close events from the current connection.", st.Closes},
		{"errors_total", "Error events from the current connection.", st.Errors},
		{"frames_dropped_total", "Frames that were not chat messages.", st.Dropped},
		{"frames_total", "Frames received.", st.Frames},
		{"opens_total", "Connections that completed the handshake.", st.Opens},
		{"retries_total", "Reconnects scheduled.", st.Retries},
		{"stale_events_total", "Events ignored because their connection was replaced.", st.Stale},
	}

	out := make([]*dto.MetricFamily, 0, len(counters)+1)
	for _, c := range counters {
		out = append(out, &dto.MetricFamily{
			Name: proto.String(metricPrefix + c.name),
			Help: proto.String(c.help),
			Type: dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{
				Counter: &dto.Counter{Value: proto.Float64(float64(c.v))},
			}},
		})
	}

	gauge := &dto.MetricFamily{
		Name: proto.String(metricPrefix + "status"),
		Help: proto.String("1 for the current connection status, 0 otherwise."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, s := range []Status{StatusIdle, StatusConnecting, StatusOpen, StatusClosed} {
		v := 0.0
		if s == status {
			v = 1
		}
		gauge.Metric = append(gauge.Metric, &dto.Metric{
			Label: []*dto.LabelPair{{Name: proto.String("status"), Value: proto.String(s.String())}},
			Gauge: &dto.Gauge{Value: proto.Float64(v)},
		})
	}
	out = append(out, gauge)

	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// WriteMetrics renders MetricFamilies in the Prometheus text format.
func (m *Manager) WriteMetrics(w io.Writer) error {
	for _, mf := range m.MetricFamilies() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("stream: write metrics: %w", err)
		}
	}
	return nil
}
