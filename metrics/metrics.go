// Package metrics counts cache transport events with Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	goasidecache "github.com/dgduncan/go-aside-cache"
)

type Recorder struct {
	reg      prometheus.Registerer
	registry *prometheus.Registry
	events   *prometheus.CounterVec
}

var _ goasidecache.Recorder = (*Recorder)(nil)

// NewRecorder registers aside_cache_events_total with reg. A nil reg gets a
// private registry, served by Handler.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{}
	if reg == nil {
		r.registry = prometheus.NewRegistry()
		reg = r.registry
	}
	r.reg = reg

	r.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aside_cache_events_total",
		Help: "Total cache transport decisions by event",
	}, []string{"event"})

	if err := reg.Register(r.events); err != nil {
		return nil, err
	}

	// zero series so dashboards see every event from start
	for _, e := range goasidecache.Events {
		r.events.WithLabelValues(string(e))
	}

	return r, nil
}

// Register adds store-specific collectors next to the event counter.
func (r *Recorder) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) Record(e goasidecache.Event) {
	if r == nil {
		return
	}
	r.events.WithLabelValues(string(e)).Inc()
}

// Handler serves the private registry, or the default gatherer when the
// recorder was registered elsewhere.
func (r *Recorder) Handler() http.Handler {
	if r.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
