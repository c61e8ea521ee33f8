// Package metrics defines the Prometheus series for both nodes and adapts
// them to each component's hooks.
package metrics

import (
	"net/http"
	"time"

	"github.com/aretw0/llmvn/pkg/buttons"
	"github.com/aretw0/llmvn/pkg/display"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/session"
	"github.com/aretw0/llmvn/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "llmvn"

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Host holds the vnhost series.
type Host struct {
	Screens            *prometheus.CounterVec
	Buttons            *prometheus.CounterVec
	ModelReplySeconds  *prometheus.HistogramVec
	Conversations      *prometheus.CounterVec
	ConversationTurns  prometheus.Histogram
	CollaboratorErrors *prometheus.CounterVec
	TopicDrops         *prometheus.CounterVec
	DecodeErrors       prometheus.Counter
}

// NewHost creates and registers the host series on reg.
func NewHost(reg prometheus.Registerer) *Host {
	m := &Host{
		Screens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screens_sent_total",
			Help:      "Screens sent to the controller.",
		}, []string{"kind"}),
		Buttons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buttons_received_total",
			Help:      "Button actions consumed by the session.",
		}, []string{"action"}),
		ModelReplySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_reply_seconds",
			Help:      "Latency of LLM replies.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		}, []string{"outcome"}),
		Conversations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_total",
			Help:      "Finished conversations.",
		}, []string{"character", "end_reason"}),
		ConversationTurns: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversation_turns",
			Help:      "Visitor turns per conversation.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		}),
		CollaboratorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Non-fatal printer and archive failures.",
		}, []string{"collaborator"}),
		TopicDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_drops_total",
			Help:      "Topic events dropped because a subscriber was full.",
		}, []string{"path"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_decode_errors_total",
			Help:      "Malformed frames received on the controller link.",
		}),
	}
	reg.MustRegister(m.Screens, m.Buttons, m.ModelReplySeconds, m.Conversations,
		m.ConversationTurns, m.CollaboratorErrors, m.TopicDrops, m.DecodeErrors)
	return m
}

// SessionHooks records session events, then calls next.
func (m *Host) SessionHooks(next session.Hooks) session.Hooks {
	return session.Hooks{
		OnScreen: func(kind icd.ScreenKind) {
			m.Screens.WithLabelValues(string(kind)).Inc()
			if next.OnScreen != nil {
				next.OnScreen(kind)
			}
		},
		OnButton: func(action icd.ButtonAction) {
			m.Buttons.WithLabelValues(action.String()).Inc()
			if next.OnButton != nil {
				next.OnButton(action)
			}
		},
		OnModelReply: func(elapsed time.Duration, err error) {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			m.ModelReplySeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
			if next.OnModelReply != nil {
				next.OnModelReply(elapsed, err)
			}
		},
		OnConversationEnd: func(record *domain.Conversation) {
			m.Conversations.WithLabelValues(record.Character.Name, string(record.EndReason)).Inc()
			m.ConversationTurns.Observe(float64(record.Turns()))
			if next.OnConversationEnd != nil {
				next.OnConversationEnd(record)
			}
		},
		OnCollaboratorErr: func(collaborator string, err error) {
			m.CollaboratorErrors.WithLabelValues(collaborator).Inc()
			if next.OnCollaboratorErr != nil {
				next.OnCollaboratorErr(collaborator, err)
			}
		},
	}
}

// ClientHooks records transport client events.
func (m *Host) ClientHooks() transport.ClientHooks {
	return transport.ClientHooks{
		OnDecodeError: func(error) { m.DecodeErrors.Inc() },
		OnTopicDrop:   func(path string) { m.TopicDrops.WithLabelValues(path).Inc() },
	}
}

// Controller holds the vncontroller series.
type Controller struct {
	Requests      *prometheus.CounterVec
	Publishes     *prometheus.CounterVec
	PublishErrors *prometheus.CounterVec
	Anomalies     prometheus.Counter
	DecodeErrors  prometheus.Counter
	Draws         prometheus.Counter
	DrawErrors    prometheus.Counter
	HostConnected prometheus.Gauge
}

// NewController creates and registers the controller series on reg.
func NewController(reg prometheus.Registerer) *Controller {
	m := &Controller{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Endpoint requests dispatched.",
		}, []string{"path"}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "button_publishes_total",
			Help:      "Button actions published to the host.",
		}, []string{"action"}),
		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "button_publish_errors_total",
			Help:      "Button actions that could not be published.",
		}, []string{"action"}),
		Anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "button_anomalies_total",
			Help:      "Samples with more than one line held.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_decode_errors_total",
			Help:      "Malformed frames received on the host link.",
		}),
		Draws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_draws_total",
			Help:      "Screens drawn.",
		}),
		DrawErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "display_draw_errors_total",
			Help:      "Screens that failed to draw.",
		}),
		HostConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_connected",
			Help:      "1 while a host is attached to the link.",
		}),
	}
	reg.MustRegister(m.Requests, m.Publishes, m.PublishErrors, m.Anomalies,
		m.DecodeErrors, m.Draws, m.DrawErrors, m.HostConnected)
	return m
}

// SamplerHooks records sampler events.
func (m *Controller) SamplerHooks() buttons.Hooks {
	return buttons.Hooks{
		OnPublish: func(action icd.ButtonAction) {
			m.Publishes.WithLabelValues(action.String()).Inc()
		},
		OnPublishError: func(action icd.ButtonAction, _ error) {
			m.PublishErrors.WithLabelValues(action.String()).Inc()
		},
		OnAnomaly: func(buttons.InputSample) { m.Anomalies.Inc() },
	}
}

// ServerHooks records transport server events.
func (m *Controller) ServerHooks() transport.ServerHooks {
	return transport.ServerHooks{
		OnRequest:     func(path string) { m.Requests.WithLabelValues(path).Inc() },
		OnDecodeError: func(error) { m.DecodeErrors.Inc() },
	}
}

// DisplayHooks records render loop events.
func (m *Controller) DisplayHooks() display.Hooks {
	return display.Hooks{
		OnDraw:      func() { m.Draws.Inc() },
		OnDrawError: func(error) { m.DrawErrors.Inc() },
	}
}
