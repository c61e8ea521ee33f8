package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/llmvn/pkg/buttons"
	"github.com/aretw0/llmvn/pkg/domain"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/aretw0/llmvn/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHost_SessionHooks(t *testing.T) {
	m := NewHost(prometheus.NewRegistry())

	var ended *domain.Conversation
	hooks := m.SessionHooks(session.Hooks{
		OnConversationEnd: func(record *domain.Conversation) { ended = record },
	})

	hooks.OnScreen(icd.ScreenChoices)
	hooks.OnScreen(icd.ScreenChoices)
	hooks.OnButton(icd.Fn2)
	hooks.OnModelReply(2*time.Second, nil)
	hooks.OnModelReply(time.Second, errors.New("down"))
	hooks.OnCollaboratorErr("printer", errors.New("paper out"))

	record := domain.NewConversation("id", domain.Character{Name: "Ada"}, time.Now())
	record.EndReason = domain.EndTimeout
	hooks.OnConversationEnd(record)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Screens.WithLabelValues("choices")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Buttons.WithLabelValues("fn2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CollaboratorErrors.WithLabelValues("printer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conversations.WithLabelValues("Ada", "timeout")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.ModelReplySeconds))
	assert.Same(t, record, ended, "wrapped hooks still run")
}

func TestHost_ClientHooks(t *testing.T) {
	m := NewHost(prometheus.NewRegistry())
	hooks := m.ClientHooks()

	hooks.OnDecodeError(errors.New("bad frame"))
	hooks.OnTopicDrop("button_action")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TopicDrops.WithLabelValues("button_action")))
}

func TestController_Hooks(t *testing.T) {
	m := NewController(prometheus.NewRegistry())

	sampler := m.SamplerHooks()
	sampler.OnPublish(icd.Fn1)
	sampler.OnPublishError(icd.Fn3, errors.New("no host"))
	sampler.OnAnomaly(buttons.InputSample{buttons.Low, buttons.Low, buttons.High, buttons.High})

	server := m.ServerHooks()
	server.OnRequest("ping")
	server.OnDecodeError(errors.New("bad"))

	draw := m.DisplayHooks()
	draw.OnDraw()
	draw.OnDrawError(errors.New("tty gone"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Publishes.WithLabelValues("fn1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishErrors.WithLabelValues("fn3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Anomalies))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("ping")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Draws))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrawErrors))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewController(reg)
	m.HostConnected.Set(1)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "llmvn_host_connected 1")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
