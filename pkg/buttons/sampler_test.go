package buttons_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/llmvn/pkg/buttons"
	"github.com/aretw0/llmvn/pkg/icd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	action icd.ButtonAction
	seq    uint8
}

type recorder struct {
	mu     sync.Mutex
	events []event
	err    error
}

func (r *recorder) Publish(ctx context.Context, action icd.ButtonAction, seq uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event{action, seq})
	return nil
}

func (r *recorder) snapshot() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		sample buttons.InputSample
		want   icd.ButtonAction
		ok     bool
	}{
		{"fn1", buttons.Pressed(buttons.LineFn1), icd.Fn1, true},
		{"fn2", buttons.Pressed(buttons.LineFn2), icd.Fn2, true},
		{"fn3", buttons.Pressed(buttons.LineFn3), icd.Fn3, true},
		{"end", buttons.Pressed(buttons.LineEnd), icd.EndConversation, true},
		{"released", buttons.Released, 0, false},
		{"two held", buttons.InputSample{buttons.Low, buttons.Low, buttons.High, buttons.High}, 0, false},
		{"all held", buttons.InputSample{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := buttons.Decode(tt.sample)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSampler_PublishesOnlyOnChangeToSinglePress(t *testing.T) {
	rec := &recorder{}
	s := buttons.New(nil, rec)
	ctx := context.Background()

	samples := []buttons.InputSample{
		buttons.Released,
		buttons.Pressed(buttons.LineFn1),
		buttons.Pressed(buttons.LineFn1), // held, no change
		buttons.Pressed(buttons.LineFn1),
		buttons.Released,
		{buttons.Low, buttons.High, buttons.Low, buttons.High}, // chord
		buttons.Released,
		buttons.Pressed(buttons.LineEnd),
		buttons.Pressed(buttons.LineFn3),
	}
	for _, sample := range samples {
		s.Sample(ctx, sample)
	}

	assert.Equal(t, []event{
		{icd.Fn1, 0},
		{icd.EndConversation, 1},
		{icd.Fn3, 2},
	}, rec.snapshot())
}

func TestSampler_AnomalyHookSkipsRelease(t *testing.T) {
	var anomalies []buttons.InputSample
	chord := buttons.InputSample{buttons.High, buttons.Low, buttons.Low, buttons.High}
	s := buttons.New(nil, &recorder{}, buttons.WithHooks(buttons.Hooks{
		OnAnomaly: func(sample buttons.InputSample) { anomalies = append(anomalies, sample) },
	}))
	ctx := context.Background()

	for _, sample := range []buttons.InputSample{
		buttons.Pressed(buttons.LineFn2),
		buttons.Released,
		chord,
		buttons.Released,
	} {
		s.Sample(ctx, sample)
	}

	assert.Equal(t, []buttons.InputSample{chord}, anomalies)
	assert.Equal(t, uint8(1), s.Seq())
}

func TestSampler_SequenceWraps(t *testing.T) {
	rec := &recorder{}
	s := buttons.New(nil, rec)
	ctx := context.Background()

	for i := 0; i < 300; i++ {
		s.Sample(ctx, buttons.Pressed(buttons.LineFn2))
		s.Sample(ctx, buttons.Released)
	}

	events := rec.snapshot()
	require.Len(t, events, 300)
	for i := 1; i < len(events); i++ {
		assert.Equal(t, events[i-1].seq+1, events[i].seq, "event %d", i)
	}
	assert.Equal(t, uint8(255), events[255].seq)
	assert.Equal(t, uint8(0), events[256].seq)
}

func TestSampler_PublishFailureDoesNotStall(t *testing.T) {
	rec := &recorder{err: errors.New("link down")}
	var failures int
	s := buttons.New(nil, rec, buttons.WithHooks(buttons.Hooks{
		OnPublishError: func(icd.ButtonAction, error) { failures++ },
	}))
	ctx := context.Background()

	_, published := s.Sample(ctx, buttons.Pressed(buttons.LineFn1))
	assert.False(t, published)
	assert.Equal(t, 1, failures)
	assert.Equal(t, uint8(1), s.Seq())

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()

	s.Sample(ctx, buttons.Released)
	action, published := s.Sample(ctx, buttons.Pressed(buttons.LineFn2))
	assert.True(t, published)
	assert.Equal(t, icd.Fn2, action)
	assert.Equal(t, []event{{icd.Fn2, 1}}, rec.snapshot())
}

func TestSampler_HistoryKeepsFourChanges(t *testing.T) {
	s := buttons.New(nil, &recorder{})
	ctx := context.Background()

	for _, line := range []buttons.Line{buttons.LineFn1, buttons.LineFn2, buttons.LineFn3, buttons.LineEnd, buttons.LineFn1} {
		s.Sample(ctx, buttons.Pressed(line))
	}

	h := s.History()
	require.Len(t, h, buttons.HistoryCapacity)
	assert.Equal(t, buttons.Pressed(buttons.LineFn2), h[0].Sample)
	assert.Equal(t, buttons.Pressed(buttons.LineFn1), h[3].Sample)
}

func TestSampler_Run(t *testing.T) {
	var mu sync.Mutex
	current := buttons.Released
	pins := buttons.PinsFunc(func() buttons.InputSample {
		mu.Lock()
		defer mu.Unlock()
		return current
	})

	rec := &recorder{}
	s := buttons.New(pins, rec, buttons.WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	mu.Lock()
	current = buttons.Pressed(buttons.LineFn3)
	mu.Unlock()

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, icd.Fn3, rec.snapshot()[0].action)
}
