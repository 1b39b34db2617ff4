package tts

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loqalabs/loqa-tts/internal/bus"
	"github.com/loqalabs/loqa-tts/internal/config"
	"github.com/loqalabs/loqa-tts/internal/eventstore"
	"github.com/loqalabs/loqa-tts/internal/natsserver"
	"github.com/loqalabs/loqa-tts/internal/protocol"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSynth struct{ err error }

func (f failingSynth) Synthesize(context.Context, SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk)
	errs := make(chan error, 1)
	errs <- f.err
	close(chunks)
	close(errs)
	return chunks, errs
}

// countingSynth counts calls and otherwise behaves like failingSynth.
type countingSynth struct {
	calls atomic.Int32
}

func (c *countingSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	c.calls.Add(1)
	return failingSynth{err: errors.New("unused")}.Synthesize(ctx, req)
}

type serviceHarness struct {
	client *bus.Client
	store  *eventstore.Store
	svc    *Service
}

func startService(t *testing.T, cfg config.TTSConfig, synth Synthesizer) serviceHarness {
	t.Helper()
	log := discardLogger()

	srv, err := natsserver.Start("tts-test", config.BusConfig{Embedded: true, Port: -1}, log)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	client, err := bus.Connect(context.Background(), "tts-test", config.BusConfig{
		Servers:        []string{srv.ClientURL()},
		ConnectTimeout: 2000,
	}, log)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	store, err := eventstore.Open(context.Background(), config.EventStoreConfig{
		Path:          filepath.Join(t.TempDir(), "tts.db"),
		RetentionMode: "session",
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(context.Background(), cfg, client, synth, store, log)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Close)
	require.NoError(t, client.Conn().Flush())

	return serviceHarness{client: client, store: store, svc: svc}
}

func nextJSON(t *testing.T, sub *nats.Subscription, v any) {
	t.Helper()
	msg, err := sub.NextMsg(5 * time.Second)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(msg.Data, v))
}

func enabledConfig() config.TTSConfig {
	return config.TTSConfig{Enabled: true, TimeoutMS: 5000}
}

func TestServiceSynthesizesRequest(t *testing.T) {
	h := startService(t, enabledConfig(), NewMockSynth(22050, 1))

	audioSub, err := h.client.Conn().SubscribeSync(protocol.SubjectTTSAudio)
	require.NoError(t, err)
	doneSub, err := h.client.Conn().SubscribeSync(protocol.SubjectTTSDone)
	require.NoError(t, err)

	require.NoError(t, h.client.PublishJSON(protocol.SubjectTTSRequest, protocol.TTSRequest{
		SessionID: "session-1",
		Text:      "hello",
		Voice:     "mock",
		Target:    "kitchen",
		TraceID:   "trace-1",
	}))

	var chunk protocol.AudioChunk
	nextJSON(t, audioSub, &chunk)
	assert.Equal(t, "session-1", chunk.SessionID)
	assert.Equal(t, "kitchen", chunk.Target)
	assert.Equal(t, 22050, chunk.SampleRate)
	assert.Equal(t, 0, chunk.Sequence)
	assert.True(t, chunk.Final)
	assert.Len(t, chunk.PCM, 1102*2)

	var status protocol.TTSStatus
	nextJSON(t, doneSub, &status)
	assert.True(t, status.Completed)
	assert.Empty(t, status.Error)
	assert.Equal(t, 1102, status.Samples)

	var records []eventstore.Record
	require.Eventually(t, func() bool {
		records, err = h.store.ListSession(context.Background(), "session-1", 10)
		return err == nil && len(records) == 1
	}, 5*time.Second, 20*time.Millisecond)
	rec := records[0]
	assert.Equal(t, eventstore.StatusCompleted, rec.Status)
	assert.Equal(t, "trace-1", rec.TraceID)
	assert.Equal(t, 5, rec.TextLength)
	assert.Equal(t, 1102, rec.Samples)
	assert.Equal(t, 22050, rec.SampleRate)
}

func TestServiceAssignsSessionID(t *testing.T) {
	h := startService(t, enabledConfig(), NewMockSynth(16000, 1))

	doneSub, err := h.client.Conn().SubscribeSync(protocol.SubjectTTSDone)
	require.NoError(t, err)
	require.NoError(t, h.client.PublishJSON(protocol.SubjectTTSRequest, protocol.TTSRequest{Text: "hi"}))

	var status protocol.TTSStatus
	nextJSON(t, doneSub, &status)
	assert.NotEmpty(t, status.SessionID)
	assert.True(t, status.Completed)
}

func TestServiceReportsFailure(t *testing.T) {
	h := startService(t, enabledConfig(), failingSynth{err: errors.New("engine exploded")})

	doneSub, err := h.client.Conn().SubscribeSync(protocol.SubjectTTSDone)
	require.NoError(t, err)
	require.NoError(t, h.client.PublishJSON(protocol.SubjectTTSRequest, protocol.TTSRequest{
		SessionID: "session-err",
		Text:      "boom",
	}))

	var status protocol.TTSStatus
	nextJSON(t, doneSub, &status)
	assert.False(t, status.Completed)
	assert.Equal(t, "engine exploded", status.Error)
	assert.Zero(t, status.Samples)

	require.Eventually(t, func() bool {
		records, err := h.store.ListSession(context.Background(), "session-err", 10)
		return err == nil && len(records) == 1 && records[0].Status == eventstore.StatusFailed
	}, 5*time.Second, 20*time.Millisecond)
}

func TestServiceTimeoutIsCancelled(t *testing.T) {
	cfg := enabledConfig()
	cfg.TimeoutMS = 1
	h := startService(t, cfg, failingSynth{err: context.DeadlineExceeded})

	doneSub, err := h.client.Conn().SubscribeSync(protocol.SubjectTTSDone)
	require.NoError(t, err)
	require.NoError(t, h.client.PublishJSON(protocol.SubjectTTSRequest, protocol.TTSRequest{SessionID: "slow", Text: "x"}))

	var status protocol.TTSStatus
	nextJSON(t, doneSub, &status)
	assert.False(t, status.Completed)

	require.Eventually(t, func() bool {
		records, err := h.store.ListSession(context.Background(), "slow", 10)
		return err == nil && len(records) == 1 && records[0].Status == eventstore.StatusCancelled
	}, 5*time.Second, 20*time.Millisecond)
}

func TestServiceAnswersVoices(t *testing.T) {
	h := startService(t, enabledConfig(), NewMockSynth(22050, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var list protocol.VoiceList
	require.NoError(t, h.client.RequestJSON(ctx, protocol.SubjectTTSVoices, struct{}{}, &list))
	assert.Equal(t, []string{"mock"}, list.Voices)
	assert.Equal(t, "mock", list.Current)
	assert.Empty(t, list.Error)
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(context.Background(), config.TTSConfig{}, nil, NewMockSynth(22050, 1), nil, discardLogger())
	require.NoError(t, svc.Start())
	assert.True(t, svc.Healthy())
	svc.Close()
}

func TestServiceIgnoresRequestsAfterClose(t *testing.T) {
	synth := &countingSynth{}
	h := startService(t, enabledConfig(), synth)

	closed := make(chan struct{})
	go func() {
		h.svc.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	// a callback already dispatched by the connection when Close ran
	h.svc.handleRequest(&nats.Msg{Subject: protocol.SubjectTTSRequest, Data: []byte(`{"text":"late"}`)})
	h.svc.wg.Wait()
	assert.Zero(t, synth.calls.Load())
	assert.False(t, h.svc.sub.IsValid())
}
