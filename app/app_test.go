package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/whisper-llama/audio"
	"github.com/mrsingh-rishi/whisper-llama/config"
	"github.com/mrsingh-rishi/whisper-llama/events"
	"github.com/mrsingh-rishi/whisper-llama/pipeline"
	"github.com/mrsingh-rishi/whisper-llama/pipeline/pipelinemock"
	"github.com/mrsingh-rishi/whisper-llama/store"
	"github.com/mrsingh-rishi/whisper-llama/types"
	"github.com/mrsingh-rishi/whisper-llama/view"
)

func testConfig() *config.Config {
	return &config.Config{
		ListenAddr:         ":0",
		Backend:            "openai",
		Device:             "cpu",
		TranscriptionModel: "onnx-community/whisper-tiny.en",
		GenerationModel:    "onnx-community/Llama-3.2-1B-Instruct-q4f16",
		SystemPrompt:       config.DefaultSystemPrompt,
		MaxNewTokens:       512,
		Temperature:        0.7,
		TopP:               0.95,
		RepetitionPenalty:  1.1,
		DoSample:           true,
		ConsentRequired:    true,
	}
}

func wavBytes(t *testing.T, seconds float64) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	buf := &audio.Buffer{SampleRate: audio.SampleRate, Samples: make([]float32, int(seconds*audio.SampleRate))}
	require.NoError(t, audio.EncodeWAV(f, buf))
	require.NoError(t, f.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

type fixture struct {
	app    *App
	loader *pipelinemock.MockLoader
	rec    *pipelinemock.MockSpeechRecognizer
	gen    *pipelinemock.MockTextGenerator
}

func newFixture(t *testing.T, st *store.Store) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := fixture{
		loader: pipelinemock.NewMockLoader(ctrl),
		rec:    pipelinemock.NewMockSpeechRecognizer(ctrl),
		gen:    pipelinemock.NewMockTextGenerator(ctrl),
	}
	a, err := NewWithLoader(testConfig(), nil, f.loader, st)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	f.app = a
	return f
}

func TestNewWithLoaderValidation(t *testing.T) {
	_, err := NewWithLoader(nil, nil, pipelinemock.NewMockLoader(gomock.NewController(t)), nil)
	assert.Error(t, err)
	_, err = NewWithLoader(testConfig(), nil, nil, nil)
	assert.Error(t, err)
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "does-not-exist"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestConsentGatesMount(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "flags.db"), nil)
	require.NoError(t, err)
	f := newFixture(t, st)
	ctx := context.Background()

	assert.True(t, f.app.NeedsConsent(ctx))
	assert.True(t, f.app.State(ctx).ConsentRequired)

	loaded := make(chan struct{}, 2)
	f.loader.EXPECT().LoadRecognizer(gomock.Any(), "onnx-community/whisper-tiny.en", gomock.Any()).
		DoAndReturn(func(context.Context, string, pipeline.Options) (pipeline.SpeechRecognizer, error) {
			loaded <- struct{}{}
			return f.rec, nil
		})
	f.loader.EXPECT().LoadGenerator(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, pipeline.Options) (pipeline.TextGenerator, error) {
			loaded <- struct{}{}
			return f.gen, nil
		})

	f.app.GrantConsent(ctx)
	for i := 0; i < 2; i++ {
		select {
		case <-loaded:
		case <-time.After(time.Second):
			t.Fatal("models were not loaded after consent")
		}
	}
	assert.False(t, f.app.NeedsConsent(ctx))
	assert.True(t, st.ConsentGranted(ctx))
}

func TestGrantConsentWithoutStore(t *testing.T) {
	f := newFixture(t, nil)
	f.loader.EXPECT().LoadRecognizer(gomock.Any(), gomock.Any(), gomock.Any()).Return(f.rec, nil).AnyTimes()
	f.loader.EXPECT().LoadGenerator(gomock.Any(), gomock.Any(), gomock.Any()).Return(f.gen, nil).AnyTimes()

	ctx := context.Background()
	require.True(t, f.app.NeedsConsent(ctx))
	f.app.GrantConsent(ctx)
	assert.False(t, f.app.NeedsConsent(ctx))
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t, nil)
	on := true
	lang := "de"
	task := "translate"
	require.NoError(t, f.app.UpdateSettings(SettingsUpdate{Multilingual: &on, Language: &lang, Task: &task}))

	s := f.app.Transcriber.Settings()
	assert.True(t, s.Multilingual)
	assert.Equal(t, "onnx-community/whisper-tiny", s.ModelID)
	assert.Equal(t, "de", s.Language)
	assert.Equal(t, types.TaskTranslate, s.Task)

	model := "onnx-community/whisper-small"
	require.NoError(t, f.app.UpdateSettings(SettingsUpdate{Model: &model}))
	assert.Equal(t, model, f.app.Transcriber.Settings().ModelID)

	bad := "speak"
	assert.Error(t, f.app.UpdateSettings(SettingsUpdate{Task: &bad}))
}

func TestTranscribeWithoutAudio(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.app.Transcribe(context.Background())
	assert.Equal(t, ErrNoAudio, err)
}

func TestLoadRecordingAndTranscribeTriggersReply(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.app.Orchestrator.Start()

	f.loader.EXPECT().LoadRecognizer(gomock.Any(), gomock.Any(), gomock.Any()).Return(f.rec, nil)
	f.rec.EXPECT().Recognize(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(types.TranscriptionResult{Text: " What is Go? "}, nil)
	f.loader.EXPECT().LoadGenerator(gomock.Any(), gomock.Any(), gomock.Any()).Return(f.gen, nil)
	f.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("A programming language.", nil)

	require.NoError(t, f.app.LoadRecording(audio.Recording{Data: wavBytes(t, 0.5), MimeType: "audio/wav"}))
	buf, info := f.app.Audio()
	require.NotNil(t, buf)
	assert.Equal(t, "recording", info.Source)
	assert.InDelta(t, 0.5, info.Seconds, 0.01)

	started, err := f.app.Transcribe(ctx)
	require.NoError(t, err)
	assert.True(t, started)

	require.Eventually(t, func() bool { return len(f.app.Responder.History()) == 2 }, 2*time.Second, 10*time.Millisecond)
	page := f.app.State(ctx)
	assert.Equal(t, view.PanelResponse, page.AI.Kind)
	assert.Equal(t, "A programming language.", page.AI.Response)
	assert.Equal(t, "What is Go?", f.app.Responder.History()[0].Content)
}

func TestLoadURL(t *testing.T) {
	data := wavBytes(t, 0.25)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wave")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	f := newFixture(t, nil)
	sub := f.app.Bus.Subscribe("test", 256)

	require.NoError(t, f.app.LoadURL(context.Background(), srv.URL+"/clip.wav"))
	_, info := f.app.Audio()
	assert.Equal(t, "url", info.Source)
	assert.Equal(t, "audio/wav", info.MimeType)

	var last events.Envelope
	for len(sub) > 0 {
		last = <-sub
	}
	assert.Equal(t, events.AudioReady, last.Type)

	assert.Error(t, f.app.LoadURL(context.Background(), " "))
}

func TestLoadRecordingRejectsGarbage(t *testing.T) {
	f := newFixture(t, nil)
	err := f.app.LoadRecording(audio.Recording{Data: []byte("nope")})
	assert.True(t, errors.Is(err, types.ErrDecode))
	buf, _ := f.app.Audio()
	assert.Nil(t, buf)
}

func TestChatAndAsk(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.loader.EXPECT().LoadGenerator(gomock.Any(), gomock.Any(), gomock.Any()).Return(f.gen, nil)
	f.gen.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).Return("hi there", nil).Times(2)
	f.loader.EXPECT().LoadRecognizer(gomock.Any(), gomock.Any(), gomock.Any()).Return(f.rec, nil)
	f.rec.EXPECT().Recognize(gomock.Any(), gomock.Any(), gomock.Any()).Return(types.TranscriptionResult{Text: "hello"}, nil)

	_, err := f.app.Chat(ctx, "   ")
	assert.Error(t, err)

	reply, err := f.app.Chat(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAssistant, reply.Role)
	assert.Equal(t, "hi there", reply.Content)

	res, reply, err := f.app.Ask(ctx, &audio.Buffer{SampleRate: audio.SampleRate, Samples: make([]float32, 100)})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Equal(t, "hi there", reply.Content)
	assert.Len(t, f.app.Responder.History(), 4)
}

func TestConfiguredModelIsSelected(t *testing.T) {
	cfg := testConfig()
	cfg.TranscriptionModel = "onnx-community/whisper-tiny"
	a, err := NewWithLoader(cfg, nil, pipelinemock.NewMockLoader(gomock.NewController(t)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	var selected []string
	for _, m := range a.State(context.Background()).Settings.Models {
		if m.Selected {
			selected = append(selected, m.ID)
		}
	}
	assert.Equal(t, []string{"onnx-community/whisper-tiny.en"}, selected)
}
