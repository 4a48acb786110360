// Package cmd provides the dictation engine's process-level CLI
// surface (spec.md §6.4: "no user-facing CLI beyond the IPC" — these
// flags govern the process itself, never the dictation session).
// Grounded on the teacher platform's cmd/mdw/cmd package.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localdictate/engine/internal/audio"
	"github.com/localdictate/engine/internal/config"
	"github.com/localdictate/engine/internal/llmstream"
	"github.com/localdictate/engine/internal/recorder"
	"github.com/localdictate/engine/internal/session"
	"github.com/localdictate/engine/internal/statusbus"
	"github.com/localdictate/engine/internal/transcription"
	"github.com/localdictate/engine/internal/vad"
	"github.com/localdictate/engine/internal/wakeword"
	"github.com/localdictate/engine/pkg/core/logging"
)

var (
	cfgFile   string
	verbose   bool
	lightMode bool
)

var rootCmd = &cobra.Command{
	Use:   "dictation-engine",
	Short: "Local, always-on dictation engine",
	Long: `dictation-engine listens for configured wake words, records the
following utterance, transcribes it, and optionally routes it through
a local LLM for proofreading or letter formatting. It speaks a
line-oriented status/command protocol on stdin/stdout to a detached UI
process and exposes no other user-facing interface.`,
	RunE: runEngine,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "bootstrap TOML config path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "equivalent to CT_VERBOSE=1")
	rootCmd.PersistentFlags().BoolVar(&lightMode, "light-mode", false, "equivalent to CT_LIGHT_MODE=1: skip loading the LLM at startup")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	verbose = verbose || config.Verbose()
	lightMode = lightMode || config.LightMode()

	log := logging.NewWithConfig(logging.Config{
		Name:    "dictation-engine",
		Level:   logging.ParseLevel(cfg.LogLevel),
		Output:  os.Stderr,
		Verbose: verbose,
	})

	emitter := statusbus.NewEmitter(os.Stdout, log)
	_ = emitter.Emit(statusbus.PythonBackendReady())

	ctrl, capture, err := wireEngine(cfg, lightMode, emitter, log)
	if err != nil {
		_ = emitter.EmitStatus(statusbus.ColorRed, "startup failed: "+err.Error())
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl.Start()

	go runFrameLoop(ctx, ctrl, capture)
	go runInboundLoop(ctx, ctrl, emitter, log)

	<-ctx.Done()
	ctrl.Shutdown()
	_ = capture.Close()
	return nil
}

// wireEngine builds every leaf component and the Session Controller
// that owns them, following spec.md §2's data-flow graph: Audio Source
// → Frame Classifier → {Wake-Word Recogniser | Utterance Recorder} →
// Session Controller → Transcription Service → LLM Streaming Engine →
// Status Bus.
func wireEngine(cfg config.Config, lightMode bool, emitter *statusbus.Emitter, log *logging.Logger) (*session.Controller, *audio.Capture, error) {
	capture, err := audio.NewCapture(audio.CaptureConfig{DeviceName: cfg.Audio.InputDevice})
	if err != nil {
		return nil, nil, fmt.Errorf("open audio capture: %w", err)
	}

	detector, err := vad.New(vad.Config{SampleRate: cfg.Audio.SampleRate, Mode: cfg.VAD.Mode})
	if err != nil {
		return nil, nil, fmt.Errorf("initialise vad: %w", err)
	}
	classifier := audio.NewClassifier(audio.ClassifierConfig{
		SkipAmplitudeThreshold: int16(cfg.VAD.SkipAmplitudeThreshold),
		SkipConsecutiveFrames:  cfg.VAD.SkipConsecutiveFrames,
	}, detector)

	throttle := statusbus.NewAmplitudeThrottle()

	transcriber := transcription.NewWhisperHTTP(transcription.WhisperConfig{
		BaseURL:        "http://localhost:8081",
		Language:       "en",
		SampleRate:     cfg.Audio.SampleRate,
		TimeoutSeconds: cfg.Timeouts.TranscriptionSeconds,
	})

	wake := wakeword.New(cfg.Modes, config.ModePrecedence, transcriber, throttle, emitter)
	rec := recorder.New(recorder.Config{
		MaxUtteranceFrames:        cfg.Recorder.MaxUtteranceFrames,
		AutoStopSilenceSeconds:    cfg.Recorder.AutoStopSilenceSeconds,
		ProgressiveCleanupSeconds: cfg.Recorder.ProgressiveCleanupSeconds,
		HardCapSeconds:            cfg.Recorder.HardCapSeconds,
	}, throttle, emitter)

	// llm is left as a true nil session.LLMRunner in light mode rather
	// than a non-nil interface wrapping a nil *llmstream.Engine — the
	// controller only ever calls llm.Run for proofread/letter sessions,
	// but a typed-nil-in-interface would still panic on that call.
	var llm session.LLMRunner
	if !lightMode {
		ollama := llmstream.NewOllamaClient(llmstream.DefaultOllamaConfig())
		llm = llmstream.New(ollama, emitter, cfg.LLM)
	}

	var cache *transcription.Cache
	var flight *transcription.SingleFlight
	if cfg.Cache.Enabled {
		c, err := transcription.Open(cfg.Cache.Path)
		if err != nil {
			log.Warn("fingerprint cache disabled", "error", err)
		} else {
			cache = c
			flight = transcription.NewSingleFlight()
		}
	}

	ctrl := session.New(cfg, wake, rec, transcriber, llm, cache, flight, classifier, emitter)

	if err := capture.Start(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("start audio capture: %w", err)
	}

	return ctrl, capture, nil
}

// runFrameLoop is the Audio capture task's consumer: the Classifier/
// dispatcher task of spec.md §5, folded into the controller.
func runFrameLoop(ctx context.Context, ctrl *session.Controller, capture *audio.Capture) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-capture.Output():
			if !ok {
				return
			}
			ctrl.FeedFrame(ctx, frame)
		}
	}
}

// runInboundLoop is the Status Bus's reverse channel: one line of
// UI-originated command per read, per spec.md §6.2.
func runInboundLoop(ctx context.Context, ctrl *session.Controller, emitter *statusbus.Emitter, log *logging.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Text()
		cmd, err := statusbus.ParseCommand(line)
		if err != nil {
			log.Warn("dropping malformed inbound command", "line", line, "error", err)
			_ = emitter.EmitStatus(statusbus.ColorYellow, "malformed command ignored")
			continue
		}
		ctrl.HandleCommand(ctx, cmd)
	}
}
