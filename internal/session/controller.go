// Package session implements the Session Controller (spec.md §4.4):
// the single state-machine owner that sequences wake-word detection,
// recording, transcription, the optional LLM pass, and delivery, and
// is the sole writer of SessionState. Grounded on the teacher
// platform's voiceassistant.Orchestrator, which plays the same
// "owns the state machine, dispatches to workers, republishes
// everything through one emitter" role against a different backend.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/localdictate/engine/internal/audio"
	"github.com/localdictate/engine/internal/config"
	"github.com/localdictate/engine/internal/errs"
	"github.com/localdictate/engine/internal/llmstream"
	"github.com/localdictate/engine/internal/recorder"
	"github.com/localdictate/engine/internal/statusbus"
	"github.com/localdictate/engine/internal/transcription"
	"github.com/localdictate/engine/internal/wakeword"
	"github.com/localdictate/engine/pkg/core/logging"
)

// Transcriber is the subset of transcription.Transcriber the
// controller drives directly (kept as its own interface so tests can
// stub it without pulling in the full transcription package's cache
// machinery).
type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16) (transcription.Result, error)
}

// LLMRunner is the subset of llmstream.Engine the controller drives.
type LLMRunner interface {
	Run(ctx context.Context, messages []llmstream.Message, family llmstream.Family) (llmstream.Result, error)
}

// Controller wires the Frame Classifier's output, the Wake-Word
// Recogniser, the Utterance Recorder, the Transcription Service, and
// the LLM Streaming Engine behind one owned StateMachine, exactly the
// sequencing spec.md §4.4 and §4.6 describe.
type Controller struct {
	mu  sync.Mutex
	cfg config.Config

	sm         *StateMachine
	pool       *WorkerPool
	wake       *wakeword.Recognizer
	rec        *recorder.Recorder
	transcriber Transcriber
	llm        LLMRunner
	cache      *transcription.Cache
	flight     *transcription.SingleFlight
	emitter    *statusbus.Emitter
	classifier *audio.Classifier
	log        *logging.Logger

	active        bool
	correlationID string
	mode          config.Mode

	// sessionCtx is the cancellable context live for exactly one
	// wake-word-to-delivery cycle, from entry to Capturing until the
	// controller returns to Listening or Inactive. ABORT_DICTATION and
	// SHUTDOWN cancel it; it is what every downstream phase
	// (transcription, LLM) actually runs under, so cancellation
	// propagates regardless of which goroutine currently owns the
	// session.
	sessionCtx    context.Context
	sessionCancel context.CancelFunc
}

// New builds a Controller. cache and flight may be nil if
// cfg.Cache.Enabled is false.
func New(
	cfg config.Config,
	wake *wakeword.Recognizer,
	rec *recorder.Recorder,
	transcriber Transcriber,
	llm LLMRunner,
	cache *transcription.Cache,
	flight *transcription.SingleFlight,
	classifier *audio.Classifier,
	emitter *statusbus.Emitter,
) *Controller {
	c := &Controller{
		cfg:         cfg,
		sm:          NewStateMachine(),
		pool:        NewWorkerPool(1),
		wake:        wake,
		rec:         rec,
		transcriber: transcriber,
		llm:         llm,
		cache:       cache,
		flight:      flight,
		classifier:  classifier,
		emitter:     emitter,
		log:         logging.New("session"),
	}
	c.sm.AddListener(c.publishState)
	return c
}

// publishState renders the current snapshot as a STATE: line.
// StateMachine.Transition already suppresses duplicate snapshots
// before notifying listeners (spec.md §4.4), so publishState's only
// job is the rendering.
func (c *Controller) publishState(_, next Snapshot) {
	snap := statusbus.StateSnapshot{
		ProgramActive:    next.State != StateInactive,
		AudioState:       audioStateFor(next.State),
		IsDictating:      next.State == StateCapturing || next.State == StateTranscribing,
		IsProofingActive: next.State == StateProcessing,
		CanDictate:       next.State == StateListening,
		CurrentMode:      string(next.Mode),
	}
	line, err := statusbus.State(snap)
	if err != nil {
		c.log.Error("encode state snapshot", "error", err)
		return
	}
	_ = c.emitter.Emit(line)
}

func audioStateFor(s State) string {
	switch s {
	case StateCapturing:
		return string(statusbus.AudioDictation)
	case StateTranscribing, StateProcessing, StateDelivering:
		return string(statusbus.AudioProcessing)
	case StateListening, StatePreparing:
		return string(statusbus.AudioActivation)
	default:
		return string(statusbus.AudioInactive)
	}
}

// Start transitions Inactive→Preparing→Listening, the boot sequence
// spec.md §4.6 assigns to process start or TOGGLE_ACTIVE-to-on.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sm.Transition(Snapshot{State: StatePreparing})
	_ = c.emitter.EmitStatus(statusbus.ColorBlue, "subsystems ready")
	c.emitModelsSummaryLocked()
	c.sm.Transition(Snapshot{State: StateListening})
	c.active = true
	c.wake.Reset()
}

// Shutdown tears the controller down to Inactive, cancelling any
// in-flight work.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	if c.sessionCancel != nil {
		c.sessionCancel()
	}
	c.mu.Unlock()

	c.pool.CancelAll()
	c.sm.Transition(Snapshot{State: StateInactive})

	c.mu.Lock()
	c.active = false
	c.mu.Unlock()

	c.pool.Close()
}

// HandleCommand dispatches one parsed inbound command (spec.md §6.2).
// It is the single entry point UI-originated control flow uses; frame
// ingestion uses FeedFrame instead.
func (c *Controller) HandleCommand(ctx context.Context, cmd statusbus.Command) {
	switch cmd.Kind {
	case statusbus.CmdToggleActive:
		c.toggleActive()
	case statusbus.CmdStartDictate:
		c.startCapture(ctx, config.ModeDictate)
	case statusbus.CmdStartProofread:
		c.startCapture(ctx, config.ModeProofread)
	case statusbus.CmdStartLetter:
		c.startCapture(ctx, config.ModeLetter)
	case statusbus.CmdStopDictation:
		c.stopDictation()
	case statusbus.CmdAbortDictation:
		c.abort()
	case statusbus.CmdShutdown:
		c.Shutdown()
	case statusbus.CmdConfig:
		c.applyConfig([]byte(cmd.Payload))
	case statusbus.CmdModelsRequest:
		c.emitModelsSummary()
	case statusbus.CmdVocabularyAPI:
		c.handleVocabularyAPI(cmd.Payload)
	case statusbus.CmdRestart:
		c.restart()
	}
}

// modelsSummary is the §6.1 MODELS:<json> payload shape: the fixed ASR
// backend identifier plus the LLM model bound to each mode.
type modelsSummary struct {
	ASR string            `json:"asr"`
	LLM map[string]string `json:"llm"`
}

// emitModelsSummary answers MODELS_REQUEST with the one-shot startup
// summary spec.md §6.1 also sends unprompted on boot. The controller
// is the only place that holds both the configured per-mode model IDs
// and the ASR backend, so it answers directly rather than forwarding.
func (c *Controller) emitModelsSummary() {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()
	c.emitModelsSummaryFor(cfg)
}

// emitModelsSummaryLocked is emitModelsSummary's body for callers that
// already hold c.mu (Start), since sync.Mutex is not reentrant.
func (c *Controller) emitModelsSummaryLocked() {
	c.emitModelsSummaryFor(c.cfg)
}

func (c *Controller) emitModelsSummaryFor(cfg config.Config) {
	llm := make(map[string]string, len(cfg.Modes))
	for mode, mc := range cfg.Modes {
		if mc.ModelID != "" {
			llm[string(mode)] = mc.ModelID
		}
	}

	line, err := statusbus.Models(modelsSummary{ASR: "whisper", LLM: llm})
	if err != nil {
		c.log.Error("encode models summary", "error", err)
		return
	}
	_ = c.emitter.Emit(line)
}

// handleVocabularyAPI answers a VOCABULARY_API RPC. There is no
// vocabulary collaborator wired into this engine — vocabulary entries
// live in the UI-side persisted state (spec.md §6.3) — so every call
// is echoed back as an error rather than silently dropped, keeping the
// VOCAB_RESPONSE contract honest about what this build supports.
func (c *Controller) handleVocabularyAPI(payload string) {
	id, _, err := statusbus.SplitVocabularyAPI(payload)
	if err != nil {
		c.log.Warn("malformed VOCABULARY_API payload", "error", err)
		return
	}
	line, err := statusbus.VocabResponse(id, map[string]string{"error": "vocabulary API unavailable"})
	if err != nil {
		c.log.Error("encode vocab response", "error", err)
		return
	}
	_ = c.emitter.Emit(line)
}

// restart implements RESTART: tear the session down and bring it back
// up in-process, the same Inactive->Preparing->Listening sequence Start
// runs on initial boot. The worker pool is rebuilt rather than reused —
// Shutdown closes it, and Submit must not be called on a closed pool.
func (c *Controller) restart() {
	c.Shutdown()

	c.mu.Lock()
	c.pool = NewWorkerPool(1)
	c.mu.Unlock()

	c.Start()
}

func (c *Controller) toggleActive() {
	c.mu.Lock()
	wasActive := c.active
	c.mu.Unlock()

	if wasActive {
		c.Shutdown()
		return
	}
	c.Start()
}

// startCapture handles both wake-word-triggered and explicit
// START_* entry into Capturing. A request for a different mode while
// already capturing is rejected outright, per §5's "wake-word from a
// different mode while already capturing... is forbidden".
func (c *Controller) startCapture(ctx context.Context, mode config.Mode) {
	c.mu.Lock()
	if c.sm.Current().State != StateListening {
		c.mu.Unlock()
		_ = c.emitter.EmitStatus(statusbus.ColorYellow, "ignored: not listening")
		return
	}

	c.correlationID = uuid.NewString()
	c.mode = mode
	c.sessionCtx, c.sessionCancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.sm.Transition(Snapshot{State: StateCapturing, Mode: mode, CorrelationID: c.correlationID})
	_ = c.emitter.EmitStatus(statusbus.ColorGreen, fmt.Sprintf("capturing (%s)", mode))
	c.rec.Start(time.Now())
}

// FeedFrame routes one classified frame to whichever leaf component
// SessionState currently authorises — the wake-word recogniser while
// Listening, the recorder while Capturing, discarded otherwise. This
// is the Classifier/dispatcher task's job in spec.md §5; it is folded
// into the controller here since both are single-goroutine owners of
// the same SessionState read.
func (c *Controller) FeedFrame(ctx context.Context, f audio.Frame) {
	classification := c.classifier.Classify(f)
	if classification.Err != nil {
		c.log.Warn("vad error", "error", classification.Err)
	}

	switch c.sm.Current().State {
	case StateListening:
		match, err := c.wake.Feed(ctx, f, classification.IsVoiced)
		if err != nil {
			c.log.Warn("wake word recognition error", "error", err)
			return
		}
		if match != nil {
			c.startCapture(ctx, match.Mode)
		}
	case StateCapturing:
		reason := c.rec.Feed(f, classification.IsVoiced)
		if reason != recorder.StopNone {
			c.finishCapture(reason)
		}
	}
}

func (c *Controller) finishCapture(reason recorder.StopReason) {
	if reason == recorder.StopHardCap {
		_ = c.emitter.EmitStatus(statusbus.ColorOrange, "hard capture cap reached")
	}
	c.advanceToTranscribing()
}

// stopDictation implements STOP_DICTATION: finalise the buffer and
// advance to Transcribing immediately rather than waiting for
// auto-stop.
func (c *Controller) stopDictation() {
	c.advanceToTranscribing()
}

func (c *Controller) advanceToTranscribing() {
	c.mu.Lock()
	mode := c.mode
	correlationID := c.correlationID
	sessionCtx := c.sessionCtx
	c.mu.Unlock()

	if ok := c.sm.Transition(Snapshot{State: StateTranscribing, Mode: mode, CorrelationID: correlationID}); !ok {
		return
	}
	go c.runTranscribeAndBeyond(sessionCtx, mode)
}

// abort implements ABORT_DICTATION: discard the buffer, cancel the
// session's context (which every downstream phase runs under), and
// return directly to Listening without a transcript.
func (c *Controller) abort() {
	c.mu.Lock()
	if c.sessionCancel != nil {
		c.sessionCancel()
	}
	c.mu.Unlock()

	c.pool.CancelAll()

	switch c.sm.Current().State {
	case StateCapturing, StateTranscribing, StateProcessing:
		_ = c.emitter.EmitProofStream(statusbus.ColorBlue, statusbus.StreamEnd, "")
		c.sm.Transition(Snapshot{State: StateListening})
	}
}

// runTranscribeAndBeyond drives Transcribing through to Delivering and
// back to Listening (dictate), or through Processing first
// (proofread/letter), per spec.md §4.6. ctx is the session's own
// cancellable context, captured at entry to Capturing — ABORT_DICTATION
// cancels it regardless of which phase is currently running.
func (c *Controller) runTranscribeAndBeyond(ctx context.Context, mode config.Mode) {
	pcm := c.rec.Buffer().PCM()
	c.rec.Buffer().Reset()

	modeCfg := c.cfg.Modes[mode]
	fp := transcription.ComputeFingerprint(pcm, string(mode), modeCfg.PromptTemplate)

	result, finalArtifact, err := c.transcribeWithCache(ctx, pcm, fp, modeCfg)
	if err != nil {
		if kind, ok := errs.AsKind(err); ok && kind == errs.KindCancelled {
			return
		}
		_ = c.emitter.EmitStatus(statusbus.ColorRed, "transcription failed: "+err.Error())
		c.sm.Transition(Snapshot{State: StateListening})
		return
	}

	text := result.Text
	if mode == config.ModeDictate {
		text = recorder.TrimTrailingRepetition(text)
	}
	if modeCfg.PostProcessRules.FilterFillerWords {
		text = recorder.RemoveFillerWords(text, modeCfg.PostProcessRules.FillerWords)
	}

	if mode == config.ModeDictate {
		c.deliverDictate(text)
		return
	}

	_ = c.emitter.Emit(statusbus.DictationPreview(text))

	c.mu.Lock()
	correlationID := c.correlationID
	c.mu.Unlock()
	if ok := c.sm.Transition(Snapshot{State: StateProcessing, Mode: mode, CorrelationID: correlationID}); !ok {
		return
	}

	if finalArtifact == "" {
		finalArtifact, err = c.runLLM(ctx, mode, modeCfg, text, fp)
		if err != nil {
			if kind, ok := errs.AsKind(err); ok && kind == errs.KindCancelled {
				return
			}
			_ = c.emitter.EmitStatus(statusbus.ColorRed, "llm failed: "+err.Error())
			c.sm.Transition(Snapshot{State: StateListening})
			return
		}
	}

	c.deliverProcessed(mode, finalArtifact)
}

func (c *Controller) transcribeWithCache(ctx context.Context, pcm []int16, fp transcription.Fingerprint, modeCfg config.ModeConfig) (transcription.Result, string, error) {
	if c.cache == nil || c.flight == nil {
		result, err := c.runTranscription(ctx, pcm)
		return result, "", err
	}

	if entry, ok, err := c.cache.Get(fp); err == nil && ok {
		return entry.Result, entry.FinalArtifact, nil
	}

	entry, err := c.flight.Do(fp, func() (transcription.Entry, error) {
		result, err := c.runTranscription(ctx, pcm)
		if err != nil {
			return transcription.Entry{}, err
		}
		entry := transcription.Entry{Result: result}
		_ = c.cache.Put(fp, entry)
		return entry, nil
	})
	if err != nil {
		return transcription.Result{}, "", err
	}
	return entry.Result, entry.FinalArtifact, nil
}

func (c *Controller) runTranscription(ctx context.Context, pcm []int16) (transcription.Result, error) {
	var result transcription.Result
	err := c.pool.Submit(ctx, func(ctx context.Context) error {
		r, err := c.transcriber.Transcribe(ctx, pcm)
		if err != nil {
			return errs.New(errs.KindModelRuntime, "transcribe utterance", err)
		}
		result = r
		return nil
	})
	if ctx.Err() != nil {
		return transcription.Result{}, errs.New(errs.KindCancelled, "transcription cancelled", ctx.Err())
	}
	return result, err
}

func (c *Controller) runLLM(ctx context.Context, mode config.Mode, modeCfg config.ModeConfig, text string, fp transcription.Fingerprint) (string, error) {
	if c.llm == nil {
		return "", errs.New(errs.KindModelRuntime, "llm unavailable (light mode)", nil)
	}

	systemPrompt := modeCfg.PromptTemplate

	// spec.md §4.5: "when the model identifier contains the gpt-oss
	// family tag" — a substring test against the configured model ID,
	// not a blanket switch whenever a model ID happens to be set.
	family := llmstream.FamilyThinkTagEN
	if c.cfg.LLM.GPTOSSFamilyTag != "" && strings.Contains(modeCfg.ModelID, c.cfg.LLM.GPTOSSFamilyTag) {
		family = llmstream.FamilyGPTOSS
		systemPrompt += " Do not repeat any sentence or phrase; if unsure, state it once and move on."
	}

	messages := []llmstream.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: text},
	}

	var res llmstream.Result
	err := c.pool.Submit(ctx, func(ctx context.Context) error {
		r, err := c.llm.Run(ctx, messages, family)
		if err != nil {
			return errs.New(errs.KindModelRuntime, "llm stream", err)
		}
		res = r
		return nil
	})
	if ctx.Err() != nil {
		return "", errs.New(errs.KindCancelled, "llm stream cancelled", ctx.Err())
	}
	if err != nil {
		return "", err
	}

	if c.cache != nil {
		_ = c.cache.Put(fp, transcription.Entry{
			Result:        transcription.Result{Text: text},
			FinalArtifact: res.Response,
		})
	}
	return res.Response, nil
}

func (c *Controller) deliverDictate(text string) {
	c.mu.Lock()
	correlationID := c.correlationID
	c.mu.Unlock()

	c.sm.Transition(Snapshot{State: StateDelivering, Mode: config.ModeDictate, CorrelationID: correlationID})
	_ = c.emitter.Emit(statusbus.FinalTranscript(text))
	c.sm.Transition(Snapshot{State: StateListening})
}

func (c *Controller) deliverProcessed(mode config.Mode, text string) {
	c.mu.Lock()
	correlationID := c.correlationID
	c.mu.Unlock()

	c.sm.Transition(Snapshot{State: StateDelivering, Mode: mode, CorrelationID: correlationID})
	kind := "PROOFED"
	if mode == config.ModeLetter {
		kind = "LETTER"
	}
	_ = c.emitter.Emit(statusbus.Transcription(kind, text))
	c.sm.Transition(Snapshot{State: StateListening})
}

func (c *Controller) applyConfig(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := config.ApplyJSON(&c.cfg, raw); err != nil {
		_ = c.emitter.EmitStatus(statusbus.ColorYellow, "malformed CONFIG payload")
		return
	}
	_ = c.emitter.EmitStatus(statusbus.ColorGrey, "configuration applied")
}
