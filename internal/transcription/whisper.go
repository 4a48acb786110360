package transcription

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WhisperConfig configures a WhisperHTTP transcriber.
type WhisperConfig struct {
	BaseURL        string
	Language       string
	SampleRate     int
	TimeoutSeconds int
}

// WhisperHTTP implements Transcriber against a whisper.cpp-server (or
// LocalAI-compatible) HTTP endpoint. Grounded on the teacher platform's
// voiceassistant/stt.WhisperHTTP, narrowed to this engine's int16 PCM
// pipeline — the teacher's client accepts float32 samples and converts
// them to a WAV byte stream before sending; this one already holds
// int16 samples, so the WAV encoding step drops the conversion.
type WhisperHTTP struct {
	baseURL    string
	language   string
	sampleRate int
	client     *http.Client
}

// NewWhisperHTTP builds a WhisperHTTP transcriber.
func NewWhisperHTTP(cfg WhisperConfig) *WhisperHTTP {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &WhisperHTTP{
		baseURL:    cfg.BaseURL,
		language:   cfg.Language,
		sampleRate: cfg.SampleRate,
		client:     &http.Client{Timeout: timeout},
	}
}

// Transcribe encodes samples as an in-memory WAV file and posts it to
// the whisper server's transcription endpoint.
func (w *WhisperHTTP) Transcribe(ctx context.Context, samples []int16) (Result, error) {
	var buf bytes.Buffer
	if err := writeWAV(&buf, samples, w.sampleRate); err != nil {
		return Result{}, fmt.Errorf("encode utterance as wav: %w", err)
	}

	url := fmt.Sprintf("%s/v1/audio/transcriptions", w.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return Result{}, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")
	q := req.URL.Query()
	if w.language != "" {
		q.Add("language", w.language)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Result{}, fmt.Errorf("whisper server returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("decode transcription response: %w", err)
	}

	return Result{Text: decoded.Text, Language: w.language, Confidence: 0.9}, nil
}

// Close releases resources; the HTTP client needs none held open
// between requests.
func (w *WhisperHTTP) Close() error { return nil }

// writeWAV encodes samples as a mono 16-bit PCM WAV stream.
func writeWAV(w io.Writer, samples []int16, sampleRate int) error {
	const numChannels = 1
	const bitsPerSample = 16
	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)
	dataSize := uint32(len(samples) * 2)

	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(36+dataSize)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}

	if _, err := w.Write([]byte("fmt ")); err != nil {
		return err
	}
	for _, v := range []any{
		uint32(16), uint16(1), uint16(numChannels),
		uint32(sampleRate), byteRate, blockAlign, uint16(bitsPerSample),
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, dataSize); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, samples)
}
