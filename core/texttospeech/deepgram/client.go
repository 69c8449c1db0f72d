// Package deepgram implements the playback adapter contract on top of the
// Deepgram speak REST API.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sleekcode-io/ibot/core/texttospeech"
)

const speakURL = "https://api.deepgram.com/v1/speak"

type deepgramVoice string

const (
	VoiceAsteria deepgramVoice = "aura-2-asteria-en"
	VoiceOrion   deepgramVoice = "aura-2-orion-en"
	VoiceLuna    deepgramVoice = "aura-2-luna-en"
)

var defaultVoice = VoiceAsteria

// GetAvailableVoices lists the voices this client accepts.
func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{VoiceAsteria, VoiceOrion, VoiceLuna}
}

// SpeechClient synthesizes one utterance at a time. Speak cancels any
// synthesis still in progress before starting the next one.
type SpeechClient struct {
	apiKey     string
	voice      deepgramVoice
	httpClient *http.Client

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSpeechClient(voice deepgramVoice) (*SpeechClient, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	client := &SpeechClient{
		apiKey:     apiKey,
		voice:      defaultVoice,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}

	if voice != "" {
		if !slices.Contains(GetAvailableVoices(), voice) {
			return nil, fmt.Errorf("invalid voice")
		}
		client.voice = voice
	}

	return client, nil
}

func (c *SpeechClient) SetVoice(voice deepgramVoice) error {
	if !slices.Contains(GetAvailableVoices(), voice) {
		return fmt.Errorf("invalid voice")
	}
	c.mu.Lock()
	c.voice = voice
	c.mu.Unlock()
	return nil
}

// Speak synthesizes text and hands the audio to the configured callback. It
// blocks until synthesis finishes, Cancel is called, or ctx is done.
func (c *SpeechClient) Speak(ctx context.Context, text string, opts ...texttospeech.SpeechOption) error {
	options := texttospeech.SpeechOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	voice := c.voice
	c.mu.Unlock()
	defer cancel()

	if options.Voice != "" {
		voice = deepgramVoice(options.Voice)
	}

	requestBodyBytes, err := json.Marshal(struct {
		Text string `json:"text"`
	}{Text: text})
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}

	speakUrl, _ := url.Parse(speakURL)
	queryParams := speakUrl.Query()
	queryParams.Set("model", string(voice))
	speakUrl.RawQuery = queryParams.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", speakUrl.String(), bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading audio response: %w", err)
	}

	if options.AudioCallback != nil {
		options.AudioCallback(audio)
	}
	return nil
}

// Cancel aborts the synthesis currently in progress, if any.
func (c *SpeechClient) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return nil
}
