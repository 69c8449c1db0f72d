// Package deepgram implements the capture adapter contract on top of the
// Deepgram live transcription websocket. The host pushes raw audio frames in
// over SendAudio; partial and final text come back through the capture
// callbacks.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"

	"github.com/sleekcode-io/ibot/core/speechtotext"
)

const (
	listenURL = "wss://api.deepgram.com/v1/listen"

	// Audio pushed through SendAudio must be mono 16-bit linear PCM at this
	// sample rate.
	sampleRate = 16000
	encoding   = "linear16"

	keepAliveInterval = 5 * time.Second
)

// CaptureClient streams pushed audio to Deepgram and emits partial text on
// every recognized fragment plus one turn-complete signal per utterance.
type CaptureClient struct {
	connMu sync.Mutex
	conn   *websocket.Conn

	// accumulated collects finalized fragments of the current utterance;
	// partial callbacks always carry the whole utterance so far.
	accumulated    string
	unendedSegment bool
}

func NewCaptureClient() *CaptureClient {
	return &CaptureClient{}
}

// Capture opens the transcription stream. It returns once the stream is
// established; callbacks fire from a background reader until ctx is done or
// the stream is closed.
func (c *CaptureClient) Capture(ctx context.Context, opts ...speechtotext.CaptureOption) error {
	options := speechtotext.CaptureOptions{Language: "en-US"}
	for _, opt := range opts {
		opt(&options)
	}

	conn, err := connectWebsocket(connectionOptions{
		language:          options.Language,
		detectSpeechStart: options.SpeechStartedCallback != nil,
		interimResults:    options.PartialTextCallback != nil,
	})
	if err != nil {
		return fmt.Errorf("failed to open websocket: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	go c.readAndProcessMessages(ctx, conn, options)
	go c.keepAlive(ctx)

	return nil
}

type connectionOptions struct {
	language          string
	detectSpeechStart bool
	interimResults    bool
}

func connectWebsocket(options connectionOptions) (*websocket.Conn, error) {
	apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
	if !ok {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	listenUrl, _ := url.Parse(listenURL)
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", encoding)
	queryParams.Set("sample_rate", strconv.Itoa(sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", "nova-3")
	queryParams.Set("language", options.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	if options.interimResults {
		queryParams.Set("interim_results", "true")
	}
	if options.detectSpeechStart {
		queryParams.Set("vad_events", "true")
	}

	listenUrl.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(listenUrl.String(),
		http.Header{"Authorization": {"Token " + apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

// SendAudio pushes one raw audio frame into the stream.
func (c *CaptureClient) SendAudio(audio []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("capture stream not open")
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, audio); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// Close ends the stream, flushing any buffered audio on the Deepgram side.
func (c *CaptureClient) Close(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return nil
	}
	if err := c.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

func (c *CaptureClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			if conn != nil {
				if err := conn.WriteJSON(struct {
					Type string `json:"type"`
				}{Type: "KeepAlive"}); err != nil {
					logger.Warn("failed to send deepgram keep-alive", "error", err)
				}
			}
			c.connMu.Unlock()
			if conn == nil {
				return
			}
		}
	}
}

func (c *CaptureClient) readAndProcessMessages(ctx context.Context, conn *websocket.Conn, options speechtotext.CaptureOptions) {
	defer func() {
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		conn.Close()
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if err.Error() != "websocket: close 1000 (normal)" {
				logger.Warn("failed to read deepgram websocket message", "error", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			c.processMessage(ctx, msg, options)
		}
	}
}

func (c *CaptureClient) processMessage(_ context.Context, msg []byte, options speechtotext.CaptureOptions) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram transcript", "error", err)
			return
		}
		if len(msgResp.Channel.Alternatives) == 0 {
			return
		}
		fragment := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		if fragment == "" {
			return
		}

		if msgResp.IsFinal {
			c.accumulated = strings.TrimSpace(c.accumulated + " " + fragment)
			c.invokePartial(options, c.accumulated)
			if msgResp.SpeechFinal {
				c.completeTurn(options)
			}
		} else {
			c.invokePartial(options, strings.TrimSpace(c.accumulated+" "+fragment))
		}

	case api.TypeUtteranceEndResponse:
		if c.unendedSegment {
			c.completeTurn(options)
		}

	case api.TypeSpeechStartedResponse:
		c.unendedSegment = true
		if options.SpeechStartedCallback != nil {
			options.SpeechStartedCallback()
		}
	}
}

func (c *CaptureClient) invokePartial(options speechtotext.CaptureOptions, text string) {
	c.unendedSegment = true
	if options.PartialTextCallback != nil {
		options.PartialTextCallback(text)
	}
}

func (c *CaptureClient) completeTurn(options speechtotext.CaptureOptions) {
	c.unendedSegment = false
	text := strings.TrimSpace(c.accumulated)
	c.accumulated = ""

	if options.SpeechEndedCallback != nil {
		options.SpeechEndedCallback()
	}
	if text == "" {
		return
	}
	if options.TurnCompleteCallback != nil {
		options.TurnCompleteCallback(text)
	}
}
