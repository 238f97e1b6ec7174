package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/ent0n29/speakstream/internal/protocol"
)

type perfOptions struct {
	baseURL        string
	turns          int
	interTurnDelay time.Duration
	turnTimeout    time.Duration
	texts          []string
	verbose        bool
}

type turnTiming struct {
	FirstDelta time.Duration
	TurnEnd    time.Duration
	Reason     string
	Deltas     int
}

type wsEnvelope struct {
	Type      string `json:"type"`
	TurnID    string `json:"turn_id,omitempty"`
	Code      string `json:"code,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Reason    string `json:"reason,omitempty"`
	TextDelta string `json:"text_delta,omitempty"`
}

var defaultUtterances = []string{
	"Reply in three words: latency bottleneck?",
	"Reply in three words: next optimization?",
	"Reply in three words: architecture summary?",
	"Reply in three words: top risk?",
}

var perfOpts perfOptions

var perfCmd = &cobra.Command{
	Use:   "perf",
	Short: "Replay chat turns against a running server and report stream latency",
	Args:  cobra.NoArgs,
	PreRunE: func(*cobra.Command, []string) error {
		return perfOpts.validate()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		timings, err := runPerf(cmd.Context(), perfOpts, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		printPerfSummary(cmd.OutOrStdout(), timings)
		return nil
	},
}

func init() {
	f := perfCmd.Flags()
	f.StringVar(&perfOpts.baseURL, "base-url", "http://127.0.0.1:5000", "speakstream base URL")
	f.IntVar(&perfOpts.turns, "turns", 10, "number of turns to replay")
	f.DurationVar(&perfOpts.interTurnDelay, "inter-turn", 180*time.Millisecond, "delay between turns")
	f.DurationVar(&perfOpts.turnTimeout, "turn-timeout", 30*time.Second, "timeout waiting for the turn end")
	f.StringSliceVar(&perfOpts.texts, "text", nil, "utterance to replay (repeatable)")
	f.BoolVar(&perfOpts.verbose, "verbose", false, "print replay progress")
}

func (o *perfOptions) validate() error {
	o.baseURL = strings.TrimRight(strings.TrimSpace(o.baseURL), "/")
	if o.baseURL == "" {
		return fmt.Errorf("base-url is required")
	}
	if o.turns <= 0 {
		return fmt.Errorf("turns must be > 0")
	}
	if o.turnTimeout <= 0 {
		return fmt.Errorf("turn-timeout must be > 0")
	}
	if len(o.texts) == 0 {
		o.texts = defaultUtterances
	}
	return nil
}

func runPerf(ctx context.Context, opts perfOptions, logw io.Writer) ([]turnTiming, error) {
	wsURL, err := chatWSURL(opts.baseURL)
	if err != nil {
		return nil, fmt.Errorf("build ws URL: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("open websocket: %w", err)
	}
	defer conn.Close()

	events := make(chan wsEnvelope, 256)
	readErrCh := make(chan error, 1)
	go readLoop(conn, events, readErrCh)

	timings := make([]turnTiming, 0, opts.turns)
	for i := 0; i < opts.turns; i++ {
		text := opts.texts[i%len(opts.texts)]
		if opts.verbose {
			fmt.Fprintf(logw, "perf: turn %d/%d text=%q\n", i+1, opts.turns, text)
		}
		started := time.Now()
		msg := protocol.ClientChat{Type: protocol.TypeClientChat, Message: text}
		if err := conn.WriteJSON(msg); err != nil {
			return timings, fmt.Errorf("turn %d send chat: %w", i+1, err)
		}
		timing, err := awaitTurnEnd(events, readErrCh, started, opts.turnTimeout, logw)
		if err != nil {
			return timings, fmt.Errorf("turn %d await turn end: %w", i+1, err)
		}
		timings = append(timings, timing)
		if opts.interTurnDelay > 0 && i < opts.turns-1 {
			time.Sleep(opts.interTurnDelay)
		}
	}
	return timings, nil
}

func chatWSURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/v1/chat/ws"
	return u.String(), nil
}

func readLoop(conn *websocket.Conn, events chan<- wsEnvelope, readErrCh chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case readErrCh <- err:
			default:
			}
			return
		}
		var env wsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		events <- env
	}
}

func awaitTurnEnd(events <-chan wsEnvelope, readErrCh <-chan error, started time.Time, timeout time.Duration, logw io.Writer) (turnTiming, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var timing turnTiming
	for {
		select {
		case env := <-events:
			switch env.Type {
			case string(protocol.TypeAssistantTextDelta):
				if timing.Deltas == 0 {
					timing.FirstDelta = time.Since(started)
				}
				timing.Deltas++
			case string(protocol.TypeAssistantTurnEnd):
				timing.TurnEnd = time.Since(started)
				timing.Reason = env.Reason
				return timing, nil
			case string(protocol.TypeErrorEvent):
				fmt.Fprintf(logw, "perf: error_event code=%s detail=%s\n", env.Code, env.Detail)
			}
		case err := <-readErrCh:
			return timing, err
		case <-timer.C:
			return timing, fmt.Errorf("timeout after %s", timeout)
		}
	}
}

// percentile returns the p-th percentile (0-100) using nearest rank.
func percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	rank := int(p/100*float64(len(sorted)) + 0.5)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func printPerfSummary(w io.Writer, timings []turnTiming) {
	first := make([]time.Duration, 0, len(timings))
	end := make([]time.Duration, 0, len(timings))
	reasons := map[string]int{}
	for _, t := range timings {
		if t.Deltas > 0 {
			first = append(first, t.FirstDelta)
		}
		end = append(end, t.TurnEnd)
		reasons[t.Reason]++
	}
	fmt.Fprintf(w, "turns=%d reasons=%v\n", len(timings), reasons)
	fmt.Fprintf(w, "first_delta p50=%s p95=%s\n", percentile(first, 50), percentile(first, 95))
	fmt.Fprintf(w, "turn_end    p50=%s p95=%s\n", percentile(end, 50), percentile(end, 95))
}

