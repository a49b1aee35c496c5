package loki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	hackerrors "github.com/hack-cli/hack/pkg/errors"
	"github.com/hack-cli/hack/pkg/logs"
)

func init() {
	logs.Register(logs.BackendLoki, func(opts logs.Options) (logs.Source, error) {
		return New(opts)
	})
}

// defaultWindow is how far back a snapshot query reaches when no start
// time is given.
const defaultWindow = 15 * time.Minute

// Source streams logs from a Loki HTTP API: a bounded range query for
// snapshots, a WebSocket tail for live follow.
type Source struct {
	endpoint string
	opts     logs.Options
	client   *http.Client
}

// New creates a loki log source pointed at the base URL in opts.Endpoint
// (e.g. "http://localhost:3100").
func New(opts logs.Options) (*Source, error) {
	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if endpoint == "" {
		return nil, hackerrors.New(hackerrors.ErrCodeValidation, "loki endpoint must not be empty")
	}
	return &Source{
		endpoint: endpoint,
		opts:     opts,
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// selector returns the LogQL selector for this session. A raw --query
// override bypasses selector construction entirely.
func (s *Source) selector() string {
	if s.opts.Query != "" {
		return s.opts.Query
	}
	return BuildSelector(s.opts.Project, s.opts.Services)
}

// Open starts the backend. Follow sessions tail over WebSocket;
// everything else issues one bounded range query.
func (s *Source) Open(ctx context.Context) (*logs.Stream, error) {
	if s.opts.Follow {
		return s.tail(ctx)
	}
	return s.snapshot(ctx)
}

// ---------------------------------------------------------------------------
// Snapshot (bounded range query)
// ---------------------------------------------------------------------------

func (s *Source) snapshot(ctx context.Context) (*logs.Stream, error) {
	entries := make(chan logs.Entry, 100)
	errs := make(chan error, 1)
	stream, finish := logs.NewStream(entries, errs, nil)

	go func() {
		defer close(entries)
		defer close(errs)

		results, err := s.queryRange(ctx)
		if err != nil {
			errs <- err
			finish(logs.ReasonError)
			return
		}
		for _, entry := range results {
			select {
			case entries <- entry:
			case <-ctx.Done():
				finish(logs.ReasonClosed)
				return
			}
		}
		finish(logs.ReasonEOF)
	}()

	return stream, nil
}

// queryRange fetches one window of historical entries. Loki delivers
// newest-first per stream; results are flattened across streams and
// reordered to non-decreasing timestamp order before emission — that
// ordering is a hard contract consumers rely on.
func (s *Source) queryRange(ctx context.Context) ([]logs.Entry, error) {
	end := s.opts.Until
	if end.IsZero() {
		end = time.Now()
	}
	start := s.opts.Since
	if start.IsZero() {
		start = end.Add(-defaultWindow)
	}

	params := url.Values{}
	params.Set("query", s.selector())
	params.Set("direction", "BACKWARD")
	if s.opts.Tail > 0 {
		params.Set("limit", strconv.Itoa(s.opts.Tail))
	}
	params.Set("start", strconv.FormatInt(start.UnixNano(), 10))
	params.Set("end", strconv.FormatInt(end.UnixNano(), 10))

	reqURL := fmt.Sprintf("%s/loki/api/v1/query_range?%s", s.endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, hackerrors.Wrap(hackerrors.ErrCodeTimeout, "loki query timed out", err)
		}
		return nil, hackerrors.Wrap(hackerrors.ErrCodeConnect, "loki query failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, hackerrors.New(hackerrors.ErrCodeConnect,
			fmt.Sprintf("loki returned %d: %s", resp.StatusCode, string(body))).
			WithDetail("status", resp.StatusCode)
	}

	var lokiResp queryRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&lokiResp); err != nil {
		return nil, hackerrors.Wrap(hackerrors.ErrCodeParse, "failed to decode loki response", err)
	}

	type rawEntry struct {
		ns    int64
		tsNs  string
		line  string
		label map[string]string
	}
	var raw []rawEntry
	for _, stream := range lokiResp.Data.Result {
		for _, v := range stream.Values {
			if len(v) < 2 {
				continue
			}
			ns, _ := strconv.ParseInt(v[0], 10, 64)
			raw = append(raw, rawEntry{ns: ns, tsNs: v[0], line: v[1], label: stream.Stream})
		}
	}

	// Chronological, oldest first. Stable so same-timestamp entries keep
	// their relative delivery order.
	sort.SliceStable(raw, func(i, j int) bool {
		return raw[i].ns < raw[j].ns
	})

	out := make([]logs.Entry, 0, len(raw))
	for _, r := range raw {
		out = append(out, NormalizeEntry(r.label, r.tsNs, r.line))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Tail (live streaming via WebSocket)
// ---------------------------------------------------------------------------

// tail connects to Loki's tail WebSocket endpoint and delivers entries
// as they arrive. Malformed tail messages are silently skipped.
func (s *Source) tail(ctx context.Context) (*logs.Stream, error) {
	params := url.Values{}
	params.Set("query", s.selector())
	if s.opts.Tail > 0 {
		params.Set("limit", strconv.Itoa(s.opts.Tail))
	}
	if !s.opts.Since.IsZero() {
		params.Set("start", strconv.FormatInt(s.opts.Since.UnixNano(), 10))
	}

	wsURL := strings.Replace(s.endpoint, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL = fmt.Sprintf("%s/loki/api/v1/tail?%s", wsURL, params.Encode())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, hackerrors.Wrap(hackerrors.ErrCodeConnect, "failed to connect to loki tail endpoint", err)
	}

	entries := make(chan logs.Entry, 100)
	errs := make(chan error, 1)

	// Distinguishes a caller-requested close from a genuine socket error
	// when the read loop unblocks.
	var closed atomic.Bool

	stream, finish := logs.NewStream(entries, errs, func() {
		closed.Store(true)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	})

	// Cancellation has to close the socket itself: the read loop blocks
	// in ReadMessage and would otherwise never observe ctx.Done().
	readDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			closed.Store(true)
			_ = conn.Close()
		case <-readDone:
		}
	}()

	go func() {
		defer close(entries)
		defer close(errs)
		defer close(readDone)
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if closed.Load() || ctx.Err() != nil ||
					websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					finish(logs.ReasonClosed)
					return
				}
				errs <- hackerrors.Wrap(hackerrors.ErrCodeConnect, "loki tail connection lost", err)
				finish(logs.ReasonError)
				return
			}

			var resp tailResponse
			if err := json.Unmarshal(msg, &resp); err != nil {
				continue
			}

			for _, stream := range resp.Streams {
				for _, v := range stream.Values {
					if len(v) < 2 {
						continue
					}
					select {
					case entries <- NormalizeEntry(stream.Stream, v[0], v[1]):
					case <-ctx.Done():
						finish(logs.ReasonClosed)
						return
					}
				}
			}
		}
	}()

	return stream, nil
}

// ---------------------------------------------------------------------------
// Loki response types
// ---------------------------------------------------------------------------

type queryRangeResponse struct {
	Status string         `json:"status"`
	Data   queryRangeData `json:"data"`
}

type queryRangeData struct {
	ResultType string             `json:"resultType"`
	Result     []queryRangeStream `json:"result"`
}

type queryRangeStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

type tailResponse struct {
	Streams []tailStream `json:"streams"`
}

type tailStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}
