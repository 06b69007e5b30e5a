// Package rpc exposes the same seven operations internal/wire/http
// serves as a tool-call RPC surface (SPEC_FULL.md §6 EXPANSION "Wire
// layer"): a ToolCall{Name, Arguments} envelope dispatches through the
// same closed switch internal/wire/dispatch defines, framed as
// newline-delimited JSON over any io.Reader/io.Writer pair (stdin/stdout
// for a local process, or a pipe/socket for an embedded caller). No
// concrete RPC framework in the example pack targets this narrow a
// transport (length-delimited or line-delimited JSON-RPC over a raw
// stream), so the framing loop is hand-written rather than borrowed; see
// DESIGN.md.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/relentless-ops/runbook-engine/internal/wire/dispatch"
)

// ToolCall is one inbound RPC request.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCallResult is one outbound RPC response: exactly one of Result or
// Error is set (spec §7's error-union translation, mirrored at the wire
// boundary).
type ToolCallResult struct {
	Result any `json:"result,omitempty"`
	Error  any `json:"error,omitempty"`
}

// Server dispatches ToolCalls against a Dispatcher.
type Server struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// NewServer builds a Server over d.
func NewServer(d *dispatch.Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{dispatcher: d, logger: logger}
}

// HandleToolCall dispatches one ToolCall synchronously, independent of
// any framing - used directly by in-process callers (tests, an embedded
// MCP-style host) that already have a decoded ToolCall.
func (s *Server) HandleToolCall(ctx context.Context, call ToolCall) ToolCallResult {
	result, toolErr := s.dispatcher.Call(ctx, call.Name, call.Arguments)
	if toolErr != nil {
		return ToolCallResult{Error: map[string]any{
			"code":           toolErr.Code,
			"message":        toolErr.Message,
			"details":        toolErr.Details,
			"correlation_id": toolErr.CorrelationID,
		}}
	}
	return ToolCallResult{Result: result}
}

// Serve reads one JSON-encoded ToolCall per line from r, dispatches it,
// and writes one JSON-encoded ToolCallResult per line to w, until r is
// exhausted or ctx is canceled. Malformed input lines produce a
// validation-shaped error result rather than terminating the loop, so
// one bad line never kills the session.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var call ToolCall
		if err := json.Unmarshal(line, &call); err != nil {
			s.logger.Warn("rpc: malformed tool call", "error", err)
			if encErr := enc.Encode(ToolCallResult{Error: map[string]any{
				"code":    "validation",
				"message": "malformed tool call envelope",
			}}); encErr != nil {
				return encErr
			}
			continue
		}

		if err := enc.Encode(s.HandleToolCall(ctx, call)); err != nil {
			return err
		}
	}
	return scanner.Err()
}
