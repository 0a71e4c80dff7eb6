// Package emulator runs the interactive controller session: it turns
// textual command tokens into controller state, encodes each state into
// an input report and pushes it through the transport, draining any
// host output reports between cycles.
package emulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hombit/sweam/device"
	"github.com/hombit/sweam/device/procon"
	"github.com/hombit/sweam/internal/log"
	"github.com/hombit/sweam/internal/transport"
)

// Session drives one command-per-report emulation loop over a transport.
type Session struct {
	transport transport.Transport
	logger    *slog.Logger
	reports   log.ReportLogger
}

// NewSession wires a session to an open transport. reports may record raw
// traffic; pass a logger built over a nil writer to disable it.
func NewSession(t transport.Transport, logger *slog.Logger, reports log.ReportLogger) *Session {
	if reports == nil {
		reports = log.NewReportLogger(nil)
	}
	return &Session{transport: t, logger: logger, reports: reports}
}

// Run consumes tokens line by line until EOF, a quit token, or context
// cancellation. Each token mutates a fresh neutral state which is encoded
// and sent; state does not persist across cycles, so a button press lasts
// exactly one report. Send timeouts are logged and skipped; any other
// transport failure ends the session.
//
// Lines are read on a separate goroutine so cancellation (a termination
// signal) ends the session even while the reader is blocked on stdin.
func (s *Session) Run(ctx context.Context, src io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(src)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("reading commands: %w", err)
			}
			return nil
		case line := <-lines:
			token := strings.ToLower(strings.TrimSpace(line))
			if token == QuitToken {
				return nil
			}

			st := procon.NeutralInput()
			if token != "" {
				cmd, ok := Lookup(token)
				if !ok {
					s.logger.Warn("unknown command", slog.String("token", token))
					continue
				}
				cmd(&st)
			}

			if err := s.cycle(ctx, &st); err != nil {
				return err
			}
		}
	}
}

// SendState encodes and sends a single state outside the command loop.
func (s *Session) SendState(ctx context.Context, st device.ReportBuilder) error {
	return s.cycle(ctx, st)
}

func (s *Session) cycle(ctx context.Context, st device.ReportBuilder) error {
	report := st.BuildReport()
	s.reports.Log(false, report)
	if err := s.transport.Send(ctx, report); err != nil {
		if errors.Is(err, transport.ErrTimeout) {
			s.logger.Warn("input report send timed out, dropping report")
		} else {
			return fmt.Errorf("sending input report: %w", err)
		}
	}
	return s.drainOutput(ctx)
}

// drainOutput reads at most one pending host output report per cycle.
// Rumble and LED payloads are logged but otherwise ignored. The transports
// map read timeouts to an empty result, so any error here is a real
// endpoint failure and ends the session.
func (s *Session) drainOutput(ctx context.Context) error {
	data, err := s.transport.Receive(ctx)
	if err != nil {
		return fmt.Errorf("reading output report: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	s.reports.Log(true, data)
	s.logger.Debug("host output report", slog.Int("bytes", len(data)))
	return nil
}
