package macromem

import (
	"context"

	"github.com/goliatone/go-macromem/pkg/host"
	"go.uber.org/zap"
)

// Open runs startup: it builds the Memory, creates the store unit on first
// run and then runs one bootstrap pass. Propagation problems are logged and
// never fail startup; a store unit that cannot be checked or created does.
func Open(ctx context.Context, h host.Host, cfg Config, opts ...Option) (*Memory, error) {
	m, err := New(h, cfg, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := m.Init(ctx); err != nil {
		return nil, err
	}

	report, err := m.Propagate(ctx)
	if err != nil {
		m.logger.Error("auto import pass failed", zap.Error(err))
		return m, nil
	}
	if len(report.Patched) > 0 || len(report.Failed) > 0 {
		m.logger.Info("auto import pass finished",
			zap.String("pass_id", report.PassID),
			zap.Strings("patched", report.Patched),
			zap.Int("failed", len(report.Failed)),
		)
	}
	return m, nil
}
