package messaging

import (
	"context"
	"errors"

	"github.com/afyalink/reminder-service/pkg/logging"
)

// FailoverSender attempts a primary send, then falls back to a secondary sender on error.
type FailoverSender struct {
	primary       ChannelSender
	secondary     ChannelSender
	primaryName   string
	secondaryName string
	logger        *logging.Logger
}

// NewFailoverSender builds a failover sender with named providers.
func NewFailoverSender(primary ChannelSender, primaryName string, secondary ChannelSender, secondaryName string, logger *logging.Logger) *FailoverSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverSender{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
		logger:        logger,
	}
}

var _ ChannelSender = (*FailoverSender)(nil)

// Send tries the primary sender first, then the secondary on failure.
func (f *FailoverSender) Send(ctx context.Context, to, body string) (Result, error) {
	if f == nil || f.primary == nil {
		return Result{}, errors.New("messaging: failover primary sender not configured")
	}
	res, err := f.primary.Send(ctx, to, body)
	if err == nil {
		return res, nil
	}
	if f.secondary == nil {
		return Result{}, err
	}
	f.logger.Warn("primary send failed; attempting fallback",
		"provider", f.primaryName,
		"fallback", f.secondaryName,
		"error", err,
		"to", to,
	)
	res, fallbackErr := f.secondary.Send(ctx, to, body)
	if fallbackErr != nil {
		f.logger.Error("fallback send failed",
			"provider", f.secondaryName,
			"error", fallbackErr,
			"to", to,
		)
		return Result{}, fallbackErr
	}
	return res, nil
}
