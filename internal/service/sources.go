package service

import (
	"context"
	"fmt"

	"github.com/Ning0612/Explorer/internal/adapter"
	"github.com/Ning0612/Explorer/internal/adapter/gdrive"
	"github.com/Ning0612/Explorer/internal/adapter/local"
	"github.com/Ning0612/Explorer/internal/domain"
)

// DefaultSourceFactory creates local and Google Drive sources
type DefaultSourceFactory struct{}

var _ adapter.SourceFactory = DefaultSourceFactory{}

// Supports implements adapter.SourceFactory
func (DefaultSourceFactory) Supports(sourceType domain.SourceType) bool {
	return sourceType == domain.SourceLocal || sourceType == domain.SourceGDrive
}

// Create implements adapter.SourceFactory
func (DefaultSourceFactory) Create(ctx context.Context, src domain.Source) (adapter.Source, error) {
	switch src.Type {
	case domain.SourceLocal:
		a, err := local.New(src.Name, src.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to create local source %s: %w", src.Name, err)
		}
		return a, nil
	case domain.SourceGDrive:
		if src.ClientID == "" || src.ClientSecret == "" {
			return nil, fmt.Errorf("gdrive source %s requires client_id and client_secret", src.Name)
		}
		a, err := gdrive.New(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to create gdrive source %s: %w", src.Name, err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", src.Type)
	}
}
