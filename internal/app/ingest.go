package app

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/vidlens/internal/processor"
)

// IngestFile processes a local video file. It is the drop-folder handler, so
// failures are logged rather than returned.
func (s *Services) IngestFile(ctx context.Context, path string) {
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	a, err := s.Process(ctx, processor.Input{FilePath: path, Title: title})
	if err != nil {
		s.logger.Error("drop-folder ingest failed", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Info("drop-folder video analyzed",
		zap.String("path", path),
		zap.String("video_id", a.VideoID),
		zap.String("session_id", a.SessionID),
		zap.Strings("topics", a.Topics))
}
