package datasource

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/hilo-oracle/internal/models"
)

const fileSourceName = "file"

// FileSource reads a round history JSON export from disk
type FileSource struct {
	path      string
	maxRounds int
	logger    *logrus.Entry
}

// NewFileSource creates a history source backed by a JSON file
func NewFileSource(path string, maxRounds int, logger *logrus.Logger) *FileSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &FileSource{
		path:      path,
		maxRounds: maxRounds,
		logger:    logger.WithFields(logrus.Fields{"source": fileSourceName, "path": path}),
	}
}

// FetchHistory reads and normalizes the file on every call
func (f *FileSource) FetchHistory(ctx context.Context) (models.History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewDataSourceError(fileSourceName, ErrCodeNotFound, "history file not found", err)
		}
		return nil, NewDataSourceError(fileSourceName, ErrCodeUnknown, "failed to read history file", err)
	}

	var records []RoundRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, NewDataSourceError(fileSourceName, ErrCodeInvalidData, "failed to parse history file", err)
	}

	return normalizeLogged(fileSourceName, records, f.maxRounds, f.logger)
}

// Name returns the data source name
func (f *FileSource) Name() string {
	return fileSourceName
}
