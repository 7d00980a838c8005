package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"voxeldestruct/internal/config"
	"voxeldestruct/internal/destruction"
	"voxeldestruct/internal/logging"
)

// Archive writes every completed event to the compressed log and the
// SQLite index.
type Archive struct {
	Log   *EventLog
	Index *Index
	log   logrus.FieldLogger
}

var _ destruction.EventSink = (*Archive)(nil)

// Open prepares an archive under cfg.Dir. The index defaults to
// <dir>/index.db.
func Open(cfg config.ArchiveConfig, logger logrus.FieldLogger) (*Archive, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("archive dir is empty")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	indexPath := cfg.IndexPath
	if indexPath == "" {
		indexPath = filepath.Join(cfg.Dir, "index.db")
	}
	index, err := OpenIndex(indexPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Archive{
		Log:   NewEventLog(filepath.Join(cfg.Dir, "events")),
		Index: index,
		log:   logger.WithField("component", "archive"),
	}, nil
}

func (a *Archive) EventCompleted(rec destruction.EventRecord) error {
	var errs []error
	if err := a.Log.Write(rec); err != nil {
		errs = append(errs, fmt.Errorf("log %s: %w", rec.ID, err))
	}
	if err := a.Index.Record(context.Background(), rec); err != nil {
		errs = append(errs, fmt.Errorf("index %s: %w", rec.ID, err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"event_id": rec.ID,
		"world_id": rec.WorldID,
	}).Debug("event archived")
	return nil
}

func (a *Archive) Close() error {
	return errors.Join(a.Log.Close(), a.Index.Close())
}
