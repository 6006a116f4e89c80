package index

import (
	"log/slog"

	"github.com/starford/sowilo/internal/checksum"
	"github.com/starford/sowilo/internal/connections"
	"github.com/starford/sowilo/internal/models"
)

// Sync brings the index up to date with notes:
//   - new/changed notes are extracted and upserted
//   - notes no longer present are deleted from the index
//
// It returns the ids that were (re)indexed.
func Sync(db GraphIndex, notes []*models.Item, logger *slog.Logger) ([]string, error) {
	checksums, err := db.AllChecksums()
	if err != nil {
		return nil, err
	}

	var changed []string
	present := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if !n.IsNote() {
			continue
		}
		present[n.ID] = struct{}{}

		sum := Checksum(n)
		if checksums[n.ID] == sum {
			continue
		}
		c := connections.ExtractContent([]byte(n.Content), logger)
		if err := IndexNote(db, n, c); err != nil {
			logger.Warn("sync: index failed", slog.String("id", n.ID), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: indexed", slog.String("id", n.ID))
		changed = append(changed, n.ID)
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := present[id]; ok {
			continue
		}
		if err := db.DeleteNote(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("id", id))
		}
	}
	return changed, nil
}

// Checksum fingerprints the indexed state of a note. The title is part of
// it so a rename refreshes the row.
func Checksum(n *models.Item) string {
	return checksum.String(n.Title + "\x00" + n.Content)
}

// IndexNote upserts n with already extracted connections.
func IndexNote(db GraphIndex, n *models.Item, c connections.Connections) error {
	return db.UpsertConnections(NoteRow{
		ID:        n.ID,
		Title:     n.Title,
		Checksum:  Checksum(n),
		UpdatedAt: n.UpdatedAt,
	}, c)
}
