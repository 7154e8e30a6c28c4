package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/wayfarer/core"
	"github.com/poiesic/wayfarer/storage"
)

const (
	// DefaultRetentionDays is the age after which DeleteOldData removes records.
	DefaultRetentionDays = 90

	recentWindow = 24 * time.Hour
)

// UpdateItem applies patch to a stored record and stamps UpdatedAt.
// Returns false when the record does not exist.
func (l *Loader) UpdateItem(ctx context.Context, id core.ID, patch core.RecordPatch) (bool, error) {
	ok, err := l.repo.Update(ctx, id, patch)
	if err != nil {
		l.logger.Error("error updating record", "id", id, "err", err)
		return false, err
	}
	return ok, nil
}

// DeleteOldData removes records created more than days ago.
func (l *Loader) DeleteOldData(ctx context.Context, days int) (int, error) {
	if days < 1 {
		return 0, fmt.Errorf("%w: retention %d days", ErrInvalidOption, days)
	}
	cutoff := l.now().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := l.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		l.logger.Error("error deleting old data", "cutoff", cutoff, "err", err)
		return 0, err
	}
	l.logger.Info("deleted old records", "deleted", n, "cutoff", cutoff)
	l.compact(ctx, n)
	return n, nil
}

// Stats summarizes the store: totals, counts per source type, additions in
// the last 24 hours and the latest update time.
func (l *Loader) Stats(ctx context.Context) (core.Stats, error) {
	stats := core.Stats{BySourceType: make(map[core.SourceType]int, len(core.SourceTypes))}

	total, err := l.repo.Count(ctx, storage.Filter{})
	if err != nil {
		return core.Stats{}, err
	}
	stats.Total = total

	for _, st := range core.SourceTypes {
		n, err := l.repo.Count(ctx, storage.Filter{SourceType: st})
		if err != nil {
			return core.Stats{}, err
		}
		stats.BySourceType[st] = n
	}

	recent, err := l.repo.Count(ctx, storage.Filter{CreatedSince: l.now().Add(-recentWindow)})
	if err != nil {
		return core.Stats{}, err
	}
	stats.RecentAdditions = recent

	last, err := l.repo.LastUpdated(ctx)
	if err != nil {
		return core.Stats{}, err
	}
	stats.LastUpdated = last

	return stats, nil
}

// CleanupDuplicates groups stored records by natural key and deletes all
// but the oldest of each group. Returns the number deleted.
func (l *Loader) CleanupDuplicates(ctx context.Context) (int, error) {
	type keeper struct {
		id      core.ID
		created time.Time
	}
	oldest := make(map[string]keeper)
	var doomed []core.ID

	err := l.repo.ForEach(ctx, func(r *core.StoredRecord) error {
		key := r.NaturalKey()
		cur := keeper{id: r.ID, created: r.CreatedAt}
		prev, seen := oldest[key]
		switch {
		case !seen:
			oldest[key] = cur
		case cur.created.Before(prev.created):
			doomed = append(doomed, prev.id)
			oldest[key] = cur
		default:
			doomed = append(doomed, cur.id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if len(doomed) == 0 {
		l.logger.Info("no duplicates found")
		return 0, nil
	}
	if err := l.repo.Delete(ctx, doomed...); err != nil {
		return 0, err
	}
	l.logger.Info("removed duplicate records", "deleted", len(doomed))
	l.compact(ctx, len(doomed))
	return len(doomed), nil
}

// compact asks the store to reclaim space after deleted records.
// Failure only costs disk space, so it is logged and not returned.
func (l *Loader) compact(ctx context.Context, deleted int) {
	c, ok := l.repo.(storage.Compactor)
	if !ok || deleted == 0 {
		return
	}
	if err := c.Compact(ctx); err != nil {
		l.logger.Warn("compaction failed", "err", err)
	}
}
