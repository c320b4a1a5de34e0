package backup

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
)

// PruneResult lists what a retention run removed and what it could not.
type PruneResult struct {
	Deleted []string
	Failed  map[string]error
}

// PruneOlderThan deletes every backup whose modification time is more than
// ageDays days ago. A failed deletion is logged and skipped; the run goes
// on with the remaining backups.
func (m *Manager) PruneOlderThan(ageDays int) (*PruneResult, error) {
	if ageDays <= 0 {
		return nil, fmt.Errorf("%w: retention must be at least one day, got %d", apperr.ErrValidation, ageDays)
	}

	cutoff := m.now().Add(-time.Duration(ageDays) * 24 * time.Hour)
	result := &PruneResult{Failed: make(map[string]error)}

	for rec, err := range m.ListBackups() {
		if err != nil {
			if rec == nil {
				return result, err
			}
			log.Printf("[Backup] Skipping %s: %v", rec.Name, err)
			result.Failed[rec.Name] = err
			continue
		}
		if !rec.ModTime.Before(cutoff) {
			continue
		}

		if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("[Backup] Could not prune %s: %v", rec.Name, err)
			result.Failed[rec.Name] = err
			continue
		}
		_ = os.Remove(rec.Path + checksumSuffix)
		result.Deleted = append(result.Deleted, rec.Name)
		log.Printf("[Backup] Pruned %s (modified %s)", rec.Name, rec.ModTime.Format(time.RFC3339))
	}

	return result, nil
}
