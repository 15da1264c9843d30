package cli

// SnapshotResult names the backup file a snapshot command produced.
type SnapshotResult struct {
	Snapshot   string `json:"snapshot"`
	MaxBackups int    `json:"max_backups"`
}

// @Title: Snapshot Ledger
// @Command: cld snapshot
// @Description: Write a consistent copy of the ledger database to a timestamped backup file and prune old backups
// @Response: SnapshotResult with the backup file path
func (s *Service) HandleSnapshot() error {
	path, err := s.store.BackupCurrent(s.maxBackups)
	if err != nil {
		return err
	}
	s.log.Sugar.Infow("ledger snapshot written", "path", path)
	return s.writeJSON(SnapshotResult{Snapshot: path, MaxBackups: s.maxBackups})
}

// RestoreResult reports a completed restore: the backup that was loaded and
// the committed height it carries.
type RestoreResult struct {
	RestoredFrom string `json:"restored_from"`
	Height       uint64 `json:"height"`
}

// @Title: Restore Ledger
// @Command: cld restore
// @Description: Replace the ledger database with the most recent backup
// @Response: RestoreResult with the backup file path and the restored height
func (s *Service) HandleRestore() error {
	path, err := s.store.RestoreLatestBackup()
	if err != nil {
		return err
	}
	height, err := s.node.SyncHeight()
	if err != nil {
		return err
	}
	s.log.Sugar.Warnw("ledger restored from backup", "path", path, "height", height)
	return s.writeJSON(RestoreResult{RestoredFrom: path, Height: height})
}
