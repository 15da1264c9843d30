package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"courseledger.dev/cld/internal/types"
)

func TestBackupCurrentCreatesAndPrunesBackups(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, DefaultDBFile)

	store, err := NewStore(dbFile)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.SetLastCourseID(1); err != nil {
		t.Fatalf("initial write: %v", err)
	}

	backupPath, err := store.BackupCurrent(10)
	if err != nil {
		t.Fatalf("BackupCurrent: %v", err)
	}
	if backupPath == "" {
		t.Fatal("expected backup path, got empty string")
	}
	if filepath.Ext(backupPath) != ".db" {
		t.Fatalf("expected .db extension, got %q", filepath.Ext(backupPath))
	}
	if filepath.Dir(backupPath) != filepath.Join(dir, "backups") {
		t.Fatalf("expected backup in backups directory, got %q", filepath.Dir(backupPath))
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("backup file should exist: %v", err)
	}
	if _, err := os.Stat(dbFile); err != nil {
		t.Fatalf("ledger.db should still exist: %v", err)
	}

	// Backup with no primary file is a no-op.
	if err := os.Remove(dbFile); err != nil {
		t.Fatalf("remove ledger.db: %v", err)
	}
	emptyPath, err := store.BackupCurrent(10)
	if err != nil {
		t.Fatalf("BackupCurrent without primary file: %v", err)
	}
	if emptyPath != "" {
		t.Fatalf("expected empty path when no ledger.db, got %q", emptyPath)
	}
	// Recreate the database file so the remaining operations succeed.
	if err := store.Close(); err != nil {
		t.Fatalf("close db after removal: %v", err)
	}
	if err := store.tryOpenOrRecover(); err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	if err := store.ensureSchema(); err != nil {
		t.Fatalf("ensure schema after reopen: %v", err)
	}

	// Generate more than maxBackups backups to force pruning.
	for i := 0; i < 12; i++ {
		if err := store.SetLastCourseID(uint64(i + 2)); err != nil {
			t.Fatalf("write iteration %d: %v", i, err)
		}
		if _, err := store.BackupCurrent(10); err != nil {
			t.Fatalf("backup iteration %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(dir, "backups"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	var backupCount int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "ledger-") && strings.HasSuffix(name, ".db") {
			backupCount++
		}
	}

	if backupCount > 10 {
		t.Fatalf("expected at most 10 backup files, found %d", backupCount)
	}
}

func TestNewStoreRecoversFromCorruptDBWithoutBackups(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, DefaultDBFile)

	if err := os.WriteFile(dbPath, []byte("this is not sqlite"), 0o600); err != nil {
		t.Fatalf("write corrupt db: %v", err)
	}

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	// Recovery without backups starts empty.
	if last, err := store.LastCourseID(); err != nil || last != 0 {
		t.Fatalf("expected empty ledger after recovery, got last=%d err=%v", last, err)
	}

	if err := store.SetLastCourseID(1); err != nil {
		t.Fatalf("write after recovery: %v", err)
	}
}

func TestNewStoreRestoresLatestBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, DefaultDBFile)
	p := types.Principal(strings.Repeat("f", types.PrincipalHexLen))

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	user := types.User{Principal: p, Name: "Faythe", Email: "f@example.com", Role: types.RoleStudent, RegisteredAt: 2}
	if err := store.PutUser(user); err != nil {
		store.Close()
		t.Fatalf("PutUser: %v", err)
	}

	if _, err := store.BackupCurrent(20); err != nil {
		store.Close()
		t.Fatalf("BackupCurrent: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := os.WriteFile(dbPath, []byte("corrupt"), 0o600); err != nil {
		t.Fatalf("write corrupt db: %v", err)
	}

	store, err = NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore after corruption: %v", err)
	}
	defer store.Close()

	restored, found, err := store.GetUser(p)
	if err != nil || !found {
		t.Fatalf("GetUser after restore: found=%v err=%v", found, err)
	}
	if restored.Name != user.Name {
		t.Fatalf("expected name %q, got %q", user.Name, restored.Name)
	}
}

func TestSnapshotExportImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, DefaultDBFile))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.InitChain("snapshot-test"); err != nil {
		t.Fatalf("InitChain: %v", err)
	}
	if err := store.SetLastCourseID(6); err != nil {
		t.Fatalf("SetLastCourseID: %v", err)
	}

	snapshot, err := store.ExportSnapshot()
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	if len(snapshot) == 0 {
		t.Fatal("snapshot is empty")
	}

	// Diverge, then restore the snapshot over the divergence.
	if err := store.SetLastCourseID(99); err != nil {
		t.Fatalf("diverging write: %v", err)
	}

	movedAside, err := store.ImportSnapshot(snapshot, 10)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if movedAside == "" {
		t.Error("import did not move the previous database aside")
	}

	last, err := store.LastCourseID()
	if err != nil {
		t.Fatalf("LastCourseID after import: %v", err)
	}
	if last != 6 {
		t.Errorf("Got last course id %d after import, want 6", last)
	}
	info, err := store.ChainInfo()
	if err != nil {
		t.Fatalf("ChainInfo after import: %v", err)
	}
	if info.Name != "snapshot-test" {
		t.Errorf("Got chain name %q after import, want %q", info.Name, "snapshot-test")
	}
}

func TestRestoreLatestBackupPicksNewest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, DefaultDBFile))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	// Two backups at distinct counter values; the file names carry unix
	// timestamps, so force distinct ones via the collision loop.
	for i, v := range []uint64{10, 20} {
		if err := store.SetLastCourseID(v); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if _, err := store.BackupCurrent(10); err != nil {
			t.Fatalf("backup %d: %v", i, err)
		}
	}

	if err := store.SetLastCourseID(77); err != nil {
		t.Fatalf("diverging write: %v", err)
	}

	path, err := store.RestoreLatestBackup()
	if err != nil {
		t.Fatalf("RestoreLatestBackup: %v", err)
	}
	if path == "" {
		t.Fatal("expected restored backup path")
	}

	last, err := store.LastCourseID()
	if err != nil {
		t.Fatalf("LastCourseID after restore: %v", err)
	}
	if last != 20 {
		t.Errorf("Got last course id %d after restore, want 20 from the newest backup", last)
	}
}
