// Package ledger provides the state stores the contract executes against:
// Mem, an in-memory map state for tests and dry runs, and Store, the durable
// SQLite-backed state holding the record collections, identifier counters,
// the applied-transaction log, and chain metadata. Store brackets each
// entrypoint invocation in one SQL transaction so a rejected call leaves no
// partial writes behind, and keeps timestamped snapshot backups of the
// database file.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"courseledger.dev/cld/internal/types"

	_ "modernc.org/sqlite"
)

// DefaultDBFile is the ledger database file name inside a data directory.
const DefaultDBFile = "ledger.db"

const (
	defaultBackupDirName = "backups"
	maxBusyTimeoutMs     = 5000
	defaultMaxBackups    = 20
	defaultTxLogLimit    = 20
)

const (
	counterLastCourseID = "last_course_id"

	metaChainName = "chain_name"
	metaCreatedAt = "created_at"
	metaHeight    = "height"
)

var errNoBackups = errors.New("no ledger backups available")

// Store persists the ledger state to a SQLite database file.
type Store struct {
	mu        sync.RWMutex
	db        *sql.DB
	file      string
	backupDir string
}

type backupInfo struct {
	path      string
	timestamp int64
}

// TxRecord is one applied transaction in the ledger's transaction log. Only
// committed blocks are recorded; rejected submissions never reach the log.
type TxRecord struct {
	Height     uint64    `json:"height"`
	TxID       string    `json:"tx_id"`
	Sender     string    `json:"sender"`
	Entrypoint string    `json:"entrypoint"`
	Result     string    `json:"result,omitempty"`
	AppliedAt  time.Time `json:"applied_at"`
}

// ChainInfo is the genesis metadata of a ledger instance.
type ChainInfo struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Height    uint64    `json:"height"`
}

// NewStore opens (or creates) a ledger database at filePath. A database that
// fails to open is restored from the most recent backup, or recreated empty
// when no backup exists.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = DefaultDBFile
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	s := &Store{
		file:      absPath,
		backupDir: filepath.Join(filepath.Dir(absPath), defaultBackupDirName),
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	if err := s.tryOpenOrRecover(); err != nil {
		return nil, err
	}

	if err := s.ensureSchema(); err != nil {
		_ = s.closeDB()
		return nil, err
	}

	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.file
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeDB()
}

func (s *Store) tryOpenOrRecover() error {
	if err := s.openDB(); err != nil {
		if recErr := s.recoverDatabase(err); recErr != nil {
			return recErr
		}
	}
	return nil
}

func (s *Store) openDB() error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s", filepath.Clean(s.file))

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) recoverDatabase(openErr error) error {
	if _, err := s.restoreLatestBackup(); err != nil {
		if errors.Is(err, errNoBackups) {
			if cleanErr := s.resetDatabaseFiles(); cleanErr != nil {
				return fmt.Errorf("reset database after %v: %w", openErr, cleanErr)
			}
			if err := s.openDB(); err != nil {
				return fmt.Errorf("create fresh database after %v: %w", openErr, err)
			}
			return nil
		}
		return fmt.Errorf("restore database after %v: %w", openErr, err)
	}
	return nil
}

func (s *Store) closeDB() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) resetDatabaseFiles() error {
	_ = s.closeDB()

	var firstErr error
	for _, path := range []string{s.file, s.file + "-wal", s.file + "-shm"} {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", filepath.Base(path), err)
			}
		}
	}
	return firstErr
}

func (s *Store) removeSidecarFilesLocked() {
	for _, path := range []string{s.file + "-wal", s.file + "-shm"} {
		_ = os.Remove(path)
	}
}

func (s *Store) restoreLatestBackup() (string, error) {
	base := filepath.Base(s.file)
	prefix := strings.TrimSuffix(base, filepath.Ext(base))
	backups, err := s.listBackups(prefix, filepath.Ext(base))
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", errNoBackups
	}

	latest := backups[len(backups)-1]
	if err := s.resetDatabaseFiles(); err != nil {
		return "", err
	}
	if err := copyFile(latest.path, s.file); err != nil {
		return "", fmt.Errorf("copy backup %s: %w", filepath.Base(latest.path), err)
	}
	return latest.path, s.openDB()
}

func (s *Store) listBackups(prefix, ext string) ([]backupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []backupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") {
			continue
		}
		if ext != "" && !strings.HasSuffix(name, ext) {
			continue
		}

		stem := name
		if ext != "" {
			stem = strings.TrimSuffix(stem, ext)
		}
		tsPart := strings.TrimPrefix(stem, prefix+"-")
		ts, parseErr := strconv.ParseInt(tsPart, 10, 64)
		if parseErr != nil {
			info, statErr := entry.Info()
			if statErr != nil {
				continue
			}
			ts = info.ModTime().Unix()
		}

		backups = append(backups, backupInfo{
			path:      filepath.Join(s.backupDir, name),
			timestamp: ts,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].timestamp == backups[j].timestamp {
			return backups[i].path < backups[j].path
		}
		return backups[i].timestamp < backups[j].timestamp
	})

	return backups, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			principal TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL,
			registered_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS courses (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			instructor TEXT NOT NULL,
			max_capacity INTEGER NOT NULL,
			current_enrollments INTEGER NOT NULL,
			start_date INTEGER NOT NULL,
			end_date INTEGER NOT NULL,
			active INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS enrollments (
			course_id INTEGER NOT NULL,
			student TEXT NOT NULL,
			enrolled_at INTEGER NOT NULL,
			progress INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			PRIMARY KEY (course_id, student)
		)`,
		`CREATE TABLE IF NOT EXISTS course_materials (
			course_id INTEGER NOT NULL,
			material_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			content_url TEXT NOT NULL,
			material_type TEXT NOT NULL,
			PRIMARY KEY (course_id, material_id)
		)`,
		`CREATE TABLE IF NOT EXISTS counters (
			name TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS material_counters (
			course_id INTEGER PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS txlog (
			height INTEGER PRIMARY KEY,
			tx_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			entrypoint TEXT NOT NULL,
			result TEXT,
			applied_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	return nil
}

// InitChain writes genesis metadata for a fresh ledger. It refuses to
// relabel a chain that was already initialized.
func (s *Store) InitChain(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok, err := getMetaValue(s.db, metaChainName)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("ledger already initialized as %q", existing)
	}

	if err := setMetaValue(s.db, metaChainName, name); err != nil {
		return err
	}
	if err := setMetaValue(s.db, metaCreatedAt, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return setMetaValue(s.db, metaHeight, "0")
}

// ChainInfo returns the genesis metadata and current height. A ledger that
// was never initialized reports an empty name and height 0.
func (s *Store) ChainInfo() (ChainInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var info ChainInfo
	name, _, err := getMetaValue(s.db, metaChainName)
	if err != nil {
		return ChainInfo{}, err
	}
	info.Name = name

	if created, ok, err := getMetaValue(s.db, metaCreatedAt); err != nil {
		return ChainInfo{}, err
	} else if ok {
		info.CreatedAt = parseTime(created)
	}

	info.Height, err = heightFrom(s.db)
	if err != nil {
		return ChainInfo{}, err
	}
	return info, nil
}

// Height returns the last committed block height.
func (s *Store) Height() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return heightFrom(s.db)
}

// ListTx returns the most recently applied transactions, newest first.
func (s *Store) ListTx(limit int) ([]TxRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultTxLogLimit
	}
	rows, err := s.db.Query(`SELECT height, tx_id, sender, entrypoint, result, applied_at
		FROM txlog ORDER BY height DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query txlog: %w", err)
	}
	defer rows.Close()

	var records []TxRecord
	for rows.Next() {
		rec, err := scanTxRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// InTx runs fn against a transactional view of the ledger. Every write fn
// performs is committed if fn returns nil and discarded otherwise, so one
// entrypoint invocation is all-or-nothing.
func (s *Store) InTx(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbtx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	if err := fn(&Tx{view{q: dbtx}}); err != nil {
		if rbErr := dbtx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// Tx is one atomic unit of ledger work: the contract state plus the block
// bookkeeping tables. Writes reach the database only when InTx commits.
type Tx struct {
	view
}

// SetHeight records h as the last committed block height.
func (t *Tx) SetHeight(h uint64) error {
	return setMetaValue(t.q, metaHeight, strconv.FormatUint(h, 10))
}

// AppendTx adds one applied transaction to the log.
func (t *Tx) AppendTx(rec TxRecord) error {
	_, err := t.q.Exec(`INSERT INTO txlog (height, tx_id, sender, entrypoint, result, applied_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Height, rec.TxID, rec.Sender, rec.Entrypoint, rec.Result,
		rec.AppliedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append txlog: %w", err)
	}
	return nil
}

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// view implements the contract's state interface over one querier, either
// the live database or an open transaction.
type view struct {
	q querier
}

func (v *view) GetUser(p types.Principal) (types.User, bool, error) {
	row := v.q.QueryRow(`SELECT principal, name, email, role, registered_at
		FROM users WHERE principal = ?`, string(p))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, false, nil
	}
	if err != nil {
		return types.User{}, false, fmt.Errorf("query user: %w", err)
	}
	return u, true, nil
}

func (v *view) PutUser(u types.User) error {
	_, err := v.q.Exec(`INSERT INTO users (principal, name, email, role, registered_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(principal) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			role = excluded.role,
			registered_at = excluded.registered_at`,
		string(u.Principal), u.Name, u.Email, string(u.Role), u.RegisteredAt)
	if err != nil {
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

func (v *view) GetCourse(id uint64) (types.Course, bool, error) {
	row := v.q.QueryRow(`SELECT id, title, description, instructor, max_capacity,
		current_enrollments, start_date, end_date, active
		FROM courses WHERE id = ?`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Course{}, false, nil
	}
	if err != nil {
		return types.Course{}, false, fmt.Errorf("query course: %w", err)
	}
	return c, true, nil
}

func (v *view) PutCourse(c types.Course) error {
	_, err := v.q.Exec(`INSERT INTO courses (id, title, description, instructor,
		max_capacity, current_enrollments, start_date, end_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			instructor = excluded.instructor,
			max_capacity = excluded.max_capacity,
			current_enrollments = excluded.current_enrollments,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			active = excluded.active`,
		c.ID, c.Title, c.Description, string(c.Instructor), c.MaxCapacity,
		c.CurrentEnrollments, c.StartDate, c.EndDate, c.Active)
	if err != nil {
		return fmt.Errorf("store course: %w", err)
	}
	return nil
}

func (v *view) GetEnrollment(k types.EnrollmentKey) (types.Enrollment, bool, error) {
	row := v.q.QueryRow(`SELECT course_id, student, enrolled_at, progress, completed
		FROM enrollments WHERE course_id = ? AND student = ?`, k.CourseID, string(k.Student))
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Enrollment{}, false, nil
	}
	if err != nil {
		return types.Enrollment{}, false, fmt.Errorf("query enrollment: %w", err)
	}
	return e, true, nil
}

func (v *view) PutEnrollment(e types.Enrollment) error {
	_, err := v.q.Exec(`INSERT INTO enrollments (course_id, student, enrolled_at, progress, completed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(course_id, student) DO UPDATE SET
			enrolled_at = excluded.enrolled_at,
			progress = excluded.progress,
			completed = excluded.completed`,
		e.CourseID, string(e.Student), e.EnrolledAt, e.Progress, e.Completed)
	if err != nil {
		return fmt.Errorf("store enrollment: %w", err)
	}
	return nil
}

func (v *view) GetMaterial(k types.MaterialKey) (types.CourseMaterial, bool, error) {
	row := v.q.QueryRow(`SELECT course_id, material_id, title, content_url, material_type
		FROM course_materials WHERE course_id = ? AND material_id = ?`, k.CourseID, k.MaterialID)
	m, err := scanMaterial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CourseMaterial{}, false, nil
	}
	if err != nil {
		return types.CourseMaterial{}, false, fmt.Errorf("query material: %w", err)
	}
	return m, true, nil
}

func (v *view) PutMaterial(m types.CourseMaterial) error {
	_, err := v.q.Exec(`INSERT INTO course_materials (course_id, material_id, title, content_url, material_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(course_id, material_id) DO UPDATE SET
			title = excluded.title,
			content_url = excluded.content_url,
			material_type = excluded.material_type`,
		m.CourseID, m.ID, m.Title, m.ContentURL, string(m.MaterialType))
	if err != nil {
		return fmt.Errorf("store material: %w", err)
	}
	return nil
}

func (v *view) LastCourseID() (uint64, error) {
	var value uint64
	err := v.q.QueryRow(`SELECT value FROM counters WHERE name = ?`, counterLastCourseID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query course counter: %w", err)
	}
	return value, nil
}

func (v *view) SetLastCourseID(id uint64) error {
	_, err := v.q.Exec(`INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`, counterLastCourseID, id)
	if err != nil {
		return fmt.Errorf("store course counter: %w", err)
	}
	return nil
}

func (v *view) MaterialCount(courseID uint64) (uint64, error) {
	var value uint64
	err := v.q.QueryRow(`SELECT value FROM material_counters WHERE course_id = ?`, courseID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query material counter: %w", err)
	}
	return value, nil
}

func (v *view) SetMaterialCount(courseID, count uint64) error {
	_, err := v.q.Exec(`INSERT INTO material_counters (course_id, value) VALUES (?, ?)
		ON CONFLICT(course_id) DO UPDATE SET value = excluded.value`, courseID, count)
	if err != nil {
		return fmt.Errorf("store material counter: %w", err)
	}
	return nil
}

// Store reads and writes outside InTx operate directly on the live database.

func (s *Store) GetUser(p types.Principal) (types.User, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{q: s.db}).GetUser(p)
}

func (s *Store) PutUser(u types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{q: s.db}).PutUser(u)
}

func (s *Store) GetCourse(id uint64) (types.Course, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{q: s.db}).GetCourse(id)
}

func (s *Store) PutCourse(c types.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{q: s.db}).PutCourse(c)
}

func (s *Store) GetEnrollment(k types.EnrollmentKey) (types.Enrollment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{q: s.db}).GetEnrollment(k)
}

func (s *Store) PutEnrollment(e types.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{q: s.db}).PutEnrollment(e)
}

func (s *Store) GetMaterial(k types.MaterialKey) (types.CourseMaterial, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{q: s.db}).GetMaterial(k)
}

func (s *Store) PutMaterial(m types.CourseMaterial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{q: s.db}).PutMaterial(m)
}

func (s *Store) LastCourseID() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{q: s.db}).LastCourseID()
}

func (s *Store) SetLastCourseID(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{q: s.db}).SetLastCourseID(id)
}

func (s *Store) MaterialCount(courseID uint64) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{q: s.db}).MaterialCount(courseID)
}

func (s *Store) SetMaterialCount(courseID, count uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (&view{q: s.db}).SetMaterialCount(courseID, count)
}

// BackupCurrent writes a snapshot of the database to a timestamped file and
// prunes old backups beyond maxBackups. Returns the backup path when created.
func (s *Store) BackupCurrent(maxBackups int) (string, error) {
	snapshot, err := s.ExportSnapshot()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backup directory: %w", err)
	}

	dir := s.backupDir
	base := filepath.Base(s.file)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)
	if prefix == "" {
		prefix = base
	}

	timestamp := time.Now().Unix()
	var backupPath string
	for {
		name := fmt.Sprintf("%s-%d%s", prefix, timestamp, ext)
		backupPath = filepath.Join(dir, name)
		if _, err := os.Stat(backupPath); errors.Is(err, os.ErrNotExist) {
			break
		}
		timestamp++
	}

	if err := os.WriteFile(backupPath, snapshot, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	pruneBackups(dir, prefix, ext, maxBackups)

	return backupPath, nil
}

// ExportSnapshot returns a consistent copy of the current database contents.
func (s *Store) ExportSnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.file); errors.Is(err, os.ErrNotExist) {
		return nil, os.ErrNotExist
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.file), "ledger-export-*.db")
	if err != nil {
		return nil, fmt.Errorf("create temp export file: %w", err)
	}
	tempPath := tempFile.Name()
	tempFile.Close()

	escaped := strings.ReplaceAll(tempPath, "'", "''")
	if _, err := s.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", escaped)); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("vacuum into temp file: %w", err)
	}

	data, err := os.ReadFile(tempPath)
	os.Remove(tempPath)
	if err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}

	return data, nil
}

// ImportSnapshot replaces the current database contents with the provided
// SQLite database bytes. Returns the backup path if the existing database was
// moved aside.
func (s *Store) ImportSnapshot(data []byte, maxBackups int) (string, error) {
	if len(data) == 0 {
		return "", errors.New("snapshot data is empty")
	}

	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}

	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare db directory: %w", err)
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("prepare backup directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "ledger-import-*.db")
	if err != nil {
		return "", fmt.Errorf("create temp import file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("write temp import file: %w", err)
	}
	tempFile.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.closeDB()

	var backupPath string
	if _, err := os.Stat(s.file); err == nil {
		backupPath = uniqueBackupPath(s.backupDir, filepath.Base(s.file))
		if err := os.Rename(s.file, backupPath); err != nil {
			_ = s.openDB()
			os.Remove(tempPath)
			return "", fmt.Errorf("rename existing db: %w", err)
		}
		s.removeSidecarFilesLocked()
	}

	if err := os.Rename(tempPath, s.file); err != nil {
		if backupPath != "" {
			_ = os.Rename(backupPath, s.file)
		}
		os.Remove(tempPath)
		_ = s.openDB()
		return "", fmt.Errorf("activate imported db: %w", err)
	}

	if err := s.openDB(); err != nil {
		if backupPath != "" {
			_ = os.Rename(backupPath, s.file)
			_ = s.openDB()
		}
		return "", fmt.Errorf("reopen db after import: %w", err)
	}

	if err := s.ensureSchema(); err != nil {
		return backupPath, err
	}

	base := filepath.Base(s.file)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)
	if prefix == "" {
		prefix = base
	}
	pruneBackups(s.backupDir, prefix, ext, maxBackups)

	return backupPath, nil
}

// RestoreLatestBackup replaces the live database with the most recent
// timestamped backup. The current database file is discarded.
func (s *Store) RestoreLatestBackup() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.restoreLatestBackup()
	if err != nil {
		return "", err
	}
	if err := s.ensureSchema(); err != nil {
		return "", err
	}
	return path, nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (types.User, error) {
	var (
		u    types.User
		p    string
		role string
	)
	if err := scanner.Scan(&p, &u.Name, &u.Email, &role, &u.RegisteredAt); err != nil {
		return types.User{}, err
	}
	u.Principal = types.Principal(p)
	u.Role = types.Role(role)
	return u, nil
}

func scanCourse(scanner interface{ Scan(dest ...any) error }) (types.Course, error) {
	var (
		c          types.Course
		instructor string
	)
	if err := scanner.Scan(&c.ID, &c.Title, &c.Description, &instructor, &c.MaxCapacity,
		&c.CurrentEnrollments, &c.StartDate, &c.EndDate, &c.Active); err != nil {
		return types.Course{}, err
	}
	c.Instructor = types.Principal(instructor)
	return c, nil
}

func scanEnrollment(scanner interface{ Scan(dest ...any) error }) (types.Enrollment, error) {
	var (
		e       types.Enrollment
		student string
	)
	if err := scanner.Scan(&e.CourseID, &student, &e.EnrolledAt, &e.Progress, &e.Completed); err != nil {
		return types.Enrollment{}, err
	}
	e.Student = types.Principal(student)
	return e, nil
}

func scanMaterial(scanner interface{ Scan(dest ...any) error }) (types.CourseMaterial, error) {
	var (
		m            types.CourseMaterial
		materialType string
	)
	if err := scanner.Scan(&m.CourseID, &m.ID, &m.Title, &m.ContentURL, &materialType); err != nil {
		return types.CourseMaterial{}, err
	}
	m.MaterialType = types.MaterialType(materialType)
	return m, nil
}

func scanTxRecord(scanner interface{ Scan(dest ...any) error }) (TxRecord, error) {
	var (
		rec       TxRecord
		result    sql.NullString
		appliedAt string
	)
	if err := scanner.Scan(&rec.Height, &rec.TxID, &rec.Sender, &rec.Entrypoint, &result, &appliedAt); err != nil {
		return TxRecord{}, err
	}
	rec.Result = result.String
	rec.AppliedAt = parseTime(appliedAt)
	return rec, nil
}

func getMetaValue(q querier, key string) (string, bool, error) {
	var value string
	err := q.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query meta %s: %w", key, err)
	}
	return value, true, nil
}

func setMetaValue(q querier, key, value string) error {
	_, err := q.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("store meta %s: %w", key, err)
	}
	return nil
}

func heightFrom(q querier) (uint64, error) {
	value, ok, err := getMetaValue(q, metaHeight)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	h, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse stored height %q: %w", value, err)
	}
	return h, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}

func uniqueBackupPath(dir, base string) string {
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)
	if prefix == "" {
		prefix = base
	}

	timestamp := time.Now().Unix()
	for {
		name := fmt.Sprintf("%s-%d%s", prefix, timestamp, ext)
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		timestamp++
	}
}

func pruneBackups(dir, prefix, ext string, maxBackups int) {
	if maxBackups <= 0 {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var backups []backupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") {
			continue
		}
		if ext != "" && !strings.HasSuffix(name, ext) {
			continue
		}

		stem := name
		if ext != "" {
			stem = strings.TrimSuffix(stem, ext)
		}
		tsPart := strings.TrimPrefix(stem, prefix+"-")
		ts, err := strconv.ParseInt(tsPart, 10, 64)
		if err != nil {
			info, statErr := entry.Info()
			if statErr != nil {
				continue
			}
			ts = info.ModTime().Unix()
		}

		backups = append(backups, backupInfo{
			path:      filepath.Join(dir, name),
			timestamp: ts,
		})
	}

	if len(backups) <= maxBackups {
		return
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].timestamp == backups[j].timestamp {
			return backups[i].path < backups[j].path
		}
		return backups[i].timestamp < backups[j].timestamp
	})

	for i := 0; i < len(backups)-maxBackups; i++ {
		_ = os.Remove(backups[i].path)
	}
}
