package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultAutoBackupsKept is how many automatic backups survive cleanup.
const DefaultAutoBackupsKept = 5

// BackupManager takes and restores whole-database backups. Backups are taken
// before bulk rebuilds so a bad run can be rolled back by hand.
type BackupManager struct {
	db         *sql.DB
	dbPath     string
	backupsDir string
	keepAuto   int
}

// BackupMetadata is persisted next to every backup file.
type BackupMetadata struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

// BackupInfo represents information about a backup for listing.
type BackupInfo struct {
	CreatedAt     time.Time
	ID            string
	Description   string
	FileSize      int64
	Accounts      int
	Snapshots     int
	IncomeEntries int
	SchemaVersion int
	IsAuto        bool
}

// Backup errors.
var (
	ErrBackupNotFound  = errors.New("backup not found")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrBackupExists    = errors.New("backup already exists")
	ErrInvalidBackupID = errors.New("invalid backup id: cannot contain path separators")
)

// NewBackupManager creates a backup manager storing files next to the database.
func NewBackupManager(db *sql.DB, dbPath string) (*BackupManager, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	backupsDir := filepath.Join(filepath.Dir(absPath), "backups")
	if err := os.MkdirAll(backupsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	return &BackupManager{
		db:         db,
		dbPath:     absPath,
		backupsDir: backupsDir,
		keepAuto:   DefaultAutoBackupsKept,
	}, nil
}

// SetAutoRetention changes how many automatic backups are kept.
func (bm *BackupManager) SetAutoRetention(keep int) {
	if keep > 0 {
		bm.keepAuto = keep
	}
}

func validateBackupID(id string) error {
	if id == "" || strings.Contains(id, "/") || strings.Contains(id, "\\") || strings.Contains(id, "..") {
		return ErrInvalidBackupID
	}
	return nil
}

// Create takes a backup with the given tag and description.
func (bm *BackupManager) Create(ctx context.Context, tag, description string) (*BackupInfo, error) {
	return bm.create(ctx, tag, description, false)
}

func (bm *BackupManager) create(ctx context.Context, tag, description string, isAuto bool) (*BackupInfo, error) {
	if tag == "" {
		tag = fmt.Sprintf("backup-%s", time.Now().Format("2006-01-02-150405"))
	}
	if err := validateBackupID(tag); err != nil {
		return nil, err
	}

	backupPath := filepath.Join(bm.backupsDir, tag+".db")
	if _, err := os.Stat(backupPath); err == nil {
		return nil, ErrBackupExists
	}

	var schemaVersion int
	if err := bm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&schemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	rowCounts := bm.collectRowCounts(ctx)

	if err := bm.backupDatabase(ctx, backupPath); err != nil {
		return nil, fmt.Errorf("failed to backup database: %w", err)
	}

	stat, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	metadata := BackupMetadata{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     rowCounts,
		SchemaVersion: schemaVersion,
		IsAuto:        isAuto,
	}

	if err := bm.saveMetadata(bm.metadataPath(tag), metadata); err != nil {
		if rmErr := os.Remove(backupPath); rmErr != nil {
			slog.Error("failed to remove backup file after metadata save failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save metadata: %w", err)
	}

	if err := bm.storeMetadataInDB(ctx, metadata); err != nil {
		// Non-fatal: the backup file and sidecar are authoritative.
		slog.Warn("failed to store backup metadata in database", "error", err)
	}

	info := metadata.info()
	return &info, nil
}

// AutoBackup takes an automatic backup and prunes old automatic backups.
func (bm *BackupManager) AutoBackup(ctx context.Context, prefix string) (*BackupInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", prefix, time.Now().Format("2006-01-02-150405.000"))
	info, err := bm.create(ctx, tag, fmt.Sprintf("Automatic backup before %s", prefix), true)
	if err != nil {
		return nil, fmt.Errorf("failed to create auto-backup: %w", err)
	}

	if err := bm.cleanupOldAutoBackups(ctx); err != nil {
		slog.Warn("failed to clean up old auto-backups", "error", err)
	}

	return info, nil
}

// List returns all backups, newest first.
func (bm *BackupManager) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(bm.backupsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	backups := make([]BackupInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}

		metadata, err := bm.loadMetadata(filepath.Join(bm.backupsDir, entry.Name()))
		if err != nil {
			slog.Debug("skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, metadata.info())
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Restore replaces the live database with a backup. The storage owning the
// database handle must be reopened afterwards.
func (bm *BackupManager) Restore(_ context.Context, backupID string) error {
	if err := validateBackupID(backupID); err != nil {
		return err
	}

	backupPath := filepath.Join(bm.backupsDir, backupID+".db")
	if _, err := os.Stat(backupPath); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}

	if _, err := bm.loadMetadata(bm.metadataPath(backupID)); err != nil {
		return fmt.Errorf("failed to load backup metadata: %w", err)
	}

	if err := verifyIntegrity(backupPath); err != nil {
		return fmt.Errorf("%w: %w", ErrBackupCorrupted, err)
	}

	if err := bm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	safetyPath := bm.dbPath + ".restore-backup"
	if err := copyFile(bm.dbPath, safetyPath); err != nil {
		return fmt.Errorf("failed to backup current database: %w", err)
	}

	if err := copyFile(backupPath, bm.dbPath); err != nil {
		if restoreErr := copyFile(safetyPath, bm.dbPath); restoreErr != nil {
			slog.Error("failed to put current database back after restore failure", "error", restoreErr)
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}

	// Stale WAL files would be replayed on top of the restored file.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(bm.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove stale sqlite file", "file", bm.dbPath+suffix, "error", err)
		}
	}

	if err := os.Remove(safetyPath); err != nil {
		slog.Error("failed to remove safety copy", "error", err)
	}

	return nil
}

// Delete removes a backup.
func (bm *BackupManager) Delete(ctx context.Context, backupID string) error {
	if err := validateBackupID(backupID); err != nil {
		return err
	}

	backupPath := filepath.Join(bm.backupsDir, backupID+".db")
	if _, err := os.Stat(backupPath); err != nil {
		if os.IsNotExist(err) {
			return ErrBackupNotFound
		}
		return fmt.Errorf("failed to access backup: %w", err)
	}

	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("failed to remove backup file: %w", err)
	}

	if err := os.Remove(bm.metadataPath(backupID)); err != nil {
		slog.Debug("failed to remove metadata file", "error", err, "id", backupID)
	}

	if _, err := bm.db.ExecContext(ctx, "DELETE FROM backup_metadata WHERE id = ?", backupID); err != nil {
		slog.Debug("failed to remove backup metadata from database", "error", err, "id", backupID)
	}

	return nil
}

func (m BackupMetadata) info() BackupInfo {
	return BackupInfo{
		ID:            m.ID,
		CreatedAt:     m.CreatedAt,
		Description:   m.Description,
		FileSize:      m.FileSize,
		Accounts:      m.RowCounts["accounts"],
		Snapshots:     m.RowCounts["balance_snapshots"],
		IncomeEntries: m.RowCounts["income_entries"],
		SchemaVersion: m.SchemaVersion,
		IsAuto:        m.IsAuto,
	}
}

func (bm *BackupManager) metadataPath(id string) string {
	return filepath.Join(bm.backupsDir, id+".meta.json")
}

func (bm *BackupManager) collectRowCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int)

	// Explicit queries per table, no string building.
	tableQueries := map[string]string{
		"accounts":               "SELECT COUNT(*) FROM accounts",
		"balance_snapshots":      "SELECT COUNT(*) FROM balance_snapshots",
		"income_entries":         "SELECT COUNT(*) FROM income_entries",
		"automation_preferences": "SELECT COUNT(*) FROM automation_preferences",
	}

	for table, query := range tableQueries {
		var count int
		if err := bm.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			counts[table] = 0
			continue
		}
		counts[table] = count
	}

	return counts
}

func (bm *BackupManager) backupDatabase(ctx context.Context, destPath string) error {
	if _, err := bm.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint WAL: %w", err)
	}

	if strings.ContainsAny(destPath, `'";`) {
		return fmt.Errorf("invalid destination path: contains forbidden characters")
	}
	if !filepath.IsAbs(destPath) || strings.Contains(destPath, "..") {
		return fmt.Errorf("invalid destination path")
	}

	// #nosec G201 - destPath is validated above to prevent SQL injection
	query := fmt.Sprintf("VACUUM INTO '%s'", destPath)
	if _, err := bm.db.ExecContext(ctx, query); err != nil {
		slog.Debug("VACUUM INTO failed, falling back to file copy", "error", err)
		return copyFile(bm.dbPath, destPath)
	}

	return nil
}

func copyFile(src, dst string) error {
	cleanSrc := filepath.Clean(src)
	cleanDst := filepath.Clean(dst)
	if cleanSrc != src || cleanDst != dst || strings.Contains(src, "..") || strings.Contains(dst, "..") {
		return fmt.Errorf("invalid file paths")
	}

	tmpDst := dst + ".tmp"

	// #nosec G304 - cleanSrc is validated above
	source, err := os.Open(cleanSrc)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := source.Close(); closeErr != nil {
			slog.Error("failed to close source file", "error", closeErr)
		}
	}()

	// #nosec G304 - tmpDst is derived from a validated path
	destination, err := os.Create(tmpDst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destination, source); err != nil {
		_ = destination.Close()
		_ = os.Remove(tmpDst)
		return err
	}

	if err := destination.Close(); err != nil {
		_ = os.Remove(tmpDst)
		return err
	}

	return os.Rename(tmpDst, dst)
}

func (bm *BackupManager) saveMetadata(path string, metadata BackupMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

func (bm *BackupManager) loadMetadata(path string) (*BackupMetadata, error) {
	if !filepath.IsAbs(path) || strings.Contains(path, "..") {
		return nil, fmt.Errorf("invalid metadata path")
	}
	// #nosec G304 - path is validated above
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var metadata BackupMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}

	return &metadata, nil
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

func (bm *BackupManager) storeMetadataInDB(ctx context.Context, metadata BackupMetadata) error {
	rowCountsJSON, err := json.Marshal(metadata.RowCounts)
	if err != nil {
		return err
	}

	_, err = bm.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backup_metadata
		(id, created_at, description, file_size, row_counts, schema_version, is_auto)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		metadata.ID,
		metadata.CreatedAt,
		metadata.Description,
		metadata.FileSize,
		string(rowCountsJSON),
		metadata.SchemaVersion,
		metadata.IsAuto,
	)
	return err
}

func (bm *BackupManager) cleanupOldAutoBackups(ctx context.Context) error {
	backups, err := bm.List(ctx)
	if err != nil {
		return err
	}

	autoCount := 0
	for _, b := range backups {
		if !b.IsAuto {
			continue
		}
		autoCount++
		if autoCount > bm.keepAuto {
			if err := bm.Delete(ctx, b.ID); err != nil {
				slog.Debug("failed to delete old auto-backup during cleanup", "error", err, "backup", b.ID)
			}
		}
	}

	return nil
}
