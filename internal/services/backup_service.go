// internal/services/backup_service.go
package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/makairamei/premium-server/internal/config"
)

// backupTables lists every table included in a snapshot, restore happens in
// this order so licenses exist before their dependents.
var backupTables = []string{
	"admins",
	"licenses",
	"devices",
	"blocked_ips",
	"failed_logins",
	"access_logs",
	"plugin_usage",
	"playback_logs",
	"settings",
}

// BackupService dumps the store to a JSON snapshot on disk and optionally
// ships it to S3 when credentials are configured.
type BackupService struct {
	db       *gorm.DB
	cfg      *config.Config
	s3Client *s3.S3
	now      func() time.Time
}

type Snapshot struct {
	CreatedAt time.Time                           `json:"created_at"`
	Tables    map[string][]map[string]interface{} `json:"tables"`
}

type BackupResult struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Uploaded bool   `json:"uploaded"`
}

func NewBackupService(db *gorm.DB, cfg *config.Config) (*BackupService, error) {
	svc := &BackupService{db: db, cfg: cfg, now: time.Now}

	if cfg.AWS.AccessKeyID != "" && cfg.AWS.S3Bucket != "" {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(cfg.AWS.Region),
			Credentials: credentials.NewStaticCredentials(
				cfg.AWS.AccessKeyID,
				cfg.AWS.SecretAccessKey,
				"",
			),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS session: %w", err)
		}
		svc.s3Client = s3.New(sess)
	}

	return svc, nil
}

// Create writes a full snapshot to the backup dir.
func (s *BackupService) Create() (*BackupResult, error) {
	snapshot := Snapshot{
		CreatedAt: s.now(),
		Tables:    make(map[string][]map[string]interface{}, len(backupTables)),
	}

	for _, table := range backupTables {
		var rows []map[string]interface{}
		// Table names come from our own fixed list, quoting keeps the raw
		// query well-formed regardless.
		query := fmt.Sprintf("SELECT * FROM %s", pq.QuoteIdentifier(table))
		if err := s.db.Raw(query).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to dump table %s: %w", table, err)
		}
		snapshot.Tables[table] = rows
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := os.MkdirAll(s.cfg.Backup.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}

	name := fmt.Sprintf("backup-%s.json", s.now().Format("20060102-150405"))
	path := filepath.Join(s.cfg.Backup.Dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	result := &BackupResult{Path: path, Size: int64(len(data))}

	if s.s3Client != nil {
		if err := s.upload(name, data); err != nil {
			// Off-site copy is best effort; the local snapshot succeeded.
			logrus.WithError(err).Warn("Failed to upload backup to S3")
		} else {
			result.Uploaded = true
		}
	}

	return result, nil
}

func (s *BackupService) upload(name string, data []byte) error {
	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AWS.S3Bucket),
		Key:         aws.String("backups/" + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

// List returns snapshot filenames, newest name last.
func (s *BackupService) List() ([]string, error) {
	entries, err := os.ReadDir(s.cfg.Backup.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Restore loads a snapshot file back into the store, replacing current
// contents table by table.
func (s *BackupService) Restore(name string) error {
	path := filepath.Join(s.cfg.Backup.Dir, filepath.Base(name))
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, table := range backupTables {
			rows, ok := snapshot.Tables[table]
			if !ok {
				continue
			}

			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s", pq.QuoteIdentifier(table))).Error; err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			for _, row := range rows {
				if len(row) == 0 {
					continue
				}
				if err := tx.Table(table).Create(row).Error; err != nil {
					return fmt.Errorf("failed to restore row in %s: %w", table, err)
				}
			}
		}
		return nil
	})
}
