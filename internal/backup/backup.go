// Package backup archives the whole session collection to a gzipped tar
// and restores it, so a store can be moved between machines or backends.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joss/seccompare/internal/domain"
	"github.com/joss/seccompare/internal/logging"
)

// FormatVersion is written into every archive's metadata.
const FormatVersion = "1.0"

const (
	metadataFile  = "metadata.json"
	sessionPrefix = "sessions/"
)

// Store is the session persistence a backup reads from and restores into.
type Store interface {
	ListAll(ctx context.Context) []*domain.Session
	Get(ctx context.Context, id string) (*domain.Session, bool)
	Save(ctx context.Context, sess *domain.Session) error
	Delete(ctx context.Context, id string) error
}

// Metadata describes an archive.
type Metadata struct {
	Version     string            `json:"version"`
	CreatedAt   time.Time         `json:"created_at"`
	Description string            `json:"description"`
	Sessions    int               `json:"sessions"`
	Validations int               `json:"validations"`
	Checksums   map[string]string `json:"checksums"`
}

// RestoreResult reports what Restore did.
type RestoreResult struct {
	Metadata *Metadata
	Restored int
	Skipped  int
	Removed  int
}

// Manager handles backup operations.
type Manager struct {
	store Store
	now   func() time.Time
	log   *logging.Logger
}

// NewManager creates a backup manager over s.
func NewManager(s Store) *Manager {
	return &Manager{store: s, now: time.Now, log: logging.New("backup")}
}

// Create writes every session to a compressed archive at outputPath.
func (m *Manager) Create(ctx context.Context, outputPath, description string) (*Metadata, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("creating backup file: %w", err)
	}
	meta, err := m.Write(ctx, file, description)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing backup file: %w", cerr)
	}
	if err != nil {
		os.Remove(outputPath)
		return nil, err
	}
	return meta, nil
}

// Write streams the archive to w.
func (m *Manager) Write(ctx context.Context, w io.Writer, description string) (*Metadata, error) {
	gzw := gzip.NewWriter(w)
	tw := tar.NewWriter(gzw)

	meta := &Metadata{
		Version:     FormatVersion,
		CreatedAt:   m.now(),
		Description: description,
		Checksums:   make(map[string]string),
	}

	for _, sess := range m.store.ListAll(ctx) {
		data, err := json.MarshalIndent(sess, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding session %s: %w", sess.ID, err)
		}
		name := sessionPrefix + sess.ID + ".json"
		if err := addToTar(tw, name, data, meta.CreatedAt); err != nil {
			return nil, fmt.Errorf("adding %s to tar: %w", name, err)
		}
		meta.Checksums[name] = checksum(data)
		meta.Sessions++
		meta.Validations += len(sess.Validations)
	}

	// Metadata goes last; its checksums cover the session files.
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	if err := addToTar(tw, metadataFile, metaJSON, meta.CreatedAt); err != nil {
		return nil, fmt.Errorf("adding metadata: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip: %w", err)
	}

	m.log.Info("backup_created", map[string]any{
		"sessions":    meta.Sessions,
		"validations": meta.Validations,
	})
	return meta, nil
}

// Restore loads sessions from the archive at inputPath. Sessions keep
// their ids. With merge, sessions already in the store are left alone
// and their archived copies skipped; without it, every existing session
// is removed first.
func (m *Manager) Restore(ctx context.Context, inputPath string, merge bool) (*RestoreResult, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer file.Close()

	meta, sessions, err := read(file)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{Metadata: meta}
	if !merge {
		for _, existing := range m.store.ListAll(ctx) {
			if err := m.store.Delete(ctx, existing.ID); err != nil {
				return nil, fmt.Errorf("clearing session %s: %w", existing.ID, err)
			}
			result.Removed++
		}
	}

	for _, sess := range sessions {
		if _, exists := m.store.Get(ctx, sess.ID); exists {
			result.Skipped++
			continue
		}
		sess.Normalize()
		sess.ReplaceValidations(sess.Validations)
		sess.RecomputeProgress()
		if err := m.store.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("restoring session %s: %w", sess.ID, err)
		}
		result.Restored++
	}

	m.log.Info("backup_restored", map[string]any{
		"restored": result.Restored,
		"skipped":  result.Skipped,
		"removed":  result.Removed,
		"merge":    merge,
	})
	return result, nil
}

// List shows the metadata of an archive without restoring it.
func (m *Manager) List(inputPath string) (*Metadata, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	meta, _, err := read(file)
	return meta, err
}

// read decodes and verifies an archive. Sessions come back in archive order.
func read(r io.Reader) (*Metadata, []*domain.Session, error) {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	var meta *Metadata
	files := make(map[string][]byte)
	var order []string

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading tar: %w", err)
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", header.Name, err)
		}

		if header.Name == metadataFile {
			meta = &Metadata{}
			if err := json.Unmarshal(data, meta); err != nil {
				return nil, nil, fmt.Errorf("parsing metadata: %w", err)
			}
			continue
		}
		if strings.HasPrefix(header.Name, sessionPrefix) {
			files[header.Name] = data
			order = append(order, header.Name)
		}
	}

	if meta == nil {
		return nil, nil, fmt.Errorf("backup missing metadata")
	}

	sessions := make([]*domain.Session, 0, len(order))
	for _, name := range order {
		data := files[name]
		if want, ok := meta.Checksums[name]; ok && want != checksum(data) {
			return nil, nil, fmt.Errorf("%s: checksum mismatch", name)
		}
		var sess domain.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return nil, nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		if sess.ID == "" {
			return nil, nil, fmt.Errorf("%s: session has no id", name)
		}
		sessions = append(sessions, &sess)
	}

	var missing []string
	for name := range meta.Checksums {
		if _, ok := files[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, nil, fmt.Errorf("backup incomplete, missing %s", strings.Join(missing, ", "))
	}
	return meta, sessions, nil
}

func addToTar(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(data)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
