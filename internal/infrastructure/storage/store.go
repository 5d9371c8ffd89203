package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Partition names the review folder an image lives in
type Partition string

const (
	PartitionApproved Partition = "approved"
	PartitionPending  Partition = "pending"
	PartitionDeclined Partition = "declined"
)

// Sidecar is the JSON metadata written next to every stored image
type Sidecar struct {
	ItemID       string    `json:"itemId"`
	Title        string    `json:"title"`
	Brand        string    `json:"brand,omitempty"`
	Query        string    `json:"query"`
	SourceDomain string    `json:"sourceDomain,omitempty"`
	SourceURL    string    `json:"sourceUrl,omitempty"`
	Confidence   *float64  `json:"confidence,omitempty"`
	StoredAt     time.Time `json:"storedAt"`
}

// Store writes optimized images and their sidecars into partitioned
// review folders: <base>/<partition>/<brand>/<title>_<id>.jpg
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Save writes the image and its sidecar into the given partition and
// returns the image path.
func (s *Store) Save(partition Partition, meta Sidecar, image []byte) (string, error) {
	dir := s.partitionDir(partition, meta.Brand)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create partition dir: %w", err)
	}

	base := SanitizeFilename(meta.Title) + "_" + meta.ItemID
	imagePath := filepath.Join(dir, base+".jpg")

	if err := os.WriteFile(imagePath, image, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}

	if meta.StoredAt.IsZero() {
		meta.StoredAt = time.Now().UTC()
	}
	sidecar, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(sidecarPath(imagePath), sidecar, 0o644); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}

	return imagePath, nil
}

// Move relocates an image and its sidecar to another partition,
// preserving the brand subfolder and filename. Returns the new path.
func (s *Store) Move(imagePath string, to Partition) (string, error) {
	rel, err := filepath.Rel(s.baseDir, imagePath)
	if err != nil {
		return "", fmt.Errorf("resolve image path: %w", err)
	}

	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return "", fmt.Errorf("image path %s is not inside a partition", imagePath)
	}
	// Replace the partition segment, keep brand/filename
	parts[0] = string(to)
	newPath := filepath.Join(append([]string{s.baseDir}, parts...)...)

	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return "", fmt.Errorf("create partition dir: %w", err)
	}
	if err := os.Rename(imagePath, newPath); err != nil {
		return "", fmt.Errorf("move image: %w", err)
	}
	// Sidecar moves best-effort; the image is the source of truth
	_ = os.Rename(sidecarPath(imagePath), sidecarPath(newPath))

	return newPath, nil
}

// Remove deletes a stored image and its sidecar. A missing image is
// not an error; the sidecar is removed best-effort.
func (s *Store) Remove(imagePath string) error {
	if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	_ = os.Remove(sidecarPath(imagePath))
	return nil
}

func (s *Store) partitionDir(partition Partition, brand string) string {
	if brand == "" {
		brand = "unbranded"
	}
	return filepath.Join(s.baseDir, string(partition), SanitizeFilename(brand))
}

func sidecarPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".json"
}

// SanitizeFilename makes a title safe as a file name. Apostrophes are
// kept so names like "Baker's Best" stay readable.
func SanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"<", "_", ">", "_", ":", "_", "\"", "_",
		"/", "_", "\\", "_", "|", "_", "?", "_", "*", "_",
		" ", "_",
	)
	out := replacer.Replace(strings.TrimSpace(name))

	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	out = strings.Trim(out, "_")

	if len(out) > 200 {
		out = out[:200]
	}
	if out == "" {
		out = "item"
	}
	return out
}
