package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"speechqa/config"
	"speechqa/internal/domain"
)

// SchemaVersion is the current storage layout version.
// Increment this when making breaking changes to the storage format.
const SchemaVersion = 1

var keyManifest = []byte("manifest")

// GetManifest returns the stored manifest, or a zero Manifest if the index was never completed.
func (s *BoltStore) GetManifest() (domain.Manifest, error) {
	var m domain.Manifest
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyManifest)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &m)
	})
	return m, err
}

func (s *BoltStore) SetManifest(m domain.Manifest) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyManifest, data)
	})
}

// ComputeConfigHash computes a hash of index-relevant configuration.
// Changes to this hash indicate the index should be rebuilt.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		ChunkSize    int    `json:"chunk_size"`
		ChunkOverlap int    `json:"chunk_overlap"`
		EmbProvider  string `json:"emb_provider"`
		EmbModel     string `json:"emb_model"`
		EmbDimension int    `json:"emb_dimension"`
	}{
		ChunkSize:    cfg.Index.ChunkSize,
		ChunkOverlap: cfg.Index.ChunkOverlap,
		EmbProvider:  cfg.Embedding.Provider,
		EmbModel:     cfg.Embedding.Model,
		EmbDimension: cfg.Embedding.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}

// RebuildCheck describes whether a stored index can be reused.
type RebuildCheck struct {
	NeedsRebuild bool
	Reason       string
}

// CheckRebuild compares a stored manifest with the current source and configuration.
func CheckRebuild(m domain.Manifest, sourceHash string, cfg *config.Config) RebuildCheck {
	switch {
	case m.Version == 0:
		return RebuildCheck{NeedsRebuild: true, Reason: "no completed index found"}
	case m.Version != SchemaVersion:
		return RebuildCheck{NeedsRebuild: true, Reason: fmt.Sprintf("schema version changed (v%d -> v%d)", m.Version, SchemaVersion)}
	case m.ConfigHash != ComputeConfigHash(cfg):
		return RebuildCheck{NeedsRebuild: true, Reason: "index configuration changed"}
	case m.SourceHash != sourceHash:
		return RebuildCheck{NeedsRebuild: true, Reason: "source content changed"}
	}
	return RebuildCheck{Reason: "index is up to date"}
}
