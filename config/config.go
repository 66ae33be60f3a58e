// Package config describes processed reconstruction datasets on disk.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// ProcessedFileName is the descriptor written next to a processed dataset.
const ProcessedFileName = "config.json"

// Processed records what the process step produced so the train step can pick
// it up without re-deriving anything.
type Processed struct {
	SourcePath  string `json:"source_path"`
	Images      string `json:"images"`
	SparseModel string `json:"sparse_model"`
	NumImages   int    `json:"num_images"`
	Lightweight bool   `json:"lightweight"`
}

// ReadProcessed loads a dataset descriptor.
func ReadProcessed(fn string) (*Processed, error) {
	//nolint:gosec
	raw, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	var cfg Processed
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "malformed dataset config %q", fn)
	}
	return &cfg, nil
}

// Write persists the descriptor.
func (cfg *Processed) Write(fn string) error {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
