package hypothesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agenthands/orthopheno/internal/core/model"
)

var ErrFormat = errors.New("hypothesis: unsupported output format")

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FileName encodes the query name, the degree limits (closed topology only)
// and the run date.
func FileName(req Request, now time.Time) string {
	date := now.Format("2006-01-02")
	ext := string(req.Format)
	if ext == "" {
		ext = string(FormatJSON)
	}
	if req.Topology == Open {
		return fmt.Sprintf("query_%s_paths_v%s.%s", req.Name, date, ext)
	}
	return fmt.Sprintf("query_%s_pwdl%d_phdl%d_paths_v%s.%s",
		req.Name, req.PathwayDegreeMax, req.PhenotypeDegreeMax, date, ext)
}

// checkpoint rewrites the whole result list on every Write so the file on
// disk always holds every finished pair.
type checkpoint struct {
	path   string
	format Format
}

func newCheckpoint(dir, name string, format Format) (*checkpoint, error) {
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("%w: %q", ErrFormat, format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir '%s': %w", dir, err)
	}
	return &checkpoint{path: filepath.Join(dir, name), format: format}, nil
}

func (c *checkpoint) Write(results []model.PairResult) error {
	data, err := Encode(results, c.format)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint '%s': %w", c.path, err)
	}
	return nil
}

// Encode serialises pair results in the given format.
func Encode(results []model.PairResult, format Format) ([]byte, error) {
	if results == nil {
		results = []model.PairResult{}
	}
	switch format {
	case FormatJSON:
		return json.Marshal(results)
	case FormatYAML:
		return yaml.Marshal(results)
	}
	return nil, fmt.Errorf("%w: %q", ErrFormat, format)
}

// ReadResults loads a checkpoint file written by a previous run.
func ReadResults(path string) ([]model.PairResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results '%s': %w", path, err)
	}
	var results []model.PairResult
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &results)
	default:
		err = json.Unmarshal(data, &results)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse results '%s': %w", path, err)
	}
	return results, nil
}
