package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const metadataFile = "metadata.json"

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Verification summarises a parallel-versus-reference comparison.
type Verification struct {
	Passed    bool    `json:"passed"`
	Checked   int     `json:"checked"`
	Errors    int     `json:"errors"`
	Tolerance float64 `json:"tolerance"`
	MaxDiff   float64 `json:"max_diff"`
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Exercise     string             `json:"exercise"`
	Timestamp    time.Time          `json:"timestamp"`
	Device       string             `json:"device"`
	DeviceKind   string             `json:"device_kind"`
	Input        string             `json:"input,omitempty"`
	Output       string             `json:"output,omitempty"`
	Params       map[string]float64 `json:"params"`
	Iterations   int                `json:"iterations"`
	TotalMs      float64            `json:"total_ms"`
	PerFrameMs   float64            `json:"per_frame_ms"`
	ReferenceMs  float64            `json:"reference_ms"`
	Verification Verification       `json:"verification"`
}

// Table is a CSV attachment saved next to a run's metadata.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Save writes meta, and table when non-nil, into a new run directory and
// returns the run ID. meta.ID and meta.Timestamp are filled in.
func (s *Store) Save(meta RunMetadata, table *Table) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", meta.Exercise, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = now

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if table == nil {
		return runID, nil
	}

	csvFile, err := os.Create(filepath.Join(runDir, table.Name+".csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(table.Header); err != nil {
		return "", err
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTable reads a run's CSV attachment back.
func (s *Store) LoadTable(runID, name string) (*Table, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, name+".csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	t := &Table{Name: name}
	if len(records) == 0 {
		return t, nil
	}
	t.Header = records[0]
	t.Rows = records[1:]
	return t, nil
}
