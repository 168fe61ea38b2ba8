package output

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adalundhe/instructgen/core/dataset"
)

const (
	// DatasetName is the stem of combined dataset files.
	DatasetName = "instruct"

	// PurposePrefix selects records for the purpose dataset.
	PurposePrefix = "What is the purpose"
)

// Dedupe keeps one record per instruction. A repeated instruction keeps its
// first position and takes the latest record.
func Dedupe(records []dataset.InstructRecord) []dataset.InstructRecord {
	index := make(map[string]int, len(records))
	out := make([]dataset.InstructRecord, 0, len(records))
	for _, r := range records {
		if i, ok := index[r.Instruction]; ok {
			out[i] = r
			continue
		}
		index[r.Instruction] = len(out)
		out = append(out, r)
	}
	return out
}

// FilterPrefix returns the records whose instruction starts with prefix.
func FilterPrefix(records []dataset.InstructRecord, prefix string) []dataset.InstructRecord {
	var out []dataset.InstructRecord
	for _, r := range records {
		if strings.HasPrefix(r.Instruction, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// CleanInputs blanks every input already seen in an earlier record.
func CleanInputs(records []dataset.InstructRecord) []dataset.InstructRecord {
	seen := make(map[string]struct{}, len(records))
	out := make([]dataset.InstructRecord, len(records))
	for i, r := range records {
		if _, ok := seen[r.Input]; ok {
			r.Input = ""
		} else {
			seen[r.Input] = struct{}{}
		}
		out[i] = r
	}
	return out
}

// CombineResult lists the files Combine wrote.
type CombineResult struct {
	Records []dataset.InstructRecord
	Files   []string
}

// Combine merges every per-file dataset under dir into instruct.<ext>, with
// instruct_purpose.<ext> and cleaned_ variants of both.
func Combine(dir string, f Format, logger *slog.Logger) (*CombineResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	suffix := "." + DatasetName + "." + f.Ext()

	var sources []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(sources)

	var all []dataset.InstructRecord
	for _, src := range sources {
		records, err := ReadFile(src)
		if err != nil {
			logger.Warn("skipping unreadable dataset", "path", src, "error", err)
			continue
		}
		all = append(all, records...)
	}

	result := &CombineResult{Records: Dedupe(all)}
	write := func(name string, records []dataset.InstructRecord) error {
		path := filepath.Join(dir, name+"."+f.Ext())
		if err := WriteFile(path, records); err != nil {
			return err
		}
		result.Files = append(result.Files, path)
		return nil
	}

	if err := write(DatasetName, result.Records); err != nil {
		return nil, err
	}
	if err := write("cleaned_"+DatasetName, CleanInputs(result.Records)); err != nil {
		return nil, err
	}
	if purpose := FilterPrefix(result.Records, PurposePrefix); len(purpose) > 0 {
		name := DatasetName + "_purpose"
		if err := write(name, purpose); err != nil {
			return nil, err
		}
		if err := write("cleaned_"+name, CleanInputs(purpose)); err != nil {
			return nil, err
		}
	}

	logger.Info("combined datasets", "sources", len(sources), "records", len(result.Records))
	return result, nil
}
