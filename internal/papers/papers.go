package papers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Paper is one raw paper before term counting.
type Paper struct {
	Name string `json:"paper_name"`
	Text string `json:"text"`
}

// LoadFromJSONL loads papers from a JSONL file. Malformed lines are logged
// and skipped.
func LoadFromJSONL(path string, logger *zap.Logger) ([]Paper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	defer f.Close()

	var out []Paper
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		var p Paper
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			logger.Warn("skipping malformed JSON line", zap.String("file", path), zap.Int("line", line), zap.Error(err))
			continue
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("%s:%d", filepath.Base(path), line)
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no valid papers found in %s", path)
	}
	return out, nil
}

// LoadDir loads every .txt file of dir as a paper named after the file, in
// file name order.
func LoadDir(dir string) ([]Paper, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]Paper, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", path, err)
		}
		out = append(out, Paper{Name: filepath.Base(path), Text: string(data)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no .txt papers found in %s", dir)
	}
	return out, nil
}

// Load reads path as a directory of .txt files or as a JSONL file.
func Load(path string, logger *zap.Logger) ([]Paper, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFromJSONL(path, logger)
}
