package detection

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Labels maps class ids to names. Line n of a labels file names class n.
type Labels []string

// LoadLabels reads a newline separated labels file. An empty path yields
// no labels.
func LoadLabels(path string) (Labels, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer file.Close()

	var labels Labels
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	return labels, nil
}

// Name returns the label of id, or "class_<id>" when unknown.
func (l Labels) Name(id int) string {
	if id >= 0 && id < len(l) && l[id] != "" {
		return l[id]
	}
	return fmt.Sprintf("class_%d", id)
}
