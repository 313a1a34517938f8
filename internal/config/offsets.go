package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/seccouser/hdmi-in-display/internal/tilegrid"
)

// LoadOffsets concatenates up to three 50-entry offset sources into a
// table of exactly capacity entries. File f fills slots f*50 onward; each
// valid line is two whitespace-separated signed integers. Blank lines,
// comments and malformed lines are skipped without consuming a slot, so
// later valid entries keep their positions. Missing entries stay (0,0);
// lines beyond a file's 50-entry block, and slots beyond capacity, are
// ignored.
func LoadOffsets(paths []string, capacity int) tilegrid.OffsetTable {
	table := tilegrid.NewOffsetTable(capacity)

	for f, path := range paths {
		if f >= 3 {
			break
		}
		if err := loadOffsetFile(path, f*OffsetsPerFile, &table); err != nil {
			log.Warn("offsets %s: %v", path, err)
		}
	}
	return table
}

func loadOffsetFile(path string, base int, table *tilegrid.OffsetTable) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	slot := 0
	n := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() && slot < OffsetsPerFile {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var dx, dy int
		if _, err := fmt.Sscanf(line, "%d %d", &dx, &dy); err != nil {
			log.Debug("offsets %s: skipping malformed line %q", path, line)
			continue
		}

		if idx := base + slot; idx < table.Len() {
			table.DX[idx] = dx
			table.DY[idx] = dy
			n++
		}
		slot++
	}
	log.Info("offsets %s: %d entries into slots %d..%d", path, n, base, base+OffsetsPerFile-1)
	return scanner.Err()
}
