package translit

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/spellserve/pkg/textutil"
)

// Transliteration data file format, one mapping per line:
//
//	u0436      (zh)
//	u0451      (e|yo|jo)
//	~x         (u043au0441)
//
// The source is a run of uXXXX escapes, the parenthesised value lists the
// variants separated by '|' with '_' standing for a literal space. A leading
// '~' flags a reverse-only entry whose source side is literal latin text and
// whose variants are uXXXX escapes. Blank lines and lines starting with '#'
// are ignored.

//go:embed data
var dataFS embed.FS

var (
	registryMu sync.Mutex
	registry   map[string]*Table
)

// ByName returns the transliteration table for a language name or code.
// Tables are loaded once per process from the embedded data files; unknown
// languages get an empty table that never produces variants.
func ByName(name string) *Table {
	registryMu.Lock()
	defer registryMu.Unlock()

	if registry == nil {
		registry = loadAll(dataFS, "data")
	}
	for _, t := range registry {
		if t.name == name || t.code == name {
			return t
		}
	}
	return NewTable("english", "en")
}

// LoadDir reads the .tr files named in dir's "languages" index file, keyed
// by those names; other files in dir are ignored. Used when the application
// ships its own tables.
func LoadDir(dir string) (map[string]*Table, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return loadAll(os.DirFS(dir), "."), nil
}

// loadAll reads the "languages" index (lines of "name code") and every table
// it names. Missing or unparsable tables are skipped with a warning.
func loadAll(fsys fs.FS, root string) map[string]*Table {
	tables := make(map[string]*Table)

	index, err := fsys.Open(filepath.Join(root, "languages"))
	if err != nil {
		log.Warnf("no transliteration language index: %v", err)
		return tables
	}
	defer index.Close()

	scanner := bufio.NewScanner(index)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		name, code := fields[0], fields[1]

		f, err := fsys.Open(filepath.Join(root, name+".tr"))
		if err != nil {
			log.Warnf("transliteration table %s missing: %v", name, err)
			continue
		}
		table, err := Parse(f, name, code)
		f.Close()
		if err != nil {
			log.Warnf("transliteration table %s unreadable: %v", name, err)
			continue
		}
		tables[name] = table
		log.Debugf("loaded transliteration table %s (%d forward, %d reverse)",
			name, len(table.forward), len(table.reverse))
	}
	return tables
}

// Parse reads one .tr data file into a Table.
func Parse(r io.Reader, name, code string) (*Table, error) {
	table := NewTable(name, code)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		reverse := strings.HasPrefix(line, "~")
		if reverse {
			line = line[1:]
		}

		open := strings.IndexByte(line, '(')
		close_ := strings.LastIndexByte(line, ')')
		if open < 0 || close_ < open {
			return nil, fmt.Errorf("line %d: missing variant list", lineNo)
		}
		source := strings.TrimSpace(line[:open])
		if source == "" {
			return nil, fmt.Errorf("line %d: empty source", lineNo)
		}

		for _, variant := range strings.Split(line[open+1:close_], "|") {
			variant = strings.ReplaceAll(variant, "_", " ")
			if !reverse {
				decoded, err := decodeEscapes(source)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				table.AddMapping(decoded, variant)
			} else {
				decoded, err := decodeEscapes(variant)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				table.AddReverseMapping(source, decoded)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	table.buildReverse()
	return table, nil
}

// decodeEscapes turns a run of uXXXX escapes into the string they spell. An
// empty input is allowed and yields the empty string (a grapheme that
// transliterates to nothing).
func decodeEscapes(s string) (string, error) {
	var out []byte
	for _, part := range strings.Split(s, "u") {
		if part == "" {
			continue
		}
		cp, err := strconv.ParseUint(part, 16, 32)
		if err != nil {
			return "", fmt.Errorf("bad unicode escape %q: %w", part, err)
		}
		out = textutil.AppendRune(out, rune(cp))
	}
	return string(out), nil
}
