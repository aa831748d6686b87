package password

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Denylist holds known-weak passwords loaded once at startup. It is
// immutable after load, so lookups need no locking. A nil *Denylist
// contains nothing.
type Denylist struct {
	entries map[string]struct{}
}

// LoadDenylist reads one password per line. Blank lines and #-comments
// are skipped and entries match case-insensitively. An empty path
// yields an empty list so the strength gate can stay unconditional.
func LoadDenylist(path string) (*Denylist, error) {
	dl := &Denylist{entries: map[string]struct{}{}}
	if strings.TrimSpace(path) == "" {
		return dl, nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		entry := normalize(sc.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		dl.entries[entry] = struct{}{}
	}
	return dl, sc.Err()
}

// Contains reports whether pwd is on the list.
func (d *Denylist) Contains(pwd string) bool {
	if d == nil {
		return false
	}
	_, ok := d.entries[normalize(pwd)]
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
