// Package credentials loads the static username/password table consulted
// during login. The table is immutable once loaded.
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrSourceUnreadable is returned when the credential source cannot be opened or read.
var ErrSourceUnreadable = errors.New("credential source unreadable")

// Store maps usernames to plaintext passwords. It is safe for concurrent
// reads because nothing mutates it after Load returns.
type Store struct {
	users map[string]string
}

// Stats describes what a load found in the source.
type Stats struct {
	Entries    int
	Duplicates []string
	Malformed  []int // 1-based line numbers without a colon
}

// Load reads a credential file with one "username:password" pair per line.
func Load(path string) (*Store, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads credential pairs from r. The first colon on each line is the
// delimiter; lines without one are skipped. A repeated username replaces the
// earlier entry. A trailing carriage return is dropped so CRLF files work.
func Parse(r io.Reader) (*Store, Stats, error) {
	s := &Store{users: make(map[string]string)}
	var stats Stats

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(scanner.Text(), "\r")

		username, password, ok := strings.Cut(line, ":")
		if !ok {
			if line != "" {
				stats.Malformed = append(stats.Malformed, lineNo)
			}
			continue
		}
		if _, seen := s.users[username]; seen {
			stats.Duplicates = append(stats.Duplicates, username)
		}
		s.users[username] = password
	}
	if err := scanner.Err(); err != nil {
		return nil, Stats{}, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	stats.Entries = len(s.users)
	return s, stats, nil
}

// FromMap builds a Store from an in-memory table. The map is copied.
func FromMap(users map[string]string) *Store {
	s := &Store{users: make(map[string]string, len(users))}
	for u, p := range users {
		s.users[u] = p
	}
	return s
}

// Verify reports whether username exists and its stored password equals
// password exactly.
func (s *Store) Verify(username, password string) bool {
	if s == nil {
		return false
	}
	stored, ok := s.users[username]
	return ok && stored == password
}

// Len returns the number of distinct usernames.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.users)
}
