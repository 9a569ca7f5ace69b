// Package bookkeeper keeps the bidirectional symbol/number translation
// tables shared by training and tagging.
package bookkeeper

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Book is an ordered bijection between names and dense integer ids,
// with a side occurrence counter used only during training. Ids are
// assigned in first-seen order starting at 0.
type Book struct {
	nameToNo map[string]int
	noToName map[int]string
	counter  map[string]int
	nextNo   int
}

func New() *Book {
	return &Book{
		nameToNo: make(map[string]int),
		noToName: make(map[int]string),
		counter:  make(map[string]int),
	}
}

// GetOrAssign returns the id of name, assigning the next free id to
// newcomers. The occurrence counter is incremented either way. This is
// the training path.
func (b *Book) GetOrAssign(name string) int {
	b.counter[name]++
	no, ok := b.nameToNo[name]
	if !ok {
		no = b.nextNo
		b.nameToNo[name] = no
		b.noToName[no] = name
		b.nextNo++
	}
	return no
}

// Lookup returns the id of name without counting or assigning. This is
// the tagging path.
func (b *Book) Lookup(name string) (int, bool) {
	no, ok := b.nameToNo[name]
	return no, ok
}

// NameOf returns the name stored under id.
func (b *Book) NameOf(no int) (string, bool) {
	name, ok := b.noToName[no]
	return name, ok
}

// Size returns the number of names in the table.
func (b *Book) Size() int {
	return len(b.nameToNo)
}

// Names returns all names in id order.
func (b *Book) Names() []string {
	names := make([]string, len(b.nameToNo))
	for name, no := range b.nameToNo {
		names[no] = name
	}
	return names
}

// Cutoff removes every name seen fewer than cutoff times and returns
// the set of ids just removed. Remaining ids are compacted to a
// contiguous range preserving their relative order. The counter is
// discarded afterwards.
func (b *Book) Cutoff(cutoff int) map[int]struct{} {
	toDelete := make(map[int]struct{})
	for name, counts := range b.counter {
		if counts < cutoff {
			toDelete[b.nameToNo[name]] = struct{}{}
			delete(b.nameToNo, name)
		}
	}
	b.counter = nil

	// Renumber survivors keeping the old relative order.
	type entry struct {
		name string
		no   int
	}
	survivors := make([]entry, 0, len(b.nameToNo))
	for name, no := range b.nameToNo {
		survivors = append(survivors, entry{name, no})
	}
	sort.Slice(survivors, func(i, j int) bool { return survivors[i].no < survivors[j].no })

	b.nameToNo = make(map[string]int, len(survivors))
	b.noToName = make(map[int]string, len(survivors))
	for i, e := range survivors {
		b.nameToNo[e.name] = i
		b.noToName[i] = e.name
	}
	b.nextNo = len(survivors)
	return toDelete
}

// Save writes "name<TAB>id" lines in id order, gzip-compressed.
func (b *Book) Save(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	w := bufio.NewWriter(zw)

	type entry struct {
		name string
		no   int
	}
	entries := make([]entry, 0, len(b.nameToNo))
	for name, no := range b.nameToNo {
		entries = append(entries, entry{name, no})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].no < entries[j].no })
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", e.name, e.no); err != nil {
			return fmt.Errorf("failed to write %s: %w", filename, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", filename, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close gzip stream of %s: %w", filename, err)
	}
	return nil
}

// Load reads a table written by Save and positions the next-id cursor
// after the largest id, so later GetOrAssign calls continue the
// sequence without collision.
func Load(filename string) (*Book, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("malformed gzip table %s: %w", filename, err)
	}
	defer zr.Close()

	b := New()
	maxNo := -1
	scanner := bufio.NewScanner(zr)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed line in %s: %q", filename, line)
		}
		no, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("malformed id in %s: %q", filename, parts[1])
		}
		b.nameToNo[parts[0]] = no
		b.noToName[no] = parts[0]
		if no > maxNo {
			maxNo = no
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	b.nextNo = maxNo + 1
	return b, nil
}
