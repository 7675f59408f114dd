package vocab

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

// Pair is an adjacent symbol pair eligible for a BPE merge.
type Pair struct {
	Left  string
	Right string
}

// MergeTable ranks byte-pair merges by priority: lower rank merges first.
type MergeTable struct {
	ranks map[Pair]int64
}

// ParseMerges builds a merge table from merges.txt contents: one
// space-separated pair per line, priority given by line order. The first line
// is a header and is skipped, as are blank and single-field lines.
func ParseMerges(data []byte) *MergeTable {
	ranks := make(map[Pair]int64)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(nil, 1024*1024)
	var line int64
	var rank int64
	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		fields := strings.Split(scanner.Text(), " ")
		if len(fields) < 2 {
			continue
		}
		pair := Pair{Left: fields[0], Right: fields[1]}
		if _, ok := ranks[pair]; ok {
			continue
		}
		ranks[pair] = rank
		rank++
	}
	return &MergeTable{ranks: ranks}
}

// Rank returns the priority of the pair and whether it is mergeable at all.
func (t *MergeTable) Rank(left, right string) (int64, bool) {
	rank, ok := t.ranks[Pair{Left: left, Right: right}]
	return rank, ok
}

// Len returns the number of ranked pairs.
func (t *MergeTable) Len() int {
	return len(t.ranks)
}

// MergesFromFile loads and parses a merges file from disk.
func MergesFromFile(path string) (*MergeTable, error) {
	data, err := readFileMapped(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading merges file %q", path)
	}
	return ParseMerges(data), nil
}
