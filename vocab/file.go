package vocab

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// readFileMapped memory-maps path read-only, copies its contents and unmaps.
// Vocabulary and merges files are read once at construction, so the copy
// keeps the parsed maps independent of the mapping's lifetime.
func readFileMapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %q", path)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to mmap %q", path)
	}
	defer func() { _ = mapped.Unmap() }()

	data := make([]byte, len(mapped))
	copy(data, mapped)
	return data, nil
}

// FromJSONFile loads a JSON vocabulary mapping from disk.
func FromJSONFile(path string, specialTokens SpecialTokenMap) (*Vocabulary, error) {
	data, err := readFileMapped(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading vocabulary file %q", path)
	}
	return FromJSON(data, specialTokens)
}

// FromFlatFile loads a flat newline-separated vocabulary from disk.
func FromFlatFile(path string, specialTokens SpecialTokenMap) (*Vocabulary, error) {
	data, err := readFileMapped(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading vocabulary file %q", path)
	}
	return FromFlat(data, specialTokens)
}
