package archivechain

import (
	"bytes"
	"errors"
	"io"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// fakeEntry is one entry seeded into a fakeArchive for tests.
type fakeEntry struct {
	name string
	data []byte
}

// fakeArchive is an in-memory ports.ArchiveReader test double.
type fakeArchive struct {
	entries []fakeEntry
	idx     int
	cur     *bytes.Reader
	closed  bool
}

func newFakeArchive(entries ...fakeEntry) *fakeArchive {
	return &fakeArchive{entries: entries, idx: -1}
}

func (f *fakeArchive) Next() (ports.ArchiveEntry, error) {
	f.idx++
	if f.idx >= len(f.entries) {
		return ports.ArchiveEntry{}, io.EOF
	}
	e := f.entries[f.idx]
	f.cur = bytes.NewReader(e.data)
	return ports.ArchiveEntry{Name: e.name, UncompressedSize: int64(len(e.data))}, nil
}

func (f *fakeArchive) Read(p []byte) (int, error) {
	if f.cur == nil {
		return 0, errors.New("fake archive: Read called before Next")
	}
	return f.cur.Read(p)
}

func (f *fakeArchive) Close() error {
	f.closed = true
	return nil
}

// fakeOpener is a ports.ArchiveOpener backed by named fakeArchive
// factories, keyed by path (for Open) and recognized for any call to
// OpenMemory (tests that need memory-path coverage seed "memory").
type fakeOpener struct {
	format    Format
	byPath    map[string]func() *fakeArchive
	wrongPath map[string]bool
	memory    func(data []byte) *fakeArchive
}

func newFakeOpener(format Format) *fakeOpener {
	return &fakeOpener{format: format, byPath: make(map[string]func() *fakeArchive), wrongPath: make(map[string]bool)}
}

func (o *fakeOpener) seed(path string, entries ...fakeEntry) {
	o.byPath[path] = func() *fakeArchive { return newFakeArchive(entries...) }
}

func (o *fakeOpener) requirePassword(path string) {
	o.wrongPath[path] = true
}

func (o *fakeOpener) Open(path, password string) (ports.ArchiveReader, error) {
	if o.wrongPath[path] && password != "correct" {
		return nil, addonerr.New(addonerr.WrongPassword, "archive requires a password").WithPath(path)
	}
	factory, ok := o.byPath[path]
	if !ok {
		return nil, addonerr.New(addonerr.BadInputPath, "no such fake archive").WithPath(path)
	}
	return factory(), nil
}

func (o *fakeOpener) OpenMemory(data []byte, password string) (ports.ArchiveReader, error) {
	if o.memory == nil {
		return nil, addonerr.New(addonerr.Internal, "fake opener has no in-memory path")
	}
	return o.memory(data), nil
}

func (o *fakeOpener) Format() Format { return o.format }
