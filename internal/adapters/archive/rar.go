package archive

import (
	rardecode "github.com/nwaples/rardecode/v2"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// RarOpener reads RAR archives via github.com/nwaples/rardecode/v2.
// rardecode is sequential-only by design (RAR's own format gives no
// random access to later entries without decoding the ones before
// them), which happens to match ports.ArchiveReader's Next/Read
// contract directly.
type RarOpener struct{}

// NewRarOpener creates a RarOpener.
func NewRarOpener() *RarOpener { return &RarOpener{} }

func (o *RarOpener) Format() ports.ArchiveFormat { return ports.FormatRar }

func (o *RarOpener) Open(path, password string) (ports.ArchiveReader, error) {
	var opts []rardecode.Option
	if password != "" {
		opts = append(opts, rardecode.Password(password))
	}
	rc, err := rardecode.OpenReader(path, opts...)
	if err != nil {
		if isPasswordErr(err) {
			return nil, addonerr.New(addonerr.WrongPassword, "rar archive requires a password").WithPath(path)
		}
		return nil, addonerr.New(addonerr.ArchiveCorrupt, "failed to open rar archive").WithPath(path).Wrap(err)
	}
	return &rarReader{rc: rc, password: password}, nil
}

// OpenMemory has no counterpart in rardecode, which streams directly
// from a file (or, for multi-volume archives, a sequence of files).
// ChooseStrategy picks StrategyMemory only for a ZIP nested inside a
// ZIP, so a nested RAR is always spooled or extracted instead and this
// exists only to satisfy the port.
func (o *RarOpener) OpenMemory(data []byte, password string) (ports.ArchiveReader, error) {
	return nil, addonerr.New(addonerr.UnsupportedFormat, "rar archives cannot be opened from an in-memory buffer")
}

type rarReader struct {
	rc       *rardecode.ReadCloser
	password string
}

func (r *rarReader) Next() (ports.ArchiveEntry, error) {
	h, err := r.rc.Next()
	if err != nil {
		if isPasswordErr(err) {
			return ports.ArchiveEntry{}, addonerr.New(addonerr.WrongPassword, "rar entry requires a password")
		}
		return ports.ArchiveEntry{}, err
	}
	return ports.ArchiveEntry{
		Name:             h.Name,
		IsDir:            h.IsDir,
		UncompressedSize: h.UnPackedSize,
	}, nil
}

func (r *rarReader) Read(p []byte) (int, error) {
	return r.rc.Read(p)
}

func (r *rarReader) Close() error {
	return r.rc.Close()
}
