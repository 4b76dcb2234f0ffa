package archive

import (
	"io"
	"strings"

	"github.com/bodgit/sevenzip"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
	"github.com/felixgeelhaar/addonctl/internal/ports"
)

// SevenZipOpener reads 7z archives via github.com/bodgit/sevenzip.
type SevenZipOpener struct{}

// NewSevenZipOpener creates a SevenZipOpener.
func NewSevenZipOpener() *SevenZipOpener { return &SevenZipOpener{} }

func (o *SevenZipOpener) Format() ports.ArchiveFormat { return ports.FormatSevenZip }

func (o *SevenZipOpener) Open(path, password string) (ports.ArchiveReader, error) {
	var (
		rc  *sevenzip.ReadCloser
		err error
	)
	if password != "" {
		rc, err = sevenzip.OpenReaderWithPassword(path, password)
	} else {
		rc, err = sevenzip.OpenReader(path)
	}
	if err != nil {
		if isPasswordErr(err) {
			return nil, addonerr.New(addonerr.WrongPassword, "7z archive requires a password").WithPath(path)
		}
		return nil, addonerr.New(addonerr.ArchiveCorrupt, "failed to open 7z archive").WithPath(path).Wrap(err)
	}
	return newSevenZipReader(rc.File, rc), nil
}

// OpenMemory has no counterpart in bodgit/sevenzip, which reads from a
// ReaderAt backed by a real file for random access to the archive's
// trailing central directory. archivechain.ChooseStrategy picks
// StrategyMemory only for a ZIP nested inside a ZIP, so a nested 7z is
// always spooled or extracted instead and this path is never
// exercised in practice; it exists to satisfy the port.
func (o *SevenZipOpener) OpenMemory(data []byte, password string) (ports.ArchiveReader, error) {
	return nil, addonerr.New(addonerr.UnsupportedFormat, "7z archives cannot be opened from an in-memory buffer")
}

type sevenZipReader struct {
	files []*sevenzip.File
	idx   int
	cur   interface {
		Read(p []byte) (int, error)
		Close() error
	}
	closer interface{ Close() error }
}

func newSevenZipReader(files []*sevenzip.File, closer interface{ Close() error }) *sevenZipReader {
	return &sevenZipReader{files: files, idx: -1, closer: closer}
}

func (z *sevenZipReader) Next() (ports.ArchiveEntry, error) {
	if z.cur != nil {
		_ = z.cur.Close()
		z.cur = nil
	}
	z.idx++
	if z.idx >= len(z.files) {
		return ports.ArchiveEntry{}, io.EOF
	}
	f := z.files[z.idx]
	rc, err := f.Open()
	if err != nil {
		if isPasswordErr(err) {
			return ports.ArchiveEntry{}, addonerr.New(addonerr.WrongPassword, "7z entry requires a password").WithPath(f.Name)
		}
		return ports.ArchiveEntry{}, addonerr.New(addonerr.ArchiveCorrupt, "failed to open 7z entry").WithPath(f.Name).Wrap(err)
	}
	z.cur = rc
	info := f.FileInfo()
	return ports.ArchiveEntry{
		Name:             f.Name,
		IsDir:            info.IsDir(),
		UncompressedSize: info.Size(),
	}, nil
}

func (z *sevenZipReader) Read(p []byte) (int, error) {
	if z.cur == nil {
		return 0, addonerr.New(addonerr.Internal, "7z reader: Read called before Next")
	}
	return z.cur.Read(p)
}

func (z *sevenZipReader) Close() error {
	if z.cur != nil {
		_ = z.cur.Close()
	}
	if z.closer != nil {
		return z.closer.Close()
	}
	return nil
}

// isPasswordErr recognizes bodgit/sevenzip's and nwaples/rardecode's
// password-related errors by substring match, since neither library's
// exported sentinel is stable across the range of container formats
// 7z/RAR support (ZipCrypto-style vs AES-256).
func isPasswordErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypted")
}
