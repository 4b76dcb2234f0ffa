package ports

// ArchiveFormat identifies which archive codec a reader handles.
type ArchiveFormat string

const (
	FormatZip      ArchiveFormat = "zip"
	FormatSevenZip ArchiveFormat = "7z"
	FormatRar      ArchiveFormat = "rar"
)

// ArchiveEntry is one file or directory entry yielded by an
// ArchiveReader.
type ArchiveEntry struct {
	Name             string
	IsDir            bool
	UncompressedSize int64
}

// ArchiveReader gives lazy, sequential access to one archive's
// entries, mirroring archive/tar's Reader convention so ZIP, 7z and
// RAR can share a single cursor abstraction despite ZIP/7z being
// naturally random-access and RAR being naturally stream-only.
type ArchiveReader interface {
	// Next advances to the next entry and returns its metadata, or
	// io.EOF when the archive is exhausted.
	Next() (ArchiveEntry, error)
	// Read reads from the current entry's content. Calling Read
	// before any call to Next, or after Next has returned io.EOF, is
	// an error.
	Read(p []byte) (int, error)
	Close() error
}

// ArchiveOpener opens an archive of the given format, optionally with
// a password. Implementations return an *addonerr.Error of kind
// WrongPassword, ArchiveCorrupt, or UnsupportedFormat as appropriate.
type ArchiveOpener interface {
	// Open opens the archive file at path.
	Open(path string, password string) (ArchiveReader, error)
	// OpenMemory opens an in-memory archive image. Formats that have
	// no native in-memory reader return an UnsupportedFormat error
	// rather than spooling data to a temporary file.
	OpenMemory(data []byte, password string) (ArchiveReader, error)
	// Format reports which ArchiveFormat this opener handles.
	Format() ArchiveFormat
}
