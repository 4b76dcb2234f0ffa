package archive

import "github.com/felixgeelhaar/addonctl/internal/ports"

// NewRegistry returns the production ports.ArchiveOpener set, keyed by
// format, ready for injection into archivechain.NewCursor.
func NewRegistry() map[ports.ArchiveFormat]ports.ArchiveOpener {
	return map[ports.ArchiveFormat]ports.ArchiveOpener{
		ports.FormatZip:      NewZipOpener(),
		ports.FormatSevenZip: NewSevenZipOpener(),
		ports.FormatRar:      NewRarOpener(),
	}
}
