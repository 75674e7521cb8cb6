package extract

import "errors"

var (
	// ErrUnreadableDocument is returned when the byte stream is not a valid
	// PDF container. Fatal for the whole document.
	ErrUnreadableDocument = errors.New("deungdae: unreadable document")

	// ErrNoExtractableText is returned when every page yields empty text and
	// empty tables. This is the image-only (scanned) PDF signal; the engine
	// does not attempt inference on such input.
	ErrNoExtractableText = errors.New("deungdae: no extractable text")

	// ErrNoSectionsFound is returned when zero boundaries of a section type
	// are recognized anywhere in the text stream. Scoped to one section
	// type; other section types are still processed.
	ErrNoSectionsFound = errors.New("deungdae: no sections found")

	// ErrMalformedMetadata is returned when an evaluation metadata file is
	// missing required keys or a value does not match its declared type.
	// Fatal for metadata parsing only; PDF-only extraction is unaffected.
	ErrMalformedMetadata = errors.New("deungdae: malformed metadata")
)
