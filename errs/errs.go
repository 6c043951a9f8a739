package errs

import (
	"errors"
)

var (
	// ErrFormat indicates the site's obfuscation or encoding scheme no longer
	// matches what the pipeline expects.
	ErrFormat = errors.New("site format changed")
	// ErrKeyNotFound indicates a required variable is missing from the chapter script.
	ErrKeyNotFound = errors.New("key not found")
	// ErrDecryption indicates the image list payload could not be decrypted.
	ErrDecryption = errors.New("decryption failed")
	// ErrKeyResolution indicates a per-image descrambling key could not be computed.
	ErrKeyResolution = errors.New("key resolution failed")
	// ErrScriptNotFound indicates the chapter page does not reference a chapter script.
	ErrScriptNotFound = errors.New("chapter script not found")
	// ErrPayloadNotFound indicates the chapter page carries no encrypted image list.
	ErrPayloadNotFound = errors.New("image payload not found")
	// ErrNoImages indicates the decrypted image list was empty.
	ErrNoImages = errors.New("no images")
)
