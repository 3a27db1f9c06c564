package usecase

import "errors"

// ErrMissingInput is matched by every InputError.
var ErrMissingInput = errors.New("missing input")

// InputError reports an upload the caller has to resubmit.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Unwrap() error { return ErrMissingInput }

var (
	// ErrNoImage is returned when the request carries no image file.
	ErrNoImage = &InputError{Message: "No image uploaded"}
	// ErrEmptyFilename is returned when the image file has an empty filename.
	ErrEmptyFilename = &InputError{Message: "Empty filename"}
)

// ImageProcessingError reports an upload that could not be decoded or re-encoded.
type ImageProcessingError struct {
	Err error
}

func (e *ImageProcessingError) Error() string {
	if e == nil || e.Err == nil {
		return "Image processing error"
	}
	return "Image processing error: " + e.Err.Error()
}

func (e *ImageProcessingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
