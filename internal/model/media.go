package model

import "errors"

// UploadResult is the outcome of a blob store upload.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

const (
	ContentTypeJPEG = "image/jpeg"
	ListingPhotoExt = ".jpg"

	// Photos are normalized to fit within this bounding box before upload.
	ListingPhotoMaxWidth  = 1600
	ListingPhotoMaxHeight = 1600

	ListingPhotoCacheControl = "public, max-age=86400"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// IsAllowedImageType reports whether the content type is an accepted photo
// format.
func IsAllowedImageType(contentType string) bool {
	return allowedImageTypes[contentType]
}

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
)
