package enums

import "fmt"

// ContentType identifies the generator that produced a saved artifact. The
// type is immutable after creation.
type ContentType string

const (
	ContentTypeBlogPost           ContentType = "blog_post"
	ContentTypeSocialMedia        ContentType = "social_media"
	ContentTypeEmail              ContentType = "email"
	ContentTypeAdCopy             ContentType = "ad_copy"
	ContentTypeProductDescription ContentType = "product_description"
	ContentTypeImage              ContentType = "image"
	ContentTypeAudio              ContentType = "audio"
)

var validContentTypes = []ContentType{
	ContentTypeBlogPost,
	ContentTypeSocialMedia,
	ContentTypeEmail,
	ContentTypeAdCopy,
	ContentTypeProductDescription,
	ContentTypeImage,
	ContentTypeAudio,
}

// String implements fmt.Stringer.
func (c ContentType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContentType.
func (c ContentType) IsValid() bool {
	for _, candidate := range validContentTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsBinary reports whether generations of this type produce a stored artifact
// (object storage) rather than inline text.
func (c ContentType) IsBinary() bool {
	return c == ContentTypeImage || c == ContentTypeAudio
}

// ParseContentType converts raw input into a ContentType.
func ParseContentType(value string) (ContentType, error) {
	for _, candidate := range validContentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content type %q", value)
}
