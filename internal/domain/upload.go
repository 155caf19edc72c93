package domain

// StoredObject describes an uploaded image after it reached a storage backend.
type StoredObject struct {
	URL         string
	Provider    string
	Key         string
	ContentType string
	Size        int64
	BlurHash    string
}
