package transfer

// PlatformInfo is the display metadata for a supported platform.
type PlatformInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PostContent is the platform-neutral payload handed to an adapter's publish.
type PostContent struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	MediaURLs []string `json:"media_urls,omitempty"`
}

// PublishResult reports one platform's publish attempt. Provider-side
// rejection lands here as Success=false, never as a Go error.
type PublishResult struct {
	Success        bool   `json:"success"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
	Error          string `json:"error,omitempty"`
}
