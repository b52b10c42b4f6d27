package models

import "go-image-loader/internal/analyzer"

// LoadRequest asks the service to load one image
type LoadRequest struct {
	// Location is a local path, file:// URL, http(s) URL or azblob:// URL
	Location      string `json:"location" binding:"required"`
	IncludePixels bool   `json:"include_pixels,omitempty"`
	IncludeStats  bool   `json:"include_stats,omitempty"`
}

// LoadResponse describes a decoded image
type LoadResponse struct {
	Location          string                  `json:"location"`
	Timestamp         string                  `json:"timestamp"`
	ProcessingTimeSec float64                 `json:"processing_time_sec"`
	Width             int                     `json:"width"`
	Height            int                     `json:"height"`
	Channels          int                     `json:"channels"`
	Format            string                  `json:"format"`
	MIME              string                  `json:"mime,omitempty"`
	Stats             []analyzer.ChannelStats `json:"stats,omitempty"`
	Pixels            Samples                 `json:"pixels,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}
