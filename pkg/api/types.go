package api

import "time"

// Post is a feed item
type Post struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	AuthorUsername string    `json:"author_username,omitempty"`
	Title          string    `json:"title,omitempty"`
	Description    string    `json:"description,omitempty"`
	AudioURL       string    `json:"audio_url"`
	WaveformURL    string    `json:"waveform_url,omitempty"`
	CoverURL       string    `json:"cover_url,omitempty"`
	Duration       int       `json:"duration"`
	BPM            int       `json:"bpm,omitempty"`
	Key            string    `json:"key,omitempty"`
	Genre          []string  `json:"genre,omitempty"`
	DAW            string    `json:"daw,omitempty"`
	LikeCount      int       `json:"like_count"`
	PlayCount      int       `json:"play_count"`
	CommentCount   int       `json:"comment_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// MediaURL returns the preview resource for the post, preferring the
// waveform image over the cover
func (p Post) MediaURL() string {
	if p.WaveformURL != "" {
		return p.WaveformURL
	}
	return p.CoverURL
}

// FeedResponse is one page of a feed
type FeedResponse struct {
	Posts      []Post `json:"posts"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	HasMore    *bool  `json:"has_more,omitempty"`
}

// More reports whether another page may exist. Servers that omit has_more
// are judged by the total count, then by whether the page came back full.
func (r *FeedResponse) More() bool {
	if r.HasMore != nil {
		return *r.HasMore
	}
	if r.TotalCount > 0 {
		return r.Page*r.PageSize < r.TotalCount
	}
	return r.PageSize > 0 && len(r.Posts) >= r.PageSize
}

// ErrorResponse is the backend's error body
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
