package submission

import "strings"

// Link is an external reference attached to a submission.
type Link struct {
	Title string `json:"title" validate:"omitempty,max=255"`
	URL   string `json:"url" validate:"omitempty,url"`
}

// File describes an uploaded file.
type File struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,url"`
	Size int64  `json:"size" validate:"gte=0"`
}

// Content is the body of a submission.
type Content struct {
	Text  string `json:"text,omitempty"`
	Links []Link `json:"links"`
	Files []File `json:"files"`
}

// HasContent reports whether at least one of non-blank text, a file, or a link
// with a non-blank URL is present.
func HasContent(c Content) bool {
	if strings.TrimSpace(c.Text) != "" {
		return true
	}
	if len(c.Files) > 0 {
		return true
	}
	for _, link := range c.Links {
		if strings.TrimSpace(link.URL) != "" {
			return true
		}
	}
	return false
}

// Normalized trims the text, drops links without a URL and guarantees non-nil slices.
func (c Content) Normalized() Content {
	out := Content{
		Text:  strings.TrimSpace(c.Text),
		Links: make([]Link, 0, len(c.Links)),
		Files: make([]File, 0, len(c.Files)),
	}
	for _, link := range c.Links {
		url := strings.TrimSpace(link.URL)
		if url == "" {
			continue
		}
		out.Links = append(out.Links, Link{Title: strings.TrimSpace(link.Title), URL: url})
	}
	out.Files = append(out.Files, c.Files...)
	return out
}

// Clone returns a deep copy.
func (c Content) Clone() Content {
	out := Content{Text: c.Text}
	if c.Links != nil {
		out.Links = append([]Link{}, c.Links...)
	}
	if c.Files != nil {
		out.Files = append([]File{}, c.Files...)
	}
	return out
}
