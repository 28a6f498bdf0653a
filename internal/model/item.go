package model

import (
	"net/url"
	"strings"
)

// Item is a trackable inventory entity identified by its barcode.
type Item struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Barcode     string  `json:"barcode"`
	Description *string `json:"description"`
	Quantity    int     `json:"quantity"`
	SKU         *string `json:"sku"`
	ImageURL    *string `json:"image_url"`
	ImagePath   *string `json:"image_path"`

	// Computed, not stored.
	PreviewURL string `json:"preview_url,omitempty"`
}

// Preview returns the client-facing image URL. An external image URL wins
// over an uploaded file, which is addressed under uploadsBase.
func (i *Item) Preview(uploadsBase string) string {
	if i.ImageURL != nil && *i.ImageURL != "" {
		return *i.ImageURL
	}
	if i.ImagePath != nil && *i.ImagePath != "" {
		return strings.TrimSuffix(uploadsBase, "/") + "/" + url.PathEscape(*i.ImagePath)
	}
	return ""
}

// ItemUpdate is a partial item update. Barcode is immutable.
type ItemUpdate struct {
	Name        Optional[string] `json:"name"`
	Description Optional[string] `json:"description"`
	Quantity    Optional[int]    `json:"quantity"`
	SKU         Optional[string] `json:"sku"`
	ImageURL    Optional[string] `json:"image_url"`
}
