// Package metadata builds the immutable token metadata document for a video and
// serializes it to canonical bytes so identical input always content-addresses
// to the same CID.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/text/unicode/norm"

	"vidmint/internal/tokenid"
	"vidmint/internal/video"
)

// Attribute is a marketplace-style trait entry.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Document is the metadata stored for one minted video token. Field order is
// the serialization order.
type Document struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	ExternalURL    string      `json:"external_url"`
	Image          string      `json:"image"`
	TokenURL       string      `json:"token_url"`
	Owner          string      `json:"owner"`
	VideoID        string      `json:"video_id"`
	Title          string      `json:"title"`
	VideoTokenID   string      `json:"video_token_id"`
	EditionTokenID string      `json:"edition_token_id"`
	Attributes     []Attribute `json:"attributes"`
}

// Builder produces metadata documents for a tokenization site.
type Builder struct {
	TokenBaseURL string
}

// NewBuilder returns a builder whose token URLs live under tokenBaseURL.
func NewBuilder(tokenBaseURL string) Builder {
	return Builder{TokenBaseURL: strings.TrimRight(strings.TrimSpace(tokenBaseURL), "/")}
}

// Build assembles the document. It never fails; inputs are expected to have
// been validated by the workflow.
func (b Builder) Build(owner common.Address, videoID, title string, ids tokenid.Pair) Document {
	title = NormalizeTitle(title)
	tokenURL := video.TokenURL(b.TokenBaseURL, ids.VideoTokenID)
	return Document{
		Name:           title,
		Description:    fmt.Sprintf("Video NFT for %s. Tokenized at %s", video.WatchURL(videoID), tokenURL),
		ExternalURL:    video.WatchURL(videoID),
		Image:          video.ThumbnailURL(videoID),
		TokenURL:       tokenURL,
		Owner:          owner.Hex(),
		VideoID:        videoID,
		Title:          title,
		VideoTokenID:   ids.VideoTokenID,
		EditionTokenID: ids.EditionTokenID,
		Attributes: []Attribute{
			{TraitType: "video_id", Value: videoID},
			{TraitType: "video_token_id", Value: ids.VideoTokenID},
			{TraitType: "edition_token_id", Value: ids.EditionTokenID},
		},
	}
}

// NormalizeTitle trims surrounding whitespace and applies Unicode NFC so
// visually identical titles serialize identically.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}

// Canonical returns the canonical serialization: compact JSON in field order,
// without HTML escaping and without a trailing newline.
func (d Document) Canonical() []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Document holds only strings and string slices; encoding cannot fail.
	_ = enc.Encode(d)
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}
