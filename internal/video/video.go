// Package video holds the rules for externally hosted video identifiers: the
// accepted syntax, the public URLs derived from an identifier, and the text a
// creator pastes into the video description to attest ownership.
package video

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"vidmint/internal/services"
)

// IDLength is the fixed length of a video identifier.
const IDLength = 11

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// IsValid reports whether id matches the video identifier syntax.
func IsValid(id string) bool {
	return idPattern.MatchString(id)
}

// Validate returns a validation error when id is not a well-formed identifier.
// Surrounding whitespace is not stripped; callers pass what the user typed.
func Validate(id string) error {
	if IsValid(id) {
		return nil
	}
	return services.Wrap(
		services.ErrValidation,
		"CollectIdentifier",
		"validate video id",
		fmt.Sprintf("%q should be %d letters and numbers, including \"-\" and \"_\"", id, IDLength),
		nil,
	)
}

// WatchURL returns the public watch page for the video.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

// ThumbnailURL returns the high quality thumbnail image for the video.
func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + url.PathEscape(id) + "/hqdefault.jpg"
}

// StudioEditURL returns the creator studio page where the description is edited.
func StudioEditURL(id string) string {
	return "https://studio.youtube.com/video/" + url.PathEscape(id) + "/edit"
}

// TokenURL returns the public page of a video token on the tokenization site.
func TokenURL(tokenBaseURL, videoTokenID string) string {
	return strings.TrimRight(tokenBaseURL, "/") + "/" + videoTokenID
}

// Instructions is what a creator needs to attest ownership of a video.
type Instructions struct {
	DescriptionText string `json:"descriptionText"`
	EditURL         string `json:"editUrl"`
	Explanation     string `json:"explanation"`
	Attestation     string `json:"attestation"`
}

// OwnershipInstructions builds the description text linking to the token page
// and the link to edit the video description.
func OwnershipInstructions(tokenBaseURL, videoID, videoTokenID string) Instructions {
	return Instructions{
		DescriptionText: "Tokenized at " + TokenURL(tokenBaseURL, videoTokenID),
		EditURL:         StudioEditURL(videoID),
		Explanation: "To validate that you are the owner of the video, add a link to the NFT to be minted " +
			"to the description of the video (only if it isn't already there).",
		Attestation: "The video description has been edited to include a link to the video NFT token identifier",
	}
}
