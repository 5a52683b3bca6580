// Package types provides core data types shared across listenvault.
package types

// Listen is a single played-track event from a ListenBrainz dump.
//
// ListenedAt is the only field the range-scan machinery interprets; the rest
// is opaque track metadata carried through unchanged. Listens are immutable
// once written to a partition.
type Listen struct {
	// ListenedAt is the Unix timestamp (seconds) when the track was played
	ListenedAt int64 `json:"listened_at"`

	// UserID identifies the user who submitted the listen
	UserID int64 `json:"user_id"`

	// TrackName is the name of the played track
	TrackName string `json:"track_name"`

	// ArtistName is the credited artist string
	ArtistName string `json:"artist_name"`

	// ReleaseName is the release the track appears on, if known
	ReleaseName string `json:"release_name,omitempty"`

	// RecordingMSID is the MessyBrainz recording identifier
	RecordingMSID string `json:"recording_msid,omitempty"`

	// RecordingMBID is the MusicBrainz recording identifier, if matched
	RecordingMBID string `json:"recording_mbid,omitempty"`

	// ReleaseMBID is the MusicBrainz release identifier, if matched
	ReleaseMBID string `json:"release_mbid,omitempty"`

	// ArtistMBIDs are the MusicBrainz artist identifiers, if matched
	ArtistMBIDs []string `json:"artist_mbids,omitempty"`

	// Tags are user-submitted tags for the listen
	Tags []string `json:"tags,omitempty"`
}
