package widevine

import "strings"

// Track is a media stream class the key server issues a distinct key for.
type Track string

const (
	TrackAudio Track = "AUDIO"
	TrackSD    Track = "SD"
	TrackHD    Track = "HD"
	TrackUHD1  Track = "UHD1"
	TrackUHD2  Track = "UHD2"
)

var validTracks = map[Track]struct{}{
	TrackAudio: {},
	TrackSD:    {},
	TrackHD:    {},
	TrackUHD1:  {},
	TrackUHD2:  {},
}

// Valid reports whether t is one of the known track classes.
func (t Track) Valid() bool {
	_, ok := validTracks[t]
	return ok
}

type TrackSpec struct {
	Type Track `json:"type"`
}

// ParseTracks splits a comma separated list, uppercases every token and keeps
// the known ones in input order. Unknown tokens are dropped without error, so
// the result may be empty.
func ParseTracks(s string) []Track {
	tracks := make([]Track, 0)

	for _, token := range strings.Split(strings.ToUpper(s), ",") {
		track := Track(token)

		if track.Valid() {
			tracks = append(tracks, track)
		}
	}

	return tracks
}
