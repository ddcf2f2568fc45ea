// Package dash adds Widevine DRM signalling to clear DASH manifests using the
// keys handed out by the key server.
package dash

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/zencoder/go-dash/mpd"

	"widevine-keyproxy/internal/widevine"
)

// videoTracks is ordered from the lowest to the highest quality tier.
var videoTracks = []widevine.Track{
	widevine.TrackSD,
	widevine.TrackHD,
	widevine.TrackUHD1,
	widevine.TrackUHD2,
}

// VideoTrack returns the track class for a picture height.
func VideoTrack(height int64) widevine.Track {
	switch {
	case height <= 576:
		return widevine.TrackSD
	case height <= 1080:
		return widevine.TrackHD
	case height <= 2160:
		return widevine.TrackUHD1
	default:
		return widevine.TrackUHD2
	}
}

// Protect adds a CENC root and a Widevine ContentProtection element to every
// audio and video adaptation set that has a matching key. Sets already
// carrying ContentProtection and text sets are left alone. It returns the
// number of adaptation sets it protected.
func Protect(manifest *mpd.MPD, keys []widevine.TrackKey) (int, error) {
	if manifest == nil {
		return 0, errors.New("no manifest provided")
	}

	byTrack := make(map[widevine.Track]widevine.TrackKey, len(keys))

	for _, key := range keys {
		byTrack[key.Type] = key
	}

	protected := 0

	for _, period := range manifest.Periods {
		if period == nil {
			continue
		}

		for _, as := range period.AdaptationSets {
			if as == nil || len(as.ContentProtection) > 0 {
				continue
			}

			track, ok := adaptationSetTrack(as)

			if !ok {
				continue
			}

			key, ok := lookup(byTrack, track)

			if !ok {
				continue
			}

			if _, err := as.AddNewContentProtectionRoot(key.KeyIDHex()); err != nil {
				return protected, errors.Wrapf(err, "add cenc root for %s", track)
			}

			if len(key.PSSH) > 0 {
				if _, err := as.AddNewContentProtectionSchemeWidevineWithPSSH(key.PSSH); err != nil {
					return protected, errors.Wrapf(err, "add widevine pssh for %s", track)
				}
			}

			protected++
		}
	}

	return protected, nil
}

func adaptationSetTrack(as *mpd.AdaptationSet) (widevine.Track, bool) {
	switch mediaType(as) {
	case "audio":
		return widevine.TrackAudio, true
	case "video":
		var height int64

		for _, r := range as.Representations {
			if r != nil && r.Height != nil && *r.Height > height {
				height = *r.Height
			}
		}

		return VideoTrack(height), true
	default:
		return "", false
	}
}

func mediaType(as *mpd.AdaptationSet) string {
	if as.ContentType != nil && *as.ContentType != "" {
		return strings.ToLower(*as.ContentType)
	}

	if as.MimeType != nil {
		return strings.ToLower(strings.SplitN(*as.MimeType, "/", 2)[0])
	}

	return ""
}

// lookup returns the key for track. Video tracks without a dedicated key fall
// back to the closest lower tier, then the closest higher one.
func lookup(keys map[widevine.Track]widevine.TrackKey, track widevine.Track) (widevine.TrackKey, bool) {
	if key, ok := keys[track]; ok {
		return key, true
	}

	idx := -1

	for i, t := range videoTracks {
		if t == track {
			idx = i
		}
	}

	if idx < 0 {
		return widevine.TrackKey{}, false
	}

	for i := idx - 1; i >= 0; i-- {
		if key, ok := keys[videoTracks[i]]; ok {
			return key, true
		}
	}

	for i := idx + 1; i < len(videoTracks); i++ {
		if key, ok := keys[videoTracks[i]]; ok {
			return key, true
		}
	}

	return widevine.TrackKey{}, false
}
