package mpris

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/b0bbywan/go-odio-players/backend/artwork"
	idbus "github.com/b0bbywan/go-odio-players/backend/internal/dbus"
)

// spotifyIdentity is the only player whose metadata gets the title-splitting
// workaround. It publishes ads and podcasts without artist fields.
const spotifyIdentity = "Spotify"

// rawFields holds the recognized metadata keys, arrays already joined.
type rawFields struct {
	trackID     string
	artURL      string
	url         string
	artist      string
	albumArtist string
	composer    string
	lyricist    string
	streamTitle string
	title       string
	album       string
	trackNumber int64
	hasTrackNum bool
	discNumber  int64
	hasDiscNum  bool
}

// Normalize turns a raw MPRIS metadata map into the canonical track tuple.
// It is pure: the same input always yields the same output, fully populated.
func Normalize(raw map[string]dbus.Variant, playerName string) TrackMetadata {
	if len(raw) == 0 {
		return TrackMetadata{ID: MPRIS_NO_TRACK, Artist: playerName, Mime: MimeAudio}
	}

	f := extractFields(raw)
	md := TrackMetadata{
		ID:       MPRIS_NO_TRACK,
		CoverURL: f.artURL,
		Mime:     guessMime(f.url),
	}
	// reserved or malformed ids read as no track
	if validTrackID(f.trackID) {
		md.ID = f.trackID
	}

	if playerName == spotifyIdentity && !strings.Contains(f.url, "/track/") {
		normalizeSpotify(&md, f, playerName)
		return md
	}

	md.Artist = firstNonEmpty(f.artist, f.albumArtist, f.composer, f.lyricist, f.streamTitle, playerName)
	md.Title = synthesizeTitle(f)
	return md
}

func normalizeSpotify(md *TrackMetadata, f rawFields, playerName string) {
	md.Mime = MimeAudio
	if strings.Contains(f.url, "/episode/") {
		md.Mime = MimeVideo
	}

	md.Title = f.title
	if f.artist != "" {
		md.Artist = f.artist
		return
	}
	if artist, title, ok := splitCombined(f.title); ok {
		md.Artist, md.Title = artist, title
		return
	}
	if artist, title, ok := splitCombined(f.album); ok {
		md.Artist = artist
		if md.Title == "" {
			md.Title = title
		}
		return
	}
	md.Artist = playerName
}

// splitCombined splits "Artist - Title" or "Artist: Title".
func splitCombined(s string) (string, string, bool) {
	for _, sep := range []string{" - ", ": "} {
		before, after, found := strings.Cut(s, sep)
		before, after = strings.TrimSpace(before), strings.TrimSpace(after)
		if found && before != "" && after != "" {
			return before, after, true
		}
	}
	return "", "", false
}

func synthesizeTitle(f rawFields) string {
	switch {
	case f.title != "":
		return f.title
	case f.hasTrackNum && f.hasDiscNum && f.discNumber > 1 && f.album != "":
		return fmt.Sprintf("%d - %s (%d)", f.trackNumber, f.album, f.discNumber)
	case f.hasTrackNum && f.album != "":
		return fmt.Sprintf("%d - %s", f.trackNumber, f.album)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func extractFields(raw map[string]dbus.Variant) rawFields {
	f := rawFields{
		artURL:      metaString(raw, META_ART_URL),
		url:         metaString(raw, META_URL),
		artist:      metaString(raw, META_ARTIST),
		albumArtist: metaString(raw, META_ALBUM_ARTIST),
		composer:    metaString(raw, META_COMPOSER),
		lyricist:    metaString(raw, META_LYRICIST),
		streamTitle: metaString(raw, META_STREAM_TITLE),
		title:       metaString(raw, META_TITLE),
		album:       metaString(raw, META_ALBUM),
	}
	if v, ok := raw[META_TRACK_ID]; ok {
		f.trackID, _ = idbus.ExtractObjectPath(v)
	}
	if v, ok := raw[META_TRACK_NUMBER]; ok {
		f.trackNumber, f.hasTrackNum = idbus.ExtractInt64(v)
	}
	if v, ok := raw[META_DISC_NUMBER]; ok {
		f.discNumber, f.hasDiscNum = idbus.ExtractInt64(v)
	}
	return f
}

// metaString reads a string field; arrays are joined with ", ".
func metaString(raw map[string]dbus.Variant, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	if s, ok := idbus.ExtractString(v); ok {
		return s
	}
	if parts, ok := idbus.ExtractStringSlice(v); ok {
		return strings.Join(parts, ", ")
	}
	return ""
}

// guessMime classifies a media URL by extension. Anything uncertain is audio.
func guessMime(rawURL string) MimeClass {
	if rawURL == "" {
		return MimeAudio
	}
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if strings.HasPrefix(artwork.GuessContentType(path.Ext(p)), "video/") {
		return MimeVideo
	}
	return MimeAudio
}

// validTrackID reports whether id can identify an entry of a track list.
func validTrackID(id string) bool {
	if id == "" || id == MPRIS_NO_TRACK || strings.HasPrefix(id, MPRIS_RESERVED_PREFIX) {
		return false
	}
	return dbus.ObjectPath(id).IsValid()
}
