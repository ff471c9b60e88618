// Package imagepath normalizes image locators so the same picture shared
// through different link forms compares equal.
package imagepath

import (
	"net/url"
	"strings"
)

const driveViewURL = "https://drive.google.com/uc?export=view&id="

// IsDataURI reports whether src is an inline data: URI rather than an image
// on disk or on the network.
func IsDataURI(src string) bool {
	return strings.HasPrefix(strings.TrimSpace(src), "data:")
}

// Normalize rewrites share links into direct image links. Google Drive file
// links become export links, Dropbox dl=0 links become raw=1 links, and
// surrounding whitespace is trimmed. Anything else is returned trimmed but
// otherwise unchanged.
func Normalize(src string) string {
	src = strings.TrimSpace(src)
	if src == "" || IsDataURI(src) {
		return src
	}
	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return src
	}
	switch strings.ToLower(u.Host) {
	case "drive.google.com":
		if id := driveFileID(u); id != "" {
			return driveViewURL + id
		}
	case "www.dropbox.com", "dropbox.com":
		q := u.Query()
		if q.Get("dl") == "0" {
			q.Del("dl")
			q.Set("raw", "1")
			u.RawQuery = q.Encode()
			return u.String()
		}
	}
	return src
}

// driveFileID extracts the file id from /file/d/<id>/... paths and from
// open?id=<id> or uc?id=<id> links.
func driveFileID(u *url.URL) string {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "file" && parts[i+1] == "d" {
			return parts[i+2]
		}
	}
	return u.Query().Get("id")
}
