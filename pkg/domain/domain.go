package domain

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var errParseURL = errors.New("error parsing URL")

// binaryExtensions lists file types that are probed instead of parsed for links.
var binaryExtensions = map[string]struct{}{
	".pdf": {}, ".zip": {}, ".gz": {}, ".tar": {}, ".rar": {}, ".7z": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".svg": {}, ".ico": {},
	".mp3": {}, ".mp4": {}, ".mov": {}, ".avi": {}, ".webm": {},
	".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".exe": {}, ".dmg": {}, ".css": {}, ".js": {},
}

// GetProtocol returns the protocol of a given URL
func GetProtocol(u string) (string, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return "", errParseURL
	}
	return parsedURL.Scheme, nil
}

// GetDomain returns the lowercased host of a given URL without port and leading "www.".
func GetDomain(u string) (string, error) {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return "", errParseURL
	}
	host := strings.ToLower(parsedURL.Hostname())
	return strings.TrimPrefix(host, "www."), nil
}

// IsSameDomain reports whether u is hosted exactly on domain.
func IsSameDomain(domain string, u string) bool {
	d, err := GetDomain(u)
	return err == nil && d != "" && strings.EqualFold(domain, d)
}

// IsBinaryFileURL reports whether the URL path ends in a known non-HTML extension.
func IsBinaryFileURL(u string) bool {
	parsedURL, err := url.Parse(u)
	if err != nil {
		return false
	}
	_, ok := binaryExtensions[strings.ToLower(path.Ext(parsedURL.Path))]
	return ok
}

// hostOf returns the lowercased hostname of u. ok is false when u cannot be parsed.
func hostOf(u string) (host string, ok bool) {
	parsedURL, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return "", false
	}
	return strings.ToLower(parsedURL.Hostname()), true
}
