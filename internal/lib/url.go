package lib

import (
	"errors"
	"fmt"
	"net/url"
)

var ErrInvalidURL = errors.New("invalid url")

// ParsePublicURL parses an absolute url used to build links in responses
func ParsePublicURL(urlStr string) (*url.URL, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, WrapError(ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %s is not absolute", ErrInvalidURL, urlStr)
	}
	return u, nil
}

func MustParseURL(urlStr string) *url.URL {
	u, err := ParsePublicURL(urlStr)
	if err != nil {
		panic(err)
	}
	return u
}
