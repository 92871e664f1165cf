package tg

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	// workchain:hex, e.g. 0:1f...e2
	reAccountAddr = regexp.MustCompile(`^-?\d+:[0-9a-fA-F]{64}$`)

	ErrNoWebAppURL = errors.New("webapp url not configured")
)

func IsAccountAddress(s string) bool {
	s = strings.TrimSpace(s)
	return reAccountAddr.MatchString(s)
}

// TrackerURL returns the WebApp URL preloaded with an account address.
func TrackerURL(base, address string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", ErrNoWebAppURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme != "https" {
		// Telegram only opens WebApps over https.
		return "", errors.New("webapp url must be https")
	}

	q := u.Query()
	q.Set("address", strings.ToLower(strings.TrimSpace(address)))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
