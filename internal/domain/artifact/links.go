package artifact

import (
	"net/url"
	"regexp"
	"strings"
)

// linkRule rewrites one hosting provider's share links. direct produces the
// first-attempt form; consent produces the retry form after an HTML
// interstitial came back. Either may be nil.
type linkRule struct {
	name    string
	match   *regexp.Regexp
	direct  func(u *url.URL, m []string)
	consent func(u *url.URL, page []byte)
}

// linkRules are applied in order; every matching rule's direct rewrite runs.
var linkRules = []linkRule{
	{
		name:   "share-flag",
		match:  regexp.MustCompile(`[?&]dl=0(&|$)`),
		direct: func(u *url.URL, _ []string) { setQuery(u, "dl", "1") },
	},
	{
		name:   "dropbox",
		match:  regexp.MustCompile(`^https?://(www\.)?dropbox\.com/`),
		direct: func(u *url.URL, _ []string) { setQuery(u, "dl", "1") },
		consent: func(u *url.URL, _ []byte) {
			u.Host = "dl.dropboxusercontent.com"
			q := u.Query()
			q.Del("dl")
			u.RawQuery = q.Encode()
		},
	},
	{
		name:  "gdrive-file",
		match: regexp.MustCompile(`^https?://drive\.google\.com/file/d/([^/?#]+)`),
		direct: func(u *url.URL, m []string) {
			*u = driveDownloadURL(m[1])
		},
		consent: driveConsent,
	},
	{
		name:  "gdrive-open",
		match: regexp.MustCompile(`^https?://drive\.google\.com/(open|uc)\?`),
		direct: func(u *url.URL, _ []string) {
			if id := u.Query().Get("id"); id != "" {
				*u = driveDownloadURL(id)
			}
		},
		consent: driveConsent,
	},
	{
		name:  "huggingface-blob",
		match: regexp.MustCompile(`^https?://huggingface\.co/.+/blob/`),
		direct: func(u *url.URL, _ []string) {
			u.Path = strings.Replace(u.Path, "/blob/", "/resolve/", 1)
		},
		consent: func(u *url.URL, _ []byte) { setQuery(u, "download", "true") },
	},
}

// NormalizeLink applies the rewrite table. Unrecognized references pass through.
// The second return lists the rules that fired.
func NormalizeLink(raw string) (string, []string) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, nil
	}
	var fired []string
	for _, r := range linkRules {
		m := r.match.FindStringSubmatch(u.String())
		if m == nil || r.direct == nil {
			continue
		}
		r.direct(u, m)
		fired = append(fired, r.name)
	}
	return u.String(), fired
}

// ConsentBypass derives the retry reference after page (an HTML interstitial)
// was served instead of the payload.
func ConsentBypass(raw string, page []byte) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	for _, r := range linkRules {
		if r.consent != nil && r.match.MatchString(u.String()) {
			r.consent(u, page)
			return u.String()
		}
	}
	setQuery(u, "confirm", "t")
	return u.String()
}

var (
	driveConfirm  = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)
	driveFormConf = regexp.MustCompile(`name="confirm"\s+value="([^"]+)"`)
	driveFormUUID = regexp.MustCompile(`name="uuid"\s+value="([^"]+)"`)
)

func driveDownloadURL(id string) url.URL {
	q := url.Values{}
	q.Set("export", "download")
	q.Set("id", id)
	return url.URL{Scheme: "https", Host: "drive.google.com", Path: "/uc", RawQuery: q.Encode()}
}

// driveConsent moves to the usercontent host with the confirm token scraped
// from the warning page, or "t" when none is present.
func driveConsent(u *url.URL, page []byte) {
	id := u.Query().Get("id")
	token := "t"
	if m := driveFormConf.FindSubmatch(page); m != nil {
		token = string(m[1])
	} else if m := driveConfirm.FindSubmatch(page); m != nil {
		token = string(m[1])
	}

	q := url.Values{}
	q.Set("id", id)
	q.Set("export", "download")
	q.Set("confirm", token)
	if m := driveFormUUID.FindSubmatch(page); m != nil {
		q.Set("uuid", string(m[1]))
	}
	*u = url.URL{Scheme: "https", Host: "drive.usercontent.google.com", Path: "/download", RawQuery: q.Encode()}
}

func setQuery(u *url.URL, key, value string) {
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
}
