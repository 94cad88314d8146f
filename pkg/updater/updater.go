package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const CurrentVersion = "v0.1.0"

// DefaultReleaseURL is the latest-release endpoint of the project repository
const DefaultReleaseURL = "https://api.github.com/repos/guardian-nexus/sqlfw-auditor/releases/latest"

type ReleaseInfo struct {
	TagName string `json:"tag_name"`
	Body    string `json:"body"`
	URL     string `json:"html_url"`
}

// CheckForUpdates fetches the latest release and reports whether it is newer
// than CurrentVersion.
func CheckForUpdates(ctx context.Context, releaseURL string) (ReleaseInfo, bool, error) {
	if releaseURL == "" {
		releaseURL = DefaultReleaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return ReleaseInfo{}, false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return ReleaseInfo{}, false, fmt.Errorf("unable to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ReleaseInfo{}, false, fmt.Errorf("unable to check for updates: status %d", resp.StatusCode)
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return ReleaseInfo{}, false, fmt.Errorf("unable to decode release: %w", err)
	}
	return release, Newer(release.TagName, CurrentVersion), nil
}

// Newer compares vMAJOR.MINOR.PATCH tags numerically. Unparsable tags are never newer.
func Newer(candidate, current string) bool {
	a, ok := parseVersion(candidate)
	if !ok {
		return false
	}
	b, ok := parseVersion(current)
	if !ok {
		return true
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

func parseVersion(tag string) ([3]int, bool) {
	var v [3]int
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "v")
	if i := strings.IndexAny(tag, "-+"); i >= 0 {
		tag = tag[:i]
	}
	parts := strings.Split(tag, ".")
	if len(parts) != 3 {
		return v, false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return v, false
		}
		v[i] = n
	}
	return v, true
}
