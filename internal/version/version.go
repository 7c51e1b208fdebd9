// Package version holds the build version and the CLI's update check.
package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// Version is stamped by the release build via -ldflags.
var Version = "v0.0.0"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// CheckForUpdates prints a notice when a newer release exists. Best-effort:
// any failure is silent, the CLI must not depend on GitHub being up.
func CheckForUpdates() {
	url := "https://api.github.com/repos/parley-llm/parley/releases/latest"

	httpClient := http.Client{Timeout: 2 * time.Second}
	resp, err := httpClient.Get(url)
	if err != nil {
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	current, err := goversion.NewVersion(Version)
	if err != nil {
		return
	}
	latest, err := goversion.NewVersion(release.TagName)
	if err != nil {
		return
	}

	if current.LessThan(latest) {
		fmt.Printf("note: parley %s is available (you are on %s)\n", release.TagName, Version)
	}
}
