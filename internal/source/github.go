// Package source resolves driver release versions to download URLs.
//
// GitHubReleases reads the release list of a repository and picks the asset
// for the target platform. TaggedDownloads reads repository tags and builds
// the URL from a template, for projects that host binaries elsewhere.
// Both satisfy binary.Source.
package source

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/binary"
	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
)

// TokenEnvVar names the environment variable holding a GitHub API token.
const TokenEnvVar = "GITHUB_TOKEN"

const (
	perPage  = 100
	maxPages = 5
)

// Client wraps the GitHub API client with knowledge of whether it is
// authenticated, for rate limit diagnostics.
type Client struct {
	gh            *github.Client
	authenticated bool
}

// NewClient creates a GitHub client. A non-empty token authenticates every
// request through oauth2.
func NewClient(token string) *Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	return &Client{
		gh:            github.NewClient(httpClient),
		authenticated: token != "",
	}
}

// NewClientFromEnv creates a client using the token in GITHUB_TOKEN, if any.
func NewClientFromEnv() *Client {
	return NewClient(os.Getenv(TokenEnvVar))
}

// WrapClient adapts an existing go-github client.
func WrapClient(gh *github.Client, authenticated bool) *Client {
	return &Client{gh: gh, authenticated: authenticated}
}

// AssetFunc returns the release asset file name for a version and platform.
// version has no leading "v".
type AssetFunc func(version string, p *platform.Info) (string, error)

// URLFunc returns the download URL for a version and platform.
type URLFunc func(version string, p *platform.Info) (string, error)

// GitHubReleases resolves versions from the releases of a GitHub repository.
type GitHubReleases struct {
	Client *Client
	Owner  string
	Repo   string
	Asset  AssetFunc
}

// Resolve implements binary.Source.
func (g *GitHubReleases) Resolve(ctx context.Context, version string, p *platform.Info) (*binary.Release, error) {
	releases, err := g.listReleases(ctx)
	if err != nil {
		return nil, err
	}

	byTag := make(map[string]*github.RepositoryRelease, len(releases))
	tags := make([]string, 0, len(releases))
	for _, r := range releases {
		if r.GetDraft() || r.GetTagName() == "" {
			continue
		}
		if version == "" && r.GetPrerelease() {
			continue
		}
		byTag[r.GetTagName()] = r
		tags = append(tags, r.GetTagName())
	}

	tag, err := pickVersion(tags, version)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", g.Owner, g.Repo, err)
	}
	resolved := normalizeVersion(tag)

	assetName, err := g.Asset(resolved, p)
	if err != nil {
		return nil, err
	}

	for _, a := range byTag[tag].Assets {
		if a.GetName() == assetName {
			return &binary.Release{Version: resolved, URL: a.GetBrowserDownloadURL()}, nil
		}
	}

	return nil, fmt.Errorf("%s/%s %s: %w: %s", g.Owner, g.Repo, tag, ErrAssetNotFound, assetName)
}

func (g *GitHubReleases) listReleases(ctx context.Context) ([]*github.RepositoryRelease, error) {
	var all []*github.RepositoryRelease
	opts := &github.ListOptions{PerPage: perPage}

	for page := 1; page <= maxPages; page++ {
		opts.Page = page
		releases, resp, err := g.Client.gh.Repositories.ListReleases(ctx, g.Owner, g.Repo, opts)
		if err != nil {
			return nil, wrapGitHubError(err, "list releases", g.Client.authenticated)
		}
		all = append(all, releases...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
	}

	return all, nil
}

// TaggedDownloads resolves versions from repository tags and builds the
// download URL with a template function.
type TaggedDownloads struct {
	Client *Client
	Owner  string
	Repo   string
	URL    URLFunc
}

// Resolve implements binary.Source.
func (t *TaggedDownloads) Resolve(ctx context.Context, version string, p *platform.Info) (*binary.Release, error) {
	tags, err := t.listTags(ctx)
	if err != nil {
		return nil, err
	}

	tag, err := pickVersion(tags, version)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", t.Owner, t.Repo, err)
	}
	resolved := normalizeVersion(tag)

	url, err := t.URL(resolved, p)
	if err != nil {
		return nil, err
	}

	return &binary.Release{Version: resolved, URL: url}, nil
}

func (t *TaggedDownloads) listTags(ctx context.Context) ([]string, error) {
	var names []string
	opts := &github.ListOptions{PerPage: perPage}

	for page := 1; page <= maxPages; page++ {
		opts.Page = page
		tags, resp, err := t.Client.gh.Repositories.ListTags(ctx, t.Owner, t.Repo, opts)
		if err != nil {
			return nil, wrapGitHubError(err, "list tags", t.Client.authenticated)
		}
		for _, tag := range tags {
			if tag.GetName() != "" {
				names = append(names, tag.GetName())
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
	}

	return names, nil
}
