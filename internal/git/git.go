// Package git reads repository identity from a local checkout.
package git

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
)

// Client defines the git operations prstats needs.
type Client interface {
	RemoteURL(path string) (string, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RemoteURL returns the origin URL, or "" when the checkout has no origin.
func (c *RealClient) RemoteURL(path string) (string, error) {
	out, err := gitCmd(path, "remote", "get-url", "origin")
	if err != nil {
		return "", nil // no remote is not an error
	}
	return out, nil
}

// DetectRepo resolves owner/repo from the origin remote of the checkout at path.
func DetectRepo(gc Client, path string) (owner, repo string, err error) {
	remote, err := gc.RemoteURL(path)
	if err != nil {
		return "", "", err
	}
	if remote == "" {
		return "", "", fmt.Errorf("no origin remote in %s", path)
	}
	return ExtractOwnerRepo(remote)
}

// ExtractOwnerRepo returns owner/repo from a remote URL. It accepts scp-style
// SSH (git@host:owner/repo.git) and URL forms (https://, ssh://, git://) on
// any host, so GitHub Enterprise remotes resolve too.
func ExtractOwnerRepo(remoteURL string) (owner, repo string, err error) {
	var repoPath string
	switch {
	case strings.Contains(remoteURL, "://"):
		u, perr := url.Parse(remoteURL)
		if perr != nil {
			return "", "", fmt.Errorf("cannot parse remote %q: %w", remoteURL, perr)
		}
		repoPath = u.Path
	case strings.Contains(remoteURL, "@") && strings.Contains(remoteURL, ":"):
		_, repoPath, _ = strings.Cut(remoteURL, ":")
	default:
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}

	repoPath = strings.TrimSuffix(strings.Trim(repoPath, "/"), ".git")
	segments := strings.Split(repoPath, "/")
	if len(segments) < 2 {
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}
	owner, repo = segments[len(segments)-2], segments[len(segments)-1]
	if owner == "" || repo == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}
	return owner, repo, nil
}
