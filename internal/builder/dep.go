package builder

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

var depShortcuts = map[string]string{
	"gh:": "https://github.com/",
	"gl:": "https://gitlab.com/",
	"bb:": "https://bitbucket.org/",
	"sr:": "https://sr.ht/",
	"cb:": "https://codeberg.org/",
}

const gitPrefix = "git:"

var (
	errIllegalDep         = errors.New("empty or illegal dependency string")
	errArchiveUnsupported = errors.New("archive dependencies are not supported, use a git: source")
)

// remoteURL returns the git URL of dep, or "" if dep is a local path.
func remoteURL(dep string) (string, error) {
	if dep == "" {
		return "", errIllegalDep
	}

	// check for `git:` prefix, e.g. git:https://github.com/someone/libhello.git
	if strings.HasPrefix(dep, gitPrefix) {
		return dep[len(gitPrefix):], nil
	}

	// check for shortcut prefix, e.g. gh:someone/libhello
	for shortcut, url := range depShortcuts {
		if strings.HasPrefix(dep, shortcut) {
			return url + dep[len(shortcut):], nil
		}
	}

	if isURL(dep) {
		return "", fmt.Errorf("%w: %s", errArchiveUnsupported, dep)
	}

	return "", nil
}

// fetchDependency makes dep available and returns where it lives. Remote sources are cloned
// into toWhere; local paths are returned as they are.
func fetchDependency(dep string, toWhere string, progress io.Writer) (string, error) {
	remote, err := remoteURL(dep)
	if err != nil {
		return "", err
	}
	if remote == "" {
		return dep, nil
	}
	return cloneGitRepo(remote, toWhere, progress)
}

func isURL(maybeURL string) bool {
	u, err := url.Parse(maybeURL)
	return err == nil && u.Scheme != "" && u.Host != ""
}

type gitURL struct {
	cleanURL    string
	branch      string
	commitOrTag string
}

// someone/something@master#0.1.0
// someone/something@feature-branch#12345abc
// someone/something#12345abc
func parseGitURL(rawURL string) (res gitURL) {
	parts := strings.SplitN(rawURL, "#", 2)
	baseURL := parts[0]
	if len(parts) == 2 {
		res.commitOrTag = parts[1]
	}

	// @branch is only looked for in the path, user@host stays part of the URL
	branchFrom := 0
	if i := strings.Index(baseURL, "://"); i >= 0 {
		branchFrom = len(baseURL)
		if j := strings.Index(baseURL[i+3:], "/"); j >= 0 {
			branchFrom = i + 3 + j
		}
	} else if i := strings.Index(baseURL, ":"); i >= 0 {
		branchFrom = i + 1
	}
	res.cleanURL = baseURL
	if i := strings.LastIndex(baseURL[branchFrom:], "@"); i >= 0 {
		res.cleanURL = baseURL[:branchFrom+i]
		res.branch = baseURL[branchFrom+i+1:]
	}

	if !strings.HasSuffix(res.cleanURL, ".git") {
		res.cleanURL += ".git"
	}

	return
}

// cloneGitRepo clones a Git remote into the specified directory
func cloneGitRepo(url, toWhere string, progress io.Writer) (string, error) {
	parsedURL := parseGitURL(url)

	cloneOptions := &git.CloneOptions{
		URL:               parsedURL.cleanURL,
		Progress:          progress,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	}

	if parsedURL.commitOrTag == "" {
		cloneOptions.Depth = 1 // we can do a shallow clone of the latest commit
	}

	if parsedURL.branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(parsedURL.branch)
		cloneOptions.SingleBranch = true
	}

	repo, err := git.PlainClone(toWhere, cloneOptions)
	if err != nil {
		return toWhere, err
	}

	if parsedURL.commitOrTag != "" {
		w, err := repo.Worktree()
		if err != nil {
			return toWhere, fmt.Errorf("could not get worktree: %w", err)
		}

		revision := parsedURL.commitOrTag
		hash, err := repo.ResolveRevision(plumbing.Revision(revision))
		if err != nil {
			return toWhere, fmt.Errorf("could not resolve revision `%s`: %w", revision, err)
		}

		err = w.Checkout(&git.CheckoutOptions{
			Hash:  *hash,
			Force: true,
		})
		if err != nil {
			return toWhere, fmt.Errorf("failed to checkout `%s`: %w", revision, err)
		}
	}

	return toWhere, nil
}

// FetchDependencies clones every remote dependency that is not yet present in depsDir.
// Local path dependencies must exist. It returns the directory of each dependency.
func FetchDependencies(basedir, depsDir string, deps map[string]string, progress io.Writer) (map[string]string, error) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	slices.Sort(names)

	if !filepath.IsAbs(depsDir) {
		depsDir = filepath.Join(basedir, depsDir)
	}

	paths := make(map[string]string, len(deps))
	var errs []error
	for _, name := range names {
		remote, err := remoteURL(deps[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("dependency %q: %w", name, err))
			continue
		}

		if remote == "" {
			path := deps[name]
			if !filepath.IsAbs(path) {
				path = filepath.Join(basedir, path)
			}
			if stat, err := os.Stat(path); err != nil || !stat.IsDir() {
				errs = append(errs, fmt.Errorf("dependency %q: %s is not a directory", name, deps[name]))
				continue
			}
			paths[name] = path
			continue
		}

		depPath := filepath.Join(depsDir, name)
		if stat, err := os.Stat(depPath); err == nil && stat.IsDir() {
			paths[name] = depPath
			continue
		}
		if err := os.MkdirAll(depsDir, 0o755); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := fetchDependency(deps[name], depPath, progress); err != nil {
			os.RemoveAll(depPath) // a partial clone would count as fetched next time
			errs = append(errs, fmt.Errorf("failed to fetch dependency %q: %w", name, err))
			continue
		}
		paths[name] = depPath
	}
	return paths, errors.Join(errs...)
}
