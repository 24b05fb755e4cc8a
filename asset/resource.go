package asset

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Resource wraps a scene, program or mesh file that is either stored locally
// or served over http(s).
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Returns the path or URL of this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Returns true if the resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Returns the directory containing the resource. For remote resources the
// returned value is a URL.
func (r *Resource) Dir() string {
	if r.IsRemote() {
		dirURL := *r.url
		dirURL.Path = path.Dir(r.url.Path)
		return dirURL.String()
	}
	return filepath.Dir(r.url.Path)
}

// Resolve pathToResource against the location of relTo. Absolute paths and
// URLs with a scheme are returned as-is.
func Resolve(pathToResource string, relTo *Resource) (*url.URL, error) {
	resURL, err := url.Parse(strings.Replace(pathToResource, `\`, `/`, -1))
	if err != nil {
		return nil, fmt.Errorf("resource: invalid path %q: %w", pathToResource, err)
	}

	if resURL.Scheme != "" || relTo == nil {
		return resURL, nil
	}

	if relTo.IsRemote() {
		return relTo.url.ResolveReference(resURL), nil
	}

	if filepath.IsAbs(resURL.Path) {
		return resURL, nil
	}

	prefix, err := filepath.Abs(relTo.url.Path)
	if err != nil {
		return nil, fmt.Errorf("resource: could not detect abs path for %s: %w", relTo.url.Path, err)
	}
	resURL.Path = filepath.Join(filepath.Dir(prefix), resURL.Path)
	return resURL, nil
}

// Open a resource. If relTo is specified and pathToResource does not define
// a scheme, the resource is looked up relative to the location of relTo.
//
// The caller must close the returned resource.
func NewResource(pathToResource string, relTo *Resource) (*Resource, error) {
	resURL, err := Resolve(pathToResource, relTo)
	if err != nil {
		return nil, err
	}

	var reader io.ReadCloser
	switch resURL.Scheme {
	case "":
		reader, err = os.Open(filepath.Clean(resURL.Path))
		if err != nil {
			return nil, fmt.Errorf("resource: %w", err)
		}
	case "http", "https":
		resp, err := httpClient.Get(resURL.String())
		if err != nil {
			return nil, fmt.Errorf("resource: could not fetch '%s': %s", resURL.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("resource: could not fetch '%s': status %d", resURL.String(), resp.StatusCode)
		}
		reader = resp.Body
	default:
		return nil, fmt.Errorf("resource: unsupported scheme '%s'", resURL.Scheme)
	}

	return &Resource{
		ReadCloser: reader,
		url:        resURL,
	}, nil
}

// LocalFile returns a filesystem path with the contents of the resource.
// Remote resources are copied to a temp file which is removed by the
// returned cleanup function. The resource is consumed but not closed.
func LocalFile(res *Resource) (string, func(), error) {
	if !res.IsRemote() {
		return res.url.Path, func() {}, nil
	}

	f, err := os.CreateTemp("", "resource-*"+path.Ext(res.url.Path))
	if err != nil {
		return "", nil, fmt.Errorf("resource: %w", err)
	}
	cleanup := func() { os.Remove(f.Name()) }

	_, err = io.Copy(f, res)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("resource: could not download '%s': %w", res.Path(), err)
	}

	return f.Name(), cleanup, nil
}
