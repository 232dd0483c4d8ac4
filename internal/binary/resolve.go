package binary

import (
	"strings"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/platform"
)

// PropertySource supplies named string properties. Missing properties
// return the empty string.
type PropertySource interface {
	Get(name string) string
}

// MapProperties is a PropertySource backed by a map.
type MapProperties map[string]string

// Get returns the value for name.
func (m MapProperties) Get(name string) string {
	return m[name]
}

// ResolveRequest builds a Request for driver from props.
//
// Precedence is fixed: local path > URL > version. The local path is kept
// next to a URL or version because it only applies when the file exists at
// provisioning time. A configured URL removes the version from the request.
func ResolveRequest(props PropertySource, d *Driver, p *platform.Info) Request {
	get := func(name string) string {
		if name == "" || props == nil {
			return ""
		}
		return strings.TrimSpace(props.Get(name))
	}

	req := Request{
		Driver:       d.Name,
		Platform:     p,
		LocalPath:    get(d.Properties.LocalPath),
		URL:          get(d.Properties.URL),
		SHA256:       get(d.Properties.SHA256),
		SignatureURL: get(d.Properties.SignatureURL),
		KeyringPath:  get(d.Properties.Keyring),
	}
	if req.URL == "" {
		req.Version = get(d.Properties.Version)
	}

	return req
}
