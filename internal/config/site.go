package config

import "time"

// SiteConfig holds overrides for a single domain.
type SiteConfig struct {
	// MaxLinks overrides the global link cap for this domain.
	MaxLinks int `yaml:"maxLinks,omitempty"`

	// Delay overrides the pause before each fetch. A pointer so that an
	// explicit 0s can be told apart from "not set".
	Delay *time.Duration `yaml:"delay,omitempty"`

	// UserAgent overrides the User-Agent header for this domain.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .linkharvest configuration file.
type File struct {
	// Sites maps a domain (host[:port]) to its overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every domain unless a site entry overrides them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for domain, merged over Defaults.
func (cf *File) GetSiteConfig(domain string) SiteConfig {
	result := cf.Defaults

	site, ok := cf.Sites[domain]
	if !ok {
		return result
	}
	if site.MaxLinks > 0 {
		result.MaxLinks = site.MaxLinks
	}
	if site.Delay != nil {
		result.Delay = site.Delay
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	return result
}
