// Package config provides configuration structures and utilities for linkharvest.
// It defines crawl limits, fetch behaviour, link store selection and report
// preferences, plus the optional YAML file with per-site overrides.
package config
