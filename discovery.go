package strata

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDiscoveryOptions configures automatic configuration file discovery.
type FileDiscoveryOptions struct {
	// Name is the base file name without extension, usually the app name.
	Name string

	// Extensions to try, in order.
	Extensions []string

	// Paths are custom search directories checked before the defaults.
	Paths []string

	// EnvVar names an environment variable that may carry an explicit path.
	EnvVar string

	// UseXDG searches XDG config directories.
	UseXDG bool

	// UseCurrentDir searches the working directory.
	UseCurrentDir bool
}

// DefaultDiscoveryOptions returns the standard discovery behavior for an
// application name.
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".toml", ".yaml", ".yml", ".json"},
		EnvVar:        strings.ToUpper(appName) + "_CONFIG",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// WithFileDiscovery locates the configuration file instead of requiring an
// explicit WithFile path. The environment variable wins; otherwise search
// directories are probed for each extension in order. When nothing exists
// yet, the first candidate in the working directory is chosen so that
// materialization can create it.
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			b.opts.Path = path
			return b
		}
	}

	var searchPaths []string
	searchPaths = append(searchPaths, opts.Paths...)
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			searchPaths = append(searchPaths, cwd)
		}
	}
	if opts.UseXDG {
		searchPaths = append(searchPaths, xdgConfigPaths(opts.Name)...)
	}

	for _, dir := range searchPaths {
		for _, ext := range opts.Extensions {
			candidate := filepath.Join(dir, opts.Name+ext)
			if fileExists(candidate) {
				b.opts.Path = candidate
				return b
			}
		}
	}

	// No existing file: pick the first candidate so a fresh file can be
	// materialized with defaults.
	if len(opts.Extensions) > 0 {
		dir := "."
		if len(searchPaths) > 0 {
			dir = searchPaths[0]
		}
		b.opts.Path = filepath.Join(dir, opts.Name+opts.Extensions[0])
	}
	return b
}

// DefaultFilePath derives a configuration file path from the executable
// name: "<executable>.config.<ext>". An existing candidate wins over the
// extension order; with none existing, the first extension is used so the
// file can be created.
func DefaultFilePath(extensions ...string) string {
	if len(extensions) == 0 {
		extensions = []string{".toml", ".yaml", ".json"}
	}
	base := os.Args[0]
	for _, ext := range extensions {
		candidate := base + ".config" + ext
		if fileExists(candidate) {
			return candidate
		}
	}
	return base + ".config" + extensions[0]
}

// xdgConfigPaths returns XDG-compliant configuration search directories.
func xdgConfigPaths(appName string) []string {
	var paths []string

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		for _, dir := range filepath.SplitList(xdgDirs) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		paths = append(paths,
			filepath.Join("/etc/xdg", appName),
			filepath.Join("/etc", appName),
		)
	}

	return paths
}
