/*
	Helpers for loading contextual config.

	Config for scry means "things that are the host machine operator's concerns":
	environment variables git users already set, and cache sizing.
	Nothing in here is consulted implicitly by discovery or object lookup;
	callers ask for it explicitly and pass the results in as plain values.
*/
package config

import (
	"os"
	"strconv"
	"strings"

	. "github.com/warpfork/go-errcat"
	"gopkg.in/src-d/go-git.v4/plumbing/cache"

	"go.polydawn.net/scry"
)

const (
	// Colon-separated list of directories that bound upward discovery.
	EnvCeilingDirectories = "GIT_CEILING_DIRECTORIES"

	// Boolean (git-config grammar) allowing discovery to cross filesystems.
	// Recognized, but never applied automatically; see `ParseGitBool`.
	EnvDiscoveryAcrossFilesystem = "GIT_DISCOVERY_ACROSS_FILESYSTEM"

	EnvObjectCacheSize = "SCRY_OBJECT_CACHE_SIZE" // bytes; 0 disables the per-handle object cache
	EnvPackCacheSize   = "SCRY_PACK_CACHE_SIZE"   // bytes; 0 disables the per-handle delta base cache
)

const (
	DefaultObjectCacheSize = 32 * cache.MiByte
	DefaultPackCacheSize   = cache.DefaultMaxSize
)

/*
	Return the raw value of `GIT_CEILING_DIRECTORIES`, and whether it was set at all.
*/
func GetCeilingDirectories() ([]byte, bool) {
	v, ok := os.LookupEnv(EnvCeilingDirectories)
	return []byte(v), ok
}

/*
	Return the per-handle object cache size.

	The default value is `DefaultObjectCacheSize`;
	this can be overriden by the `SCRY_OBJECT_CACHE_SIZE` environment variable.
*/
func GetObjectCacheSize() (cache.FileSize, error) {
	return sizeFromEnv(EnvObjectCacheSize, DefaultObjectCacheSize)
}

/*
	Return the per-handle pack (delta base) cache size.

	The default value is `DefaultPackCacheSize`;
	this can be overriden by the `SCRY_PACK_CACHE_SIZE` environment variable.
*/
func GetPackCacheSize() (cache.FileSize, error) {
	return sizeFromEnv(EnvPackCacheSize, DefaultPackCacheSize)
}

func sizeFromEnv(key string, dflt cache.FileSize) (cache.FileSize, error) {
	v := os.Getenv(key)
	if v == "" {
		return dflt, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return dflt, Errorf(scry.ErrUsage, "%s must be a non-negative byte count, got %q", key, v)
	}
	return cache.FileSize(n), nil
}

/*
	Parse a boolean the way git-config does.

	True: "true", "yes", "on", "1" (and other non-zero integers).
	False: "false", "no", "off", "0", and the empty string.
	Case-insensitive.  Anything else is an `ErrUsage`.
*/
func ParseGitBool(s string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off", "":
		return false, nil
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return false, Errorf(scry.ErrUsage, "invalid boolean value %q", s)
	}
	return n != 0, nil
}
