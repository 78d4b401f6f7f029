package bootstrap

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/morezero/frame-bridge/pkg/semver"
)

const logPrefix = "bootstrap:loader"

// DefaultPaths are tried when no explicit fixture file is given.
var DefaultPaths = []string{"config/host.json", "host.json"}

// LoadHostFixture reads the first fixture file found. An explicit path that
// cannot be read or parsed is an error; missing default files are skipped.
// It returns nil, nil when no file exists.
func LoadHostFixture(explicit string) (*HostFixture, error) {
	if explicit != "" {
		fx, err := readFixture(explicit)
		if err != nil {
			return nil, err
		}
		slog.Info(fmt.Sprintf("%s - Loaded host fixture from %s", logPrefix, explicit))
		return fx, nil
	}

	for _, p := range DefaultPaths {
		fx, err := readFixture(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse host fixture %s: %v", logPrefix, p, err))
			continue
		}
		slog.Info(fmt.Sprintf("%s - Loaded host fixture from %s", logPrefix, p))
		return fx, nil
	}
	return nil, nil
}

func readFixture(path string) (*HostFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s - read %s: %w", logPrefix, path, err)
	}
	var fx HostFixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("%s - parse %s: %w", logPrefix, path, err)
	}
	if err := fx.Validate(); err != nil {
		return nil, fmt.Errorf("%s - %s: %w", logPrefix, path, err)
	}
	return &fx, nil
}

// Validate checks the version and the canned methods.
func (f *HostFixture) Validate() error {
	if f.Version != "" && !semver.IsExactVersion(f.Version) {
		return fmt.Errorf("version %q is not an exact version", f.Version)
	}
	for method, m := range f.Methods {
		if method == "" {
			return errors.New("method name must not be empty")
		}
		if m.Error != nil && len(m.Result) > 0 {
			return fmt.Errorf("method %s has both result and error", method)
		}
	}
	return nil
}

// MergeHostFixtures overlays override on base. Non-empty fields of override win;
// methods are merged by name.
func MergeHostFixtures(base, override *HostFixture) *HostFixture {
	merged := *base
	if override == nil {
		return &merged
	}
	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.ChainID != "" {
		merged.ChainID = override.ChainID
	}
	if override.NetworkID != "" {
		merged.NetworkID = override.NetworkID
	}
	if override.Accounts != nil {
		merged.Accounts = append([]string(nil), override.Accounts...)
	}

	merged.Methods = make(map[string]MethodFixture, len(base.Methods)+len(override.Methods))
	for method, m := range base.Methods {
		merged.Methods[method] = m
	}
	for method, m := range override.Methods {
		merged.Methods[method] = m
	}
	return &merged
}
