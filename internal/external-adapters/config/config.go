// Package config loads settings from a config file, UNITYNUGET_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/services"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. UNITYNUGET_UPDATE_INTERVAL
const EnvPrefix = "UNITYNUGET"

// configuration keys
const (
	KeyRootHTTPURL          = "root_http_url"
	KeyRegistryFile         = "registry_file"
	KeyUnityScope           = "unity_scope"
	KeyMinimumUnityVersion  = "minimum_unity_version"
	KeyPackageNamePostfix   = "package_name_postfix"
	KeyTargetFrameworks     = "target_frameworks"
	KeyBaselineFramework    = "baseline_framework"
	KeyRoslynVersion        = "roslyn_version"
	KeyProjectLanguage      = "project_language"
	KeyUpdateInterval       = "update_interval"
	KeyRetryInterval        = "retry_interval"
	KeyRootPersistentFolder = "root_persistent_folder"
	KeyRegistryFilter       = "registry_filter"
	KeyNuGetSource          = "nuget_source"
	KeyListen               = "listen"
	KeySigningKeyFile       = "signing_key_file"
	KeySigningPassphrase    = "signing_key_passphrase"
)

type targetFramework struct {
	Name              string   `mapstructure:"name"`
	DefineConstraints []string `mapstructure:"define_constraints"`
}

// Settings is the validated configuration of one process
type Settings struct {
	RootHTTPURL          string
	RegistryFile         string
	UnityScope           string
	MinimumUnityVersion  string
	PackageNamePostfix   string
	TargetFrameworks     []entities.TargetFramework
	BaselineFramework    string
	RoslynVersion        string
	ProjectLanguage      string
	UpdateInterval       time.Duration
	RetryInterval        time.Duration
	RootPersistentFolder string
	RegistryFilter       string
	NuGetSource          string
	Listen               string
	SigningKeyFile       string
	SigningPassphrase    string
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRootHTTPURL, "http://localhost:5000")
	v.SetDefault(KeyRegistryFile, "registry.json")
	v.SetDefault(KeyUnityScope, "org.nuget")
	v.SetDefault(KeyMinimumUnityVersion, "2019.1")
	v.SetDefault(KeyPackageNamePostfix, " (NuGet)")
	v.SetDefault(KeyTargetFrameworks, []map[string]interface{}{
		{"name": "netstandard2.1", "define_constraints": []string{"UNITY_2021_2_OR_NEWER"}},
		{"name": "netstandard2.0", "define_constraints": []string{"!UNITY_2021_2_OR_NEWER"}},
	})
	v.SetDefault(KeyBaselineFramework, "")
	v.SetDefault(KeyRoslynVersion, "3.8")
	v.SetDefault(KeyProjectLanguage, "cs")
	v.SetDefault(KeyUpdateInterval, "10m")
	v.SetDefault(KeyRetryInterval, "1m")
	v.SetDefault(KeyRootPersistentFolder, "unity_packages")
	v.SetDefault(KeyRegistryFilter, "")
	v.SetDefault(KeyNuGetSource, "https://api.nuget.org/v3/index.json")
	v.SetDefault(KeyListen, ":5000")
	v.SetDefault(KeySigningKeyFile, "")
	v.SetDefault(KeySigningPassphrase, "")
}

// NewViper creates a viper instance with defaults and environment overrides, reading cfgFile or,
// when empty, $HOME/.unitynuget.yaml if it exists.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, &entities.ConfigurationError{Err: err}
		}
		v.AddConfigPath(home)
		v.SetConfigName(".unitynuget")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, &entities.ConfigurationError{Key: "config", Err: err}
		}
	}
	return v, nil
}

// Load reads and validates the settings held by v
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		RootHTTPURL:          v.GetString(KeyRootHTTPURL),
		RegistryFile:         v.GetString(KeyRegistryFile),
		UnityScope:           v.GetString(KeyUnityScope),
		MinimumUnityVersion:  v.GetString(KeyMinimumUnityVersion),
		PackageNamePostfix:   v.GetString(KeyPackageNamePostfix),
		BaselineFramework:    v.GetString(KeyBaselineFramework),
		RoslynVersion:        v.GetString(KeyRoslynVersion),
		ProjectLanguage:      strings.ToLower(v.GetString(KeyProjectLanguage)),
		RootPersistentFolder: v.GetString(KeyRootPersistentFolder),
		RegistryFilter:       v.GetString(KeyRegistryFilter),
		NuGetSource:          v.GetString(KeyNuGetSource),
		Listen:               v.GetString(KeyListen),
		SigningKeyFile:       v.GetString(KeySigningKeyFile),
		SigningPassphrase:    v.GetString(KeySigningPassphrase),
	}

	var err error
	if s.UpdateInterval, err = duration(v, KeyUpdateInterval); err != nil {
		return nil, err
	}
	if s.RetryInterval, err = duration(v, KeyRetryInterval); err != nil {
		return nil, err
	}

	var targets []targetFramework
	if err := v.UnmarshalKey(KeyTargetFrameworks, &targets); err != nil {
		return nil, &entities.ConfigurationError{Key: KeyTargetFrameworks, Err: err}
	}
	for _, t := range targets {
		fw, err := services.ParseFramework(t.Name)
		if err != nil {
			return nil, &entities.ConfigurationError{Key: KeyTargetFrameworks, Err: err}
		}
		s.TargetFrameworks = append(s.TargetFrameworks, entities.TargetFramework{
			Name:              t.Name,
			DefineConstraints: t.DefineConstraints,
			Framework:         fw,
		})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &entities.ConfigurationError{Key: key, Err: err}
	}
	return d, nil
}

// Validate checks the settings, returning a ConfigurationError for the first invalid key
func (s *Settings) Validate() error {
	u, err := url.Parse(s.RootHTTPURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &entities.ConfigurationError{Key: KeyRootHTTPURL, Err: fmt.Errorf("%q is not an absolute http(s) URL", s.RootHTTPURL)}
	}
	if strings.TrimSpace(s.RegistryFile) == "" {
		return &entities.ConfigurationError{Key: KeyRegistryFile, Err: errors.New("required")}
	}
	if s.UnityScope == "" || s.UnityScope != strings.ToLower(s.UnityScope) || strings.ContainsAny(s.UnityScope, " /") {
		return &entities.ConfigurationError{Key: KeyUnityScope, Err: fmt.Errorf("%q is not a lowercase package scope", s.UnityScope)}
	}
	if s.MinimumUnityVersion == "" {
		return &entities.ConfigurationError{Key: KeyMinimumUnityVersion, Err: errors.New("required")}
	}
	if len(s.TargetFrameworks) == 0 {
		return &entities.ConfigurationError{Key: KeyTargetFrameworks, Err: errors.New("at least one target framework is required")}
	}
	if _, err := s.Baseline(); err != nil {
		return err
	}
	if s.ProjectLanguage != "cs" && s.ProjectLanguage != "vb" {
		return &entities.ConfigurationError{Key: KeyProjectLanguage, Err: fmt.Errorf("unsupported language %q", s.ProjectLanguage)}
	}
	if s.UpdateInterval <= 0 {
		return &entities.ConfigurationError{Key: KeyUpdateInterval, Err: errors.New("must be positive")}
	}
	if s.RetryInterval <= 0 {
		return &entities.ConfigurationError{Key: KeyRetryInterval, Err: errors.New("must be positive")}
	}
	if strings.TrimSpace(s.RootPersistentFolder) == "" {
		return &entities.ConfigurationError{Key: KeyRootPersistentFolder, Err: errors.New("required")}
	}
	if s.RegistryFilter != "" {
		if _, err := regexp.Compile("(?i)" + s.RegistryFilter); err != nil {
			return &entities.ConfigurationError{Key: KeyRegistryFilter, Err: err}
		}
	}
	return nil
}

// Baseline returns the framework used to accept packages and validate dependencies: the configured
// baseline, else the lowest target.
func (s *Settings) Baseline() (entities.TargetFramework, error) {
	if s.BaselineFramework == "" {
		if lowest, ok := services.LowestTargetFramework(s.TargetFrameworks); ok {
			return lowest, nil
		}
		return entities.TargetFramework{}, &entities.ConfigurationError{Key: KeyTargetFrameworks, Err: errors.New("at least one target framework is required")}
	}
	for _, t := range s.TargetFrameworks {
		if strings.EqualFold(t.Name, s.BaselineFramework) {
			return t, nil
		}
	}
	return entities.TargetFramework{}, &entities.ConfigurationError{Key: KeyBaselineFramework, Err: fmt.Errorf("%q is not one of the target frameworks", s.BaselineFramework)}
}

// Filter returns the case-insensitive registry filter, nil when every entry is processed
func (s *Settings) Filter() *regexp.Regexp {
	if s.RegistryFilter == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + s.RegistryFilter)
}

// RootFolder returns the absolute artifact folder
func (s *Settings) RootFolder() (string, error) {
	return filepath.Abs(s.RootPersistentFolder)
}
