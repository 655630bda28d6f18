package configkit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	modellib "github.com/ygrebnov/model"

	"github.com/configkit/configkit/streams"
)

const configFileName = "config.yml"

// Provider manages the lifecycle of an application's root record of type T.
//
// A Provider[T] performs the following steps exactly once (it is safe to
// call Get from multiple goroutines):
//  1. Construct a new *T using the factory set via WithDefaultFn (or a
//     zero-value fallback).
//  2. If WithModel is set, bind a model.Model[T] to the same *T and call
//     SetDefaults() to populate zero values using `default` struct tags.
//  3. Resolve the configuration file path from either ${ENV_PREFIX}_CONFIG_PATH
//     or a standard user config directory (if persistence is enabled with
//     WithPersistence).
//  4. Load overrides from the resolved file if it exists, with full record
//     resolution (nested records may be inlined or referenced by path), or
//     create the file from the current defaults if persistent and missing.
//  5. Apply environment overrides using `env` struct tags (or field names in
//     SCREAMING_SNAKE_CASE).
//  6. If WithModel was set, validate the final record using model.Validate().
//
// Subsequent calls to Get() return the same pointer and metadata. Mutation
// happens only during this construction phase; treat the returned record as
// immutable afterwards.
type Provider[T Record] struct {
	mu          sync.RWMutex
	initOnce    sync.Once
	persist     bool
	dirName     string
	envPrefix   string
	configPath  string
	cfg         *T
	defaultFn   func() *T
	streams     streams.IOStreams
	fileCreated bool
	initErr     error
	modelInit   ModelInit[T]
	model       *modellib.Model[T]
}

// ProviderOption configures a Provider at construction time. Options are
// composable and can be passed to New in any order.
type ProviderOption[T Record] func(*Provider[T])

// New constructs a Provider[T] and applies all given options. If no
// WithDefaultFn is provided, New uses a zero-value factory.
func New[T Record](opts ...ProviderOption[T]) *Provider[T] {
	p := &Provider[T]{}
	for _, opt := range opts {
		opt(p)
	}
	if p.defaultFn == nil {
		p.defaultFn = func() *T { var t T; return &t }
	}
	return p
}

// WithPersistence enables reading/writing the config file under a directory
// named dirName inside the OS user config directory (e.g.
// XDG_CONFIG_HOME/<dirName>/config.yml). The provider will create the file
// from the current defaults when it does not exist. Panics if dirName is
// empty.
func WithPersistence[T Record](dirName string) ProviderOption[T] {
	return func(p *Provider[T]) {
		if dirName == "" {
			panic("configkit: WithPersistence: dirName cannot be empty")
		}
		p.persist = true
		p.dirName = dirName
	}
}

// WithEnvPrefix sets the prefix used for environment overrides, e.g. "MYAPP".
// When set, Provider also honors ${PREFIX}_CONFIG_PATH as a path to the
// config file, which takes precedence over persistence. Panics if prefix is
// empty.
func WithEnvPrefix[T Record](prefix string) ProviderOption[T] {
	return func(p *Provider[T]) {
		if prefix == "" {
			panic("configkit: WithEnvPrefix: prefix cannot be empty")
		}
		p.envPrefix = prefix
	}
}

// WithDefaultFn registers a factory that returns a new *T, invoked once
// during Get() before any file or environment overrides are applied. Panics
// if fn is nil.
func WithDefaultFn[T Record](fn func() *T) ProviderOption[T] {
	return func(p *Provider[T]) {
		if fn == nil {
			panic("configkit: WithDefaultFn: fn cannot be nil")
		}
		p.defaultFn = fn
	}
}

// WithProviderStreams wires user-facing message streams for the
// "created"/"loaded" notifications and non-fatal warnings.
func WithProviderStreams[T Record](s streams.IOStreams) ProviderOption[T] {
	return func(p *Provider[T]) {
		p.streams = s
	}
}

// ModelInit is a constructor hook that binds a model.Model[T] to the
// Provider-managed *T. It allows the Provider to call SetDefaults() before
// file/env and Validate() after. Return the constructed model.Model[T] or an
// error.
type ModelInit[T Record] func(*T) (*modellib.Model[T], error)

// WithModel enables integration with github.com/ygrebnov/model. The provided
// init function is called exactly once during the first Get() to build a
// model.Model[T] bound to the Provider's *T. The Provider will then:
//   - call SetDefaults() before loading from file and env, and
//   - call Validate() after all overrides are applied.
//
// Panics if init is nil.
func WithModel[T Record](init ModelInit[T]) ProviderOption[T] {
	return func(p *Provider[T]) {
		if init == nil {
			panic("configkit: WithModel: init cannot be nil")
		}
		p.modelInit = init
	}
}

// Get initializes and returns the final record pointer, the resolved file
// path (if any), whether the file was created on this run, and an error if
// initialization failed. Get is safe for concurrent use; initialization runs
// at most once.
func (p *Provider[T]) Get() (cfg *T, path string, fileCreated bool, err error) {
	p.initOnce.Do(func() {
		p.cfg = p.defaultFn()

		if p.modelInit != nil {
			mdl, err := p.modelInit(p.cfg)
			if err != nil {
				p.initErr = err
				return
			}
			p.model = mdl

			// Apply defaults before file/env, so they only fill zero values.
			if err := p.model.SetDefaults(); err != nil {
				p.initErr = err
				return
			}
		}

		if err := p.resolveConfigPath(); err != nil {
			p.initErr = err
			return
		}

		// File operations: read overrides if the file exists; in persistent
		// mode, create it from the current defaults when missing.
		e := p.loadFromFile()
		switch {
		case e != nil && !errors.Is(e, os.ErrNotExist):
			p.initErr = e
			return

		case e != nil && p.persist:
			if we := Save(Record(*p.cfg), p.configPath); we != nil {
				p.initErr = fmt.Errorf("create %s: %w", p.configPath, we)
				return
			}
			p.fileCreated = true
			if p.streams != nil && p.streams.Out() != nil {
				fmt.Fprintf(p.streams.Out(), "configkit: created new config at %s\n", p.configPath)
			}

		case e == nil && p.persist:
			if p.streams != nil && p.streams.Out() != nil {
				fmt.Fprintf(p.streams.Out(), "configkit: loaded from %s\n", p.configPath)
			}
		}

		p.applyEnvOverrides()

		if p.model != nil {
			if err := p.model.Validate(context.Background()); err != nil {
				p.initErr = err
				return
			}
		}
	})

	if p.initErr != nil {
		return nil, "", false, p.initErr
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg, p.configPath, p.fileCreated, nil
}

func (p *Provider[T]) resolveConfigPath() error {
	if p.envPrefix != "" {
		if configPath := os.Getenv(p.envPrefix + "_CONFIG_PATH"); configPath != "" {
			p.configPath = configPath
			return nil
		}
	}
	if p.dirName == "" {
		// Non-persistent mode.
		return nil
	}
	// Prefer XDG_CONFIG_HOME explicitly when set, then fall back to
	// os.UserConfigDir.
	userConfigDir := os.Getenv("XDG_CONFIG_HOME")
	if userConfigDir == "" {
		var err error
		userConfigDir, err = os.UserConfigDir()
		if err != nil {
			// Critical when persistent; otherwise emit a note to streams.
			if p.persist {
				return fmt.Errorf("cannot determine user config dir: %w", err)
			}
			if p.streams != nil && p.streams.ErrOut() != nil {
				fmt.Fprintf(
					p.streams.ErrOut(),
					"configkit: warning: cannot determine user config dir (%v); proceeding without a config file\n",
					err,
				)
			}
			return nil
		}
	}
	p.configPath = filepath.Join(userConfigDir, p.dirName, configFileName)
	return nil
}

// loadFromFile merges file overrides onto the current defaults. Fields
// absent from the file keep their factory/model values; fields present go
// through full record resolution, so a nested record may be an inline
// mapping or a path reference to another file.
func (p *Provider[T]) loadFromFile() error {
	if p.configPath == "" {
		return nil
	}
	f, err := formatForPath(p.configPath)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p.configPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", p.configPath, err)
	}
	raw, err := decodeTree(data, f)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrParse, p.configPath, err)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s: top-level value is not a mapping", ErrTypeMismatch, p.configPath)
	}
	return mergeTree(reflect.ValueOf(p.cfg).Elem(), m)
}

func (p *Provider[T]) applyEnvOverrides() {
	rv := reflect.ValueOf(p.cfg)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return
	}
	applyEnv(rv.Elem(), p.envPrefix, nil)
}
