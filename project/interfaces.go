package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jshufro/componentgen/codegen"
	"github.com/jshufro/componentgen/oracle"
	"go.uber.org/zap"
)

// DefaultCacheSize is the number of interface files kept parsed.
const DefaultCacheSize = 128

type cachedInterface struct {
	data    []byte
	parsed  *abi.ABI
	builtin bool
}

// InterfaceLoader finds interface files in the project interfaces directory,
// then among the built-ins. Parsed files are kept in an LRU cache.
type InterfaceLoader struct {
	dir    string
	cache  *lru.Cache[string, cachedInterface]
	logger *zap.Logger
}

func NewInterfaceLoader(dir string, size int, logger *zap.Logger) (*InterfaceLoader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedInterface](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterfaceLoader{dir: dir, cache: cache, logger: logger}, nil
}

func (l *InterfaceLoader) read(name string) (cachedInterface, bool, error) {
	if c, ok := l.cache.Get(name); ok {
		return c, true, nil
	}
	var c cachedInterface
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	switch {
	case err == nil:
		c.data = data
	case os.IsNotExist(err):
		builtin, ok := oracle.Builtin(name)
		if !ok {
			return c, false, nil
		}
		c.data = builtin
		c.builtin = true
	default:
		return c, false, fmt.Errorf("error reading interface %s: %w", name, err)
	}
	if codegen.IsABI(name) {
		parsed, err := oracle.LoadABI(name, c.data)
		if err != nil {
			return c, false, err
		}
		c.parsed = parsed
	}
	l.cache.Add(name, c)
	l.logger.Debug("loaded interface", zap.String("name", name), zap.Bool("builtin", c.builtin))
	return c, true, nil
}

// Load collects the named interface files. Names found nowhere are left out;
// the generator that needs them reports the resolution error.
func (l *InterfaceLoader) Load(names []string) (*codegen.Interfaces, error) {
	out := codegen.NewInterfaces()
	for _, name := range names {
		c, ok, err := l.read(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if c.parsed != nil {
			out.AddParsed(name, c.data, c.parsed)
			continue
		}
		if err := out.Add(name, c.data); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Invalidate drops a cached file so the next Load reads it again.
func (l *InterfaceLoader) Invalidate(name string) {
	l.cache.Remove(name)
}
