package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/cascata/waterworks/domain"
	"github.com/cascata/waterworks/engine"
	"github.com/cascata/waterworks/ports"
)

// tensorDoc is the serialized form of a statistics tensor.
type tensorDoc struct {
	Shape []int     `yaml:"shape"`
	Data  []float64 `yaml:"data,flow"`
}

func tensorToDoc(t *domain.Tensor) *tensorDoc {
	if t == nil {
		return nil
	}
	return &tensorDoc{Shape: t.Shape(), Data: t.Data()}
}

func docToTensor(d *tensorDoc) (*domain.Tensor, error) {
	if d == nil {
		return nil, nil
	}
	return domain.NewTensor(d.Shape, d.Data)
}

// numDoc is the on-disk attribute dictionary of a NumTransform: its
// configuration plus the computed statistics, everything needed to
// reconstruct the transform without the reference dataset.
type numDoc struct {
	Config NumConfig  `yaml:"config"`
	Mean   *tensorDoc `yaml:"mean,omitempty"`
	Std    *tensorDoc `yaml:"std,omitempty"`
	Min    *tensorDoc `yaml:"min,omitempty"`
	Max    *tensorDoc `yaml:"max,omitempty"`
}

// Loader restores transforms from YAML attribute dictionaries, with
// SHA-256 content caching and singleflight deduplication so concurrent
// loads of identical documents build one transform.
// Cached transforms are shared; callers must not mutate them.
type Loader struct {
	registry ports.TankRegistry

	cacheMu sync.RWMutex
	cache   map[string]*NumTransform
	sf      singleflight.Group
}

// NewLoader creates a loader instantiating tanks from the given registry
// (the default registry when nil).
func NewLoader(registry ports.TankRegistry) *Loader {
	if registry == nil {
		registry = engine.NewDefaultTankRegistry()
	}
	return &Loader{registry: registry, cache: make(map[string]*NumTransform)}
}

// LoadNum restores a numeric transform from its serialized attribute
// dictionary, validating the configuration and the statistics against the
// norm mode.
func (l *Loader) LoadNum(data []byte) (*NumTransform, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	l.cacheMu.RLock()
	if t, ok := l.cache[hash]; ok {
		l.cacheMu.RUnlock()
		return t, nil
	}
	l.cacheMu.RUnlock()

	v, err, _ := l.sf.Do(hash, func() (any, error) {
		t, err := l.parseNum(data)
		if err != nil {
			return nil, err
		}
		l.cacheMu.Lock()
		l.cache[hash] = t
		l.cacheMu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*NumTransform), nil
}

// LoadNumFromFile restores a numeric transform from a YAML file.
func (l *Loader) LoadNumFromFile(path string) (*NumTransform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transform file: %w", err)
	}
	return l.LoadNum(data)
}

func (l *Loader) parseNum(data []byte) (*NumTransform, error) {
	var doc numDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse transform YAML: %w", err)
	}

	t, err := NewNumTransform(doc.Config, WithRegistry(l.registry))
	if err != nil {
		return nil, err
	}
	if t.mean, err = docToTensor(doc.Mean); err != nil {
		return nil, fmt.Errorf("mean: %w", err)
	}
	if t.std, err = docToTensor(doc.Std); err != nil {
		return nil, fmt.Errorf("std: %w", err)
	}
	if t.min, err = docToTensor(doc.Min); err != nil {
		return nil, fmt.Errorf("min: %w", err)
	}
	if t.max, err = docToTensor(doc.Max); err != nil {
		return nil, fmt.Errorf("max: %w", err)
	}
	if !t.ready() {
		return nil, fmt.Errorf("norm mode %q requires statistics the document does not carry: %w",
			doc.Config.NormMode, ErrNoGlobalValues)
	}
	return t, nil
}

// SaveNum serializes the transform's attribute dictionary to YAML. The
// output restores an identical transform through LoadNum.
func SaveNum(t *NumTransform) ([]byte, error) {
	if !t.ready() {
		return nil, ErrNoGlobalValues
	}
	doc := numDoc{
		Config: t.config,
		Mean:   tensorToDoc(t.mean),
		Std:    tensorToDoc(t.std),
		Min:    tensorToDoc(t.min),
		Max:    tensorToDoc(t.max),
	}
	out, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transform: %w", err)
	}
	return out, nil
}

// SaveNumToFile writes the transform's attribute dictionary to a YAML
// file.
func SaveNumToFile(t *NumTransform, path string) error {
	data, err := SaveNum(t)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
