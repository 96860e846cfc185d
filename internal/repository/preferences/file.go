package preferences

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/treeos-project/treeos-control/internal/atomicfile"
	domain "github.com/treeos-project/treeos-control/internal/domain/preferences"
	"github.com/treeos-project/treeos-control/internal/logger"
)

// Keys as they appear in the preferences file.
const (
	KeyAutoUpdatesEnabled = "AUTO_UPDATES_ENABLED"
	KeyCheckFrequency     = "CHECK_FREQUENCY"
	KeyExtensionsEnabled  = "EXTENSIONS_ENABLED"
	KeyFirstBoot          = "FIRST_BOOT"
	KeyLastUpdateCheck    = "LAST_UPDATE_CHECK"
	KeyStoredVersion      = "STORED_VERSION"

	// legacyKeyExtensionsEnabled was written by the first releases.
	legacyKeyExtensionsEnabled = "EXTENSIONES_HABILITADAS"

	filePermissions = 0o644
)

// keyOrder is the line order of a freshly created file.
//
//nolint:gochecknoglobals // Fixed file layout.
var keyOrder = []string{
	KeyAutoUpdatesEnabled,
	KeyCheckFrequency,
	KeyExtensionsEnabled,
	KeyFirstBoot,
	KeyLastUpdateCheck,
	KeyStoredVersion,
}

var (
	errMultilineValue   = errors.New("value must fit on one line")
	errMissingSeparator = errors.New("missing '=' separator")
	errUnknownKey       = errors.New("unknown key")
	errBadBool          = errors.New("expected true or false")
)

// Repository reads and writes the update preferences.
type Repository interface {
	Read(ctx context.Context) domain.Configuration
	Write(ctx context.Context, fields ...Field) error
}

// FileRepository keeps preferences in a KEY=value text file.
type FileRepository struct {
	// path is the preferences file.
	path string
	// mu serialises writers of this process.
	mu sync.Mutex
}

// NewFileRepository creates a repository backed by path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the backing file.
func (r *FileRepository) Path() string {
	return r.path
}

// Read returns the stored preferences. It never fails: a missing or empty file yields the
// defaults and every malformed line is logged and skipped.
func (r *FileRepository) Read(ctx context.Context) domain.Configuration {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(ctx)
}

func (r *FileRepository) read(ctx context.Context) domain.Configuration {
	cfg := domain.Default()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WarnKV(ctx, "Unable to read preferences, using defaults", "path", r.path, "error", err)
		}

		return cfg
	}

	if len(bytes.TrimSpace(contents)) == 0 {
		logger.InfoKV(ctx, "Preferences file is empty, using defaults", "path", r.path)
		return cfg
	}

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err = applyLine(&cfg, line); err != nil {
			logger.WarnKV(ctx, "Skipping malformed preferences line",
				"path", r.path, "line", lineNumber, "text", line, "error", err)
		}
	}

	return cfg
}

// applyLine parses one KEY=value line into cfg.
func applyLine(cfg *domain.Configuration, line string) error {
	key, value, found := strings.Cut(line, "=")
	if !found {
		return errMissingSeparator
	}

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case KeyAutoUpdatesEnabled:
		return parseBool(value, &cfg.AutoUpdatesEnabled)
	case KeyExtensionsEnabled, legacyKeyExtensionsEnabled:
		return parseBool(value, &cfg.ExtensionsEnabled)
	case KeyFirstBoot:
		return parseBool(value, &cfg.FirstBoot)
	case KeyCheckFrequency:
		f, err := domain.ParseFrequency(value)
		if err != nil {
			return err
		}

		cfg.CheckFrequency = f
	case KeyLastUpdateCheck:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}

		cfg.LastUpdateCheck = n
	case KeyStoredVersion:
		cfg.StoredVersion = value
	default:
		return fmt.Errorf("%w: %s", errUnknownKey, key)
	}

	return nil
}

func parseBool(value string, dst *bool) error {
	switch strings.ToLower(value) {
	case "true":
		*dst = true
	case "false":
		*dst = false
	default:
		return fmt.Errorf("%w, got %q", errBadBool, value)
	}

	return nil
}

// Write stores the given fields. A missing or empty file is created with every key,
// defaults overlaid by fields. Otherwise each given key is rewritten in place, all
// other lines keep their content and order, and missing keys are appended.
func (r *FileRepository) Write(ctx context.Context, fields ...Field) error {
	p := new(patch)
	for _, field := range fields {
		field(p)
	}

	if p.err != nil {
		return p.err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read preferences: %w", err)
	}

	var data []byte

	if len(bytes.TrimSpace(contents)) == 0 {
		data = p.render(domain.Default())

		logger.InfoKV(ctx, "Creating preferences file with defaults", "path", r.path)
	} else {
		data = p.rewrite(contents)
	}

	if err = atomicfile.Write(r.path, data, filePermissions); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}

	logger.DebugKV(ctx, "Preferences saved", "path", r.path, "keys", p.keys())

	return nil
}

// Field sets one preference in a Write call.
type Field func(*patch)

// patch is the set of keys a Write call updates, already serialised.
type patch struct {
	values map[string]string
	err    error
}

func (p *patch) set(key, value string) {
	if p.values == nil {
		p.values = make(map[string]string, len(keyOrder))
	}

	if strings.ContainsAny(value, "\r\n") {
		p.err = fmt.Errorf("%s: %w", key, errMultilineValue)
		return
	}

	p.values[key] = value
}

func (p *patch) keys() []string {
	keys := make([]string, 0, len(p.values))
	for _, key := range keyOrder {
		if _, ok := p.values[key]; ok {
			keys = append(keys, key)
		}
	}

	return keys
}

// render builds a complete file from base overlaid by the patch.
func (p *patch) render(base domain.Configuration) []byte {
	defaults := formatted(base)

	var buf bytes.Buffer

	for _, key := range keyOrder {
		value, ok := p.values[key]
		if !ok {
			value = defaults[key]
		}

		fmt.Fprintf(&buf, "%s=%s\n", key, value)
	}

	return buf.Bytes()
}

// formatted renders every preference of cfg as it is written to the file.
func formatted(cfg domain.Configuration) map[string]string {
	return map[string]string{
		KeyAutoUpdatesEnabled: strconv.FormatBool(cfg.AutoUpdatesEnabled),
		KeyCheckFrequency:     string(cfg.CheckFrequency),
		KeyExtensionsEnabled:  strconv.FormatBool(cfg.ExtensionsEnabled),
		KeyFirstBoot:          strconv.FormatBool(cfg.FirstBoot),
		KeyLastUpdateCheck:    strconv.FormatInt(cfg.LastUpdateCheck, 10),
		KeyStoredVersion:      cfg.StoredVersion,
	}
}

// rewrite replaces the value of every line whose key is patched. Keys the file lacks
// are appended, patched or default, so the file keeps all keys.
func (p *patch) rewrite(contents []byte) []byte {
	lines := strings.Split(strings.TrimRight(string(contents), "\n"), "\n")
	present := make(map[string]bool, len(keyOrder))

	for i, line := range lines {
		rawKey, _, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		rawKey = strings.TrimSpace(rawKey)

		key := rawKey
		if key == legacyKeyExtensionsEnabled {
			key = KeyExtensionsEnabled
		}

		present[key] = true

		value, ok := p.values[key]
		if !ok {
			continue
		}

		lines[i] = rawKey + "=" + value
	}

	defaults := formatted(domain.Default())

	for _, key := range keyOrder {
		if present[key] {
			continue
		}

		value, ok := p.values[key]
		if !ok {
			value = defaults[key]
		}

		lines = append(lines, key+"="+value)
	}

	return []byte(strings.Join(lines, "\n") + "\n")
}

// WithAutoUpdatesEnabled sets AUTO_UPDATES_ENABLED.
func WithAutoUpdatesEnabled(v bool) Field {
	return func(p *patch) { p.set(KeyAutoUpdatesEnabled, strconv.FormatBool(v)) }
}

// WithCheckFrequency sets CHECK_FREQUENCY.
func WithCheckFrequency(f domain.Frequency) Field {
	return func(p *patch) {
		parsed, err := domain.ParseFrequency(string(f))
		if err != nil {
			p.err = err
			return
		}

		p.set(KeyCheckFrequency, string(parsed))
	}
}

// WithExtensionsEnabled sets EXTENSIONS_ENABLED.
func WithExtensionsEnabled(v bool) Field {
	return func(p *patch) { p.set(KeyExtensionsEnabled, strconv.FormatBool(v)) }
}

// WithFirstBoot sets FIRST_BOOT.
func WithFirstBoot(v bool) Field {
	return func(p *patch) { p.set(KeyFirstBoot, strconv.FormatBool(v)) }
}

// WithLastUpdateCheck sets LAST_UPDATE_CHECK to a unix timestamp.
func WithLastUpdateCheck(unix int64) Field {
	return func(p *patch) { p.set(KeyLastUpdateCheck, strconv.FormatInt(unix, 10)) }
}

// WithStoredVersion sets STORED_VERSION; surrounding whitespace is trimmed.
func WithStoredVersion(v string) Field {
	return func(p *patch) { p.set(KeyStoredVersion, strings.TrimSpace(v)) }
}

// Keys returns the preference keys in file order.
func Keys() []string {
	return append([]string(nil), keyOrder...)
}

// Format renders cfg the way a freshly created file looks.
func Format(cfg domain.Configuration) []byte {
	return (&patch{}).render(cfg)
}

// ParseField builds the Field setting key to a textual value. Keys are matched
// case-insensitively and values are validated like file lines.
func ParseField(key, value string) (Field, error) {
	key = strings.ToUpper(strings.TrimSpace(key))

	var parsed domain.Configuration
	if err := applyLine(&parsed, key+"="+value); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	switch key {
	case KeyAutoUpdatesEnabled:
		return WithAutoUpdatesEnabled(parsed.AutoUpdatesEnabled), nil
	case KeyCheckFrequency:
		return WithCheckFrequency(parsed.CheckFrequency), nil
	case KeyExtensionsEnabled, legacyKeyExtensionsEnabled:
		return WithExtensionsEnabled(parsed.ExtensionsEnabled), nil
	case KeyFirstBoot:
		return WithFirstBoot(parsed.FirstBoot), nil
	case KeyLastUpdateCheck:
		return WithLastUpdateCheck(parsed.LastUpdateCheck), nil
	default:
		return WithStoredVersion(parsed.StoredVersion), nil
	}
}
