// Package locale resolves the localized prompt and message templates
// embedded with the binary. Bundles live in resources/<tag>.yaml; lookups
// fall back to en-US when a key has no translation.
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed resources/*.yaml
var bundleFS embed.FS

// DefaultTag is the bundle every lookup falls back to.
const DefaultTag = "en-US"

// RequiredKeys is the template set every bundle must resolve for
// generation to work in that language.
var RequiredKeys = []string{
	"folder_structure_prompt.level1",
	"folder_structure_prompt.level2",
	"folder_structure_prompt.level3",
	"folder_structure_prompt.level3_files_prompt",
	"folder_structure_prompt.timeseries_files_prompt",
	"file_generation_prompts.random_files_prompt",
	"json_format_instructions.json_format_instruction",
	"json_format_instructions.parsing_error_message",
	"json_format_instructions.structure_error_format",
	"date_range_format",
	"role_format",
	"statistics.summary_header",
	"statistics.folders_created",
	"statistics.files_created",
	"statistics.sidecars_written",
	"statistics.elapsed",
}

const bundleCacheSize = 8

var (
	initOnce    sync.Once
	supported   []string
	matcher     language.Matcher
	bundleCache *lru.Cache[string, map[string]any]
)

func initialize() {
	initOnce.Do(func() {
		entries, err := fs.Glob(bundleFS, "resources/*.yaml")
		if err != nil {
			panic(fmt.Sprintf("locale: scan embedded bundles: %v", err))
		}
		for _, entry := range entries {
			tag := strings.TrimSuffix(strings.TrimPrefix(entry, "resources/"), ".yaml")
			supported = append(supported, tag)
		}
		sort.Strings(supported)

		// The matcher prefers earlier tags, so the default leads.
		tags := []language.Tag{language.MustParse(DefaultTag)}
		for _, s := range supported {
			if s != DefaultTag {
				tags = append(tags, language.MustParse(s))
			}
		}
		matcher = language.NewMatcher(tags)

		bundleCache, err = lru.New[string, map[string]any](bundleCacheSize)
		if err != nil {
			panic(fmt.Sprintf("locale: bundle cache: %v", err))
		}
	})
}

// Supported lists the bundle tags shipped with the binary.
func Supported() []string {
	initialize()
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

// Normalize maps arbitrary user input ("japanese", "ja", "en_us") to the
// closest supported tag, defaulting to en-US when nothing matches.
func Normalize(code string) string {
	initialize()
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return DefaultTag
	}
	tag, err := language.Parse(code)
	if err != nil {
		return DefaultTag
	}
	matched, _, conf := matcher.Match(tag)
	if conf == language.No {
		return DefaultTag
	}
	base := matched.String()
	for _, s := range supported {
		if strings.EqualFold(s, base) || strings.EqualFold(strings.Split(s, "-")[0], strings.Split(base, "-")[0]) {
			return s
		}
	}
	return DefaultTag
}

func bundle(tag string) (map[string]any, error) {
	initialize()
	if cached, ok := bundleCache.Get(tag); ok {
		return cached, nil
	}
	data, err := bundleFS.ReadFile("resources/" + tag + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no bundle for language %q: %w", tag, err)
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse bundle %q: %w", tag, err)
	}
	bundleCache.Add(tag, parsed)
	return parsed, nil
}

func lookup(b map[string]any, key string) (string, bool) {
	var current any = b
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = m[part]
		if !ok {
			return "", false
		}
	}
	s, ok := current.(string)
	return strings.TrimSpace(s), ok
}

// Get resolves a dotted template key for lang, falling back to the default
// bundle. A key missing from both is an error naming the key and language.
func Get(key, lang string) (string, error) {
	tag := Normalize(lang)
	if b, err := bundle(tag); err == nil {
		if s, ok := lookup(b, key); ok {
			return s, nil
		}
	}
	if tag != DefaultTag {
		if b, err := bundle(DefaultTag); err == nil {
			if s, ok := lookup(b, key); ok {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("no localized template %q for language %q", key, lang)
}

// Render substitutes {name} tokens in a template. Unknown tokens are left
// in place so missing substitutions surface in the output.
func Render(template string, vars map[string]string) string {
	for name, value := range vars {
		template = strings.ReplaceAll(template, "{"+name+"}", value)
	}
	return template
}

// Validate checks that a bundle resolves every required key on its own,
// without fallback to the default bundle.
func Validate(tag string) error {
	b, err := bundle(tag)
	if err != nil {
		return err
	}
	var missing []string
	for _, key := range RequiredKeys {
		if _, ok := lookup(b, key); !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("bundle %q is missing keys: %s", tag, strings.Join(missing, ", "))
	}
	return nil
}
